// Package mcp provides an MCP (Model Context Protocol) server adapter for Lumen.
// It lets AI assistants ask the tutor, search the course material and run
// the registered tools.
package mcp

import "errors"

var (
	// ErrMissingSearchService is returned when the search service is not provided.
	ErrMissingSearchService = errors.New("mcp: search service is required")

	// ErrMissingToolRegistry is returned when the tool registry is not provided.
	ErrMissingToolRegistry = errors.New("mcp: tool registry is required")

	// ErrAnswerDisabled is returned by the ask tool when no reasoning service
	// is configured.
	ErrAnswerDisabled = errors.New("mcp: answering is disabled, configure an LLM provider")
)
