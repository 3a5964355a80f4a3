package mcp

import (
	"github.com/custodia-labs/lumen/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search ranks course material chunks.
	Search driving.SearchService

	// Tools holds the tools exposed through call_tool.
	Tools driving.ToolRegistry

	// Answer resolves questions. Optional: without it the ask tool fails.
	Answer driving.AnswerService

	// Index reports index statistics. Optional.
	Index driving.IndexService

	// History exposes past queries. Optional.
	History driving.HistoryService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.Tools == nil {
		return ErrMissingToolRegistry
	}
	return nil
}
