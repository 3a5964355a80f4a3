// Package driving lists what the CLI and the MCP server may ask of the core.
// Both adapters depend only on these interfaces; internal/core/services
// provides the implementations and tests swap in mocks.
package driving
