// Package domain defines the core business entities for Lumen.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A structured lecture text loaded for indexing
//   - Chunk: A retrievable section of a document
//   - ToolSpec, ToolCallRequest, ToolCallResult: The tool-calling protocol
//   - Conversation: The append-only turn history of one query
//   - Answer: The outcome of resolving one query
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
