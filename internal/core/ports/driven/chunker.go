package driven

import "github.com/custodia-labs/lumen/internal/core/domain"

// Chunker splits a document into retrievable sections.
// Chunk IDs are dense and 0-based within the returned slice.
type Chunker interface {
	// Name returns the chunker name for logging and configuration.
	Name() string

	// Chunk returns the sections of doc that reach the minimum length.
	Chunk(doc *domain.Document) []domain.Chunk
}
