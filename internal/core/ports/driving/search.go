package driving

import (
	"context"

	"github.com/custodia-labs/lumen/internal/core/domain"
)

// SearchService ranks indexed chunks against a query.
type SearchService interface {
	// Search returns up to k chunks by descending similarity, ties broken by
	// lower chunk ID. Returns domain.ErrIndexNotBuilt before the first build.
	Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error)
}

// IndexService builds the embedding index.
type IndexService interface {
	SearchService

	// Build embeds chunks and atomically replaces the index contents.
	Build(ctx context.Context, chunks []domain.Chunk) error

	// RelevanceFloor is the score a hit needs to count as relevant.
	RelevanceFloor() float64

	// Stats describes the current index.
	Stats() domain.IndexStats

	// Chunk returns an indexed chunk by ID.
	Chunk(id int) (domain.Chunk, bool)
}

// IngestService loads the corpus, chunks it and rebuilds the index.
type IngestService interface {
	// Ingest runs a full rebuild and reports what was indexed.
	Ingest(ctx context.Context) (*domain.IngestReport, error)
}
