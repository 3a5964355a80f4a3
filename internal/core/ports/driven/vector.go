package driven

import "context"

// VectorIndex provides nearest-neighbour search over chunk embeddings.
// Scores are inner products of the stored and query vectors, so callers
// pass unit vectors to get cosine similarity.
type VectorIndex interface {
	// Reset discards all vectors and prepares for the given dimensionality.
	Reset(dims int) error

	// Add inserts a vector for the given chunk ID.
	Add(ctx context.Context, chunkID int, embedding []float32) error

	// Search finds the k nearest neighbours to the query vector.
	// Hits are ordered by descending score, then ascending chunk ID.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Len returns the number of stored vectors.
	Len() int

	// Name identifies the backend.
	Name() string

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID int

	// Score is the inner product with the query.
	Score float64
}
