// Package flat provides an exhaustive in-memory vector index.
// Every search scores the query against all stored vectors, which is exact
// and fast enough for corpora of a few thousand chunks.
package flat

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/lumen/internal/core/domain"
	"github.com/custodia-labs/lumen/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.VectorIndex = (*Index)(nil)

// Index stores vectors in insertion order and scans them on search.
type Index struct {
	mu   sync.RWMutex
	dims int
	ids  []int
	vecs [][]float32
}

// New creates an empty flat index.
func New() *Index {
	return &Index{}
}

// Reset discards all vectors and fixes the dimensionality.
func (x *Index) Reset(dims int) error {
	if dims <= 0 {
		return fmt.Errorf("%w: dimensions must be positive", domain.ErrInvalidInput)
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.dims = dims
	x.ids = nil
	x.vecs = nil
	return nil
}

// Add stores a copy of the vector.
func (x *Index) Add(_ context.Context, chunkID int, embedding []float32) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if len(embedding) != x.dims {
		return fmt.Errorf("%w: got %d, index has %d", domain.ErrDimensionMismatch, len(embedding), x.dims)
	}
	v := make([]float32, len(embedding))
	copy(v, embedding)
	x.ids = append(x.ids, chunkID)
	x.vecs = append(x.vecs, v)
	return nil
}

// Search returns the k highest inner products with the query.
func (x *Index) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if len(query) != x.dims {
		return nil, fmt.Errorf("%w: query has %d, index has %d", domain.ErrDimensionMismatch, len(query), x.dims)
	}
	if k <= 0 || len(x.vecs) == 0 {
		return []driven.VectorHit{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hits := make([]driven.VectorHit, len(x.vecs))
	for i, v := range x.vecs {
		hits[i] = driven.VectorHit{ChunkID: x.ids[i], Score: Dot(query, v)}
	}
	SortHits(hits)

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of stored vectors.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vecs)
}

// Name identifies the backend.
func (x *Index) Name() string {
	return string(domain.IndexBackendFlat)
}

// Close releases resources.
func (x *Index) Close() error {
	return nil
}

// Dot returns the inner product of two equal-length vectors in float64.
func Dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// SortHits orders hits by descending score, then ascending chunk ID.
func SortHits(hits []driven.VectorHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
}
