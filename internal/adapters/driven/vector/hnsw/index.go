// Package hnsw provides a vector index backed by an HNSW graph.
//
// The graph proposes candidates which are then rescored with the exact inner
// product, so scores match the flat backend. When k covers the whole corpus
// the graph is bypassed and every vector is scored.
package hnsw

import (
	"context"
	"fmt"
	"sync"

	"github.com/fogfish/hnsw"
	"github.com/fogfish/hnsw/vector"
	kvector "github.com/kshard/vector"

	"github.com/custodia-labs/lumen/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/lumen/internal/core/domain"
	"github.com/custodia-labs/lumen/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.VectorIndex = (*Index)(nil)

// minCandidates is the smallest candidate pool pulled from the graph.
const minCandidates = 32

// Index wraps an HNSW graph with an exact copy of every vector.
type Index struct {
	mu    sync.RWMutex
	dims  int
	graph *hnsw.HNSW[vector.VF32]
	vecs  map[int][]float32
}

// New creates an empty HNSW index.
func New() *Index {
	return &Index{
		graph: newGraph(),
		vecs:  make(map[int][]float32),
	}
}

func newGraph() *hnsw.HNSW[vector.VF32] {
	return hnsw.New[vector.VF32](vector.SurfaceVF32(kvector.Cosine()))
}

// Reset discards the graph and fixes the dimensionality.
func (x *Index) Reset(dims int) error {
	if dims <= 0 {
		return fmt.Errorf("%w: dimensions must be positive", domain.ErrInvalidInput)
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.dims = dims
	x.graph = newGraph()
	x.vecs = make(map[int][]float32)
	return nil
}

// Add inserts the vector into the graph.
func (x *Index) Add(_ context.Context, chunkID int, embedding []float32) error {
	if chunkID < 0 {
		return fmt.Errorf("%w: negative chunk id %d", domain.ErrInvalidInput, chunkID)
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if len(embedding) != x.dims {
		return fmt.Errorf("%w: got %d, index has %d", domain.ErrDimensionMismatch, len(embedding), x.dims)
	}
	if _, exists := x.vecs[chunkID]; exists {
		return fmt.Errorf("%w: chunk %d", domain.ErrAlreadyExists, chunkID)
	}

	v := make([]float32, len(embedding))
	copy(v, embedding)
	x.vecs[chunkID] = v
	x.graph.Insert(vector.VF32{Key: uint32(chunkID), Vec: v})
	return nil
}

// Search returns the k best hits by exact inner product.
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

	var hits []driven.VectorHit
	if k >= len(x.vecs) {
		hits = make([]driven.VectorHit, 0, len(x.vecs))
		for id, v := range x.vecs {
			hits = append(hits, driven.VectorHit{ChunkID: id, Score: flat.Dot(query, v)})
		}
	} else {
		hits = x.candidates(query, k)
	}

	flat.SortHits(hits)
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// candidates pulls a widened pool from the graph and rescores it.
func (x *Index) candidates(query []float32, k int) []driven.VectorHit {
	pool := k * 4
	if pool < minCandidates {
		pool = minCandidates
	}
	if pool > len(x.vecs) {
		pool = len(x.vecs)
	}
	ef := pool * 2
	if ef < 100 {
		ef = 100
	}

	results := x.graph.Search(vector.VF32{Vec: query}, pool, ef)

	seen := make(map[int]bool, len(results))
	hits := make([]driven.VectorHit, 0, len(results))
	for _, r := range results {
		id := int(r.Key)
		v, ok := x.vecs[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		hits = append(hits, driven.VectorHit{ChunkID: id, Score: flat.Dot(query, v)})
	}
	return hits
}

// Len returns the number of stored vectors.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vecs)
}

// Name identifies the backend.
func (x *Index) Name() string {
	return string(domain.IndexBackendHNSW)
}

// Close releases resources.
func (x *Index) Close() error {
	return nil
}
