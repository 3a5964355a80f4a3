package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/lumen/internal/core/domain"
	"github.com/custodia-labs/lumen/internal/core/ports/driven"
	"github.com/custodia-labs/lumen/internal/core/ports/driving"
	"github.com/custodia-labs/lumen/internal/logger"
	"github.com/custodia-labs/lumen/internal/metrics"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// normTolerance is how far from 1 a vector norm may be and still count as unit length.
const normTolerance = 1e-3

// IndexService is the embedding index: it embeds chunks, stores one vector
// per chunk and ranks chunks against queries.
//
// Build is exclusive; Search runs concurrently with other searches.
type IndexService struct {
	embedder driven.EmbeddingService
	vectors  driven.VectorIndex
	floor    float64

	mu         sync.RWMutex
	built      bool
	chunks     map[int]domain.Chunk
	dims       int
	normalized bool
	model      string
	builtAt    time.Time
}

// NewIndexService creates an index that has not been built yet.
func NewIndexService(embedder driven.EmbeddingService, vectors driven.VectorIndex, floor float64) *IndexService {
	return &IndexService{
		embedder: embedder,
		vectors:  vectors,
		floor:    floor,
		chunks:   make(map[int]domain.Chunk),
	}
}

// RelevanceFloor is the score a hit needs to count as relevant.
func (s *IndexService) RelevanceFloor() float64 {
	return s.floor
}

// Build embeds all chunks and replaces the index contents.
// Embedding happens before the write lock is taken, so searches continue
// against the previous version until the swap.
func (s *IndexService) Build(ctx context.Context, chunks []domain.Chunk) error {
	logger.Section("Index Build")
	start := time.Now()

	if s.embedder == nil {
		return domain.ErrEmbeddingUnavailable
	}

	byID := make(map[int]domain.Chunk, len(chunks))
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		if _, dup := byID[c.ID]; dup {
			return fmt.Errorf("%w: duplicate chunk id %d", domain.ErrInvalidInput, c.ID)
		}
		byID[c.ID] = c
		texts[i] = c.Text
	}

	var vecs [][]float32
	if len(chunks) > 0 {
		var err error
		vecs, err = s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
		}
		if len(vecs) != len(chunks) {
			return fmt.Errorf("%w: got %d vectors for %d chunks", domain.ErrEmbeddingUnavailable, len(vecs), len(chunks))
		}
	}

	dims := s.embedder.Dimensions()
	if len(vecs) > 0 {
		dims = len(vecs[0])
	}
	for i, v := range vecs {
		if len(v) != dims {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				domain.ErrDimensionMismatch, chunks[i].ID, len(v), dims)
		}
	}

	normalized := allUnit(vecs)
	if !normalized {
		logger.Warn("Embedding model %s does not produce unit vectors; using cosine similarity", s.embedder.ModelName())
		for i := range vecs {
			vecs[i] = normalize(vecs[i])
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.vectors.Reset(dims); err != nil {
		s.built = false
		return fmt.Errorf("reset vector index: %w", err)
	}
	for i, c := range chunks {
		if err := s.vectors.Add(ctx, c.ID, vecs[i]); err != nil {
			s.built = false
			return fmt.Errorf("add chunk %d: %w", c.ID, err)
		}
	}

	s.chunks = byID
	s.dims = dims
	s.normalized = normalized
	s.model = s.embedder.ModelName()
	s.builtAt = time.Now()
	s.built = true

	elapsed := time.Since(start)
	metrics.RecordBuild(len(chunks), elapsed)
	logger.Info("Indexed %d chunks (%d dims, %s, %s backend) in %s",
		len(chunks), dims, s.statsLocked().SimilarityMode(), s.vectors.Name(), elapsed.Round(time.Millisecond))

	return nil
}

// Search ranks indexed chunks against the query.
// The query is embedded without holding the lock, since a remote embedder may
// take seconds. Model and dimensions are checked again under the read lock so
// a Build that lands in between is caught.
func (s *IndexService) Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	start := time.Now()
	defer func() { metrics.RecordSearch(time.Since(start)) }()

	s.mu.RLock()
	built, empty, model := s.built, len(s.chunks) == 0, s.model
	s.mu.RUnlock()

	if !built {
		return nil, domain.ErrIndexNotBuilt
	}

	query = strings.TrimSpace(query)
	if query == "" || empty {
		return []domain.ScoredChunk{}, nil
	}
	if k <= 0 {
		k = domain.DefaultTopK
	}

	name := s.embedder.ModelName()
	if name != model {
		return nil, fmt.Errorf("%w: index built with %s, query uses %s", domain.ErrEmbeddingModelMismatch, model, name)
	}

	logger.Debug("Search: %q (k=%d)", query, k)

	q, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSearchUnavailable, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.model != name {
		return nil, fmt.Errorf("%w: index rebuilt with %s, query uses %s", domain.ErrEmbeddingModelMismatch, s.model, name)
	}
	if len(q) != s.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", domain.ErrDimensionMismatch, len(q), s.dims)
	}
	if !s.normalized {
		q = normalize(q)
	}

	hits, err := s.vectors.Search(ctx, q, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	results := make([]domain.ScoredChunk, 0, len(hits))
	for _, h := range hits {
		c, ok := s.chunks[h.ChunkID]
		if !ok {
			continue
		}
		results = append(results, domain.ScoredChunk{Chunk: c, Score: clamp(h.Score)})
	}
	domain.SortScored(results)

	logger.Debug("Search returned %d hits, top score %.3f (floor %.2f)", len(results), domain.TopScore(results), s.floor)
	return results, nil
}

// Chunk returns an indexed chunk by ID.
func (s *IndexService) Chunk(id int) (domain.Chunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chunks[id]
	return c, ok
}

// Stats describes the current index.
func (s *IndexService) Stats() domain.IndexStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statsLocked()
}

func (s *IndexService) statsLocked() domain.IndexStats {
	return domain.IndexStats{
		Built:      s.built,
		Chunks:     len(s.chunks),
		Dimensions: s.dims,
		Normalized: s.normalized,
		Model:      s.model,
		Backend:    s.vectors.Name(),
		BuiltAt:    s.builtAt,
	}
}

// allUnit reports whether every vector has unit L2 norm.
// An empty set counts as normalized. Zero vectors, which embedders return for
// text with nothing to embed, are skipped: they score 0 either way.
func allUnit(vecs [][]float32) bool {
	for _, v := range vecs {
		n := norm(v)
		if n == 0 {
			continue
		}
		if math.Abs(n-1) >= normTolerance {
			return false
		}
	}
	return true
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// normalize returns a unit-length copy of v. Zero vectors are returned as is.
func normalize(v []float32) []float32 {
	n := norm(v)
	out := make([]float32, len(v))
	if n == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out
}

// clamp keeps float rounding from pushing scores outside [-1, 1].
func clamp(score float64) float64 {
	switch {
	case score > 1:
		return 1
	case score < -1:
		return -1
	default:
		return score
	}
}
