package domain

import (
	"sort"
	"time"
)

// Retrieval defaults.
const (
	// DefaultTopK is the number of chunks returned per search.
	DefaultTopK = 3

	// DefaultRelevanceFloor is the score below which retrieval counts as
	// "nothing relevant".
	DefaultRelevanceFloor = 0.2

	// DefaultMinChunkLength is the minimum chunk length in bytes.
	DefaultMinChunkLength = 100

	// DefaultContextChars is how much of each chunk is sent back as tool context.
	DefaultContextChars = 400
)

// ScoredChunk is a single ranked search hit.
type ScoredChunk struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// Score is the similarity in [-1, 1].
	Score float64
}

// SortScored orders hits by descending score, breaking ties by ascending
// chunk id.
func SortScored(hits []ScoredChunk) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.ID < hits[j].Chunk.ID
	})
}

// TopScore returns the best score of a sorted hit list, or -1 when empty.
func TopScore(hits []ScoredChunk) float64 {
	if len(hits) == 0 {
		return -1
	}
	return hits[0].Score
}

// AboveFloor returns the hits whose score reaches the floor.
func AboveFloor(hits []ScoredChunk, floor float64) []ScoredChunk {
	out := make([]ScoredChunk, 0, len(hits))
	for _, h := range hits {
		if h.Score >= floor {
			out = append(out, h)
		}
	}
	return out
}

// IndexStats describes the current state of the embedding index.
type IndexStats struct {
	// Built reports whether Build has completed at least once.
	Built bool

	// Chunks is the number of indexed chunks.
	Chunks int

	// Dimensions is the embedding vector length.
	Dimensions int

	// Normalized reports whether the embedder produced unit vectors, so that
	// scores are plain inner products.
	Normalized bool

	// Model is the embedding model used at build time.
	Model string

	// Backend names the vector index implementation.
	Backend string

	// BuiltAt is when the last build finished.
	BuiltAt time.Time
}

// SimilarityMode returns a short description of how scores are computed.
func (s IndexStats) SimilarityMode() string {
	if s.Normalized {
		return "inner product (unit vectors)"
	}
	return "cosine (normalised at build)"
}
