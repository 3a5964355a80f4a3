// Package hash provides a deterministic, offline embedding service based on
// feature hashing of word tokens.
//
// Each token is hashed into one of a fixed number of buckets with a signed
// weight, and the resulting vector is L2-normalised. Texts that share words
// score high; texts with no words in common score near zero. It needs no
// model download and is the default provider.
package hash

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/custodia-labs/lumen/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultDimensions matches the vector size of the MiniLM sentence models.
const DefaultDimensions = 384

// Config holds configuration for the hashing embedder.
type Config struct {
	// Dimensions is the embedding vector size (default: 384).
	Dimensions int
}

// EmbeddingService generates embeddings by feature hashing.
type EmbeddingService struct {
	dimensions int
}

// NewEmbeddingService creates a new hashing embedding service.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	return &EmbeddingService{dimensions: cfg.Dimensions}
}

// Embed generates a unit vector for the text, or a zero vector when the
// text has no indexable words.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, tok := range Tokenize(text) {
		counts[tok]++
	}

	acc := make([]float64, s.dimensions)
	for tok, n := range counts {
		bucket, sign := s.slot(tok)
		acc[bucket] += sign * (1 + math.Log(float64(n)))
	}

	var sum float64
	for _, x := range acc {
		sum += x * x
	}

	vec := make([]float32, s.dimensions)
	if sum == 0 {
		return vec, nil
	}
	n := math.Sqrt(sum)
	for i, x := range acc {
		vec[i] = float32(x / n)
	}
	return vec, nil
}

// EmbedBatch embeds each text in order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := s.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// slot maps a token to a bucket and a sign.
func (s *EmbeddingService) slot(tok string) (int, float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(tok))
	sum := h.Sum64()
	sign := 1.0
	if sum>>63 == 1 {
		sign = -1
	}
	return int(sum % uint64(s.dimensions)), sign
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName encodes the dimensionality, so indexes built with a different
// size are detected as a different model.
func (s *EmbeddingService) ModelName() string {
	return fmt.Sprintf("fnv-hash-%d", s.dimensions)
}

// Ping always succeeds.
func (s *EmbeddingService) Ping(_ context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

// Tokenize lowercases text, splits it into words, drops stopwords and
// one-letter tokens and strips a plural "s".
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 || stopwords[f] {
			continue
		}
		tokens = append(tokens, stem(f))
	}
	return tokens
}

func stem(w string) string {
	if len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") {
		return w[:len(w)-1]
	}
	return w
}

var stopwords = func() map[string]bool {
	words := strings.Fields(`
		a about above after again against all am an and any are as at be because been
		before being below between both but by can could did do does doing down during
		each few for from further had has have having he her here hers herself him
		himself his how if in into is it its itself just me more most my myself no nor
		not now of off on once only or other our ours ourselves out over own same she
		should so some such than that the their theirs them themselves then there these
		they this those through to too under until up very was we were what when where
		which while who whom why will with would you your yours yourself yourselves
		also may might must shall us`)
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}()
