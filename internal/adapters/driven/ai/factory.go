// Package ai turns provider settings into embedding, reasoning and vector
// index adapters.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	hashembed "github.com/custodia-labs/lumen/internal/adapters/driven/embedding/hash"
	ollamaembed "github.com/custodia-labs/lumen/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/lumen/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/lumen/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/lumen/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/lumen/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/lumen/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/lumen/internal/adapters/driven/vector/hnsw"
	"github.com/custodia-labs/lumen/internal/core/domain"
	"github.com/custodia-labs/lumen/internal/core/ports/driven"
)

// pingTimeout bounds every connectivity check.
const pingTimeout = 5 * time.Second

const fixHint = "run 'lumen settings embedding' to choose another provider"

var embedders = map[domain.AIProvider]func(*domain.EmbeddingSettings) (driven.EmbeddingService, error){
	domain.AIProviderHash: func(s *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
		return hashembed.NewEmbeddingService(hashembed.Config{Dimensions: s.Dimensions}), nil
	},
	domain.AIProviderOllama: func(s *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{BaseURL: s.BaseURL, Model: s.Model}), nil
	},
	domain.AIProviderOpenAI: func(s *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
		return openaiembed.NewEmbeddingService(openaiembed.Config{APIKey: s.APIKey, BaseURL: s.BaseURL, Model: s.Model})
	},
}

var reasoners = map[domain.AIProvider]func(*domain.LLMSettings) (driven.ReasoningService, error){
	domain.AIProviderAnthropic: func(s *domain.LLMSettings) (driven.ReasoningService, error) {
		return anthropicllm.NewLLMService(anthropicllm.Config{APIKey: s.APIKey, BaseURL: s.BaseURL, Model: s.Model})
	},
	domain.AIProviderOpenAI: func(s *domain.LLMSettings) (driven.ReasoningService, error) {
		return openaillm.NewLLMService(openaillm.Config{APIKey: s.APIKey, BaseURL: s.BaseURL, Model: s.Model})
	},
	domain.AIProviderOllama: func(s *domain.LLMSettings) (driven.ReasoningService, error) {
		return ollamallm.NewLLMService(ollamallm.Config{BaseURL: s.BaseURL, Model: s.Model}), nil
	},
}

// InitResult holds the adapters built from one set of settings.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	ReasoningService driven.ReasoningService
	VectorIndex      driven.VectorIndex
	// Warnings are problems that leave retrieval working, such as no LLM.
	Warnings []string
}

// Close releases every adapter that was built.
func (r *InitResult) Close() {
	var closers []interface{ Close() error }
	if r.EmbeddingService != nil {
		closers = append(closers, r.EmbeddingService)
	}
	if r.VectorIndex != nil {
		closers = append(closers, r.VectorIndex)
	}
	if r.ReasoningService != nil {
		closers = append(closers, r.ReasoningService)
	}
	for _, c := range closers {
		_ = c.Close()
	}
}

// Init builds the embedder (pinged before use), the vector index and the
// reasoning service. Only the first two are required.
func Init(settings *domain.AppSettings) (*InitResult, error) {
	embedder, err := openEmbedder(&settings.Embedding)
	if err != nil {
		return nil, err
	}
	result := &InitResult{EmbeddingService: embedder}

	if result.VectorIndex, err = CreateVectorIndex(settings.Index.Backend); err != nil {
		result.Close()
		return nil, err
	}

	llm, err := CreateReasoningService(&settings.LLM)
	switch {
	case err != nil:
		result.Warnings = append(result.Warnings, err.Error())
	case llm == nil:
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("LLM provider %s is not configured; answering is disabled", settings.LLM.Provider))
	default:
		result.ReasoningService = llm
	}
	return result, nil
}

// openEmbedder builds the embedder and proves it answers.
func openEmbedder(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	switch {
	case err != nil:
		return nil, fmt.Errorf("%w: %w; %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	case svc == nil:
		return nil, fmt.Errorf("%w: provider %s is not configured", domain.ErrEmbeddingUnavailable, settings.Provider)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		if errors.Is(err, domain.ErrEmbeddingUnavailable) {
			return nil, fmt.Errorf("%w; %s", err, fixHint)
		}
		return nil, fmt.Errorf("%w: %w; %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}
	return svc, nil
}

// CreateEmbeddingService builds the configured embedder. It returns nil, nil
// when the settings are incomplete.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}
	build, ok := embedders[settings.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: embedding provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
	return build(settings)
}

// CreateReasoningService builds the configured reasoning service. It returns
// nil, nil when the settings are incomplete.
func CreateReasoningService(settings *domain.LLMSettings) (driven.ReasoningService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}
	build, ok := reasoners[settings.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: LLM provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
	return build(settings)
}

// CreateVectorIndex returns an empty index for backend; "" means flat.
func CreateVectorIndex(backend domain.IndexBackend) (driven.VectorIndex, error) {
	switch backend {
	case domain.IndexBackendFlat, "":
		return flat.New(), nil
	case domain.IndexBackendHNSW:
		return hnsw.New(), nil
	}
	return nil, fmt.Errorf("%w: index backend %q", domain.ErrUnsupportedType, backend)
}
