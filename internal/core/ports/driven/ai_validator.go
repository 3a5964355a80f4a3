package driven

import "github.com/custodia-labs/lumen/internal/core/domain"

// AIConfigValidator checks provider settings before they are saved. A nil or
// empty provider passes: lumen runs retrieval-only without an LLM and falls
// back to the hashing embedder.
type AIConfigValidator interface {
	// ValidateEmbedding builds the embedder described by cfg and pings it.
	ValidateEmbedding(cfg *domain.EmbeddingSettings) error

	// ValidateLLM builds the reasoning service described by cfg and pings it.
	ValidateLLM(cfg *domain.LLMSettings) error
}
