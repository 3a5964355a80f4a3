package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider names a backend for embeddings, reasoning or both.
type AIProvider string

const (
	AIProviderHash      AIProvider = "hash" // built-in, offline
	AIProviderOllama    AIProvider = "ollama"
	AIProviderOpenAI    AIProvider = "openai"
	AIProviderAnthropic AIProvider = "anthropic"
)

// providerInfo records what a provider can do. Order in providerTable is the
// order the settings wizard offers them in.
type providerInfo struct {
	id          AIProvider
	description string
	local       bool
	embedModel  string // empty: cannot embed
	llmModel    string // empty: cannot reason
}

var providerTable = []providerInfo{
	{AIProviderHash, "Hashing (built-in, offline)", true, "fnv-hash-384", ""},
	{AIProviderAnthropic, "Anthropic (cloud)", false, "", "claude-3-5-haiku-latest"},
	{AIProviderOpenAI, "OpenAI (cloud)", false, "text-embedding-3-small", "gpt-4o-mini"},
	{AIProviderOllama, "Ollama (local)", true, "all-minilm", "llama3.2"},
}

func (p AIProvider) info() (providerInfo, bool) {
	for _, pi := range providerTable {
		if pi.id == p {
			return pi, true
		}
	}
	return providerInfo{}, false
}

// IsValid reports whether p is a known provider.
func (p AIProvider) IsValid() bool {
	_, ok := p.info()
	return ok
}

// RequiresAPIKey is true for hosted providers.
func (p AIProvider) RequiresAPIKey() bool {
	pi, ok := p.info()
	return ok && !pi.local
}

// IsLocal is true for providers that run on this machine.
func (p AIProvider) IsLocal() bool {
	pi, ok := p.info()
	return ok && pi.local
}

// CanEmbed reports whether p offers an embedding model.
func (p AIProvider) CanEmbed() bool {
	pi, ok := p.info()
	return ok && pi.embedModel != ""
}

// CanReason reports whether p offers a tool-calling chat model.
func (p AIProvider) CanReason() bool {
	pi, ok := p.info()
	return ok && pi.llmModel != ""
}

func (p AIProvider) String() string {
	return string(p)
}

// Description is the label shown in settings output.
func (p AIProvider) Description() string {
	if pi, ok := p.info(); ok {
		return pi.description
	}
	return unknownDescription
}

// IndexBackend selects the vector index implementation.
type IndexBackend string

// Available index backends.
const (
	// IndexBackendFlat scans every vector. Exact.
	IndexBackendFlat IndexBackend = "flat"

	// IndexBackendHNSW uses an HNSW graph for candidates, rescored exactly.
	IndexBackendHNSW IndexBackend = "hnsw"
)

// IsValid returns true if the backend is recognised.
func (b IndexBackend) IsValid() bool {
	return b == IndexBackendFlat || b == IndexBackendHNSW
}

// String returns the string representation.
func (b IndexBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b IndexBackend) Description() string {
	switch b {
	case IndexBackendFlat:
		return "Flat (exhaustive, exact)"
	case IndexBackendHNSW:
		return "HNSW (graph candidates, exact rescoring)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the vector size for the hashing embedder.
	Dimensions int
}

// IsConfigured reports whether the embedder can be built as set.
func (e EmbeddingSettings) IsConfigured() bool {
	return e.Provider.CanEmbed() && (!e.Provider.RequiresAPIKey() || e.APIKey != "")
}

// LLMSettings holds reasoning service configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// MaxTokens caps each response.
	MaxTokens int

	// Temperature controls sampling.
	Temperature float64
}

// IsConfigured reports whether the reasoning service can be built as set.
func (l LLMSettings) IsConfigured() bool {
	return l.Provider.CanReason() && (!l.Provider.RequiresAPIKey() || l.APIKey != "")
}

// IndexSettings holds chunking and retrieval configuration.
type IndexSettings struct {
	Backend        IndexBackend
	TopK           int
	RelevanceFloor float64
	MinChunkLength int
	ContextChars   int
}

// OrchestratorSettings bounds the tool-calling loop.
type OrchestratorSettings struct {
	// MaxToolCalls is the maximum number of tool executions per query.
	MaxToolCalls int

	// MaxRetries is the number of retries after a failed round trip.
	MaxRetries int

	// InitialBackoff is the first retry delay.
	InitialBackoff time.Duration

	// RequestTimeout bounds a single round trip.
	RequestTimeout time.Duration

	// RequestsPerSecond limits outbound calls to the reasoning service.
	RequestsPerSecond float64

	// RequireGrounding replaces answers with the no-content message when
	// retrieval found nothing relevant.
	RequireGrounding bool
}

// CorpusSettings locates the course material.
type CorpusSettings struct {
	// Dir is the directory holding the lecture files.
	Dir string

	// Patterns are glob patterns matched against file names.
	Patterns []string
}

// HistorySettings controls query history persistence.
type HistorySettings struct {
	Enabled bool
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding    EmbeddingSettings
	LLM          LLMSettings
	Index        IndexSettings
	Orchestrator OrchestratorSettings
	Corpus       CorpusSettings
	History      HistorySettings
}

// Validate checks that numeric settings are in range.
func (s AppSettings) Validate() error {
	switch {
	case !s.Index.Backend.IsValid():
		return fmt.Errorf("%w: unknown index backend %q", ErrInvalidInput, s.Index.Backend)
	case s.Index.TopK < 1:
		return fmt.Errorf("%w: index.top_k must be at least 1", ErrInvalidInput)
	case s.Index.RelevanceFloor < -1 || s.Index.RelevanceFloor > 1:
		return fmt.Errorf("%w: index.relevance_floor must be within [-1, 1]", ErrInvalidInput)
	case s.Index.MinChunkLength < 0:
		return fmt.Errorf("%w: index.min_chunk_length must not be negative", ErrInvalidInput)
	case s.Orchestrator.MaxToolCalls < 1:
		return fmt.Errorf("%w: orchestrator.max_tool_calls must be at least 1", ErrInvalidInput)
	case s.Orchestrator.MaxRetries < 0:
		return fmt.Errorf("%w: orchestrator.max_retries must not be negative", ErrInvalidInput)
	case s.Embedding.Provider == AIProviderHash && s.Embedding.Dimensions < 8:
		return fmt.Errorf("%w: embedding.dimensions must be at least 8", ErrInvalidInput)
	}
	return nil
}

// DefaultAppSettings returns settings with sensible defaults.
// The built-in hashing embedder works offline; the LLM needs an API key.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider:   AIProviderHash,
			Model:      DefaultEmbeddingModels()[AIProviderHash],
			Dimensions: 384,
		},
		LLM: LLMSettings{
			Provider:    AIProviderAnthropic,
			Model:       DefaultLLMModels()[AIProviderAnthropic],
			MaxTokens:   300,
			Temperature: 0,
		},
		Index: IndexSettings{
			Backend:        IndexBackendFlat,
			TopK:           DefaultTopK,
			RelevanceFloor: DefaultRelevanceFloor,
			MinChunkLength: DefaultMinChunkLength,
			ContextChars:   DefaultContextChars,
		},
		Orchestrator: OrchestratorSettings{
			MaxToolCalls:      5,
			MaxRetries:        2,
			InitialBackoff:    250 * time.Millisecond,
			RequestTimeout:    30 * time.Second,
			RequestsPerSecond: 2,
			RequireGrounding:  true,
		},
		Corpus: CorpusSettings{
			Dir:      "Lecture",
			Patterns: []string{"*.md"},
		},
		History: HistorySettings{Enabled: true},
	}
}

// AllEmbeddingProviders lists providers with an embedding model.
func AllEmbeddingProviders() []AIProvider {
	var out []AIProvider
	for _, pi := range providerTable {
		if pi.embedModel != "" {
			out = append(out, pi.id)
		}
	}
	return out
}

// AllLLMProviders lists providers with a tool-calling model.
func AllLLMProviders() []AIProvider {
	var out []AIProvider
	for _, pi := range providerTable {
		if pi.llmModel != "" {
			out = append(out, pi.id)
		}
	}
	return out
}

// DefaultEmbeddingModels maps each embedding provider to its default model.
func DefaultEmbeddingModels() map[AIProvider]string {
	m := make(map[AIProvider]string)
	for _, pi := range providerTable {
		if pi.embedModel != "" {
			m[pi.id] = pi.embedModel
		}
	}
	return m
}

// DefaultLLMModels maps each reasoning provider to its default model.
func DefaultLLMModels() map[AIProvider]string {
	m := make(map[AIProvider]string)
	for _, pi := range providerTable {
		if pi.llmModel != "" {
			m[pi.id] = pi.llmModel
		}
	}
	return m
}
