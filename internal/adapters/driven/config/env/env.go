// Package env reads environment overrides for lumen settings.
//
// Values come from the process environment, optionally seeded from a .env
// file. Variables use the LUMEN_ prefix (LUMEN_LLM_PROVIDER, LUMEN_CORPUS_DIR,
// ...). Provider API keys also fall back to the conventional
// ANTHROPIC_API_KEY and OPENAI_API_KEY variables.
//
// Overrides apply to the loaded settings only; they are never written back
// to the config file.
package env

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/custodia-labs/lumen/internal/core/domain"
)

// Prefix is the environment variable prefix.
const Prefix = "LUMEN"

// Overrides holds settings read from the environment. Nil or empty fields
// leave the file value in place.
type Overrides struct {
	// ConfigDir replaces ~/.lumen as the home of config, prompts and data.
	ConfigDir string `envconfig:"CONFIG_DIR"`
	Verbose   bool   `envconfig:"VERBOSE"`

	CorpusDir string `envconfig:"CORPUS_DIR"`

	EmbeddingProvider string `envconfig:"EMBEDDING_PROVIDER"`
	EmbeddingModel    string `envconfig:"EMBEDDING_MODEL"`
	EmbeddingBaseURL  string `envconfig:"EMBEDDING_BASE_URL"`
	EmbeddingAPIKey   string `envconfig:"EMBEDDING_API_KEY"`

	LLMProvider string   `envconfig:"LLM_PROVIDER"`
	LLMModel    string   `envconfig:"LLM_MODEL"`
	LLMBaseURL  string   `envconfig:"LLM_BASE_URL"`
	LLMAPIKey   string   `envconfig:"LLM_API_KEY"`
	MaxTokens   *int     `envconfig:"LLM_MAX_TOKENS"`
	Temperature *float64 `envconfig:"LLM_TEMPERATURE"`

	IndexBackend   string   `envconfig:"INDEX_BACKEND"`
	TopK           *int     `envconfig:"INDEX_TOP_K"`
	RelevanceFloor *float64 `envconfig:"INDEX_RELEVANCE_FLOOR"`

	MaxToolCalls      *int           `envconfig:"MAX_TOOL_CALLS"`
	MaxRetries        *int           `envconfig:"MAX_RETRIES"`
	RequestTimeout    *time.Duration `envconfig:"REQUEST_TIMEOUT"`
	RequestsPerSecond *float64       `envconfig:"REQUESTS_PER_SECOND"`

	HistoryEnabled *bool `envconfig:"HISTORY_ENABLED"`

	// Provider keys read without the prefix.
	AnthropicAPIKey string `ignored:"true"`
	OpenAIAPIKey    string `ignored:"true"`
}

// providerKeys are the conventional, unprefixed key variables.
type providerKeys struct {
	Anthropic string `envconfig:"ANTHROPIC_API_KEY"`
	OpenAI    string `envconfig:"OPENAI_API_KEY"`
}

// Load reads a .env file (if present) and then the environment.
// Variables already set in the environment win over the .env file.
// With no paths, .env in the working directory is tried.
func Load(dotenvPaths ...string) (*Overrides, error) {
	if err := godotenv.Load(dotenvPaths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv reads overrides from the process environment only.
func FromEnv() (*Overrides, error) {
	var o Overrides
	if err := envconfig.Process(Prefix, &o); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	var keys providerKeys
	if err := envconfig.Process("", &keys); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	o.AnthropicAPIKey = keys.Anthropic
	o.OpenAIAPIKey = keys.OpenAI

	return &o, nil
}

// Apply layers the overrides onto settings.
//
//nolint:gocyclo // One branch per override.
func (o *Overrides) Apply(s *domain.AppSettings) {
	setString(&s.Corpus.Dir, o.CorpusDir)

	if o.EmbeddingProvider != "" {
		s.Embedding.Provider = domain.AIProvider(o.EmbeddingProvider)
	}
	setString(&s.Embedding.Model, o.EmbeddingModel)
	setString(&s.Embedding.BaseURL, o.EmbeddingBaseURL)
	setString(&s.Embedding.APIKey, o.EmbeddingAPIKey)

	if o.LLMProvider != "" {
		s.LLM.Provider = domain.AIProvider(o.LLMProvider)
	}
	setString(&s.LLM.Model, o.LLMModel)
	setString(&s.LLM.BaseURL, o.LLMBaseURL)
	setString(&s.LLM.APIKey, o.LLMAPIKey)
	if o.MaxTokens != nil {
		s.LLM.MaxTokens = *o.MaxTokens
	}
	if o.Temperature != nil {
		s.LLM.Temperature = *o.Temperature
	}

	if o.IndexBackend != "" {
		s.Index.Backend = domain.IndexBackend(o.IndexBackend)
	}
	if o.TopK != nil {
		s.Index.TopK = *o.TopK
	}
	if o.RelevanceFloor != nil {
		s.Index.RelevanceFloor = *o.RelevanceFloor
	}

	if o.MaxToolCalls != nil {
		s.Orchestrator.MaxToolCalls = *o.MaxToolCalls
	}
	if o.MaxRetries != nil {
		s.Orchestrator.MaxRetries = *o.MaxRetries
	}
	if o.RequestTimeout != nil {
		s.Orchestrator.RequestTimeout = *o.RequestTimeout
	}
	if o.RequestsPerSecond != nil {
		s.Orchestrator.RequestsPerSecond = *o.RequestsPerSecond
	}

	if o.HistoryEnabled != nil {
		s.History.Enabled = *o.HistoryEnabled
	}

	// Conventional provider keys only fill gaps.
	if s.LLM.APIKey == "" {
		s.LLM.APIKey = o.providerKey(s.LLM.Provider)
	}
	if s.Embedding.APIKey == "" {
		s.Embedding.APIKey = o.providerKey(s.Embedding.Provider)
	}
}

func (o *Overrides) providerKey(p domain.AIProvider) string {
	switch p {
	case domain.AIProviderAnthropic:
		return o.AnthropicAPIKey
	case domain.AIProviderOpenAI:
		return o.OpenAIAPIKey
	default:
		return ""
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
