package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/lumen/internal/core/domain"
	"github.com/custodia-labs/lumen/internal/core/ports/driven"
	"github.com/custodia-labs/lumen/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyCorpusDir      = "corpus.dir"
	keyCorpusPatterns = "corpus.patterns"

	keyEmbedProvider = "embedding.provider"
	keyEmbedModel    = "embedding.model"
	keyEmbedBaseURL  = "embedding.base_url"
	keyEmbedAPIKey   = "embedding.api_key"
	keyEmbedDims     = "embedding.dimensions"

	keyLLMProvider    = "llm.provider"
	keyLLMModel       = "llm.model"
	keyLLMBaseURL     = "llm.base_url"
	keyLLMAPIKey      = "llm.api_key"
	keyLLMMaxTokens   = "llm.max_tokens"
	keyLLMTemperature = "llm.temperature"

	keyIndexBackend   = "index.backend"
	keyIndexTopK      = "index.top_k"
	keyIndexFloor     = "index.relevance_floor"
	keyIndexMinLength = "index.min_chunk_length"
	keyIndexContext   = "index.context_chars"

	keyOrchMaxToolCalls = "orchestrator.max_tool_calls"
	keyOrchMaxRetries   = "orchestrator.max_retries"
	keyOrchBackoffMS    = "orchestrator.initial_backoff_ms"
	keyOrchTimeoutS     = "orchestrator.request_timeout_s"
	keyOrchRPS          = "orchestrator.requests_per_second"
	keyOrchGrounding    = "orchestrator.require_grounding"

	keyHistoryEnabled = "history.enabled"
)

// localBaseURL is the default endpoint of a local Ollama instance.
const localBaseURL = "http://localhost:11434"

// SettingKeys returns every key accepted by Set, sorted.
func SettingKeys() []string {
	keys := []string{
		keyCorpusDir, keyCorpusPatterns,
		keyEmbedProvider, keyEmbedModel, keyEmbedBaseURL, keyEmbedAPIKey, keyEmbedDims,
		keyLLMProvider, keyLLMModel, keyLLMBaseURL, keyLLMAPIKey, keyLLMMaxTokens, keyLLMTemperature,
		keyIndexBackend, keyIndexTopK, keyIndexFloor, keyIndexMinLength, keyIndexContext,
		keyOrchMaxToolCalls, keyOrchMaxRetries, keyOrchBackoffMS, keyOrchTimeoutS, keyOrchRPS, keyOrchGrounding,
		keyHistoryEnabled,
	}
	sort.Strings(keys)
	return keys
}

// IsSecretKey reports whether the key holds a credential that must not be printed.
func IsSecretKey(key string) bool {
	return strings.HasSuffix(key, ".api_key")
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
// Missing or invalid stored values fall back to defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Corpus: domain.CorpusSettings{
			Dir:      s.getString(keyCorpusDir, defaults.Corpus.Dir),
			Patterns: s.getStringSlice(keyCorpusPatterns, defaults.Corpus.Patterns),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:      s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:    s.getString(keyEmbedBaseURL, ""), // empty is valid for cloud providers
			APIKey:     s.getString(keyEmbedAPIKey, ""),
			Dimensions: s.getInt(keyEmbedDims, defaults.Embedding.Dimensions),
		},
		LLM: domain.LLMSettings{
			Provider:    s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:       s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:     s.getString(keyLLMBaseURL, ""),
			APIKey:      s.getString(keyLLMAPIKey, ""),
			MaxTokens:   s.getInt(keyLLMMaxTokens, defaults.LLM.MaxTokens),
			Temperature: s.getFloat(keyLLMTemperature, defaults.LLM.Temperature),
		},
		Index: domain.IndexSettings{
			Backend:        s.getBackend(defaults.Index.Backend),
			TopK:           s.getInt(keyIndexTopK, defaults.Index.TopK),
			RelevanceFloor: s.getFloat(keyIndexFloor, defaults.Index.RelevanceFloor),
			MinChunkLength: s.getInt(keyIndexMinLength, defaults.Index.MinChunkLength),
			ContextChars:   s.getInt(keyIndexContext, defaults.Index.ContextChars),
		},
		Orchestrator: domain.OrchestratorSettings{
			MaxToolCalls:      s.getInt(keyOrchMaxToolCalls, defaults.Orchestrator.MaxToolCalls),
			MaxRetries:        s.getInt(keyOrchMaxRetries, defaults.Orchestrator.MaxRetries),
			InitialBackoff:    s.getDuration(keyOrchBackoffMS, time.Millisecond, defaults.Orchestrator.InitialBackoff),
			RequestTimeout:    s.getDuration(keyOrchTimeoutS, time.Second, defaults.Orchestrator.RequestTimeout),
			RequestsPerSecond: s.getFloat(keyOrchRPS, defaults.Orchestrator.RequestsPerSecond),
			RequireGrounding:  s.getBool(keyOrchGrounding, defaults.Orchestrator.RequireGrounding),
		},
		History: domain.HistorySettings{
			Enabled: s.getBool(keyHistoryEnabled, defaults.History.Enabled),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	values := map[string]any{
		keyCorpusDir:        settings.Corpus.Dir,
		keyCorpusPatterns:   settings.Corpus.Patterns,
		keyEmbedProvider:    settings.Embedding.Provider.String(),
		keyEmbedModel:       settings.Embedding.Model,
		keyEmbedBaseURL:     settings.Embedding.BaseURL,
		keyEmbedDims:        settings.Embedding.Dimensions,
		keyLLMProvider:      settings.LLM.Provider.String(),
		keyLLMModel:         settings.LLM.Model,
		keyLLMBaseURL:       settings.LLM.BaseURL,
		keyLLMMaxTokens:     settings.LLM.MaxTokens,
		keyLLMTemperature:   settings.LLM.Temperature,
		keyIndexBackend:     settings.Index.Backend.String(),
		keyIndexTopK:        settings.Index.TopK,
		keyIndexFloor:       settings.Index.RelevanceFloor,
		keyIndexMinLength:   settings.Index.MinChunkLength,
		keyIndexContext:     settings.Index.ContextChars,
		keyOrchMaxToolCalls: settings.Orchestrator.MaxToolCalls,
		keyOrchMaxRetries:   settings.Orchestrator.MaxRetries,
		keyOrchBackoffMS:    int(settings.Orchestrator.InitialBackoff / time.Millisecond),
		keyOrchTimeoutS:     int(settings.Orchestrator.RequestTimeout / time.Second),
		keyOrchRPS:          settings.Orchestrator.RequestsPerSecond,
		keyOrchGrounding:    settings.Orchestrator.RequireGrounding,
		keyHistoryEnabled:   settings.History.Enabled,
	}

	// API keys are only written when present so env-provided keys are not persisted as blanks.
	if settings.Embedding.APIKey != "" {
		values[keyEmbedAPIKey] = settings.Embedding.APIKey
	}
	if settings.LLM.APIKey != "" {
		values[keyLLMAPIKey] = settings.LLM.APIKey
	}

	if err := s.configStore.SetAll(values); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// Set updates a single setting. The value is parsed for the key's type and
// the resulting settings must validate before anything is stored.
func (s *SettingsService) Set(key, value string) error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	stored, err := applySetting(settings, key, strings.TrimSpace(value))
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	if err := s.configStore.Set(key, stored); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// applySetting parses value into settings and returns the value to store.
//
//nolint:gocyclo // One case per setting key.
func applySetting(settings *domain.AppSettings, key, value string) (any, error) {
	switch key {
	case keyCorpusDir:
		if value == "" {
			return nil, fmt.Errorf("%w: %s must not be empty", domain.ErrInvalidInput, key)
		}
		settings.Corpus.Dir = value
		return value, nil
	case keyCorpusPatterns:
		patterns := splitList(value)
		if len(patterns) == 0 {
			return nil, fmt.Errorf("%w: %s needs at least one pattern", domain.ErrInvalidInput, key)
		}
		settings.Corpus.Patterns = patterns
		return patterns, nil

	case keyEmbedProvider:
		p := domain.AIProvider(value)
		if !p.CanEmbed() {
			return nil, fmt.Errorf("%w: embedding provider %q", domain.ErrInvalidInput, value)
		}
		settings.Embedding.Provider = p
		return value, nil
	case keyEmbedModel:
		settings.Embedding.Model = value
		return value, nil
	case keyEmbedBaseURL:
		settings.Embedding.BaseURL = value
		return value, nil
	case keyEmbedAPIKey:
		settings.Embedding.APIKey = value
		return value, nil
	case keyEmbedDims:
		n, err := parseInt(key, value)
		settings.Embedding.Dimensions = n
		return n, err

	case keyLLMProvider:
		p := domain.AIProvider(value)
		if !p.CanReason() {
			return nil, fmt.Errorf("%w: llm provider %q", domain.ErrInvalidInput, value)
		}
		settings.LLM.Provider = p
		return value, nil
	case keyLLMModel:
		settings.LLM.Model = value
		return value, nil
	case keyLLMBaseURL:
		settings.LLM.BaseURL = value
		return value, nil
	case keyLLMAPIKey:
		settings.LLM.APIKey = value
		return value, nil
	case keyLLMMaxTokens:
		n, err := parseInt(key, value)
		if err == nil && n < 1 {
			err = fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, key)
		}
		settings.LLM.MaxTokens = n
		return n, err
	case keyLLMTemperature:
		f, err := parseFloat(key, value)
		settings.LLM.Temperature = f
		return f, err

	case keyIndexBackend:
		b := domain.IndexBackend(value)
		settings.Index.Backend = b
		return value, nil
	case keyIndexTopK:
		n, err := parseInt(key, value)
		settings.Index.TopK = n
		return n, err
	case keyIndexFloor:
		f, err := parseFloat(key, value)
		settings.Index.RelevanceFloor = f
		return f, err
	case keyIndexMinLength:
		n, err := parseInt(key, value)
		settings.Index.MinChunkLength = n
		return n, err
	case keyIndexContext:
		n, err := parseInt(key, value)
		settings.Index.ContextChars = n
		return n, err

	case keyOrchMaxToolCalls:
		n, err := parseInt(key, value)
		settings.Orchestrator.MaxToolCalls = n
		return n, err
	case keyOrchMaxRetries:
		n, err := parseInt(key, value)
		settings.Orchestrator.MaxRetries = n
		return n, err
	case keyOrchBackoffMS:
		n, err := parseInt(key, value)
		settings.Orchestrator.InitialBackoff = time.Duration(n) * time.Millisecond
		return n, err
	case keyOrchTimeoutS:
		n, err := parseInt(key, value)
		settings.Orchestrator.RequestTimeout = time.Duration(n) * time.Second
		return n, err
	case keyOrchRPS:
		f, err := parseFloat(key, value)
		settings.Orchestrator.RequestsPerSecond = f
		return f, err
	case keyOrchGrounding:
		b, err := parseBool(key, value)
		settings.Orchestrator.RequireGrounding = b
		return b, err

	case keyHistoryEnabled:
		b, err := parseBool(key, value)
		settings.History.Enabled = b
		return b, err
	}

	return nil, fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
}

// SetEmbeddingProvider switches the embedder. An empty model selects the
// provider's default.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.CanEmbed() {
		return fmt.Errorf("%w: %q cannot embed text", domain.ErrInvalidInput, provider)
	}
	settings, err := s.withProvider(provider, apiKey)
	if err != nil {
		return err
	}
	e := &settings.Embedding
	e.Provider, e.APIKey = provider, apiKey
	e.Model = pick(model, domain.DefaultEmbeddingModels()[provider])
	e.BaseURL = providerBaseURL(provider, e.BaseURL)
	return s.Save(settings)
}

// SetLLMProvider switches the reasoning service. An empty model selects the
// provider's default.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.CanReason() {
		return fmt.Errorf("%w: %q cannot answer questions", domain.ErrInvalidInput, provider)
	}
	settings, err := s.withProvider(provider, apiKey)
	if err != nil {
		return err
	}
	l := &settings.LLM
	l.Provider, l.APIKey = provider, apiKey
	l.Model = pick(model, domain.DefaultLLMModels()[provider])
	l.BaseURL = providerBaseURL(provider, l.BaseURL)
	return s.Save(settings)
}

// withProvider checks the key requirement and loads the settings to change.
func (s *SettingsService) withProvider(provider domain.AIProvider, apiKey string) (*domain.AppSettings, error) {
	if provider.RequiresAPIKey() && apiKey == "" {
		return nil, fmt.Errorf("%w: %s requires an API key", domain.ErrInvalidInput, provider.Description())
	}
	return s.Get()
}

// providerBaseURL keeps a custom Ollama endpoint and clears it otherwise.
func providerBaseURL(p domain.AIProvider, current string) string {
	if p != domain.AIProviderOllama {
		return ""
	}
	return pick(current, localBaseURL)
}

func pick(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

// Validate checks that the current settings are usable for answering queries.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if err := settings.Validate(); err != nil {
		return err
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("embedding provider %q is not configured", settings.Embedding.Provider.Description())
	}
	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("LLM provider %q is not configured (set llm.api_key or %s)",
			settings.LLM.Provider.Description(), apiKeyEnvHint(settings.LLM.Provider))
	}
	return nil
}

func apiKeyEnvHint(p domain.AIProvider) string {
	switch p {
	case domain.AIProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case domain.AIProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return "LUMEN_LLM_API_KEY"
	}
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Readers with defaults. A missing key or a value of the wrong type yields
// the default; a stored zero is kept.

func (s *SettingsService) getString(key, defaultVal string) string {
	raw, _ := s.configStore.Get(key)
	if v, ok := asString(raw); ok && v != "" {
		return v
	}
	return defaultVal
}

func (s *SettingsService) getStringSlice(key string, defaultVal []string) []string {
	raw, _ := s.configStore.Get(key)
	if v, ok := asStrings(raw); ok && len(v) > 0 {
		return v
	}
	return append([]string(nil), defaultVal...)
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	raw, _ := s.configStore.Get(key)
	if v, ok := asInt(raw); ok {
		return v
	}
	return defaultVal
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	raw, _ := s.configStore.Get(key)
	if v, ok := asFloat(raw); ok {
		return v
	}
	return defaultVal
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	raw, _ := s.configStore.Get(key)
	if v, ok := asBool(raw); ok {
		return v
	}
	return defaultVal
}

func (s *SettingsService) getDuration(key string, unit, defaultVal time.Duration) time.Duration {
	raw, _ := s.configStore.Get(key)
	if v, ok := asInt(raw); ok {
		return time.Duration(v) * unit
	}
	return defaultVal
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.getString(key, ""))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.IndexBackend) domain.IndexBackend {
	backend := domain.IndexBackend(s.getString(keyIndexBackend, ""))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

// Parsers for Set.

func parseInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, key)
	}
	return n, nil
}

func parseFloat(key, value string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", domain.ErrInvalidInput, key)
	}
	return f, nil
}

func parseBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidInput, key)
	}
	return b, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
