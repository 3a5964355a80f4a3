package driving

import "github.com/custodia-labs/lumen/internal/core/domain"

// SettingsService reads and changes the persisted configuration. Environment
// overrides are layered on by the caller and never pass through here.
type SettingsService interface {
	// Get returns the stored settings with defaults for anything unset.
	Get() (*domain.AppSettings, error)

	Save(settings *domain.AppSettings) error

	// Set parses value for a dotted key such as "index.top_k" and stores it.
	Set(key, value string) error

	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// Validate reports settings that would stop indexing or answering.
	Validate() error

	GetDefaults() domain.AppSettings

	// ValidateEmbeddingConfig and ValidateLLMConfig ping the configured
	// providers.
	ValidateEmbeddingConfig() error
	ValidateLLMConfig() error
}
