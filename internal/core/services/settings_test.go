package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lumen/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/lumen/internal/core/domain"
)

// mockAIValidator records which configs were validated.
type mockAIValidator struct {
	embeddingErr error
	llmErr       error
	embedding    *domain.EmbeddingSettings
	llm          *domain.LLMSettings
}

func (m *mockAIValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	m.embedding = config
	return m.embeddingErr
}

func (m *mockAIValidator) ValidateLLM(config *domain.LLMSettings) error {
	m.llm = config
	return m.llmErr
}

func TestNewSettingsService(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	require.NotNil(t, service)
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	settings, err := service.Get()

	require.NoError(t, err)
	require.NotNil(t, settings)
	assert.Equal(t, domain.DefaultAppSettings(), *settings)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("embedding.provider", "openai")
	_ = store.Set("embedding.model", "text-embedding-3-large")
	_ = store.Set("index.backend", "hnsw")
	_ = store.Set("index.relevance_floor", 0.4)
	_ = store.Set("orchestrator.max_tool_calls", 3)
	_ = store.Set("orchestrator.initial_backoff_ms", 100)
	_ = store.Set("orchestrator.request_timeout_s", 10)
	_ = store.Set("orchestrator.require_grounding", false)
	_ = store.Set("corpus.patterns", []string{"*.md", "*.txt"})

	service := NewSettingsService(store, nil)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-large", settings.Embedding.Model)
	assert.Equal(t, domain.IndexBackendHNSW, settings.Index.Backend)
	assert.InDelta(t, 0.4, settings.Index.RelevanceFloor, 1e-9)
	assert.Equal(t, 3, settings.Orchestrator.MaxToolCalls)
	assert.Equal(t, 100*time.Millisecond, settings.Orchestrator.InitialBackoff)
	assert.Equal(t, 10*time.Second, settings.Orchestrator.RequestTimeout)
	assert.False(t, settings.Orchestrator.RequireGrounding)
	assert.Equal(t, []string{"*.md", "*.txt"}, settings.Corpus.Patterns)
}

func TestSettingsService_Get_StoredZeroIsKept(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("orchestrator.max_retries", 0)
	_ = store.Set("orchestrator.requests_per_second", 0)

	settings, err := NewSettingsService(store, nil).Get()

	require.NoError(t, err)
	assert.Equal(t, 0, settings.Orchestrator.MaxRetries)
	assert.Zero(t, settings.Orchestrator.RequestsPerSecond)
}

func TestSettingsService_Get_WrongTypesReturnDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("index.top_k", "five")
	_ = store.Set("history.enabled", "yes")
	_ = store.Set("corpus.patterns", []any{"*.md", 3})

	settings, err := NewSettingsService(store, nil).Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Index.TopK, settings.Index.TopK)
	assert.Equal(t, defaults.History.Enabled, settings.History.Enabled)
	assert.Equal(t, defaults.Corpus.Patterns, settings.Corpus.Patterns)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("embedding.provider", "invalid_provider")
	_ = store.Set("index.backend", "annoy")

	service := NewSettingsService(store, nil)

	settings, err := service.Get()

	require.NoError(t, err)
	// Invalid values should fall back to defaults
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Embedding.Provider, settings.Embedding.Provider)
	assert.Equal(t, defaults.Index.Backend, settings.Index.Backend)
}

func TestSettingsService_Save(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	settings := domain.DefaultAppSettings()
	settings.Index.TopK = 7
	settings.LLM.Provider = domain.AIProviderOpenAI
	settings.LLM.Model = "gpt-4o"
	settings.LLM.APIKey = "sk-test"
	settings.Orchestrator.InitialBackoff = 500 * time.Millisecond

	require.NoError(t, service.Save(&settings))

	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, settings, *got)
}

func TestSettingsService_Save_EmptyAPIKeyNotWritten(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	settings := domain.DefaultAppSettings()
	require.NoError(t, service.Save(&settings))

	_, exists := store.Get("llm.api_key")
	assert.False(t, exists)
}

func TestSettingsService_Save_Invalid(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	settings := domain.DefaultAppSettings()
	settings.Index.TopK = 0

	err := service.Save(&settings)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, exists := store.Get("index.top_k")
	assert.False(t, exists, "nothing is written for invalid settings")
}

func TestSettingsService_Set(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		value  string
		check  func(t *testing.T, s *domain.AppSettings)
		stored any
	}{
		{
			name:  "integer",
			key:   "index.top_k",
			value: "8",
			check: func(t *testing.T, s *domain.AppSettings) {
				assert.Equal(t, 8, s.Index.TopK)
			},
			stored: 8,
		},
		{
			name:  "float",
			key:   "index.relevance_floor",
			value: "0.25",
			check: func(t *testing.T, s *domain.AppSettings) {
				assert.InDelta(t, 0.25, s.Index.RelevanceFloor, 1e-9)
			},
			stored: 0.25,
		},
		{
			name:  "bool",
			key:   "history.enabled",
			value: "false",
			check: func(t *testing.T, s *domain.AppSettings) {
				assert.False(t, s.History.Enabled)
			},
			stored: false,
		},
		{
			name:  "list",
			key:   "corpus.patterns",
			value: "*.md, *.txt ,",
			check: func(t *testing.T, s *domain.AppSettings) {
				assert.Equal(t, []string{"*.md", "*.txt"}, s.Corpus.Patterns)
			},
			stored: []string{"*.md", "*.txt"},
		},
		{
			name:  "duration in milliseconds",
			key:   "orchestrator.initial_backoff_ms",
			value: "750",
			check: func(t *testing.T, s *domain.AppSettings) {
				assert.Equal(t, 750*time.Millisecond, s.Orchestrator.InitialBackoff)
			},
			stored: 750,
		},
		{
			name:  "provider",
			key:   "llm.provider",
			value: "ollama",
			check: func(t *testing.T, s *domain.AppSettings) {
				assert.Equal(t, domain.AIProviderOllama, s.LLM.Provider)
			},
			stored: "ollama",
		},
		{
			name:  "value is trimmed",
			key:   "corpus.dir",
			value: "  notes  ",
			check: func(t *testing.T, s *domain.AppSettings) {
				assert.Equal(t, "notes", s.Corpus.Dir)
			},
			stored: "notes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewConfigStore()
			service := NewSettingsService(store, nil)

			require.NoError(t, service.Set(tt.key, tt.value))

			settings, err := service.Get()
			require.NoError(t, err)
			tt.check(t, settings)

			stored, exists := store.Get(tt.key)
			require.True(t, exists)
			assert.Equal(t, tt.stored, stored)
		})
	}
}

func TestSettingsService_Set_Errors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown key", "search.mode", "hybrid"},
		{"not an integer", "index.top_k", "many"},
		{"out of range", "index.top_k", "0"},
		{"not a number", "llm.temperature", "warm"},
		{"not a bool", "history.enabled", "maybe"},
		{"bad backend", "index.backend", "annoy"},
		{"anthropic cannot embed", "embedding.provider", "anthropic"},
		{"hash cannot reason", "llm.provider", "hash"},
		{"floor above one", "index.relevance_floor", "1.5"},
		{"empty patterns", "corpus.patterns", " , "},
		{"empty corpus dir", "corpus.dir", ""},
		{"non-positive max tokens", "llm.max_tokens", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewConfigStore()
			service := NewSettingsService(store, nil)

			err := service.Set(tt.key, tt.value)

			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			_, exists := store.Get(tt.key)
			assert.False(t, exists)
		})
	}
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	t.Run("ollama gets local base url and default model", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil)

		require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderOllama, "", ""))

		settings, err := service.Get()
		require.NoError(t, err)
		assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
		assert.Equal(t, "all-minilm", settings.Embedding.Model)
		assert.Equal(t, "http://localhost:11434", settings.Embedding.BaseURL)
	})

	t.Run("openai requires api key", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil)

		err := service.SetEmbeddingProvider(domain.AIProviderOpenAI, "", "")

		assert.Error(t, err)
	})

	t.Run("openai with key and explicit model", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil)

		require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderOpenAI, "text-embedding-3-large", "sk-test"))

		settings, err := service.Get()
		require.NoError(t, err)
		assert.Equal(t, "text-embedding-3-large", settings.Embedding.Model)
		assert.Equal(t, "sk-test", settings.Embedding.APIKey)
		assert.Empty(t, settings.Embedding.BaseURL)
	})

	t.Run("anthropic does not embed", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil)

		err := service.SetEmbeddingProvider(domain.AIProviderAnthropic, "", "key")

		assert.Error(t, err)
	})

	t.Run("invalid provider", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil)

		err := service.SetEmbeddingProvider(domain.AIProvider("cohere"), "", "")

		assert.Error(t, err)
	})
}

func TestSettingsService_SetLLMProvider(t *testing.T) {
	t.Run("anthropic with key", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil)

		require.NoError(t, service.SetLLMProvider(domain.AIProviderAnthropic, "", "sk-ant"))

		settings, err := service.Get()
		require.NoError(t, err)
		assert.Equal(t, domain.AIProviderAnthropic, settings.LLM.Provider)
		assert.Equal(t, domain.DefaultLLMModels()[domain.AIProviderAnthropic], settings.LLM.Model)
		assert.Equal(t, "sk-ant", settings.LLM.APIKey)
	})

	t.Run("ollama needs no key", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil)

		require.NoError(t, service.SetLLMProvider(domain.AIProviderOllama, "qwen2.5", ""))

		settings, err := service.Get()
		require.NoError(t, err)
		assert.Equal(t, "qwen2.5", settings.LLM.Model)
		assert.Equal(t, "http://localhost:11434", settings.LLM.BaseURL)
	})

	t.Run("missing key", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil)

		assert.Error(t, service.SetLLMProvider(domain.AIProviderOpenAI, "", ""))
	})

	t.Run("hash cannot reason", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil)

		assert.Error(t, service.SetLLMProvider(domain.AIProviderHash, "", ""))
	})
}

func TestSettingsService_Validate(t *testing.T) {
	t.Run("defaults lack an llm key", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil)

		err := service.Validate()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
	})

	t.Run("configured", func(t *testing.T) {
		store := memory.NewConfigStore()
		_ = store.Set("llm.api_key", "sk-ant")
		service := NewSettingsService(store, nil)

		assert.NoError(t, service.Validate())
	})
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	assert.Equal(t, domain.DefaultAppSettings(), service.GetDefaults())
}

func TestSettingsService_ValidateConfigs(t *testing.T) {
	t.Run("nil validator is a no-op", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil)

		assert.NoError(t, service.ValidateEmbeddingConfig())
		assert.NoError(t, service.ValidateLLMConfig())
	})

	t.Run("delegates current settings", func(t *testing.T) {
		validator := &mockAIValidator{llmErr: errors.New("unreachable")}
		service := NewSettingsService(memory.NewConfigStore(), validator)

		require.NoError(t, service.ValidateEmbeddingConfig())
		require.NotNil(t, validator.embedding)
		assert.Equal(t, domain.AIProviderHash, validator.embedding.Provider)

		err := service.ValidateLLMConfig()
		assert.EqualError(t, err, "unreachable")
		require.NotNil(t, validator.llm)
		assert.Equal(t, domain.AIProviderAnthropic, validator.llm.Provider)
	})
}

func TestSettingKeys(t *testing.T) {
	keys := SettingKeys()

	assert.IsIncreasing(t, keys)
	assert.Contains(t, keys, "orchestrator.max_tool_calls")
	assert.Contains(t, keys, "llm.api_key")
}

func TestIsSecretKey(t *testing.T) {
	assert.True(t, IsSecretKey("llm.api_key"))
	assert.True(t, IsSecretKey("embedding.api_key"))
	assert.False(t, IsSecretKey("llm.model"))
}
