package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/lumen/internal/core/domain"
	"github.com/custodia-labs/lumen/internal/core/ports/driven"
)

var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator checks provider settings by building the adapter and
// pinging it. Unset providers are not an error; lumen runs retrieval-only
// without an LLM.
type ConfigValidator struct {
	timeout time.Duration
}

// NewConfigValidator creates a validator using the default ping timeout.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{timeout: pingTimeout}
}

// pinger is what both adapter kinds share for a connectivity check.
type pinger interface {
	Ping(ctx context.Context) error
	Close() error
}

// ValidateEmbedding pings the configured embedding provider.
func (v *ConfigValidator) ValidateEmbedding(cfg *domain.EmbeddingSettings) error {
	if cfg == nil {
		return nil
	}
	if err := requireKey(cfg.Provider, cfg.APIKey); err != nil {
		return err
	}
	svc, err := CreateEmbeddingService(cfg)
	if err != nil || svc == nil {
		return err
	}
	return v.ping(svc)
}

// ValidateLLM pings the configured reasoning service.
func (v *ConfigValidator) ValidateLLM(cfg *domain.LLMSettings) error {
	if cfg == nil {
		return nil
	}
	if err := requireKey(cfg.Provider, cfg.APIKey); err != nil {
		return err
	}
	svc, err := CreateReasoningService(cfg)
	if err != nil || svc == nil {
		return err
	}
	return v.ping(svc)
}

func (v *ConfigValidator) ping(svc pinger) error {
	defer svc.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()
	return svc.Ping(ctx)
}

// requireKey rejects a hosted provider chosen without credentials, which
// would otherwise pass as simply unconfigured.
func requireKey(p domain.AIProvider, key string) error {
	if p.IsValid() && p.RequiresAPIKey() && key == "" {
		return fmt.Errorf("%w: %s requires an API key", domain.ErrInvalidInput, p.Description())
	}
	return nil
}
