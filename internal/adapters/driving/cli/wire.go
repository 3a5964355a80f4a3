package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/lumen/internal/adapters/driven/ai"
	"github.com/custodia-labs/lumen/internal/adapters/driven/config/env"
	"github.com/custodia-labs/lumen/internal/adapters/driven/config/file"
	"github.com/custodia-labs/lumen/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/lumen/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/lumen/internal/connectors/filesystem"
	"github.com/custodia-labs/lumen/internal/core/domain"
	"github.com/custodia-labs/lumen/internal/core/ports/driven"
	"github.com/custodia-labs/lumen/internal/core/services"
	"github.com/custodia-labs/lumen/internal/logger"
	"github.com/custodia-labs/lumen/internal/postprocessors"
	"github.com/custodia-labs/lumen/internal/tools/astronomy"
	"github.com/custodia-labs/lumen/internal/tools/retrieval"
)

var (
	homeDir      string
	configPath   string
	envOverrides *env.Overrides

	historyStore  driven.HistoryStore
	historyOpened bool

	closers []func()
)

// ensureSettings wires the settings service from the config directory and
// the environment.
func ensureSettings() error {
	if settingsService != nil {
		return nil
	}

	o, err := env.Load(".env")
	if err != nil {
		return err
	}
	envOverrides = o
	if o.Verbose {
		logger.SetVerbose(true)
	}

	homeDir = o.ConfigDir
	if homeDir == "" {
		if homeDir, err = file.DefaultDir(); err != nil {
			return err
		}
	}

	var store driven.ConfigStore
	if ephemeral {
		store = memory.NewConfigStore()
		configPath = "(in memory)"
	} else {
		fileStore, err := file.NewConfigStore(homeDir)
		if err != nil {
			return fmt.Errorf("open config: %w", err)
		}
		store = fileStore
		configPath = fileStore.Path()
	}

	settingsService = services.NewSettingsService(store, ai.NewConfigValidator())
	return nil
}

// effectiveSettings returns the stored settings with environment overrides
// applied. Overrides are never persisted.
func effectiveSettings() (*domain.AppSettings, error) {
	if err := ensureSettings(); err != nil {
		return nil, err
	}
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if envOverrides != nil {
		envOverrides.Apply(settings)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// openHistory opens the history store once. It returns nil when history is
// disabled.
func openHistory(settings *domain.AppSettings) (driven.HistoryStore, error) {
	if historyOpened {
		return historyStore, nil
	}
	historyOpened = true

	switch {
	case !settings.History.Enabled:
		logger.Debug("Query history disabled")
	case ephemeral:
		historyStore = memory.NewHistoryStore(memory.DefaultHistoryCapacity)
	default:
		store, err := sqlite.NewStore(filepath.Join(homeDir, "data"))
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		closers = append(closers, func() { store.Close() }) //nolint:errcheck
		historyStore = store.HistoryStore()
	}
	return historyStore, nil
}

// ensureHistory wires the history service without building the engine.
func ensureHistory() error {
	if historyService != nil {
		return nil
	}
	settings, err := effectiveSettings()
	if err != nil {
		return err
	}
	store, err := openHistory(settings)
	if err != nil {
		return err
	}
	historyService = services.NewHistoryService(store)
	return nil
}

// ensureEngine wires the index, ingestion, tools and orchestrator.
// The answer service stays nil when no reasoning service is configured.
func ensureEngine() error {
	if indexService != nil && toolRegistry != nil {
		return nil
	}

	settings, err := effectiveSettings()
	if err != nil {
		return err
	}

	logger.Section("Initialisation")
	res, err := ai.Init(settings)
	if err != nil {
		return err
	}
	closers = append(closers, res.Close)
	for _, w := range res.Warnings {
		logger.Warn("%s", w)
	}

	index := services.NewIndexService(res.EmbeddingService, res.VectorIndex, settings.Index.RelevanceFloor)

	chunker, err := postprocessors.NewDefault(settings.Index.MinChunkLength)
	if err != nil {
		return fmt.Errorf("create chunker: %w", err)
	}
	loader := filesystem.New(settings.Corpus.Dir, settings.Corpus.Patterns)
	ingest := services.NewIngestService(loader, chunker, index)

	registry := services.NewToolRegistry()
	tools := append(astronomy.Tools(), retrieval.SearchTool(index, retrieval.Config{
		TopK:         settings.Index.TopK,
		ContextChars: settings.Index.ContextChars,
	}))
	for _, tool := range tools {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}

	history, err := openHistory(settings)
	if err != nil {
		return err
	}

	if res.ReasoningService != nil {
		orchestrator := services.NewOrchestratorService(
			res.ReasoningService, registry, services.OrchestratorConfigFromSettings(*settings))
		if !ephemeral {
			prompts, err := file.NewPromptStore(filepath.Join(homeDir, "prompts"))
			if err != nil {
				return err
			}
			orchestrator.SetPromptStore(prompts)
		}
		if history != nil {
			orchestrator.SetHistoryStore(history)
		}
		answerService = orchestrator
	}

	indexService = index
	ingestService = ingest
	toolRegistry = registry
	if historyService == nil {
		historyService = services.NewHistoryService(history)
	}
	watchCorpus = filesystem.NewWatcher(loader, filesystem.DefaultDebounce).Watch

	return nil
}

// ensureIndex wires the engine and ingests the corpus unless an index has
// already been built in this process.
func ensureIndex(ctx context.Context) error {
	if err := ensureEngine(); err != nil {
		return err
	}
	if indexService.Stats().Built {
		return nil
	}
	_, err := ingestService.Ingest(ctx)
	if err != nil {
		return fmt.Errorf("index course material: %w", err)
	}
	return nil
}

// ensureAnswer wires everything ask needs.
func ensureAnswer(ctx context.Context) error {
	if err := ensureIndex(ctx); err != nil {
		return err
	}
	if answerService == nil {
		return errAnswerDisabled
	}
	return nil
}

var errAnswerDisabled = errors.New("no LLM provider is configured; run 'lumen settings set-key llm' or set ANTHROPIC_API_KEY")

// shutdown releases wired resources in reverse order.
func shutdown() {
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
	closers = nil
}
