package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/lumen/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/lumen/internal/core/domain"
	"github.com/custodia-labs/lumen/internal/core/ports/driving"
	"github.com/custodia-labs/lumen/internal/core/services"
	"github.com/custodia-labs/lumen/internal/tools/astronomy"
)

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	hits      []domain.ScoredChunk
	err       error
	built     bool
	lastQuery string
	lastK     int
}

func (m *mockIndexService) Search(_ context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	m.lastQuery = query
	m.lastK = k
	return m.hits, m.err
}

func (m *mockIndexService) Build(_ context.Context, _ []domain.Chunk) error {
	m.built = true
	return nil
}

func (m *mockIndexService) RelevanceFloor() float64 { return domain.DefaultRelevanceFloor }

func (m *mockIndexService) Stats() domain.IndexStats {
	return domain.IndexStats{Built: m.built, Chunks: len(m.hits), Dimensions: 384, Normalized: true}
}

func (m *mockIndexService) Chunk(id int) (domain.Chunk, bool) {
	for _, h := range m.hits {
		if h.Chunk.ID == id {
			return h.Chunk, true
		}
	}
	return domain.Chunk{}, false
}

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	report *domain.IngestReport
	err    error
	calls  int
}

func (m *mockIngestService) Ingest(_ context.Context) (*domain.IngestReport, error) {
	m.calls++
	return m.report, m.err
}

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	answer   domain.Answer
	err      error
	question string
}

func (m *mockAnswerService) Answer(_ context.Context, query string) (domain.Answer, error) {
	m.question = query
	return m.answer, m.err
}

type savedServices struct {
	settings driving.SettingsService
	index    driving.IndexService
	ingest   driving.IngestService
	answer   driving.AnswerService
	tools    driving.ToolRegistry
	history  driving.HistoryService
	watch    func(ctx context.Context, onChange func()) error
}

// setupTestServices installs in-memory services and returns a cleanup that
// restores the previous ones.
func setupTestServices() func() {
	saved := savedServices{
		settings: settingsService,
		index:    indexService,
		ingest:   ingestService,
		answer:   answerService,
		tools:    toolRegistry,
		history:  historyService,
		watch:    watchCorpus,
	}

	settingsService = services.NewSettingsService(memory.NewConfigStore(), nil)
	indexService = &mockIndexService{built: true, hits: testHits()}
	ingestService = &mockIngestService{report: testReport()}
	answerService = &mockAnswerService{answer: domain.Answer{
		Text:      "A parsec is about 3.26 light years.",
		State:     domain.StateDirectAnswer,
		ToolCalls: []domain.ToolCallRecord{{RequestID: "r1", Name: "convert_distance"}},
		Rounds:    2,
		Duration:  120 * time.Millisecond,
	}}
	registry := services.NewToolRegistry()
	registry.MustRegister(astronomy.Tools()...)
	toolRegistry = registry
	historyService = services.NewHistoryService(memory.NewHistoryStore(10))
	watchCorpus = nil

	return func() {
		settingsService = saved.settings
		indexService = saved.index
		ingestService = saved.ingest
		answerService = saved.answer
		toolRegistry = saved.tools
		historyService = saved.history
		watchCorpus = saved.watch
	}
}

func testHits() []domain.ScoredChunk {
	return []domain.ScoredChunk{
		{
			Chunk: domain.Chunk{
				ID:           2,
				Source:       "lecture-03",
				SectionTitle: "Parallax",
				Text:         "## Parallax\nThe apparent shift of a nearby star against distant stars.",
			},
			Score: 0.71,
		},
		{
			Chunk: domain.Chunk{
				ID:           7,
				Source:       "lecture-05",
				SectionTitle: "Magnitudes",
				Text:         "## Magnitudes\nApparent magnitude measures brightness as seen from Earth.",
			},
			Score: 0.12,
		},
	}
}

func testReport() *domain.IngestReport {
	return &domain.IngestReport{
		Documents: 3,
		Indexed:   2,
		Chunks:    9,
		Skipped: []domain.IngestIssue{
			{URI: "Lecture/empty.md", Reason: domain.ErrEmptyDocument},
			{URI: "Lecture/notes.md", Reason: fmt.Errorf("read: %w", domain.ErrMalformedDocument)},
		},
		Stats: domain.IndexStats{Built: true, Chunks: 9, Dimensions: 384, Normalized: true, Model: "hash-384", Backend: "flat"},
	}
}
