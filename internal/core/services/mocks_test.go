package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/lumen/internal/core/domain"
	"github.com/custodia-labs/lumen/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
// Texts found in vectors get that vector, anything else gets fallback.
type mockEmbeddingService struct {
	mu       sync.Mutex
	vectors  map[string][]float32
	fallback []float32
	model    string
	embedErr error
	batchErr error
	calls    int
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return m.fallback, nil
}

func (m *mockEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	return len(m.fallback)
}

func (m *mockEmbeddingService) ModelName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.model == "" {
		return "mock-embed"
	}
	return m.model
}

func (m *mockEmbeddingService) Ping(_ context.Context) error {
	return nil
}

func (m *mockEmbeddingService) Close() error {
	return nil
}

// scriptedReply is one response of mockReasoningService.
type scriptedReply struct {
	reply domain.Reply
	err   error
}

// mockReasoningService implements driven.ReasoningService for testing.
// It plays back script in order and repeats the last entry once exhausted.
type mockReasoningService struct {
	mu       sync.Mutex
	script   []scriptedReply
	requests []driven.ReasoningRequest
	respond  func(req driven.ReasoningRequest) (domain.Reply, error)
}

func (m *mockReasoningService) Respond(_ context.Context, req driven.ReasoningRequest) (domain.Reply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.respond != nil {
		return m.respond(req)
	}
	if len(m.script) == 0 {
		return domain.Reply{}, domain.ErrMalformedReply
	}
	i := len(m.requests) - 1
	if i >= len(m.script) {
		i = len(m.script) - 1
	}
	return m.script[i].reply, m.script[i].err
}

func (m *mockReasoningService) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *mockReasoningService) lastRequest() driven.ReasoningRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[len(m.requests)-1]
}

func (m *mockReasoningService) ModelName() string {
	return "mock-llm"
}

func (m *mockReasoningService) Ping(_ context.Context) error {
	return nil
}

func (m *mockReasoningService) Close() error {
	return nil
}

// mockHistoryStore implements driven.HistoryStore for testing.
type mockHistoryStore struct {
	mu      sync.Mutex
	records []domain.QueryRecord
	saveErr error
}

func (m *mockHistoryStore) Save(_ context.Context, rec *domain.QueryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.records = append(m.records, *rec)
	return nil
}

func (m *mockHistoryStore) Recent(_ context.Context, limit int) ([]domain.QueryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.QueryRecord, 0, len(m.records))
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

func (m *mockHistoryStore) Get(_ context.Context, id string) (*domain.QueryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ID == id {
			rec := m.records[i]
			return &rec, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockHistoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
	return nil
}

// mockDocumentLoader implements driven.DocumentLoader for testing.
type mockDocumentLoader struct {
	docs   []*domain.Document
	issues []domain.IngestIssue
	err    error
}

func (m *mockDocumentLoader) Load(_ context.Context) ([]*domain.Document, []domain.IngestIssue, error) {
	return m.docs, m.issues, m.err
}

func (m *mockDocumentLoader) Location() string {
	return "mock://corpus"
}
