package mcp

import (
	"context"
	"sort"

	"github.com/custodia-labs/lumen/internal/core/domain"
	"github.com/custodia-labs/lumen/internal/core/ports/driving"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	hits      []domain.ScoredChunk
	err       error
	lastQuery string
	lastK     int
}

func (m *mockSearchService) Search(_ context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	m.lastQuery = query
	m.lastK = k
	return m.hits, m.err
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	mockSearchService
	stats domain.IndexStats
}

func (m *mockIndexService) Build(_ context.Context, _ []domain.Chunk) error { return nil }
func (m *mockIndexService) RelevanceFloor() float64                         { return domain.DefaultRelevanceFloor }
func (m *mockIndexService) Stats() domain.IndexStats                        { return m.stats }
func (m *mockIndexService) Chunk(_ int) (domain.Chunk, bool)                { return domain.Chunk{}, false }

// mockToolRegistry is a mock implementation of driving.ToolRegistry.
type mockToolRegistry struct {
	tools   map[string]driving.Tool
	callErr error
	lastReq domain.ToolCallRequest
}

func newMockToolRegistry(tools ...driving.Tool) *mockToolRegistry {
	m := &mockToolRegistry{tools: make(map[string]driving.Tool)}
	for _, tool := range tools {
		m.tools[tool.Spec.Name] = tool
	}
	return m
}

func (m *mockToolRegistry) Register(tool driving.Tool) error {
	m.tools[tool.Spec.Name] = tool
	return nil
}

func (m *mockToolRegistry) Get(name string) (driving.Tool, bool) {
	tool, ok := m.tools[name]
	return tool, ok
}

func (m *mockToolRegistry) List() []domain.ToolSpec {
	specs := make([]domain.ToolSpec, 0, len(m.tools))
	for _, tool := range m.tools {
		specs = append(specs, tool.Spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

func (m *mockToolRegistry) Call(ctx context.Context, req domain.ToolCallRequest) (domain.ToolCallResult, error) {
	m.lastReq = req
	if m.callErr != nil {
		return domain.ToolCallResult{}, m.callErr
	}
	tool, ok := m.tools[req.Name]
	if !ok {
		return domain.ErrorResult(req.ID, "unknown tool: "+req.Name), nil
	}
	outcome, err := tool.Func(ctx, req.Arguments)
	if err != nil {
		return domain.ToolCallResult{}, err
	}
	return domain.ToolCallResult{RequestID: req.ID, Outcome: outcome}, nil
}

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	answer domain.Answer
	err    error
}

func (m *mockAnswerService) Answer(_ context.Context, _ string) (domain.Answer, error) {
	return m.answer, m.err
}

// mockHistoryService is a mock implementation of driving.HistoryService.
type mockHistoryService struct {
	records []domain.QueryRecord
	err     error
}

func (m *mockHistoryService) Recent(_ context.Context, limit int) ([]domain.QueryRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit > 0 && len(m.records) > limit {
		return m.records[:limit], nil
	}
	return m.records, nil
}

func (m *mockHistoryService) Get(_ context.Context, id string) (*domain.QueryRecord, error) {
	for i := range m.records {
		if m.records[i].ID == id {
			return &m.records[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockHistoryService) Clear(_ context.Context) error {
	m.records = nil
	return m.err
}

func echoTool() driving.Tool {
	return driving.Tool{
		Spec: domain.ToolSpec{
			Name:        "echo",
			Description: "Echo the text argument",
			Parameters: map[string]domain.ParamSpec{
				"text": {Type: domain.ParamString, Description: "text to echo", Required: true},
			},
		},
		Func: func(_ context.Context, args map[string]any) (domain.ToolOutcome, error) {
			text, ok := args["text"].(string)
			if !ok {
				return domain.ToolError{Message: "text must be a string"}, nil
			}
			return domain.ToolOk{Value: map[string]any{"text": text}}, nil
		},
	}
}
