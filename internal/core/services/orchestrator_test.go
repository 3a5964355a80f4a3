package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lumen/internal/adapters/driven/embedding/hash"
	"github.com/custodia-labs/lumen/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/lumen/internal/core/domain"
	"github.com/custodia-labs/lumen/internal/core/ports/driven"
	"github.com/custodia-labs/lumen/internal/core/ports/driving"
	"github.com/custodia-labs/lumen/internal/tools/astronomy"
	"github.com/custodia-labs/lumen/internal/tools/retrieval"
)

// testConfig keeps retries fast and unthrottled.
func testConfig() OrchestratorConfig {
	return OrchestratorConfig{
		MaxToolCalls: 5,
		Retry: RetryPolicy{
			MaxRetries:     2,
			InitialBackoff: time.Millisecond,
			AttemptTimeout: time.Second,
		},
		RequireGrounding: true,
		MaxTokens:        300,
		RecordHistory:    true,
	}
}

// newTestRegistry registers the calculation tools and a search tool over the
// astronomy corpus embedded with the hashing embedder.
func newTestRegistry(t *testing.T) *ToolRegistry {
	t.Helper()
	idx := NewIndexService(hash.NewEmbeddingService(hash.Config{}), flat.New(), domain.DefaultRelevanceFloor)
	require.NoError(t, idx.Build(context.Background(), astronomyChunks()))

	reg := NewToolRegistry()
	reg.MustRegister(astronomy.Tools()...)
	reg.MustRegister(retrieval.SearchTool(idx, retrieval.Config{}))
	return reg
}

func toolCall(id, name string, args map[string]any) domain.Reply {
	return domain.Reply{ToolCall: &domain.ToolCallRequest{ID: id, Name: name, Arguments: args}}
}

func text(s string) domain.Reply {
	return domain.Reply{Text: s}
}

// lastToolResult returns the result turn at the end of the conversation, if any.
func lastToolResult(req driven.ReasoningRequest) *domain.ToolCallResult {
	if len(req.Turns) == 0 {
		return nil
	}
	return req.Turns[len(req.Turns)-1].ToolResult
}

func TestOrchestrator_DirectAnswer(t *testing.T) {
	llm := &mockReasoningService{script: []scriptedReply{{reply: text("A parsec is about 3.26 light-years.")}}}
	o := NewOrchestratorService(llm, newTestRegistry(t), testConfig())

	ans, err := o.Answer(context.Background(), "What is a parsec?")

	require.NoError(t, err)
	assert.Equal(t, "A parsec is about 3.26 light-years.", ans.Text)
	assert.Equal(t, domain.StateDirectAnswer, ans.State)
	assert.False(t, ans.Degraded)
	assert.Nil(t, ans.Reason)
	assert.Equal(t, 1, ans.Rounds)
	assert.Empty(t, ans.ToolCalls)

	req := llm.lastRequest()
	require.Len(t, req.Turns, 1)
	assert.Equal(t, domain.RoleUser, req.Turns[0].Role)
	assert.Equal(t, "What is a parsec?", req.Turns[0].Text)
	assert.Len(t, req.Tools, 4, "all tool specs are advertised")
	assert.Equal(t, domain.DefaultTutorPrompt, req.System)
	assert.Equal(t, 300, req.MaxTokens)
}

func TestOrchestrator_ToolRoundTrip(t *testing.T) {
	llm := &mockReasoningService{
		respond: func(req driven.ReasoningRequest) (domain.Reply, error) {
			res := lastToolResult(req)
			if res == nil {
				return toolCall("call-1", astronomy.ParallaxToDistanceName, map[string]any{"parallax_arcsec": 0.5}), nil
			}
			pc := res.Payload()["distance_parsecs"].(float64)
			return text(fmt.Sprintf("The star is %.1f parsecs away.", pc)), nil
		},
	}
	o := NewOrchestratorService(llm, newTestRegistry(t), testConfig())

	ans, err := o.Answer(context.Background(), "How far is a star with parallax 0.5 arcsec?")

	require.NoError(t, err)
	assert.Contains(t, ans.Text, "2.0")
	assert.Equal(t, domain.StateDirectAnswer, ans.State)
	assert.Equal(t, 2, ans.Rounds)
	require.Len(t, ans.ToolCalls, 1)
	assert.Equal(t, astronomy.ParallaxToDistanceName, ans.ToolCalls[0].Name)
	assert.False(t, ans.ToolCalls[0].IsError)
}

func TestOrchestrator_ResendsFullConversation(t *testing.T) {
	llm := &mockReasoningService{script: []scriptedReply{
		{reply: toolCall("call-1", astronomy.ParallaxToDistanceName, map[string]any{"parallax_arcsec": 0.25})},
		{reply: text("4 parsecs.")},
	}}
	o := NewOrchestratorService(llm, newTestRegistry(t), testConfig())

	_, err := o.Answer(context.Background(), "parallax 0.25?")
	require.NoError(t, err)

	require.Equal(t, 2, llm.calls())
	turns := llm.lastRequest().Turns
	require.Len(t, turns, 3)
	assert.Equal(t, domain.RoleUser, turns[0].Role)
	assert.Equal(t, domain.RoleAssistant, turns[1].Role)
	require.NotNil(t, turns[1].ToolCall)
	assert.Equal(t, "call-1", turns[1].ToolCall.ID)
	assert.Equal(t, domain.RoleTool, turns[2].Role)
	require.NotNil(t, turns[2].ToolResult)
	assert.Equal(t, "call-1", turns[2].ToolResult.RequestID, "result echoes the request id")
	assert.Equal(t, 4.0, turns[2].ToolResult.Payload()["distance_parsecs"])
	assert.Len(t, llm.requests[0].Turns, 1, "earlier requests are not mutated")
}

func TestOrchestrator_MissingRequestIDIsAssigned(t *testing.T) {
	llm := &mockReasoningService{script: []scriptedReply{
		{reply: toolCall("", astronomy.ParallaxToDistanceName, map[string]any{"parallax_arcsec": 1.0})},
		{reply: text("1 parsec.")},
	}}
	o := NewOrchestratorService(llm, newTestRegistry(t), testConfig())

	ans, err := o.Answer(context.Background(), "parallax 1?")

	require.NoError(t, err)
	require.Len(t, ans.ToolCalls, 1)
	assert.NotEmpty(t, ans.ToolCalls[0].RequestID)
	turns := llm.lastRequest().Turns
	assert.Equal(t, turns[1].ToolCall.ID, turns[2].ToolResult.RequestID)
}

func TestOrchestrator_UnknownTool(t *testing.T) {
	llm := &mockReasoningService{
		respond: func(req driven.ReasoningRequest) (domain.Reply, error) {
			res := lastToolResult(req)
			if res == nil {
				return toolCall("call-1", "warp_drive", map[string]any{}), nil
			}
			return text("Sorry, I cannot do that: " + res.Payload()["error"].(string)), nil
		},
	}
	o := NewOrchestratorService(llm, newTestRegistry(t), testConfig())

	ans, err := o.Answer(context.Background(), "engage")

	require.NoError(t, err)
	assert.False(t, ans.Degraded)
	assert.Contains(t, ans.Text, "unknown tool warp_drive")
	require.Len(t, ans.ToolCalls, 1)
	assert.True(t, ans.ToolCalls[0].IsError)

	res := lastToolResult(llm.lastRequest())
	require.NotNil(t, res)
	assert.True(t, res.IsError())
	assert.Equal(t, "unknown tool warp_drive", res.Payload()["error"])
}

func TestOrchestrator_InvalidArgumentsReachService(t *testing.T) {
	llm := &mockReasoningService{script: []scriptedReply{
		{reply: toolCall("call-1", astronomy.ParallaxToDistanceName, map[string]any{})},
		{reply: text("I need a parallax value.")},
	}}
	o := NewOrchestratorService(llm, newTestRegistry(t), testConfig())

	ans, err := o.Answer(context.Background(), "how far?")

	require.NoError(t, err)
	assert.Equal(t, "I need a parallax value.", ans.Text)
	res := lastToolResult(llm.lastRequest())
	require.NotNil(t, res)
	assert.Contains(t, res.Payload()["error"], "parallax_arcsec")
}

func TestOrchestrator_IterationBound(t *testing.T) {
	var n int32
	llm := &mockReasoningService{
		respond: func(driven.ReasoningRequest) (domain.Reply, error) {
			id := atomic.AddInt32(&n, 1)
			return toolCall(fmt.Sprintf("call-%d", id), astronomy.ParallaxToDistanceName, map[string]any{"parallax_arcsec": 0.5}), nil
		},
	}
	cfg := testConfig()
	cfg.MaxToolCalls = 3
	o := NewOrchestratorService(llm, newTestRegistry(t), cfg)

	ans, err := o.Answer(context.Background(), "loop forever")

	require.NoError(t, err)
	assert.True(t, ans.Degraded)
	assert.Equal(t, domain.StateDegraded, ans.State)
	assert.Equal(t, domain.MsgToolLimitReached, ans.Text)
	assert.ErrorIs(t, ans.Reason, domain.ErrToolLimitReached)
	assert.Len(t, ans.ToolCalls, 3)
	assert.Equal(t, 4, llm.calls())
}

func TestOrchestrator_ChainsTools(t *testing.T) {
	llm := &mockReasoningService{
		respond: func(req driven.ReasoningRequest) (domain.Reply, error) {
			res := lastToolResult(req)
			switch {
			case res == nil:
				return toolCall("c1", retrieval.SearchToolName, map[string]any{"query": "stellar parallax distance parsecs"}), nil
			case res.RequestID == "c1":
				return toolCall("c2", astronomy.ParallaxToDistanceName, map[string]any{"parallax_arcsec": 0.1}), nil
			default:
				return text(fmt.Sprintf("Using d = 1/p the star is %.1f pc away.", res.Payload()["distance_parsecs"])), nil
			}
		},
	}
	o := NewOrchestratorService(llm, newTestRegistry(t), testConfig())

	ans, err := o.Answer(context.Background(), "Use the course formula for parallax 0.1")

	require.NoError(t, err)
	assert.Contains(t, ans.Text, "10.0 pc")
	require.Len(t, ans.ToolCalls, 2)
	assert.Equal(t, retrieval.SearchToolName, ans.ToolCalls[0].Name)
	assert.Equal(t, astronomy.ParallaxToDistanceName, ans.ToolCalls[1].Name)
	assert.Equal(t, 3, ans.Rounds)
	assert.Len(t, llm.lastRequest().Turns, 5)
}

func TestOrchestrator_GroundingGate(t *testing.T) {
	llm := &mockReasoningService{script: []scriptedReply{
		{reply: toolCall("c1", retrieval.SearchToolName, map[string]any{"query": "completely unrelated query"})},
		{reply: text("Here is some invented content.")},
	}}
	o := NewOrchestratorService(llm, newTestRegistry(t), testConfig())

	ans, err := o.Answer(context.Background(), "completely unrelated query")

	require.NoError(t, err)
	assert.True(t, ans.Degraded)
	assert.Equal(t, domain.MsgNoRelevantContent, ans.Text)
	assert.ErrorIs(t, ans.Reason, domain.ErrNoRelevantContent)

	res := lastToolResult(llm.lastRequest())
	require.NotNil(t, res)
	assert.Equal(t, false, res.Payload()["found"])
}

func TestOrchestrator_GroundingGateDisabled(t *testing.T) {
	llm := &mockReasoningService{script: []scriptedReply{
		{reply: toolCall("c1", retrieval.SearchToolName, map[string]any{"query": "completely unrelated query"})},
		{reply: text("Nothing in the notes covers that.")},
	}}
	cfg := testConfig()
	cfg.RequireGrounding = false
	o := NewOrchestratorService(llm, newTestRegistry(t), cfg)

	ans, err := o.Answer(context.Background(), "completely unrelated query")

	require.NoError(t, err)
	assert.False(t, ans.Degraded)
	assert.Equal(t, "Nothing in the notes covers that.", ans.Text)
}

func TestOrchestrator_GroundedSearchPasses(t *testing.T) {
	llm := &mockReasoningService{script: []scriptedReply{
		{reply: toolCall("c1", retrieval.SearchToolName, map[string]any{"query": "How does stellar parallax give distance?"})},
		{reply: text("Parallax gives distance as d = 1/p.")},
	}}
	o := NewOrchestratorService(llm, newTestRegistry(t), testConfig())

	ans, err := o.Answer(context.Background(), "How does stellar parallax give distance?")

	require.NoError(t, err)
	assert.False(t, ans.Degraded)
	assert.Equal(t, "Parallax gives distance as d = 1/p.", ans.Text)
	res := lastToolResult(llm.lastRequest())
	require.NotNil(t, res)
	assert.Equal(t, domain.GroundingFound, res.Grounding())
}

func TestOrchestrator_RetriesTransientFailures(t *testing.T) {
	llm := &mockReasoningService{script: []scriptedReply{
		{err: errors.New("connection reset")},
		{err: errors.New("502 bad gateway")},
		{reply: text("Recovered.")},
	}}
	o := NewOrchestratorService(llm, newTestRegistry(t), testConfig())

	ans, err := o.Answer(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, "Recovered.", ans.Text)
	assert.Equal(t, 3, llm.calls())
	assert.Equal(t, 1, ans.Rounds, "retries are one logical round")
}

func TestOrchestrator_RetriesExhausted(t *testing.T) {
	llm := &mockReasoningService{script: []scriptedReply{{err: errors.New("connection refused")}}}
	o := NewOrchestratorService(llm, newTestRegistry(t), testConfig())

	ans, err := o.Answer(context.Background(), "hello")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.True(t, ans.Degraded)
	assert.Equal(t, domain.MsgUnableToComplete, ans.Text)
	assert.ErrorIs(t, ans.Reason, domain.ErrLLMUnavailable)
	assert.Equal(t, 3, llm.calls(), "first attempt plus two retries")
}

func TestOrchestrator_RejectedRequestNotRetried(t *testing.T) {
	llm := &mockReasoningService{script: []scriptedReply{{err: fmt.Errorf("%w: 401 invalid api key", domain.ErrRequestRejected)}}}
	o := NewOrchestratorService(llm, newTestRegistry(t), testConfig())

	ans, err := o.Answer(context.Background(), "hello")

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.ErrorIs(t, err, domain.ErrRequestRejected)
	assert.Equal(t, domain.MsgUnableToComplete, ans.Text)
	assert.Equal(t, 1, llm.calls())
}

func TestOrchestrator_MalformedReply(t *testing.T) {
	tests := []struct {
		name   string
		script []scriptedReply
	}{
		{"empty text", []scriptedReply{{reply: text("   ")}}},
		{"nameless tool call", []scriptedReply{{reply: toolCall("c1", "", nil)}}},
		{"adapter decode failure", []scriptedReply{{err: fmt.Errorf("%w: bad json", domain.ErrMalformedReply)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &mockReasoningService{script: tt.script}
			o := NewOrchestratorService(llm, newTestRegistry(t), testConfig())

			ans, err := o.Answer(context.Background(), "hello")

			require.NoError(t, err, "protocol errors degrade without a systemic error")
			assert.True(t, ans.Degraded)
			assert.Equal(t, domain.MsgUnableToComplete, ans.Text)
			assert.ErrorIs(t, ans.Reason, domain.ErrMalformedReply)
			assert.Equal(t, 1, llm.calls(), "malformed replies are not retried")
		})
	}
}

func TestOrchestrator_CancelledBetweenRounds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := newTestRegistry(t)
	// Cancel while the tool runs so the next round trip is never sent.
	require.NoError(t, reg.Register(driving.Tool{
		Spec: domain.ToolSpec{Name: "cancel_query"},
		Func: func(context.Context, map[string]any) (domain.ToolOutcome, error) {
			cancel()
			return domain.ToolOk{Value: map[string]any{"done": true}}, nil
		},
	}))
	llm := &mockReasoningService{script: []scriptedReply{{reply: toolCall("c1", "cancel_query", nil)}}}
	o := NewOrchestratorService(llm, reg, testConfig())

	ans, err := o.Answer(ctx, "hello")

	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, ans.Degraded)
	assert.Equal(t, domain.MsgUnableToComplete, ans.Text)
	assert.Equal(t, 1, llm.calls())
	require.Len(t, ans.ToolCalls, 1)
}

func TestOrchestrator_SystemicToolError(t *testing.T) {
	unbuilt := NewIndexService(hash.NewEmbeddingService(hash.Config{}), flat.New(), domain.DefaultRelevanceFloor)
	reg := NewToolRegistry()
	reg.MustRegister(retrieval.SearchTool(unbuilt, retrieval.Config{}))
	llm := &mockReasoningService{script: []scriptedReply{
		{reply: toolCall("c1", retrieval.SearchToolName, map[string]any{"query": "stars"})},
	}}
	o := NewOrchestratorService(llm, reg, testConfig())

	ans, err := o.Answer(context.Background(), "stars?")

	assert.ErrorIs(t, err, domain.ErrIndexNotBuilt)
	assert.True(t, ans.Degraded)
	assert.Equal(t, domain.MsgUnableToComplete, ans.Text)
	assert.Equal(t, 1, llm.calls())
}

// offlineSearchRegistry registers a search tool whose index was built and
// then lost its embedder, plus the calculation tools.
func offlineSearchRegistry(t *testing.T) *ToolRegistry {
	t.Helper()
	embedder := unitMock()
	idx := NewIndexService(embedder, flat.New(), domain.DefaultRelevanceFloor)
	require.NoError(t, idx.Build(context.Background(), []domain.Chunk{chunk(0, "a")}))
	embedder.embedErr = errors.New("connection refused")

	reg := NewToolRegistry()
	reg.MustRegister(astronomy.Tools()...)
	reg.MustRegister(retrieval.SearchTool(idx, retrieval.Config{}))
	return reg
}

func TestOrchestrator_SearchUnavailable(t *testing.T) {
	tests := []struct {
		name         string
		requireGate  bool
		script       []scriptedReply
		wantDegraded bool
	}{
		{
			name:        "answer from memory is withheld",
			requireGate: true,
			script: []scriptedReply{
				{reply: toolCall("c1", retrieval.SearchToolName, map[string]any{"query": "parallax"})},
				{reply: text("Parallax is whatever I remember from training.")},
			},
			wantDegraded: true,
		},
		{
			name:        "withheld even without the grounding gate",
			requireGate: false,
			script: []scriptedReply{
				{reply: toolCall("c1", retrieval.SearchToolName, map[string]any{"query": "parallax"})},
				{reply: text("Parallax is whatever I remember from training.")},
			},
			wantDegraded: true,
		},
		{
			name:        "a successful calculation still answers",
			requireGate: true,
			script: []scriptedReply{
				{reply: toolCall("c1", retrieval.SearchToolName, map[string]any{"query": "parallax"})},
				{reply: toolCall("c2", astronomy.ParallaxToDistanceName, map[string]any{"parallax_arcsec": 0.5})},
				{reply: text("The star is 2 parsecs away.")},
			},
			wantDegraded: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &mockReasoningService{script: tt.script}
			cfg := testConfig()
			cfg.RequireGrounding = tt.requireGate
			o := NewOrchestratorService(llm, offlineSearchRegistry(t), cfg)

			ans, err := o.Answer(context.Background(), "What is parallax?")

			require.NoError(t, err)
			assert.Equal(t, tt.wantDegraded, ans.Degraded)
			assert.Equal(t, len(tt.script), llm.calls())
			if tt.wantDegraded {
				assert.Equal(t, domain.StateDegraded, ans.State)
				assert.Equal(t, domain.MsgUnableToComplete, ans.Text)
				assert.ErrorIs(t, ans.Reason, domain.ErrSearchUnavailable)
				require.Len(t, ans.ToolCalls, 1)
				assert.True(t, ans.ToolCalls[0].IsError)
			} else {
				assert.Equal(t, domain.StateDirectAnswer, ans.State)
				assert.Equal(t, "The star is 2 parsecs away.", ans.Text)
			}
		})
	}
}

func TestOrchestrator_EmptyQuery(t *testing.T) {
	llm := &mockReasoningService{}
	o := NewOrchestratorService(llm, newTestRegistry(t), testConfig())

	ans, err := o.Answer(context.Background(), "   ")

	require.NoError(t, err)
	assert.Equal(t, domain.MsgEmptyQuery, ans.Text)
	assert.ErrorIs(t, ans.Reason, domain.ErrInvalidInput)
	assert.Equal(t, 0, llm.calls())
}

func TestOrchestrator_NoReasoningService(t *testing.T) {
	o := NewOrchestratorService(nil, newTestRegistry(t), testConfig())

	ans, err := o.Answer(context.Background(), "hello")

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.Equal(t, domain.MsgUnableToComplete, ans.Text)
}

func TestOrchestrator_RecordsHistory(t *testing.T) {
	llm := &mockReasoningService{script: []scriptedReply{
		{reply: toolCall("c1", astronomy.ParallaxToDistanceName, map[string]any{"parallax_arcsec": 0.5})},
		{reply: text("2.0 parsecs.")},
	}}
	store := &mockHistoryStore{}
	o := NewOrchestratorService(llm, newTestRegistry(t), testConfig())
	o.SetHistoryStore(store)

	_, err := o.Answer(context.Background(), "  parallax 0.5?  ")
	require.NoError(t, err)

	recs, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.NotEmpty(t, recs[0].ID)
	assert.Equal(t, "parallax 0.5?", recs[0].Query)
	assert.Equal(t, "2.0 parsecs.", recs[0].Answer)
	assert.Equal(t, 1, recs[0].ToolCalls)
	assert.Equal(t, 2, recs[0].Rounds)
	assert.False(t, recs[0].CreatedAt.IsZero())
}

func TestOrchestrator_HistoryDisabledOrFailing(t *testing.T) {
	llm := &mockReasoningService{script: []scriptedReply{{reply: text("ok")}}}

	cfg := testConfig()
	cfg.RecordHistory = false
	store := &mockHistoryStore{}
	o := NewOrchestratorService(llm, newTestRegistry(t), cfg)
	o.SetHistoryStore(store)
	_, err := o.Answer(context.Background(), "hi")
	require.NoError(t, err)
	assert.Empty(t, store.records)

	failing := &mockHistoryStore{saveErr: errors.New("disk full")}
	o = NewOrchestratorService(llm, newTestRegistry(t), testConfig())
	o.SetHistoryStore(failing)
	ans, err := o.Answer(context.Background(), "hi")
	require.NoError(t, err, "history failures never affect the answer")
	assert.Equal(t, "ok", ans.Text)
}

// stubPromptStore returns fixed prompts.
type stubPromptStore struct {
	prompts map[string]string
}

func (s *stubPromptStore) Load(name string) (string, error) {
	p, ok := s.prompts[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return p, nil
}

func (s *stubPromptStore) Reload() {}

func TestOrchestrator_CustomPrompt(t *testing.T) {
	llm := &mockReasoningService{script: []scriptedReply{{reply: text("ok")}}}
	o := NewOrchestratorService(llm, newTestRegistry(t), testConfig())
	o.SetPromptStore(&stubPromptStore{prompts: map[string]string{driven.PromptTutorSystem: "Be brief."}})

	_, err := o.Answer(context.Background(), "hi")

	require.NoError(t, err)
	assert.Equal(t, "Be brief.", llm.lastRequest().System)

	o.SetPromptStore(&stubPromptStore{})
	_, err = o.Answer(context.Background(), "hi")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(llm.lastRequest().System, "You are a helpful tutor"))
}

func TestOrchestrator_ConcurrentQueries(t *testing.T) {
	llm := &mockReasoningService{
		respond: func(req driven.ReasoningRequest) (domain.Reply, error) {
			res := lastToolResult(req)
			if res == nil {
				return toolCall("c1", astronomy.ParallaxToDistanceName, map[string]any{"parallax_arcsec": 0.5}), nil
			}
			return text(fmt.Sprintf("%.1f", res.Payload()["distance_parsecs"])), nil
		},
	}
	o := NewOrchestratorService(llm, newTestRegistry(t), testConfig())

	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			ans, err := o.Answer(context.Background(), "parallax 0.5")
			if err == nil && ans.Text != "2.0" {
				err = fmt.Errorf("unexpected answer %q", ans.Text)
			}
			errs <- err
		}()
	}
	for i := 0; i < 8; i++ {
		assert.NoError(t, <-errs)
	}
}

func TestOrchestratorConfigFromSettings(t *testing.T) {
	s := domain.DefaultAppSettings()

	cfg := OrchestratorConfigFromSettings(s)

	assert.Equal(t, s.Orchestrator.MaxToolCalls, cfg.MaxToolCalls)
	assert.Equal(t, s.Orchestrator.MaxRetries, cfg.Retry.MaxRetries)
	assert.Equal(t, s.Orchestrator.RequestTimeout, cfg.Retry.AttemptTimeout)
	assert.Equal(t, s.LLM.MaxTokens, cfg.MaxTokens)
	assert.True(t, cfg.RequireGrounding)
	assert.True(t, cfg.RecordHistory)
}
