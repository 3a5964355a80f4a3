package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/lumen/internal/core/domain"
	"github.com/custodia-labs/lumen/internal/core/ports/driven"
	"github.com/custodia-labs/lumen/internal/core/ports/driving"
	"github.com/custodia-labs/lumen/internal/logger"
	"github.com/custodia-labs/lumen/internal/metrics"
)

// Ensure OrchestratorService implements the interfaces.
var (
	_ driving.AnswerService   = (*OrchestratorService)(nil)
	_ driven.PromptStoreAware = (*OrchestratorService)(nil)
)

// OrchestratorConfig bounds the tool-calling loop.
type OrchestratorConfig struct {
	// MaxToolCalls is the number of tool executions allowed per query.
	MaxToolCalls int

	// Retry controls reasoning-service retries.
	Retry RetryPolicy

	// RequireGrounding replaces answers with the no-relevant-content reply
	// when every retrieval came back empty and no other tool succeeded.
	RequireGrounding bool

	// MaxTokens and Temperature are passed to the reasoning service.
	MaxTokens   int
	Temperature float64

	// RecordHistory saves each answered query when a HistoryStore is set.
	RecordHistory bool
}

// OrchestratorConfigFromSettings derives the loop configuration from settings.
func OrchestratorConfigFromSettings(s domain.AppSettings) OrchestratorConfig {
	return OrchestratorConfig{
		MaxToolCalls: s.Orchestrator.MaxToolCalls,
		Retry: RetryPolicy{
			MaxRetries:        s.Orchestrator.MaxRetries,
			InitialBackoff:    s.Orchestrator.InitialBackoff,
			AttemptTimeout:    s.Orchestrator.RequestTimeout,
			RequestsPerSecond: s.Orchestrator.RequestsPerSecond,
		},
		RequireGrounding: s.Orchestrator.RequireGrounding,
		MaxTokens:        s.LLM.MaxTokens,
		Temperature:      s.LLM.Temperature,
		RecordHistory:    s.History.Enabled,
	}
}

// OrchestratorService answers queries by running the tool-calling protocol
// against a reasoning service.
//
// Each Answer call owns its own Conversation, so independent queries may run
// concurrently. The tool registry must not change while queries are running.
type OrchestratorService struct {
	llm         driven.ReasoningService
	caller      *reasoningCaller
	tools       driving.ToolRegistry
	cfg         OrchestratorConfig
	promptStore driven.PromptStore
	history     driven.HistoryStore
}

// NewOrchestratorService creates an orchestrator.
// llm may be nil, in which case every answer is degraded.
func NewOrchestratorService(llm driven.ReasoningService, tools driving.ToolRegistry, cfg OrchestratorConfig) *OrchestratorService {
	if cfg.MaxToolCalls < 1 {
		cfg.MaxToolCalls = 1
	}
	o := &OrchestratorService{
		llm:   llm,
		tools: tools,
		cfg:   cfg,
	}
	if llm != nil {
		o.caller = newReasoningCaller(llm, cfg.Retry)
	}
	return o
}

// SetPromptStore sets the prompt store for loading customisable prompts.
// If not set, the service uses the built-in tutor prompt.
func (o *OrchestratorService) SetPromptStore(store driven.PromptStore) {
	o.promptStore = store
}

// SetHistoryStore enables recording of answered queries.
func (o *OrchestratorService) SetHistoryStore(store driven.HistoryStore) {
	o.history = store
}

// run is the mutable state of one Answer call.
type run struct {
	query      string
	conv       *domain.Conversation
	state      domain.AnswerState
	rounds     int
	records    []domain.ToolCallRecord
	retrievals int
	grounded   bool
	otherOK    bool
	// failedSearches counts retrievals that could not run.
	failedSearches int
}

func (r *run) transition(to domain.AnswerState) {
	logger.Debug("Answer state %s -> %s", r.state, to)
	r.state = to
}

// Answer resolves a query. See driving.AnswerService for the error contract.
func (o *OrchestratorService) Answer(ctx context.Context, query string) (domain.Answer, error) {
	start := time.Now()
	query = strings.TrimSpace(query)

	if query == "" {
		ans := domain.Answer{
			Text:     domain.MsgEmptyQuery,
			State:    domain.StateDegraded,
			Degraded: true,
			Reason:   fmt.Errorf("%w: empty query", domain.ErrInvalidInput),
		}
		metrics.RecordAnswer(metrics.StatusDegraded)
		return ans, nil
	}

	r := &run{
		query: query,
		conv:  domain.NewConversation(query),
		state: domain.StateAwaitingResponse,
	}

	logger.Section("Answering query")
	logger.Info("Query: %s", query)

	if o.caller == nil {
		err := fmt.Errorf("%w: no reasoning service configured", domain.ErrLLMUnavailable)
		return o.finish(ctx, r, start, o.degraded(r, domain.MsgUnableToComplete, err), err)
	}

	specs := o.tools.List()
	system := o.loadPrompt(driven.PromptTutorSystem, domain.DefaultTutorPrompt)

	for {
		// Cancellation is honoured between round trips.
		if err := ctx.Err(); err != nil {
			return o.finish(ctx, r, start, o.degraded(r, domain.MsgUnableToComplete, err), err)
		}

		reply, err := o.caller.respond(ctx, driven.ReasoningRequest{
			System:      system,
			Turns:       r.conv.Turns(),
			Tools:       specs,
			MaxTokens:   o.cfg.MaxTokens,
			Temperature: o.cfg.Temperature,
		})
		r.rounds++
		if err != nil {
			ans := o.degraded(r, domain.MsgUnableToComplete, err)
			if errors.Is(err, domain.ErrMalformedReply) {
				logger.Warn("Malformed reply from reasoning service: %v", err)
				return o.finish(ctx, r, start, ans, nil)
			}
			return o.finish(ctx, r, start, ans, err)
		}

		if !reply.IsToolCall() {
			ans, err := o.final(r, reply.Text)
			return o.finish(ctx, r, start, ans, err)
		}

		r.transition(domain.StateToolRequested)
		if len(r.records) >= o.cfg.MaxToolCalls {
			logger.Warn("Tool call limit of %d reached, stopping", o.cfg.MaxToolCalls)
			err := fmt.Errorf("%w: %d calls", domain.ErrToolLimitReached, o.cfg.MaxToolCalls)
			return o.finish(ctx, r, start, o.degraded(r, domain.MsgToolLimitReached, err), nil)
		}

		if err := o.execute(ctx, r, *reply.ToolCall); err != nil {
			return o.finish(ctx, r, start, o.degraded(r, domain.MsgUnableToComplete, err), err)
		}
		r.transition(domain.StateAwaitingFinalResponse)
	}
}

// execute runs one requested tool and appends the request and result turns.
func (o *OrchestratorService) execute(ctx context.Context, r *run, call domain.ToolCallRequest) error {
	if call.ID == "" {
		call.ID = uuid.NewString()
	}
	if err := r.conv.AppendToolCall(call); err != nil {
		return err
	}

	r.transition(domain.StateExecutingTool)
	logger.Info("Running tool %s (%s)", call.Name, call.ID)

	result, err := o.tools.Call(ctx, call)
	r.records = append(r.records, domain.ToolCallRecord{
		RequestID: call.ID,
		Name:      call.Name,
		IsError:   err != nil || result.IsError(),
	})
	if err != nil {
		return err
	}

	switch result.Grounding() {
	case domain.GroundingFound:
		r.retrievals++
		r.grounded = true
	case domain.GroundingEmpty:
		r.retrievals++
	case domain.GroundingUnavailable:
		r.failedSearches++
	default:
		if !result.IsError() {
			r.otherOK = true
		}
	}
	logger.Debug("Tool %s result: %s", call.Name, result.Text())

	return r.conv.AppendToolResult(result)
}

// final records the service's text answer, applying the grounding gate.
// An answer that could only come from the service's own memory, because
// every search failed and nothing else succeeded, is degraded.
func (o *OrchestratorService) final(r *run, text string) (domain.Answer, error) {
	if err := r.conv.AppendAssistantText(text); err != nil {
		return o.degraded(r, domain.MsgUnableToComplete, err), err
	}

	if r.failedSearches > 0 && r.retrievals == 0 && !r.otherOK {
		logger.Warn("Search failed %d time(s) and nothing else succeeded, withholding answer", r.failedSearches)
		err := fmt.Errorf("%w: %d search call(s) failed", domain.ErrSearchUnavailable, r.failedSearches)
		return o.degraded(r, domain.MsgUnableToComplete, err), nil
	}

	if o.cfg.RequireGrounding && r.retrievals > 0 && !r.grounded && !r.otherOK {
		logger.Info("No retrieval cleared the relevance floor, withholding answer")
		return o.degraded(r, domain.MsgNoRelevantContent, domain.ErrNoRelevantContent), nil
	}

	r.transition(domain.StateDirectAnswer)
	return domain.Answer{
		Text:      strings.TrimSpace(text),
		State:     domain.StateDirectAnswer,
		ToolCalls: r.records,
		Rounds:    r.rounds,
	}, nil
}

func (o *OrchestratorService) degraded(r *run, text string, reason error) domain.Answer {
	r.transition(domain.StateDegraded)
	return domain.Answer{
		Text:      text,
		State:     domain.StateDegraded,
		Degraded:  true,
		Reason:    reason,
		ToolCalls: r.records,
		Rounds:    r.rounds,
	}
}

// finish stamps the duration, records metrics and history.
func (o *OrchestratorService) finish(ctx context.Context, r *run, start time.Time, ans domain.Answer, err error) (domain.Answer, error) {
	ans.Duration = time.Since(start)

	switch {
	case err != nil:
		metrics.RecordAnswer(metrics.StatusError)
		logger.Error("Answer failed after %d round(s): %v", ans.Rounds, err)
	case ans.Degraded:
		metrics.RecordAnswer(metrics.StatusDegraded)
		logger.Info("Degraded answer after %d round(s): %v", ans.Rounds, ans.Reason)
	default:
		metrics.RecordAnswer(metrics.StatusOK)
		logger.Info("Answered in %d round(s) with %d tool call(s)", ans.Rounds, len(ans.ToolCalls))
	}

	o.record(ctx, r.query, ans)
	return ans, err
}

func (o *OrchestratorService) record(ctx context.Context, query string, ans domain.Answer) {
	if o.history == nil || !o.cfg.RecordHistory {
		return
	}
	rec := &domain.QueryRecord{
		ID:        uuid.NewString(),
		Query:     query,
		Answer:    ans.Text,
		Degraded:  ans.Degraded,
		ToolCalls: len(ans.ToolCalls),
		Rounds:    ans.Rounds,
		Duration:  ans.Duration,
		CreatedAt: time.Now(),
	}
	// Cancelled queries are still recorded.
	if err := o.history.Save(context.WithoutCancel(ctx), rec); err != nil {
		logger.Warn("Failed to record query history: %v", err)
	}
}

// loadPrompt loads a prompt from the store, falling back to the default if unavailable.
func (o *OrchestratorService) loadPrompt(name, fallback string) string {
	if o.promptStore == nil {
		return fallback
	}
	prompt, err := o.promptStore.Load(name)
	if err != nil || strings.TrimSpace(prompt) == "" {
		return fallback
	}
	return prompt
}
