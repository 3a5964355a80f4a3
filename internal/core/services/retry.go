package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/lumen/internal/core/domain"
	"github.com/custodia-labs/lumen/internal/core/ports/driven"
	"github.com/custodia-labs/lumen/internal/logger"
	"github.com/custodia-labs/lumen/internal/metrics"
)

// maxBackoff caps the delay between reasoning-service attempts.
const maxBackoff = 5 * time.Second

// RetryPolicy controls how reasoning-service calls are retried.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// InitialBackoff is the delay before the first retry. It doubles per retry.
	InitialBackoff time.Duration

	// AttemptTimeout bounds each attempt. Zero means no per-attempt timeout.
	AttemptTimeout time.Duration

	// RequestsPerSecond throttles attempts. Zero or less disables throttling.
	RequestsPerSecond float64
}

// reasoningCaller wraps a ReasoningService with throttling, a per-attempt
// timeout and bounded exponential backoff.
type reasoningCaller struct {
	svc     driven.ReasoningService
	policy  RetryPolicy
	limiter *rate.Limiter
}

func newReasoningCaller(svc driven.ReasoningService, policy RetryPolicy) *reasoningCaller {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	limit := rate.Inf
	if policy.RequestsPerSecond > 0 {
		limit = rate.Limit(policy.RequestsPerSecond)
	}
	return &reasoningCaller{
		svc:     svc,
		policy:  policy,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (c *reasoningCaller) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.policy.InitialBackoff
	if b.InitialInterval <= 0 {
		b.InitialInterval = time.Millisecond
	}
	b.MaxInterval = maxBackoff
	b.MaxElapsedTime = 0
	b.RandomizationFactor = 0.2
	return backoff.WithMaxRetries(backoff.WithContext(b, ctx), uint64(c.policy.MaxRetries))
}

// respond sends one request, retrying transient failures.
//
// Rejected requests and undecodable replies are not retried. When every
// attempt fails the error wraps domain.ErrLLMUnavailable. Cancellation of
// ctx is returned as is.
func (c *reasoningCaller) respond(ctx context.Context, req driven.ReasoningRequest) (domain.Reply, error) {
	var reply domain.Reply
	attempt := 0

	op := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return backoff.Permanent(err)
		}

		attemptCtx, cancel := c.attemptContext(ctx)
		defer cancel()

		start := time.Now()
		r, err := c.svc.Respond(attemptCtx, req)
		elapsed := time.Since(start)

		switch {
		case err == nil:
			if verr := r.Validate(); verr != nil {
				metrics.RecordReasoning(metrics.StatusError, elapsed)
				return backoff.Permanent(verr)
			}
			metrics.RecordReasoning(metrics.StatusOK, elapsed)
			reply = r
			return nil
		case ctx.Err() != nil:
			metrics.RecordReasoning(metrics.StatusError, elapsed)
			return backoff.Permanent(ctx.Err())
		case errors.Is(err, domain.ErrRequestRejected), errors.Is(err, domain.ErrMalformedReply):
			metrics.RecordReasoning(metrics.StatusError, elapsed)
			return backoff.Permanent(err)
		default:
			metrics.RecordReasoning(metrics.StatusRetry, elapsed)
			return err
		}
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn("Reasoning service attempt %d failed, retrying in %s: %v", attempt, wait.Round(time.Millisecond), err)
	}

	err := backoff.RetryNotify(op, c.newBackOff(ctx), notify)
	if err == nil {
		return reply, nil
	}

	switch {
	case ctx.Err() != nil:
		return domain.Reply{}, ctx.Err()
	case errors.Is(err, domain.ErrMalformedReply):
		return domain.Reply{}, err
	default:
		logger.Error("Reasoning service unavailable after %d attempt(s): %v", attempt, err)
		return domain.Reply{}, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
}

func (c *reasoningCaller) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.policy.AttemptTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.policy.AttemptTimeout)
}
