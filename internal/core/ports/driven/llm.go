package driven

import (
	"context"

	"github.com/custodia-labs/lumen/internal/core/domain"
)

// ReasoningService is a remote language model that can either answer
// directly or ask for a tool to be run.
//
// Implementations may include:
//   - Anthropic (Claude messages API, tool_use blocks)
//   - OpenAI (chat completions, tool_calls)
//   - Ollama (local models with tool support)
//
// Respond must return an error wrapping domain.ErrRequestRejected for
// requests the service refused outright, and domain.ErrMalformedReply for
// responses that could not be decoded. Any other error is treated as
// transient.
type ReasoningService interface {
	// Respond sends the conversation and returns the next reply.
	Respond(ctx context.Context, req ReasoningRequest) (domain.Reply, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ReasoningRequest is one round trip to the reasoning service.
type ReasoningRequest struct {
	// System is the system prompt.
	System string

	// Turns is the conversation so far, in causal order.
	Turns []domain.Turn

	// Tools are the tools the service may request.
	Tools []domain.ToolSpec

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}
