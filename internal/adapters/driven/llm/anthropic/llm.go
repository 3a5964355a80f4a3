// Package anthropic provides a reasoning service adapter using the Anthropic
// messages API with tool use.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/lumen/internal/adapters/driven/llm"
	"github.com/custodia-labs/lumen/internal/core/domain"
	"github.com/custodia-labs/lumen/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.ReasoningService = (*LLMService)(nil)

const providerName = "anthropic"

// Default configuration values.
const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-haiku-latest"
	DefaultTimeout   = 120 * time.Second
	DefaultMaxTokens = 300

	// AnthropicVersion is the required API version header.
	anthropicVersion = "2023-06-01"
)

// Config holds configuration for the Anthropic LLM service.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the LLM model to use (default: claude-3-5-haiku-latest).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// LLMService provides reasoning using the Anthropic API.
type LLMService struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// messagesRequest is the Anthropic /v1/messages request format.
type messagesRequest struct {
	Model       string            `json:"model"`
	Messages    []messagesMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	System      string            `json:"system,omitempty"`
	Temperature float64           `json:"temperature"`
	Tools       []toolDefinition  `json:"tools,omitempty"`
}

// messagesMessage is the Anthropic message format.
type messagesMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

// contentBlock covers the text, tool_use and tool_result block types.
type contentBlock struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

type toolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// messagesResponse is the Anthropic /v1/messages response format.
type messagesResponse struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewLLMService creates a new Anthropic LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &LLMService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// Respond sends the conversation and returns either text or the first
// requested tool call.
func (s *LLMService) Respond(ctx context.Context, req driven.ReasoningRequest) (domain.Reply, error) {
	messages, err := toMessages(req.Turns)
	if err != nil {
		return domain.Reply{}, err
	}

	// Anthropic requires max_tokens to be set
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	reqBody := messagesRequest{
		Model:       s.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		System:      req.System,
		Temperature: req.Temperature,
	}
	for _, spec := range req.Tools {
		reqBody.Tools = append(reqBody.Tools, toolDefinition{
			Name:        spec.Name,
			Description: spec.Description,
			InputSchema: spec.JSONSchema(),
		})
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/v1/messages",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", s.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return domain.Reply{}, llm.StatusError(providerName, resp.StatusCode, body)
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(body, &msgResp); err != nil {
		return domain.Reply{}, llm.DecodeError(providerName, err)
	}
	if msgResp.Error != nil {
		return domain.Reply{}, fmt.Errorf("anthropic error: %s", msgResp.Error.Message)
	}

	return toReply(msgResp.Content)
}

// toMessages converts conversation turns to Anthropic messages. Tool results
// travel as user messages holding a tool_result block.
func toMessages(turns []domain.Turn) ([]messagesMessage, error) {
	messages := make([]messagesMessage, 0, len(turns))
	for _, turn := range turns {
		switch {
		case turn.ToolCall != nil:
			input, err := json.Marshal(argumentsOrEmpty(turn.ToolCall.Arguments))
			if err != nil {
				return nil, fmt.Errorf("marshal tool input: %w", err)
			}
			messages = append(messages, messagesMessage{
				Role: "assistant",
				Content: []contentBlock{{
					Type:  "tool_use",
					ID:    turn.ToolCall.ID,
					Name:  turn.ToolCall.Name,
					Input: input,
				}},
			})
		case turn.ToolResult != nil:
			messages = append(messages, messagesMessage{
				Role: "user",
				Content: []contentBlock{{
					Type:      "tool_result",
					ToolUseID: turn.ToolResult.RequestID,
					Content:   turn.ToolResult.Text(),
					IsError:   turn.ToolResult.IsError(),
				}},
			})
		default:
			messages = append(messages, messagesMessage{
				Role:    string(turn.Role),
				Content: []contentBlock{{Type: "text", Text: turn.Text}},
			})
		}
	}
	return messages, nil
}

// toReply prefers the first tool_use block and otherwise concatenates text.
// Later tool_use blocks are dropped; the next round resends only the kept one.
func toReply(blocks []contentBlock) (domain.Reply, error) {
	if len(blocks) == 0 {
		return domain.Reply{}, llm.Malformed(providerName, "no response content returned")
	}

	var text strings.Builder
	for _, block := range blocks {
		switch block.Type {
		case "tool_use":
			args := map[string]any{}
			if len(block.Input) > 0 && string(block.Input) != "null" {
				if err := json.Unmarshal(block.Input, &args); err != nil {
					return domain.Reply{}, llm.DecodeError(providerName, err)
				}
			}
			return domain.Reply{ToolCall: &domain.ToolCallRequest{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: args,
			}}, nil
		case "text":
			text.WriteString(block.Text)
		}
	}
	return domain.Reply{Text: text.String()}, nil
}

func argumentsOrEmpty(args map[string]any) map[string]any {
	if args == nil {
		return map[string]any{}
	}
	return args
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /v1/models endpoint.
// This is a lightweight check that validates the API key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("anthropic: failed to create ping request: %w", err)
	}
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("anthropic: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("anthropic: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("anthropic: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
