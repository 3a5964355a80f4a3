package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/lumen/internal/core/domain"
)

// defaultSearchLimit is used when the caller omits top_k.
const defaultSearchLimit = domain.DefaultTopK

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the course material"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer    string   `json:"answer"`
	Degraded  bool     `json:"degraded"`
	State     string   `json:"state"`
	Reason    string   `json:"reason,omitempty"`
	ToolCalls []string `json:"tool_calls,omitempty"`
	Rounds    int      `json:"rounds"`
}

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the text to search the course material for"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"maximum number of sections to return (default 3)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search hit.
type SearchResultOutput struct {
	ChunkID int     `json:"chunk_id"`
	Source  string  `json:"source"`
	Section string  `json:"section"`
	Score   float64 `json:"score"`
	Text    string  `json:"text"`
}

// ListToolsInput is the (empty) input schema for the list_tools tool.
type ListToolsInput struct{}

// ListToolsOutput is the output schema for the list_tools tool.
type ListToolsOutput struct {
	Tools []ToolOutput `json:"tools"`
}

// ToolOutput describes one registered tool.
type ToolOutput struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// CallToolInput is the input schema for the call_tool tool.
type CallToolInput struct {
	Name      string         `json:"name" jsonschema:"the registered tool to run"`
	Arguments map[string]any `json:"arguments,omitempty" jsonschema:"arguments for the tool"`
}

// CallToolOutput is the output schema for the call_tool tool.
type CallToolOutput struct {
	IsError bool           `json:"is_error"`
	Result  map[string]any `json:"result"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Ask the course tutor a question; it searches the material and runs calculations as needed",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search the course material for the most similar sections",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_tools",
		Description: "List the tools the tutor can run",
	}, s.handleListTools)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "call_tool",
		Description: "Run one of the tutor's tools directly",
	}, s.handleCallTool)
}

// handleAsk resolves a question through the answer service.
// Degraded answers are returned as output, not as tool errors.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if s.ports.Answer == nil {
		return nil, AskOutput{}, ErrAnswerDisabled
	}

	ans, err := s.ports.Answer.Answer(ctx, input.Question)

	output := AskOutput{
		Answer:   ans.Text,
		Degraded: ans.Degraded,
		State:    string(ans.State),
		Rounds:   ans.Rounds,
	}
	if err != nil {
		output.Reason = err.Error()
	} else if ans.Reason != nil {
		output.Reason = ans.Reason.Error()
	}
	for _, call := range ans.ToolCalls {
		output.ToolCalls = append(output.ToolCalls, call.Name)
	}

	return nil, output, nil
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.TopK
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	hits, err := s.ports.Search.Search(ctx, strings.TrimSpace(input.Query), limit)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(hits)),
		Count:   len(hits),
	}

	for i := range hits {
		output.Results[i] = SearchResultOutput{
			ChunkID: hits[i].Chunk.ID,
			Source:  hits[i].Chunk.Source,
			Section: hits[i].Chunk.SectionTitle,
			Score:   hits[i].Score,
			Text:    hits[i].Chunk.Text,
		}
	}

	return nil, output, nil
}

// handleListTools returns the registered tool specs.
func (s *Server) handleListTools(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ListToolsInput,
) (*mcp.CallToolResult, ListToolsOutput, error) {
	specs := s.ports.Tools.List()
	output := ListToolsOutput{Tools: make([]ToolOutput, len(specs))}
	for i, spec := range specs {
		output.Tools[i] = ToolOutput{
			Name:        spec.Name,
			Description: spec.Description,
			InputSchema: spec.JSONSchema(),
		}
	}
	return nil, output, nil
}

// handleCallTool runs a registered tool. Tool-level failures come back as
// is_error output; only system failures are returned as errors.
func (s *Server) handleCallTool(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CallToolInput,
) (*mcp.CallToolResult, CallToolOutput, error) {
	args := input.Arguments
	if args == nil {
		args = map[string]any{}
	}

	result, err := s.ports.Tools.Call(ctx, domain.ToolCallRequest{
		Name:      strings.TrimSpace(input.Name),
		Arguments: args,
	})
	if err != nil {
		return nil, CallToolOutput{}, err
	}

	return nil, CallToolOutput{
		IsError: result.IsError(),
		Result:  result.Payload(),
	}, nil
}
