package driving

import (
	"context"

	"github.com/custodia-labs/lumen/internal/core/domain"
)

// ToolFunc executes a tool. Bad arguments and domain failures are returned
// as a domain.ToolError outcome. The error return is reserved for failures
// of the system itself, such as an unbuilt index or a cancelled context.
type ToolFunc func(ctx context.Context, args map[string]any) (domain.ToolOutcome, error)

// Tool pairs a spec with its implementation.
type Tool struct {
	Spec domain.ToolSpec
	Func ToolFunc
}

// ToolRegistry holds the tools available to the orchestrator.
type ToolRegistry interface {
	// Register adds a tool. Returns domain.ErrDuplicateTool if the name exists.
	Register(tool Tool) error

	// Get returns the tool with the given name.
	Get(name string) (Tool, bool)

	// List returns all tool specs sorted by name.
	List() []domain.ToolSpec

	// Call runs a tool by name. Unknown names produce a ToolError outcome.
	Call(ctx context.Context, req domain.ToolCallRequest) (domain.ToolCallResult, error)
}
