package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/lumen/internal/core/domain"
	"github.com/custodia-labs/lumen/internal/core/ports/driving"
	"github.com/custodia-labs/lumen/internal/logger"
	"github.com/custodia-labs/lumen/internal/metrics"
)

// Ensure ToolRegistry implements the interface.
var _ driving.ToolRegistry = (*ToolRegistry)(nil)

// ToolRegistry maps tool names to their specs and implementations.
// Tools are registered at startup; afterwards the registry is read-only.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]driving.Tool
}

// NewToolRegistry creates an empty tool registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]driving.Tool),
	}
}

// Register adds a tool. A name may only be registered once.
func (r *ToolRegistry) Register(tool driving.Tool) error {
	name := strings.TrimSpace(tool.Spec.Name)
	if name == "" {
		return fmt.Errorf("%w: tool name is required", domain.ErrInvalidInput)
	}
	if tool.Func == nil {
		return fmt.Errorf("%w: tool %s has no implementation", domain.ErrInvalidInput, name)
	}
	for param, p := range tool.Spec.Parameters {
		switch p.Type {
		case domain.ParamString, domain.ParamNumber, domain.ParamInteger, domain.ParamBoolean:
		default:
			return fmt.Errorf("%w: tool %s parameter %s has type %q", domain.ErrInvalidInput, name, param, p.Type)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateTool, name)
	}
	r.tools[name] = tool
	logger.Debug("Registered tool %s", name)
	return nil
}

// MustRegister registers all tools and panics on the first failure.
// Use it for the fixed built-in tool set at startup.
func (r *ToolRegistry) MustRegister(tools ...driving.Tool) {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Get returns the tool with the given name.
func (r *ToolRegistry) Get(name string) (driving.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all tool specs sorted by name.
func (r *ToolRegistry) List() []domain.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]domain.ToolSpec, 0, len(r.tools))
	for _, t := range r.tools {
		specs = append(specs, t.Spec)
	}
	sort.Slice(specs, func(i, j int) bool {
		return specs[i].Name < specs[j].Name
	})
	return specs
}

// Call runs a tool by name. Unknown tools, bad arguments and panics inside
// a tool become ToolError outcomes. Only systemic failures reported by the
// tool itself are returned as errors.
func (r *ToolRegistry) Call(ctx context.Context, req domain.ToolCallRequest) (domain.ToolCallResult, error) {
	tool, ok := r.Get(req.Name)
	if !ok {
		logger.Warn("Unknown tool requested: %s", req.Name)
		metrics.RecordToolCall("unknown", metrics.StatusError)
		return domain.ErrorResult(req.ID, "unknown tool "+req.Name), nil
	}

	if msg := validateArgs(tool.Spec, req.Arguments); msg != "" {
		logger.Debug("Tool %s rejected arguments: %s", req.Name, msg)
		metrics.RecordToolCall(req.Name, metrics.StatusError)
		return domain.ErrorResult(req.ID, msg), nil
	}

	outcome, err := invoke(ctx, tool, req.Arguments)
	if err != nil {
		metrics.RecordToolCall(req.Name, metrics.StatusError)
		return domain.ErrorResult(req.ID, fmt.Sprintf("tool %s failed", req.Name)), fmt.Errorf("tool %s: %w", req.Name, err)
	}
	if outcome == nil {
		outcome = domain.ToolError{Message: fmt.Sprintf("tool %s returned no result", req.Name)}
	}

	result := domain.ToolCallResult{RequestID: req.ID, Outcome: outcome}
	status := metrics.StatusOK
	if result.IsError() {
		status = metrics.StatusError
	}
	metrics.RecordToolCall(req.Name, status)
	return result, nil
}

// invoke runs the tool and turns a panic into a ToolError.
func invoke(ctx context.Context, tool driving.Tool, args map[string]any) (outcome domain.ToolOutcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Tool %s panicked: %v", tool.Spec.Name, rec)
			outcome = domain.ToolError{Message: fmt.Sprintf("tool %s failed unexpectedly", tool.Spec.Name)}
			err = nil
		}
	}()
	if args == nil {
		args = map[string]any{}
	}
	return tool.Func(ctx, args)
}

// validateArgs checks required presence and declared types.
// It returns a message for the reasoning service, or "" when valid.
func validateArgs(spec domain.ToolSpec, args map[string]any) string {
	for _, name := range spec.RequiredParams() {
		if v, ok := args[name]; !ok || v == nil {
			return fmt.Sprintf("missing required argument %q", name)
		}
	}

	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p, declared := spec.Parameters[name]
		if !declared || args[name] == nil {
			continue
		}
		if !matchesType(p.Type, args[name]) {
			return fmt.Sprintf("argument %q must be %s", name, typeNoun(p.Type))
		}
	}
	return ""
}

func typeNoun(t domain.ParamType) string {
	if t == domain.ParamInteger {
		return "an integer"
	}
	return "a " + string(t)
}

func matchesType(t domain.ParamType, v any) bool {
	switch t {
	case domain.ParamString:
		_, ok := v.(string)
		return ok
	case domain.ParamBoolean:
		_, ok := v.(bool)
		return ok
	case domain.ParamNumber:
		_, ok := toFloat(v)
		return ok
	case domain.ParamInteger:
		f, ok := toFloat(v)
		return ok && f == math.Trunc(f)
	default:
		return false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
