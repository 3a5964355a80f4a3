package domain

import (
	"encoding/json"
	"sort"
)

// ParamType is the JSON type of a tool parameter.
type ParamType string

// Supported parameter types.
const (
	ParamString  ParamType = "string"
	ParamNumber  ParamType = "number"
	ParamInteger ParamType = "integer"
	ParamBoolean ParamType = "boolean"
)

// ParamSpec describes one tool parameter.
type ParamSpec struct {
	Type        ParamType
	Description string
	Required    bool
}

// ToolSpec advertises a tool to the reasoning service.
// Specs are registered once at startup and never change.
type ToolSpec struct {
	// Name is the unique key of the tool.
	Name string

	// Description tells the reasoning service when to use the tool.
	Description string

	// Parameters maps parameter name to its spec.
	Parameters map[string]ParamSpec
}

// RequiredParams returns the sorted names of required parameters.
func (s ToolSpec) RequiredParams() []string {
	var names []string
	for name, p := range s.Parameters {
		if p.Required {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// JSONSchema renders the parameters as a JSON Schema object, the form every
// reasoning service accepts for tool input.
func (s ToolSpec) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Parameters))
	for name, p := range s.Parameters {
		prop := map[string]any{"type": string(p.Type)}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		props[name] = prop
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if req := s.RequiredParams(); len(req) > 0 {
		schema["required"] = req
	}
	return schema
}

// ToolCallRequest is a reasoning-service request to run a named tool.
type ToolCallRequest struct {
	// ID correlates the request with its result.
	ID string

	// Name is the requested tool.
	Name string

	// Arguments are the decoded tool arguments.
	Arguments map[string]any
}

// Grounding records what a retrieval tool found.
type Grounding int

// Grounding values.
const (
	// GroundingNone marks tools that do not retrieve content.
	GroundingNone Grounding = iota

	// GroundingFound marks a retrieval with at least one hit above the floor.
	GroundingFound

	// GroundingEmpty marks a retrieval where nothing cleared the floor.
	GroundingEmpty

	// GroundingUnavailable marks a retrieval that could not run at all,
	// for example because the query could not be embedded.
	GroundingUnavailable
)

// ToolOutcome is the result of running a tool: either ToolOk or ToolError.
type ToolOutcome interface {
	isToolOutcome()
}

// ToolOk is a successful tool outcome.
type ToolOk struct {
	// Value is the structured result.
	Value map[string]any

	// Grounding is set by retrieval tools.
	Grounding Grounding
}

// ToolError is a tool-level failure reported back to the reasoning service.
type ToolError struct {
	Message string

	// Grounding is GroundingUnavailable when a retrieval tool failed.
	Grounding Grounding
}

func (ToolOk) isToolOutcome()    {}
func (ToolError) isToolOutcome() {}

// ToolCallResult carries a tool outcome back to the reasoning service.
type ToolCallResult struct {
	// RequestID echoes ToolCallRequest.ID.
	RequestID string

	// Outcome is the tagged result.
	Outcome ToolOutcome
}

// OkResult builds a successful result.
func OkResult(requestID string, value map[string]any) ToolCallResult {
	return ToolCallResult{RequestID: requestID, Outcome: ToolOk{Value: value}}
}

// ErrorResult builds a failed result.
func ErrorResult(requestID, message string) ToolCallResult {
	return ToolCallResult{RequestID: requestID, Outcome: ToolError{Message: message}}
}

// IsError reports whether the outcome is a ToolError.
func (r ToolCallResult) IsError() bool {
	_, ok := r.Outcome.(ToolError)
	return ok
}

// Grounding returns what the outcome says about retrieval.
func (r ToolCallResult) Grounding() Grounding {
	switch o := r.Outcome.(type) {
	case ToolOk:
		return o.Grounding
	case ToolError:
		return o.Grounding
	}
	return GroundingNone
}

// Payload serialises the outcome into the untyped form sent to the service.
// Errors become {"error": message}.
func (r ToolCallResult) Payload() map[string]any {
	switch o := r.Outcome.(type) {
	case ToolOk:
		if o.Value == nil {
			return map[string]any{}
		}
		return o.Value
	case ToolError:
		return map[string]any{"error": o.Message}
	default:
		return map[string]any{"error": "tool produced no result"}
	}
}

// Text renders the payload as JSON text.
func (r ToolCallResult) Text() string {
	data, err := json.Marshal(r.Payload())
	if err != nil {
		return `{"error":"unencodable tool result"}`
	}
	return string(data)
}
