package domain

import (
	"fmt"
	"strings"
)

// Reply is one response of the reasoning service: final text or a tool request.
type Reply struct {
	Text     string
	ToolCall *ToolCallRequest
}

// IsToolCall reports whether the service asked for a tool.
func (r Reply) IsToolCall() bool {
	return r.ToolCall != nil
}

// Validate rejects replies that carry neither usable text nor a named tool.
func (r Reply) Validate() error {
	if r.ToolCall != nil {
		if strings.TrimSpace(r.ToolCall.Name) == "" {
			return fmt.Errorf("%w: tool request without a name", ErrMalformedReply)
		}
		return nil
	}
	if strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("%w: empty reply", ErrMalformedReply)
	}
	return nil
}
