package domain

import "fmt"

// Role identifies who produced a turn.
type Role string

// Conversation roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Turn is a single entry of a conversation.
// Exactly one of Text, ToolCall, ToolResult is meaningful, depending on Role
// and whether the assistant requested a tool.
type Turn struct {
	Role       Role
	Text       string
	ToolCall   *ToolCallRequest
	ToolResult *ToolCallResult
}

// Conversation is the ordered, append-only history of one query.
// It is owned by a single Answer call and never shared.
type Conversation struct {
	turns []Turn
}

// NewConversation starts a conversation with the user's query.
func NewConversation(query string) *Conversation {
	return &Conversation{turns: []Turn{{Role: RoleUser, Text: query}}}
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	return len(c.turns)
}

// Turns returns a copy of the turns in causal order.
func (c *Conversation) Turns() []Turn {
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Pending returns the tool request still waiting for its result, if any.
func (c *Conversation) Pending() *ToolCallRequest {
	if len(c.turns) == 0 {
		return nil
	}
	last := c.turns[len(c.turns)-1]
	if last.Role == RoleAssistant && last.ToolCall != nil {
		return last.ToolCall
	}
	return nil
}

// AppendToolCall records the assistant's tool request.
// A request may not follow another unanswered request.
func (c *Conversation) AppendToolCall(req ToolCallRequest) error {
	if p := c.Pending(); p != nil {
		return fmt.Errorf("%w: request %q still awaits its result", ErrTurnOrder, p.ID)
	}
	c.turns = append(c.turns, Turn{Role: RoleAssistant, ToolCall: &req})
	return nil
}

// AppendToolResult records a tool result. It must directly follow the
// request with the same id.
func (c *Conversation) AppendToolResult(res ToolCallResult) error {
	p := c.Pending()
	if p == nil {
		return fmt.Errorf("%w: result %q has no pending request", ErrTurnOrder, res.RequestID)
	}
	if p.ID != res.RequestID {
		return fmt.Errorf("%w: result %q does not match request %q", ErrTurnOrder, res.RequestID, p.ID)
	}
	c.turns = append(c.turns, Turn{Role: RoleTool, ToolResult: &res})
	return nil
}

// AppendAssistantText records a final assistant answer.
func (c *Conversation) AppendAssistantText(text string) error {
	if p := c.Pending(); p != nil {
		return fmt.Errorf("%w: request %q still awaits its result", ErrTurnOrder, p.ID)
	}
	c.turns = append(c.turns, Turn{Role: RoleAssistant, Text: text})
	return nil
}
