package domain

import "time"

// AnswerState is a state of the orchestration protocol.
type AnswerState string

// Protocol states.
const (
	StateAwaitingResponse      AnswerState = "awaiting_response"
	StateToolRequested         AnswerState = "tool_requested"
	StateExecutingTool         AnswerState = "executing_tool"
	StateAwaitingFinalResponse AnswerState = "awaiting_final_response"
	StateDirectAnswer          AnswerState = "direct_answer"
	StateDegraded              AnswerState = "degraded"
)

// IsTerminal reports whether no further transition is possible.
func (s AnswerState) IsTerminal() bool {
	return s == StateDirectAnswer || s == StateDegraded
}

// DefaultTutorPrompt is the system prompt used when no custom prompt exists.
const DefaultTutorPrompt = `You are a helpful tutor for an astronomy course.
Answer questions using the course materials. Use the search_course_materials tool to find relevant sections before answering questions about course content, and use the calculation tools for numeric work.
If the search finds nothing relevant, say so plainly. Never invent course content.
Keep answers concise and cite the section titles you used.`

// User-visible degraded answers.
const (
	// MsgUnableToComplete is returned when the reasoning service cannot be
	// reached or misbehaves.
	MsgUnableToComplete = "I'm sorry, I was unable to complete this request. Please try again later."

	// MsgNoRelevantContent is returned when retrieval found nothing relevant.
	MsgNoRelevantContent = "Sorry, I couldn't find relevant information for your question in the course materials."

	// MsgToolLimitReached is returned when the tool-call bound is exceeded.
	MsgToolLimitReached = "I'm sorry, I couldn't finish working out an answer within the allowed number of steps."

	// MsgEmptyQuery is returned for blank questions.
	MsgEmptyQuery = "Please ask a question."
)

// ToolCallRecord summarises one executed tool call.
type ToolCallRecord struct {
	RequestID string
	Name      string
	IsError   bool
}

// Answer is the outcome of resolving one query.
// Text is always a coherent user-facing string.
type Answer struct {
	// Text is the final answer or a degraded message.
	Text string

	// State is the terminal protocol state.
	State AnswerState

	// Degraded is true when Text is a fallback rather than a service answer.
	Degraded bool

	// Reason explains a degraded answer. Nil for direct answers.
	Reason error

	// ToolCalls lists executed tools in order.
	ToolCalls []ToolCallRecord

	// Rounds is the number of reasoning-service round trips.
	Rounds int

	// Duration is the wall time spent resolving the query.
	Duration time.Duration
}

// QueryRecord is a persisted summary of one answered query.
type QueryRecord struct {
	ID        string
	Query     string
	Answer    string
	Degraded  bool
	ToolCalls int
	Rounds    int
	Duration  time.Duration
	CreatedAt time.Time
}

// IngestIssue explains why a document was excluded from the index.
type IngestIssue struct {
	URI    string
	Reason error
}

// IngestReport summarises one ingestion run.
type IngestReport struct {
	// Documents is the number of files found.
	Documents int

	// Indexed is the number of documents that contributed chunks.
	Indexed int

	// Chunks is the number of chunks in the rebuilt index.
	Chunks int

	// Skipped lists excluded documents with reasons.
	Skipped []IngestIssue

	// Stats is the index state after the build.
	Stats IndexStats
}
