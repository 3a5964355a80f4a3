package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider or backend type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the reasoning service could not be reached
	// or is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured
	// or failed to produce a vector.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrSearchUnavailable indicates retrieval could not run, usually because
	// the query could not be embedded.
	ErrSearchUnavailable = errors.New("search unavailable")

	// Ingestion Errors.

	// ErrEmptyDocument indicates a document has no content.
	ErrEmptyDocument = errors.New("empty document")

	// ErrMalformedDocument indicates a document is binary or has no headers.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrNoUsableChunks indicates a document produced zero chunks above the
	// minimum length. It is a configuration error for that document.
	ErrNoUsableChunks = errors.New("no usable chunks")

	// ErrNoDocuments indicates the corpus location holds no matching documents.
	ErrNoDocuments = errors.New("no documents found")

	// Index Errors.

	// ErrIndexNotBuilt indicates Search was called before Build completed.
	ErrIndexNotBuilt = errors.New("index not built")

	// ErrDimensionMismatch indicates vectors of different lengths were mixed.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmbeddingModelMismatch indicates the query embedder differs from the
	// one used to build the index.
	ErrEmbeddingModelMismatch = errors.New("embedding model mismatch")

	// Tool Errors.

	// ErrDuplicateTool indicates a tool name was registered twice.
	ErrDuplicateTool = errors.New("duplicate tool")

	// ErrUnknownTool indicates a requested tool is not registered.
	ErrUnknownTool = errors.New("unknown tool")

	// Protocol Errors.

	// ErrMalformedReply indicates the reasoning service replied with neither
	// text nor a valid tool request.
	ErrMalformedReply = errors.New("malformed reply")

	// ErrToolLimitReached indicates the reasoning service kept requesting tools
	// past the per-query bound.
	ErrToolLimitReached = errors.New("tool call limit reached")

	// ErrNoRelevantContent indicates retrieval found nothing above the
	// relevance floor, so the answer was replaced.
	ErrNoRelevantContent = errors.New("no relevant content")

	// ErrTurnOrder indicates a conversation turn was appended out of causal order.
	ErrTurnOrder = errors.New("conversation turn out of order")

	// ErrRequestRejected indicates the remote service refused the request
	// (bad credentials, bad payload). These are not retried.
	ErrRequestRejected = errors.New("request rejected")
)
