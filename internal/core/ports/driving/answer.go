package driving

import (
	"context"

	"github.com/custodia-labs/lumen/internal/core/domain"
)

// AnswerService resolves a user query, running tools as requested by the
// reasoning service.
type AnswerService interface {
	// Answer always returns a user-facing answer. A non-nil error means the
	// answer is degraded because of a system failure (unreachable service,
	// unbuilt index, cancellation) and Answer.Reason carries the same error.
	Answer(ctx context.Context, query string) (domain.Answer, error)
}

// HistoryService exposes past queries.
type HistoryService interface {
	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]domain.QueryRecord, error)

	// Get retrieves one record.
	Get(ctx context.Context, id string) (*domain.QueryRecord, error)

	// Clear removes all records.
	Clear(ctx context.Context) error
}
