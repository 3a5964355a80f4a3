package driven

import (
	"context"

	"github.com/custodia-labs/lumen/internal/core/domain"
)

// HistoryStore persists answered queries.
type HistoryStore interface {
	// Save records a query.
	Save(ctx context.Context, rec *domain.QueryRecord) error

	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]domain.QueryRecord, error)

	// Get retrieves a record by ID.
	// Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.QueryRecord, error)

	// Clear removes all records.
	Clear(ctx context.Context) error
}
