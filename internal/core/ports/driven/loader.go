package driven

import (
	"context"

	"github.com/custodia-labs/lumen/internal/core/domain"
)

// DocumentLoader reads the corpus from its storage location.
type DocumentLoader interface {
	// Load returns every matching document in a stable order.
	// Unreadable files are reported through the returned issues rather than
	// failing the whole load.
	Load(ctx context.Context) ([]*domain.Document, []domain.IngestIssue, error)

	// Location describes where documents are read from.
	Location() string
}

// CorpusWatcher reports changes to the corpus location.
type CorpusWatcher interface {
	// Watch calls onChange after the corpus settles following a change.
	// It blocks until ctx is cancelled.
	Watch(ctx context.Context, onChange func()) error
}
