package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/lumen/internal/core/domain"
	"github.com/custodia-labs/lumen/internal/core/ports/driven"
)

// historyStore implements driven.HistoryStore.
type historyStore struct {
	store *Store
}

var _ driven.HistoryStore = (*historyStore)(nil)

// Save stores or replaces a query record.
func (s *historyStore) Save(ctx context.Context, rec *domain.QueryRecord) error {
	if rec == nil || rec.ID == "" {
		return domain.ErrInvalidInput
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO query_history (id, query, answer, degraded, tool_calls, rounds, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			query = excluded.query,
			answer = excluded.answer,
			degraded = excluded.degraded,
			tool_calls = excluded.tool_calls,
			rounds = excluded.rounds,
			duration_ms = excluded.duration_ms,
			created_at = excluded.created_at
	`, rec.ID, rec.Query, rec.Answer, boolToInt(rec.Degraded), rec.ToolCalls, rec.Rounds,
		rec.Duration.Milliseconds(), createdAt.UnixNano())
	if err != nil {
		return fmt.Errorf("saving query record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *historyStore) Recent(ctx context.Context, limit int) ([]domain.QueryRecord, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, query, answer, degraded, tool_calls, rounds, duration_ms, created_at
		FROM query_history
		ORDER BY created_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	records := []domain.QueryRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}
	return records, nil
}

// Get retrieves a record by ID.
func (s *historyStore) Get(ctx context.Context, id string) (*domain.QueryRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, query, answer, degraded, tool_calls, rounds, duration_ms, created_at
		FROM query_history WHERE id = ?
	`, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return rec, err
}

// Clear removes all records.
func (s *historyStore) Clear(ctx context.Context) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM query_history"); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*domain.QueryRecord, error) {
	var (
		rec        domain.QueryRecord
		degraded   int
		durationMS int64
		createdAt  int64
	)
	err := row.Scan(&rec.ID, &rec.Query, &rec.Answer, &degraded, &rec.ToolCalls, &rec.Rounds, &durationMS, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning query record: %w", err)
	}
	rec.Degraded = degraded != 0
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	rec.CreatedAt = time.Unix(0, createdAt)
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
