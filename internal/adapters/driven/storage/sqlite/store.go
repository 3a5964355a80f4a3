package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/custodia-labs/lumen/internal/core/ports/driven"
)

//go:embed schema/*.sql
var schemaFiles embed.FS

const dbFile = "lumen.db"

// Store owns the lumen database file.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens dataDir/lumen.db, creating the directory and applying any
// pending schema steps. An empty dataDir means ~/.lumen/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".lumen", "data")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	path := filepath.Join(dataDir, dbFile)
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	s := &Store{db: db, path: path}
	steps, err := loadSchema()
	if err == nil {
		err = s.upgrade(context.Background(), steps)
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("upgrade schema: %w", err)
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// HistoryStore returns the query history table as a driven.HistoryStore.
func (s *Store) HistoryStore() driven.HistoryStore {
	return &historyStore{store: s}
}

// SchemaVersion reports the last schema step applied to the file.
func (s *Store) SchemaVersion() (int, error) {
	return currentVersion(context.Background(), s.db)
}

// schemaStep is one numbered NNN_name.up.sql file.
type schemaStep struct {
	version int
	name    string
	sql     string
}

// loadSchema reads the embedded up scripts ordered by their numeric prefix.
// A file without a numeric prefix is an error rather than silently skipped.
func loadSchema() ([]schemaStep, error) {
	names, err := fs.Glob(schemaFiles, "schema/*.up.sql")
	if err != nil {
		return nil, err
	}

	steps := make([]schemaStep, 0, len(names))
	seen := make(map[int]string, len(names))
	for _, name := range names {
		base := filepath.Base(name)
		prefix, _, ok := strings.Cut(base, "_")
		if !ok {
			return nil, fmt.Errorf("schema file %s: missing version prefix", base)
		}
		version, err := strconv.Atoi(prefix)
		if err != nil || version <= 0 {
			return nil, fmt.Errorf("schema file %s: bad version %q", base, prefix)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("schema files %s and %s share version %d", prev, base, version)
		}
		seen[version] = base

		body, err := fs.ReadFile(schemaFiles, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", base, err)
		}
		steps = append(steps, schemaStep{version: version, name: base, sql: string(body)})
	}

	slices.SortFunc(steps, func(a, b schemaStep) int { return a.version - b.version })
	return steps, nil
}

// upgrade applies every step newer than the recorded version inside a single
// transaction, so a failure leaves the file at its previous version.
func (s *Store) upgrade(ctx context.Context, steps []schemaStep) error {
	const ledger = `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := s.db.ExecContext(ctx, ledger); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	have, err := currentVersion(ctx, s.db)
	if err != nil {
		return err
	}
	pending := slices.DeleteFunc(slices.Clone(steps), func(st schemaStep) bool { return st.version <= have })
	if len(pending) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, st := range pending {
		if _, err := tx.ExecContext(ctx, st.sql); err != nil {
			return fmt.Errorf("apply %s: %w", st.name, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", st.version); err != nil {
			return fmt.Errorf("record %s: %w", st.name, err)
		}
	}
	return tx.Commit()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func currentVersion(ctx context.Context, q queryer) (int, error) {
	var v int
	if err := q.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}
