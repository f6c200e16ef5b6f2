package watch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotRecorded is returned when the ledger holds no entry for a path.
var ErrNotRecorded = errors.New("path not recorded")

// Outcome is the result of the last conversion of a file.
type Outcome string

const (
	OutcomeConverted Outcome = "converted"
	OutcomeFailed    Outcome = "failed"
)

// Entry is the ledger row of one source file.
type Entry struct {
	Path      string
	Hash      string
	Format    string
	Dst       string
	Outcome   Outcome
	Error     string
	Shapes    int
	UpdatedAt time.Time
}

// Ledger records, per source file, the content hash and outcome of its last
// conversion in a SQLite database so that unchanged files are skipped across
// restarts.
type Ledger struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// OpenLedger opens or creates the ledger at path and runs pending
// migrations.
func OpenLedger(ctx context.Context, path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory; %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger; %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to configure ledger (%s); %w", pragma, err)
		}
	}

	l := &Ledger{db: db, path: path}
	if err := l.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations; %w", err)
	}
	return l, nil
}

// Path returns the database file path.
func (l *Ledger) Path() string {
	return l.path
}

// Close closes the database.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.db.Close()
}

// Get returns the entry of path.
func (l *Ledger) Get(ctx context.Context, path string) (*Entry, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT path, content_hash, format, dst, outcome, error, shapes, updated_at
		 FROM conversions WHERE path = ?`,
		filepath.Clean(path),
	)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s; %w", path, ErrNotRecorded)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger entry; %w", err)
	}
	return e, nil
}

// Record creates or replaces the entry of e.Path. A zero UpdatedAt is set to
// the current time.
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO conversions (path, content_hash, format, dst, outcome, error, shapes, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   content_hash = excluded.content_hash,
		   format = excluded.format,
		   dst = excluded.dst,
		   outcome = excluded.outcome,
		   error = excluded.error,
		   shapes = excluded.shapes,
		   updated_at = excluded.updated_at`,
		filepath.Clean(e.Path), e.Hash, e.Format, e.Dst, string(e.Outcome), e.Error, e.Shapes, e.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record conversion; %w", err)
	}
	return nil
}

// Forget removes the entry of path.
func (l *Ledger) Forget(ctx context.Context, path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	result, err := l.db.ExecContext(ctx, "DELETE FROM conversions WHERE path = ?", filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to forget %s; %w", path, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected; %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s; %w", path, ErrNotRecorded)
	}
	return nil
}

// List returns every entry ordered by path.
func (l *Ledger) List(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT path, content_hash, format, dst, outcome, error, shapes, updated_at
		 FROM conversions ORDER BY path`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger; %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry; %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger; %w", err)
	}
	return entries, nil
}

// SchemaVersion returns the highest applied migration.
func (l *Ledger) SchemaVersion(ctx context.Context) (int, error) {
	return l.currentVersion(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var (
		e       Entry
		outcome string
		updated int64
	)
	if err := row.Scan(&e.Path, &e.Hash, &e.Format, &e.Dst, &outcome, &e.Error, &e.Shapes, &updated); err != nil {
		return nil, err
	}
	e.Outcome = Outcome(outcome)
	e.UpdatedAt = time.Unix(0, updated)
	return &e, nil
}

func (l *Ledger) migrate(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table; %w", err)
	}

	current, err := l.currentVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current version; %w", err)
	}
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := l.runMigration(ctx, m); err != nil {
			return fmt.Errorf("failed to run migration %d (%s); %w", m.Version, m.Description, err)
		}
	}
	return nil
}

func (l *Ledger) currentVersion(ctx context.Context) (int, error) {
	var version int
	err := l.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func (l *Ledger) runMigration(ctx context.Context, m migration) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction; %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.Up); err != nil {
		return fmt.Errorf("failed to execute migration; %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
		m.Version, m.Description,
	); err != nil {
		return fmt.Errorf("failed to record migration; %w", err)
	}
	return tx.Commit()
}

type migration struct {
	Version     int
	Description string
	Up          string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Create conversions table",
		Up: `
			CREATE TABLE IF NOT EXISTS conversions (
				path TEXT PRIMARY KEY,
				content_hash TEXT NOT NULL,
				format TEXT NOT NULL,
				dst TEXT NOT NULL,
				outcome TEXT NOT NULL,
				error TEXT NOT NULL DEFAULT '',
				updated_at INTEGER NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_conversions_outcome ON conversions(outcome);
		`,
	},
	{
		Version:     2,
		Description: "Add shape count to conversions",
		Up:          `ALTER TABLE conversions ADD COLUMN shapes INTEGER NOT NULL DEFAULT 0;`,
	},
}
