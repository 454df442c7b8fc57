// Package journal keeps an audit log of dispatched bridge commands in SQLite.
package journal

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"
	_ "modernc.org/sqlite"
)

// Status is the lifecycle state of a journaled command.
type Status string

const (
	StatusDispatched Status = "dispatched"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusTimedOut   Status = "timed_out"
)

var ErrNotFound = errors.New("command not found")

// Entry is one journaled command. The script itself is not stored, only its
// hash; payloads can hold media paths the audit log has no business keeping.
type Entry struct {
	ID          string
	Operation   string
	ScriptHash  string
	Status      Status
	CreatedAt   time.Time
	CompletedAt *time.Time
	DurationMS  *int64
	LastError   *string
}

// Journal records command lifecycle rows.
type Journal struct {
	db *sql.DB
}

// Open opens (and creates if needed) the journal database at path and
// ensures required tables exist.
func Open(ctx context.Context, path string) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("journal path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if err := bootstrap(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

func bootstrap(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS command_log (
  id           TEXT PRIMARY KEY,
  operation    TEXT NOT NULL,
  script_hash  TEXT NOT NULL,
  status       TEXT NOT NULL,
  created_at   TEXT NOT NULL,
  completed_at TEXT,
  duration_ms  INTEGER,
  last_error   TEXT
);`,
		`CREATE INDEX IF NOT EXISTS command_log_status_created_at_idx ON command_log(status, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap journal: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// HashScript computes the hex BLAKE3 digest of a script body.
func HashScript(script string) string {
	sum := blake3.Sum256([]byte(script))
	return hex.EncodeToString(sum[:])
}

// Begin records a freshly dispatched command.
func (j *Journal) Begin(ctx context.Context, id, operation, script string) error {
	if id == "" {
		return fmt.Errorf("command id is empty")
	}
	if operation == "" {
		operation = "execute"
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := j.db.ExecContext(ctx, `
INSERT INTO command_log(id, operation, script_hash, status, created_at)
VALUES(?, ?, ?, ?, ?);
`, id, operation, HashScript(script), StatusDispatched, now)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	return nil
}

// Complete marks a command terminal.
func (j *Journal) Complete(ctx context.Context, id string, status Status, lastError *string, elapsed time.Duration) error {
	if id == "" {
		return fmt.Errorf("command id is empty")
	}
	if status != StatusSucceeded && status != StatusFailed && status != StatusTimedOut {
		return fmt.Errorf("invalid terminal status: %q", status)
	}

	completedAt := time.Now().UTC().Format(time.RFC3339Nano)
	durationMS := elapsed.Milliseconds()

	res, err := j.db.ExecContext(ctx, `
UPDATE command_log
SET status = ?, completed_at = ?, duration_ms = ?, last_error = ?
WHERE id = ?;
`, status, completedAt, durationMS, lastError, id)
	if err != nil {
		return fmt.Errorf("journal complete: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns one entry by command id.
func (j *Journal) Get(ctx context.Context, id string) (*Entry, error) {
	row := j.db.QueryRowContext(ctx, `
SELECT id, operation, script_hash, status, created_at, completed_at, duration_ms, last_error
FROM command_log
WHERE id = ?;
`, id)

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("journal get: %w", err)
	}
	return entry, nil
}

// Recent returns the newest entries, most recent first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := j.db.QueryContext(ctx, `
SELECT id, operation, script_hash, status, created_at, completed_at, duration_ms, last_error
FROM command_log
ORDER BY created_at DESC, rowid DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal recent: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("journal recent: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// InFlight counts commands that were dispatched but have no terminal row yet.
func (j *Journal) InFlight(ctx context.Context) (int, error) {
	var n int
	err := j.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM command_log WHERE status = ?;
`, StatusDispatched).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("journal in-flight count: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		e            Entry
		statusS      string
		createdAtS   string
		completedAtS sql.NullString
		durationMS   sql.NullInt64
		lastError    sql.NullString
	)
	if err := row.Scan(&e.ID, &e.Operation, &e.ScriptHash, &statusS, &createdAtS, &completedAtS, &durationMS, &lastError); err != nil {
		return nil, err
	}

	e.Status = Status(statusS)
	if t, err := time.Parse(time.RFC3339Nano, createdAtS); err == nil {
		e.CreatedAt = t
	}
	if completedAtS.Valid {
		if t, err := time.Parse(time.RFC3339Nano, completedAtS.String); err == nil {
			e.CompletedAt = &t
		}
	}
	if durationMS.Valid {
		e.DurationMS = &durationMS.Int64
	}
	if lastError.Valid {
		e.LastError = &lastError.String
	}
	return &e, nil
}
