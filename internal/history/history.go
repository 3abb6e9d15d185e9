// Package history records every runner outcome in a SQLite database so
// users can audit past runs. Writes are best-effort: the runner never
// fails a job because history could not be recorded.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration
)

const busyTimeoutMS = 5000

// Outcome mirrors the runner's per-job result classification.
type Outcome string

const (
	OutcomeRan    Outcome = "ran"
	OutcomeFailed Outcome = "failed"
)

// Run is one recorded execution.
type Run struct {
	QualifiedID string
	Outcome     Outcome
	Scheduled   bool
	Started     time.Time
	Duration    time.Duration
	Error       string
}

// Store appends and queries run records.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the history database at the given path.
// The database uses WAL mode, a 5 s busy timeout, and a single
// connection (SQLite serialises writes).
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("history: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.TODO()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeoutMS)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: set busy_timeout: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.ExecContext(context.TODO(), `
		CREATE TABLE IF NOT EXISTS runs (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			qualified_id TEXT NOT NULL,
			outcome      TEXT NOT NULL,
			scheduled    INTEGER NOT NULL,
			started_at   TEXT NOT NULL,
			duration_ms  INTEGER NOT NULL,
			error        TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_runs_qid ON runs(qualified_id, id);`)
	if err != nil {
		return fmt.Errorf("history: migrate schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Append records one run.
func (s *Store) Append(r Run) error {
	scheduled := 0
	if r.Scheduled {
		scheduled = 1
	}
	_, err := s.db.ExecContext(context.TODO(), `
		INSERT INTO runs (qualified_id, outcome, scheduled, started_at, duration_ms, error)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.QualifiedID, string(r.Outcome), scheduled,
		r.Started.UTC().Format(time.RFC3339), r.Duration.Milliseconds(), r.Error,
	)
	if err != nil {
		return fmt.Errorf("history: append run: %w", err)
	}
	return nil
}

// Recent returns the n most recent runs, newest first, optionally
// filtered to one qualified id (empty id means all jobs).
func (s *Store) Recent(qualifiedID string, n int) ([]Run, error) {
	if n <= 0 {
		n = 20
	}

	query := `
		SELECT qualified_id, outcome, scheduled, started_at, duration_ms, error
		FROM runs`
	args := []any{}
	if qualifiedID != "" {
		query += " WHERE qualified_id = ?"
		args = append(args, qualifiedID)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, n)

	rows, err := s.db.QueryContext(context.TODO(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Run
	for rows.Next() {
		var (
			r         Run
			outcome   string
			scheduled int
			started   string
			durMS     int64
		)
		if err := rows.Scan(&r.QualifiedID, &outcome, &scheduled, &started, &durMS, &r.Error); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		r.Outcome = Outcome(outcome)
		r.Scheduled = scheduled != 0
		r.Duration = time.Duration(durMS) * time.Millisecond
		if ts, err := time.Parse(time.RFC3339, started); err == nil {
			r.Started = ts
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate runs: %w", err)
	}
	return out, nil
}
