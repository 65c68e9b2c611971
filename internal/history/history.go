// Package history keeps a per-run log in SQLite: one row per processed
// target per invocation, with counts and outcome. The CLI reads it back for
// --history.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Run statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Run records one target's processing during one invocation.
type Run struct {
	ID        int64
	Target    string
	StartedAt time.Time
	Duration  time.Duration
	Fetched   int
	Kept      int
	Written   int
	Status    string
	Error     string
}

// Store is the run-history database.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the history database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}

	return &Store{db: db}, nil
}

// Initialize creates the schema if it doesn't exist.
func (s *Store) Initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		target TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		duration_ms INTEGER NOT NULL,
		fetched INTEGER NOT NULL,
		kept INTEGER NOT NULL,
		written INTEGER NOT NULL,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_runs_target ON runs(target, started_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun appends one run record.
func (s *Store) SaveRun(run *Run) error {
	query := `
	INSERT INTO runs (target, started_at, duration_ms, fetched, kept, written, status, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := s.db.Exec(query,
		run.Target, run.StartedAt, run.Duration.Milliseconds(),
		run.Fetched, run.Kept, run.Written, run.Status, run.Error)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		run.ID = id
	}
	return nil
}

// RecentRuns returns the most recent runs across all targets, newest first.
func (s *Store) RecentRuns(limit int) ([]*Run, error) {
	query := `
	SELECT id, target, started_at, duration_ms, fetched, kept, written, status, error
	FROM runs
	ORDER BY started_at DESC, id DESC
	LIMIT ?
	`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// LastRun returns the most recent run for one target, or nil when the target
// has never run.
func (s *Store) LastRun(target string) (*Run, error) {
	query := `
	SELECT id, target, started_at, duration_ms, fetched, kept, written, status, error
	FROM runs
	WHERE target = ?
	ORDER BY started_at DESC, id DESC
	LIMIT 1
	`

	rows, err := s.db.Query(query, target)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return runs[0], nil
}

func scanRuns(rows *sql.Rows) ([]*Run, error) {
	var runs []*Run
	for rows.Next() {
		var run Run
		var durationMS int64
		if err := rows.Scan(&run.ID, &run.Target, &run.StartedAt, &durationMS,
			&run.Fetched, &run.Kept, &run.Written, &run.Status, &run.Error); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	return runs, nil
}
