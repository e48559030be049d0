// Package ledger records a historical audit trail of hulksema runs to a
// SQLite database. It is an append-only log, not a cache: every
// invocation of the CLI fully re-runs semantic.Check and then appends one
// row per bundle, never reads back a prior result to skip work.
package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Ledger wraps a SQLite connection holding the runs table.
type Ledger struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// applies the runs table migration.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger %s: %w", path, err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating ledger %s: %w", path, err)
	}
	return &Ledger{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		bundle TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		error_count INTEGER NOT NULL,
		typing_progress INTEGER NOT NULL,
		message TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_bundle_started_at ON runs (bundle, started_at DESC);
	`)
	return err
}

// Close closes the underlying database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Entry is a single recorded run of semantic.Check against one fixture
// bundle.
type Entry struct {
	RunID          string
	Bundle         string
	StartedAt      time.Time
	FinishedAt     time.Time
	ErrorCount     int
	TypingProgress int
	Message        string
}

// Record appends one entry to the ledger, tagging it with a fresh uuid as
// the run ID. It never mutates or removes a prior row.
func (l *Ledger) Record(bundle string, started, finished time.Time, errCount, progress int, message string) (Entry, error) {
	entry := Entry{
		RunID:          uuid.NewString(),
		Bundle:         bundle,
		StartedAt:      started,
		FinishedAt:     finished,
		ErrorCount:     errCount,
		TypingProgress: progress,
		Message:        message,
	}
	_, err := l.db.Exec(
		`INSERT INTO runs (id, bundle, started_at, finished_at, error_count, typing_progress, message) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID, entry.Bundle, entry.StartedAt.Unix(), entry.FinishedAt.Unix(), entry.ErrorCount, entry.TypingProgress, entry.Message,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("recording run for bundle %s: %w", bundle, err)
	}
	return entry, nil
}

// Recent returns the most recent n entries recorded for bundle, newest
// first. Used by the CLI's history view, never by Check itself.
func (l *Ledger) Recent(bundle string, n int) ([]Entry, error) {
	rows, err := l.db.Query(
		`SELECT id, bundle, started_at, finished_at, error_count, typing_progress, message FROM runs WHERE bundle = ? ORDER BY started_at DESC LIMIT ?`,
		bundle, n,
	)
	if err != nil {
		return nil, fmt.Errorf("querying history for bundle %s: %w", bundle, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var startedAt, finishedAt int64
		if err := rows.Scan(&e.RunID, &e.Bundle, &startedAt, &finishedAt, &e.ErrorCount, &e.TypingProgress, &e.Message); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		e.StartedAt = time.Unix(startedAt, 0).UTC()
		e.FinishedAt = time.Unix(finishedAt, 0).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
