package db

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store and applies migrations
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS scan_runs (
			id TEXT PRIMARY KEY,
			root TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			finished_at DATETIME NOT NULL,
			total INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS scan_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			path TEXT NOT NULL,
			analyzer TEXT NOT NULL,
			ecosystem TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL DEFAULT '',
			version TEXT NOT NULL DEFAULT '',
			display_label TEXT NOT NULL DEFAULT '',
			license TEXT NOT NULL DEFAULT '',
			evidence TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_scan_results_run ON scan_results(run_id)`,
	}
	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts or updates a scan run
func (s *SQLiteStore) SaveRun(run Run) error {
	query := `INSERT INTO scan_runs (id, root, started_at, finished_at, total, failed) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET finished_at = excluded.finished_at, total = excluded.total, failed = excluded.failed`
	_, err := s.db.Exec(query, run.ID, run.Root, run.StartedAt, run.FinishedAt, run.Total, run.Failed)
	return err
}

// SaveResult appends one artifact result to a run
func (s *SQLiteStore) SaveResult(r Result) error {
	ev, err := encodeEvidence(r.Evidence)
	if err != nil {
		return err
	}
	query := `INSERT INTO scan_results (run_id, path, analyzer, ecosystem, name, version, display_label, license, evidence, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.Exec(query, r.RunID, r.Path, r.Analyzer, r.Ecosystem, r.Name, r.Version, r.DisplayLabel, r.License, ev, r.Error, r.CreatedAt)
	return err
}

// GetRun returns a single run by id
func (s *SQLiteStore) GetRun(id string) (Run, error) {
	query := `SELECT id, root, started_at, finished_at, total, failed FROM scan_runs WHERE id = ?`
	var run Run
	err := s.db.QueryRow(query, id).Scan(&run.ID, &run.Root, &run.StartedAt, &run.FinishedAt, &run.Total, &run.Failed)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return run, err
}

// ListRuns retrieves the most recent runs
func (s *SQLiteStore) ListRuns(limit int) ([]Run, error) {
	query := `SELECT id, root, started_at, finished_at, total, failed FROM scan_runs ORDER BY started_at DESC LIMIT ?`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRuns(rows)
}

// ListResults retrieves every result of a run in the order it was saved
func (s *SQLiteStore) ListResults(runID string) ([]Result, error) {
	query := `SELECT id, run_id, path, analyzer, ecosystem, name, version, display_label, license, evidence, error, created_at
		FROM scan_results WHERE run_id = ? ORDER BY id`
	rows, err := s.db.Query(query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanResults(rows)
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Root, &run.StartedAt, &run.FinishedAt, &run.Total, &run.Failed); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanResults(rows *sql.Rows) ([]Result, error) {
	var results []Result
	for rows.Next() {
		var r Result
		var ev string
		if err := rows.Scan(&r.ID, &r.RunID, &r.Path, &r.Analyzer, &r.Ecosystem, &r.Name, &r.Version,
			&r.DisplayLabel, &r.License, &ev, &r.Error, &r.CreatedAt); err != nil {
			return nil, err
		}
		decoded, err := decodeEvidence(ev)
		if err != nil {
			return nil, err
		}
		r.Evidence = decoded
		results = append(results, r)
	}
	return results, rows.Err()
}
