package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store and applies migrations
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS scan_runs (
			id TEXT PRIMARY KEY,
			root TEXT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL,
			total INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS scan_results (
			id SERIAL PRIMARY KEY,
			run_id TEXT NOT NULL REFERENCES scan_runs(id) ON DELETE CASCADE,
			path TEXT NOT NULL,
			analyzer TEXT NOT NULL,
			ecosystem TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL DEFAULT '',
			version TEXT NOT NULL DEFAULT '',
			display_label TEXT NOT NULL DEFAULT '',
			license TEXT NOT NULL DEFAULT '',
			evidence TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_scan_results_run ON scan_results(run_id)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			slog.Debug("migration step failed", "error", err)
			return err
		}
	}
	return nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts or updates a scan run
func (s *PostgresStore) SaveRun(run Run) error {
	query := `INSERT INTO scan_runs (id, root, started_at, finished_at, total, failed) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET finished_at = EXCLUDED.finished_at, total = EXCLUDED.total, failed = EXCLUDED.failed`
	_, err := s.db.Exec(query, run.ID, run.Root, run.StartedAt, run.FinishedAt, run.Total, run.Failed)
	return err
}

// SaveResult appends one artifact result to a run
func (s *PostgresStore) SaveResult(r Result) error {
	ev, err := encodeEvidence(r.Evidence)
	if err != nil {
		return err
	}
	query := `INSERT INTO scan_results (run_id, path, analyzer, ecosystem, name, version, display_label, license, evidence, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = s.db.Exec(query, r.RunID, r.Path, r.Analyzer, r.Ecosystem, r.Name, r.Version, r.DisplayLabel, r.License, ev, r.Error, r.CreatedAt)
	return err
}

// GetRun returns a single run by id
func (s *PostgresStore) GetRun(id string) (Run, error) {
	query := `SELECT id, root, started_at, finished_at, total, failed FROM scan_runs WHERE id = $1`
	var run Run
	err := s.db.QueryRow(query, id).Scan(&run.ID, &run.Root, &run.StartedAt, &run.FinishedAt, &run.Total, &run.Failed)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return run, err
}

// ListRuns retrieves the most recent runs
func (s *PostgresStore) ListRuns(limit int) ([]Run, error) {
	query := `SELECT id, root, started_at, finished_at, total, failed FROM scan_runs ORDER BY started_at DESC LIMIT $1`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRuns(rows)
}

// ListResults retrieves every result of a run in the order it was saved
func (s *PostgresStore) ListResults(runID string) ([]Result, error) {
	query := `SELECT id, run_id, path, analyzer, ecosystem, name, version, display_label, license, evidence, error, created_at
		FROM scan_results WHERE run_id = $1 ORDER BY id`
	rows, err := s.db.Query(query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanResults(rows)
}
