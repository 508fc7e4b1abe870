// Package store implements the result store contract (spec.md §6): an
// append-only results table plus a jobs table tracking bulk-upload
// progress, extended from the teacher's internal/store/db.go migrations
// with a unique constraint on (job_id, email) so redelivery-after-crash is
// idempotent (spec.md Testable Property 6, Round-trip property).
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"mailvetter/internal/verdict"
)

// Store wraps a pgxpool.Pool with the two tables the worker and the
// single-check HTTP surface need.
type Store struct {
	db *pgxpool.Pool
}

// Open connects to Postgres and runs migrations.
func Open(ctx context.Context, connString string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	s := &Store{db: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() {
	s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	const jobsTable = `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		total_count INT DEFAULT 0,
		processed_count INT DEFAULT 0,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		completed_at TIMESTAMPTZ
	);`

	const resultsTable = `
	CREATE TABLE IF NOT EXISTS results (
		id SERIAL PRIMARY KEY,
		job_id TEXT NOT NULL REFERENCES jobs(id),
		email TEXT NOT NULL,
		is_reachable TEXT NOT NULL,
		result JSONB NOT NULL,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		UNIQUE (job_id, email)
	);`

	if _, err := s.db.Exec(ctx, jobsTable); err != nil {
		return fmt.Errorf("store: migrate jobs: %w", err)
	}
	if _, err := s.db.Exec(ctx, resultsTable); err != nil {
		return fmt.Errorf("store: migrate results: %w", err)
	}
	return nil
}

// CreateJob inserts a new bulk job with the given expected total address
// count, used by the single-check HTTP surface's /upload handler.
func (s *Store) CreateJob(ctx context.Context, jobID string, total int) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO jobs (id, status, total_count)
		VALUES ($1, 'processing', $2)
		ON CONFLICT (id) DO NOTHING
	`, jobID, total)
	if err != nil {
		return fmt.Errorf("store: create job %s: %w", jobID, err)
	}
	return nil
}

// SaveResult persists v under jobID idempotently: a redelivered message for
// an email already recorded under the same job is a silent no-op rather
// than a duplicate row or an error, and the job's processed_count only
// advances on the row that was actually inserted.
func (s *Store) SaveResult(ctx context.Context, jobID string, v verdict.Verdict) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	resultJSON, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: marshal result for %s: %w", v.Input, err)
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO results (job_id, email, is_reachable, result)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (job_id, email) DO NOTHING
	`, jobID, v.Input, string(v.IsReachable), resultJSON)
	if err != nil {
		return fmt.Errorf("store: insert result for %s: %w", v.Input, err)
	}

	if tag.RowsAffected() > 0 {
		_, err = tx.Exec(ctx, `
			UPDATE jobs
			SET processed_count = processed_count + 1,
			    status = CASE WHEN processed_count + 1 >= total_count THEN 'completed' ELSE status END,
			    completed_at = CASE WHEN processed_count + 1 >= total_count THEN NOW() ELSE completed_at END
			WHERE id = $1
		`, jobID)
		if err != nil {
			return fmt.Errorf("store: update job progress for %s: %w", jobID, err)
		}
	}

	return tx.Commit(ctx)
}

// JobStatus is the progress snapshot returned by the /status endpoint.
type JobStatus struct {
	ID             string     `json:"id"`
	Status         string     `json:"status"`
	TotalCount     int        `json:"total_count"`
	ProcessedCount int        `json:"processed_count"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

func (s *Store) GetJobStatus(ctx context.Context, jobID string) (JobStatus, error) {
	var st JobStatus
	err := s.db.QueryRow(ctx, `
		SELECT id, status, total_count, processed_count, created_at, completed_at
		FROM jobs WHERE id = $1
	`, jobID).Scan(&st.ID, &st.Status, &st.TotalCount, &st.ProcessedCount, &st.CreatedAt, &st.CompletedAt)
	if err != nil {
		return JobStatus{}, fmt.Errorf("store: job status %s: %w", jobID, err)
	}
	return st, nil
}

// GetResults returns every persisted Verdict for jobID.
func (s *Store) GetResults(ctx context.Context, jobID string) ([]verdict.Verdict, error) {
	rows, err := s.db.Query(ctx, `SELECT result FROM results WHERE job_id = $1 ORDER BY id`, jobID)
	if err != nil {
		return nil, fmt.Errorf("store: results for %s: %w", jobID, err)
	}
	defer rows.Close()

	var out []verdict.Verdict
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("store: scan result for %s: %w", jobID, err)
		}
		var v verdict.Verdict
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("store: decode result for %s: %w", jobID, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
