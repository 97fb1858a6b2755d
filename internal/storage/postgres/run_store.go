package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jobsight/jobtracker/internal/jobs"
)

// RunStore persists scrape run records in Postgres.
type RunStore struct {
	pool dbConn
}

// NewRunStore constructs a RunStore over an existing pool.
func NewRunStore(pool dbConn) (*RunStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &RunStore{pool: pool}, nil
}

// EnsureSchema creates the scrape_runs table if missing.
func (s *RunStore) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS scrape_runs (
	id TEXT PRIMARY KEY,
	started_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ,
	status TEXT NOT NULL DEFAULT 'running',
	stats JSONB NOT NULL DEFAULT '{}',
	error_text TEXT NOT NULL DEFAULT ''
);`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure scrape_runs schema: %w", err)
	}
	return nil
}

// CreateRun inserts a new run row.
func (s *RunStore) CreateRun(ctx context.Context, run jobs.ScrapeRun) error {
	statsJSON, err := json.Marshal(run.Stats)
	if err != nil {
		return fmt.Errorf("marshal run stats: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO scrape_runs (id, started_at, status, stats, error_text)
VALUES ($1,$2,$3,$4,$5)`,
		run.ID, run.StartedAt, string(run.Status), statsJSON, run.ErrorText,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// CompleteRun records the final status and counters for a run.
func (s *RunStore) CompleteRun(ctx context.Context, runID string, status jobs.RunStatus, stats jobs.RunStats, errText string) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal run stats: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
UPDATE scrape_runs SET completed_at = $1, status = $2, stats = $3, error_text = $4
WHERE id = $5`,
		time.Now().UTC(), string(status), statsJSON, errText, runID,
	)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// RecentRuns returns up to limit runs, most recently started first.
func (s *RunStore) RecentRuns(ctx context.Context, limit int) ([]jobs.ScrapeRun, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, `
SELECT id, started_at, completed_at, status, stats, error_text
FROM scrape_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer rows.Close()

	var out []jobs.ScrapeRun
	for rows.Next() {
		var run jobs.ScrapeRun
		var status string
		var statsJSON []byte
		if err := rows.Scan(&run.ID, &run.StartedAt, &run.Completed, &status, &statsJSON, &run.ErrorText); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Status = jobs.RunStatus(status)
		if len(statsJSON) > 0 {
			if err := json.Unmarshal(statsJSON, &run.Stats); err != nil {
				return nil, fmt.Errorf("unmarshal run stats: %w", err)
			}
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}
