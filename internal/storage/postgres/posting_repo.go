// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobsight/jobtracker/internal/jobs"
)

// dbConn is the subset of pgxpool.Pool the stores use; pgxmock satisfies it
// in tests.
type dbConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// NewPool builds a pgx pool from the config.
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

// PostingRepository stores job postings in Postgres, one row per URL.
type PostingRepository struct {
	pool dbConn
}

// NewPostingRepository constructs a repository over an existing pool.
func NewPostingRepository(pool dbConn) (*PostingRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &PostingRepository{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (r *PostingRepository) Close() {
	if r == nil || r.pool == nil {
		return
	}
	r.pool.Close()
}

const postingColumns = `url, job_id, title, location, company, first_seen, last_seen, scrape_count, status, duplicate_of`

// EnsureSchema creates the postings table and its indexes if missing.
func (r *PostingRepository) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS postings (
	url TEXT PRIMARY KEY,
	job_id TEXT,
	title TEXT NOT NULL,
	location TEXT,
	company TEXT NOT NULL,
	first_seen TIMESTAMPTZ NOT NULL,
	last_seen TIMESTAMPTZ NOT NULL,
	scrape_count INTEGER NOT NULL DEFAULT 1,
	status TEXT NOT NULL DEFAULT 'active',
	duplicate_of TEXT
);
CREATE INDEX IF NOT EXISTS idx_postings_company ON postings(company);
CREATE INDEX IF NOT EXISTS idx_postings_status ON postings(status);`
	if _, err := r.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure postings schema: %w", err)
	}
	return nil
}

// Get fetches a posting by URL.
func (r *PostingRepository) Get(ctx context.Context, url string) (jobs.JobPosting, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+postingColumns+` FROM postings WHERE url = $1`, url)
	posting, err := scanPosting(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return jobs.JobPosting{}, jobs.ErrPostingNotFound
	}
	if err != nil {
		return jobs.JobPosting{}, fmt.Errorf("select posting: %w", err)
	}
	return posting, nil
}

// Put inserts or replaces a posting by URL. The upsert is atomic per key.
func (r *PostingRepository) Put(ctx context.Context, p jobs.JobPosting) error {
	var duplicateOf *string
	if p.DuplicateOf != "" {
		duplicateOf = &p.DuplicateOf
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO postings (`+postingColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (url) DO UPDATE SET
	job_id = EXCLUDED.job_id,
	title = EXCLUDED.title,
	location = EXCLUDED.location,
	company = EXCLUDED.company,
	first_seen = EXCLUDED.first_seen,
	last_seen = EXCLUDED.last_seen,
	scrape_count = EXCLUDED.scrape_count,
	status = EXCLUDED.status,
	duplicate_of = EXCLUDED.duplicate_of`,
		p.URL, p.JobID, p.Title, p.Location, p.Company,
		p.FirstSeen, p.LastSeen, p.ScrapeCount, string(p.Status), duplicateOf,
	)
	if err != nil {
		return fmt.Errorf("upsert posting: %w", err)
	}
	return nil
}

// ListByCompany scans one company's postings ordered by URL. An empty status
// matches all statuses.
func (r *PostingRepository) ListByCompany(ctx context.Context, company string, status jobs.Status) ([]jobs.JobPosting, error) {
	query := `SELECT ` + postingColumns + ` FROM postings WHERE company = $1`
	args := []any{company}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, string(status))
	}
	query += ` ORDER BY url`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select postings by company: %w", err)
	}
	return collectPostings(rows)
}

// ListByStatus scans every posting with the given status ordered by URL.
func (r *PostingRepository) ListByStatus(ctx context.Context, status jobs.Status) ([]jobs.JobPosting, error) {
	query := `SELECT ` + postingColumns + ` FROM postings`
	var args []any
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}
	query += ` ORDER BY url`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select postings by status: %w", err)
	}
	return collectPostings(rows)
}

// ListCompanies returns the distinct companies present, sorted.
func (r *PostingRepository) ListCompanies(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT company FROM postings ORDER BY company`)
	if err != nil {
		return nil, fmt.Errorf("select companies: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var company string
		if err := rows.Scan(&company); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		out = append(out, company)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate companies: %w", err)
	}
	return out, nil
}

// DeactivateAbsent flips the company's active postings missing from observed
// to StatusAbsent in one statement.
func (r *PostingRepository) DeactivateAbsent(ctx context.Context, company string, observed map[string]struct{}) (int, error) {
	urls := make([]string, 0, len(observed))
	for url := range observed {
		urls = append(urls, url)
	}
	tag, err := r.pool.Exec(ctx, `
UPDATE postings SET status = $1
WHERE company = $2 AND status = $3 AND NOT (url = ANY($4))`,
		string(jobs.StatusAbsent), company, string(jobs.StatusActive), urls,
	)
	if err != nil {
		return 0, fmt.Errorf("deactivate absent postings: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanPosting(row pgx.Row) (jobs.JobPosting, error) {
	var p jobs.JobPosting
	var status string
	var duplicateOf *string
	err := row.Scan(
		&p.URL, &p.JobID, &p.Title, &p.Location, &p.Company,
		&p.FirstSeen, &p.LastSeen, &p.ScrapeCount, &status, &duplicateOf,
	)
	if err != nil {
		return jobs.JobPosting{}, err
	}
	p.Status = jobs.Status(status)
	if duplicateOf != nil {
		p.DuplicateOf = *duplicateOf
	}
	return p, nil
}

func collectPostings(rows pgx.Rows) ([]jobs.JobPosting, error) {
	defer rows.Close()
	var out []jobs.JobPosting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, fmt.Errorf("scan posting: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate postings: %w", err)
	}
	return out, nil
}
