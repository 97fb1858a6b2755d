package jobs

import (
	"context"
	"time"
)

// PostingRepository persists job postings keyed by URL. Implementations must
// make Put atomic per key; callers serialize mutations for the same URL.
type PostingRepository interface {
	Get(ctx context.Context, url string) (JobPosting, error)
	Put(ctx context.Context, posting JobPosting) error
	// ListByCompany scans one company's postings. An empty status matches
	// all statuses. Results are ordered by URL.
	ListByCompany(ctx context.Context, company string, status Status) ([]JobPosting, error)
	ListByStatus(ctx context.Context, status Status) ([]JobPosting, error)
	ListCompanies(ctx context.Context) ([]string, error)
	// DeactivateAbsent flips every active posting of the company whose URL
	// is not in observed to StatusAbsent, returning how many changed.
	DeactivateAbsent(ctx context.Context, company string, observed map[string]struct{}) (int, error)
}

// RunStore persists scrape run records.
type RunStore interface {
	CreateRun(ctx context.Context, run ScrapeRun) error
	CompleteRun(ctx context.Context, runID string, status RunStatus, stats RunStats, errText string) error
	RecentRuns(ctx context.Context, limit int) ([]ScrapeRun, error)
}

// PageSource yields listing pages for a site, one page at a time. It is the
// engine's view of the external fetch coordinator: page fetch failures come
// back as PageResult.Unavailable, never as an error. An error return is
// reserved for context cancellation and other non-page conditions.
type PageSource interface {
	FetchPage(ctx context.Context, site Site, page int) (PageResult, error)
}

// Publisher pushes run completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}

// SiteTask wraps one site ready to crawl.
type SiteTask struct {
	RunID string
	Site  Site
}

// TaskQueue provides enqueue/dequeue semantics for site crawl tasks.
type TaskQueue interface {
	Enqueue(ctx context.Context, task SiteTask) error
	Dequeue(ctx context.Context) (SiteTask, error)
	Close()
}
