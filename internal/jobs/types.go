// Package jobs defines core types shared across subsystems.
package jobs

import "time"

// Status represents the lifecycle state of a job posting.
type Status string

// Posting status values persisted in the posting store. A posting is never
// deleted, only transitioned between these states.
const (
	// StatusActive marks a posting observed in the most recent crawl of its
	// company and not superseded by a duplicate.
	StatusActive Status = "active"
	// StatusAbsent marks a posting that a completed crawl scope did not
	// observe.
	StatusAbsent Status = "absent"
	// StatusSuperseded marks a posting replaced by the canonical member of
	// its duplicate group. DuplicateOf is set if and only if the posting
	// carries this status.
	StatusSuperseded Status = "superseded"
)

// RawJobRecord is one observation of a posting, as delivered by the fetch
// coordinator. URL is the stable unique key.
type RawJobRecord struct {
	URL        string    `json:"url"`
	JobID      string    `json:"job_id"`
	Title      string    `json:"title"`
	Location   string    `json:"location"`
	Company    string    `json:"company"`
	ObservedAt time.Time `json:"observed_at"`
}

// JobPosting is the persisted state of one posting, keyed by URL.
type JobPosting struct {
	URL         string    `json:"url"`
	JobID       string    `json:"job_id,omitempty"`
	Title       string    `json:"title"`
	Location    string    `json:"location,omitempty"`
	Company     string    `json:"company"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	ScrapeCount int       `json:"scrape_count"`
	Status      Status    `json:"status"`
	// DuplicateOf holds the canonical posting's URL, never an object
	// reference, so resolution is a lookup at read time.
	DuplicateOf string `json:"duplicate_of,omitempty"`
}

// Active reports whether the posting is currently visible downstream.
func (p JobPosting) Active() bool {
	return p.Status == StatusActive
}

// UpsertOutcome classifies one observation applied to the posting store.
type UpsertOutcome string

// Upsert classification values.
const (
	OutcomeCreated UpsertOutcome = "created"
	OutcomeUpdated UpsertOutcome = "updated"
	OutcomeTouched UpsertOutcome = "touched"
)

// Site identifies one external career site to crawl.
type Site struct {
	Company string `json:"company" mapstructure:"company"`
	BaseURL string `json:"base_url" mapstructure:"base_url"`
}

// PageResult is the outcome of fetching one listing page. An empty Records
// slice with Unavailable=false is the end-of-site signal; Unavailable=true
// reports a page that could not be fetched, which is never fatal.
type PageResult struct {
	Page        int
	Records     []RawJobRecord
	Unavailable bool
}

// GroupMember is one non-canonical posting in a duplicate group, with its
// combined similarity score against the canonical posting.
type GroupMember struct {
	URL   string  `json:"url"`
	Score float64 `json:"score"`
}

// DuplicateGroup is one connected component of near-duplicate postings
// within a single company.
type DuplicateGroup struct {
	Company      string        `json:"company"`
	CanonicalURL string        `json:"canonical_url"`
	Members      []GroupMember `json:"members"`
}

// SiteStats counts what one site's crawl scope produced.
type SiteStats struct {
	Site            string `json:"site"`
	Company         string `json:"company"`
	PagesFetched    int    `json:"pages_fetched"`
	JobsFound       int    `json:"jobs_found"`
	JobsNew         int    `json:"jobs_new"`
	JobsUpdated     int    `json:"jobs_updated"`
	JobsUnchanged   int    `json:"jobs_unchanged"`
	JobsDeactivated int    `json:"jobs_deactivated"`
	JobsSkipped     int    `json:"jobs_skipped"`
	StoppedEarly    bool   `json:"stopped_early"`
	Swept           bool   `json:"swept"`
	ErrorText       string `json:"error_text,omitempty"`
}

// RunStats aggregates all site scopes of one scrape run.
type RunStats struct {
	SitesScraped    int         `json:"sites_scraped"`
	SitesSucceeded  int         `json:"sites_succeeded"`
	SitesFailed     int         `json:"sites_failed"`
	JobsFound       int         `json:"jobs_found"`
	JobsNew         int         `json:"jobs_new"`
	JobsUpdated     int         `json:"jobs_updated"`
	JobsUnchanged   int         `json:"jobs_unchanged"`
	JobsDeactivated int         `json:"jobs_deactivated"`
	SiteResults     []SiteStats `json:"site_results,omitempty"`
}

// RunStatus represents the lifecycle state of a scrape run.
type RunStatus string

// Run status values persisted in the run store.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// ScrapeRun is the persisted record of one incremental scrape session.
type ScrapeRun struct {
	ID        string     `json:"id"`
	StartedAt time.Time  `json:"started_at"`
	Completed *time.Time `json:"completed_at,omitempty"`
	Status    RunStatus  `json:"status"`
	Stats     RunStats   `json:"stats"`
	ErrorText string     `json:"error_text,omitempty"`
}
