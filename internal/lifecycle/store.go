// Package lifecycle implements the authoritative upsert and sweep operations
// over the posting repository.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/jobsight/jobtracker/internal/jobs"
)

// Store classifies observations against the posting repository. Mutations
// for a given URL are mutually exclusive; mutations for different URLs
// proceed independently.
type Store struct {
	repo   jobs.PostingRepository
	clock  jobs.Clock
	logger *zap.Logger

	mu   sync.Mutex
	keys map[string]*sync.Mutex
}

// New constructs a Store.
func New(repo jobs.PostingRepository, clock jobs.Clock, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		repo:   repo,
		clock:  clock,
		logger: logger,
		keys:   make(map[string]*sync.Mutex),
	}
}

// lockKey serializes mutations per URL. Key mutexes are retained for the
// process lifetime; the key space is bounded by the posting population.
func (s *Store) lockKey(url string) func() {
	s.mu.Lock()
	m, ok := s.keys[url]
	if !ok {
		m = &sync.Mutex{}
		s.keys[url] = m
	}
	s.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// Upsert applies one observation. It rejects records with an empty URL or
// title before any mutation. Classification uses raw-field equality on title
// and location: a textually identical re-observation is Touched, anything
// else Updated. Every non-create re-observation bumps lastSeen and
// scrapeCount and reactivates the posting, clearing any prior duplicate
// decision — a superseded posting that is genuinely re-posted becomes its
// own independent posting again.
func (s *Store) Upsert(ctx context.Context, rec jobs.RawJobRecord) (jobs.UpsertOutcome, bool, error) {
	if rec.URL == "" {
		return "", false, &jobs.ValidationError{Field: "url"}
	}
	if rec.Title == "" {
		return "", false, &jobs.ValidationError{Field: "title"}
	}

	unlock := s.lockKey(rec.URL)
	defer unlock()

	now := s.clock.Now()

	existing, err := s.repo.Get(ctx, rec.URL)
	if errors.Is(err, jobs.ErrPostingNotFound) {
		posting := jobs.JobPosting{
			URL:         rec.URL,
			JobID:       rec.JobID,
			Title:       rec.Title,
			Location:    rec.Location,
			Company:     rec.Company,
			FirstSeen:   now,
			LastSeen:    now,
			ScrapeCount: 1,
			Status:      jobs.StatusActive,
		}
		if err := s.repo.Put(ctx, posting); err != nil {
			return "", false, fmt.Errorf("insert posting: %w", err)
		}
		return jobs.OutcomeCreated, true, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup posting: %w", err)
	}

	changed := existing.Title != rec.Title || existing.Location != rec.Location

	if existing.Status != jobs.StatusActive {
		s.logger.Debug("posting reactivated",
			zap.String("url", rec.URL),
			zap.String("previous_status", string(existing.Status)),
		)
	}

	existing.JobID = rec.JobID
	existing.Title = rec.Title
	existing.Location = rec.Location
	existing.Company = rec.Company
	existing.LastSeen = now
	existing.ScrapeCount++
	existing.Status = jobs.StatusActive
	existing.DuplicateOf = ""

	if err := s.repo.Put(ctx, existing); err != nil {
		return "", false, fmt.Errorf("update posting: %w", err)
	}
	if changed {
		return jobs.OutcomeUpdated, true, nil
	}
	return jobs.OutcomeTouched, false, nil
}

// Sweep deactivates every active posting of the company not present in
// observed. It must run once per site per run, only after that site's crawl
// has committed (full completion or Smart-Stop); partial, uncommitted scopes
// never deactivate postings. Because a crawl may stop before visiting every
// page, postings that exist only on unvisited pages are deactivated too —
// correctness of "active" is bounded by crawl coverage.
func (s *Store) Sweep(ctx context.Context, company string, observed map[string]struct{}) (int, error) {
	if company == "" {
		return 0, fmt.Errorf("sweep requires a company scope")
	}
	n, err := s.repo.DeactivateAbsent(ctx, company, observed)
	if err != nil {
		return 0, fmt.Errorf("sweep %s: %w", company, err)
	}
	if n > 0 {
		s.logger.Info("postings deactivated",
			zap.String("company", company),
			zap.Int("count", n),
		)
	}
	return n, nil
}
