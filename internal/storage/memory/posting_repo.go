// Package memory provides in-memory store implementations for
// development/testing.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jobsight/jobtracker/internal/jobs"
)

// PostingRepository is an in-memory jobs.PostingRepository guarded by a
// single RWMutex; per-URL write ordering is the lifecycle store's concern.
type PostingRepository struct {
	mu       sync.RWMutex
	postings map[string]jobs.JobPosting
}

// NewPostingRepository constructs a PostingRepository.
func NewPostingRepository() *PostingRepository {
	return &PostingRepository{
		postings: make(map[string]jobs.JobPosting),
	}
}

// Get fetches a posting by URL.
func (r *PostingRepository) Get(_ context.Context, url string) (jobs.JobPosting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	posting, ok := r.postings[url]
	if !ok {
		return jobs.JobPosting{}, jobs.ErrPostingNotFound
	}
	return posting, nil
}

// Put inserts or replaces a posting by URL.
func (r *PostingRepository) Put(_ context.Context, posting jobs.JobPosting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.postings[posting.URL] = posting
	return nil
}

// ListByCompany returns the company's postings ordered by URL. An empty
// status matches all statuses.
func (r *PostingRepository) ListByCompany(_ context.Context, company string, status jobs.Status) ([]jobs.JobPosting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []jobs.JobPosting
	for _, p := range r.postings {
		if p.Company != company {
			continue
		}
		if status != "" && p.Status != status {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out, nil
}

// ListByStatus returns every posting with the given status ordered by URL.
func (r *PostingRepository) ListByStatus(_ context.Context, status jobs.Status) ([]jobs.JobPosting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []jobs.JobPosting
	for _, p := range r.postings {
		if status != "" && p.Status != status {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out, nil
}

// ListCompanies returns the distinct companies present, sorted.
func (r *PostingRepository) ListCompanies(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, p := range r.postings {
		seen[p.Company] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for company := range seen {
		out = append(out, company)
	}
	sort.Strings(out)
	return out, nil
}

// DeactivateAbsent flips the company's active postings missing from observed
// to StatusAbsent.
func (r *PostingRepository) DeactivateAbsent(_ context.Context, company string, observed map[string]struct{}) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for url, p := range r.postings {
		if p.Company != company || p.Status != jobs.StatusActive {
			continue
		}
		if _, seen := observed[url]; seen {
			continue
		}
		p.Status = jobs.StatusAbsent
		r.postings[url] = p
		count++
	}
	return count, nil
}
