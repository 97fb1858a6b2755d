package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jobsight/jobtracker/internal/jobs"
)

// RunStore is an in-memory jobs.RunStore.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]jobs.ScrapeRun
}

// NewRunStore constructs a RunStore.
func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[string]jobs.ScrapeRun)}
}

// CreateRun stores a new run record.
func (s *RunStore) CreateRun(_ context.Context, run jobs.ScrapeRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; exists {
		return errors.New("run already exists")
	}
	s.runs[run.ID] = run
	return nil
}

// CompleteRun records the final status and counters for a run.
func (s *RunStore) CompleteRun(_ context.Context, runID string, status jobs.RunStatus, stats jobs.RunStats, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return errors.New("run not found")
	}
	now := time.Now().UTC()
	run.Completed = &now
	run.Status = status
	run.Stats = stats
	run.ErrorText = errText
	s.runs[runID] = run
	return nil
}

// RecentRuns returns up to limit runs, most recently started first.
func (s *RunStore) RecentRuns(_ context.Context, limit int) ([]jobs.ScrapeRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]jobs.ScrapeRun, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
