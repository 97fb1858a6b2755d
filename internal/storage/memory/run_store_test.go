package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jobsight/jobtracker/internal/jobs"
)

func run(id string, started time.Time) jobs.ScrapeRun {
	return jobs.ScrapeRun{ID: id, StartedAt: started, Status: jobs.RunStatusRunning}
}

func TestRunStoreCreateAndComplete(t *testing.T) {
	t.Parallel()

	store := NewRunStore()
	ctx := context.Background()
	started := time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.CreateRun(ctx, run("run-1", started)))
	require.Error(t, store.CreateRun(ctx, run("run-1", started)))

	stats := jobs.RunStats{SitesScraped: 2, SitesSucceeded: 2, JobsFound: 40}
	require.NoError(t, store.CompleteRun(ctx, "run-1", jobs.RunStatusCompleted, stats, ""))

	runs, err := store.RecentRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, jobs.RunStatusCompleted, runs[0].Status)
	require.Equal(t, stats, runs[0].Stats)
	require.NotNil(t, runs[0].Completed)
}

func TestRunStoreCompleteUnknownRun(t *testing.T) {
	t.Parallel()

	store := NewRunStore()
	err := store.CompleteRun(context.Background(), "missing", jobs.RunStatusFailed, jobs.RunStats{}, "boom")
	require.Error(t, err)
}

func TestRunStoreRecentRunsOrderAndLimit(t *testing.T) {
	t.Parallel()

	store := NewRunStore()
	ctx := context.Background()
	base := time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.CreateRun(ctx, run("run-1", base)))
	require.NoError(t, store.CreateRun(ctx, run("run-2", base.Add(time.Hour))))
	require.NoError(t, store.CreateRun(ctx, run("run-3", base.Add(2*time.Hour))))

	runs, err := store.RecentRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "run-3", runs[0].ID)
	require.Equal(t, "run-2", runs[1].ID)
}
