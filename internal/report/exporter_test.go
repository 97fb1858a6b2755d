package report

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jobsight/jobtracker/internal/jobs"
	"github.com/jobsight/jobtracker/internal/storage/memory"
)

func TestExportWritesReportDocument(t *testing.T) {
	t.Parallel()

	store := memory.NewBlobStore()
	exporter := New(store, nil)

	started := time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)
	run := jobs.ScrapeRun{
		ID:        "run-1",
		StartedAt: started,
		Status:    jobs.RunStatusCompleted,
		Stats:     jobs.RunStats{SitesScraped: 1, JobsFound: 2},
	}
	postings := []jobs.JobPosting{
		{URL: "https://acme.example/jobs/1", Title: "Engineer", Company: "acme", Status: jobs.StatusActive},
		{URL: "https://acme.example/jobs/2", Title: "Analyst", Company: "acme", Status: jobs.StatusActive},
	}

	export, err := exporter.Export(context.Background(), run, postings)
	require.NoError(t, err)
	require.Equal(t, "memory://runs/run-1.json", export.URI)
	require.Len(t, export.SHA256, 64)

	data, ok := store.Object("runs/run-1.json")
	require.True(t, ok)

	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Equal(t, "run-1", doc.Run.ID)
	require.Equal(t, jobs.RunStatusCompleted, doc.Run.Status)
	require.Len(t, doc.Postings, 2)
	require.Equal(t, "https://acme.example/jobs/1", doc.Postings[0].URL)
}

func TestExportDigestIsStable(t *testing.T) {
	t.Parallel()

	store := memory.NewBlobStore()
	exporter := New(store, nil)
	run := jobs.ScrapeRun{ID: "run-2", Status: jobs.RunStatusCompleted}

	first, err := exporter.Export(context.Background(), run, nil)
	require.NoError(t, err)
	second, err := exporter.Export(context.Background(), run, nil)
	require.NoError(t, err)
	require.Equal(t, first.SHA256, second.SHA256)
}
