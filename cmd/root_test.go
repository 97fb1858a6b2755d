package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jobsight/jobtracker/internal/app"
	"github.com/jobsight/jobtracker/internal/config"
)

func withMemoryApp(t *testing.T) {
	t.Helper()
	orig := newApp
	t.Cleanup(func() { newApp = orig })
	newApp = func(ctx context.Context) (App, error) {
		return app.New(ctx, config.Config{
			Server:    config.ServerConfig{Port: 8080},
			Scraper:   config.ScraperConfig{Concurrency: 1, MaxPages: 5, QueueDepth: 4, TimeoutSeconds: 5},
			SmartStop: config.SmartStopConfig{Threshold: 5},
			Dedup: config.DedupConfig{
				TitleSimilarityMin:    0.85,
				LocationSimilarityMin: 0.90,
				CombinedSimilarityMin: 0.80,
				TitleWeight:           0.7,
				LocationWeight:        0.3,
			},
		})
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestStatsCommandEmptyStores(t *testing.T) {
	withMemoryApp(t)

	out, err := execute(t, "stats")
	require.NoError(t, err)
	require.Contains(t, out, "Recent runs (0)")
	require.Contains(t, out, "Companies (0)")
}

func TestDedupeCommandEmptyStores(t *testing.T) {
	withMemoryApp(t)

	out, err := execute(t, "dedupe")
	require.NoError(t, err)
	require.Contains(t, out, "Resolved 0 duplicate groups")
}

func TestScrapeCommandRequiresSites(t *testing.T) {
	withMemoryApp(t)

	_, err := execute(t, "scrape")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no sites configured")
}
