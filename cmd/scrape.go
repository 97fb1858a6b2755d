package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobsight/jobtracker/internal/jobs"
	"github.com/jobsight/jobtracker/internal/report"
)

// newScrapeCmd creates the 'scrape' subcommand, which runs one incremental
// scrape pass over the configured sites.
func newScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Runs one incremental scrape over the configured sites",
		Long: `Crawls each configured career site page by page, upserting every
observed posting. A site's crawl stops early once no new postings have been
seen for the configured number of consecutive pages, and postings missing
from a completed crawl are marked absent.`,

		RunE: runScrapeCommand,
	}
	return cmd
}

func runScrapeCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.Logger()

	sites := appInstance.Config().Sites
	if len(sites) == 0 {
		return errors.New("no sites configured; set sites in the config file")
	}

	coordinator := appInstance.NewCoordinator()
	run, err := coordinator.Run(cmd.Context(), sites)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("scrape run: %w", err)
	}

	logger.Info("scrape run finished",
		zap.String("run_id", run.ID),
		zap.String("status", string(run.Status)),
		zap.Int("sites_scraped", run.Stats.SitesScraped),
		zap.Int("sites_failed", run.Stats.SitesFailed),
		zap.Int("jobs_found", run.Stats.JobsFound),
		zap.Int("jobs_new", run.Stats.JobsNew),
		zap.Int("jobs_updated", run.Stats.JobsUpdated),
		zap.Int("jobs_deactivated", run.Stats.JobsDeactivated),
	)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s: %s\n", run.ID, run.Status)
	fmt.Fprintf(out, "  sites: %d scraped, %d succeeded, %d failed\n",
		run.Stats.SitesScraped, run.Stats.SitesSucceeded, run.Stats.SitesFailed)
	fmt.Fprintf(out, "  jobs:  %d found, %d new, %d updated, %d unchanged, %d deactivated\n",
		run.Stats.JobsFound, run.Stats.JobsNew, run.Stats.JobsUpdated,
		run.Stats.JobsUnchanged, run.Stats.JobsDeactivated)
	for _, site := range run.Stats.SiteResults {
		marker := "ok"
		if site.ErrorText != "" {
			marker = "failed: " + site.ErrorText
		} else if site.StoppedEarly {
			marker = "stopped early"
		}
		fmt.Fprintf(out, "  %-20s pages=%d found=%d new=%d (%s)\n",
			site.Company, site.PagesFetched, site.JobsFound, site.JobsNew, marker)
	}

	if exporter := appInstance.Exporter(); exporter != nil {
		if err := exportRunReport(cmd.Context(), appInstance, exporter, run, out); err != nil {
			logger.Warn("run report export failed", zap.Error(err))
		}
	}
	return nil
}

func exportRunReport(ctx context.Context, appInstance App, exporter *report.Exporter, run jobs.ScrapeRun, out io.Writer) error {
	postings, err := appInstance.Postings().ListByStatus(ctx, jobs.StatusActive)
	if err != nil {
		return fmt.Errorf("list active postings: %w", err)
	}
	export, err := exporter.Export(ctx, run, postings)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "  report: %s (sha256 %s)\n", export.URI, export.SHA256)
	return nil
}
