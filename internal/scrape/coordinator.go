// Package scrape orchestrates incremental scrape runs across career sites.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jobsight/jobtracker/internal/jobs"
	"github.com/jobsight/jobtracker/internal/lifecycle"
	"github.com/jobsight/jobtracker/internal/metrics"
	"github.com/jobsight/jobtracker/internal/smartstop"
)

// Config controls Coordinator behavior.
type Config struct {
	Concurrency        int
	MaxPages           int
	SmartStopThreshold int
	Topic              string
}

// Coordinator drives one incremental scrape run: it fans site crawl tasks
// out to a fixed pool of workers, each of which walks a site's listing pages
// through the external page source, upserts every record, consults the
// Smart-Stop scope, and sweeps the site's company once the scope commits.
type Coordinator struct {
	queue     jobs.TaskQueue
	store     *lifecycle.Store
	repo      jobs.PostingRepository
	runs      jobs.RunStore
	source    jobs.PageSource
	publisher jobs.Publisher
	clock     jobs.Clock
	idGen     jobs.IDGenerator
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Coordinator.
func New(
	queue jobs.TaskQueue,
	store *lifecycle.Store,
	repo jobs.PostingRepository,
	runs jobs.RunStore,
	source jobs.PageSource,
	publisher jobs.Publisher,
	clock jobs.Clock,
	idGen jobs.IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 100
	}
	return &Coordinator{
		queue:     queue,
		store:     store,
		repo:      repo,
		runs:      runs,
		source:    source,
		publisher: publisher,
		clock:     clock,
		idGen:     idGen,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run executes one scrape run over the given sites and blocks until every
// site scope has finished or the context is canceled.
func (c *Coordinator) Run(ctx context.Context, sites []jobs.Site) (jobs.ScrapeRun, error) {
	runID, err := c.idGen.NewID()
	if err != nil {
		return jobs.ScrapeRun{}, fmt.Errorf("generate run id: %w", err)
	}
	run := jobs.ScrapeRun{
		ID:        runID,
		StartedAt: c.clock.Now(),
		Status:    jobs.RunStatusRunning,
	}
	if err := c.runs.CreateRun(ctx, run); err != nil {
		return jobs.ScrapeRun{}, fmt.Errorf("create run: %w", err)
	}

	results := make(chan jobs.SiteStats, len(sites))
	var wg sync.WaitGroup
	for i := 0; i < c.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.siteWorker(ctx, results)
		}()
	}

	for _, site := range sites {
		if err := c.queue.Enqueue(ctx, jobs.SiteTask{RunID: runID, Site: site}); err != nil {
			c.logger.Warn("enqueue site failed", zap.String("site", site.BaseURL), zap.Error(err))
			break
		}
	}
	c.queue.Close()
	wg.Wait()
	close(results)

	stats := jobs.RunStats{}
	for siteStats := range results {
		stats.SitesScraped++
		if siteStats.ErrorText == "" {
			stats.SitesSucceeded++
		} else {
			stats.SitesFailed++
		}
		stats.JobsFound += siteStats.JobsFound
		stats.JobsNew += siteStats.JobsNew
		stats.JobsUpdated += siteStats.JobsUpdated
		stats.JobsUnchanged += siteStats.JobsUnchanged
		stats.JobsDeactivated += siteStats.JobsDeactivated
		stats.SiteResults = append(stats.SiteResults, siteStats)
	}

	status := jobs.RunStatusCompleted
	errText := ""
	switch {
	case ctx.Err() != nil:
		status = jobs.RunStatusFailed
		errText = ctx.Err().Error()
	case stats.SitesSucceeded == 0 && len(sites) > 0:
		status = jobs.RunStatusFailed
		errText = "no site scraped successfully"
	}
	metrics.ObserveRun(string(status))

	run.Status = status
	run.Stats = stats
	run.ErrorText = errText
	now := c.clock.Now()
	run.Completed = &now

	// Completion must be recorded even when the run context is gone.
	completeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := c.runs.CompleteRun(completeCtx, runID, status, stats, errText); err != nil {
		return run, fmt.Errorf("complete run: %w", err)
	}
	c.publishRun(completeCtx, run)
	return run, nil
}

func (c *Coordinator) siteWorker(ctx context.Context, results chan<- jobs.SiteStats) {
	for {
		task, err := c.queue.Dequeue(ctx)
		if err != nil {
			return
		}
		results <- c.scrapeSite(ctx, task.Site)
	}
}

// scrapeSite walks one site's crawl scope. The sweep runs only after the
// scope commits: full completion, empty-page end-of-site, or Smart-Stop.
// A canceled or failed scope never deactivates postings.
func (c *Coordinator) scrapeSite(ctx context.Context, site jobs.Site) jobs.SiteStats {
	stats := jobs.SiteStats{Site: site.BaseURL, Company: site.Company}
	logger := c.logger.With(zap.String("site", site.BaseURL), zap.String("company", site.Company))

	snapshot, err := c.snapshotKeys(ctx, site.Company)
	if err != nil {
		stats.ErrorText = err.Error()
		logger.Error("snapshot failed", zap.Error(err))
		return stats
	}
	scope := smartstop.NewScope(snapshot, c.cfg.SmartStopThreshold)
	observed := make(map[string]struct{})
	committed := false

	for page := 1; page <= c.cfg.MaxPages; page++ {
		if ctx.Err() != nil {
			stats.ErrorText = ctx.Err().Error()
			logger.Warn("scope canceled; sweep skipped", zap.Int("page", page))
			return stats
		}

		result, err := c.source.FetchPage(ctx, site, page)
		if err != nil {
			stats.ErrorText = err.Error()
			logger.Error("page fetch aborted", zap.Int("page", page), zap.Error(err))
			return stats
		}
		stats.PagesFetched++

		if result.Unavailable {
			metrics.ObservePage(site.BaseURL, "unavailable")
			logger.Warn("page unavailable", zap.Int("page", page))
			if scope.ObserveUnavailable() {
				stats.StoppedEarly = true
				committed = true
				break
			}
			continue
		}
		if len(result.Records) == 0 {
			metrics.ObservePage(site.BaseURL, "empty")
			committed = true
			break
		}
		metrics.ObservePage(site.BaseURL, "ok")

		pageKeys := make([]string, 0, len(result.Records))
		for _, rec := range result.Records {
			outcome, _, err := c.store.Upsert(ctx, rec)
			if err != nil {
				if jobs.IsValidation(err) {
					stats.JobsSkipped++
					logger.Warn("record skipped", zap.String("url", rec.URL), zap.Error(err))
					continue
				}
				// Storage failure is fatal for this run's scope.
				stats.ErrorText = err.Error()
				logger.Error("upsert failed", zap.String("url", rec.URL), zap.Error(err))
				return stats
			}
			metrics.ObserveUpsert(string(outcome))
			stats.JobsFound++
			switch outcome {
			case jobs.OutcomeCreated:
				stats.JobsNew++
			case jobs.OutcomeUpdated:
				stats.JobsUpdated++
			default:
				stats.JobsUnchanged++
			}
			pageKeys = append(pageKeys, rec.URL)
			observed[rec.URL] = struct{}{}
		}

		novel, stop := scope.ObservePage(pageKeys)
		logger.Debug("page processed",
			zap.Int("page", page),
			zap.Int("records", len(result.Records)),
			zap.Int("novel", novel),
		)
		if stop {
			stats.StoppedEarly = true
			committed = true
			break
		}
		if page == c.cfg.MaxPages {
			committed = true
		}
	}

	if !committed || ctx.Err() != nil {
		return stats
	}

	deactivated, err := c.store.Sweep(ctx, site.Company, observed)
	if err != nil {
		stats.ErrorText = err.Error()
		logger.Error("sweep failed", zap.Error(err))
		return stats
	}
	stats.JobsDeactivated = deactivated
	stats.Swept = true
	metrics.ObserveSweep(deactivated)
	logger.Info("site scope complete",
		zap.Int("jobs_found", stats.JobsFound),
		zap.Int("jobs_new", stats.JobsNew),
		zap.Int("jobs_updated", stats.JobsUpdated),
		zap.Int("jobs_deactivated", deactivated),
		zap.Bool("stopped_early", stats.StoppedEarly),
	)
	return stats
}

// snapshotKeys captures the company's known active URLs before the scope
// starts; Smart-Stop judges novelty against this set only.
func (c *Coordinator) snapshotKeys(ctx context.Context, company string) ([]string, error) {
	postings, err := c.repo.ListByCompany(ctx, company, jobs.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("snapshot keys for %s: %w", company, err)
	}
	keys := make([]string, 0, len(postings))
	for _, p := range postings {
		keys = append(keys, p.URL)
	}
	return keys, nil
}

func (c *Coordinator) publishRun(ctx context.Context, run jobs.ScrapeRun) {
	if c.publisher == nil || c.cfg.Topic == "" {
		return
	}
	payload := map[string]any{
		"run_id":           run.ID,
		"status":           string(run.Status),
		"started_at":       run.StartedAt.Format(time.RFC3339),
		"sites_scraped":    run.Stats.SitesScraped,
		"jobs_found":       run.Stats.JobsFound,
		"jobs_new":         run.Stats.JobsNew,
		"jobs_updated":     run.Stats.JobsUpdated,
		"jobs_deactivated": run.Stats.JobsDeactivated,
	}
	if _, err := c.publisher.Publish(ctx, c.cfg.Topic, payload); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Warn("run event publish failed", zap.String("run_id", run.ID), zap.Error(err))
	}
}
