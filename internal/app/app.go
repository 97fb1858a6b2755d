// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub"
	gcpstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/jobsight/jobtracker/internal/api"
	"github.com/jobsight/jobtracker/internal/clock/system"
	"github.com/jobsight/jobtracker/internal/config"
	"github.com/jobsight/jobtracker/internal/dedup"
	collyfetcher "github.com/jobsight/jobtracker/internal/fetcher/colly"
	"github.com/jobsight/jobtracker/internal/fetcher/headless"
	"github.com/jobsight/jobtracker/internal/headless/detector"
	"github.com/jobsight/jobtracker/internal/id/uuid"
	"github.com/jobsight/jobtracker/internal/jobs"
	"github.com/jobsight/jobtracker/internal/lifecycle"
	"github.com/jobsight/jobtracker/internal/logging"
	"github.com/jobsight/jobtracker/internal/metrics"
	"github.com/jobsight/jobtracker/internal/policy/ratelimit"
	memorypub "github.com/jobsight/jobtracker/internal/publisher/memory"
	pubsubpub "github.com/jobsight/jobtracker/internal/publisher/pubsub"
	memoryqueue "github.com/jobsight/jobtracker/internal/queue/memory"
	"github.com/jobsight/jobtracker/internal/report"
	"github.com/jobsight/jobtracker/internal/scrape"
	"github.com/jobsight/jobtracker/internal/storage/gcs"
	"github.com/jobsight/jobtracker/internal/storage/local"
	"github.com/jobsight/jobtracker/internal/storage/memory"
	"github.com/jobsight/jobtracker/internal/storage/postgres"
)

// App holds the shared, long-lived services of the job tracker. It is
// initialized once at startup and passed to the commands that need it.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	repo jobs.PostingRepository
	runs jobs.RunStore

	publisher    jobs.Publisher
	pubsubClient *gcppubsub.Client

	exporter      *report.Exporter
	storageClient *gcpstorage.Client

	limiter  *ratelimit.Limiter
	renderer *headless.Fetcher

	postingRepoCloser *postgres.PostingRepository
	clock             jobs.Clock
	idGen             jobs.IDGenerator
}

// New creates and initializes an App based on the configuration. An empty
// db.dsn selects the in-memory stores; an empty pubsub.project_id selects
// the in-memory publisher. It fails fast if any backing service cannot be
// reached.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	metrics.Init()

	a := &App{
		cfg:    cfg,
		logger: logger,
		clock:  system.New(),
		idGen:  uuid.New(),
	}

	if cfg.DB.DSN != "" {
		pool, err := postgres.NewPool(ctx, postgres.Config{
			DSN:      cfg.DB.DSN,
			MaxConns: cfg.DB.MaxConns,
			MinConns: cfg.DB.MinConns,
		})
		if err != nil {
			return nil, err
		}
		repo, err := postgres.NewPostingRepository(pool)
		if err != nil {
			return nil, err
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		runs, err := postgres.NewRunStore(pool)
		if err != nil {
			return nil, err
		}
		if err := runs.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		a.repo = repo
		a.runs = runs
		a.postingRepoCloser = repo
		logger.Info("using postgres stores")
	} else {
		a.repo = memory.NewPostingRepository()
		a.runs = memory.NewRunStore()
		logger.Info("using in-memory stores; data will not survive restart")
	}

	if cfg.PubSub.ProjectID != "" {
		client, err := gcppubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("connect pubsub: %w", err)
		}
		a.pubsubClient = client
		a.publisher = pubsubpub.New(client)
		logger.Info("using pubsub publisher", zap.String("topic", cfg.PubSub.TopicName))
	} else {
		a.publisher = memorypub.New()
		logger.Info("using in-memory publisher")
	}

	a.limiter = ratelimit.New(ratelimit.Config{RPS: cfg.Scraper.PageRPS})

	if cfg.Scraper.RenderJS {
		renderer, err := headless.NewChromedp(headless.Config{
			MaxParallel: cfg.Scraper.HeadlessParallel,
			UserAgent:   cfg.Scraper.UserAgent,
		})
		if err != nil {
			return nil, fmt.Errorf("start headless renderer: %w", err)
		}
		a.renderer = renderer
		logger.Info("headless rendering enabled")
	}

	if err := a.initExporter(ctx); err != nil {
		return nil, err
	}

	return a, nil
}

// initExporter wires the run report exporter when export is configured.
func (a *App) initExporter(ctx context.Context) error {
	switch a.cfg.Export.Backend {
	case "":
		return nil
	case "local":
		store, err := local.New(local.Config{BaseDir: a.cfg.Export.Dir})
		if err != nil {
			return fmt.Errorf("init local export: %w", err)
		}
		a.exporter = report.New(store, a.logger.Named("report"))
	case "gcs":
		client, err := gcpstorage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("connect gcs: %w", err)
		}
		store, err := gcs.New(client, gcs.Config{Bucket: a.cfg.Export.Bucket})
		if err != nil {
			return fmt.Errorf("init gcs export: %w", err)
		}
		a.storageClient = client
		a.exporter = report.New(store, a.logger.Named("report"))
	default:
		return fmt.Errorf("unknown export backend %q", a.cfg.Export.Backend)
	}
	a.logger.Info("run report export enabled", zap.String("backend", a.cfg.Export.Backend))
	return nil
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Postings returns the posting repository.
func (a *App) Postings() jobs.PostingRepository {
	return a.repo
}

// Runs returns the run store.
func (a *App) Runs() jobs.RunStore {
	return a.runs
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// NewCoordinator assembles the scrape coordinator with a fresh task queue
// and page source. Each scrape run gets its own coordinator.
func (a *App) NewCoordinator() *scrape.Coordinator {
	store := lifecycle.New(a.repo, a.clock, a.logger.Named("lifecycle"))
	source := collyfetcher.New(collyfetcher.Config{
		UserAgent:     a.cfg.Scraper.UserAgent,
		RespectRobots: a.cfg.Scraper.RespectRobots,
		Timeout:       a.cfg.ScrapeTimeout(),
	}, a.clock, a.logger.Named("fetch"))
	source.UseLimiter(a.limiter)
	if a.renderer != nil {
		source.UseRenderer(a.renderer, detector.NewHeuristic(0))
	}
	queue := memoryqueue.NewQueue(a.cfg.Scraper.QueueDepth)

	return scrape.New(
		queue,
		store,
		a.repo,
		a.runs,
		source,
		a.publisher,
		a.clock,
		a.idGen,
		scrape.Config{
			Concurrency:        a.cfg.Scraper.Concurrency,
			MaxPages:           a.cfg.Scraper.MaxPages,
			SmartStopThreshold: a.cfg.SmartStop.Threshold,
			Topic:              a.cfg.PubSub.TopicName,
		},
		a.logger.Named("scrape"),
	)
}

// NewResolver assembles the duplicate resolver.
func (a *App) NewResolver() *dedup.Resolver {
	return dedup.NewResolver(a.repo, dedup.Config{
		TitleSimilarityMin:    a.cfg.Dedup.TitleSimilarityMin,
		LocationSimilarityMin: a.cfg.Dedup.LocationSimilarityMin,
		CombinedSimilarityMin: a.cfg.Dedup.CombinedSimilarityMin,
		TitleWeight:           a.cfg.Dedup.TitleWeight,
		LocationWeight:        a.cfg.Dedup.LocationWeight,
	}, a.logger.Named("dedup"))
}

// Exporter returns the run report exporter, or nil when export is disabled.
func (a *App) Exporter() *report.Exporter {
	return a.exporter
}

// NewAPIServer assembles the read-only HTTP server.
func (a *App) NewAPIServer() *api.Server {
	return api.NewServer(a.repo, a.runs, a.logger.Named("api"))
}

// Close gracefully shuts down all services in the container.
func (a *App) Close() {
	a.logger.Info("shutting down application services")
	if a.postingRepoCloser != nil {
		a.postingRepoCloser.Close()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("error closing pubsub client", zap.Error(err))
		}
	}
	if a.storageClient != nil {
		if err := a.storageClient.Close(); err != nil {
			a.logger.Warn("error closing storage client", zap.Error(err))
		}
	}
	if a.renderer != nil {
		a.renderer.Close()
	}
	// Flushing the logger is best effort; stderr sync fails on some
	// platforms.
	_ = a.logger.Sync()
}
