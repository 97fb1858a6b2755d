// Package cmd defines and implements the CLI commands for the jobtracker
// executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobsight/jobtracker/internal/api"
	"github.com/jobsight/jobtracker/internal/app"
	"github.com/jobsight/jobtracker/internal/config"
	"github.com/jobsight/jobtracker/internal/dedup"
	"github.com/jobsight/jobtracker/internal/jobs"
	"github.com/jobsight/jobtracker/internal/report"
	"github.com/jobsight/jobtracker/internal/scrape"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands use. This allows a
// mock app to be injected during tests.
type App interface {
	Close()
	Logger() *zap.Logger
	Postings() jobs.PostingRepository
	Runs() jobs.RunStore
	Config() config.Config
	NewCoordinator() *scrape.Coordinator
	NewResolver() *dedup.Resolver
	NewAPIServer() *api.Server
	Exporter() *report.Exporter
}

// newApp is the application factory. It is a variable so tests can replace
// it with a mock factory.
var newApp = func(ctx context.Context) (App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobtracker",
		Short: "Incremental job posting tracker with lifecycle and dedup.",
		Long: `jobtracker maintains a persistent record of job postings scraped from
career sites. It crawls listing pages incrementally, tracks each posting's
lifecycle across runs, and collapses near-duplicate postings into groups.`,

		// Runs before each subcommand's RunE: build and inject the app.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml if present)")

	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newDedupeCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newStatsCmd())

	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, fmt.Errorf("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "command failed: %v\n", err)
		os.Exit(1)
	}
}
