package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jobsight/jobtracker/internal/jobs"
)

// newStatsCmd creates the 'stats' subcommand, which prints recent runs and
// per-company posting counts.
func newStatsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Prints recent runs and per-company posting counts",

		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatsCommand(cmd, limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of recent runs to show")
	return cmd
}

func runStatsCommand(cmd *cobra.Command, limit int) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	runs, err := appInstance.Runs().RecentRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("list recent runs: %w", err)
	}
	fmt.Fprintf(out, "Recent runs (%d):\n", len(runs))
	for _, run := range runs {
		completed := "running"
		if run.Completed != nil {
			completed = run.Completed.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(out, "  %s  %-9s  started=%s finished=%s found=%d new=%d deactivated=%d\n",
			run.ID, run.Status, run.StartedAt.Format("2006-01-02 15:04:05"), completed,
			run.Stats.JobsFound, run.Stats.JobsNew, run.Stats.JobsDeactivated)
	}

	companies, err := appInstance.Postings().ListCompanies(ctx)
	if err != nil {
		return fmt.Errorf("list companies: %w", err)
	}
	fmt.Fprintf(out, "Companies (%d):\n", len(companies))
	for _, company := range companies {
		counts := map[jobs.Status]int{}
		for _, status := range []jobs.Status{jobs.StatusActive, jobs.StatusAbsent, jobs.StatusSuperseded} {
			postings, err := appInstance.Postings().ListByCompany(ctx, company, status)
			if err != nil {
				return fmt.Errorf("list postings for %s: %w", company, err)
			}
			counts[status] = len(postings)
		}
		fmt.Fprintf(out, "  %-20s active=%d absent=%d superseded=%d\n",
			company, counts[jobs.StatusActive], counts[jobs.StatusAbsent], counts[jobs.StatusSuperseded])
	}
	return nil
}
