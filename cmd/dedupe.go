package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newDedupeCmd creates the 'dedupe' subcommand, which resolves duplicate
// groups across every company's active postings.
func newDedupeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dedupe",
		Short: "Resolves near-duplicate postings into groups",
		Long: `Compares every pair of active postings within each company using
normalized title and location similarity. Each duplicate group keeps its
earliest-seen posting as canonical; the rest are marked superseded and point
at the canonical posting's URL.`,

		RunE: runDedupeCommand,
	}
	return cmd
}

func runDedupeCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.Logger()

	report, err := appInstance.NewResolver().ResolveAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("resolve duplicates: %w", err)
	}

	logger.Info("dedupe finished",
		zap.Int("groups", len(report.Groups)),
		zap.Int("superseded", report.Superseded),
		zap.Int("failed_companies", len(report.Failures)),
	)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Resolved %d duplicate groups (%d postings superseded)\n",
		len(report.Groups), report.Superseded)
	for _, group := range report.Groups {
		fmt.Fprintf(out, "  %s: canonical %s\n", group.Company, group.CanonicalURL)
		for _, member := range group.Members {
			fmt.Fprintf(out, "    superseded %s (score %.3f)\n", member.URL, member.Score)
		}
	}
	if len(report.Failures) > 0 {
		for company, ferr := range report.Failures {
			fmt.Fprintf(out, "  FAILED %s: %v\n", company, ferr)
		}
		return fmt.Errorf("dedupe failed for %d companies", len(report.Failures))
	}
	return nil
}
