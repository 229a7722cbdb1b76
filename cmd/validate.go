package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/MisterBeardy/saintcalendar-sub000/internal/model"
	"github.com/MisterBeardy/saintcalendar-sub000/internal/pipeline"
	"github.com/MisterBeardy/saintcalendar-sub000/internal/progress"
	"github.com/MisterBeardy/saintcalendar-sub000/internal/validator"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Scan and validate without importing",
	Long:  "Runs the master and detail scans, validates the collected records, and reports quality. Exits non-zero when the quality gate fails.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		p, err := buildPipeline(nil)
		if err != nil {
			return err
		}

		_, res, err := p.Validate(ctx, progress.NewTracker(0))
		if err != nil {
			return eris.Wrap(err, "validate")
		}

		verbose, _ := cmd.Flags().GetBool("verbose")
		formatValidation(os.Stdout, res, verbose)

		if !res.Passed {
			return eris.Errorf("quality gate failed: score %.2f, error rate %.2f", res.Score, res.ErrorRate)
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().Bool("verbose", false, "list every issue instead of the first few per kind")
	rootCmd.AddCommand(validateCmd)
}

// formatValidation writes per-kind counts, the quality score, and issue
// details.
func formatValidation(out io.Writer, res *validator.Result, verbose bool) {
	r := res.Report

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KIND\tTOTAL\tVALID")
	_, _ = fmt.Fprintf(w, "locations\t%d\t%d\n", r.Locations.Total, r.Locations.Valid)
	_, _ = fmt.Fprintf(w, "saints\t%d\t%d\n", r.Saints.Total, r.Saints.Valid)
	_, _ = fmt.Fprintf(w, "historical\t%d\t%d\n", r.Historical.Total, r.Historical.Valid)
	_, _ = fmt.Fprintf(w, "milestones\t%d\t%d\n", r.Milestones.Total, r.Milestones.Valid)
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\nQuality score: %.2f\nError rate: %.2f\nGate: %s\n",
		res.Score, res.ErrorRate, gateLabel(res.Passed))

	printIssues(out, "Location issues", r.LocationIssues, verbose)
	printIssues(out, "Saint issues", r.SaintIssues, verbose)
	printIssues(out, "Historical issues", r.HistoricalIssues, verbose)
	printIssues(out, "Milestone issues", r.MilestoneIssues, verbose)
}

func printIssues(out io.Writer, heading string, issues []model.Issue, verbose bool) {
	if len(issues) == 0 {
		return
	}
	limit := pipeline.DefaultIssueLimit
	if verbose {
		limit = len(issues)
	}
	_, _ = fmt.Fprintf(out, "\n%s (%d):\n", heading, len(issues))
	for _, line := range pipeline.IssueLines(issues, limit) {
		_, _ = fmt.Fprintf(out, "  %s\n", line)
	}
}

func gateLabel(passed bool) string {
	if passed {
		return "PASS"
	}
	return "FAIL"
}
