package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MisterBeardy/saintcalendar-sub000/internal/model"
	"github.com/MisterBeardy/saintcalendar-sub000/internal/pipeline"
	"github.com/MisterBeardy/saintcalendar-sub000/internal/progress"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the full import pipeline",
	Long:  "Scans the master index and every location sheet, validates the collected records, and imports them in a single transaction. The downstream refresh fires after a successful commit.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		// No usable store means a sheets-only dry run: scan and validate,
		// warn, and skip the import phase.
		if err := cfg.ValidateStore(); err != nil {
			zap.L().Warn("no store configured, running scan and validation only", zap.Error(err))
			return dryRun(cmd)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		p, err := buildPipeline(st)
		if err != nil {
			return err
		}

		tracker := progress.NewTracker(0)
		run, err := p.Run(ctx, tracker)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("import complete",
			zap.String("run", run.ID),
			zap.Int("imported", run.Outcome.TotalImported()),
			zap.Int("skipped", run.Outcome.TotalSkipped()),
		)

		formatOutcome(os.Stdout, run.Outcome)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// dryRun executes phases 1 through 3 without a store.
func dryRun(cmd *cobra.Command) error {
	p, err := buildPipeline(nil)
	if err != nil {
		return err
	}

	_, res, err := p.Validate(cmd.Context(), progress.NewTracker(0))
	if err != nil {
		return eris.Wrap(err, "dry run")
	}

	formatValidation(os.Stdout, res, false)
	if !res.Passed {
		return eris.Errorf("quality gate failed: score %.2f, error rate %.2f", res.Score, res.ErrorRate)
	}
	return nil
}

// formatOutcome writes per-kind import counters and skip details.
func formatOutcome(out io.Writer, o *model.ImportOutcome) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KIND\tIMPORTED\tSKIPPED\tFAILED")
	_, _ = fmt.Fprintf(w, "locations\t%d\t%d\t%d\n", o.Locations.Imported, o.Locations.Skipped, o.Locations.Failed)
	_, _ = fmt.Fprintf(w, "saints\t%d\t%d\t%d\n", o.Saints.Imported, o.Saints.Skipped, o.Saints.Failed)
	_, _ = fmt.Fprintf(w, "stickers\t%d\t%d\t%d\n", o.Stickers.Imported, o.Stickers.Skipped, o.Stickers.Failed)
	_, _ = fmt.Fprintf(w, "historical\t%d\t%d\t%d\n", o.Historical.Imported, o.Historical.Skipped, o.Historical.Failed)
	_, _ = fmt.Fprintf(w, "milestones\t%d\t%d\t%d\n", o.Milestones.Imported, o.Milestones.Skipped, o.Milestones.Failed)
	_, _ = fmt.Fprintf(w, "events\t%d\t\t\n", o.EventsCreated)
	_ = w.Flush()

	if len(o.SkippedItems) > 0 {
		_, _ = fmt.Fprintf(out, "\nSkipped (%d):\n", len(o.SkippedItems))
		for _, line := range pipeline.SkipLines(o.SkippedItems, pipeline.DefaultIssueLimit) {
			_, _ = fmt.Fprintf(out, "%s\n", line)
		}
	}
	if len(o.FailedItems) > 0 {
		_, _ = fmt.Fprintf(out, "\nFailed (%d):\n", len(o.FailedItems))
		for _, line := range pipeline.SkipLines(o.FailedItems, pipeline.DefaultIssueLimit) {
			_, _ = fmt.Fprintf(out, "%s\n", line)
		}
	}
}
