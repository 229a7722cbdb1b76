package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/MisterBeardy/saintcalendar-sub000/internal/model"
	"github.com/MisterBeardy/saintcalendar-sub000/internal/pipeline"
	"github.com/MisterBeardy/saintcalendar-sub000/internal/progress"
)

const elapsedPrecision = 10 * time.Millisecond

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the master index and location sheets without importing",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		p, err := buildPipeline(nil)
		if err != nil {
			return err
		}

		tracker := progress.NewTracker(0)
		run, err := p.Scan(ctx, tracker)
		if err != nil {
			return eris.Wrap(err, "scan")
		}

		formatScan(os.Stdout, run, tracker)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

// formatScan writes the per-partition and per-collection counts.
func formatScan(out io.Writer, run *model.PipelineRun, tracker *progress.Tracker) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Open locations:\t%d\n", len(run.Open))
	_, _ = fmt.Fprintf(w, "Pending locations:\t%d\n", len(run.Pending))
	_, _ = fmt.Fprintf(w, "Closed locations:\t%d\n", len(run.Closed))
	_, _ = fmt.Fprintf(w, "Valid locations:\t%d\n", len(run.ValidLocations()))
	_, _ = fmt.Fprintf(w, "Saints:\t%d\n", len(run.Saints))
	_, _ = fmt.Fprintf(w, "Historical records:\t%d\n", len(run.Historical))
	_, _ = fmt.Fprintf(w, "Milestones:\t%d\n", len(run.Milestones))
	_, _ = fmt.Fprintf(w, "Elapsed:\t%s\n", tracker.Elapsed().Round(elapsedPrecision))
	_ = w.Flush()

	if errs := tracker.Errors(); len(errs) > 0 {
		_, _ = fmt.Fprintf(out, "\nErrors (%d):\n", len(errs))
		for i, msg := range errs {
			if i == pipeline.DefaultIssueLimit {
				_, _ = fmt.Fprintf(out, "  …and %d more\n", len(errs)-i)
				break
			}
			_, _ = fmt.Fprintf(out, "  %s\n", msg)
		}
	}
}
