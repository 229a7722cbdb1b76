package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MisterBeardy/saintcalendar-sub000/internal/config"
)

var (
	cfg          *config.Config
	workbookPath string
)

var rootCmd = &cobra.Command{
	Use:   "saintcal",
	Short: "Saint calendar import pipeline",
	Long:  "Scans the master location index and per-location spreadsheets, validates the collected records, and imports them transactionally into the calendar database.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		if workbookPath != "" {
			cfg.Sheets.WorkbookPath = workbookPath
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&workbookPath, "workbook", "", "path to a local .xlsx master workbook (overrides the remote source)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
