package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/toolstock/gls-rpa/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full download, normalize and reconcile pipeline",
	Args:  cobra.NoArgs,
	RunE:  runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	date := reportDate()
	logger.Info("Starting GLS shipments RPA",
		zap.String("report_date", date.Display()),
		zap.Int("days_ago", cfg.Report.DaysAgo),
		zap.Bool("headless", cfg.Browser.Headless))

	o, err := pipeline.New(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize pipeline", zap.Error(err))
		return errFailed
	}

	if res := o.Run(ctx, date); !res.Success {
		return errFailed
	}
	return nil
}
