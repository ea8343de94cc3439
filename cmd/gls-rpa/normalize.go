package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/toolstock/gls-rpa/internal/normalize"
	"github.com/toolstock/gls-rpa/internal/pipeline"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <file>",
	Short: "Convert an already downloaded export into the canonical spreadsheet",
	Long: `Classifies the file by content, converts it into <final>/<yyyymmdd>.xlsx
for the report date and, with --reconcile, enriches it from the order
database. The source file is left in place.`,
	Args: cobra.ExactArgs(1),
	RunE: runNormalize,
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Fill order ids and references into an existing canonical spreadsheet",
	Args:  cobra.NoArgs,
	RunE:  runReconcile,
}

var classifyCmd = &cobra.Command{
	Use:   "classify <file>",
	Short: "Print whether a download is HTML or a spreadsheet",
	Args:  cobra.ExactArgs(1),
	// No configuration needed
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := normalize.ClassifyFile(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), format)
		return nil
	},
}

func init() {
	normalizeCmd.Flags().Bool("reconcile", false, "reconcile against the order database after normalizing")
	rootCmd.AddCommand(normalizeCmd, reconcileCmd, classifyCmd)
}

func runNormalize(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	date := reportDate()
	if !pipeline.NewNormalizer(cfg, logger).Normalize(ctx, args[0], date) {
		return errFailed
	}

	if withReconcile, _ := cmd.Flags().GetBool("reconcile"); withReconcile {
		return runReconcile(cmd, nil)
	}
	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	r, err := pipeline.NewReconciler(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize reconciler", zap.Error(err))
		return errFailed
	}
	if !r.Reconcile(ctx, reportDate()) {
		return errFailed
	}
	return nil
}
