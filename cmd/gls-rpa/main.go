package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/toolstock/gls-rpa/internal/config"
	"github.com/toolstock/gls-rpa/internal/report"
	"github.com/toolstock/gls-rpa/pkg/utils"
)

// errFailed signals an unsuccessful run; details are already logged
var errFailed = errors.New("run failed")

var (
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "gls-rpa",
	Short: "Daily GLS shipment report download and reconciliation",
	Long: `Logs into the GLS carrier portal, exports the shipment report for one
day, converts it into <final>/<yyyymmdd>.xlsx and fills id_order_ps and
reference_ps from the shop's order database.

Without a subcommand the full pipeline runs.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runPipeline,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.String("config", "", "optional YAML configuration file")
	f.String("env-file", ".env", "dotenv file loaded before the environment")
	f.Int("days-ago", 0, "report date offset from today (overrides DAYS_AGO)")
	f.Bool("headless", false, "run the browser without a window (overrides BROWSER_HEADLESS)")
}

// setup loads configuration, applies flag overrides and builds the logger
func setup(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")

	c, err := config.Load(config.Options{ConfigPath: configPath, EnvFile: envFile})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := applyOverrides(cmd, c); err != nil {
		return err
	}
	cfg = c

	l, err := utils.NewLogger(utils.LoggerConfig{
		Level:       cfg.Logger.Level,
		OutputPaths: cfg.Logger.OutputPaths,
		Format:      cfg.Logger.Format,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger = l
	return nil
}

// applyOverrides copies explicitly set flags onto the configuration
func applyOverrides(cmd *cobra.Command, c *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("days-ago") {
		days, err := flags.GetInt("days-ago")
		if err != nil {
			return err
		}
		if days < 0 {
			return fmt.Errorf("--days-ago must not be negative, got %d", days)
		}
		c.Report.DaysAgo = days
	}
	if flags.Changed("headless") {
		headless, err := flags.GetBool("headless")
		if err != nil {
			return err
		}
		c.Browser.Headless = headless
	}
	return nil
}

func reportDate() report.Date {
	return cfg.ReportDate(time.Now())
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
