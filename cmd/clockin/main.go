package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/v0xg/clockin/internal/app"
	"github.com/v0xg/clockin/internal/config"
	"github.com/v0xg/clockin/internal/executor"
	"github.com/v0xg/clockin/internal/observability"
	"go.uber.org/zap"
)

var (
	action     string
	visible    bool
	force      bool
	dryRun     bool
	configPath string
	driver     string
	verbose    bool
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "clockin --action START|PAUSE|RESUME|END",
		Short: "Clock workday actions on the Bixpe time-tracking site",
		Long: `clockin signs in to Bixpe and performs one workday action: start, pause,
resume or end. Weekends and holidays are always skipped; outside of them the
action only runs when schedule.json lists it for today, unless --force is given.

Example:
  clockin --action START
  clockin --action PAUSE --dry-run --visible`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	rootCmd.Flags().StringVarP(&action, "action", "a", "", "Action to perform: START, PAUSE, RESUME or END")
	rootCmd.Flags().BoolVar(&visible, "visible", false, "Show the browser window")
	rootCmd.Flags().BoolVar(&force, "force", false, "Ignore schedule.json (weekends and holidays still apply)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Walk the flow but cancel any confirmation instead of accepting it")
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./clockin.yaml if present)")
	rootCmd.Flags().StringVar(&driver, "driver", "", "Browser driver: rod or chromedp (default: from config)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log debug detail")
	_ = rootCmd.MarkFlagRequired("action")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		observability.Sync()
		os.Exit(1)
	}
	observability.Sync()
}

func run(cmd *cobra.Command, args []string) error {
	act, err := executor.ParseAction(action)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if visible {
		cfg.Browser.Headless = false
	}
	if driver != "" {
		cfg.Browser.Driver = driver
	}
	if verbose {
		cfg.Logger.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	observability.InitializeLogger(cfg.Logger)
	log := observability.GetLogger()

	mode := executor.Commit
	if dryRun {
		mode = executor.Simulate
	}
	log.Info("Starting.",
		zap.String("action", act.String()),
		zap.String("mode", mode.String()),
		zap.Bool("force", force),
		zap.String("driver", cfg.Browser.Driver),
		zap.Bool("headless", cfg.Browser.Headless))

	summary, err := app.NewRunner(cfg, log).Run(context.Background(), app.Request{Action: act, Mode: mode, Force: force})
	if err != nil {
		log.Error("Run failed.", zap.Error(err))
		return err
	}
	switch {
	case summary.Skipped():
		log.Info("Skipped.", zap.String("reason", string(summary.Decision.Reason)))
	case summary.Result != nil && summary.Result.Outcome == executor.AlreadyInTargetState:
		log.Info("Nothing to do, already in target state.")
	default:
		log.Info("Done.", zap.String("evidence", summary.Result.Evidence))
	}
	return nil
}
