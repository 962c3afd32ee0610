package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Fullex26/backupnotify/internal/config"
	"github.com/Fullex26/backupnotify/internal/dispatch"
	"github.com/Fullex26/backupnotify/internal/setup"
	"github.com/Fullex26/backupnotify/internal/store"
	"github.com/Fullex26/backupnotify/pkg/models"
)

var (
	cfgPath string
	envPath string
	verbose bool
)

func main() {
	root := &cobra.Command{
		Use:          "backupnotify",
		Short:        "Report backup job results to Sensu and other monitoring channels",
		SilenceUsage: true,
	}
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		setupLogging(verbose)
		if err := config.LoadEnvFile(envPath); err != nil {
			slog.Warn("env file not loaded", "path", envPath, "error", err)
		}
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultConfigPath, "config file path")
	root.PersistentFlags().StringVar(&envPath, "env-file", setup.DefaultEnvPath, "env file holding credentials referenced by the config")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		notifyCmd(),
		testCmd(),
		historyCmd(),
		setupCmd(),
		versionCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

func notifyCmd() *cobra.Command {
	var label, trigger, outcomeName string
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send the result of one backup run",
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := models.ParseOutcome(outcomeName)
			if err != nil {
				return err
			}

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			var recorder dispatch.Recorder
			if cfg.History.Enabled {
				db, err := openHistory(cfg.History)
				if err != nil {
					// History is best-effort; the notification still goes out.
					slog.Warn("history unavailable", "path", cfg.History.Path, "error", err)
				} else {
					defer db.Close()
					recorder = db
				}
			}

			d := dispatch.New(cfg.Policy, dispatch.NotifiersFromConfig(cfg), recorder)
			job := models.Job{Label: label, Trigger: trigger}
			return d.Notify(cmd.Context(), job, outcome)
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "backup job label")
	cmd.Flags().StringVar(&trigger, "trigger", "", "backup job trigger")
	cmd.Flags().StringVar(&outcomeName, "outcome", "", "success, warning or failure")
	_ = cmd.MarkFlagRequired("label")
	_ = cmd.MarkFlagRequired("trigger")
	_ = cmd.MarkFlagRequired("outcome")
	return cmd
}

func testCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Send a test notification to all configured channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			d := dispatch.New(cfg.Policy, dispatch.NotifiersFromConfig(cfg), nil)

			fmt.Println("Sending test notification...")
			if err := d.Test(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Test notification sent!")
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	var hours int
	var label string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent notification attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if !cfg.History.Enabled {
				return fmt.Errorf("history is disabled in %s", cfgPath)
			}

			db, err := store.Open(cfg.History.Path)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer db.Close()

			deliveries, err := db.RecentDeliveries(hours)
			if err != nil {
				return err
			}
			count, err := db.DeliveryCount(hours)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Deliveries (%dh): %d\n", hours, count)
			if label != "" {
				last, err := db.LastFailure(label)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Last failure for %s: %s\n", label, last)
			}
			fmt.Fprintln(out)

			if len(deliveries) == 0 {
				fmt.Fprintf(out, "No deliveries in the last %d hours\n", hours)
				return nil
			}
			fmt.Fprintln(out, renderHistory(deliveries, shouldColorize(out)))
			return nil
		},
	}
	cmd.Flags().IntVar(&hours, "hours", 24, "look-back window in hours")
	cmd.Flags().StringVar(&label, "label", "", "show last failure for this job label")
	return cmd
}

func setupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Interactive setup wizard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return setup.Run(cfgPath, envPath)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("backupnotify %s\n", dispatch.Version)
		},
	}
}

// openHistory opens the history store and prunes expired rows
func openHistory(cfg config.HistoryConfig) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0750); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	db, err := store.Open(cfg.Path)
	if err != nil {
		return nil, err
	}
	if cfg.RetentionDays > 0 {
		pruned, err := db.Prune(cfg.RetentionDays)
		if err != nil {
			slog.Warn("pruning history failed", "error", err)
		} else if pruned > 0 {
			slog.Debug("pruned old deliveries", "count", pruned)
		}
	}
	return db, nil
}
