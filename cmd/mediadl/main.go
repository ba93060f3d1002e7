package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chatvault/mediadl/internal/config"
	"github.com/chatvault/mediadl/internal/download"
	"github.com/chatvault/mediadl/internal/fetch"
	"github.com/chatvault/mediadl/internal/ingest"
	"github.com/chatvault/mediadl/internal/logging"
	"github.com/chatvault/mediadl/internal/model"
	"github.com/chatvault/mediadl/internal/storage"
)

var version = "0.1.0"

func main() {
	var configPath string
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "mediadl",
		Short: "Media download manager",
		Long: `mediadl downloads media referenced by message events: it admits
eligible events, queues them, fetches the content with retries and a
circuit breaker, verifies integrity, deduplicates, and stores the files
under a date-partitioned root with JSON metadata sidecars.

Events arrive as JSON files dropped into a spool directory, or one-off
via the submit command.`,
		Version: version,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to settings file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(runCmd(&configPath, &verbose))
	rootCmd.AddCommand(submitCmd(&configPath, &verbose))
	rootCmd.AddCommand(configCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "mediadl.json"
	}
	return homeDir + "/mediadl/settings.json"
}

func newLogger(verbose bool) logging.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return logging.NewSlogLogger(slog.New(handler))
}

func buildManager(settings *config.Settings, log logging.Logger) (*download.Manager, error) {
	var strategies []fetch.Strategy
	if settings.BridgeURL != "" {
		strategies = append(strategies, fetch.NewBridgeStrategy(settings.BridgeURL))
	}
	strategies = append(strategies, fetch.NewHTTPStrategy(""))

	driver := fetch.NewStrategyDriver(settings.FetchTimeout(), log, strategies...)
	store := storage.New(settings.MediaRoot)

	return download.NewManager(settings, driver, store, log)
}

func runCmd(configPath *string, verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the download manager over the spool directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			log := newLogger(*verbose)

			manager, err := buildManager(settings, log)
			if err != nil {
				return err
			}
			defer manager.Close()

			watcher, err := ingest.NewWatcher(settings.SpoolDir, manager, log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go cleanupLoop(ctx, manager, settings.CleanupCompletedAfter())

			log.Info(ctx, "media download manager running",
				"spool", settings.SpoolDir,
				"mediaRoot", settings.MediaRoot,
				"workers", settings.ConcurrentDownloads)

			if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			log.Info(context.Background(), "shutting down")
			return nil
		},
	}
}

// cleanupLoop purges terminal item states on a fixed cadence. The purge
// interval tracks the retention window but never exceeds an hour, so short
// retention settings still take effect promptly.
func cleanupLoop(ctx context.Context, manager *download.Manager, retention time.Duration) {
	interval := retention
	if interval > time.Hour {
		interval = time.Hour
	}
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			manager.CleanupCompleted()
		}
	}
}

func submitCmd(configPath *string, verbose *bool) *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "submit <event.json> [event.json ...]",
		Short: "Submit event files directly and wait for the outcome",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			log := newLogger(*verbose)

			manager, err := buildManager(settings, log)
			if err != nil {
				return err
			}
			defer manager.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var ids []string
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				var event model.MediaEvent
				if err := json.Unmarshal(data, &event); err != nil {
					return fmt.Errorf("parse %s: %w", path, err)
				}

				enriched := manager.ProcessEvent(ctx, event)
				switch {
				case enriched.LocalMedia == nil:
					fmt.Printf("%s: not eligible\n", path)
				case enriched.LocalMedia.Deduplicated:
					fmt.Printf("%s: already downloaded (deduplicated)\n", path)
				default:
					ids = append(ids, event.LogicalID())
				}
			}

			return waitForItems(ctx, manager, ids, wait)
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 5*time.Minute, "how long to wait for submitted downloads")
	return cmd
}

func waitForItems(ctx context.Context, manager *download.Manager, ids []string, wait time.Duration) error {
	if len(ids) == 0 {
		return nil
	}

	deadline := time.Now().Add(wait)
	pending := make(map[string]bool, len(ids))
	for _, id := range ids {
		pending[id] = true
	}

	var failed int
	for len(pending) > 0 {
		if ctx.Err() != nil || time.Now().After(deadline) {
			for id := range pending {
				fmt.Printf("%s: still pending\n", id)
			}
			break
		}

		for id := range pending {
			state, ok := manager.ItemState(id)
			if !ok || !state.Status.Terminal() {
				continue
			}
			delete(pending, id)
			switch state.Status {
			case model.StatusDownloaded:
				fmt.Printf("%s: downloaded -> %s\n", id, state.Result.FilePath)
			default:
				failed++
				fmt.Printf("%s: %s (%s)\n", id, state.Status, state.Err)
			}
		}

		time.Sleep(200 * time.Millisecond)
	}

	if failed > 0 {
		return fmt.Errorf("%d download(s) failed", failed)
	}
	return nil
}

func configCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a settings file with default values",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(*configPath); err == nil {
				return fmt.Errorf("%s already exists", *configPath)
			}
			settings := config.DefaultSettings()
			if err := settings.Save(*configPath); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", *configPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(settings, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	})

	return cmd
}
