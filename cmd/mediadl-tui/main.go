package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/chatvault/mediadl/internal/config"
	"github.com/chatvault/mediadl/internal/download"
	"github.com/chatvault/mediadl/internal/fetch"
	"github.com/chatvault/mediadl/internal/ingest"
	"github.com/chatvault/mediadl/internal/logging"
	"github.com/chatvault/mediadl/internal/storage"
	"github.com/chatvault/mediadl/internal/tui"
)

func main() {
	configFlag := flag.String("config", "", "path to settings file")
	flag.Parse()

	if err := run(*configFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// The terminal belongs to the dashboard; logs are discarded.
	log := logging.Nop()

	var strategies []fetch.Strategy
	if settings.BridgeURL != "" {
		strategies = append(strategies, fetch.NewBridgeStrategy(settings.BridgeURL))
	}
	strategies = append(strategies, fetch.NewHTTPStrategy(""))

	driver := fetch.NewStrategyDriver(settings.FetchTimeout(), log, strategies...)
	manager, err := download.NewManager(settings, driver, storage.New(settings.MediaRoot), log)
	if err != nil {
		return err
	}
	defer manager.Close()

	watcher, err := ingest.NewWatcher(settings.SpoolDir, manager, log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = watcher.Run(ctx) }()

	return tui.Run(manager)
}
