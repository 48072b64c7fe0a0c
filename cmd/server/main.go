// Terascout - Event Intelligence Scouts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/terascout

// Command server runs the Terascout daemon: the scout engine manager and the
// HTTP control plane, under a suture supervision tree.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/terascout/internal/ai"
	"github.com/tomtom215/terascout/internal/api"
	"github.com/tomtom215/terascout/internal/config"
	"github.com/tomtom215/terascout/internal/engine"
	"github.com/tomtom215/terascout/internal/logging"
	"github.com/tomtom215/terascout/internal/notify"
	"github.com/tomtom215/terascout/internal/store"
	"github.com/tomtom215/terascout/internal/supervisor"
	"github.com/tomtom215/terascout/internal/supervisor/services"

	fetchpkg "github.com/tomtom215/terascout/internal/fetch"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "terascout: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logger := logging.Logger()
	logger.Info().Str("version", version).Int("port", cfg.Server.Port).Msg("Terascout starting")

	st, err := store.Open(store.Options{
		Path:                  cfg.Store.Path,
		MaxSnapshotTextLength: cfg.Scout.MaxSnapshotTextLength,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger := logging.Logger()
			logger.Error().Err(closeErr).Msg("Store close failed")
		}
	}()

	analyzer, err := ai.NewClient(cfg.AI)
	if err != nil {
		return fmt.Errorf("create ai client: %w", err)
	}
	fetcher := fetchpkg.NewFetcher(cfg.Fetch)
	mailer := notify.NewSMTPMailer(cfg.SMTP)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	manager := engine.NewManager(ctx, st, cfg.Scout, fetcher, analyzer, mailer)

	handlers := api.NewHandlers(st, manager, analyzer, cfg.Scout, version)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handlers, cfg.Server),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddScoutService(services.NewEngineService(manager))
	tree.AddAPIService(services.NewHTTPService(server, cfg.Server.ShutdownTimeout))

	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor: %w", err)
	}
	logger = logging.Logger()
	logger.Info().Msg("Terascout stopped")
	return nil
}
