// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package main is the entry point for the PICS ingestion service.
//
// # Application Architecture
//
// The process initializes components in the following order:
//
//  1. Configuration: Koanf v2, layered defaults/file/env (internal/config).
//  2. Logging: zerolog, configured from the loaded config.
//  3. Store: pgxpool-backed Postgres connection (internal/store).
//  4. Upstream session/fetcher: websocket RPC client with circuit breaker
//     and rate limiting (internal/upstream).
//  5. Mode dispatch:
//     - bulk_sync runs the C6 backfill worker once and exits.
//     - change_monitor runs the C5 worker and the health HTTP server
//       under a suture supervisor tree until a shutdown signal arrives.
//
// # Signal Handling
//
// In change_monitor mode the process handles SIGINT/SIGTERM by canceling
// the root context, which drains the supervisor tree gracefully.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/tomtom215/picsync/internal/backfill"
	"github.com/tomtom215/picsync/internal/config"
	"github.com/tomtom215/picsync/internal/health"
	"github.com/tomtom215/picsync/internal/logging"
	"github.com/tomtom215/picsync/internal/monitor"
	"github.com/tomtom215/picsync/internal/store"
	"github.com/tomtom215/picsync/internal/supervisor"
	"github.com/tomtom215/picsync/internal/supervisor/services"
	"github.com/tomtom215/picsync/internal/upstream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: formatOf(cfg.Logging.JSON),
	})

	logging.Info().Str("mode", string(cfg.Service.Mode)).Msg("starting picsync")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	st, err := store.New(ctx, cfg.Store.URL)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to store")
	}
	defer st.Close()

	healthServer := health.NewServer()
	httpServer := health.NewHTTPServer(":"+strconv.Itoa(cfg.Service.Port), healthServer)

	switch cfg.Service.Mode {
	case config.ModeBulkSync:
		runBulkSync(ctx, cfg, st, healthServer, httpServer)
	case config.ModeChangeMonitor:
		runChangeMonitor(ctx, cfg, st, healthServer, httpServer)
	default:
		logging.Fatal().Str("mode", string(cfg.Service.Mode)).Msg("unknown service mode")
	}

	logging.Info().Msg("picsync stopped")
}

// runBulkSync runs the C6 backfill worker once to completion and exits,
// matching original_source's bulk_sync.py entrypoint. The health server
// still runs (and is checked by platform health probes) for the duration
// of the pass.
func runBulkSync(ctx context.Context, cfg *config.Config, st *store.Store, healthServer *health.Server, httpServer *http.Server) {
	ctx = logging.ContextWithNewRunID(ctx)

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Warn().Err(err).Msg("health server stopped")
		}
	}()
	healthServer.MarkRunning()

	client := upstream.NewWSClient(cfg.Session.Endpoint)
	session := upstream.NewSession(client, cfg.Session.HeartbeatInterval)
	fetcher := upstream.NewFetcher(session, upstream.FetcherConfig{
		BatchSize:    cfg.Bulk.BatchSize,
		RequestDelay: cfg.Bulk.RequestDelay,
		Timeout:      cfg.Bulk.Timeout,
		MaxRetries:   cfg.Bulk.MaxRetries,
	}, "bulk")

	worker := backfill.NewWorker(session, fetcher, st, healthServer)
	result, err := worker.Run(ctx, nil)
	if err != nil {
		logging.Fatal().Err(err).Msg("bulk sync failed")
	}

	logging.Info().
		Int("processed", result.Processed).
		Int("failed", result.Failed).
		Dur("elapsed", result.Elapsed).
		Msg("bulk sync complete")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("health server shutdown failed")
	}
}

// runChangeMonitor runs the C5 worker and the health server as supervised
// services until ctx is canceled by a shutdown signal.
func runChangeMonitor(ctx context.Context, cfg *config.Config, st *store.Store, healthServer *health.Server, httpServer *http.Server) {
	ctx = logging.ContextWithNewRunID(ctx)

	slogLogger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create supervisor tree")
	}

	client := upstream.NewWSClient(cfg.Session.Endpoint)
	session := upstream.NewSession(client, cfg.Session.HeartbeatInterval)
	fetcher := upstream.NewFetcher(session, upstream.FetcherConfig{
		BatchSize:    cfg.Fetch.BatchSize,
		RequestDelay: cfg.Fetch.RequestDelay,
		Timeout:      cfg.Fetch.Timeout,
		MaxRetries:   cfg.Fetch.MaxRetries,
	}, "fetch")

	worker := monitor.NewWorker(session, fetcher, st, monitor.Config{
		PollInterval:     cfg.Monitor.PollInterval,
		ProcessBatchSize: cfg.Monitor.ProcessBatchSize,
		MaxQueueSize:     cfg.Monitor.MaxQueueSize,
	}, healthServer)

	tree.AddIngestionService(services.NewIngestionService(worker))
	tree.AddHealthService(services.NewHTTPServerService(httpServer, 10*time.Second))
	healthServer.MarkRunning()

	logging.Info().Msg("starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	reportUnstopped(tree)
}

func reportUnstopped(tree *supervisor.SupervisorTree) {
	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("service failed to stop within timeout")
	}
}

func formatOf(jsonOutput bool) string {
	if jsonOutput {
		return "json"
	}
	return "console"
}
