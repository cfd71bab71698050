// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package services

import (
	"context"
	"fmt"
)

// StartStopManager interface matches the change monitor worker lifecycle.
//
// This interface abstracts the worker's Start/Stop pattern, allowing the
// IngestionService wrapper to adapt it to suture's Serve pattern without
// modifying the worker itself.
//
// Satisfied by *monitor.Worker (the bulk backfill worker has only Run and
// is not wrapped):
//   - Start(ctx context.Context) error
//   - Stop() error
type StartStopManager interface {
	Start(ctx context.Context) error
	Stop() error
}

// IngestionService wraps the change monitor worker as a supervised service.
//
// It adapts the Start/Stop lifecycle pattern to suture's Serve pattern:
//  1. Calls Start(ctx) to begin the worker
//  2. Waits for context cancellation
//  3. Calls Stop() for graceful shutdown
//
// The worker handles its own goroutines internally, so this wrapper simply
// orchestrates the lifecycle transitions.
type IngestionService struct {
	manager StartStopManager
	name    string
}

// NewIngestionService creates a new ingestion service wrapper.
//
// Example usage:
//
//	worker := monitor.NewWorker(session, fetcher, store, cfg, health)
//	svc := services.NewIngestionService(worker)
//	tree.AddIngestionService(svc)
func NewIngestionService(manager StartStopManager) *IngestionService {
	return &IngestionService{
		manager: manager,
		name:    "ingestion-worker",
	}
}

// Serve implements suture.Service.
//
// This method:
//  1. Starts the worker (which spawns its internal goroutines)
//  2. Blocks until the context is canceled
//  3. Stops the worker (which waits for its internal goroutines to complete)
//
// If Start() fails, the error is returned immediately, causing suture to
// restart the service according to its backoff policy.
func (s *IngestionService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("ingestion worker start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.manager.Stop(); err != nil {
		return fmt.Errorf("ingestion worker stop failed: %w", err)
	}

	return ctx.Err()
}

// String implements fmt.Stringer for logging.
// Suture uses this to identify the service in log messages.
func (s *IngestionService) String() string {
	return s.name
}
