// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package services provides suture.Service wrappers for the PICS ingestion
service's two long-running components.

This package adapts existing application components to the suture v4
supervision model, translating the Start/Stop and ListenAndServe lifecycle
patterns into suture's context-aware Serve pattern.

# Overview

Each wrapper implements the suture.Service interface:

	type Service interface {
	    Serve(ctx context.Context) error
	}

The wrappers handle:
  - Lifecycle translation (Start/Stop or ListenAndServe to Serve)
  - Graceful shutdown via context cancellation
  - Error propagation for supervisor restart decisions
  - Service identification via fmt.Stringer

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts ListenAndServe pattern to Serve
  - Configurable shutdown timeout for draining connections

Ingestion Worker (IngestionService):
  - Wraps the change monitor's Start/Stop lifecycle
  - Reconnection and retry is handled inside the worker itself; this wrapper
    only translates lifecycle calls and surfaces worker errors to suture

# Usage Example

Creating and registering services:

	import (
	    "net/http"
	    "time"

	    "github.com/tomtom215/picsync/internal/supervisor"
	    "github.com/tomtom215/picsync/internal/supervisor/services"
	)

	func setupSupervisor(server *http.Server, worker *monitor.Worker) {
	    tree, _ := supervisor.NewSupervisorTree(logger, config)

	    httpSvc := services.NewHTTPServerService(server, 10*time.Second)
	    tree.AddHealthService(httpSvc)

	    ingestSvc := services.NewIngestionService(worker)
	    tree.AddIngestionService(ingestSvc)

	    tree.Serve(ctx)
	}

# Lifecycle Patterns

The package handles two lifecycle patterns:

Start/Stop Pattern:

	type StartStopManager interface {
	    Start(ctx context.Context) error
	    Stop() error
	}

	// Wrapped as:
	func (s *IngestionService) Serve(ctx context.Context) error {
	    if err := s.manager.Start(ctx); err != nil {
	        return err
	    }
	    <-ctx.Done()
	    return s.manager.Stop()
	}

ListenAndServe Pattern:

	type HTTPServer interface {
	    ListenAndServe() error
	    Shutdown(ctx context.Context) error
	}

	// Wrapped as:
	func (h *HTTPServerService) Serve(ctx context.Context) error {
	    go h.server.ListenAndServe()
	    <-ctx.Done()
	    return h.server.Shutdown(shutdownCtx)
	}

# Error Handling

Return values determine supervisor behavior:

	nil         -> Service stopped cleanly, will not restart
	error       -> Service crashed, supervisor will restart
	ctx.Err()   -> Shutdown requested, normal termination

# Service Identification

Both services implement fmt.Stringer for logging:

	func (s *IngestionService) String() string { return "ingestion-worker" }
	func (h *HTTPServerService) String() string { return "health-server" }

Suture uses this for log messages:

	INFO ingestion-worker: starting
	ERROR ingestion-worker: restarting after failure

# Testing

Services can be tested with mock components satisfying StartStopManager or
HTTPServer, without constructing a real upstream session or listener.

# Thread Safety

Both service wrappers are safe for concurrent use. Multiple concurrent
Serve calls on the same instance are not supported.

# See Also

  - internal/supervisor: SupervisorTree that manages these services
  - github.com/thejerf/suture/v4: Underlying supervision library
  - internal/monitor: change monitor worker wrapped by IngestionService
  - internal/backfill: bulk backfill worker, run directly by main rather than
    through IngestionService
*/
package services
