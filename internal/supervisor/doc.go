// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package supervisor provides process supervision for the PICS ingestion
service using suture v4.

This package implements a hierarchical supervisor tree that manages the
lifecycle of the service's two long-running processes. It provides
Erlang/OTP-style supervision with automatic restart, failure isolation, and
graceful shutdown.

# Overview

The supervisor tree organizes services into two layers for failure
isolation:

	RootSupervisor ("picsync")
	├── IngestionSupervisor ("ingestion-layer")
	│   └── IngestionService (change monitor; bulk_sync mode runs without the tree)
	└── HealthSupervisor ("health-layer")
	    └── HTTPServerService

This hierarchy ensures that:
  - A crash in the ingestion worker doesn't take down the health endpoint
  - /health and /status keep responding while the worker restarts
  - Each layer can restart independently

# Key Features

Automatic Restart:
  - Crashed services are automatically restarted
  - Exponential backoff prevents restart storms
  - Configurable failure thresholds and decay rates

Failure Isolation:
  - Services are organized into logical groups
  - Child supervisor failures don't propagate upward
  - Each layer has independent failure counting

Graceful Shutdown:
  - Context cancellation triggers orderly shutdown
  - Configurable shutdown timeout per service
  - UnstoppedServiceReport for debugging hangs

Structured Logging:
  - Integration with slog for structured events
  - Logs service starts, stops, failures, and restarts
  - Event hooks via sutureslog adapter

# Usage Example

Basic setup in cmd/picsync/main.go:

	import (
	    "log/slog"
	    "github.com/tomtom215/picsync/internal/supervisor"
	    "github.com/tomtom215/picsync/internal/supervisor/services"
	)

	func main() {
	    logger := slog.Default()
	    config := supervisor.DefaultTreeConfig()

	    tree, err := supervisor.NewSupervisorTree(logger, config)
	    if err != nil {
	        log.Fatal(err)
	    }

	    tree.AddHealthService(services.NewHTTPServerService(server, 10*time.Second))
	    tree.AddIngestionService(services.NewIngestionService(worker))

	    // Start the tree (blocks until context canceled)
	    ctx := context.Background()
	    if err := tree.Serve(ctx); err != nil {
	        log.Printf("Supervisor stopped: %v", err)
	    }
	}

Background operation:

	// Start in background
	errChan := tree.ServeBackground(ctx)

	// Do other setup...

	// Wait for shutdown
	if err := <-errChan; err != nil {
	    log.Printf("Supervisor error: %v", err)
	}

# Configuration

The TreeConfig controls restart behavior:

	config := supervisor.TreeConfig{
	    FailureThreshold: 5.0,          // Failures before backoff
	    FailureDecay:     30.0,         // Seconds for failures to decay
	    FailureBackoff:   15 * time.Second, // Backoff duration
	    ShutdownTimeout:  10 * time.Second, // Per-service shutdown timeout
	}

Default values match suture's production-ready defaults:
  - FailureThreshold: 5 failures
  - FailureDecay: 30 seconds
  - FailureBackoff: 15 seconds
  - ShutdownTimeout: 10 seconds

# Failure Handling

The supervisor uses a failure counter with exponential decay:

1. Each service failure increments the counter
2. Counter decays exponentially over time (FailureDecay seconds)
3. When counter exceeds FailureThreshold, supervisor enters backoff
4. During backoff, restarts are delayed by FailureBackoff duration

Upstream disconnects and failed batches are handled inside the ingestion
worker and do not reach suture. IngestionService.Serve returns an error
only when the worker's Start (the initial upstream connect) or Stop fails,
and suture then restarts it according to this policy rather than crashing
the process.

# Service Interface

All services must implement suture.Service:

	type Service interface {
	    Serve(ctx context.Context) error
	}

Return behavior:
  - Return nil: Service stopped cleanly, will not be restarted
  - Return error: Service crashed, will be restarted
  - Context canceled: Shutdown requested, return promptly

# Debugging Shutdown Issues

If services don't stop within the timeout:

	// Get report of unstopped services
	report, err := tree.UnstoppedServiceReport()
	for _, svc := range report {
	    log.Printf("Service didn't stop: %v", svc)
	}

Common causes:
  - Goroutines not respecting context cancellation
  - Blocked network I/O without deadlines

# Thread Safety

The SupervisorTree is safe for concurrent use: services can be added from
any goroutine, and Remove operations are synchronized.

# See Also

  - internal/supervisor/services: Service wrappers
  - github.com/thejerf/suture/v4: Underlying library
*/
package supervisor
