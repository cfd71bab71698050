// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// HTTPServer is the subset of *http.Server this wrapper drives, narrow
// enough for a fake in tests.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService adapts the PICS health server's blocking
// ListenAndServe to suture's context-aware Serve, so /health and /status
// keep answering under the health-layer supervisor regardless of what the
// ingestion layer is doing.
type HTTPServerService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
}

// NewHTTPServerService wraps server for the health-layer supervisor.
// shutdownTimeout bounds how long Serve waits for ListenAndServe to
// unwind after ctx is canceled; non-positive values default to 10s.
func NewHTTPServerService(server HTTPServer, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve implements suture.Service: it runs the health server until ctx is
// canceled, then shuts it down within shutdownTimeout. A server that dies
// on its own (bind failure, listener error) returns immediately so suture
// can restart it.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("health server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("health server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

// String identifies this service in suture's logs.
func (h *HTTPServerService) String() string {
	return "health-server"
}
