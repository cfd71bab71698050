// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	// runIDKey tags the log lines written through Ctx/CtxWith during one
	// bulk-sync pass or one change-monitor run, so grepping a single run's
	// output back out of the process's combined log stream is one field lookup.
	runIDKey contextKey = "run_id"

	loggerKey contextKey = "logger"
)

// NewRunID generates an identifier for one bulk-sync pass or change-monitor run.
// Truncated to 8 characters: unique enough to disambiguate concurrent runs
// in a log stream, short enough not to dominate the line.
func NewRunID() string {
	return uuid.New().String()[:8]
}

// ContextWithRunID attaches id to ctx for Ctx/CtxWith to pick up downstream.
func ContextWithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// ContextWithNewRunID is ContextWithRunID(ctx, NewRunID()).
func ContextWithNewRunID(ctx context.Context) context.Context {
	return ContextWithRunID(ctx, NewRunID())
}

// RunIDFromContext returns the run id on ctx, or "" if none was attached.
func RunIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithLogger stores logger in ctx for LoggerFromContext to retrieve.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext returns the logger stored on ctx, or the global logger
// if none was attached.
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return logger
	}
	return Logger()
}

// Ctx returns a logger with ctx's run id (if any) attached as a field.
//
//	logging.Ctx(ctx).Info().Msg("polling for changes")
func Ctx(ctx context.Context) *zerolog.Logger {
	logger := LoggerFromContext(ctx).With().Logger()
	if runID := RunIDFromContext(ctx); runID != "" {
		logger = logger.With().Str("run_id", runID).Logger()
	}
	return &logger
}

// CtxWith returns a logger context builder with ctx's run id pre-populated,
// for callers that need to add further fields before the first event.
func CtxWith(ctx context.Context) zerolog.Context {
	logCtx := LoggerFromContext(ctx).With()
	if runID := RunIDFromContext(ctx); runID != "" {
		logCtx = logCtx.Str("run_id", runID)
	}
	return logCtx
}
