// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package logging provides centralized zerolog-based structured logging for
// the PICS ingestion service.
//
// # Overview
//
// The package provides:
//   - Zero-allocation structured logging via zerolog
//   - JSON output format for production (machine-parseable)
//   - Console output format for development (human-readable)
//   - Global logger configuration via environment variables
//   - Context-aware logging with run ID propagation
//   - slog adapter for Suture v4 integration
//
// # Quick Start
//
//	import "github.com/tomtom215/picsync/internal/logging"
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("mode", "change_monitor").Msg("starting")
//	logging.Error().Err(err).Msg("upstream fetch failed")
//
// # Context-Aware Logging
//
// Tag every log line from one bulk-sync pass or monitor cycle with a run id:
//
//	ctx = logging.ContextWithNewRunID(ctx)
//	logging.Ctx(ctx).Info().Msg("processing batch")
//
// # slog Adapter
//
// The package provides an slog adapter for libraries that require
// slog.Logger, namely sutureslog:
//
//	slogLogger := logging.NewSlogLogger()
package logging
