// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewRunID(t *testing.T) {
	t.Parallel()

	id1 := NewRunID()
	id2 := NewRunID()

	if len(id1) != 8 {
		t.Errorf("expected 8-character run id, got %d", len(id1))
	}
	if id1 == id2 {
		t.Error("expected unique run ids")
	}
}

func TestRunIDContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	if id := RunIDFromContext(ctx); id != "" {
		t.Errorf("expected empty run id, got %s", id)
	}

	ctx = ContextWithRunID(ctx, "run-123")
	if id := RunIDFromContext(ctx); id != "run-123" {
		t.Errorf("expected 'run-123', got '%s'", id)
	}
}

func TestContextWithNewRunID(t *testing.T) {
	t.Parallel()

	ctx := ContextWithNewRunID(context.Background())

	id := RunIDFromContext(ctx)
	if id == "" {
		t.Error("expected run id to be generated")
	}
	if len(id) != 8 {
		t.Errorf("expected 8-character run id, got %d", len(id))
	}
}

func TestContextWithLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	customLogger := zerolog.New(&buf).With().Str("custom", "field").Logger()

	ctx := ContextWithLogger(context.Background(), customLogger)

	LoggerFromContext(ctx).Info().Msg("test")

	if output := buf.String(); !strings.Contains(output, "custom") {
		t.Errorf("expected custom field in output: %s", output)
	}
}

func TestLoggerFromContext_NoLogger(t *testing.T) {
	t.Parallel()

	logger := LoggerFromContext(context.Background())
	if logger.GetLevel() == zerolog.Disabled {
		t.Error("expected valid logger")
	}
}

func TestCtx(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))

	ctx := ContextWithRunID(context.Background(), "run-456")
	Ctx(ctx).Info().Msg("context test")

	if output := buf.String(); !strings.Contains(output, "run-456") {
		t.Errorf("expected run_id in output: %s", output)
	}
}

func TestCtxWithoutRunID(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))

	Ctx(context.Background()).Info().Msg("no run id")

	if output := buf.String(); strings.Contains(output, "run_id") {
		t.Errorf("expected no run_id field in output: %s", output)
	}
}

func TestCtxWith(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))

	ctx := ContextWithRunID(context.Background(), "run-789")
	logger := CtxWith(ctx).Str("extra", "field").Logger()
	logger.Info().Msg("ctxwith test")

	output := buf.String()
	if !strings.Contains(output, "run-789") {
		t.Errorf("expected run_id in output: %s", output)
	}
	if !strings.Contains(output, "extra") {
		t.Errorf("expected extra field in output: %s", output)
	}
}
