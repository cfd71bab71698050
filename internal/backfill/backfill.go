// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package backfill implements the C6 Bulk Backfill worker: a one-shot
// sweep over every unsynced (or explicitly listed) appid, meant to run once
// to populate the store before handing off to the change monitor.
//
// Grounded on original_source's workers/bulk_sync.py, generalized from
// Python's synchronous for-loop over fetch_all_apps to the same shape in
// Go, driven by the already-built upstream.Fetcher.FetchAllApps window
// iterator.
package backfill

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/picsync/internal/extract"
	"github.com/tomtom215/picsync/internal/logging"
	"github.com/tomtom215/picsync/internal/metrics"
	"github.com/tomtom215/picsync/internal/models"
	"github.com/tomtom215/picsync/internal/store"
	"github.com/tomtom215/picsync/internal/upstream"
)

// Session is the subset of *upstream.Session the backfill worker drives.
type Session interface {
	Connect(ctx context.Context) bool
	Disconnect()
}

// Fetcher is the subset of *upstream.Fetcher the backfill worker calls.
type Fetcher interface {
	FetchAllApps(ctx context.Context, appIDs []uint32, onBatch func(upstream.BatchResult)) []upstream.BatchResult
}

// Store is the subset of *store.Store the backfill worker needs.
type Store interface {
	GetAllAppIDs(ctx context.Context) ([]uint32, error)
	GetUnsyncedAppIDs(ctx context.Context) ([]uint32, error)
	UpsertAppsBatch(ctx context.Context, apps []models.ExtractedApp) (store.UpsertStats, error)
}

// StatusReporter publishes the health status object; the HTTP health
// server implements this.
type StatusReporter interface {
	UpdateStatus(status map[string]any)
}

// Result is the {processed, failed, elapsed} summary bulk_sync.py returns.
type Result struct {
	Processed int
	Failed    int
	Elapsed   time.Duration
}

// Worker runs a single bulk backfill pass.
type Worker struct {
	session Session
	fetcher Fetcher
	store   Store
	health  StatusReporter
}

// NewWorker constructs a bulk backfill worker. health may be nil.
func NewWorker(session Session, fetcher Fetcher, st Store, health StatusReporter) *Worker {
	return &Worker{session: session, fetcher: fetcher, store: st, health: health}
}

// Run executes one backfill pass over appIDs. A nil appIDs fetches every
// unsynced appid from the store first, matching bulk_sync.py's
// resume-by-default behavior: a prior partial run can be restarted without
// re-touching apps it already finished.
func (w *Worker) Run(ctx context.Context, appIDs []uint32) (Result, error) {
	start := time.Now()
	logging.Ctx(ctx).Info().Msg("bulk backfill: starting")

	if !w.session.Connect(ctx) {
		return Result{}, fmt.Errorf("bulk backfill: failed to connect to upstream")
	}
	defer w.session.Disconnect()

	if appIDs == nil {
		ids, err := w.store.GetUnsyncedAppIDs(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("bulk backfill: load unsynced app ids: %w", err)
		}
		appIDs = ids
		logging.Info().Int("count", len(appIDs)).Msg("bulk backfill: fetched unsynced app ids from store")
	}

	if len(appIDs) == 0 {
		logging.Warn().Msg("bulk backfill: no app ids to sync")
		return Result{}, nil
	}
	logging.Info().Int("count", len(appIDs)).Msg("bulk backfill: syncing apps")

	var processed, failed, batchCount int

	onBatch := func(batch upstream.BatchResult) {
		batchCount++

		if batch.Err != nil {
			failed += len(batch.AppIDs)
			logging.Error().Err(batch.Err).Int("batch", batchCount).Msg("bulk backfill: batch fetch failed")
		} else {
			extracted := make([]models.ExtractedApp, 0, len(batch.Apps))
			for appID, raw := range batch.Apps {
				extracted = append(extracted, extract.Extract(appID, raw))
			}
			if len(extracted) > 0 {
				stats, err := w.store.UpsertAppsBatch(ctx, extracted)
				if err != nil {
					logging.Error().Err(err).Int("batch", batchCount).Msg("bulk backfill: upsert batch failed")
					failed += len(extracted)
				} else {
					processed += stats.Updated
					failed += stats.Failed
				}
			}
		}

		elapsed := time.Since(start)
		rate := 0.0
		if elapsed.Seconds() > 0 {
			rate = float64(processed) / elapsed.Seconds()
		}
		progressPct := 0.0
		if len(appIDs) > 0 {
			progressPct = float64(processed) / float64(len(appIDs)) * 100
		}

		logging.Info().
			Int("batch", batchCount).
			Int("processed", processed).
			Int("failed", failed).
			Float64("rate", rate).
			Msg("bulk backfill: batch complete")

		metrics.BulkBackfillProgress.Set(progressPct / 100)
		metrics.BulkBackfillRate.Set(rate)
		if w.health != nil {
			w.health.UpdateStatus(map[string]any{
				"mode":         "bulk_sync",
				"processed":    processed,
				"failed":       failed,
				"rate":         rate,
				"progress_pct": progressPct,
			})
		}
	}

	w.fetcher.FetchAllApps(ctx, appIDs, onBatch)

	elapsed := time.Since(start)
	logging.Info().
		Dur("elapsed", elapsed).
		Int("processed", processed).
		Int("failed", failed).
		Msg("bulk backfill: complete")

	return Result{Processed: processed, Failed: failed, Elapsed: elapsed}, nil
}
