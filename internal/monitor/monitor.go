// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package monitor implements the C5 Change Monitor: it tails the
// upstream's global change number, deduplicates affected appids into a
// bounded queue, and drives the fetch/extract/persist pipeline over that
// queue on a fixed poll interval.
//
// Grounded on original_source's workers/change_monitor.py, generalized
// from Python's threading.Thread/deque to a single goroutine owning a
// plain slice-backed queue: the queue and processing set are touched only
// by this loop, so no locking is needed here.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/picsync/internal/extract"
	"github.com/tomtom215/picsync/internal/logging"
	"github.com/tomtom215/picsync/internal/metrics"
	"github.com/tomtom215/picsync/internal/models"
	"github.com/tomtom215/picsync/internal/store"
)

// Session is the subset of *upstream.Session the monitor drives directly;
// an interface seam so tests can supply a fake.
type Session interface {
	Connect(ctx context.Context) bool
	Reconnect(ctx context.Context, maxAttempts int) bool
	IsConnected() bool
	Disconnect()
}

// Fetcher is the subset of *upstream.Fetcher the monitor calls.
type Fetcher interface {
	FetchAppsBatch(ctx context.Context, appIDs []uint32) (map[uint32]*models.RawAppInfo, error)
	GetChangesSince(ctx context.Context, n int64) *models.ChangeDelta
}

// Store is the subset of *store.Store the monitor needs.
type Store interface {
	GetLastChangeNumber(ctx context.Context) int64
	SetLastChangeNumber(ctx context.Context, n int64)
	UpsertAppsBatch(ctx context.Context, apps []models.ExtractedApp) (store.UpsertStats, error)
}

// StatusReporter publishes the health status object; the HTTP health
// server implements this.
type StatusReporter interface {
	UpdateStatus(status map[string]any)
}

// Config tunes the change monitor loop: how often it polls, how many
// queued appids it drains per tick, and how large the queue may grow.
type Config struct {
	PollInterval     time.Duration
	ProcessBatchSize int
	MaxQueueSize     int
}

func (c *Config) setDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 30 * time.Second
	}
	if c.ProcessBatchSize <= 0 {
		c.ProcessBatchSize = 100
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = 10000
	}
}

// Worker runs the change monitor loop.
type Worker struct {
	session Session
	fetcher Fetcher
	store   Store
	health  StatusReporter
	cfg     Config

	queue      []uint32
	processing map[uint32]bool

	running bool
	doneCh  chan struct{}
}

// NewWorker constructs a change monitor worker. health may be nil.
func NewWorker(session Session, fetcher Fetcher, st Store, cfg Config, health StatusReporter) *Worker {
	cfg.setDefaults()
	return &Worker{
		session:    session,
		fetcher:    fetcher,
		store:      st,
		health:     health,
		cfg:        cfg,
		processing: make(map[uint32]bool),
	}
}

// Start connects to the upstream and spawns the monitor loop in its own
// goroutine, returning immediately. It satisfies services.StartStopManager.
func (w *Worker) Start(ctx context.Context) error {
	if ok := w.session.Connect(ctx); !ok {
		return fmt.Errorf("change monitor: failed to connect to upstream")
	}

	w.running = true
	w.doneCh = make(chan struct{})
	go w.run(ctx)
	return nil
}

// Stop signals the loop to exit at its next iteration boundary and blocks
// until it has. Disconnect() is called from within the loop itself so it
// always runs, even on supervisor-driven context cancellation.
func (w *Worker) Stop() error {
	w.running = false
	if w.doneCh != nil {
		<-w.doneCh
	}
	return nil
}

func (w *Worker) run(ctx context.Context) {
	defer func() {
		w.session.Disconnect()
		close(w.doneCh)
	}()

	last := w.store.GetLastChangeNumber(ctx)
	logging.Ctx(ctx).Info().Int64("last_change", last).Msg("change monitor: starting from change number")

	for w.running {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.tick(ctx, &last); err != nil {
			logging.Error().Err(err).Msg("change monitor: loop iteration failed")
			if !w.session.IsConnected() {
				logging.Info().Msg("change monitor: attempting reconnect")
				if !w.session.Reconnect(ctx, 1) {
					if !w.sleep(ctx, 60*time.Second) {
						return
					}
					continue
				}
			} else if !w.sleep(ctx, 10*time.Second) {
				return
			}
			continue
		}

		if !w.sleep(ctx, w.cfg.PollInterval) {
			return
		}
	}
}

// tick runs one loop body: poll for changes, enqueue, drain the queue,
// publish health. A failed change poll yields no delta, and failed fetches
// and upserts are handled and logged inside processQueue, so tick returns
// nil in every case and one bad app never stops the loop.
func (w *Worker) tick(ctx context.Context, last *int64) error {
	delta := w.fetcher.GetChangesSince(ctx, *last)
	if delta != nil && delta.CurrentChangeNumber > *last {
		w.enqueueChanges(delta.AppChanges)
		*last = delta.CurrentChangeNumber
		w.store.SetLastChangeNumber(ctx, *last)
	}

	w.processQueue(ctx)
	w.publishHealth(*last)
	return nil
}

// enqueueChanges deduplicates against the in-flight processing set and
// drops the newest arrivals once the queue is at capacity: once full, a
// burst of changes loses whatever didn't fit rather than evicting older
// entries to make room.
func (w *Worker) enqueueChanges(appIDs []uint32) {
	queued := 0
	for _, appID := range appIDs {
		if w.processing[appID] {
			continue
		}
		if len(w.queue) >= w.cfg.MaxQueueSize {
			metrics.QueueDropped.Inc()
			continue
		}
		w.queue = append(w.queue, appID)
		queued++
	}
	metrics.QueueSize.Set(float64(len(w.queue)))
	logging.Info().
		Int("changed", len(appIDs)).
		Int("queued", queued).
		Int("queue_size", len(w.queue)).
		Msg("change monitor: changes received")
}

// processQueue drains up to ProcessBatchSize appids and drives
// fetch→extract→persist. A whole-batch fetch failure re-enqueues at the
// tail, capacity permitting; extraction and persistence failures are
// logged per-app by the lower layers and never abort the batch.
func (w *Worker) processQueue(ctx context.Context) {
	if len(w.queue) == 0 {
		return
	}

	n := w.cfg.ProcessBatchSize
	if n > len(w.queue) {
		n = len(w.queue)
	}
	batch := append([]uint32(nil), w.queue[:n]...)
	w.queue = w.queue[n:]

	for _, appID := range batch {
		w.processing[appID] = true
	}
	metrics.QueueSize.Set(float64(len(w.queue)))
	metrics.ProcessingSetSize.Set(float64(len(w.processing)))

	defer func() {
		for _, appID := range batch {
			delete(w.processing, appID)
		}
		metrics.ProcessingSetSize.Set(float64(len(w.processing)))
	}()

	raw, err := w.fetcher.FetchAppsBatch(ctx, batch)
	if err != nil {
		logging.Error().Err(err).Int("batch_size", len(batch)).Msg("change monitor: batch fetch failed, re-enqueueing")
		w.requeue(batch)
		return
	}

	extracted := make([]models.ExtractedApp, 0, len(raw))
	for appID, rec := range raw {
		extracted = append(extracted, extract.Extract(appID, rec))
	}

	if len(extracted) == 0 {
		return
	}
	stats, err := w.store.UpsertAppsBatch(ctx, extracted)
	if err != nil {
		logging.Error().Err(err).Msg("change monitor: upsert batch failed")
		return
	}
	logging.Debug().
		Int("updated", stats.Updated).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Msg("change monitor: processed batch from queue")
}

func (w *Worker) requeue(batch []uint32) {
	for _, appID := range batch {
		if len(w.queue) < w.cfg.MaxQueueSize {
			w.queue = append(w.queue, appID)
		} else {
			metrics.QueueDropped.Inc()
		}
	}
	metrics.QueueSize.Set(float64(len(w.queue)))
}

func (w *Worker) publishHealth(last int64) {
	metrics.LastChangeNumber.Set(float64(last))
	if w.health == nil {
		return
	}
	w.health.UpdateStatus(map[string]any{
		"mode":        "change_monitor",
		"last_change": last,
		"queue_size":  len(w.queue),
		"processing":  len(w.processing),
	})
}

// sleep waits for d or ctx cancellation/running becoming false, whichever
// comes first. Returns false if the caller should stop looping.
func (w *Worker) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return w.running
	case <-ctx.Done():
		return false
	}
}
