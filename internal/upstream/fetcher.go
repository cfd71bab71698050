// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package upstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/picsync/internal/logging"
	"github.com/tomtom215/picsync/internal/metrics"
	"github.com/tomtom215/picsync/internal/models"
)

// ErrUnavailable is returned when the session could not be (re)connected
// before a fetch attempt.
var ErrUnavailable = errors.New("upstream: unavailable")

// FetcherConfig tunes one Fetcher instance. The change monitor and the
// bulk backfill each construct their own Fetcher with independent tuning
// (bulk_* settings favor throughput over a one-shot sweep; the monitor's
// default fetch settings favor staying gentle on a steady poll loop).
type FetcherConfig struct {
	BatchSize    int
	RequestDelay time.Duration
	Timeout      time.Duration
	MaxRetries   int
}

// BatchResult is one window's outcome from FetchAllApps.
type BatchResult struct {
	AppIDs []uint32
	Apps   map[uint32]*models.RawAppInfo
	Err    error
}

// Fetcher is the C2 Batch Fetcher: it requests product info and change
// deltas over a Session, retrying per batch with doubling backoff and
// pacing inter-window requests.
//
// The circuit breaker wraps GetProductInfo/GetChangesSince calls; its
// shape (ReadyToTrip, OnStateChange metrics hook) is grounded on the
// teacher's internal/sync/circuit_breaker.go CircuitBreakerClient.
type Fetcher struct {
	session *Session
	cfg     FetcherConfig
	cb      *gobreaker.CircuitBreaker[any]
	limiter *rate.Limiter
	name    string
}

// NewFetcher builds a Fetcher over session with the given tuning. name
// distinguishes this fetcher's circuit breaker/metrics from others (e.g.
// "fetch" for the change monitor vs "bulk" for the backfill worker).
func NewFetcher(session *Session, cfg FetcherConfig, name string) *Fetcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(cbName string, from, to gobreaker.State) {
			metrics.RecordCircuitBreakerTransition(cbName, int(from), int(to))
		},
	})

	// request_delay also doubles as the fetcher's steady-state pacing
	// budget: one request permitted every request_delay, with a burst of 1
	// so bursts are not absorbed across stalls.
	every := cfg.RequestDelay
	if every <= 0 {
		every = 500 * time.Millisecond
	}

	return &Fetcher{
		session: session,
		cfg:     cfg,
		cb:      cb,
		limiter: rate.NewLimiter(rate.Every(every), 1),
		name:    name,
	}
}

func (f *Fetcher) execute(fn func() (any, error)) (any, error) {
	result, err := f.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordCircuitBreakerResult(f.name, "rejected")
		} else {
			metrics.RecordCircuitBreakerResult(f.name, "failure")
		}
		return nil, err
	}
	metrics.RecordCircuitBreakerResult(f.name, "success")
	return result, nil
}

// FetchAppsBatch requests product info for appIDs, reconnecting before each
// attempt if needed and retrying with doubling backoff (2s, 4s, 8s, 16s,
// 32s) on error up to MaxRetries. An empty upstream response is not an error.
func (f *Fetcher) FetchAppsBatch(ctx context.Context, appIDs []uint32) (map[uint32]*models.RawAppInfo, error) {
	delay := 2 * time.Second
	var lastErr error

	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			delay *= 2
		}

		if !f.session.IsConnected() {
			if ok := f.session.Reconnect(ctx, 1); !ok {
				return nil, ErrUnavailable
			}
		}

		if err := f.limitRate(ctx); err != nil {
			return nil, err
		}

		result, err := f.execute(func() (any, error) {
			return f.session.Client().GetProductInfo(ctx, appIDs, f.cfg.Timeout)
		})
		if err == nil {
			apps, _ := result.(map[uint32]*models.RawAppInfo)
			if apps == nil {
				apps = map[uint32]*models.RawAppInfo{}
			}
			return apps, nil
		}
		lastErr = err
		logging.Warn().Err(err).Int("attempt", attempt+1).Msg("batch fetcher: product info attempt failed")
	}

	return nil, fmt.Errorf("batch fetcher: exhausted retries: %w", lastErr)
}

// FetchAllApps iterates appIDs in BatchSize windows, invoking onBatch for
// each result in order. After a successful window it pauses RequestDelay;
// after a failed window it logs, records the failure, sleeps 2s, and moves
// to the next window without retrying the failed one inline — the caller
// is responsible for re-enqueueing failed windows.
func (f *Fetcher) FetchAllApps(ctx context.Context, appIDs []uint32, onBatch func(BatchResult)) []BatchResult {
	var failed []BatchResult

	for start := 0; start < len(appIDs); start += f.cfg.BatchSize {
		end := start + f.cfg.BatchSize
		if end > len(appIDs) {
			end = len(appIDs)
		}
		window := appIDs[start:end]

		apps, err := f.FetchAppsBatch(ctx, window)
		res := BatchResult{AppIDs: window, Apps: apps, Err: err}
		onBatch(res)

		if err != nil {
			logging.Error().Err(err).Int("window_size", len(window)).Msg("batch fetcher: window failed")
			failed = append(failed, res)
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
				return failed
			}
			continue
		}

		select {
		case <-time.After(f.cfg.RequestDelay):
		case <-ctx.Done():
			return failed
		}
	}

	if len(failed) > 0 {
		sample := failed
		if len(sample) > 10 {
			sample = sample[:10]
		}
		logging.Warn().Int("failed_windows", len(failed)).Msg("batch fetcher: completed with failed windows")
		for _, f := range sample {
			logging.Warn().Any("appids", f.AppIDs).Err(f.Err).Msg("batch fetcher: failed window sample")
		}
	}

	return failed
}

// GetChangesSince requests the app-change delta since n. It never returns
// an error to the caller — upstream failures are logged and result in a
// nil delta, matching the original service's defensive contract.
func (f *Fetcher) GetChangesSince(ctx context.Context, n int64) *models.ChangeDelta {
	result, err := f.execute(func() (any, error) {
		return f.session.Client().GetChangesSince(ctx, n)
	})
	if err != nil {
		logging.Warn().Err(err).Int64("since", n).Msg("batch fetcher: get changes failed")
		return nil
	}
	delta, _ := result.(*models.ChangeDelta)
	return delta
}

// limitRate blocks until the fetcher's rate limiter admits another request.
// FetchAppsBatch calls it before every attempt.
func (f *Fetcher) limitRate(ctx context.Context) error {
	return f.limiter.Wait(ctx)
}
