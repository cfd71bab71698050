// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package metrics provides Prometheus instrumentation for the PICS
// ingestion pipeline: the upstream circuit breaker, the change monitor's
// queue, and the bulk backfill's throughput.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CircuitBreakerState reports 0=closed, 1=half-open, 2=open for the
	// upstream session's product-info/changes circuit breaker.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "picsync_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picsync_circuit_breaker_requests_total",
			Help: "Total requests through the upstream circuit breaker",
		},
		[]string{"name", "result"}, // result: success, failure, rejected
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "picsync_circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive circuit breaker failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picsync_circuit_breaker_state_transitions_total",
			Help: "Total circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// SessionReconnects counts every C1 reconnection attempt, successful or
	// not.
	SessionReconnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picsync_session_reconnects_total",
			Help: "Total upstream session reconnection attempts",
		},
		[]string{"result"}, // success, failure
	)

	// SessionConnectionAge tracks how long the current session has been up.
	SessionConnectionAge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "picsync_session_connection_age_seconds",
			Help: "Seconds since the current upstream session connected",
		},
	)

	HeartbeatFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "picsync_heartbeat_failures_total",
			Help: "Total heartbeat calls that returned an error",
		},
	)

	// QueueSize is the current depth of the change monitor's bounded queue.
	QueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "picsync_change_queue_size",
			Help: "Current depth of the change monitor's bounded queue",
		},
	)

	QueueDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "picsync_change_queue_dropped_total",
			Help: "Total changes dropped because the queue was at capacity",
		},
	)

	ProcessingSetSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "picsync_processing_set_size",
			Help: "Current number of appids in flight in the change monitor",
		},
	)

	LastChangeNumber = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "picsync_last_change_number",
			Help: "Last PICS change number persisted to pics_sync_state",
		},
	)

	AppsUpserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picsync_apps_upserted_total",
			Help: "Total apps upserted, by outcome",
		},
		[]string{"outcome"}, // created, updated, failed, skipped
	)

	UpsertBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "picsync_upsert_batch_duration_seconds",
			Help:    "Duration of UpsertAppsBatch calls",
			Buckets: prometheus.DefBuckets,
		},
	)

	BulkBackfillProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "picsync_bulk_backfill_progress_ratio",
			Help: "Fraction of the bulk backfill's known app-id set processed so far",
		},
	)

	BulkBackfillRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "picsync_bulk_backfill_apps_per_second",
			Help: "Current processing rate of the bulk backfill",
		},
	)
)

// circuitBreakerStateNames maps the gobreaker numeric state to a label,
// matching the distilled states used elsewhere for logging.
var circuitBreakerStateNames = map[int]string{0: "closed", 1: "half-open", 2: "open"}

// RecordCircuitBreakerTransition updates the state gauge and increments the
// transition counter for a named circuit breaker.
func RecordCircuitBreakerTransition(name string, fromState, toState int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(toState))
	CircuitBreakerTransitions.WithLabelValues(name, circuitBreakerStateNames[fromState], circuitBreakerStateNames[toState]).Inc()
}

// RecordCircuitBreakerResult increments the per-result request counter and,
// on failure, the consecutive-failures gauge; on success it resets it.
func RecordCircuitBreakerResult(name string, result string) {
	CircuitBreakerRequests.WithLabelValues(name, result).Inc()
	switch result {
	case "success":
		CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
	case "failure":
		CircuitBreakerConsecutiveFailures.WithLabelValues(name).Inc()
	}
}

// RecordUpsertBatch records the outcome counts and duration of one
// UpsertAppsBatch call.
func RecordUpsertBatch(duration time.Duration, created, updated, failed, skipped int) {
	UpsertBatchDuration.Observe(duration.Seconds())
	AppsUpserted.WithLabelValues("created").Add(float64(created))
	AppsUpserted.WithLabelValues("updated").Add(float64(updated))
	AppsUpserted.WithLabelValues("failed").Add(float64(failed))
	AppsUpserted.WithLabelValues("skipped").Add(float64(skipped))
}
