// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package metrics exposes Prometheus collectors for the PICS ingestion
// pipeline. All metrics are registered via promauto against the default
// registry and served by internal/health's /metrics endpoint.
//
// The circuit breaker metrics (CircuitBreakerState, CircuitBreakerRequests,
// CircuitBreakerConsecutiveFailures, CircuitBreakerTransitions) mirror the
// shape used elsewhere for sony/gobreaker instrumentation; the remaining
// gauges and counters are specific to the change monitor's queue and the
// bulk backfill's throughput.
package metrics
