// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package store is the C4 Persister: it upserts extracted PICS apps into
// Postgres, respecting source-authority precedence against the storefront
// ingester and syncing each app's relation tables.
//
// Grounded on taibuivan-yomira's internal/core/comic/store_postgres.go
// (pgxpool.Pool repository, strings.Builder dynamic SQL, $N positional
// args, transaction-scoped junction rewrites) and on the original
// database/operations.py this service was distilled from.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomtom215/picsync/internal/logging"
)

// Store is the C4 Persister's Postgres-backed implementation.
type Store struct {
	pool     Querier
	closer   *pgxpool.Pool
	tagNames *tagNameCache
}

// New opens a pooled connection to dsn and loads the tag-name cache.
// Tag-name loading failures are logged and non-fatal.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	s := &Store{pool: pool, closer: pool, tagNames: newTagNameCache()}
	s.tagNames.load(ctx)
	return s, nil
}

// NewWithQuerier wraps an already-constructed Querier (a *pgxpool.Pool or a
// test fake), for tests and callers that manage connection lifecycle
// themselves. The tag-name cache starts empty; call LoadTagNames to
// populate it.
func NewWithQuerier(q Querier) *Store {
	return &Store{pool: q, tagNames: newTagNameCache()}
}

// LoadTagNames fetches the process-wide tag name cache. Called
// automatically by New; exposed separately so NewWithQuerier callers (and
// tests) can opt in.
func (s *Store) LoadTagNames(ctx context.Context) {
	s.tagNames.load(ctx)
}

// Close releases the underlying connection pool, if this Store owns one.
func (s *Store) Close() {
	if s.closer != nil {
		s.closer.Close()
	}
}

// UpsertStats is the {created, updated, failed, skipped} result of
// UpsertAppsBatch.
type UpsertStats struct {
	Created int
	Updated int
	Failed  int
	Skipped int
}

func logStoreErr(action string, err error) {
	logging.Error().Err(err).Str("action", action).Msg("store: operation failed")
}
