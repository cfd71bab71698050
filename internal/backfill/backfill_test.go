// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package backfill

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tomtom215/picsync/internal/models"
	"github.com/tomtom215/picsync/internal/store"
	"github.com/tomtom215/picsync/internal/upstream"
)

type fakeSession struct {
	connectOK     bool
	disconnectHit bool
}

func (f *fakeSession) Connect(context.Context) bool { return f.connectOK }
func (f *fakeSession) Disconnect()                  { f.disconnectHit = true }

type fakeFetcher struct {
	windows [][]uint32
	results []upstream.BatchResult
}

func (f *fakeFetcher) FetchAllApps(_ context.Context, appIDs []uint32, onBatch func(upstream.BatchResult)) []upstream.BatchResult {
	f.windows = append(f.windows, appIDs)
	for _, res := range f.results {
		onBatch(res)
	}
	var failed []upstream.BatchResult
	for _, res := range f.results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

type fakeStore struct {
	mu          sync.Mutex
	unsyncedIDs []uint32
	upsertCalls int
	upsertErr   error
}

func (f *fakeStore) GetAllAppIDs(context.Context) ([]uint32, error) { return f.unsyncedIDs, nil }
func (f *fakeStore) GetUnsyncedAppIDs(context.Context) ([]uint32, error) {
	return f.unsyncedIDs, nil
}

func (f *fakeStore) UpsertAppsBatch(_ context.Context, apps []models.ExtractedApp) (store.UpsertStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	if f.upsertErr != nil {
		return store.UpsertStats{}, f.upsertErr
	}
	return store.UpsertStats{Updated: len(apps)}, nil
}

type fakeHealth struct {
	updates []map[string]any
}

func (f *fakeHealth) UpdateStatus(status map[string]any) {
	f.updates = append(f.updates, status)
}

func TestRun_UsesProvidedAppIDsWithoutStoreLookup(t *testing.T) {
	session := &fakeSession{connectOK: true}
	fetcher := &fakeFetcher{results: []upstream.BatchResult{
		{AppIDs: []uint32{1, 2}, Apps: map[uint32]*models.RawAppInfo{1: models.NewOrderedMap(), 2: models.NewOrderedMap()}},
	}}
	st := &fakeStore{unsyncedIDs: []uint32{999}}
	w := NewWorker(session, fetcher, st, nil)

	result, err := w.Run(context.Background(), []uint32{1, 2})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Processed != 2 {
		t.Fatalf("Processed = %d, want 2", result.Processed)
	}
	if len(fetcher.windows) != 1 || len(fetcher.windows[0]) != 2 || fetcher.windows[0][0] != 1 || fetcher.windows[0][1] != 2 {
		t.Errorf("fetched app ids = %v, want [[1 2]] (the provided ids, not the store's)", fetcher.windows)
	}
	if !session.disconnectHit {
		t.Errorf("expected Disconnect to be called")
	}
}

func TestRun_FetchesUnsyncedAppIDsWhenNilGiven(t *testing.T) {
	session := &fakeSession{connectOK: true}
	fetcher := &fakeFetcher{}
	st := &fakeStore{unsyncedIDs: []uint32{5, 6, 7}}
	w := NewWorker(session, fetcher, st, nil)

	if _, err := w.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(fetcher.windows) != 1 || len(fetcher.windows[0]) != 3 {
		t.Fatalf("expected FetchAllApps called with the 3 unsynced app ids, got %v", fetcher.windows)
	}
}

func TestRun_NoAppIDsIsANoOp(t *testing.T) {
	session := &fakeSession{connectOK: true}
	fetcher := &fakeFetcher{}
	st := &fakeStore{}
	w := NewWorker(session, fetcher, st, nil)

	result, err := w.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Processed != 0 || result.Failed != 0 {
		t.Fatalf("Result = %+v, want zero-valued", result)
	}
	if len(fetcher.windows) != 0 {
		t.Errorf("FetchAllApps should not be called with zero app ids")
	}
}

func TestRun_ReturnsErrorWhenConnectFails(t *testing.T) {
	session := &fakeSession{connectOK: false}
	w := NewWorker(session, &fakeFetcher{}, &fakeStore{}, nil)

	if _, err := w.Run(context.Background(), []uint32{1}); err == nil {
		t.Fatal("expected an error when the session fails to connect")
	}
}

func TestRun_BatchFetchFailureCountsAsFailedNotProcessed(t *testing.T) {
	session := &fakeSession{connectOK: true}
	fetcher := &fakeFetcher{results: []upstream.BatchResult{
		{AppIDs: []uint32{1, 2, 3}, Err: errors.New("window failed")},
	}}
	st := &fakeStore{}
	health := &fakeHealth{}
	w := NewWorker(session, fetcher, st, health)

	result, err := w.Run(context.Background(), []uint32{1, 2, 3})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Processed != 0 {
		t.Fatalf("Processed = %d, want 0 on a failed window", result.Processed)
	}
	if result.Failed != 3 {
		t.Fatalf("Failed = %d, want 3", result.Failed)
	}
	if len(health.updates) == 0 {
		t.Fatal("expected at least one health status update")
	}
}
