// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/picsync/internal/models"
	"github.com/tomtom215/picsync/internal/store"
)

type fakeSession struct {
	connected   bool
	connectOK   bool
	reconnectOK bool
}

func (f *fakeSession) Connect(context.Context) bool               { f.connected = f.connectOK; return f.connectOK }
func (f *fakeSession) Reconnect(context.Context, int) bool        { f.connected = f.reconnectOK; return f.reconnectOK }
func (f *fakeSession) IsConnected() bool                          { return f.connected }
func (f *fakeSession) Disconnect()                                { f.connected = false }

type fakeFetcher struct {
	mu         sync.Mutex
	delta      *models.ChangeDelta
	batches    [][]uint32
	batchErr   error
	batchFn    func(ids []uint32) (map[uint32]*models.RawAppInfo, error)
}

func (f *fakeFetcher) GetChangesSince(context.Context, int64) *models.ChangeDelta {
	return f.delta
}

func (f *fakeFetcher) FetchAppsBatch(_ context.Context, ids []uint32) (map[uint32]*models.RawAppInfo, error) {
	f.mu.Lock()
	f.batches = append(f.batches, append([]uint32(nil), ids...))
	f.mu.Unlock()

	if f.batchFn != nil {
		return f.batchFn(ids)
	}
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	out := make(map[uint32]*models.RawAppInfo, len(ids))
	for _, id := range ids {
		out[id] = models.NewOrderedMap()
	}
	return out, nil
}

type fakeStore struct {
	mu             sync.Mutex
	lastChange     int64
	setCalls       []int64
	upsertCalls    int
	upsertErr      error
}

func (f *fakeStore) GetLastChangeNumber(context.Context) int64 { return f.lastChange }

func (f *fakeStore) SetLastChangeNumber(_ context.Context, n int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastChange = n
	f.setCalls = append(f.setCalls, n)
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
	mu     sync.Mutex
	status map[string]any
}

func (f *fakeHealth) UpdateStatus(status map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

func newTestWorker(session *fakeSession, fetcher *fakeFetcher, st *fakeStore, health *fakeHealth) *Worker {
	return NewWorker(session, fetcher, st, Config{MaxQueueSize: 3, ProcessBatchSize: 10}, health)
}

func TestEnqueueChanges_DedupesAgainstProcessing(t *testing.T) {
	w := newTestWorker(&fakeSession{}, &fakeFetcher{}, &fakeStore{}, nil)
	w.processing[10] = true

	w.enqueueChanges([]uint32{10, 20, 30})

	if len(w.queue) != 2 {
		t.Fatalf("queue = %v, want 2 entries (10 deduped)", w.queue)
	}
	for _, id := range w.queue {
		if id == 10 {
			t.Errorf("appid 10 should have been deduped against processing set")
		}
	}
}

func TestEnqueueChanges_DropsNewestOnOverflow(t *testing.T) {
	w := newTestWorker(&fakeSession{}, &fakeFetcher{}, &fakeStore{}, nil)
	w.cfg.MaxQueueSize = 2

	w.enqueueChanges([]uint32{1, 2, 3, 4})

	if len(w.queue) != 2 {
		t.Fatalf("queue = %v, want exactly 2 entries (capacity)", w.queue)
	}
	if w.queue[0] != 1 || w.queue[1] != 2 {
		t.Fatalf("queue = %v, want [1 2] (newest arrivals dropped)", w.queue)
	}
}

func TestProcessQueue_DrainsUpToBatchSizeAndClearsProcessing(t *testing.T) {
	fetcher := &fakeFetcher{}
	st := &fakeStore{}
	w := newTestWorker(&fakeSession{}, fetcher, st, nil)
	w.cfg.ProcessBatchSize = 2
	w.queue = []uint32{1, 2, 3}

	w.processQueue(context.Background())

	if len(w.queue) != 1 || w.queue[0] != 3 {
		t.Fatalf("queue after drain = %v, want [3]", w.queue)
	}
	if len(w.processing) != 0 {
		t.Fatalf("processing set not cleared after batch: %v", w.processing)
	}
	if st.upsertCalls != 1 {
		t.Fatalf("UpsertAppsBatch calls = %d, want 1", st.upsertCalls)
	}
}

func TestProcessQueue_RequeuesOnFetchFailure(t *testing.T) {
	fetcher := &fakeFetcher{batchErr: errors.New("upstream unavailable")}
	st := &fakeStore{}
	w := newTestWorker(&fakeSession{}, fetcher, st, nil)
	w.queue = []uint32{1, 2}

	w.processQueue(context.Background())

	if len(w.queue) != 2 {
		t.Fatalf("queue after failed batch = %v, want the batch re-enqueued", w.queue)
	}
	if st.upsertCalls != 0 {
		t.Fatalf("UpsertAppsBatch should not be called after a fetch failure")
	}
}

func TestTick_CursorAdvancesBeforeQueueProcessed(t *testing.T) {
	fetcher := &fakeFetcher{delta: &models.ChangeDelta{CurrentChangeNumber: 100, AppChanges: []uint32{1, 2}}}
	st := &fakeStore{lastChange: 50}
	w := newTestWorker(&fakeSession{}, fetcher, st, nil)

	last := int64(50)
	if err := w.tick(context.Background(), &last); err != nil {
		t.Fatalf("tick() error = %v", err)
	}

	if last != 100 {
		t.Fatalf("last = %d, want 100", last)
	}
	if len(st.setCalls) != 1 || st.setCalls[0] != 100 {
		t.Fatalf("SetLastChangeNumber calls = %v, want [100]", st.setCalls)
	}
	if st.upsertCalls != 1 {
		t.Fatalf("expected processQueue to have run and upserted, upsertCalls = %d", st.upsertCalls)
	}
}

func TestStartStop_RunsLoopAndExitsCleanly(t *testing.T) {
	session := &fakeSession{connectOK: true}
	fetcher := &fakeFetcher{}
	st := &fakeStore{}
	health := &fakeHealth{}
	w := NewWorker(session, fetcher, st, Config{PollInterval: 10 * time.Millisecond}, health)

	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	time.Sleep(30 * time.Millisecond)

	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if session.connected {
		t.Errorf("session should be disconnected after Stop()")
	}
}

func TestStart_ReturnsErrorWhenConnectFails(t *testing.T) {
	session := &fakeSession{connectOK: false}
	w := NewWorker(session, &fakeFetcher{}, &fakeStore{}, Config{}, nil)

	if err := w.Start(context.Background()); err == nil {
		t.Fatal("expected Start() to return an error when Connect fails")
	}
}
