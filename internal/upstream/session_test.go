// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package upstream

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/picsync/internal/models"
)

type fakeClient struct {
	mu           sync.Mutex
	dialErr      error
	loginErr     error
	dialCalls    int32
	closeCalls   int32
	disconnected chan struct{}
	errs         chan error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		disconnected: make(chan struct{}, 1),
		errs:         make(chan error, 1),
	}
}

func (f *fakeClient) Dial(context.Context) error {
	atomic.AddInt32(&f.dialCalls, 1)
	return f.dialErr
}

func (f *fakeClient) AnonymousLogin(context.Context) error { return f.loginErr }

func (f *fakeClient) Close() error {
	atomic.AddInt32(&f.closeCalls, 1)
	return nil
}

func (f *fakeClient) GetProductInfo(context.Context, []uint32, time.Duration) (map[uint32]*models.RawAppInfo, error) {
	return nil, nil
}

func (f *fakeClient) GetChangesSince(context.Context, int64) (*models.ChangeDelta, error) {
	return nil, nil
}

func (f *fakeClient) Disconnected() <-chan struct{} { return f.disconnected }
func (f *fakeClient) Errors() <-chan error          { return f.errs }

func TestSession_ConnectSucceedsAndStartsHeartbeat(t *testing.T) {
	client := newFakeClient()
	s := NewSession(client, 60*time.Second)

	if ok := s.Connect(context.Background()); !ok {
		t.Fatal("Connect() = false, want true")
	}
	if !s.IsConnected() {
		t.Error("IsConnected() = false after successful Connect")
	}
	s.Disconnect()
	if s.IsConnected() {
		t.Error("IsConnected() = true after Disconnect")
	}
	if atomic.LoadInt32(&client.closeCalls) != 1 {
		t.Errorf("Close calls = %d, want 1", client.closeCalls)
	}
}

func TestSession_ConnectFailsOnDialError(t *testing.T) {
	client := newFakeClient()
	client.dialErr = errors.New("dial failed")
	s := NewSession(client, 60*time.Second)

	if ok := s.Connect(context.Background()); ok {
		t.Fatal("Connect() = true, want false on dial error")
	}
	if s.IsConnected() {
		t.Error("IsConnected() = true after failed Connect")
	}
}

func TestSession_ConnectFailsOnLoginError(t *testing.T) {
	client := newFakeClient()
	client.loginErr = errors.New("login rejected")
	s := NewSession(client, 60*time.Second)

	if ok := s.Connect(context.Background()); ok {
		t.Fatal("Connect() = true, want false on login error")
	}
}

func TestBackoffDelay_DoublesAndCaps(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
		{7, 320 * time.Second},
	}
	for _, tt := range tests {
		if got := backoffDelay(tt.attempt); got != capAt300(tt.want) {
			t.Errorf("backoffDelay(%d) = %v, want %v", tt.attempt, got, capAt300(tt.want))
		}
	}
}

func capAt300(d time.Duration) time.Duration {
	if d > 300*time.Second {
		return 300 * time.Second
	}
	return d
}

func TestSession_ReconnectGivesUpAfterMaxAttempts(t *testing.T) {
	client := newFakeClient()
	client.dialErr = errors.New("always fails")
	s := NewSession(client, 60*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Force the backoff delay path to be fast by using maxAttempts with a
	// short-lived context; Reconnect must give up at maxAttempts rather
	// than loop forever.
	ok := s.Reconnect(ctx, 1)
	if ok {
		t.Fatal("Reconnect() = true, want false (dial always fails)")
	}
	if atomic.LoadInt32(&client.dialCalls) != 1 {
		t.Errorf("dial calls = %d, want exactly 1 for maxAttempts=1", client.dialCalls)
	}
}

func TestSession_ConnectionAgeSecondsZeroWhenDisconnected(t *testing.T) {
	client := newFakeClient()
	s := NewSession(client, 60*time.Second)
	if age := s.ConnectionAgeSeconds(); age != 0 {
		t.Errorf("ConnectionAgeSeconds() = %v, want 0 before Connect", age)
	}
}
