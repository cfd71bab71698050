// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package upstream

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/picsync/internal/logging"
	"github.com/tomtom215/picsync/internal/metrics"
)

const (
	reconnectBaseDelay = 5 * time.Second
	reconnectMaxDelay  = 300 * time.Second
	reconnectResetAt   = 10
	disconnectSettle   = 2 * time.Second
)

// Session is the C1 Upstream Session: it owns a single Client connection,
// keeps it alive with a heartbeat, and reconnects with exponential backoff
// when the transport reports a disconnect.
//
// Grounded on cartographus's PlexWebSocketClient (internal/sync/plex_websocket.go):
// same Connect/listen/reconnect shape, generalized from a notification
// stream to a request/response RPC session and from fixed backoff to a
// 5s-doubling/300s-cap/reset-after-10 contract.
type Session struct {
	client            Client
	heartbeatInterval time.Duration

	mu              sync.Mutex
	connected       bool
	autoReconnect   bool
	reconnecting    bool
	connectedAt     time.Time
	lastChangeNum   int64
	reconnectCount  int

	heartbeatCancel context.CancelFunc
	heartbeatDone   chan struct{}

	stopWatch chan struct{}
	watchDone chan struct{}
}

// NewSession constructs a session around the given Client. heartbeatInterval
// should already be clamped to [60s,600s] by config.Config.Validate.
func NewSession(client Client, heartbeatInterval time.Duration) *Session {
	return &Session{
		client:            client,
		heartbeatInterval: heartbeatInterval,
		autoReconnect:     true,
	}
}

// Connect performs the transport dial and anonymous login. Returns true on
// success. On success it also starts the heartbeat and the disconnect
// watcher. Any heartbeat/watcher goroutines from a prior connection are
// stopped first, so a reconnect never leaves the old pair running
// alongside the new one.
func (s *Session) Connect(ctx context.Context) bool {
	s.stopHeartbeat()
	s.stopDisconnectWatch()

	if err := s.client.Dial(ctx); err != nil {
		logging.Error().Err(err).Msg("upstream session: dial failed")
		return false
	}
	if err := s.client.AnonymousLogin(ctx); err != nil {
		logging.Error().Err(err).Msg("upstream session: anonymous login failed")
		return false
	}

	s.mu.Lock()
	s.connected = true
	s.autoReconnect = true
	s.reconnectCount = 0
	s.connectedAt = time.Now()
	s.mu.Unlock()

	s.startHeartbeat()
	s.startDisconnectWatch()

	logging.Info().Msg("upstream session: connected")
	return true
}

// Reconnect retries Connect with exponential backoff: 5s, 10s, 20s, ...,
// clamped at 300s. maxAttempts=0 means unlimited; after 10 failed attempts
// the counter resets so backoff keeps cycling rather than growing forever.
func (s *Session) Reconnect(ctx context.Context, maxAttempts int) bool {
	s.mu.Lock()
	if s.reconnecting {
		s.mu.Unlock()
		return false
	}
	s.reconnecting = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.reconnecting = false
		s.mu.Unlock()
	}()

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return false
		default:
		}

		s.mu.Lock()
		if !s.autoReconnect {
			s.mu.Unlock()
			return false
		}
		s.reconnectCount++
		if s.reconnectCount > reconnectResetAt {
			s.reconnectCount = 1
		}
		delay := backoffDelay(s.reconnectCount)
		s.mu.Unlock()

		attempts++

		if ok := s.Connect(ctx); ok {
			metrics.SessionReconnects.WithLabelValues("success").Inc()
			return true
		}
		metrics.SessionReconnects.WithLabelValues("failure").Inc()

		if maxAttempts > 0 && attempts >= maxAttempts {
			return false
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return false
		}
	}
}

// backoffDelay implements 5s * 2^(attempt-1), clamped at 300s.
func backoffDelay(attempt int) time.Duration {
	delay := reconnectBaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= reconnectMaxDelay {
			return reconnectMaxDelay
		}
	}
	return delay
}

// Disconnect disables auto-reconnect, stops the heartbeat and disconnect
// watcher, and closes the transport. Terminal: the session does not
// reconnect after this call.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.autoReconnect = false
	s.connected = false
	s.mu.Unlock()

	s.stopHeartbeat()
	s.stopDisconnectWatch()
	_ = s.client.Close()

	logging.Info().Msg("upstream session: disconnected")
}

func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Session) LastChangeNumber() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastChangeNum
}

func (s *Session) SetLastChangeNumber(n int64) {
	s.mu.Lock()
	s.lastChangeNum = n
	s.mu.Unlock()
	metrics.LastChangeNumber.Set(float64(n))
}

// ConnectionAgeSeconds returns seconds since the current connection was
// established, or 0 if not connected.
func (s *Session) ConnectionAgeSeconds() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return 0
	}
	return time.Since(s.connectedAt).Seconds()
}

// Client exposes the underlying wire client for the batch fetcher.
func (s *Session) Client() Client {
	return s.client
}

func (s *Session) startHeartbeat() {
	ctx, cancel := context.WithCancel(context.Background())
	s.heartbeatCancel = cancel
	s.heartbeatDone = make(chan struct{})

	go func() {
		defer close(s.heartbeatDone)
		ticker := time.NewTicker(s.heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// A lightweight "changes since 0" call solely to keep the
				// server-side session alive. Failures log but never
				// themselves trigger reconnection — only a transport-level
				// disconnect does that.
				hbCtx, hbCancel := context.WithTimeout(ctx, 10*time.Second)
				_, err := s.client.GetChangesSince(hbCtx, 0)
				hbCancel()
				if err != nil {
					metrics.HeartbeatFailures.Inc()
					logging.Warn().Err(err).Msg("upstream session: heartbeat failed")
				}
			}
		}
	}()
}

func (s *Session) stopHeartbeat() {
	if s.heartbeatCancel != nil {
		s.heartbeatCancel()
		<-s.heartbeatDone
		s.heartbeatCancel = nil
	}
}

// startDisconnectWatch spawns a reconnection task whenever the transport
// signals a disconnect, after a short settling delay, guarded so the
// disconnect handler and an explicit Reconnect call never race.
func (s *Session) startDisconnectWatch() {
	s.stopWatch = make(chan struct{})
	s.watchDone = make(chan struct{})

	go func() {
		defer close(s.watchDone)
		for {
			select {
			case <-s.stopWatch:
				return
			case <-s.client.Disconnected():
				s.mu.Lock()
				s.connected = false
				autoReconnect := s.autoReconnect
				s.mu.Unlock()

				if !autoReconnect {
					return
				}

				select {
				case <-time.After(disconnectSettle):
				case <-s.stopWatch:
					return
				}

				go s.Reconnect(context.Background(), 0)
			}
		}
	}()
}

func (s *Session) stopDisconnectWatch() {
	if s.stopWatch != nil {
		close(s.stopWatch)
		<-s.watchDone
		s.stopWatch = nil
	}
}
