// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package upstream

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/picsync/internal/logging"
	"github.com/tomtom215/picsync/internal/models"
)

// Client is the upstream platform's wire protocol, reduced to the three
// calls and two events the core pipeline consumes. The protocol framing
// itself is out of scope; this interface is the seam the rest of the
// package is built against, so it can be satisfied by a fake in tests.
type Client interface {
	// Dial opens the underlying transport. It does not perform the
	// platform login handshake.
	Dial(ctx context.Context) error
	// AnonymousLogin performs the platform's anonymous session handshake
	// over an already-dialed transport.
	AnonymousLogin(ctx context.Context) error
	// Close tears down the transport unconditionally.
	Close() error

	// GetProductInfo requests full records for the given app ids.
	GetProductInfo(ctx context.Context, appIDs []uint32, timeout time.Duration) (map[uint32]*models.RawAppInfo, error)
	// GetChangesSince requests the app-change delta since change number n.
	GetChangesSince(ctx context.Context, n int64) (*models.ChangeDelta, error)

	// Disconnected fires once per transport-level disconnect.
	Disconnected() <-chan struct{}
	// Errors fires for asynchronous transport errors (e.g. read-loop
	// failures) that are not directly returned from a call above.
	Errors() <-chan error
}

// wireRequest/wireResponse model the JSON envelope exchanged over the
// websocket transport. The upstream platform's actual wire format is a
// binary protocol; this JSON framing is the seam this service talks to
// its transport adapter through (see SPEC_FULL.md's Domain Stack section).
type wireRequest struct {
	ID     int64  `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

type wireResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// WSClient is a Client backed by a gorilla/websocket connection to the
// platform's RPC endpoint.
type WSClient struct {
	endpoint string

	connMu sync.RWMutex
	conn   *websocket.Conn

	reqMu   sync.Mutex
	nextID  int64
	pending map[int64]chan wireResponse

	disconnected chan struct{}
	errs         chan error

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewWSClient creates a client that will dial the given endpoint
// (e.g. "wss://pics.example.internal/rpc") on Dial.
func NewWSClient(endpoint string) *WSClient {
	return &WSClient{
		endpoint:     endpoint,
		pending:      make(map[int64]chan wireResponse),
		disconnected: make(chan struct{}, 1),
		errs:         make(chan error, 8),
		stopChan:     make(chan struct{}),
	}
}

func (c *WSClient) Dial(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn != nil {
		return nil
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return fmt.Errorf("parse upstream endpoint: %w", err)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("dial upstream: %w", err)
	}

	c.conn = conn
	c.wg.Add(1)
	go c.readLoop()
	return nil
}

func (c *WSClient) AnonymousLogin(ctx context.Context) error {
	_, err := c.call(ctx, "anonymous_login", nil, 15*time.Second)
	return err
}

func (c *WSClient) Close() error {
	c.stopOnce.Do(func() { close(c.stopChan) })

	c.connMu.Lock()
	conn := c.conn
	c.conn = nil
	c.connMu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	c.wg.Wait()
	return nil
}

func (c *WSClient) readLoop() {
	defer c.wg.Done()

	for {
		c.connMu.RLock()
		conn := c.conn
		c.connMu.RUnlock()
		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.stopChan:
				return
			default:
			}
			c.connMu.Lock()
			c.conn = nil
			c.connMu.Unlock()
			select {
			case c.disconnected <- struct{}{}:
			default:
			}
			select {
			case c.errs <- fmt.Errorf("upstream read: %w", err):
			default:
			}
			return
		}

		var resp wireResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			logging.Warn().Err(err).Msg("upstream: malformed response frame")
			continue
		}

		c.reqMu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.reqMu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

// call sends a request frame and blocks for its matching response, or
// until timeout/context cancellation.
func (c *WSClient) call(ctx context.Context, method string, params any, timeout time.Duration) (json.RawMessage, error) {
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()
	if conn == nil {
		return nil, fmt.Errorf("upstream: not connected")
	}

	c.reqMu.Lock()
	c.nextID++
	id := c.nextID
	ch := make(chan wireResponse, 1)
	c.pending[id] = ch
	c.reqMu.Unlock()

	req := wireRequest{ID: id, Method: method, Params: params}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal upstream request: %w", err)
	}

	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return nil, fmt.Errorf("write upstream request: %w", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		if resp.Error != "" {
			return nil, fmt.Errorf("upstream %s: %s", method, resp.Error)
		}
		return resp.Result, nil
	case <-timer.C:
		c.reqMu.Lock()
		delete(c.pending, id)
		c.reqMu.Unlock()
		return nil, fmt.Errorf("upstream %s: timed out after %s", method, timeout)
	case <-ctx.Done():
		c.reqMu.Lock()
		delete(c.pending, id)
		c.reqMu.Unlock()
		return nil, ctx.Err()
	}
}

type productInfoParams struct {
	Apps    []uint32 `json:"apps"`
	Timeout int      `json:"timeout"`
}

type productInfoResult struct {
	Apps map[uint32]*models.RawAppInfo `json:"apps"`
}

func (c *WSClient) GetProductInfo(ctx context.Context, appIDs []uint32, timeout time.Duration) (map[uint32]*models.RawAppInfo, error) {
	raw, err := c.call(ctx, "get_product_info", productInfoParams{Apps: appIDs, Timeout: int(timeout.Seconds())}, timeout+5*time.Second)
	if err != nil {
		return nil, err
	}
	var result productInfoResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode product info response: %w", err)
	}
	if result.Apps == nil {
		return map[uint32]*models.RawAppInfo{}, nil
	}
	return result.Apps, nil
}

type changesSinceParams struct {
	ChangeNumber   int64 `json:"change_number"`
	AppChanges     bool  `json:"app_changes"`
	PackageChanges bool  `json:"package_changes"`
}

type changesSinceResult struct {
	CurrentChangeNumber int64 `json:"current_change_number"`
	AppChanges          []struct {
		AppID uint32 `json:"appid"`
	} `json:"app_changes"`
}

func (c *WSClient) GetChangesSince(ctx context.Context, n int64) (*models.ChangeDelta, error) {
	raw, err := c.call(ctx, "get_changes_since", changesSinceParams{ChangeNumber: n, AppChanges: true, PackageChanges: false}, 30*time.Second)
	if err != nil {
		return nil, err
	}
	var result changesSinceResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode changes response: %w", err)
	}
	delta := &models.ChangeDelta{CurrentChangeNumber: result.CurrentChangeNumber}
	for _, ch := range result.AppChanges {
		delta.AppChanges = append(delta.AppChanges, ch.AppID)
	}
	return delta, nil
}

func (c *WSClient) Disconnected() <-chan struct{} { return c.disconnected }
func (c *WSClient) Errors() <-chan error          { return c.errs }
