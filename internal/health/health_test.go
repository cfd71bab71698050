// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandleOK_RootAndHealthPaths(t *testing.T) {
	s := NewServer()
	router := s.Router()

	for _, path := range []string{"/", "/health"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, rec.Code)
		}
		if rec.Body.String() != "OK" {
			t.Errorf("%s: body = %q, want OK", path, rec.Body.String())
		}
	}
}

func TestHandleStatus_ReflectsUpdates(t *testing.T) {
	s := NewServer()
	s.UpdateStatus(map[string]any{"mode": "change_monitor", "queue_size": float64(3)})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode status JSON: %v", err)
	}
	if body["mode"] != "change_monitor" {
		t.Errorf("mode = %v, want change_monitor", body["mode"])
	}
	if _, ok := body["updated_at"]; !ok {
		t.Errorf("expected updated_at to be stamped in status response")
	}
}

func TestHandleStatus_DefaultsToStarting(t *testing.T) {
	s := NewServer()

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode status JSON: %v", err)
	}
	if body["status"] != "starting" {
		t.Errorf("status = %v, want starting", body["status"])
	}
}

func TestMarkRunning_FlipsStatus(t *testing.T) {
	s := NewServer()
	s.MarkRunning()

	if s.snapshot()["status"] != "running" {
		t.Errorf("status = %v, want running", s.snapshot()["status"])
	}
}

func TestUnknownPath_Returns404(t *testing.T) {
	s := NewServer()
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestNewHTTPServer_WiresAddrAndHandler(t *testing.T) {
	s := NewServer()
	srv := NewHTTPServer(":9999", s)

	if srv.Addr != ":9999" {
		t.Errorf("Addr = %q, want :9999", srv.Addr)
	}
	if srv.Handler == nil {
		t.Errorf("expected a non-nil Handler")
	}
}
