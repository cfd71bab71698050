// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package config

import "testing"

func TestEnvTransformFunc_MapsKnownLegacyNames(t *testing.T) {
	tests := map[string]string{
		"SUPABASE_URL":         "store.url",
		"SUPABASE_SERVICE_KEY": "store.service_key",
		"MODE":                 "service.mode",
		"BULK_BATCH_SIZE":      "bulk.batch_size",
		"POLL_INTERVAL":        "monitor.poll_interval",
		"PICS_ENDPOINT":        "session.endpoint",
		"HEARTBEAT_INTERVAL":   "session.heartbeat_interval",
	}
	for env, want := range tests {
		if got := envTransformFunc(env); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", env, got, want)
		}
	}
}

func TestEnvTransformFunc_FallsBackToDotJoin(t *testing.T) {
	if got := envTransformFunc("SOME_UNMAPPED_VAR"); got != "some.unmapped.var" {
		t.Errorf("envTransformFunc(unmapped) = %q, want dot-joined fallback", got)
	}
}

func TestDefaultConfig_PassesValidationOnceStoreCredentialsAreSet(t *testing.T) {
	cfg := defaultConfig()
	cfg.Store.URL = "postgres://host/db"
	cfg.Store.ServiceKey = "key"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate once store credentials are present: %v", err)
	}
	if cfg.Service.Mode != ModeChangeMonitor {
		t.Errorf("default mode = %q, want change_monitor", cfg.Service.Mode)
	}
}
