// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package config loads PICS service configuration from environment
// variables (and an optional YAML file), with sensible defaults for
// everything except the store credentials.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Mode selects which worker the service runs as.
type Mode string

const (
	ModeChangeMonitor Mode = "change_monitor"
	ModeBulkSync      Mode = "bulk_sync"
)

// Config holds all application configuration loaded from environment
// variables and an optional config file.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in sensible defaults for all optional settings
//  2. Config File: optional YAML config file for persistent settings
//  3. Environment Variables: override any setting
type Config struct {
	Store   StoreConfig   `koanf:"store"`
	Service ServiceConfig `koanf:"service"`
	Bulk    BulkConfig    `koanf:"bulk"`
	Monitor MonitorConfig `koanf:"monitor"`
	Fetch   FetchConfig   `koanf:"fetch"`
	Session SessionConfig `koanf:"session"`
	Logging LoggingConfig `koanf:"logging"`
}

// StoreConfig carries the Supabase (managed Postgres) credentials. Both
// fields are required — there is no local/offline mode.
type StoreConfig struct {
	URL        string `koanf:"url" validate:"required"`
	ServiceKey string `koanf:"service_key" validate:"required"`
}

// ServiceConfig is top-level service behavior.
type ServiceConfig struct {
	Mode Mode `koanf:"mode"`
	Port int  `koanf:"port"`
}

// BulkConfig tunes the C6 bulk backfill fetcher.
type BulkConfig struct {
	BatchSize    int           `koanf:"batch_size"`
	RequestDelay time.Duration `koanf:"request_delay"`
	Timeout      time.Duration `koanf:"timeout"`
	MaxRetries   int           `koanf:"max_retries"`
}

// MonitorConfig tunes the C5 change monitor loop.
type MonitorConfig struct {
	PollInterval     time.Duration `koanf:"poll_interval"`
	ProcessBatchSize int           `koanf:"process_batch_size"`
	MaxQueueSize     int           `koanf:"max_queue_size"`
}

// FetchConfig tunes the default (non-bulk) C2 batch fetcher used by the
// change monitor.
type FetchConfig struct {
	BatchSize    int           `koanf:"batch_size"`
	RequestDelay time.Duration `koanf:"request_delay"`
	Timeout      time.Duration `koanf:"timeout"`
	MaxRetries   int           `koanf:"max_retries"`
}

// SessionConfig tunes the C1 upstream session.
type SessionConfig struct {
	Endpoint          string        `koanf:"endpoint"`
	HeartbeatInterval time.Duration `koanf:"heartbeat_interval"`
}

// LoggingConfig controls log verbosity and encoding.
type LoggingConfig struct {
	Level string `koanf:"level"`
	JSON  bool   `koanf:"json"`
}

// Validate checks required fields and clamps tunables into sane ranges.
// It never returns an error for the clamped fields — it mutates them —
// matching the distilled spec's "clamped to [60,600]s, default 300s"
// heartbeat contract.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	if c.Service.Mode != ModeChangeMonitor && c.Service.Mode != ModeBulkSync {
		return fmt.Errorf("config validation: mode must be %q or %q, got %q", ModeChangeMonitor, ModeBulkSync, c.Service.Mode)
	}

	if c.Session.HeartbeatInterval < 60*time.Second {
		c.Session.HeartbeatInterval = 60 * time.Second
	}
	if c.Session.HeartbeatInterval > 600*time.Second {
		c.Session.HeartbeatInterval = 600 * time.Second
	}

	return nil
}
