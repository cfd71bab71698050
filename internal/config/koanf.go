// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where an optional config file is
// searched, in priority order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/picsync/config.yaml",
	"/etc/picsync/config.yml",
}

// ConfigPathEnvVar overrides the config file search with an explicit path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config populated with every documented default.
func defaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Mode: ModeChangeMonitor,
			Port: 8080,
		},
		Bulk: BulkConfig{
			BatchSize:    200,
			RequestDelay: 500 * time.Millisecond,
			Timeout:      60 * time.Second,
			MaxRetries:   5,
		},
		Monitor: MonitorConfig{
			PollInterval:     30 * time.Second,
			ProcessBatchSize: 100,
			MaxQueueSize:     10000,
		},
		Fetch: FetchConfig{
			BatchSize:    200,
			RequestDelay: 500 * time.Millisecond,
			Timeout:      60 * time.Second,
			MaxRetries:   5,
		},
		Session: SessionConfig{
			Endpoint:          "wss://pics.steampowered.com/rpc",
			HeartbeatInterval: 300 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "INFO",
			JSON:  true,
		},
	}
}

// Load reads configuration from defaults, an optional YAML file, and
// environment variables, in that order of increasing precedence.
//
// Environment variables match the original service's legacy flat names
// (SUPABASE_URL, BULK_BATCH_SIZE, ...) and are remapped to the nested
// koanf paths via envTransformFunc.
func Load() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps the original service's flat environment variable names
// to nested koanf config paths.
var envMappings = map[string]string{
	"supabase_url":         "store.url",
	"supabase_service_key": "store.service_key",

	"mode": "service.mode",
	"port": "service.port",

	"bulk_batch_size":    "bulk.batch_size",
	"bulk_request_delay": "bulk.request_delay",
	"bulk_timeout":       "bulk.timeout",
	"bulk_max_retries":   "bulk.max_retries",

	"poll_interval":      "monitor.poll_interval",
	"process_batch_size": "monitor.process_batch_size",
	"max_queue_size":     "monitor.max_queue_size",

	"fetch_batch_size":    "fetch.batch_size",
	"fetch_request_delay": "fetch.request_delay",
	"fetch_timeout":       "fetch.timeout",
	"fetch_max_retries":   "fetch.max_retries",

	"pics_endpoint":       "session.endpoint",
	"heartbeat_interval":  "session.heartbeat_interval",

	"log_level": "logging.level",
	"log_json":  "logging.json",
}

// envTransformFunc transforms environment variable names into koanf
// config paths.
//
// Examples:
//   - SUPABASE_URL -> store.url
//   - BULK_BATCH_SIZE -> bulk.batch_size
//   - POLL_INTERVAL -> monitor.poll_interval
func envTransformFunc(key string) string {
	key = strings.ToLower(key)
	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return strings.ReplaceAll(key, "_", ".")
}
