// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads cyclepoint's settings from an optional YAML file and
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tombee/cyclepoint/internal/log"
	cperrors "github.com/tombee/cyclepoint/pkg/errors"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Trace exporters.
const (
	ExporterStdout   = "stdout"
	ExporterOTLP     = "otlp"
	ExporterOTLPGRPC = "otlp-grpc"
)

// Config is the full cyclepoint configuration.
type Config struct {
	Log           LogConfig           `yaml:"log"`
	Store         StoreConfig         `yaml:"store"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is trace, debug, info, warn or error
	Level string `yaml:"level"`

	// Format is json or text
	Format string `yaml:"format"`

	// AddSource adds file and line to each entry
	AddSource bool `yaml:"add_source"`
}

// StoreConfig selects where run state is persisted.
type StoreConfig struct {
	// Backend is memory or sqlite
	Backend string `yaml:"backend"`

	// Path is the sqlite database file
	Path string `yaml:"path"`

	// WAL enables sqlite write-ahead logging
	WAL bool `yaml:"wal"`
}

// SchedulerConfig bounds the task pool.
type SchedulerConfig struct {
	// RunaheadLimit is how many cycle points past the oldest active point
	// may have tasks spawned
	RunaheadLimit int `yaml:"runahead_limit"`

	// MaxIterations stops a simulation that fails to finish
	MaxIterations int `yaml:"max_iterations"`
}

// ObservabilityConfig configures metrics and tracing.
type ObservabilityConfig struct {
	// MetricsAddr serves Prometheus metrics when set, e.g. ":9090"
	MetricsAddr string `yaml:"metrics_addr"`

	Tracing TracingConfig `yaml:"tracing"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Exporter is stdout, otlp (HTTP) or otlp-grpc
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP collector address
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS towards the collector
	Insecure bool `yaml:"insecure"`

	// SampleRate is the fraction of runs traced, 0 to 1
	SampleRate float64 `yaml:"sample_rate"`

	ServiceName string `yaml:"service_name"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: string(log.FormatJSON),
		},
		Store: StoreConfig{
			Backend: BackendMemory,
			WAL:     true,
		},
		Scheduler: SchedulerConfig{
			RunaheadLimit: 3,
			MaxIterations: 10000,
		},
		Observability: ObservabilityConfig{
			Tracing: TracingConfig{
				Exporter:    ExporterStdout,
				Endpoint:    "localhost:4318",
				SampleRate:  1,
				ServiceName: "cyclepoint",
			},
		},
	}
}

// Load reads configPath when given, fills defaults, applies environment
// overrides and validates the result.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := cfg.loadFromFile(configPath); err != nil {
			return nil, &cperrors.ConfigError{
				Key:    "config_file",
				Reason: fmt.Sprintf("failed to load from %s", configPath),
				Cause:  err,
			}
		}
	}

	cfg.applyDefaults()
	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault loads the file at ConfigPath if it exists.
func LoadDefault() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Load("")
	}
	if _, err := os.Stat(path); err != nil {
		return Load("")
	}
	return Load(path)
}

// applyDefaults fills zero values left by a partial config file.
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}
	if c.Store.Backend == "" {
		c.Store.Backend = defaults.Store.Backend
	}
	if c.Scheduler.RunaheadLimit == 0 {
		c.Scheduler.RunaheadLimit = defaults.Scheduler.RunaheadLimit
	}
	if c.Scheduler.MaxIterations == 0 {
		c.Scheduler.MaxIterations = defaults.Scheduler.MaxIterations
	}
	if c.Observability.Tracing.Exporter == "" {
		c.Observability.Tracing.Exporter = defaults.Observability.Tracing.Exporter
	}
	if c.Observability.Tracing.Endpoint == "" {
		c.Observability.Tracing.Endpoint = defaults.Observability.Tracing.Endpoint
	}
	if c.Observability.Tracing.SampleRate == 0 {
		c.Observability.Tracing.SampleRate = defaults.Observability.Tracing.SampleRate
	}
	if c.Observability.Tracing.ServiceName == "" {
		c.Observability.Tracing.ServiceName = defaults.Observability.Tracing.ServiceName
	}
}

func (c *Config) loadFromFile(path string) error {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_SOURCE"); val != "" {
		c.Log.AddSource = envBool(val)
	}

	if val := os.Getenv("CYCLEPOINT_STORE_BACKEND"); val != "" {
		c.Store.Backend = strings.ToLower(val)
	}
	if val := os.Getenv("CYCLEPOINT_STORE_PATH"); val != "" {
		c.Store.Path = val
	}
	if val := os.Getenv("CYCLEPOINT_RUNAHEAD"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Scheduler.RunaheadLimit = n
		}
	}
	if val := os.Getenv("CYCLEPOINT_METRICS_ADDR"); val != "" {
		c.Observability.MetricsAddr = val
	}
	if val := os.Getenv("CYCLEPOINT_TRACING"); val != "" {
		c.Observability.Tracing.Enabled = envBool(val)
	}
}

func envBool(val string) bool {
	return val == "1" || strings.ToLower(val) == "true"
}

// Validate checks every section.
func (c *Config) Validate() error {
	switch c.Log.Format {
	case string(log.FormatJSON), string(log.FormatText):
	default:
		return &cperrors.ConfigError{Key: "log.format", Reason: fmt.Sprintf("unknown format %q (want json or text)", c.Log.Format)}
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Store.Path == "" {
			path, err := DefaultDatabasePath()
			if err != nil {
				return &cperrors.ConfigError{Key: "store.path", Reason: "no path set and no data directory available", Cause: err}
			}
			c.Store.Path = path
		}
	default:
		return &cperrors.ConfigError{Key: "store.backend", Reason: fmt.Sprintf("unknown backend %q (want %s or %s)", c.Store.Backend, BackendMemory, BackendSQLite)}
	}

	if c.Scheduler.RunaheadLimit < 1 {
		return &cperrors.ConfigError{Key: "scheduler.runahead_limit", Reason: "must be at least 1"}
	}
	if c.Scheduler.MaxIterations < 1 {
		return &cperrors.ConfigError{Key: "scheduler.max_iterations", Reason: "must be at least 1"}
	}

	if c.Observability.Tracing.Enabled {
		switch c.Observability.Tracing.Exporter {
		case ExporterStdout, ExporterOTLP, ExporterOTLPGRPC:
		default:
			return &cperrors.ConfigError{Key: "observability.tracing.exporter", Reason: fmt.Sprintf("unknown exporter %q (want %s, %s or %s)", c.Observability.Tracing.Exporter, ExporterStdout, ExporterOTLP, ExporterOTLPGRPC)}
		}
		if r := c.Observability.Tracing.SampleRate; r < 0 || r > 1 {
			return &cperrors.ConfigError{Key: "observability.tracing.sample_rate", Reason: "must be between 0 and 1"}
		}
	}
	return nil
}

// LoggerConfig returns the logger configuration for this config.
func (c *Config) LoggerConfig() *log.Config {
	cfg := log.DefaultConfig()
	cfg.Level = c.Log.Level
	cfg.Format = log.Format(c.Log.Format)
	cfg.AddSource = c.Log.AddSource
	return cfg
}
