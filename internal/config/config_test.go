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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/cyclepoint/internal/log"
	cperrors "github.com/tombee/cyclepoint/pkg/errors"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LOG_LEVEL", "LOG_FORMAT", "LOG_SOURCE",
		"CYCLEPOINT_STORE_BACKEND", "CYCLEPOINT_STORE_PATH", "CYCLEPOINT_RUNAHEAD",
		"CYCLEPOINT_METRICS_ADDR", "CYCLEPOINT_TRACING",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, 3, cfg.Scheduler.RunaheadLimit)
	assert.False(t, cfg.Observability.Tracing.Enabled)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	dbPath := filepath.Join(t.TempDir(), "run.db")

	path := writeConfig(t, `
log:
  level: debug
  format: text
store:
  backend: sqlite
  path: `+dbPath+`
scheduler:
  runahead_limit: 5
observability:
  metrics_addr: ":9090"
  tracing:
    enabled: true
    exporter: otlp
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, dbPath, cfg.Store.Path)
	assert.Equal(t, 5, cfg.Scheduler.RunaheadLimit)
	assert.Equal(t, 10000, cfg.Scheduler.MaxIterations, "defaults fill unset fields")
	assert.Equal(t, ":9090", cfg.Observability.MetricsAddr)
	assert.Equal(t, ExporterOTLP, cfg.Observability.Tracing.Exporter)
	assert.Equal(t, "cyclepoint", cfg.Observability.Tracing.ServiceName)

	lc := cfg.LoggerConfig()
	assert.Equal(t, log.FormatText, lc.Format)
	assert.Equal(t, "debug", lc.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("CYCLEPOINT_STORE_BACKEND", "sqlite")
	t.Setenv("CYCLEPOINT_RUNAHEAD", "7")
	t.Setenv("CYCLEPOINT_METRICS_ADDR", "127.0.0.1:0")
	t.Setenv("CYCLEPOINT_TRACING", "true")

	path := writeConfig(t, "scheduler:\n  runahead_limit: 2\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, 7, cfg.Scheduler.RunaheadLimit)
	assert.Equal(t, "127.0.0.1:0", cfg.Observability.MetricsAddr)
	assert.True(t, cfg.Observability.Tracing.Enabled)

	want, err := DefaultDatabasePath()
	require.NoError(t, err)
	assert.Equal(t, want, cfg.Store.Path)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantKey string
	}{
		{name: "bad yaml", body: "log: [", wantKey: "config_file"},
		{name: "bad log format", body: "log:\n  format: xml\n", wantKey: "log.format"},
		{name: "bad backend", body: "store:\n  backend: redis\n", wantKey: "store.backend"},
		{name: "negative runahead", body: "scheduler:\n  runahead_limit: -1\n", wantKey: "scheduler.runahead_limit"},
		{name: "bad exporter", body: "observability:\n  tracing:\n    enabled: true\n    exporter: zipkin\n", wantKey: "observability.tracing.exporter"},
		{name: "sample rate above one", body: "observability:\n  tracing:\n    enabled: true\n    exporter: otlp-grpc\n    sample_rate: 2\n", wantKey: "observability.tracing.sample_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := Load(writeConfig(t, tt.body))
			var cerr *cperrors.ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.wantKey, cerr.Key)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		clearEnv(t)
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestLoadDefault(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "cyclepoint"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cyclepoint", "config.yaml"), []byte("log:\n  level: error\n"), 0o600))

	cfg, err = LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestXDGPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")

	path, err := ConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/cfg", "cyclepoint", "config.yaml"), path)

	db, err := DefaultDatabasePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/data", "cyclepoint", "cyclepoint.db"), db)
}
