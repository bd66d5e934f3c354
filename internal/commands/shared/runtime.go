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

package shared

import (
	"io"
	"log/slog"

	"github.com/tombee/cyclepoint/internal/config"
	"github.com/tombee/cyclepoint/internal/log"
	"github.com/tombee/cyclepoint/internal/tracing"
)

// LoadConfig loads the file named by --config, or the default config file
// when it exists.
func LoadConfig() (*config.Config, error) {
	if p := GetConfigPath(); p != "" {
		return config.Load(p)
	}
	return config.LoadDefault()
}

// NewLogger builds the command logger writing to w. --verbose lowers the
// level to debug and --quiet raises it to error.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	lc := cfg.LoggerConfig()
	lc.Output = w
	switch {
	case GetVerbose():
		lc.Level = "debug"
	case GetQuiet():
		lc.Level = "error"
	}
	return log.New(lc)
}

// TracingConfig converts the observability settings for tracing.Setup.
func TracingConfig(cfg *config.Config, version string) tracing.Config {
	tc := cfg.Observability.Tracing
	return tracing.Config{
		Enabled:        tc.Enabled,
		Exporter:       tc.Exporter,
		Endpoint:       tc.Endpoint,
		Insecure:       tc.Insecure,
		ServiceName:    tc.ServiceName,
		ServiceVersion: version,
		SampleRate:     tc.SampleRate,
	}
}
