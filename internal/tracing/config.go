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

package tracing

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
)

// Exporter types.
const (
	ExporterStdout   = "stdout"
	ExporterOTLP     = "otlp"
	ExporterOTLPGRPC = "otlp-grpc"
)

// Config configures a Provider.
type Config struct {
	// Enabled controls whether spans are recorded and exported.
	Enabled bool

	// Exporter is stdout, otlp (HTTP) or otlp-grpc.
	Exporter string

	// Endpoint is the collector host:port for the OTLP exporters.
	Endpoint string

	// Insecure disables TLS towards the collector.
	Insecure bool

	// ServiceName identifies this process in traces.
	ServiceName string

	// ServiceVersion is the application version.
	ServiceVersion string

	// SampleRate is the fraction of traces recorded (default 1).
	SampleRate float64

	// Writer receives stdout exporter output (default os.Stdout).
	Writer io.Writer

	// Registerer receives the OpenTelemetry meter collectors (default
	// prometheus.DefaultRegisterer).
	Registerer prometheus.Registerer
}
