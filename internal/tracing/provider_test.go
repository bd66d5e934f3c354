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
	"bytes"
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestProvider_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	p, err := NewProvider(Config{ServiceName: "test", Registerer: prometheus.NewRegistry()}, sdktrace.WithSpanProcessor(recorder))
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	_, span := p.Tracer("pool").Start(context.Background(), "pool.iteration")
	span.SetAttributes(attribute.Int("ready", 2))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "pool.iteration", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.Int("ready", 2))
	assert.Equal(t, "github.com/tombee/cyclepoint/pool", spans[0].InstrumentationScope().Name)
}

func TestProvider_MetricsRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewProvider(Config{Registerer: reg})
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	ctx := context.Background()
	p.Collector().RecordIteration(ctx, 0.25, 1)
	p.Collector().RecordCompleted(ctx, "succeeded")

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["cyclepoint_pool_iteration_duration_seconds"], "got %v", names)
	assert.True(t, names["cyclepoint_tasks_completed_total"], "got %v", names)
}

func TestSetup_Disabled(t *testing.T) {
	p, err := Setup(context.Background(), Config{Enabled: false})
	require.NoError(t, err)

	_, span := p.Tracer("pool").Start(context.Background(), "pool.iteration")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	p.Collector().RecordIteration(context.Background(), 1, 0)
	assert.NoError(t, p.ForceFlush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSetup_Stdout(t *testing.T) {
	var buf bytes.Buffer
	p, err := Setup(context.Background(), Config{
		Enabled:    true,
		Exporter:   ExporterStdout,
		Writer:     &buf,
		Registerer: prometheus.NewRegistry(),
	})
	require.NoError(t, err)

	_, span := p.Tracer("pool").Start(context.Background(), "pool.iteration")
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), "pool.iteration")
}

func TestNewExporter(t *testing.T) {
	ctx := context.Background()
	for _, name := range []string{ExporterStdout, ExporterOTLP, ExporterOTLPGRPC} {
		t.Run(name, func(t *testing.T) {
			exp, err := NewExporter(ctx, Config{Exporter: name, Endpoint: "localhost:4318", Insecure: true, Writer: &bytes.Buffer{}})
			require.NoError(t, err)
			assert.NoError(t, exp.Shutdown(ctx))
		})
	}

	_, err := NewExporter(ctx, Config{Exporter: "zipkin"})
	assert.Error(t, err)
}

func TestNewSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), NewSampler(0).Description())
	assert.Equal(t, sdktrace.AlwaysSample().Description(), NewSampler(1).Description())
	assert.Contains(t, NewSampler(0.5).Description(), "TraceIDRatioBased{0.5}")
}
