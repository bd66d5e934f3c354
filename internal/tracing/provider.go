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
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Provider hands out tracers and the pool's meter instruments.
type Provider struct {
	tp        *sdktrace.TracerProvider
	mp        *sdkmetric.MeterProvider
	tracers   trace.TracerProvider
	collector *Collector
}

// Setup builds a Provider from cfg, creating the configured exporter. A
// disabled config yields no-op tracers and instruments.
func Setup(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return Noop(), nil
	}
	exp, err := NewExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewProvider(cfg, sdktrace.WithBatcher(exp))
}

// NewProvider creates an SDK-backed provider. opts are appended to the
// tracer provider options, e.g. a span processor.
func NewProvider(cfg Config, opts ...sdktrace.TracerProviderOption) (*Provider, error) {
	name := cfg.ServiceName
	if name == "" {
		name = "cyclepoint"
	}
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes("",
			semconv.ServiceName(name),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	all := append([]sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(NewSampler(cfg.SampleRate)),
	}, opts...)
	tp := sdktrace.NewTracerProvider(all...)

	reg := cfg.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	promExporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		_ = tp.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promExporter),
	)

	collector, err := NewCollector(mp)
	if err != nil {
		return nil, errors.Join(err, tp.Shutdown(context.Background()), mp.Shutdown(context.Background()))
	}

	return &Provider{tp: tp, mp: mp, tracers: tp, collector: collector}, nil
}

// Noop returns a provider that records nothing.
func Noop() *Provider {
	c, _ := NewCollector(metricnoop.NewMeterProvider())
	return &Provider{tracers: tracenoop.NewTracerProvider(), collector: c}
}

// Tracer returns a tracer for the given instrumentation scope.
func (p *Provider) Tracer(name string) trace.Tracer {
	return p.tracers.Tracer("github.com/tombee/cyclepoint/" + name)
}

// Collector returns the pool's meter instruments.
func (p *Provider) Collector() *Collector {
	return p.collector
}

// ForceFlush exports pending spans synchronously.
func (p *Provider) ForceFlush(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	return p.tp.ForceFlush(ctx)
}

// Shutdown flushes and releases the SDK providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	return errors.Join(p.tp.Shutdown(ctx), p.mp.Shutdown(ctx))
}

// Collector records pool timings through OpenTelemetry metrics.
type Collector struct {
	iterationDuration metric.Float64Histogram
	tasksCompleted    metric.Int64Counter
}

// NewCollector creates the instruments on mp's "cyclepoint" meter.
func NewCollector(mp metric.MeterProvider) (*Collector, error) {
	meter := mp.Meter("cyclepoint")
	c := &Collector{}

	var err error
	c.iterationDuration, err = meter.Float64Histogram(
		"cyclepoint_pool_iteration_duration_seconds",
		metric.WithDescription("Wall time of one task pool scheduling iteration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	c.tasksCompleted, err = meter.Int64Counter(
		"cyclepoint_tasks_completed",
		metric.WithDescription("Task instances that reached a final status"),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// RecordIteration records the duration of one pool iteration.
func (c *Collector) RecordIteration(ctx context.Context, seconds float64, ready int) {
	c.iterationDuration.Record(ctx, seconds, metric.WithAttributes(attribute.Bool("progressed", ready > 0)))
}

// RecordCompleted counts a task instance finishing with status.
func (c *Collector) RecordCompleted(ctx context.Context, status string) {
	c.tasksCompleted.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
