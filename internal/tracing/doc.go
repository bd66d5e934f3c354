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

/*
Package tracing wires OpenTelemetry into the task pool.

A Provider owns an SDK tracer provider, whose spans go to stdout, an
OTLP/HTTP collector or an OTLP/gRPC collector, and an SDK meter provider
exported through the Prometheus registry. The pool opens one span per
scheduling iteration:

	provider, err := tracing.Setup(ctx, tracing.Config{
	    Enabled:     true,
	    Exporter:    tracing.ExporterStdout,
	    ServiceName: "cyclepoint",
	})
	defer provider.Shutdown(ctx)

	tracer := provider.Tracer("pool")
	ctx, span := tracer.Start(ctx, "pool.iteration")
	defer span.End()

When tracing is disabled Setup returns a provider backed by no-op tracers,
so callers never branch on configuration.
*/
package tracing
