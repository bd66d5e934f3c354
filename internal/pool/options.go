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

package pool

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/cyclepoint/internal/tracing"
)

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the logger. Pool adds its own component and run fields.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		p.logger = logger
	}
}

// WithTracer sets the tracer for iteration spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Pool) {
		p.tracer = tracer
	}
}

// WithCollector sets the OpenTelemetry instruments for iteration timings.
func WithCollector(c *tracing.Collector) Option {
	return func(p *Pool) {
		p.collector = c
	}
}

// WithRunaheadLimit sets how many cycle points, counting the oldest point
// with a waiting instance, may be spawned at once.
func WithRunaheadLimit(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.runahead = n
		}
	}
}

// WithMaxIterations bounds Run.
func WithMaxIterations(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.maxIterations = n
		}
	}
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(p *Pool) {
		p.runID = id
	}
}

// WithForced marks task instances ("<point>/<name>") whose prerequisites
// are set satisfied as soon as they spawn.
func WithForced(ids ...string) Option {
	return func(p *Pool) {
		for _, id := range ids {
			p.forced[id] = true
		}
	}
}
