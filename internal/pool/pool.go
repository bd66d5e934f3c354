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
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/tombee/cyclepoint/internal/log"
	"github.com/tombee/cyclepoint/internal/metrics"
	"github.com/tombee/cyclepoint/internal/store"
	"github.com/tombee/cyclepoint/internal/tracing"
	"github.com/tombee/cyclepoint/pkg/cycling"
	"github.com/tombee/cyclepoint/pkg/errors"
	"github.com/tombee/cyclepoint/pkg/graph"
	"github.com/tombee/cyclepoint/pkg/prereq"
	"github.com/tombee/cyclepoint/pkg/trigger"
)

const (
	defaultRunahead      = 3
	defaultMaxIterations = 10000
)

// Pool owns the task instances of one run. Run mutates the pool from a
// single goroutine; Waiting and Dumps may be called concurrently.
type Pool struct {
	graph  *graph.Graph
	store  store.Store
	points []cycling.Point

	logger        *slog.Logger
	tracer        trace.Tracer
	collector     *tracing.Collector
	runID         string
	runahead      int
	maxIterations int
	forced        map[string]bool

	mu    sync.RWMutex
	tasks map[string]*task
	next  int           // index into points of the next point to spawn
	done  trigger.RefSet // every output recorded in the store
}

// New creates a pool for g persisting to st.
func New(g *graph.Graph, st store.Store, opts ...Option) *Pool {
	p := &Pool{
		graph:         g,
		store:         st,
		points:        g.Points(),
		logger:        log.Discard(),
		tracer:        tracenoop.NewTracerProvider().Tracer("pool"),
		collector:     tracing.Noop().Collector(),
		runID:         uuid.NewString(),
		runahead:      defaultRunahead,
		maxIterations: defaultMaxIterations,
		forced:        make(map[string]bool),
		tasks:         make(map[string]*task),
		done:          trigger.NewRefSet(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = log.WithRunContext(log.WithComponent(p.logger, "pool"), p.runID, g.Name())
	return p
}

// RunID returns the run identifier.
func (p *Pool) RunID() string {
	return p.runID
}

// Run iterates until every instance has finished. It returns a
// *errors.StallError when instances remain that can never become ready.
func (p *Pool) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: p.runID}

	restored, err := p.resume(ctx)
	if err != nil {
		return res, err
	}
	if restored > 0 {
		p.logger.Info("resuming run", slog.Int("outputs", restored))
	}

	for iter := 1; ; iter++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if iter > p.maxIterations {
			return res, fmt.Errorf("run did not finish within %d iterations", p.maxIterations)
		}

		finished, err := p.iterate(ctx, iter, res)
		if err != nil {
			return res, err
		}
		if finished {
			p.logger.Info("run complete",
				slog.Int("iterations", res.Iterations),
				slog.Int("completed", len(res.Completed)),
				log.Duration(time.Since(start)))
			return res, nil
		}
		res.Iterations = iter
	}
}

// resume loads outputs recorded by an earlier run.
func (p *Pool) resume(ctx context.Context) (int, error) {
	refs, err := p.store.ListOutputs(ctx)
	if err != nil {
		metrics.RecordPersistenceError("list_outputs")
		return 0, errors.Wrap(err, "loading recorded outputs")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range refs {
		p.done.Add(r)
	}
	return len(refs), nil
}

// iterate runs one scheduling round and reports whether the run is over.
func (p *Pool) iterate(ctx context.Context, iter int, res *Result) (bool, error) {
	started := time.Now()
	ctx, span := p.tracer.Start(ctx, "pool.iteration",
		trace.WithAttributes(
			attribute.String("run.id", p.runID),
			attribute.Int("iteration", iter),
		))
	defer span.End()

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.spawn(ctx, res); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	ready := p.readyLocked()
	span.SetAttributes(attribute.Int("tasks.ready", len(ready)))
	p.collector.RecordIteration(ctx, time.Since(started).Seconds(), len(ready))

	if len(ready) == 0 {
		waiting := p.waitingLocked()
		if len(waiting) == 0 && p.next >= len(p.points) {
			return true, nil
		}
		err := &errors.StallError{Waiting: waiting}
		p.logger.Warn("run stalled", slog.Int("waiting", len(waiting)))
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	emitted := trigger.NewRefSet()
	for _, t := range ready {
		if err := p.runTask(ctx, t, emitted); err != nil {
			span.RecordError(err)
			return false, err
		}
		res.Completed = append(res.Completed, Completion{ID: t.id(), Status: t.status, Iteration: iter})
	}

	if err := p.broadcast(ctx, emitted); err != nil {
		span.RecordError(err)
		return false, err
	}
	span.SetAttributes(attribute.Int("outputs.emitted", len(emitted)))
	return false, nil
}

// oldestLocked returns the index of the oldest point with a waiting
// instance, or the next point to spawn when nothing waits.
func (p *Pool) oldestLocked() int {
	oldest := p.next
	for _, t := range p.tasks {
		if t.status == StatusWaiting && t.index < oldest {
			oldest = t.index
		}
	}
	return oldest
}

func (p *Pool) spawn(ctx context.Context, res *Result) error {
	for p.next < len(p.points) && p.next < p.oldestLocked()+p.runahead {
		point := p.points[p.next]
		index := p.next
		p.next++

		names, err := p.graph.TasksAt(point)
		if err != nil {
			return err
		}
		for _, name := range names {
			t, err := p.spawnTask(ctx, point, index, name)
			if err != nil {
				return err
			}
			if t.status.Finished() {
				res.Restored++
			}
		}
	}
	return nil
}

func (p *Pool) spawnTask(ctx context.Context, point cycling.Point, index int, name string) (*task, error) {
	prereqs, err := p.graph.Prerequisites(name, point)
	if err != nil {
		return nil, err
	}
	t := &task{point: point, index: index, name: name, prereqs: prereqs, status: StatusWaiting}
	p.tasks[t.id()] = t
	metrics.RecordSpawn()
	logger := log.WithTaskContext(p.logger, t.id())

	switch {
	case p.done.Has(p.output(t, graph.OutputSucceeded)):
		t.status = StatusSucceeded
	case p.done.Has(p.output(t, graph.OutputFailed)):
		t.status = StatusFailed
	}
	if t.status.Finished() {
		logger.Debug("task already finished", slog.String("status", string(t.status)))
		return t, nil
	}

	saved, err := p.store.LoadPrerequisites(ctx, t.key())
	if err != nil {
		metrics.RecordPersistenceError("load_prerequisites")
		return nil, errors.Wrapf(err, "loading prerequisites of %s", t.id())
	}
	for i, records := range saved {
		if i >= len(t.prereqs) {
			break
		}
		if _, err := t.prereqs[i].Restore(records); err != nil {
			return nil, errors.Wrapf(err, "restoring prerequisites of %s", t.id())
		}
	}

	for _, pr := range t.prereqs {
		pr.SatisfyFromDatabase(p.done)
	}
	if p.forced[t.id()] {
		for _, pr := range t.prereqs {
			pr.SetSatisfied()
		}
		logger.Info("prerequisites forced")
	}

	if err := p.save(ctx, t); err != nil {
		return nil, err
	}
	log.Trace(logger, "task spawned", slog.Int("prerequisites", len(t.prereqs)))
	return t, nil
}

func (p *Pool) output(t *task, output string) trigger.Ref {
	return trigger.Ref{Point: t.point.String(), Name: t.name, Output: output}
}

// readyLocked returns the waiting instances that can run, oldest point
// first then by name.
func (p *Pool) readyLocked() []*task {
	var ready []*task
	for _, t := range p.tasks {
		if t.status == StatusWaiting && t.ready() {
			ready = append(ready, t)
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		if ready[i].index != ready[j].index {
			return ready[i].index < ready[j].index
		}
		return ready[i].name < ready[j].name
	})
	for range ready {
		metrics.RecordReady()
	}
	return ready
}

// runTask simulates t, recording each output it emits.
func (p *Pool) runTask(ctx context.Context, t *task, emitted trigger.RefSet) error {
	fails := p.graph.Fails(t.point, t.name)

	outputs := []string{graph.OutputSubmitted, graph.OutputStarted}
	if fails {
		outputs = append(outputs, graph.OutputFailed)
		t.status = StatusFailed
	} else {
		outputs = append(outputs, p.graph.CustomOutputs(t.name)...)
		outputs = append(outputs, graph.OutputSucceeded)
		t.status = StatusSucceeded
	}

	for _, o := range outputs {
		ref := p.output(t, o)
		if err := p.store.RecordOutput(ctx, ref); err != nil {
			metrics.RecordPersistenceError("record_output")
			return errors.Wrapf(err, "recording %s", ref)
		}
		p.done.Add(ref)
		emitted.Add(ref)
	}

	p.collector.RecordCompleted(ctx, string(t.status))
	log.WithTaskContext(p.logger, t.id()).Info("task finished",
		slog.String(log.CyclePointKey, t.point.String()),
		slog.String("status", string(t.status)))
	return nil
}

// broadcast offers emitted to every waiting instance and persists the
// prerequisites that changed.
func (p *Pool) broadcast(ctx context.Context, emitted trigger.RefSet) error {
	for _, t := range p.tasks {
		if t.status != StatusWaiting {
			continue
		}
		changed := false
		for _, pr := range t.prereqs {
			matched := pr.SatisfyMe(emitted)
			metrics.RecordSatisfy(len(matched))
			if len(matched) > 0 {
				changed = true
			}
		}
		if changed {
			if err := p.save(ctx, t); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pool) save(ctx context.Context, t *task) error {
	if len(t.prereqs) == 0 {
		return nil
	}
	if err := p.store.SavePrerequisites(ctx, t.key(), t.snapshot()); err != nil {
		metrics.RecordPersistenceError("save_prerequisites")
		return errors.Wrapf(err, "saving prerequisites of %s", t.id())
	}
	return nil
}

func (p *Pool) waitingLocked() []string {
	var ids []*task
	for _, t := range p.tasks {
		if t.status == StatusWaiting {
			ids = append(ids, t)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].index != ids[j].index {
			return ids[i].index < ids[j].index
		}
		return ids[i].name < ids[j].name
	})
	out := make([]string, len(ids))
	for i, t := range ids {
		out[i] = t.id()
	}
	return out
}

// Waiting returns the IDs of unfinished instances, oldest point first.
func (p *Pool) Waiting() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.waitingLocked()
}

// Status returns the status of the instance with the given ID.
func (p *Pool) Status(id string) (Status, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, ok := p.tasks[id]
	if !ok {
		return "", false
	}
	return t.status, true
}

// Dumps returns the prerequisite dumps of every waiting instance, keyed by
// ID. Instances without prerequisites are omitted.
func (p *Pool) Dumps() map[string][]*prereq.Dump {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string][]*prereq.Dump)
	for _, id := range p.waitingLocked() {
		var dumps []*prereq.Dump
		for _, pr := range p.tasks[id].prereqs {
			if d := pr.APIDump(); d != nil {
				dumps = append(dumps, d)
			}
		}
		if len(dumps) > 0 {
			out[id] = dumps
		}
	}
	return out
}

// Unsatisfied returns, for a waiting instance, the dependencies still
// outstanding in canonical "<point>/<name> <output>" form.
func (p *Pool) Unsatisfied(id string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	t, ok := p.tasks[id]
	if !ok {
		return nil
	}
	var out []string
	for _, pr := range t.prereqs {
		for _, d := range pr.Dependencies() {
			if !d.State.Satisfied() {
				out = append(out, d.Ref.String())
			}
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
