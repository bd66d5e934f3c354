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

// Package prereq tracks whether a task instance's dependencies are met.
//
// A Prerequisite holds every upstream output one trigger expression refers
// to, the satisfaction state of each, and the compiled expression when the
// trigger contains "|". Pure "&" triggers are evaluated as "all satisfied"
// without an expression.
//
// Mutating methods (Add, SetCondition, SatisfyMe, SatisfyFromDatabase,
// SetSatisfied, SetNotSatisfied, Restore) are expected to come from one
// owner at a time. Read methods may be called concurrently from a
// reporting path; the cached result is guarded by a read/write lock.
package prereq

import (
	"sync"

	"github.com/tombee/cyclepoint/pkg/cycling"
	"github.com/tombee/cyclepoint/pkg/trigger"
)

type cacheState uint8

const (
	cacheUnknown cacheState = iota
	cacheTrue
	cacheFalse
)

func cacheOf(b bool) cacheState {
	if b {
		return cacheTrue
	}
	return cacheFalse
}

// Dependency is one dependency and its current state.
type Dependency struct {
	Ref   trigger.Ref
	State DependencyState
}

// Prerequisite is the live dependency condition of one task instance.
type Prerequisite struct {
	mu sync.RWMutex

	point      cycling.Point
	startPoint cycling.Point
	parse      cycling.Parser

	// Insertion order of deps, kept for display.
	order []trigger.Ref
	deps  map[trigger.Ref]DependencyState

	targetPoints []string
	expr         *trigger.Expression
	cached       cacheState
}

// Option configures a Prerequisite.
type Option func(*Prerequisite)

// WithStartPoint sets the earliest point the prerequisite is valid for.
func WithStartPoint(p cycling.Point) Option {
	return func(pr *Prerequisite) {
		pr.startPoint = p
	}
}

// WithPointParser sets the parser TargetPoints uses. The default detects
// integer or date-time points.
func WithPointParser(parse cycling.Parser) Option {
	return func(pr *Prerequisite) {
		pr.parse = parse
	}
}

// New returns an empty prerequisite for the task instance at point.
func New(point cycling.Point, opts ...Option) *Prerequisite {
	p := &Prerequisite{
		point: point,
		parse: cycling.ParsePoint,
		deps:  make(map[trigger.Ref]DependencyState),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Point returns the cycle point the prerequisite belongs to.
func (p *Prerequisite) Point() cycling.Point {
	return p.point
}

// StartPoint returns the earliest valid point, or nil.
func (p *Prerequisite) StartPoint() cycling.Point {
	return p.startPoint
}

// Add registers the output of task name at point. Pre-initial dependencies
// start force satisfied, all others unsatisfied. Re-adding a known
// dependency resets its state in place.
func (p *Prerequisite) Add(name, point, output string, preInitial bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ref := trigger.Ref{Point: point, Name: name, Output: output}
	if _, ok := p.deps[ref]; !ok {
		p.order = append(p.order, ref)
	}
	if preInitial {
		p.deps[ref] = SatisfiedOverridden
	} else {
		p.deps[ref] = Unsatisfied
	}
	p.cached = cacheUnknown

	if point == "" {
		return
	}
	for _, tp := range p.targetPoints {
		if tp == point {
			return
		}
	}
	p.targetPoints = append(p.targetPoints, point)
}

// SetCondition attaches expr when it contains "|". A pure "&" expression
// (or nil) clears any earlier condition, leaving "all dependencies
// satisfied" as the rule.
func (p *Prerequisite) SetCondition(expr *trigger.Expression) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cached = cacheUnknown
	p.expr = nil
	if expr != nil && expr.IsConditional() {
		p.expr = expr
	}
}

// Expression returns the attached conditional expression, or nil.
func (p *Prerequisite) Expression() *trigger.Expression {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.expr
}

// IsConditional reports whether an expression is attached.
func (p *Prerequisite) IsConditional() bool {
	return p.Expression() != nil
}

// Len returns the number of dependencies.
func (p *Prerequisite) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.order)
}

// IsSatisfied reports whether the condition holds, using the cached value
// when there is one. A prerequisite without dependencies is satisfied.
func (p *Prerequisite) IsSatisfied() bool {
	p.mu.RLock()
	c := p.cached
	p.mu.RUnlock()
	if c != cacheUnknown {
		return c == cacheTrue
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.satisfiedLocked()
}

// satisfiedLocked returns the cached value or evaluates and caches it.
// Callers hold the write lock.
func (p *Prerequisite) satisfiedLocked() bool {
	if p.cached != cacheUnknown {
		return p.cached == cacheTrue
	}
	if len(p.deps) == 0 {
		return true
	}
	p.cached = cacheOf(p.evaluateLocked())
	return p.cached == cacheTrue
}

// evaluateLocked evaluates the condition from the dependency states
// without consulting the cache.
func (p *Prerequisite) evaluateLocked() bool {
	if p.expr != nil {
		return p.expr.EvaluateFunc(p.leafLocked)
	}
	for _, s := range p.deps {
		if !s.Satisfied() {
			return false
		}
	}
	return true
}

func (p *Prerequisite) leafLocked(ref trigger.Ref) bool {
	s, ok := p.deps[ref]
	if !ok {
		panic("prereq: expression refers to unregistered dependency " + ref.String())
	}
	return s.Satisfied()
}

// SatisfyMe marks every dependency found in outputs as satisfied naturally
// and re-evaluates the condition once. It returns the matched refs in
// dependency order; no match is a normal outcome.
func (p *Prerequisite) SatisfyMe(outputs trigger.RefSet) []trigger.Ref {
	return p.satisfy(outputs, SatisfiedNaturally, false)
}

// SatisfyFromDatabase marks unsatisfied dependencies found in outputs as
// satisfied from the database. Dependencies already satisfied keep their
// state.
func (p *Prerequisite) SatisfyFromDatabase(outputs trigger.RefSet) []trigger.Ref {
	return p.satisfy(outputs, SatisfiedFromDatabase, true)
}

func (p *Prerequisite) satisfy(outputs trigger.RefSet, state DependencyState, onlyUnsatisfied bool) []trigger.Ref {
	p.mu.Lock()
	defer p.mu.Unlock()

	var matched []trigger.Ref
	for _, ref := range p.order {
		if !outputs.Has(ref) {
			continue
		}
		if onlyUnsatisfied && p.deps[ref].Satisfied() {
			continue
		}
		p.deps[ref] = state
		matched = append(matched, ref)
	}
	if len(matched) > 0 {
		p.cached = cacheOf(p.evaluateLocked())
	}
	return matched
}

// SetSatisfied forces every unsatisfied dependency to force satisfied;
// dependencies already satisfied keep their state. The condition is then
// re-evaluated rather than assumed true: with an expression attached the
// result comes from evaluating it.
func (p *Prerequisite) SetSatisfied() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for ref, s := range p.deps {
		if !s.Satisfied() {
			p.deps[ref] = SatisfiedOverridden
		}
	}
	if p.expr == nil {
		p.cached = cacheTrue
		return
	}
	p.cached = cacheOf(p.evaluateLocked())
}

// SetNotSatisfied forces every dependency to unsatisfied.
func (p *Prerequisite) SetNotSatisfied() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for ref := range p.deps {
		p.deps[ref] = Unsatisfied
	}
	switch {
	case len(p.deps) == 0:
		p.cached = cacheTrue
	case p.expr == nil:
		p.cached = cacheFalse
	default:
		p.cached = cacheOf(p.evaluateLocked())
	}
}

// Dependencies returns every dependency and its state in insertion order.
func (p *Prerequisite) Dependencies() []Dependency {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Dependency, 0, len(p.order))
	for _, ref := range p.order {
		out = append(out, Dependency{Ref: ref, State: p.deps[ref]})
	}
	return out
}

// State returns the state of ref and whether ref is a dependency.
func (p *Prerequisite) State(ref trigger.Ref) (DependencyState, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.deps[ref]
	return s, ok
}

// TargetPointStrings returns the distinct dependency points in insertion
// order.
func (p *Prerequisite) TargetPointStrings() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.targetPoints...)
}

// TargetPoints parses the distinct dependency points in insertion order.
func (p *Prerequisite) TargetPoints() ([]cycling.Point, error) {
	strs := p.TargetPointStrings()
	points := make([]cycling.Point, 0, len(strs))
	for _, s := range strs {
		pt, err := p.parse(s)
		if err != nil {
			return nil, err
		}
		points = append(points, pt)
	}
	return points, nil
}

// ResolvedDependencies returns "<point>/<name>" for each dependency
// satisfied naturally, in insertion order. Forced and database-restored
// dependencies are not reported.
func (p *Prerequisite) ResolvedDependencies() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []string
	for _, ref := range p.order {
		if p.deps[ref] == SatisfiedNaturally {
			out = append(out, ref.TaskID())
		}
	}
	return out
}
