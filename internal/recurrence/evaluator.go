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

// Package recurrence evaluates the "when" guards that decide which graph
// sections apply at a cycle point.
//
// Guards are expr-lang boolean expressions over the point being considered:
//
//	point      the cycle point (int for integer cycling, time.Time for date-time)
//	initial    the initial cycle point, same type as point
//	final      the final cycle point, same type as point
//	index      number of cycle steps since the initial point
//	every(n)   true on every n-th cycle step, counting from the initial point
//
// Examples: "point % 2 == 0", "index > 0", "point.Hour() == 0", "every(4)".
package recurrence

import (
	"fmt"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/tombee/cyclepoint/pkg/cycling"
	"github.com/tombee/cyclepoint/pkg/errors"
)

// Context is the point a guard is evaluated at.
type Context struct {
	Point   cycling.Point
	Initial cycling.Point
	Final   cycling.Point
	Index   int
}

// Evaluator compiles and caches guards for one cycling mode.
type Evaluator struct {
	mode  string
	cache map[string]*vm.Program
	mu    sync.RWMutex
}

// New creates an evaluator for the given cycling mode.
func New(mode string) (*Evaluator, error) {
	if mode != cycling.ModeInteger && mode != cycling.ModeDateTime {
		return nil, fmt.Errorf("unknown cycling mode %q", mode)
	}
	return &Evaluator{
		mode:  mode,
		cache: make(map[string]*vm.Program),
	}, nil
}

// Check compiles expression without evaluating it.
func (e *Evaluator) Check(expression string) error {
	if expression == "" {
		return nil
	}
	if _, err := e.compile(expression); err != nil {
		return &errors.ValidationError{
			Field:      "when",
			Message:    fmt.Sprintf("failed to compile guard: %s", err.Error()),
			Suggestion: "guards may use point, initial, final, index and every(n)",
			Cause:      err,
		}
	}
	return nil
}

// Evaluate reports whether expression holds at ctx. An empty expression
// always holds.
func (e *Evaluator) Evaluate(expression string, ctx Context) (bool, error) {
	if expression == "" {
		return true, nil
	}

	program, err := e.compile(expression)
	if err != nil {
		return false, &errors.ValidationError{
			Field:      "when",
			Message:    fmt.Sprintf("failed to compile guard: %s", err.Error()),
			Suggestion: "guards may use point, initial, final, index and every(n)",
			Cause:      err,
		}
	}

	env, err := e.env(ctx)
	if err != nil {
		return false, err
	}

	result, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("evaluating guard %q at %s: %w", expression, ctx.Point, err)
	}

	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("guard %q returned %T, want bool", expression, result)
	}
	return b, nil
}

func (e *Evaluator) compile(expression string) (*vm.Program, error) {
	e.mu.RLock()
	if prog, ok := e.cache[expression]; ok {
		e.mu.RUnlock()
		return prog, nil
	}
	e.mu.RUnlock()

	prog, err := expr.Compile(expression, expr.Env(e.sampleEnv()), expr.AsBool())
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[expression] = prog
	e.mu.Unlock()

	return prog, nil
}

// sampleEnv gives the compiler the variable types for this mode.
func (e *Evaluator) sampleEnv() map[string]any {
	env := map[string]any{
		"index": 0,
		"every": func(int) bool { return false },
	}
	if e.mode == cycling.ModeInteger {
		env["point"], env["initial"], env["final"] = 0, 0, 0
	} else {
		env["point"], env["initial"], env["final"] = time.Time{}, time.Time{}, time.Time{}
	}
	return env
}

func (e *Evaluator) env(ctx Context) (map[string]any, error) {
	index := ctx.Index
	env := map[string]any{
		"index": index,
		"every": func(n int) bool { return n > 0 && index%n == 0 },
	}
	for key, p := range map[string]cycling.Point{"point": ctx.Point, "initial": ctx.Initial, "final": ctx.Final} {
		v, err := e.value(p)
		if err != nil {
			return nil, fmt.Errorf("guard variable %s: %w", key, err)
		}
		env[key] = v
	}
	return env, nil
}

func (e *Evaluator) value(p cycling.Point) (any, error) {
	switch v := p.(type) {
	case cycling.IntegerPoint:
		if e.mode == cycling.ModeInteger {
			return int(v), nil
		}
	case cycling.DateTimePoint:
		if e.mode == cycling.ModeDateTime {
			return v.Time(), nil
		}
	case nil:
		if e.mode == cycling.ModeInteger {
			return 0, nil
		}
		return time.Time{}, nil
	}
	return nil, fmt.Errorf("point %v does not match %s cycling", p, e.mode)
}

// CacheSize returns the number of compiled guards.
func (e *Evaluator) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}
