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

package graph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tombee/cyclepoint/internal/recurrence"
	"github.com/tombee/cyclepoint/pkg/cycling"
	"github.com/tombee/cyclepoint/pkg/errors"
	"github.com/tombee/cyclepoint/pkg/prereq"
	"github.com/tombee/cyclepoint/pkg/taskid"
	"github.com/tombee/cyclepoint/pkg/trigger"
)

// Arrow separates the stages of a graph line.
const Arrow = "=>"

// maxPoints bounds the cycle point sequence of one suite.
const maxPoints = 100000

// TriggerSpec is the left side of one "=>" for one downstream task.
type TriggerSpec struct {
	// Text is the trigger expression as written
	Text string

	// Field locates the graph line, e.g. "graph[0].dependencies[2]"
	Field string

	tree trigger.Group
}

type section struct {
	when     string
	triggers map[string][]TriggerSpec
	// tasks instantiated at every point where the section applies
	tasks []string
}

// Graph is a compiled suite.
type Graph struct {
	def     *Definition
	parse   cycling.Parser
	initial cycling.Point
	final   cycling.Point
	step    cycling.Offset
	guards  *recurrence.Evaluator

	sections []section
	tasks    []string
	points   []cycling.Point
	index    map[string]int
	fail     map[string]bool
}

// Load reads and compiles the suite at path.
func Load(path string) (*Graph, error) {
	def, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	g, err := Compile(def)
	if err != nil {
		return nil, errors.Wrapf(err, "compiling suite %s", path)
	}
	return g, nil
}

// Compile validates every graph line of def and returns the compiled
// graph. def must have been validated.
func Compile(def *Definition) (*Graph, error) {
	parse, err := cycling.ParserFor(def.Cycling)
	if err != nil {
		return nil, err
	}
	guards, err := recurrence.New(def.Cycling)
	if err != nil {
		return nil, err
	}

	g := &Graph{
		def:    def,
		parse:  parse,
		guards: guards,
		index:  make(map[string]int),
		fail:   make(map[string]bool),
	}
	if g.initial, err = parse(def.InitialCyclePoint); err != nil {
		return nil, err
	}
	if g.final, err = parse(def.FinalCyclePoint); err != nil {
		return nil, err
	}
	if g.step, err = cycling.ParseOffset(def.CycleStep); err != nil {
		return nil, err
	}
	if err := g.buildPoints(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	addTask := func(name string) {
		if !seen[name] {
			seen[name] = true
			g.tasks = append(g.tasks, name)
		}
	}

	for i, sd := range def.Graph {
		if err := guards.Check(sd.When); err != nil {
			var verr *errors.ValidationError
			if errors.As(err, &verr) {
				verr.Field = fmt.Sprintf("graph[%d].when", i)
			}
			return nil, err
		}

		s := section{when: sd.When, triggers: make(map[string][]TriggerSpec)}
		sectionTasks := make(map[string]bool)
		for j, line := range sd.Dependencies {
			field := fmt.Sprintf("graph[%d].dependencies[%d]", i, j)
			if err := g.compileLine(line, field, &s, sectionTasks); err != nil {
				return nil, err
			}
		}
		for name := range sectionTasks {
			s.tasks = append(s.tasks, name)
			addTask(name)
		}
		slices.Sort(s.tasks)
		g.sections = append(g.sections, s)
	}
	slices.Sort(g.tasks)

	for _, task := range sortedKeys(def.Outputs) {
		if !seen[task] {
			return nil, &errors.ValidationError{
				Field:   "outputs",
				Message: fmt.Sprintf("task %s is not in the graph", task),
			}
		}
	}
	for i, id := range def.Simulate.Fail {
		tok, err := taskid.ParseRelative(id)
		if err != nil {
			return nil, err
		}
		p, err := g.CanonicalPoint(tok.Cycle)
		if err != nil || !seen[tok.Task] {
			return nil, &errors.ValidationError{
				Field:   fmt.Sprintf("simulate.fail[%d]", i),
				Message: fmt.Sprintf("%s is not a task instance of this suite", id),
			}
		}
		g.fail[taskid.Tokens{Cycle: p.String(), Task: tok.Task}.RelativeID()] = true
	}

	return g, nil
}

// compileLine splits a chain "a => b => c" into its pairs and registers one
// TriggerSpec per downstream task.
func (g *Graph) compileLine(line, field string, s *section, tasks map[string]bool) error {
	stages := strings.Split(line, Arrow)
	for i := range stages {
		stages[i] = strings.TrimSpace(stages[i])
		if stages[i] == "" {
			return &errors.ValidationError{
				Field:      field,
				Message:    fmt.Sprintf("empty stage in %q", line),
				Suggestion: "write graph lines as \"upstream => downstream\"",
			}
		}
	}

	if len(stages) == 1 {
		// A lone expression only declares tasks.
		names, err := g.checkExpression(stages[0], field)
		if err != nil {
			return err
		}
		for _, n := range names {
			tasks[n] = true
		}
		return nil
	}

	for i := 0; i+1 < len(stages); i++ {
		left, right := stages[i], stages[i+1]

		tree, err := trigger.Parse(left)
		if err != nil {
			return triggerValidation(field, err)
		}
		names, err := g.checkExpression(left, field)
		if err != nil {
			return err
		}
		for _, n := range names {
			tasks[n] = true
		}

		targets, err := downstream(right)
		if err != nil {
			return &errors.ValidationError{
				Field:      field,
				Message:    err.Error(),
				Suggestion: "the right side of \"=>\" must be task names joined by \"&\"",
			}
		}
		for _, t := range targets {
			tasks[t] = true
			s.triggers[t] = append(s.triggers[t], TriggerSpec{Text: left, Field: field, tree: tree})
		}
	}
	return nil
}

// checkExpression builds text against the initial point and returns the
// names of operands without an offset, which are instantiated alongside
// the downstream task.
func (g *Graph) checkExpression(text, field string) ([]string, error) {
	var names []string
	resolve := func(token string) (trigger.Ref, error) {
		op, err := parseOperand(token, g.def.Outputs)
		if err != nil {
			return trigger.Ref{}, err
		}
		if op.offset == nil {
			names = append(names, op.name)
		}
		return g.resolveOperand(op, g.initial)
	}
	if _, err := trigger.Compile(text, resolve); err != nil {
		return nil, triggerValidation(field, err)
	}
	return names, nil
}

func (g *Graph) resolveOperand(op operand, point cycling.Point) (trigger.Ref, error) {
	target := point
	if op.offset != nil {
		var err error
		if target, err = point.Add(*op.offset); err != nil {
			return trigger.Ref{}, err
		}
	}
	return trigger.Ref{Point: target.String(), Name: op.name, Output: op.output}, nil
}

func downstream(text string) ([]string, error) {
	if strings.ContainsAny(text, "|()") {
		return nil, fmt.Errorf("invalid downstream %q", text)
	}
	var names []string
	for _, part := range strings.Split(text, trigger.And) {
		name := strings.TrimSpace(part)
		if !taskid.ValidName(name) {
			return nil, fmt.Errorf("invalid task name %q", name)
		}
		names = append(names, name)
	}
	return names, nil
}

func triggerValidation(field string, err error) error {
	return &errors.ValidationError{
		Field:      field,
		Message:    err.Error(),
		Suggestion: "check the task names, offsets and qualifiers in the trigger",
		Cause:      err,
	}
}

func (g *Graph) buildPoints() error {
	p := g.initial
	for p.Compare(g.final) <= 0 {
		if len(g.points) == maxPoints {
			return &errors.ValidationError{
				Field:   "final_cycle_point",
				Message: fmt.Sprintf("more than %d cycle points between %s and %s", maxPoints, g.initial, g.final),
			}
		}
		if _, dup := g.index[p.String()]; dup {
			return &errors.ValidationError{
				Field:      "cycle_step",
				Message:    fmt.Sprintf("cycle step %s is finer than the point format of %s", g.step, g.initial),
				Suggestion: "write the initial cycle point with hours and minutes",
			}
		}
		g.index[p.String()] = len(g.points)
		g.points = append(g.points, p)

		next, err := p.Add(g.step)
		if err != nil {
			return err
		}
		p = next
	}
	return nil
}

// Name returns the suite name.
func (g *Graph) Name() string { return g.def.Name }

// Definition returns the definition the graph was compiled from.
func (g *Graph) Definition() *Definition { return g.def }

// Parser returns the suite's point parser.
func (g *Graph) Parser() cycling.Parser { return g.parse }

// Initial returns the initial cycle point.
func (g *Graph) Initial() cycling.Point { return g.initial }

// Final returns the final cycle point.
func (g *Graph) Final() cycling.Point { return g.final }

// Tasks returns every task name in the graph, sorted.
func (g *Graph) Tasks() []string { return slices.Clone(g.tasks) }

// Points returns the cycle points from initial to final.
func (g *Graph) Points() []cycling.Point { return slices.Clone(g.points) }

// Next returns the point after p, and false past the final point.
func (g *Graph) Next(p cycling.Point) (cycling.Point, bool) {
	i, ok := g.index[p.String()]
	if !ok || i+1 >= len(g.points) {
		return nil, false
	}
	return g.points[i+1], true
}

// CanonicalPoint parses s and returns the matching point of the sequence,
// printed the way the suite writes it.
func (g *Graph) CanonicalPoint(s string) (cycling.Point, error) {
	p, err := g.parse(s)
	if err != nil {
		return nil, err
	}
	i, ok := slices.BinarySearchFunc(g.points, p, func(a, b cycling.Point) int { return a.Compare(b) })
	if !ok {
		return nil, &errors.NotFoundError{Resource: "cycle point", ID: s}
	}
	return g.points[i], nil
}

// CustomOutputs returns the declared custom outputs of task.
func (g *Graph) CustomOutputs(task string) []string {
	return slices.Clone(g.def.Outputs[task])
}

// Fails reports whether the simulated task instance should fail.
func (g *Graph) Fails(point cycling.Point, task string) bool {
	return g.fail[taskid.Tokens{Cycle: point.String(), Task: task}.RelativeID()]
}

func (g *Graph) active(s section, point cycling.Point) (bool, error) {
	i, ok := g.index[point.String()]
	if !ok {
		return false, &errors.NotFoundError{Resource: "cycle point", ID: point.String()}
	}
	return g.guards.Evaluate(s.when, recurrence.Context{
		Point:   point,
		Initial: g.initial,
		Final:   g.final,
		Index:   i,
	})
}

// TasksAt returns the tasks instantiated at point, sorted.
func (g *Graph) TasksAt(point cycling.Point) ([]string, error) {
	set := make(map[string]bool)
	for _, s := range g.sections {
		ok, err := g.active(s, point)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		for _, t := range s.tasks {
			set[t] = true
		}
	}
	return sortedKeys(set), nil
}

// Triggers returns the trigger specs that apply to task at point.
func (g *Graph) Triggers(task string, point cycling.Point) ([]TriggerSpec, error) {
	var specs []TriggerSpec
	for _, s := range g.sections {
		if len(s.triggers[task]) == 0 {
			continue
		}
		ok, err := g.active(s, point)
		if err != nil {
			return nil, err
		}
		if ok {
			specs = append(specs, s.triggers[task]...)
		}
	}
	return specs, nil
}

// Prerequisites builds one prerequisite per trigger of task at point.
// Dependencies on points before the initial point start satisfied.
func (g *Graph) Prerequisites(task string, point cycling.Point) ([]*prereq.Prerequisite, error) {
	specs, err := g.Triggers(task, point)
	if err != nil {
		return nil, err
	}

	out := make([]*prereq.Prerequisite, 0, len(specs))
	for _, spec := range specs {
		p, err := g.build(spec, point)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (g *Graph) build(spec TriggerSpec, point cycling.Point) (*prereq.Prerequisite, error) {
	preInitial := make(map[trigger.Ref]bool)
	resolve := func(token string) (trigger.Ref, error) {
		op, err := parseOperand(token, g.def.Outputs)
		if err != nil {
			return trigger.Ref{}, err
		}
		ref, err := g.resolveOperand(op, point)
		if err != nil {
			return trigger.Ref{}, err
		}
		if op.offset != nil {
			target, err := g.parse(ref.Point)
			if err != nil {
				return trigger.Ref{}, err
			}
			preInitial[ref] = target.Compare(g.initial) < 0
		}
		return ref, nil
	}

	expr, err := trigger.Build(spec.tree, resolve)
	if err != nil {
		return nil, triggerValidation(spec.Field, err)
	}

	p := prereq.New(point, prereq.WithStartPoint(g.initial), prereq.WithPointParser(g.parse))
	for _, ref := range expr.Refs() {
		p.Add(ref.Name, ref.Point, ref.Output, preInitial[ref])
	}
	p.SetCondition(expr)
	return p, nil
}
