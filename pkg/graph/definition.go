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

// Package graph loads suite definitions and turns their dependency graph
// into per-task prerequisites.
package graph

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/tombee/cyclepoint/pkg/cycling"
	"github.com/tombee/cyclepoint/pkg/errors"
	"github.com/tombee/cyclepoint/pkg/taskid"
)

// Definition is a suite file as written by users.
type Definition struct {
	// Name identifies the suite
	Name string `yaml:"name" json:"name"`

	// Description is optional free text
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Cycling is "integer" or "datetime" (default integer)
	Cycling string `yaml:"cycling,omitempty" json:"cycling,omitempty"`

	// InitialCyclePoint is the first point of the run
	InitialCyclePoint string `yaml:"initial_cycle_point" json:"initial_cycle_point"`

	// FinalCyclePoint is the last point of the run
	FinalCyclePoint string `yaml:"final_cycle_point" json:"final_cycle_point"`

	// CycleStep is the offset between consecutive points (default P1 for
	// integer cycling, P1D for date-time)
	CycleStep string `yaml:"cycle_step,omitempty" json:"cycle_step,omitempty"`

	// Outputs declares custom outputs per task, referenced in the graph as
	// "task:output"
	Outputs map[string][]string `yaml:"outputs,omitempty" json:"outputs,omitempty"`

	// Graph holds the dependency sections
	Graph []SectionDefinition `yaml:"graph" json:"graph"`

	// Simulate configures the simulated run
	Simulate SimulateDefinition `yaml:"simulate,omitempty" json:"simulate,omitempty"`
}

// SectionDefinition is one block of graph lines sharing a guard.
type SectionDefinition struct {
	// When is an optional guard; the section applies only at points where
	// it holds
	When string `yaml:"when,omitempty" json:"when,omitempty"`

	// Dependencies are graph lines such as "foo & bar:fail => baz"
	Dependencies []string `yaml:"dependencies" json:"dependencies"`
}

// SimulateDefinition controls simulated task outcomes.
type SimulateDefinition struct {
	// Fail lists "<point>/<task>" IDs that fail instead of succeeding
	Fail []string `yaml:"fail,omitempty" json:"fail,omitempty"`
}

// ParseDefinition parses, defaults and validates a suite definition.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse suite definition: %w", err)
	}

	def.ApplyDefaults()

	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid suite definition: %w", err)
	}

	return &def, nil
}

// LoadFile reads and parses the suite definition at path.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading suite %s", path)
	}
	def, err := ParseDefinition(data)
	if err != nil {
		return nil, errors.Wrapf(err, "loading suite %s", path)
	}
	return def, nil
}

// ApplyDefaults fills in optional fields.
func (d *Definition) ApplyDefaults() {
	if d.Cycling == "" {
		d.Cycling = cycling.ModeInteger
	}
	if d.CycleStep == "" {
		if d.Cycling == cycling.ModeDateTime {
			d.CycleStep = "P1D"
		} else {
			d.CycleStep = "P1"
		}
	}
}

// Validate checks the definition's structure. Graph lines themselves are
// checked by Compile.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return &errors.ValidationError{
			Field:      "name",
			Message:    "suite name is required",
			Suggestion: "add a name for the suite",
		}
	}

	parse, err := cycling.ParserFor(d.Cycling)
	if err != nil {
		return &errors.ValidationError{
			Field:      "cycling",
			Message:    err.Error(),
			Suggestion: fmt.Sprintf("use %q or %q", cycling.ModeInteger, cycling.ModeDateTime),
		}
	}

	initial, err := parse(d.InitialCyclePoint)
	if err != nil {
		return &errors.ValidationError{
			Field:      "initial_cycle_point",
			Message:    err.Error(),
			Suggestion: "set initial_cycle_point to a point of the suite's cycling mode",
			Cause:      err,
		}
	}
	final, err := parse(d.FinalCyclePoint)
	if err != nil {
		return &errors.ValidationError{
			Field:      "final_cycle_point",
			Message:    err.Error(),
			Suggestion: "set final_cycle_point to a point of the suite's cycling mode",
			Cause:      err,
		}
	}
	if final.Compare(initial) < 0 {
		return &errors.ValidationError{
			Field:   "final_cycle_point",
			Message: fmt.Sprintf("final point %s precedes initial point %s", final, initial),
		}
	}

	step, err := cycling.ParseOffset(d.CycleStep)
	if err != nil {
		return &errors.ValidationError{Field: "cycle_step", Message: err.Error(), Cause: err}
	}
	next, err := initial.Add(step)
	if err != nil {
		return &errors.ValidationError{Field: "cycle_step", Message: err.Error(), Cause: err}
	}
	if next.Compare(initial) <= 0 {
		return &errors.ValidationError{
			Field:      "cycle_step",
			Message:    fmt.Sprintf("cycle step %s does not advance", d.CycleStep),
			Suggestion: "use a positive offset",
		}
	}

	if len(d.Graph) == 0 {
		return &errors.ValidationError{
			Field:      "graph",
			Message:    "suite must have at least one graph section",
			Suggestion: "add a graph section with dependency lines",
		}
	}
	for i, s := range d.Graph {
		if len(s.Dependencies) == 0 {
			return &errors.ValidationError{
				Field:   fmt.Sprintf("graph[%d].dependencies", i),
				Message: "section has no dependency lines",
			}
		}
	}

	for _, task := range sortedKeys(d.Outputs) {
		if !taskid.ValidName(task) {
			return &errors.ValidationError{
				Field:   "outputs",
				Message: fmt.Sprintf("invalid task name %q", task),
			}
		}
		for _, out := range d.Outputs[task] {
			if builtinOutput(out) || !taskid.ValidName(out) {
				return &errors.ValidationError{
					Field:      fmt.Sprintf("outputs.%s", task),
					Message:    fmt.Sprintf("invalid custom output %q", out),
					Suggestion: "custom outputs must be valid names distinct from the standard outputs",
				}
			}
		}
	}

	for i, id := range d.Simulate.Fail {
		if _, err := taskid.ParseRelative(id); err != nil {
			return &errors.ValidationError{
				Field:   fmt.Sprintf("simulate.fail[%d]", i),
				Message: err.Error(),
				Cause:   err,
			}
		}
	}

	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
