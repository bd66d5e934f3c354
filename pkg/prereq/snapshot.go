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

package prereq

import "github.com/tombee/cyclepoint/pkg/trigger"

// Record is the persisted form of one dependency. State holds the
// DependencyState label.
type Record struct {
	Point  string `json:"point"`
	Name   string `json:"name"`
	Output string `json:"output"`
	State  string `json:"state"`
}

// Ref returns the dependency the record describes.
func (r Record) Ref() trigger.Ref {
	return trigger.Ref{Point: r.Point, Name: r.Name, Output: r.Output}
}

// Satisfied reports whether the recorded state is truthy.
func (r Record) Satisfied() bool {
	s, err := ParseDependencyState(r.State)
	return err == nil && s.Satisfied()
}

// Snapshot returns every dependency as a Record in insertion order.
func (p *Prerequisite) Snapshot() []Record {
	deps := p.Dependencies()
	out := make([]Record, 0, len(deps))
	for _, d := range deps {
		out = append(out, Record{
			Point:  d.Ref.Point,
			Name:   d.Ref.Name,
			Output: d.Ref.Output,
			State:  d.State.String(),
		})
	}
	return out
}

// Restore applies recorded states to matching dependencies and returns how
// many were applied. Records for unknown dependencies are skipped since
// the graph may have changed since they were written. An unknown state
// label fails the whole restore without changing anything.
func (p *Prerequisite) Restore(records []Record) (int, error) {
	states := make([]DependencyState, len(records))
	for i, r := range records {
		s, err := ParseDependencyState(r.State)
		if err != nil {
			return 0, err
		}
		states[i] = s
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for i, r := range records {
		ref := r.Ref()
		if _, ok := p.deps[ref]; !ok {
			continue
		}
		p.deps[ref] = states[i]
		n++
	}
	if n > 0 {
		p.cached = cacheUnknown
	}
	return n, nil
}
