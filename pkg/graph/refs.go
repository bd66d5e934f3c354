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

	"github.com/tombee/cyclepoint/pkg/cycling"
	"github.com/tombee/cyclepoint/pkg/errors"
	"github.com/tombee/cyclepoint/pkg/taskid"
	"github.com/tombee/cyclepoint/pkg/trigger"
)

// Instance parses "<point>/<task>" and returns the canonical point of the
// sequence. The task must be instantiated at that point.
func (g *Graph) Instance(id string) (cycling.Point, string, error) {
	tok, err := taskid.ParseRelative(id)
	if err != nil {
		return nil, "", &errors.ValidationError{Field: "task", Message: err.Error(), Cause: err}
	}
	point, err := g.CanonicalPoint(tok.Cycle)
	if err != nil {
		return nil, "", err
	}
	names, err := g.TasksAt(point)
	if err != nil {
		return nil, "", err
	}
	for _, n := range names {
		if n == tok.Task {
			return point, tok.Task, nil
		}
	}
	return nil, "", &errors.NotFoundError{Resource: "task", ID: taskid.Tokens{Cycle: point.String(), Task: tok.Task}.RelativeID()}
}

// OutputRef parses "<point>/<task>[:<qualifier>]" into the output it names,
// using the same qualifiers as graph lines. The point may lie outside the
// sequence, e.g. before the initial point.
func (g *Graph) OutputRef(id string) (trigger.Ref, error) {
	tok, err := taskid.ParseRelative(id)
	if err != nil {
		return trigger.Ref{}, err
	}
	word := tok.Task
	if tok.Output != "" {
		word += ":" + tok.Output
	}
	op, err := parseOperand(word, g.def.Outputs)
	if err != nil {
		return trigger.Ref{}, err
	}

	point, err := g.CanonicalPoint(tok.Cycle)
	if err != nil {
		p, perr := g.parse(tok.Cycle)
		if perr != nil {
			return trigger.Ref{}, fmt.Errorf("invalid cycle point in %q: %w", id, perr)
		}
		point = p
	}
	return trigger.Ref{Point: point.String(), Name: op.name, Output: op.output}, nil
}
