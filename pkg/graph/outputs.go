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
	"regexp"
	"slices"

	"github.com/tombee/cyclepoint/pkg/cycling"
)

// Standard task outputs, in the order a task emits them.
const (
	OutputSubmitted    = "submitted"
	OutputSubmitFailed = "submit-failed"
	OutputStarted      = "started"
	OutputSucceeded    = "succeeded"
	OutputFailed       = "failed"
)

// qualifiers maps graph qualifiers to the output they refer to.
var qualifiers = map[string]string{
	"submit":        OutputSubmitted,
	"submitted":     OutputSubmitted,
	"submit-fail":   OutputSubmitFailed,
	"submit-failed": OutputSubmitFailed,
	"start":         OutputStarted,
	"started":       OutputStarted,
	"succeed":       OutputSucceeded,
	"succeeded":     OutputSucceeded,
	"fail":          OutputFailed,
	"failed":        OutputFailed,
}

func builtinOutput(name string) bool {
	_, ok := qualifiers[name]
	return ok || name == "finish" || name == "finished"
}

// operandPattern matches "name", "name[offset]", "name:qualifier" and
// "name[offset]:qualifier".
var operandPattern = regexp.MustCompile(`^([\w\-+%@]+)(?:\[([^\]]*)\])?(?::([\w\-+%@]+))?$`)

// operand is one parsed graph node on the left of "=>".
type operand struct {
	name   string
	offset *cycling.Offset
	output string
}

// parseOperand parses a graph node. custom lists the declared custom
// outputs of each task.
func parseOperand(word string, custom map[string][]string) (operand, error) {
	m := operandPattern.FindStringSubmatch(word)
	if m == nil {
		return operand{}, fmt.Errorf("invalid task reference %q", word)
	}

	op := operand{name: m[1], output: OutputSucceeded}
	if m[2] != "" {
		off, err := cycling.ParseOffset(m[2])
		if err != nil {
			return operand{}, err
		}
		op.offset = &off
	}

	switch q := m[3]; {
	case q == "":
	case q == "finish" || q == "finished":
		return operand{}, fmt.Errorf("%q: finish triggers are not supported, use %s:succeed | %s:fail", word, op.name, op.name)
	case qualifiers[q] != "":
		op.output = qualifiers[q]
	case slices.Contains(custom[op.name], q):
		op.output = q
	default:
		return operand{}, fmt.Errorf("%q: task %s has no output %q", word, op.name, q)
	}
	return op, nil
}
