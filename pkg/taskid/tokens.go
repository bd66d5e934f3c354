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

// Package taskid formats and parses relative task identifiers of the form
// "<cycle>/<task>[:<output>]".
package taskid

import (
	"fmt"
	"regexp"
	"strings"
)

var namePattern = regexp.MustCompile(`^[\w\-+%@]+$`)

// Tokens are the parts of a relative task identifier.
type Tokens struct {
	Cycle  string
	Task   string
	Output string
}

// RelativeID returns "<cycle>/<task>".
func (t Tokens) RelativeID() string {
	return t.Cycle + "/" + t.Task
}

// String returns the relative ID with ":<output>" when an output is set.
func (t Tokens) String() string {
	if t.Output == "" {
		return t.RelativeID()
	}
	return t.RelativeID() + ":" + t.Output
}

// ValidName reports whether name may be used as a task name.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// ParseRelative parses "<cycle>/<task>" or "<cycle>/<task>:<output>".
func ParseRelative(id string) (Tokens, error) {
	cycle, rest, ok := strings.Cut(strings.TrimSpace(id), "/")
	if !ok || cycle == "" {
		return Tokens{}, fmt.Errorf("invalid task id %q: expected <cycle>/<task>", id)
	}
	task, output, _ := strings.Cut(rest, ":")
	if !ValidName(task) {
		return Tokens{}, fmt.Errorf("invalid task name %q in %q", task, id)
	}
	if strings.Contains(rest, ":") && !ValidName(output) {
		return Tokens{}, fmt.Errorf("invalid output %q in %q", output, id)
	}
	return Tokens{Cycle: cycle, Task: task, Output: output}, nil
}
