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
	"github.com/tombee/cyclepoint/internal/store"
	"github.com/tombee/cyclepoint/pkg/cycling"
	"github.com/tombee/cyclepoint/pkg/prereq"
	"github.com/tombee/cyclepoint/pkg/taskid"
)

// Status is the state of a task instance.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Finished reports whether s is terminal.
func (s Status) Finished() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// task is the pool's proxy for one task instance.
type task struct {
	point   cycling.Point
	index   int
	name    string
	prereqs []*prereq.Prerequisite
	status  Status
}

func (t *task) id() string {
	return taskid.Tokens{Cycle: t.point.String(), Task: t.name}.RelativeID()
}

func (t *task) key() store.TaskKey {
	return store.TaskKey{Point: t.point.String(), Name: t.name}
}

func (t *task) ready() bool {
	for _, p := range t.prereqs {
		if !p.IsSatisfied() {
			return false
		}
	}
	return true
}

func (t *task) snapshot() [][]prereq.Record {
	out := make([][]prereq.Record, len(t.prereqs))
	for i, p := range t.prereqs {
		out[i] = p.Snapshot()
	}
	return out
}

// Completion records one task instance finishing.
type Completion struct {
	ID        string `json:"id"`
	Status    Status `json:"status"`
	Iteration int    `json:"iteration"`
}

// Result summarises a run.
type Result struct {
	RunID      string       `json:"run_id"`
	Iterations int          `json:"iterations"`
	Completed  []Completion `json:"completed"`

	// Restored counts instances found finished in the store at start.
	Restored int `json:"restored"`
}
