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

// Package store persists run state so a simulation can resume.
//
// # Interface Hierarchy
//
//   - PrerequisiteStore: SavePrerequisites, LoadPrerequisites
//   - OutputStore: RecordOutput, HasOutput, ListOutputs
//   - Store: both, plus Clear and io.Closer
//
// Components that only read outputs should accept OutputStore. One store
// holds one run.
package store

import (
	"context"
	"io"

	"github.com/tombee/cyclepoint/internal/config"
	"github.com/tombee/cyclepoint/pkg/prereq"
	"github.com/tombee/cyclepoint/pkg/taskid"
	"github.com/tombee/cyclepoint/pkg/trigger"
)

// TaskKey identifies a task instance.
type TaskKey struct {
	Point string
	Name  string
}

// String returns "<point>/<name>".
func (k TaskKey) String() string {
	return taskid.Tokens{Cycle: k.Point, Task: k.Name}.RelativeID()
}

// PrerequisiteStore persists prerequisite snapshots per task instance.
type PrerequisiteStore interface {
	// SavePrerequisites replaces the stored prerequisites of task. Each
	// element of prereqs is one Prerequisite's Snapshot.
	SavePrerequisites(ctx context.Context, task TaskKey, prereqs [][]prereq.Record) error

	// LoadPrerequisites returns what SavePrerequisites stored, or nil.
	LoadPrerequisites(ctx context.Context, task TaskKey) ([][]prereq.Record, error)
}

// OutputStore records task outputs that have been emitted.
type OutputStore interface {
	// RecordOutput stores ref. Recording the same output twice is a no-op.
	RecordOutput(ctx context.Context, ref trigger.Ref) error

	// HasOutput reports whether ref was recorded.
	HasOutput(ctx context.Context, ref trigger.Ref) (bool, error)

	// ListOutputs returns every recorded output in sorted order.
	ListOutputs(ctx context.Context) ([]trigger.Ref, error)
}

// Store composes the persistence interfaces.
type Store interface {
	PrerequisiteStore
	OutputStore

	// Clear removes all run state.
	Clear(ctx context.Context) error

	io.Closer
}

// Opener builds a Store from configuration. The sqlite and memory
// packages register themselves through Register.
type Opener func(cfg config.StoreConfig) (Store, error)

var openers = map[string]Opener{}

// Register makes a backend available to Open.
func Register(backend string, open Opener) {
	openers[backend] = open
}
