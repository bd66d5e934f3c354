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

// Package pool simulates a run of a suite: it spawns task instances cycle
// point by cycle point, runs every instance whose prerequisites are
// satisfied, and broadcasts the outputs they emit to the instances still
// waiting.
//
// # Iterations
//
// Each iteration:
//
//  1. Spawns points up to the runahead limit past the oldest waiting point.
//  2. Collects the waiting instances whose prerequisites are all satisfied.
//  3. Runs them, emitting submitted, started, custom outputs, then
//     succeeded or failed.
//  4. Broadcasts the emitted outputs with SatisfyMe.
//
// A run stalls when nothing is ready and instances are still waiting.
//
// # Persistence
//
// Outputs and prerequisite snapshots are written to a store.Store. A pool
// opened on a store holding an earlier run resumes it: finished instances
// are not run again and dependencies whose outputs are already recorded
// start satisfied from the database.
package pool
