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

import "fmt"

// DependencyState records whether, and how, one dependency is satisfied.
type DependencyState int

const (
	// Unsatisfied is the only falsy state.
	Unsatisfied DependencyState = iota

	// SatisfiedNaturally means the output was observed through SatisfyMe.
	SatisfiedNaturally

	// SatisfiedOverridden means the dependency was forced by SetSatisfied,
	// or registered as pre-initial, without the output being observed.
	SatisfiedOverridden

	// SatisfiedFromDatabase means the output was already recorded in the
	// run database when the task was spawned.
	SatisfiedFromDatabase
)

var stateLabels = map[DependencyState]string{
	Unsatisfied:           "unsatisfied",
	SatisfiedNaturally:    "satisfied naturally",
	SatisfiedOverridden:   "force satisfied",
	SatisfiedFromDatabase: "satisfied from database",
}

// String returns the human label shown to users.
func (s DependencyState) String() string {
	if label, ok := stateLabels[s]; ok {
		return label
	}
	return fmt.Sprintf("DependencyState(%d)", int(s))
}

// Satisfied reports whether s is truthy.
func (s DependencyState) Satisfied() bool {
	return s != Unsatisfied
}

// ParseDependencyState is the inverse of DependencyState.String.
func ParseDependencyState(label string) (DependencyState, error) {
	for s, l := range stateLabels {
		if l == label {
			return s, nil
		}
	}
	return Unsatisfied, fmt.Errorf("unknown dependency state %q", label)
}
