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

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/tombee/cyclepoint/pkg/taskid"
	"github.com/tombee/cyclepoint/pkg/trigger"
)

// Condition describes one dependency for display.
type Condition struct {
	TaskProxyID   string `json:"taskProxyId"`
	Alias         string `json:"alias"`
	RequiredState string `json:"requiredState"`
	Satisfied     bool   `json:"satisfied"`
	Message       string `json:"message"`
}

// Dump is the serialized prerequisite consumed by the reporting layer.
// Expression refers to conditions by alias, e.g. "c0 & (c1 | c2)".
type Dump struct {
	Expression  string      `json:"expression"`
	Conditions  []Condition `json:"conditions"`
	Satisfied   bool        `json:"satisfied"`
	CyclePoints []string    `json:"cyclePoints"`
}

// APIDump returns the serialized form, or nil when there are no
// dependencies.
//
// Conditions are listed in sorted ref order and aliased c0, c1, ... with
// ceil(n/10) digits. Without an expression the dependencies are rendered
// joined by "&" in insertion order.
func (p *Prerequisite) APIDump() *Dump {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.order) == 0 {
		return nil
	}

	sorted := slices.Clone(p.order)
	trigger.SortRefs(sorted)

	width := len(strconv.Itoa(len(sorted) - 1))
	aliases := make(map[trigger.Ref]string, len(sorted))
	conds := make([]Condition, 0, len(sorted))
	for i, ref := range sorted {
		alias := fmt.Sprintf("c%0*d", width, i)
		aliases[ref] = alias
		state := p.deps[ref]
		conds = append(conds, Condition{
			TaskProxyID:   taskid.Tokens{Cycle: ref.Point, Task: ref.Name}.RelativeID(),
			Alias:         alias,
			RequiredState: ref.Output,
			Satisfied:     state.Satisfied(),
			Message:       state.String(),
		})
	}

	aliasOf := func(r trigger.Ref) string {
		if a, ok := aliases[r]; ok {
			return a
		}
		return r.String()
	}

	var expr string
	if p.expr != nil {
		expr = p.expr.Format(aliasOf)
	} else {
		parts := make([]string, 0, len(p.order))
		for _, ref := range p.order {
			parts = append(parts, aliasOf(ref))
		}
		expr = strings.Join(parts, " "+trigger.And+" ")
	}

	return &Dump{
		Expression:  expr,
		Conditions:  conds,
		Satisfied:   p.satisfiedLocked(),
		CyclePoints: slices.Clone(p.targetPoints),
	}
}
