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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/cyclepoint/pkg/errors"
)

func TestParseDefinition_Defaults(t *testing.T) {
	def, err := ParseDefinition([]byte(`
name: minimal
initial_cycle_point: "1"
final_cycle_point: "2"
graph:
  - dependencies: ["a => b"]
`))
	require.NoError(t, err)
	assert.Equal(t, "integer", def.Cycling)
	assert.Equal(t, "P1", def.CycleStep)

	def, err = ParseDefinition([]byte(`
name: dt
cycling: datetime
initial_cycle_point: "20250101"
final_cycle_point: "20250103"
graph:
  - dependencies: ["a => b"]
`))
	require.NoError(t, err)
	assert.Equal(t, "P1D", def.CycleStep)
}

func TestParseDefinition_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		wantField string
	}{
		{
			name:      "missing name",
			yaml:      "initial_cycle_point: '1'\nfinal_cycle_point: '2'\ngraph: [{dependencies: ['a => b']}]",
			wantField: "name",
		},
		{
			name:      "unknown cycling",
			yaml:      "name: x\ncycling: lunar\ninitial_cycle_point: '1'\nfinal_cycle_point: '2'\ngraph: [{dependencies: ['a => b']}]",
			wantField: "cycling",
		},
		{
			name:      "bad initial point",
			yaml:      "name: x\ninitial_cycle_point: one\nfinal_cycle_point: '2'\ngraph: [{dependencies: ['a => b']}]",
			wantField: "initial_cycle_point",
		},
		{
			name:      "final before initial",
			yaml:      "name: x\ninitial_cycle_point: '5'\nfinal_cycle_point: '2'\ngraph: [{dependencies: ['a => b']}]",
			wantField: "final_cycle_point",
		},
		{
			name:      "non-advancing step",
			yaml:      "name: x\ncycle_step: '-P1'\ninitial_cycle_point: '1'\nfinal_cycle_point: '2'\ngraph: [{dependencies: ['a => b']}]",
			wantField: "cycle_step",
		},
		{
			name:      "date-time step on integer cycling",
			yaml:      "name: x\ncycle_step: PT6H\ninitial_cycle_point: '1'\nfinal_cycle_point: '2'\ngraph: [{dependencies: ['a => b']}]",
			wantField: "cycle_step",
		},
		{
			name:      "no graph",
			yaml:      "name: x\ninitial_cycle_point: '1'\nfinal_cycle_point: '2'",
			wantField: "graph",
		},
		{
			name:      "empty section",
			yaml:      "name: x\ninitial_cycle_point: '1'\nfinal_cycle_point: '2'\ngraph: [{when: 'true'}]",
			wantField: "graph[0].dependencies",
		},
		{
			name:      "custom output shadows standard output",
			yaml:      "name: x\ninitial_cycle_point: '1'\nfinal_cycle_point: '2'\noutputs: {a: [failed]}\ngraph: [{dependencies: ['a => b']}]",
			wantField: "outputs.a",
		},
		{
			name:      "bad simulate id",
			yaml:      "name: x\ninitial_cycle_point: '1'\nfinal_cycle_point: '2'\ngraph: [{dependencies: ['a => b']}]\nsimulate: {fail: [a]}",
			wantField: "simulate.fail[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDefinition([]byte(tt.yaml))
			var verr *errors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestParseDefinition_BadYAML(t *testing.T) {
	_, err := ParseDefinition([]byte("name: [unterminated"))
	assert.ErrorContains(t, err, "failed to parse suite definition")
}

func TestLoadFile(t *testing.T) {
	def, err := LoadFile(filepath.Join("testdata", "demo.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "demo", def.Name)
	assert.Len(t, def.Graph, 2)
	assert.Equal(t, []string{"checkpoint"}, def.Outputs["model"])
	assert.Equal(t, []string{"2/archive"}, def.Simulate.Fail)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "reading suite")
}
