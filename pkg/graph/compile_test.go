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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/cyclepoint/pkg/cycling"
	"github.com/tombee/cyclepoint/pkg/errors"
	"github.com/tombee/cyclepoint/pkg/prereq"
	"github.com/tombee/cyclepoint/pkg/trigger"
)

func loadDemo(t *testing.T) *Graph {
	t.Helper()
	g, err := Load(filepath.Join("testdata", "demo.yaml"))
	require.NoError(t, err)
	return g
}

func compileYAML(t *testing.T, body string) (*Graph, error) {
	t.Helper()
	def, err := ParseDefinition([]byte(body))
	require.NoError(t, err)
	return Compile(def)
}

func suite(lines ...string) string {
	body := "name: t\ninitial_cycle_point: '1'\nfinal_cycle_point: '3'\ngraph:\n  - dependencies:\n"
	for _, l := range lines {
		body += fmt.Sprintf("      - %q\n", l)
	}
	return body
}

func TestCompile_Demo(t *testing.T) {
	g := loadDemo(t)

	assert.Equal(t, "demo", g.Name())
	assert.Equal(t, []string{"archive", "housekeep", "model", "post", "prep", "report"}, g.Tasks())
	assert.Equal(t, []cycling.Point{cycling.IntegerPoint(1), cycling.IntegerPoint(2), cycling.IntegerPoint(3)}, g.Points())
	assert.Equal(t, []string{"checkpoint"}, g.CustomOutputs("model"))

	next, ok := g.Next(cycling.IntegerPoint(1))
	require.True(t, ok)
	assert.Equal(t, cycling.IntegerPoint(2), next)
	_, ok = g.Next(cycling.IntegerPoint(3))
	assert.False(t, ok)

	assert.True(t, g.Fails(cycling.IntegerPoint(2), "archive"))
	assert.False(t, g.Fails(cycling.IntegerPoint(1), "archive"))
}

func TestGraph_TasksAt(t *testing.T) {
	g := loadDemo(t)

	odd, err := g.TasksAt(cycling.IntegerPoint(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"archive", "model", "post", "prep", "report"}, odd)

	even, err := g.TasksAt(cycling.IntegerPoint(2))
	require.NoError(t, err)
	assert.Equal(t, []string{"archive", "housekeep", "model", "post", "prep", "report"}, even)

	_, err = g.TasksAt(cycling.IntegerPoint(7))
	var nf *errors.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestGraph_Prerequisites(t *testing.T) {
	g := loadDemo(t)

	t.Run("one prerequisite per trigger", func(t *testing.T) {
		ps, err := g.Prerequisites("model", cycling.IntegerPoint(2))
		require.NoError(t, err)
		require.Len(t, ps, 2)

		assert.Equal(t, []prereq.Dependency{
			{Ref: trigger.Ref{Point: "2", Name: "prep", Output: "succeeded"}, State: prereq.Unsatisfied},
		}, ps[0].Dependencies())
		assert.Equal(t, []prereq.Dependency{
			{Ref: trigger.Ref{Point: "1", Name: "model", Output: "succeeded"}, State: prereq.Unsatisfied},
		}, ps[1].Dependencies())
		assert.Equal(t, cycling.IntegerPoint(1), ps[0].StartPoint())
	})

	t.Run("pre-initial dependency starts satisfied", func(t *testing.T) {
		ps, err := g.Prerequisites("model", cycling.IntegerPoint(1))
		require.NoError(t, err)
		require.Len(t, ps, 2)
		assert.False(t, ps[0].IsSatisfied())
		assert.True(t, ps[1].IsSatisfied())
		assert.Empty(t, ps[1].ResolvedDependencies())
	})

	t.Run("custom output", func(t *testing.T) {
		ps, err := g.Prerequisites("post", cycling.IntegerPoint(3))
		require.NoError(t, err)
		require.Len(t, ps, 1)
		ps[0].SatisfyMe(trigger.NewRefSet(trigger.Ref{Point: "3", Name: "model", Output: "checkpoint"}))
		assert.True(t, ps[0].IsSatisfied())
	})

	t.Run("conditional trigger", func(t *testing.T) {
		ps, err := g.Prerequisites("report", cycling.IntegerPoint(2))
		require.NoError(t, err)
		require.Len(t, ps, 1)
		p := ps[0]
		require.True(t, p.IsConditional())

		assert.Equal(t, "c2 & (c0 | c1)", p.APIDump().Expression)

		p.SatisfyMe(trigger.NewRefSet(
			trigger.Ref{Point: "2", Name: "post", Output: "succeeded"},
			trigger.Ref{Point: "2", Name: "archive", Output: "failed"},
		))
		assert.True(t, p.IsSatisfied())
	})

	t.Run("inactive section", func(t *testing.T) {
		ps, err := g.Prerequisites("housekeep", cycling.IntegerPoint(3))
		require.NoError(t, err)
		assert.Empty(t, ps)

		ps, err = g.Prerequisites("housekeep", cycling.IntegerPoint(2))
		require.NoError(t, err)
		assert.Len(t, ps, 1)
	})

	t.Run("no triggers", func(t *testing.T) {
		ps, err := g.Prerequisites("prep", cycling.IntegerPoint(1))
		require.NoError(t, err)
		assert.Empty(t, ps)
	})
}

func TestGraph_CanonicalPoint(t *testing.T) {
	g := loadDemo(t)

	p, err := g.CanonicalPoint("02")
	require.NoError(t, err)
	assert.Equal(t, cycling.IntegerPoint(2), p)

	_, err = g.CanonicalPoint("9")
	var nf *errors.NotFoundError
	assert.ErrorAs(t, err, &nf)

	_, err = g.CanonicalPoint("x")
	assert.Error(t, err)
}

func TestCompile_DateTime(t *testing.T) {
	g, err := Load(filepath.Join("testdata", "datetime.yaml"))
	require.NoError(t, err)

	points := g.Points()
	require.Len(t, points, 5)
	assert.Equal(t, "20250101T0600Z", points[1].String())

	first, err := g.TasksAt(points[0])
	require.NoError(t, err)
	assert.Contains(t, first, "daily_summary")

	second, err := g.TasksAt(points[1])
	require.NoError(t, err)
	assert.NotContains(t, second, "daily_summary")

	ps, err := g.Prerequisites("assimilate", points[0])
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.False(t, ps[0].IsSatisfied())
	assert.True(t, ps[1].IsSatisfied(), "previous forecast is before the initial point")
	assert.Equal(t, []string{"20241231T1800Z"}, ps[1].TargetPointStrings())

	ps, err = g.Prerequisites("assimilate", points[1])
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.False(t, ps[1].IsSatisfied())

	targets, err := ps[1].TargetPoints()
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), targets[0].(cycling.DateTimePoint).Time())
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
		wantIs    error
	}{
		{
			name:      "finish trigger",
			body:      suite("foo:finish => bar"),
			wantField: "graph[0].dependencies[0]",
			wantIs:    trigger.ErrTriggerExpression,
		},
		{
			name:      "undeclared custom output",
			body:      suite("foo => bar", "foo:ready => baz"),
			wantField: "graph[0].dependencies[1]",
			wantIs:    trigger.ErrTriggerExpression,
		},
		{
			name:      "unbalanced parentheses",
			body:      suite("(foo & bar => baz"),
			wantField: "graph[0].dependencies[0]",
			wantIs:    trigger.ErrMalformedExpression,
		},
		{
			name:      "dangling operator",
			body:      suite("foo & => bar"),
			wantField: "graph[0].dependencies[0]",
			wantIs:    trigger.ErrTriggerExpression,
		},
		{
			name:      "date-time offset on integer cycling",
			body:      suite("foo[-PT6H] => foo"),
			wantField: "graph[0].dependencies[0]",
			wantIs:    trigger.ErrTriggerExpression,
		},
		{
			name:      "bad operand",
			body:      suite("foo bar => baz"),
			wantField: "graph[0].dependencies[0]",
			wantIs:    trigger.ErrTriggerExpression,
		},
		{
			name:      "alternation downstream",
			body:      suite("foo => bar | baz"),
			wantField: "graph[0].dependencies[0]",
		},
		{
			name:      "empty stage",
			body:      suite("foo => => bar"),
			wantField: "graph[0].dependencies[0]",
		},
		{
			name:      "bad guard",
			body:      "name: t\ninitial_cycle_point: '1'\nfinal_cycle_point: '3'\ngraph:\n  - when: 'point +'\n    dependencies: ['a => b']\n",
			wantField: "graph[0].when",
		},
		{
			name:      "outputs for unknown task",
			body:      "name: t\ninitial_cycle_point: '1'\nfinal_cycle_point: '3'\noutputs: {zed: [done]}\ngraph:\n  - dependencies: ['a => b']\n",
			wantField: "outputs",
		},
		{
			name:      "simulated failure of unknown task",
			body:      "name: t\ninitial_cycle_point: '1'\nfinal_cycle_point: '3'\ngraph:\n  - dependencies: ['a => b']\nsimulate: {fail: ['1/zed']}\n",
			wantField: "simulate.fail[0]",
		},
		{
			name:      "simulated failure out of range",
			body:      "name: t\ninitial_cycle_point: '1'\nfinal_cycle_point: '3'\ngraph:\n  - dependencies: ['a => b']\nsimulate: {fail: ['9/a']}\n",
			wantField: "simulate.fail[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileYAML(t, tt.body)
			var verr *errors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
		})
	}
}

func TestCompile_ChainsAndDeclarations(t *testing.T) {
	g, err := compileYAML(t, suite("a => b & c => d", "lonely"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "lonely"}, g.Tasks())

	specs, err := g.Triggers("d", cycling.IntegerPoint(1))
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "b & c", specs[0].Text)

	ps, err := g.Prerequisites("d", cycling.IntegerPoint(1))
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, 2, ps[0].Len())
	assert.False(t, ps[0].IsConditional())

	for _, task := range []string{"b", "c"} {
		ps, err := g.Prerequisites(task, cycling.IntegerPoint(1))
		require.NoError(t, err)
		require.Len(t, ps, 1)
		assert.Equal(t, "a", ps[0].Dependencies()[0].Ref.Name)
	}
}

func TestParseOperand(t *testing.T) {
	custom := map[string][]string{"model": {"checkpoint"}}
	tests := []struct {
		word       string
		wantName   string
		wantOutput string
		wantOffset string
		wantErr    bool
	}{
		{word: "foo", wantName: "foo", wantOutput: "succeeded"},
		{word: "foo:fail", wantName: "foo", wantOutput: "failed"},
		{word: "foo:submit-fail", wantName: "foo", wantOutput: "submit-failed"},
		{word: "foo:started", wantName: "foo", wantOutput: "started"},
		{word: "foo[-P1]:submit", wantName: "foo", wantOutput: "submitted", wantOffset: "-P1"},
		{word: "model:checkpoint", wantName: "model", wantOutput: "checkpoint"},
		{word: "foo:checkpoint", wantErr: true},
		{word: "foo:finish", wantErr: true},
		{word: "foo[P1Y]", wantErr: true},
		{word: "foo bar", wantErr: true},
		{word: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			op, err := parseOperand(tt.word, custom)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, op.name)
			assert.Equal(t, tt.wantOutput, op.output)
			if tt.wantOffset == "" {
				assert.Nil(t, op.offset)
			} else {
				require.NotNil(t, op.offset)
				assert.Equal(t, cycling.MustParseOffset(tt.wantOffset), *op.offset)
			}
		})
	}
}
