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

package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/cyclepoint/pkg/prereq"
)

func TestExecutor_Execute(t *testing.T) {
	dumps := []*prereq.Dump{
		{
			Expression: "c0 & c1",
			Satisfied:  false,
			Conditions: []prereq.Condition{
				{TaskProxyID: "1/a", Alias: "c0", RequiredState: "succeeded", Satisfied: true, Message: "satisfied naturally"},
				{TaskProxyID: "1/b", Alias: "c1", RequiredState: "failed", Satisfied: false, Message: "unsatisfied"},
			},
			CyclePoints: []string{"1"},
		},
	}

	tests := []struct {
		name       string
		expression string
		want       any
		wantErr    bool
	}{
		{
			name:       "field extraction",
			expression: ".[0].expression",
			want:       "c0 & c1",
		},
		{
			name:       "unsatisfied conditions",
			expression: "[.[].conditions[] | select(.satisfied | not) | .taskProxyId]",
			want:       []any{"1/b"},
		},
		{
			name:       "multiple results become a slice",
			expression: ".[0].conditions[].alias",
			want:       []any{"c0", "c1"},
		},
		{
			name:       "no results",
			expression: "empty",
			want:       nil,
		},
		{
			name:       "invalid expression",
			expression: ".[",
			wantErr:    true,
		},
		{
			name:       "runtime error",
			expression: ".[0].expression + 1",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExecutor(DefaultTimeout, DefaultMaxInputSize)
			got, err := e.Execute(context.Background(), tt.expression, dumps)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExecutor_EmptyExpression(t *testing.T) {
	data := map[string]any{"foo": "bar"}
	got, err := NewExecutor(0, 0).Execute(context.Background(), "", data)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestExecutor_Validate(t *testing.T) {
	e := NewExecutor(0, 0)
	assert.NoError(t, e.Validate(""))
	assert.NoError(t, e.Validate(".[] | .satisfied"))
	assert.Error(t, e.Validate(".["))
}

func TestExecutor_Timeout(t *testing.T) {
	e := NewExecutor(100*time.Millisecond, DefaultMaxInputSize)
	_, err := e.Execute(context.Background(), "last(range(infinite))", 0)
	require.Error(t, err)
}

func TestExecutor_InputTooLarge(t *testing.T) {
	e := NewExecutor(0, 8)
	_, err := e.Execute(context.Background(), ".", map[string]string{"key": "a long value"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum")
}
