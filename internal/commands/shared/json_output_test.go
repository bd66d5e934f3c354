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

package shared

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cperrors "github.com/tombee/cyclepoint/pkg/errors"
	"github.com/tombee/cyclepoint/pkg/trigger"
)

func TestEmitJSONError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EmitJSONError(&buf, "validate", []JSONError{{Code: ErrorCodeInvalidSuite, Message: "bad"}}))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "1.0", got["@version"])
	assert.Equal(t, "validate", got["command"])
	assert.Equal(t, false, got["success"])
	assert.Len(t, got["errors"], 1)
}

func TestErrorCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "malformed trigger inside validation error",
			err:  &cperrors.ValidationError{Field: "graph[0]", Message: "bad", Cause: &trigger.MalformedExpressionError{Expression: "(a"}},
			want: ErrorCodeMalformedTrigger,
		},
		{
			name: "trigger error",
			err:  fmt.Errorf("x: %w", &trigger.TriggerExpressionError{Expression: "a & & b", Token: "&"}),
			want: ErrorCodeInvalidTrigger,
		},
		{name: "stall", err: &cperrors.StallError{}, want: ErrorCodeStalled},
		{name: "missing field", err: &cperrors.ValidationError{Field: "name", Message: "suite name is required"}, want: ErrorCodeMissingField},
		{name: "not found", err: &cperrors.NotFoundError{Resource: "task", ID: "x"}, want: ErrorCodeNotFound},
		{name: "config", err: &cperrors.ConfigError{Key: "k", Reason: "r"}, want: ErrorCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCodeFor(tt.err))
		})
	}
}

func TestJSONErrorFor(t *testing.T) {
	je := JSONErrorFor(&cperrors.ValidationError{Field: "graph", Message: "empty", Suggestion: "add one"})
	assert.Equal(t, "graph", je.Field)
	assert.Equal(t, "add one", je.Suggestion)
	assert.Equal(t, ErrorCodeInvalidSuite, je.Code)
}

func TestJSONErrorForConfig(t *testing.T) {
	je := JSONErrorFor(&cperrors.ConfigError{Key: "store.backend", Reason: "unknown backend"})
	assert.Equal(t, "store.backend", je.Field)
	assert.Contains(t, je.Suggestion, `"store.backend"`)
}
