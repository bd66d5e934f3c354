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

package taskid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens(t *testing.T) {
	tok := Tokens{Cycle: "1", Task: "foo"}
	assert.Equal(t, "1/foo", tok.RelativeID())
	assert.Equal(t, "1/foo", tok.String())

	tok.Output = "failed"
	assert.Equal(t, "1/foo", tok.RelativeID())
	assert.Equal(t, "1/foo:failed", tok.String())
}

func TestParseRelative(t *testing.T) {
	tests := []struct {
		in   string
		want Tokens
	}{
		{in: "1/foo", want: Tokens{Cycle: "1", Task: "foo"}},
		{in: "20250101T0000Z/get_data:succeeded", want: Tokens{Cycle: "20250101T0000Z", Task: "get_data", Output: "succeeded"}},
		{in: " 2/model-run ", want: Tokens{Cycle: "2", Task: "model-run"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRelative(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"foo", "/foo", "1/", "1/foo bar", "1/foo:", "1/a/b"} {
		_, err := ParseRelative(bad)
		assert.Error(t, err, bad)
	}
}
