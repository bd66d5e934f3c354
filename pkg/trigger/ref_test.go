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

package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRef_Compare(t *testing.T) {
	refs := []Ref{
		{Point: "2", Name: "a", Output: "succeeded"},
		{Point: "1", Name: "b", Output: "succeeded"},
		{Point: "1", Name: "a", Output: "succeeded"},
		{Point: "1", Name: "a", Output: "failed"},
	}
	SortRefs(refs)

	assert.Equal(t, []Ref{
		{Point: "1", Name: "a", Output: "failed"},
		{Point: "1", Name: "a", Output: "succeeded"},
		{Point: "1", Name: "b", Output: "succeeded"},
		{Point: "2", Name: "a", Output: "succeeded"},
	}, refs)
}

func TestParseRef(t *testing.T) {
	r, err := ParseRef("20250101T0000Z/foo succeeded")
	require.NoError(t, err)
	assert.Equal(t, Ref{Point: "20250101T0000Z", Name: "foo", Output: "succeeded"}, r)
	assert.Equal(t, "20250101T0000Z/foo succeeded", r.String())
	assert.Equal(t, "20250101T0000Z/foo", r.TaskID())

	for _, bad := range []string{"", "1/foo", "foo succeeded", "/foo succeeded", "1/ succeeded", "1/foo a b"} {
		_, err := ParseRef(bad)
		assert.Error(t, err, bad)
	}
}

func TestRefSet(t *testing.T) {
	s := NewRefSet(Ref{Point: "2", Name: "a", Output: "x"}, Ref{Point: "1", Name: "a", Output: "x"})
	s.Add(Ref{Point: "1", Name: "a", Output: "x"})

	assert.Len(t, s, 2)
	assert.True(t, s.Has(Ref{Point: "2", Name: "a", Output: "x"}))
	assert.False(t, s.Has(Ref{Point: "3", Name: "a", Output: "x"}))
	assert.Equal(t, "1", s.Sorted()[0].Point)
}
