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

package cycling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOffset(t *testing.T) {
	tests := []struct {
		in   string
		want Offset
		str  string
	}{
		{in: "P1", want: Offset{Steps: 1}, str: "P1"},
		{in: "-P2", want: Offset{Negative: true, Steps: 2}, str: "-P2"},
		{in: "-1", want: Offset{Negative: true, Steps: 1}, str: "-P1"},
		{in: "+3", want: Offset{Steps: 3}, str: "P3"},
		{in: "-P1D", want: Offset{Negative: true, Days: 1}, str: "-P1D"},
		{in: "PT6H", want: Offset{Hours: 6}, str: "PT6H"},
		{in: "P1W", want: Offset{Weeks: 1}, str: "P1W"},
		{in: "P1DT12H30M", want: Offset{Days: 1, Hours: 12, Minutes: 30}, str: "P1DT12H30M"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOffset(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.str, got.String())
		})
	}

	for _, bad := range []string{"", "P", "PT", "P1Y", "P1M", "PT1D", "P1H", "x", "+-1", "P1DTT1H"} {
		_, err := ParseOffset(bad)
		assert.Error(t, err, bad)
	}
}

func TestIntegerPoint(t *testing.T) {
	p, err := ParseIntegerPoint(" 3 ")
	require.NoError(t, err)
	assert.Equal(t, "3", p.String())

	prev, err := p.Add(MustParseOffset("-P1"))
	require.NoError(t, err)
	assert.Equal(t, IntegerPoint(2), prev)
	assert.Equal(t, -1, prev.Compare(p))
	assert.Equal(t, 1, p.Compare(prev))
	assert.Equal(t, 0, p.Compare(IntegerPoint(3)))

	_, err = p.Add(MustParseOffset("PT1H"))
	assert.Error(t, err)

	_, err = ParseIntegerPoint("20250101T00Z")
	assert.Error(t, err)
}

func TestDateTimePoint(t *testing.T) {
	p, err := ParseDateTimePoint("20250101T0000Z")
	require.NoError(t, err)
	assert.Equal(t, "20250101T0000Z", p.String())

	next, err := p.Add(MustParseOffset("PT6H"))
	require.NoError(t, err)
	assert.Equal(t, "20250101T0600Z", next.String())
	assert.Equal(t, -1, p.Compare(next))

	prev, err := p.Add(MustParseOffset("-P1D"))
	require.NoError(t, err)
	assert.Equal(t, "20241231T0000Z", prev.String())

	ext, err := ParseDateTimePoint("2025-01-01T06:00Z")
	require.NoError(t, err)
	assert.Equal(t, 0, ext.Compare(next))
	assert.Equal(t, "2025-01-01T06:00Z", ext.String())

	_, err = p.Add(MustParseOffset("P1"))
	assert.Error(t, err)

	dt := NewDateTimePoint(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, "20250301T1200Z", dt.String())
}

func TestParsePoint(t *testing.T) {
	p, err := ParsePoint("7")
	require.NoError(t, err)
	assert.IsType(t, IntegerPoint(0), p)

	p, err = ParsePoint("20250101T00Z")
	require.NoError(t, err)
	assert.IsType(t, DateTimePoint{}, p)

	_, err = ParsePoint("tomorrow")
	assert.Error(t, err)
}

func TestParserFor(t *testing.T) {
	parse, err := ParserFor("integer")
	require.NoError(t, err)
	_, err = parse("20250101")
	require.NoError(t, err, "an 8 digit integer is still an integer point")

	parse, err = ParserFor("datetime")
	require.NoError(t, err)
	p, err := parse("20250101")
	require.NoError(t, err)
	assert.IsType(t, DateTimePoint{}, p)

	_, err = ParserFor("gregorian")
	assert.Error(t, err)
}
