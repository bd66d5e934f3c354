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
	"fmt"
	"strconv"
	"strings"
)

// Offset is a signed shift between points. Integer cycling uses Steps
// ("P1", "-P1" or bare "-1"); date-time cycling uses the ISO 8601 units
// ("-P1D", "PT6H", "P1W", "P1DT12H"). Years and months are not supported.
type Offset struct {
	Negative bool
	Steps    int
	Weeks    int
	Days     int
	Hours    int
	Minutes  int
	Seconds  int
}

// ParseOffset parses a signed offset.
func ParseOffset(s string) (Offset, error) {
	var o Offset
	rest := strings.TrimSpace(s)
	if rest == "" {
		return o, fmt.Errorf("empty offset")
	}
	switch rest[0] {
	case '-':
		o.Negative = true
		rest = rest[1:]
	case '+':
		rest = rest[1:]
	}

	if n, err := strconv.Atoi(rest); err == nil && n >= 0 {
		o.Steps = n
		return o, nil
	}
	if !strings.HasPrefix(rest, "P") || len(rest) == 1 {
		return o, fmt.Errorf("invalid offset %q", s)
	}
	rest = rest[1:]
	if n, err := strconv.Atoi(rest); err == nil && n >= 0 {
		o.Steps = n
		return o, nil
	}

	inTime := false
	num := ""
	for _, r := range rest {
		switch {
		case r >= '0' && r <= '9':
			num += string(r)
			continue
		case r == 'T' && !inTime && num == "":
			inTime = true
			continue
		}
		if num == "" {
			return o, fmt.Errorf("invalid offset %q", s)
		}
		n, _ := strconv.Atoi(num)
		num = ""
		switch {
		case r == 'W' && !inTime:
			o.Weeks = n
		case r == 'D' && !inTime:
			o.Days = n
		case r == 'H' && inTime:
			o.Hours = n
		case r == 'M' && inTime:
			o.Minutes = n
		case r == 'S' && inTime:
			o.Seconds = n
		default:
			return o, fmt.Errorf("unsupported unit %q in offset %q", string(r), s)
		}
	}
	if num != "" || !o.hasUnits() {
		return o, fmt.Errorf("invalid offset %q", s)
	}
	return o, nil
}

// MustParseOffset is ParseOffset for constants; it panics on error.
func MustParseOffset(s string) Offset {
	o, err := ParseOffset(s)
	if err != nil {
		panic(err)
	}
	return o
}

func (o Offset) hasUnits() bool {
	return o.Weeks != 0 || o.Days != 0 || o.Hours != 0 || o.Minutes != 0 || o.Seconds != 0
}

// IsZero reports whether applying o leaves a point unchanged.
func (o Offset) IsZero() bool {
	return o.Steps == 0 && !o.hasUnits()
}

// Negate returns o with the sign flipped.
func (o Offset) Negate() Offset {
	o.Negative = !o.Negative
	return o
}

// String renders o in ISO 8601 form, e.g. "-P1", "PT6H".
func (o Offset) String() string {
	var b strings.Builder
	if o.Negative {
		b.WriteByte('-')
	}
	b.WriteByte('P')
	if !o.hasUnits() {
		b.WriteString(strconv.Itoa(o.Steps))
		return b.String()
	}
	unit := func(n int, u byte) {
		if n != 0 {
			b.WriteString(strconv.Itoa(n))
			b.WriteByte(u)
		}
	}
	unit(o.Weeks, 'W')
	unit(o.Days, 'D')
	if o.Hours != 0 || o.Minutes != 0 || o.Seconds != 0 {
		b.WriteByte('T')
		unit(o.Hours, 'H')
		unit(o.Minutes, 'M')
		unit(o.Seconds, 'S')
	}
	return b.String()
}
