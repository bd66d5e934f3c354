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

// Package cycling provides the cycle point types that key task instances:
// plain integers ("1", "2", ...) and ISO 8601 date-times
// ("20250101T0000Z"), plus the signed offsets used in graph triggers.
package cycling

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Point is one repetition of the workflow graph. Points are ordered and
// render to the string used in task identifiers.
type Point interface {
	fmt.Stringer

	// Compare returns -1, 0 or +1. Points of different kinds compare by
	// their string form.
	Compare(other Point) int

	// Add returns the point shifted by offset.
	Add(offset Offset) (Point, error)
}

// Parser turns a point string back into a Point.
type Parser func(string) (Point, error)

// Cycling modes accepted by ParserFor.
const (
	ModeInteger  = "integer"
	ModeDateTime = "datetime"
)

// ParserFor returns the parser for a cycling mode. An empty mode detects
// the kind from each string.
func ParserFor(mode string) (Parser, error) {
	switch strings.ToLower(mode) {
	case ModeInteger:
		return ParseIntegerPoint, nil
	case ModeDateTime:
		return ParseDateTimePoint, nil
	case "":
		return ParsePoint, nil
	default:
		return nil, fmt.Errorf("unknown cycling mode %q (want %s or %s)", mode, ModeInteger, ModeDateTime)
	}
}

// ParsePoint parses an integer point if s is an integer, else a date-time.
func ParsePoint(s string) (Point, error) {
	if p, err := ParseIntegerPoint(s); err == nil {
		return p, nil
	}
	return ParseDateTimePoint(s)
}

// IntegerPoint is a point in integer cycling.
type IntegerPoint int

// ParseIntegerPoint parses a decimal integer point.
func ParseIntegerPoint(s string) (Point, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid integer cycle point %q", s)
	}
	return IntegerPoint(n), nil
}

// String implements fmt.Stringer.
func (p IntegerPoint) String() string {
	return strconv.Itoa(int(p))
}

// Compare implements Point.
func (p IntegerPoint) Compare(other Point) int {
	o, ok := other.(IntegerPoint)
	if !ok {
		return strings.Compare(p.String(), other.String())
	}
	switch {
	case p < o:
		return -1
	case p > o:
		return 1
	}
	return 0
}

// Add implements Point. Only unitless offsets apply to integer points.
func (p IntegerPoint) Add(offset Offset) (Point, error) {
	if offset.hasUnits() {
		return nil, fmt.Errorf("offset %s has date-time units, cannot apply to integer point %s", offset, p)
	}
	n := offset.Steps
	if offset.Negative {
		n = -n
	}
	return p + IntegerPoint(n), nil
}

// dateTimeLayouts are tried in order; the matching layout is kept so the
// point prints back in the form it was written.
var dateTimeLayouts = []string{
	"20060102T1504Z",
	"20060102T15Z",
	"20060102T1504",
	"20060102",
	"2006-01-02T15:04Z",
	"2006-01-02T15Z",
	"2006-01-02T15:04",
	"2006-01-02",
}

// DateTimePoint is a point in date-time cycling. All points are UTC.
type DateTimePoint struct {
	t      time.Time
	layout string
}

// ParseDateTimePoint parses ISO 8601 basic or extended date-times.
func ParseDateTimePoint(s string) (Point, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return DateTimePoint{t: t, layout: layout}, nil
		}
	}
	return nil, fmt.Errorf("invalid date-time cycle point %q", s)
}

// NewDateTimePoint returns t as a point printed in basic form.
func NewDateTimePoint(t time.Time) DateTimePoint {
	return DateTimePoint{t: t.UTC(), layout: dateTimeLayouts[0]}
}

// Time returns the instant.
func (p DateTimePoint) Time() time.Time {
	return p.t
}

// String implements fmt.Stringer.
func (p DateTimePoint) String() string {
	return p.t.Format(p.layout)
}

// Compare implements Point.
func (p DateTimePoint) Compare(other Point) int {
	o, ok := other.(DateTimePoint)
	if !ok {
		return strings.Compare(p.String(), other.String())
	}
	return p.t.Compare(o.t)
}

// Add implements Point. Unitless offsets do not apply to date-times.
func (p DateTimePoint) Add(offset Offset) (Point, error) {
	if offset.Steps != 0 {
		return nil, fmt.Errorf("offset %s has no units, cannot apply to date-time point %s", offset, p)
	}
	sign := 1
	if offset.Negative {
		sign = -1
	}
	t := p.t.AddDate(0, 0, sign*(offset.Weeks*7+offset.Days))
	t = t.Add(time.Duration(sign) * (time.Duration(offset.Hours)*time.Hour +
		time.Duration(offset.Minutes)*time.Minute +
		time.Duration(offset.Seconds)*time.Second))
	return DateTimePoint{t: t, layout: p.layout}, nil
}
