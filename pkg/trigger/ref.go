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
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Ref identifies one output of one task instance: the upstream event a
// dependency waits for. Refs are comparable and ordered field by field.
type Ref struct {
	Point  string
	Name   string
	Output string
}

// String renders the canonical form "<point>/<name> <output>".
func (r Ref) String() string {
	return r.Point + "/" + r.Name + " " + r.Output
}

// TaskID returns "<point>/<name>".
func (r Ref) TaskID() string {
	return r.Point + "/" + r.Name
}

// Compare orders refs by point, then name, then output.
func (r Ref) Compare(other Ref) int {
	if c := cmp.Compare(r.Point, other.Point); c != 0 {
		return c
	}
	if c := cmp.Compare(r.Name, other.Name); c != 0 {
		return c
	}
	return cmp.Compare(r.Output, other.Output)
}

// SortRefs sorts refs in place using Ref.Compare.
func SortRefs(refs []Ref) {
	slices.SortFunc(refs, Ref.Compare)
}

// ParseRef parses the canonical "<point>/<name> <output>" form produced by
// Ref.String. It is a Resolver for expressions rendered by
// Expression.String.
func ParseRef(text string) (Ref, error) {
	id, output, ok := strings.Cut(strings.TrimSpace(text), " ")
	if !ok {
		return Ref{}, fmt.Errorf("missing output in %q", text)
	}
	point, name, ok := strings.Cut(id, "/")
	output = strings.TrimSpace(output)
	if !ok || point == "" || name == "" || output == "" || strings.ContainsAny(output, " \t") {
		return Ref{}, fmt.Errorf("expected \"<point>/<name> <output>\", got %q", text)
	}
	return Ref{Point: point, Name: name, Output: output}, nil
}

// RefSet is a set of refs, typically the outputs completed in one
// scheduling iteration.
type RefSet map[Ref]struct{}

// NewRefSet returns a set holding refs.
func NewRefSet(refs ...Ref) RefSet {
	s := make(RefSet, len(refs))
	for _, r := range refs {
		s[r] = struct{}{}
	}
	return s
}

// Add inserts r.
func (s RefSet) Add(r Ref) {
	s[r] = struct{}{}
}

// Has reports whether r is in the set.
func (s RefSet) Has(r Ref) bool {
	_, ok := s[r]
	return ok
}

// Sorted returns the members in Ref.Compare order.
func (s RefSet) Sorted() []Ref {
	refs := make([]Ref, 0, len(s))
	for r := range s {
		refs = append(refs, r)
	}
	SortRefs(refs)
	return refs
}
