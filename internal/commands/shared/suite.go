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
	"errors"
	"fmt"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/tombee/cyclepoint/internal/metrics"
	"github.com/tombee/cyclepoint/pkg/graph"
	"github.com/tombee/cyclepoint/pkg/trigger"
)

// LoadSuite loads and compiles the suite at path, counting rejected
// trigger expressions.
func LoadSuite(path string) (*graph.Graph, error) {
	g, err := graph.Load(path)
	if err != nil {
		switch {
		case errors.Is(err, trigger.ErrMalformedExpression):
			metrics.RecordTriggerError(metrics.KindMalformed)
		case errors.Is(err, trigger.ErrTriggerExpression):
			metrics.RecordTriggerError(metrics.KindTrigger)
		}
		return nil, err
	}
	return g, nil
}

// ExpandPaths expands "**" style glob patterns. Arguments without glob
// syntax are kept as given so a missing file is reported by the loader.
func ExpandPaths(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	for _, arg := range args {
		if !hasMeta(arg) {
			add(arg)
			continue
		}
		matches, err := doublestar.FilepathGlob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("pattern %q matched no files", arg)
		}
		sort.Strings(matches)
		for _, m := range matches {
			add(m)
		}
	}
	return paths, nil
}

func hasMeta(s string) bool {
	for _, c := range s {
		switch c {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}
