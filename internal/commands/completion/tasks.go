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

package completion

import (
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/cyclepoint/pkg/graph"
	"github.com/tombee/cyclepoint/pkg/taskid"
)

// builtinQualifiers are offered after "<point>/<task>:".
var builtinQualifiers = []string{"submit", "submit-fail", "start", "succeed", "fail"}

// taskIDs lists "<point>/<task>" for every instance of the suite at path.
func taskIDs(path string) ([]string, error) {
	g, err := graph.Load(path)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, p := range g.Points() {
		names, err := g.TasksAt(p)
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			ids = append(ids, taskid.Tokens{Cycle: p.String(), Task: n}.RelativeID())
		}
	}
	return ids, nil
}

func withPrefix(values []string, prefix string) []string {
	var out []string
	for _, v := range values {
		if strings.HasPrefix(v, prefix) {
			out = append(out, v)
		}
	}
	return out
}

// CompleteSuiteThenTask completes a suite file as the first argument and a
// task instance of that suite as the second.
func CompleteSuiteThenTask(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	switch len(args) {
	case 0:
		return CompleteSuiteFiles(cmd, args, toComplete)
	case 1:
		return CompleteTaskIDs(cmd, args, toComplete)
	}
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		return nil, cobra.ShellCompDirectiveNoFileComp
	})
}

// CompleteTaskIDs completes task instances of the suite named by args[0].
// It serves flags such as --trigger.
func CompleteTaskIDs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		if len(args) == 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		ids, err := taskIDs(args[0])
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return withPrefix(ids, toComplete), cobra.ShellCompDirectiveNoFileComp
	})
}

// CompleteOutputRefs completes "<point>/<task>[:<qualifier>]" values for
// --done. After the colon it offers the standard qualifiers and the task's
// custom outputs.
func CompleteOutputRefs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		if len(args) == 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		id, _, hasQualifier := strings.Cut(toComplete, ":")
		if !hasQualifier {
			ids, err := taskIDs(args[0])
			if err != nil {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return withPrefix(ids, toComplete), cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
		}

		g, err := graph.Load(args[0])
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		tok, err := taskid.ParseRelative(id)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		var out []string
		for _, q := range slices.Concat(builtinQualifiers, g.CustomOutputs(tok.Task)) {
			out = append(out, id+":"+q)
		}
		return withPrefix(out, toComplete), cobra.ShellCompDirectiveNoFileComp
	})
}
