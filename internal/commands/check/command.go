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

// Package check evaluates the prerequisites of a single task instance
// against a set of completed outputs.
package check

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/cyclepoint/internal/commands/completion"
	"github.com/tombee/cyclepoint/internal/commands/shared"
	"github.com/tombee/cyclepoint/internal/query"
	"github.com/tombee/cyclepoint/pkg/prereq"
	"github.com/tombee/cyclepoint/pkg/trigger"
)

// Result is the evaluated state of one task instance.
type Result struct {
	Task          string         `json:"task"`
	Ready         bool           `json:"ready"`
	Prerequisites []*prereq.Dump `json:"prerequisites"`
	Resolved      []string       `json:"resolved,omitempty"`
	TargetPoints  []string       `json:"targetPoints,omitempty"`
}

type checkResponse struct {
	shared.JSONResponse
	Result
}

type options struct {
	done  []string
	force bool
	query string
}

// NewCommand creates the check command
func NewCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "check <suite> <point>/<task>",
		Short: "Show whether a task instance's prerequisites are met",
		Annotations: map[string]string{
			"group": "suites",
		},
		Long: `Check builds the prerequisites of one task instance and satisfies them with
the outputs given by --done. Each --done value is "<point>/<task>" for the
succeeded output, or "<point>/<task>:<qualifier>" using the same qualifiers
as graph lines (submit, start, succeed, fail or a custom output).

--force marks every prerequisite satisfied, as a manual trigger does.

--query filters the JSON result through a jq expression.`,
		Example: `  # What is 1/report waiting for?
  cyclepoint check suite.yaml 1/report

  # Is it ready once post succeeds and archive fails?
  cyclepoint check suite.yaml 1/report --done 1/post --done 1/archive:fail

  # Print only the unsatisfied conditions
  cyclepoint check suite.yaml 1/report --query '[.prerequisites[].conditions[] | select(.satisfied | not)]'`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completion.CompleteSuiteThenTask,
		SilenceUsage:      true, // errors are reported with exit codes by the caller
		SilenceErrors:     true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.done, "done", nil, "Completed output, <point>/<task>[:<qualifier>] (repeatable)")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Force every prerequisite satisfied")
	cmd.Flags().StringVar(&opts.query, "query", "", "jq expression applied to the JSON result")
	_ = cmd.RegisterFlagCompletionFunc("done", completion.CompleteOutputRefs)

	return cmd
}

func runCheck(cmd *cobra.Command, suitePath, id string, opts options) error {
	exec := query.NewExecutor(0, 0)
	if opts.query != "" {
		if err := exec.Validate(opts.query); err != nil {
			return shared.NewExecutionError("invalid --query", err)
		}
	}

	g, err := shared.LoadSuite(suitePath)
	if err != nil {
		return shared.NewInvalidSuiteError("loading suite", err)
	}

	point, name, err := g.Instance(id)
	if err != nil {
		return shared.NewExecutionError(fmt.Sprintf("task %s", id), err)
	}

	done := trigger.NewRefSet()
	for _, d := range opts.done {
		ref, err := g.OutputRef(d)
		if err != nil {
			return shared.NewExecutionError("invalid --done", err)
		}
		done.Add(ref)
	}

	prereqs, err := g.Prerequisites(name, point)
	if err != nil {
		return shared.NewExecutionError("building prerequisites", err)
	}

	res := Result{
		Task:          point.String() + "/" + name,
		Ready:         true,
		Prerequisites: []*prereq.Dump{},
	}
	seen := make(map[string]bool)
	for _, p := range prereqs {
		if opts.force {
			p.SetSatisfied()
		} else {
			p.SatisfyMe(done)
		}
		if !p.IsSatisfied() {
			res.Ready = false
		}
		if d := p.APIDump(); d != nil {
			res.Prerequisites = append(res.Prerequisites, d)
		}
		res.Resolved = append(res.Resolved, p.ResolvedDependencies()...)
		for _, tp := range p.TargetPointStrings() {
			if !seen[tp] {
				seen[tp] = true
				res.TargetPoints = append(res.TargetPoints, tp)
			}
		}
	}

	out := cmd.OutOrStdout()
	if opts.query != "" {
		v, err := exec.Execute(commandContext(cmd), opts.query, res)
		if err != nil {
			return shared.NewExecutionError("running --query", err)
		}
		return shared.EmitJSON(out, v)
	}
	if shared.GetJSON() {
		return shared.EmitJSON(out, checkResponse{
			JSONResponse: shared.NewJSONResponse("check", true),
			Result:       res,
		})
	}
	printResult(out, res)
	return nil
}

func printResult(w io.Writer, res Result) {
	label := "WAITING"
	if res.Ready {
		label = "READY"
	}
	fmt.Fprintf(w, "%s %s\n", shared.RenderStatus(res.Ready, label), shared.RenderHeader(res.Task))

	if len(res.Prerequisites) == 0 {
		fmt.Fprintf(w, "  %s\n", shared.RenderLabel("no prerequisites"))
		return
	}
	for i, d := range res.Prerequisites {
		fmt.Fprintf(w, "  prerequisite %d: %s\n", i+1, d.Expression)
		for _, c := range d.Conditions {
			mark := "[ ]"
			if c.Satisfied {
				mark = "[x]"
			}
			fmt.Fprintf(w, "    %s %s = %s %s %s\n", mark, c.Alias, c.TaskProxyID, c.RequiredState,
				shared.RenderLabel("("+c.Message+")"))
		}
	}
	if len(res.Resolved) > 0 {
		fmt.Fprintf(w, "  resolved: %s\n", strings.Join(res.Resolved, ", "))
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
