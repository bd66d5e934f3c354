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

package validate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"sync"

	"github.com/spf13/cobra"

	"github.com/tombee/cyclepoint/internal/commands/completion"
	"github.com/tombee/cyclepoint/internal/commands/shared"
	"github.com/tombee/cyclepoint/internal/filewatcher"
	"github.com/tombee/cyclepoint/internal/log"
)

// SuiteResult is the outcome of validating one suite file.
type SuiteResult struct {
	File   string             `json:"file"`
	Valid  bool               `json:"valid"`
	Name   string             `json:"name,omitempty"`
	Tasks  []string           `json:"tasks,omitempty"`
	Points int                `json:"points,omitempty"`
	Errors []shared.JSONError `json:"errors,omitempty"`
}

type validateResponse struct {
	shared.JSONResponse
	Suites []SuiteResult `json:"suites"`
}

// NewCommand creates the validate command
func NewCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "validate <suite>...",
		Short: "Validate suite files and their trigger expressions",
		Annotations: map[string]string{
			"group": "suites",
		},
		Long: `Validate loads each suite, checks its settings, and parses and builds every
graph line's trigger expression against the initial cycle point.

Arguments may be glob patterns, including "**" for any depth.

With --watch, suites are validated again whenever they change.`,
		Example: `  # Validate one suite
  cyclepoint validate suite.yaml

  # Validate every suite below a directory
  cyclepoint validate 'suites/**/*.yaml'

  # Revalidate on save
  cyclepoint validate suite.yaml --watch`,
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: completion.CompleteSuiteFiles,
		SilenceUsage:      true, // errors are reported with exit codes by the caller
		SilenceErrors:     true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args, watch)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Validate again when a suite file changes")

	return cmd
}

func runValidate(cmd *cobra.Command, args []string, watch bool) error {
	paths, err := shared.ExpandPaths(args)
	if err != nil {
		return &shared.ExitError{Code: shared.ExitFailed, Message: "expanding arguments", Cause: err}
	}

	results := make([]SuiteResult, 0, len(paths))
	for _, p := range paths {
		results = append(results, validateFile(p))
	}
	failed := report(cmd.OutOrStdout(), results)

	if watch {
		return watchFiles(cmd, paths)
	}

	if failed > 0 {
		if shared.GetJSON() {
			return &shared.ExitError{Code: shared.ExitInvalidSuite}
		}
		return &shared.ExitError{
			Code:    shared.ExitInvalidSuite,
			Message: fmt.Sprintf("%d of %d suite(s) invalid", failed, len(results)),
		}
	}
	return nil
}

// validateFile loads one suite.
func validateFile(path string) SuiteResult {
	res := SuiteResult{File: path}
	g, err := shared.LoadSuite(path)
	if err != nil {
		je := shared.JSONErrorFor(err)
		je.File = path
		if errors.Is(err, fs.ErrNotExist) {
			je.Code = shared.ErrorCodeFileNotFound
		}
		res.Errors = []shared.JSONError{je}
		return res
	}
	res.Valid = true
	res.Name = g.Name()
	res.Tasks = g.Tasks()
	res.Points = len(g.Points())
	return res
}

// report prints results and returns how many failed.
func report(w io.Writer, results []SuiteResult) int {
	failed := 0
	for _, r := range results {
		if !r.Valid {
			failed++
		}
	}

	if shared.GetJSON() {
		_ = shared.EmitJSON(w, validateResponse{
			JSONResponse: shared.NewJSONResponse("validate", failed == 0),
			Suites:       results,
		})
		return failed
	}

	for _, r := range results {
		if r.Valid {
			fmt.Fprintf(w, "%s %s %s\n", shared.RenderStatus(true, "OK"), r.File,
				shared.RenderLabel(fmt.Sprintf("(%s: %d tasks, %d cycle points)", r.Name, len(r.Tasks), r.Points)))
			continue
		}
		fmt.Fprintf(w, "%s %s\n", shared.RenderStatus(false, "FAIL"), r.File)
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  %s\n", shared.RenderError(e.Message))
			if e.Suggestion != "" {
				fmt.Fprintf(w, "    Suggestion: %s\n", e.Suggestion)
			}
		}
	}
	return failed
}

func watchFiles(cmd *cobra.Command, paths []string) error {
	cfg, err := shared.LoadConfig()
	if err != nil {
		return shared.NewInvalidSuiteError("loading config", err)
	}
	logger := log.WithComponent(shared.NewLogger(cfg, cmd.ErrOrStderr()), "validate")

	w, err := filewatcher.New(paths, 0, logger)
	if err != nil {
		return shared.NewExecutionError("watching suites", err)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
	defer stop()

	var mu sync.Mutex
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, shared.RenderLabel("Watching for changes, press Ctrl-C to stop"))
	return w.Run(ctx, func(ev filewatcher.Event) {
		if ev.Type == filewatcher.EventDeleted {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		report(out, []SuiteResult{validateFile(ev.Path)})
	})
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
