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

// Package simulate runs a suite through the task pool with simulated task
// outcomes.
package simulate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/cyclepoint/internal/commands/completion"
	"github.com/tombee/cyclepoint/internal/commands/shared"
	"github.com/tombee/cyclepoint/internal/config"
	"github.com/tombee/cyclepoint/internal/log"
	"github.com/tombee/cyclepoint/internal/pool"
	"github.com/tombee/cyclepoint/internal/store"
	_ "github.com/tombee/cyclepoint/internal/store/memory"
	_ "github.com/tombee/cyclepoint/internal/store/sqlite"
	"github.com/tombee/cyclepoint/internal/tracing"
	cperrors "github.com/tombee/cyclepoint/pkg/errors"
	"github.com/tombee/cyclepoint/pkg/prereq"
)

// WaitingTask describes an instance left waiting by a stalled run.
type WaitingTask struct {
	ID            string         `json:"id"`
	Unsatisfied   []string       `json:"unsatisfied"`
	Prerequisites []*prereq.Dump `json:"prerequisites,omitempty"`
}

type simulateResponse struct {
	shared.JSONResponse
	pool.Result
	Stalled bool          `json:"stalled"`
	Waiting []WaitingTask `json:"waiting,omitempty"`
}

type options struct {
	backend       string
	dbPath        string
	runahead      int
	maxIterations int
	triggers      []string
	metricsAddr   string
	fresh         bool
}

// NewCommand creates the simulate command
func NewCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "simulate <suite>",
		Short: "Run a suite with simulated task outcomes",
		Annotations: map[string]string{
			"group": "suites",
		},
		Long: `Simulate spawns task instances point by point, within the runahead limit,
and runs every instance whose prerequisites are satisfied. Each task emits
submitted, started and then succeeded (with its custom outputs) or failed,
for the instances listed under the suite's simulate.fail.

Outputs and prerequisite states are persisted to the configured store. With
the sqlite store a second run resumes where the first stopped; --fresh
clears the store first.

--trigger forces an instance's prerequisites satisfied, as a manual trigger
does, to release a stalled run.

The command exits with code 3 when the run stalls.`,
		Example: `  # Simulate in memory
  cyclepoint simulate suite.yaml

  # Persist to sqlite and resume later
  cyclepoint simulate suite.yaml --store sqlite --db run.db

  # Release a stalled task
  cyclepoint simulate suite.yaml --store sqlite --db run.db --trigger 1/report

  # Expose Prometheus metrics while running
  cyclepoint simulate suite.yaml --metrics-addr :9090`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completion.CompleteSuiteFiles,
		SilenceUsage:      true, // errors are reported with exit codes by the caller
		SilenceErrors:     true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.backend, "store", "", "Store backend, memory or sqlite (default from config)")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "sqlite database path (implies --store sqlite)")
	cmd.Flags().IntVar(&opts.runahead, "runahead", 0, "Cycle points that may be active at once (default from config)")
	cmd.Flags().IntVar(&opts.maxIterations, "max-iterations", 0, "Stop after this many iterations (default from config)")
	cmd.Flags().StringArrayVar(&opts.triggers, "trigger", nil, "Force <point>/<task> satisfied (repeatable)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&opts.fresh, "fresh", false, "Clear stored run state before starting")
	_ = cmd.RegisterFlagCompletionFunc("store", completion.CompleteStoreBackends)
	_ = cmd.RegisterFlagCompletionFunc("trigger", completion.CompleteTaskIDs)

	return cmd
}

// loadConfig applies flag overrides on top of the config file.
func loadConfig(opts options) (*config.Config, error) {
	cfg, err := shared.LoadConfig()
	if err != nil {
		return nil, err
	}
	if opts.dbPath != "" {
		cfg.Store.Backend = config.BackendSQLite
		cfg.Store.Path = opts.dbPath
	}
	if opts.backend != "" {
		cfg.Store.Backend = opts.backend
	}
	if opts.runahead != 0 {
		cfg.Scheduler.RunaheadLimit = opts.runahead
	}
	if opts.maxIterations != 0 {
		cfg.Scheduler.MaxIterations = opts.maxIterations
	}
	if opts.metricsAddr != "" {
		cfg.Observability.MetricsAddr = opts.metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runSimulate(cmd *cobra.Command, suitePath string, opts options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return shared.NewInvalidSuiteError("loading config", err)
	}
	logger := log.WithComponent(shared.NewLogger(cfg, cmd.ErrOrStderr()), "simulate")

	g, err := shared.LoadSuite(suitePath)
	if err != nil {
		return shared.NewInvalidSuiteError("loading suite", err)
	}

	forced := make([]string, 0, len(opts.triggers))
	for _, id := range opts.triggers {
		point, name, err := g.Instance(id)
		if err != nil {
			return shared.NewExecutionError("invalid --trigger", err)
		}
		forced = append(forced, point.String()+"/"+name)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
	defer stop()

	tc := shared.TracingConfig(cfg, shared.Build().Version)
	tc.Writer = cmd.ErrOrStderr()
	provider, err := tracing.Setup(ctx, tc)
	if err != nil {
		return shared.NewExecutionError("setting up tracing", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", log.Error(err))
		}
	}()

	if addr := cfg.Observability.MetricsAddr; addr != "" {
		srv, err := serveMetrics(addr, logger)
		if err != nil {
			return shared.NewExecutionError("serving metrics", err)
		}
		defer srv.shutdown()
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return shared.NewExecutionError("opening store", err)
	}
	defer st.Close()

	if opts.fresh {
		if err := st.Clear(ctx); err != nil {
			return shared.NewExecutionError("clearing store", err)
		}
	}

	p := pool.New(g, st,
		pool.WithLogger(logger),
		pool.WithTracer(provider.Tracer("pool")),
		pool.WithCollector(provider.Collector()),
		pool.WithRunaheadLimit(cfg.Scheduler.RunaheadLimit),
		pool.WithMaxIterations(cfg.Scheduler.MaxIterations),
		pool.WithForced(forced...),
	)

	res, runErr := p.Run(ctx)
	var stall *cperrors.StallError
	stalled := errors.As(runErr, &stall)
	if runErr != nil && !stalled {
		return shared.NewExecutionError("simulation failed", runErr)
	}

	var waiting []WaitingTask
	if stalled {
		dumps := p.Dumps()
		for _, id := range stall.Waiting {
			waiting = append(waiting, WaitingTask{
				ID:            id,
				Unsatisfied:   p.Unsatisfied(id),
				Prerequisites: dumps[id],
			})
		}
	}

	out := cmd.OutOrStdout()
	if shared.GetJSON() {
		if err := shared.EmitJSON(out, simulateResponse{
			JSONResponse: shared.NewJSONResponse("simulate", !stalled),
			Result:       *res,
			Stalled:      stalled,
			Waiting:      waiting,
		}); err != nil {
			return err
		}
		if stalled {
			return &shared.ExitError{Code: shared.ExitStalled}
		}
		return nil
	}

	printRun(out, g.Name(), res)
	if stalled {
		printStall(out, waiting)
		return shared.NewStalledError(runErr)
	}
	fmt.Fprintf(out, "%s %d task instance(s) completed in %d iteration(s)\n",
		shared.RenderStatus(true, "OK"), len(res.Completed), res.Iterations)
	return nil
}

// printRun lists completions grouped by iteration.
func printRun(w io.Writer, suite string, res *pool.Result) {
	fmt.Fprintf(w, "%s %s\n", shared.RenderHeader("Run "+res.RunID), shared.RenderLabel("("+suite+")"))
	if res.Restored > 0 {
		fmt.Fprintf(w, "  %s\n", shared.RenderLabel(fmt.Sprintf("%d instance(s) restored from the store", res.Restored)))
	}

	var line []string
	current := 0
	flush := func() {
		if len(line) > 0 {
			fmt.Fprintf(w, "  iteration %d: %s\n", current, strings.Join(line, ", "))
		}
		line = line[:0]
	}
	for _, c := range res.Completed {
		if c.Iteration != current {
			flush()
			current = c.Iteration
		}
		entry := c.ID
		if c.Status == pool.StatusFailed {
			entry += " " + shared.RenderError("failed")
		}
		line = append(line, entry)
	}
	flush()
}

func printStall(w io.Writer, waiting []WaitingTask) {
	fmt.Fprintf(w, "%s %d task instance(s) can never run\n", shared.RenderStatus(false, "STALLED"), len(waiting))
	for _, t := range waiting {
		fmt.Fprintf(w, "  %s waiting on %s\n", t.ID, strings.Join(t.Unsatisfied, ", "))
		for _, d := range t.Prerequisites {
			fmt.Fprintf(w, "    %s\n", shared.RenderLabel(d.Expression))
		}
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
