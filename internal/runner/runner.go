// Package runner executes registered graphs on behalf of the front doors
// and journals every run.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/triage/internal/workflows"
	"github.com/randalmurphal/triage/pkg/triage"
	"github.com/randalmurphal/triage/pkg/triage/journal"
	"github.com/randalmurphal/triage/pkg/triage/nodes"
	"github.com/randalmurphal/triage/pkg/triage/registry"
)

// ErrGraphUnavailable indicates the requested graph is not registered,
// either because it does not exist or because it failed to build.
var ErrGraphUnavailable = errors.New("graph unavailable")

// Outcome is what a caller gets back from a run.
type Outcome struct {
	RunID string
	// Solution is the recorded solution, possibly empty, or the graph's
	// fallback reply when none was written.
	Solution string
	Path     []string
	// State is a snapshot of the final state. Nil when the run failed.
	State map[string]any
	// Record is the journal entry written for the run.
	Record journal.Record
}

// Runner runs graphs from a registry.
type Runner struct {
	graphs  *registry.Registry
	journal journal.Store
	logger  *slog.Logger
	timeout time.Duration
	runOpts []triage.RunOption
}

// Option configures a Runner.
type Option func(*Runner)

// WithJournal records runs in store. Default: journal.NopStore.
func WithJournal(store journal.Store) Option {
	return func(r *Runner) {
		if store != nil {
			r.journal = store
		}
	}
}

// WithLogger sets the logger handed to every run.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTimeout bounds each run. Zero means no bound beyond the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// WithRunOptions passes options (metrics, tracing, iteration limits) to every run.
func WithRunOptions(opts ...triage.RunOption) Option {
	return func(r *Runner) { r.runOpts = append(r.runOpts, opts...) }
}

// New creates a Runner over graphs.
func New(graphs *registry.Registry, opts ...Option) *Runner {
	r := &Runner{
		graphs:  graphs,
		journal: journal.NopStore{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Graphs returns the registry the runner serves.
func (r *Runner) Graphs() *registry.Registry {
	return r.graphs
}

// Journal returns the store runs are recorded in.
func (r *Runner) Journal() journal.Store {
	return r.journal
}

// Run executes the named graph with input as the user's text.
//
// On failure the returned Outcome still carries the run ID and the journal
// record; the error is ErrGraphUnavailable or the error returned by
// CompiledGraph.Run.
func (r *Runner) Run(ctx context.Context, name, input string) (*Outcome, error) {
	g, ok := r.graphs.Get(name)
	if !ok {
		if cause := r.graphs.Failure(name); cause != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrGraphUnavailable, name, cause)
		}
		return nil, fmt.Errorf("%w: %s", ErrGraphUnavailable, name)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	runID := uuid.NewString()
	tctx := triage.NewContext(ctx, triage.WithLogger(r.logger), triage.WithRunID(runID))

	start := time.Now()
	result, runErr := g.Run(tctx, map[string]any{nodes.KeyInput: input}, r.runOpts...)

	out := &Outcome{RunID: runID}
	rec := journal.Record{
		RunID:    runID,
		Graph:    name,
		Input:    input,
		Duration: time.Since(start),
	}
	if runErr == nil {
		out.Solution, runErr = result.Text(nodes.KeySolution, workflows.FallbackFor(name))
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	} else {
		out.Path = result.Path
		out.State = result.State.Snapshot()
		rec.Solution = out.Solution
		rec.Path = result.Path
	}

	// Cancelled runs are journaled too.
	if err := r.journal.Save(context.WithoutCancel(ctx), rec); err != nil {
		r.logger.Warn("journal save failed", "run_id", runID, "graph", name, "error", err)
	}
	out.Record = rec

	return out, runErr
}
