package triage

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/randalmurphal/triage/pkg/triage/observability"
	"go.opentelemetry.io/otel/trace"
)

// Result is the outcome of a successful run.
type Result struct {
	// RunID identifies the run in logs, traces and the journal.
	RunID string
	// Graph is the name of the graph that ran.
	Graph string
	// State is the final state. It belongs to the caller.
	State *State
	// Path lists the executed nodes in order.
	Path []string
	// Duration is the wall time of the run.
	Duration time.Duration
}

// Text returns the string at key in the final state. fallback is used only
// when the key was never written: an empty string is returned as is, and a
// value of another type is a *ValueTypeError.
func (r *Result) Text(key, fallback string) (string, error) {
	if _, ok := r.State.Get(key); !ok {
		return fallback, nil
	}
	return r.State.Text(key)
}

// Run executes the graph once for input.
// A fresh State is created from the graph's schema and seeded with input.
//
// On failure no partial state is returned. The error is one of
// *NodeError (wrapping the node's own error), *PanicError, *RouterError,
// *CancellationError or *MaxIterationsError.
//
// Execution flow:
//  1. Seed the state with input
//  2. Starting at the entry node, check for cancellation
//  3. Apply the node and merge its update
//  4. Determine the next node (simple edge, or router + label table)
//  5. Repeat until END is reached or an error occurs
//
// Example:
//
//	ctx := triage.NewContext(context.Background())
//	result, err := compiled.Run(ctx, map[string]any{"input": "产品质量问题"})
//	if err != nil {
//	    return err
//	}
//	solution, err := result.Text("solution", "No solution")
func (cg *CompiledGraph) Run(ctx Context, input map[string]any, opts ...RunOption) (result *Result, runErr error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	runID := ctx.RunID()
	logger := ctx.Logger().With("graph", cg.name)
	startTime := time.Now()

	observability.LogRunStart(logger, runID)

	var execCtx context.Context = ctx
	var runSpan trace.Span
	if cfg.tracingEnabled {
		execCtx, runSpan = cfg.spans.StartRunSpan(ctx, cg.name, runID)
		defer func() {
			cfg.spans.EndSpanWithError(runSpan, runErr)
		}()
	}

	state := cg.schema.NewState()
	if err := state.Apply(input); err != nil {
		runErr = fmt.Errorf("seed input: %w", err)
		observability.LogRunError(logger, runID, runErr, time.Since(startTime), "")
		return nil, runErr
	}

	path, lastNode, err := cg.execute(execCtx, ctx, state, &cfg)
	duration := time.Since(startTime)
	cfg.metrics.RecordGraphRun(ctx, cg.name, outcomeOf(err), duration)

	if err != nil {
		runErr = err
		observability.LogRunError(logger, runID, err, duration, lastNode)
		return nil, err
	}
	observability.LogRunComplete(logger, runID, duration, path)

	return &Result{
		RunID:    runID,
		Graph:    cg.name,
		State:    state,
		Path:     path,
		Duration: duration,
	}, nil
}

func outcomeOf(err error) observability.Outcome {
	var ce *CancellationError
	switch {
	case err == nil:
		return observability.OutcomeSuccess
	case errors.As(err, &ce):
		return observability.OutcomeCancelled
	default:
		return observability.OutcomeFailed
	}
}

// execute walks the graph from the entry point.
// tracingCtx carries span context; ctx is the triage Context.
// Returns the executed path and, on error, the node where it happened.
func (cg *CompiledGraph) execute(tracingCtx context.Context, ctx Context, state *State, cfg *runConfig) ([]string, string, error) {
	current := cg.entryPoint
	var path []string

	for current != END {
		if len(path) >= cfg.maxIterations {
			return path, current, &MaxIterationsError{
				Max:        cfg.maxIterations,
				LastNodeID: current,
			}
		}

		if err := ctx.Err(); err != nil {
			return path, current, &CancellationError{NodeID: current, Cause: err}
		}

		nodeCtx := forNode(ctx, current)
		observability.LogNodeStart(nodeCtx.Logger(), current)

		nodeTracingCtx := tracingCtx
		var nodeSpan trace.Span
		if cfg.tracingEnabled {
			nodeTracingCtx, nodeSpan = cfg.spans.StartNodeSpan(tracingCtx, current)
		}

		nodeStart := time.Now()
		nodeErr := cg.executeNode(nodeCtx, current, state)
		nodeDuration := time.Since(nodeStart)

		cfg.metrics.RecordNodeExecution(nodeTracingCtx, cg.name, current, nodeDuration, nodeErr)
		if cfg.tracingEnabled {
			cfg.spans.EndSpanWithError(nodeSpan, nodeErr)
		}

		if nodeErr != nil {
			observability.LogNodeError(nodeCtx.Logger(), current, nodeErr)
			return path, current, nodeErr
		}
		observability.LogNodeComplete(nodeCtx.Logger(), current, nodeDuration)
		path = append(path, current)

		next, err := cg.nextNode(tracingCtx, nodeCtx, state, current, cfg)
		if err != nil {
			return path, current, err
		}
		current = next
	}

	return path, "", nil
}

// executeNode applies a single node with panic recovery and merges its update.
func (cg *CompiledGraph) executeNode(ctx Context, nodeID string, state *State) (err error) {
	node, exists := cg.nodes[nodeID]
	if !exists {
		// Unreachable after a successful Compile.
		return &NodeError{NodeID: nodeID, Op: "lookup", Err: fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)}
	}

	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{
				NodeID: nodeID,
				Value:  r,
				Stack:  string(debug.Stack()),
			}
		}
	}()

	update, err := node.Apply(ctx, state)
	if err != nil {
		if cause := ctx.Err(); cause != nil {
			return &CancellationError{NodeID: nodeID, Cause: cause, WasExecuting: true}
		}
		return &NodeError{NodeID: nodeID, Op: "execute", Err: err}
	}

	if err := state.Apply(update); err != nil {
		return &NodeError{NodeID: nodeID, Op: "merge", Err: err}
	}
	return nil
}

// selectLabel asks router for a label, turning a panic into a *PanicError
// attributed to the node the edge leaves.
func selectLabel(ctx Context, router Router, state *State, from string) (label string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{NodeID: from, Value: r, Stack: string(debug.Stack())}
		}
	}()
	return router.Select(ctx, state)
}

// nextNode determines the next node to execute.
// Conditional edges resolve the router's label through the route table;
// labels without a route follow the router's fallback.
func (cg *CompiledGraph) nextNode(tracingCtx context.Context, ctx Context, state *State, current string, cfg *runConfig) (string, error) {
	ce, conditional := cg.conditionalEdges[current]
	if !conditional {
		next, ok := cg.next[current]
		if !ok {
			// Unreachable after a successful Compile.
			return "", &NodeError{
				NodeID: current,
				Op:     "routing",
				Err:    fmt.Errorf("%w: %s", ErrNoOutgoingEdge, current),
			}
		}
		return next, nil
	}

	label, err := selectLabel(ctx, ce.router, state, current)
	if err != nil {
		return "", &RouterError{FromNode: current, Err: err}
	}

	next, routed := ce.routes[label]
	if !routed {
		label = ce.router.Fallback()
		next = ce.routes[label]
	}

	observability.LogRoute(ctx.Logger(), current, label, next, !routed)
	cfg.metrics.RecordRoute(tracingCtx, cg.name, current, label, !routed)
	if cfg.tracingEnabled {
		cfg.spans.Route(tracingCtx, current, label, next, !routed)
	}
	return next, nil
}
