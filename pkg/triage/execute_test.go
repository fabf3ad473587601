package triage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCompile(t *testing.T, g *Graph) *CompiledGraph {
	t.Helper()
	compiled, err := g.Compile()
	require.NoError(t, err)
	return compiled
}

// TestRun_ConditionalRoute tests that the router label selects the route.
func TestRun_ConditionalRoute(t *testing.T) {
	var visited []string
	g := NewGraph("g", textSchema()).
		AddNode("classify", echoNode()).
		AddNode("praise", makeTrackingNode("praise", &visited)).
		AddNode("complain", makeTrackingNode("complain", &visited)).
		SetEntry("classify").
		AddConditionalEdges("classify", NewSubstringRouter("", "negative", "positive"), map[string]string{
			"positive": "praise",
			"negative": "complain",
		}).
		AddEdge("praise", END).
		AddEdge("complain", END)
	compiled := mustCompile(t, g)

	result, err := compiled.Run(testCtx(), map[string]any{"input": "positive feedback"})
	require.NoError(t, err)
	assert.Equal(t, []string{"praise"}, visited)
	assert.Equal(t, []string{"classify", "praise"}, result.Path)
	assert.Equal(t, "test-run", result.RunID)
	assert.Equal(t, "g", result.Graph)

	visited = nil
	result, err = compiled.Run(testCtx(), map[string]any{"input": "meh"})
	require.NoError(t, err)
	assert.Equal(t, []string{"complain"}, visited)
	assert.Equal(t, []string{"classify", "complain"}, result.Path)
}

// TestRun_StateFlowsBetweenNodes tests that updates are visible downstream.
func TestRun_StateFlowsBetweenNodes(t *testing.T) {
	compiled := mustCompile(t, feedbackGraph())

	result, err := compiled.Run(testCtx(), map[string]any{"input": "positive"})
	require.NoError(t, err)

	assert.Equal(t, "POSITIVE", textOf(t, result, "solution", "none"))
	assert.Equal(t, map[string]any{
		"input":         "positive",
		DefaultRouteKey: "positive",
		"solution":      "POSITIVE",
	}, result.State.Snapshot())
}

// TestRun_UnroutedLabelFollowsFallback tests that a label without a route uses the fallback.
func TestRun_UnroutedLabelFollowsFallback(t *testing.T) {
	var visited []string
	router := NewRouter(func(Context, *State) (string, error) { return "surprise", nil }, "default")
	g := NewGraph("g", textSchema()).
		AddNode("a", labelNode("x")).
		AddNode("fallback", makeTrackingNode("fallback", &visited)).
		SetEntry("a").
		AddConditionalEdges("a", router, map[string]string{
			"default": "fallback",
			"other":   END,
		}).
		AddEdge("fallback", END)

	_, err := mustCompile(t, g).Run(testCtx(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"fallback"}, visited)
}

// TestRun_EmptyLabelRoutesToFallback tests that an empty classifier output is routable.
func TestRun_EmptyLabelRoutesToFallback(t *testing.T) {
	compiled := mustCompile(t, feedbackGraph())

	result, err := compiled.Run(testCtx(), map[string]any{"input": ""})
	require.NoError(t, err)
	assert.Equal(t, "", textOf(t, result, "solution", "none"))
	assert.Equal(t, []string{"classify", "recorder"}, result.Path)
}

// TestRun_RouteToEnd tests that a route may target END directly.
func TestRun_RouteToEnd(t *testing.T) {
	g := NewGraph("g", textSchema()).
		AddNode("a", labelNode("stop")).
		AddNode("b", labelNode("x")).
		SetEntry("a").
		AddConditionalEdges("a", NewSubstringRouter("", "go", "stop"), map[string]string{
			"stop": END,
			"go":   "b",
		}).
		AddEdge("b", END)

	result, err := mustCompile(t, g).Run(testCtx(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, result.Path)
}

// TestRun_NodeError tests that node errors abort the run.
func TestRun_NodeError(t *testing.T) {
	boom := errors.New("classifier down")
	var visited []string
	g := NewGraph("g", textSchema()).
		AddNode("a", makeFailingNode(boom)).
		AddNode("b", makeTrackingNode("b", &visited)).
		SetEntry("a").
		AddEdge("a", "b").
		AddEdge("b", END)

	result, err := mustCompile(t, g).Run(testCtx(), map[string]any{"input": "x"})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Empty(t, visited)

	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "a", nodeErr.NodeID)
	assert.Equal(t, "execute", nodeErr.Op)
	assert.ErrorIs(t, err, boom)
}

// TestRun_MergeError tests that an update to an unregistered key fails the run.
func TestRun_MergeError(t *testing.T) {
	bad := NodeFunc(func(Context, *State) (Update, error) {
		return Update{"unknown": 1}, nil
	})
	g := NewGraph("g", textSchema()).
		AddNode("a", bad).
		SetEntry("a").
		AddEdge("a", END)

	_, err := mustCompile(t, g).Run(testCtx(), nil)

	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "merge", nodeErr.Op)
	assert.ErrorIs(t, err, ErrUnregisteredKey)
}

// TestRun_SeedError tests that input keys must be registered.
func TestRun_SeedError(t *testing.T) {
	_, err := mustCompile(t, feedbackGraph()).Run(testCtx(), map[string]any{"query": "x"})
	assert.ErrorIs(t, err, ErrUnregisteredKey)
}

// TestRun_PanicRecovery tests that node panics become PanicError.
func TestRun_PanicRecovery(t *testing.T) {
	g := NewGraph("g", textSchema()).
		AddNode("a", makePanicNode("kaboom")).
		SetEntry("a").
		AddEdge("a", END)

	_, err := mustCompile(t, g).Run(testCtx(), nil)

	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "a", panicErr.NodeID)
	assert.Equal(t, "kaboom", panicErr.Value)
	assert.NotEmpty(t, panicErr.Stack)
}

// TestRun_RouterError tests that a non-string route value is an explicit error.
func TestRun_RouterError(t *testing.T) {
	g := NewGraph("g", textSchema()).
		AddNode("a", NodeFunc(func(Context, *State) (Update, error) {
			return Update{DefaultRouteKey: 42}, nil
		})).
		SetEntry("a").
		AddConditionalEdges("a", NewSubstringRouter("", "no"), map[string]string{"no": END})

	_, err := mustCompile(t, g).Run(testCtx(), nil)

	var routerErr *RouterError
	require.ErrorAs(t, err, &routerErr)
	assert.Equal(t, "a", routerErr.FromNode)
	var typeErr *ValueTypeError
	assert.ErrorAs(t, err, &typeErr)
}

// TestRun_RouterPanic tests that a panicking router fails the run instead of
// crashing the caller.
func TestRun_RouterPanic(t *testing.T) {
	router := NewRouter(func(Context, *State) (string, error) {
		panic("router blew up")
	}, "done")
	g := NewGraph("g", textSchema()).
		AddNode("a", labelNode("x")).
		SetEntry("a").
		AddConditionalEdges("a", router, map[string]string{"done": END})

	var err error
	require.NotPanics(t, func() {
		_, err = mustCompile(t, g).Run(testCtx(), nil)
	})

	var routerErr *RouterError
	require.ErrorAs(t, err, &routerErr)
	assert.Equal(t, "a", routerErr.FromNode)
	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "router blew up", panicErr.Value)
	assert.NotEmpty(t, panicErr.Stack)
}

// TestRun_CycleDetected tests that a loop is bounded by max iterations.
func TestRun_CycleDetected(t *testing.T) {
	g := NewGraph("loop", textSchema()).
		AddNode("a", labelNode("again")).
		SetEntry("a").
		AddConditionalEdges("a", NewSubstringRouter("", "done", "again"), map[string]string{
			"again": "a",
			"done":  END,
		})

	_, err := mustCompile(t, g).Run(testCtx(), nil, WithMaxIterations(5))

	var maxErr *MaxIterationsError
	require.ErrorAs(t, err, &maxErr)
	assert.Equal(t, 5, maxErr.Max)
	assert.Equal(t, "a", maxErr.LastNodeID)
	assert.ErrorIs(t, err, ErrCycleDetected)
}

// TestRun_DefaultMaxIterations tests the default bound.
func TestRun_DefaultMaxIterations(t *testing.T) {
	count := 0
	counter := NodeFunc(func(Context, *State) (Update, error) {
		count++
		return Update{DefaultRouteKey: "again"}, nil
	})
	g := NewGraph("loop", textSchema()).
		AddNode("a", counter).
		SetEntry("a").
		AddConditionalEdges("a", NewSubstringRouter("", "done", "again"), map[string]string{
			"again": "a",
			"done":  END,
		})

	_, err := mustCompile(t, g).Run(testCtx(), nil, WithMaxIterations(0))
	assert.ErrorIs(t, err, ErrCycleDetected)
	assert.Equal(t, DefaultMaxIterations, count)
}

// TestRun_CancelledBeforeStart tests cancellation before the first node.
func TestRun_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var visited []string
	g := NewGraph("g", textSchema()).
		AddNode("a", makeTrackingNode("a", &visited)).
		SetEntry("a").
		AddEdge("a", END)

	result, err := mustCompile(t, g).Run(NewContext(ctx), nil)
	assert.Nil(t, result)
	assert.Empty(t, visited)

	var cancelErr *CancellationError
	require.ErrorAs(t, err, &cancelErr)
	assert.Equal(t, "a", cancelErr.NodeID)
	assert.False(t, cancelErr.WasExecuting)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestRun_CancelledDuringNode tests cancellation while a node blocks.
func TestRun_CancelledDuringNode(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	blocking := NodeFunc(func(ctx Context, _ *State) (Update, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	var visited []string
	g := NewGraph("g", textSchema()).
		AddNode("slow", blocking).
		AddNode("after", makeTrackingNode("after", &visited)).
		SetEntry("slow").
		AddEdge("slow", "after").
		AddEdge("after", END)

	_, err := mustCompile(t, g).Run(NewContext(ctx), nil)

	var cancelErr *CancellationError
	require.ErrorAs(t, err, &cancelErr)
	assert.True(t, cancelErr.WasExecuting)
	assert.Equal(t, "slow", cancelErr.NodeID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, visited)
}

// TestRun_NilContext tests the nil context guard.
func TestRun_NilContext(t *testing.T) {
	_, err := mustCompile(t, feedbackGraph()).Run(nil, nil)
	assert.ErrorIs(t, err, ErrNilContext)
}

// TestRun_NodeSeesNodeID tests that nodes get a per-node context.
func TestRun_NodeSeesNodeID(t *testing.T) {
	var seen string
	g := NewGraph("g", textSchema()).
		AddNode("inspect", NodeFunc(func(ctx Context, _ *State) (Update, error) {
			seen = ctx.NodeID() + "/" + ctx.RunID()
			return nil, nil
		})).
		SetEntry("inspect").
		AddEdge("inspect", END)

	_, err := mustCompile(t, g).Run(testCtx(), nil)
	require.NoError(t, err)
	assert.Equal(t, "inspect/test-run", seen)
}

// TestRun_ConcurrentRunsAreIsolated tests that one compiled graph serves parallel runs.
func TestRun_ConcurrentRunsAreIsolated(t *testing.T) {
	compiled := mustCompile(t, feedbackGraph())

	inputs := []string{"positive", "negative", "positive and more", "other"}
	var wg sync.WaitGroup
	results := make([]string, 40)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := compiled.Run(NewContext(context.Background()), map[string]any{"input": inputs[i%len(inputs)]})
			if assert.NoError(t, err) {
				results[i], _ = res.Text("solution", "")
			}
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		assert.Equal(t, upper(inputs[i%len(inputs)]), got)
	}
}

func upper(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r >= 'a' && r <= 'z' {
			out[i] = r - 'a' + 'A'
		}
	}
	return string(out)
}

func TestResult_Text(t *testing.T) {
	s := textSchema().NewState()
	require.NoError(t, s.Set("solution", ""))
	require.NoError(t, s.Set("input", 3))
	r := &Result{State: s}

	assert.Equal(t, "", textOf(t, r, "solution", "No solution"), "empty is kept")
	assert.Equal(t, "No solution", textOf(t, r, "missing", "No solution"))

	_, err := r.Text("input", "No solution")
	var typeErr *ValueTypeError
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, "input", typeErr.Key)
}

func TestNewContext_GeneratesRunID(t *testing.T) {
	a := NewContext(context.Background())
	b := NewContext(context.Background())
	assert.NotEmpty(t, a.RunID())
	assert.NotEqual(t, a.RunID(), b.RunID())
	assert.NotNil(t, a.Logger())
	assert.Empty(t, a.NodeID())
}
