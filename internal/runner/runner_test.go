package runner_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/randalmurphal/triage/internal/runner"
	"github.com/randalmurphal/triage/internal/workflows"
	"github.com/randalmurphal/triage/pkg/triage"
	"github.com/randalmurphal/triage/pkg/triage/classifier"
	"github.com/randalmurphal/triage/pkg/triage/journal"
	"github.com/randalmurphal/triage/pkg/triage/nodes"
	"github.com/randalmurphal/triage/pkg/triage/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(label string) classifier.Classifier {
	return classifier.Func(func(context.Context, string, []string, []string) (string, error) {
		return label, nil
	})
}

func newRunner(t *testing.T, c classifier.Classifier, opts ...runner.Option) (*runner.Runner, *journal.MemoryStore) {
	t.Helper()
	reg := registry.New()
	require.NoError(t, workflows.RegisterAll(reg, nil, c))
	store := journal.NewMemoryStore()
	return runner.New(reg, append([]runner.Option{runner.WithJournal(store)}, opts...)...), store
}

func TestRunner_Success(t *testing.T) {
	r, store := newRunner(t, fixed("positive feedback"))

	out, err := r.Run(context.Background(), workflows.CustomerService, "非常满意")
	require.NoError(t, err)
	assert.Equal(t, nodes.PraiseReply, out.Solution)
	assert.Equal(t, []string{workflows.NodeFeedbackClassifier, workflows.NodeRecorder}, out.Path)
	assert.Equal(t, "非常满意", out.State[nodes.KeyInput])
	assert.NotEmpty(t, out.RunID)

	rec, err := store.Get(context.Background(), out.RunID)
	require.NoError(t, err)
	assert.Equal(t, workflows.CustomerService, rec.Graph)
	assert.Equal(t, nodes.PraiseReply, rec.Solution)
	assert.False(t, rec.Failed())
}

func TestRunner_EmptySolutionIsKept(t *testing.T) {
	r, store := newRunner(t, fixed(""))

	for _, name := range []string{workflows.RecommendedPlaces, workflows.DeviceOps, workflows.CustomerService} {
		out, err := r.Run(context.Background(), name, "去哪玩")
		require.NoError(t, err, name)
		assert.Equal(t, "", out.Solution, name)
		assert.Equal(t, "", out.State[nodes.KeySolution], name)

		rec, err := store.Get(context.Background(), out.RunID)
		require.NoError(t, err)
		assert.Equal(t, "", rec.Solution)
	}
}

// single registers a one-node graph under name whose node returns update.
func single(t *testing.T, name string, update triage.Update) *runner.Runner {
	t.Helper()
	g, err := triage.NewGraph(name, nodes.Schema()).
		AddNode("only", triage.NodeFunc(func(triage.Context, *triage.State) (triage.Update, error) {
			return update, nil
		})).
		AddEdge(triage.START, "only").
		AddEdge("only", triage.END).
		Compile()
	require.NoError(t, err)

	reg := registry.New()
	require.NoError(t, reg.Register(name, g))
	return runner.New(reg)
}

func TestRunner_AbsentSolutionUsesGraphFallback(t *testing.T) {
	out, err := single(t, workflows.RecommendedPlaces, nil).Run(context.Background(), workflows.RecommendedPlaces, "去哪玩")
	require.NoError(t, err)
	assert.Equal(t, workflows.NoPlacesRecommended, out.Solution)

	out, err = single(t, workflows.DeviceOps, nil).Run(context.Background(), workflows.DeviceOps, "你好")
	require.NoError(t, err)
	assert.Equal(t, workflows.NoSolution, out.Solution)
}

func TestRunner_NonTextSolutionFails(t *testing.T) {
	r := single(t, workflows.DeviceOps, triage.Update{nodes.KeySolution: 42})

	out, err := r.Run(context.Background(), workflows.DeviceOps, "你好")
	var typeErr *triage.ValueTypeError
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, nodes.KeySolution, typeErr.Key)
	assert.True(t, out.Record.Failed())
}

func TestRunner_FailureIsJournaled(t *testing.T) {
	boom := errors.New("model offline")
	r, store := newRunner(t, classifier.Func(func(context.Context, string, []string, []string) (string, error) {
		return "", boom
	}))

	out, err := r.Run(context.Background(), workflows.CustomerService, "坏了")
	require.Error(t, err)
	assert.True(t, classifier.IsFailure(err))
	require.NotNil(t, out)

	rec, gerr := store.Get(context.Background(), out.RunID)
	require.NoError(t, gerr)
	assert.True(t, rec.Failed())
	assert.Contains(t, rec.Error, "model offline")
}

func TestRunner_UnknownGraph(t *testing.T) {
	r, store := newRunner(t, fixed("x"))

	out, err := r.Run(context.Background(), "nope", "hi")
	assert.ErrorIs(t, err, runner.ErrGraphUnavailable)
	assert.Nil(t, out)
	assert.Zero(t, store.Len())
}

func TestRunner_FailedGraphReportsCause(t *testing.T) {
	reg := registry.New()
	_ = workflows.RegisterAll(reg, nil, nil)
	r := runner.New(reg)

	_, err := r.Run(context.Background(), workflows.CustomerService, "hi")
	assert.ErrorIs(t, err, runner.ErrGraphUnavailable)
	assert.ErrorIs(t, err, workflows.ErrNilClassifier)
}

func TestRunner_Timeout(t *testing.T) {
	slow := classifier.Func(func(ctx context.Context, _ string, _, _ []string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	r, store := newRunner(t, slow, runner.WithTimeout(20*time.Millisecond))

	out, err := r.Run(context.Background(), workflows.CustomerService, "hi")
	var ce *triage.CancellationError
	require.ErrorAs(t, err, &ce)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	rec, gerr := store.Get(context.Background(), out.RunID)
	require.NoError(t, gerr)
	assert.True(t, rec.Failed())
}
