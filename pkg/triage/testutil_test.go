package triage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// testCtx returns a Context suitable for tests.
func testCtx() Context {
	return NewContext(context.Background(), WithRunID("test-run"))
}

// textSchema registers input, classifier_output and solution with Replace.
func textSchema() *Schema {
	return NewSchema().
		Register("input", Replace{}).
		Register(DefaultRouteKey, Replace{}).
		Register("solution", Replace{})
}

// textOf reads key from a finished run and fails the test on a type error.
func textOf(t *testing.T, r *Result, key, fallback string) string {
	t.Helper()
	text, err := r.Text(key, fallback)
	require.NoError(t, err)
	return text
}

// labelNode writes a fixed label to classifier_output.
func labelNode(label string) NodeFunc {
	return func(Context, *State) (Update, error) {
		return Update{DefaultRouteKey: label}, nil
	}
}

// echoNode copies input to classifier_output.
func echoNode() NodeFunc {
	return func(_ Context, s *State) (Update, error) {
		text, err := s.Text("input")
		if err != nil {
			return nil, err
		}
		return Update{DefaultRouteKey: text}, nil
	}
}

// upperNode writes the upper-cased label to solution.
func upperNode() NodeFunc {
	return func(_ Context, s *State) (Update, error) {
		label, err := s.Text(DefaultRouteKey)
		if err != nil {
			return nil, err
		}
		return Update{"solution": strings.ToUpper(label)}, nil
	}
}

// makeTrackingNode records its execution and writes nothing.
func makeTrackingNode(name string, tracker *[]string) NodeFunc {
	return func(Context, *State) (Update, error) {
		*tracker = append(*tracker, name)
		return nil, nil
	}
}

// makeFailingNode returns err.
func makeFailingNode(err error) NodeFunc {
	return func(Context, *State) (Update, error) {
		return nil, err
	}
}

// makePanicNode panics with value.
func makePanicNode(value any) NodeFunc {
	return func(Context, *State) (Update, error) {
		panic(value)
	}
}

// keyedNode declares the state keys it uses.
type keyedNode struct {
	NodeFunc
	keys []string
}

func (n keyedNode) StateKeys() []string { return n.keys }
