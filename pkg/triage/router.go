package triage

import (
	"slices"
	"strings"
)

// DefaultRouteKey is the state key routers read when none is configured.
const DefaultRouteKey = "classifier_output"

// Router selects the label of the next edge from the current state.
//
// Every router declares a fallback label. Compile requires a route for the
// fallback, and the executor follows it whenever Select returns a label that
// has no route, so routing is total over all router outputs.
type Router interface {
	Select(ctx Context, state *State) (string, error)
	Fallback() string
}

// RouterFunc is the signature of a routing function.
type RouterFunc func(ctx Context, state *State) (string, error)

type funcRouter struct {
	fn       RouterFunc
	fallback string
}

func (r funcRouter) Select(ctx Context, state *State) (string, error) {
	return r.fn(ctx, state)
}

func (r funcRouter) Fallback() string {
	return r.fallback
}

// NewRouter wraps fn with a fallback label.
// Panics if fn is nil or fallback is empty.
func NewRouter(fn RouterFunc, fallback string) Router {
	if fn == nil {
		panic("triage: router function cannot be nil")
	}
	if fallback == "" {
		panic("triage: router fallback cannot be empty")
	}
	return funcRouter{fn: fn, fallback: fallback}
}

// SubstringRouter routes on substring containment.
//
// It reads a string from Key (absent reads as ""), checks Labels in order
// and returns the first label contained in the text. When nothing matches,
// Fallback is returned. Matching is case-sensitive.
type SubstringRouter struct {
	key      string
	labels   []string
	fallback string
}

// NewSubstringRouter creates a router over the given labels in priority order.
// An empty key means DefaultRouteKey.
// Panics if fallback is empty or a label is empty.
func NewSubstringRouter(key, fallback string, labels ...string) *SubstringRouter {
	if key == "" {
		key = DefaultRouteKey
	}
	if fallback == "" {
		panic("triage: router fallback cannot be empty")
	}
	if slices.Contains(labels, "") {
		panic("triage: router label cannot be empty")
	}
	return &SubstringRouter{key: key, labels: slices.Clone(labels), fallback: fallback}
}

// Select implements Router.
func (r *SubstringRouter) Select(_ Context, state *State) (string, error) {
	text, err := state.Text(r.key)
	if err != nil {
		return "", err
	}
	return r.Match(text), nil
}

// Match returns the label chosen for text.
func (r *SubstringRouter) Match(text string) string {
	for _, label := range r.labels {
		if strings.Contains(text, label) {
			return label
		}
	}
	return r.fallback
}

// Fallback implements Router.
func (r *SubstringRouter) Fallback() string { return r.fallback }

// Labels returns the matched labels in priority order, fallback excluded.
func (r *SubstringRouter) Labels() []string { return slices.Clone(r.labels) }

// StateKeys implements KeyUser.
func (r *SubstringRouter) StateKeys() []string { return []string{r.key} }
