// Package triage provides classifier-routed workflow graphs.
package triage

import (
	"errors"
	"fmt"
	"strings"
)

// Problems Compile can report. They arrive wrapped in a *ConstructionError;
// match them with errors.Is.
var (
	ErrNoSchema            = errors.New("state schema not set")
	ErrInvalidKey          = errors.New("invalid state key")
	ErrDuplicateKey        = errors.New("state key already registered")
	ErrUnregisteredKey     = errors.New("state key not registered")
	ErrInvalidNode         = errors.New("invalid node")
	ErrNoEntryPoint        = errors.New("entry point not set")
	ErrMultipleEntryPoints = errors.New("multiple entry points")
	ErrEntryNotFound       = errors.New("entry point node not found")
	ErrNodeNotFound        = errors.New("node not found")
	ErrConflictingEdges    = errors.New("conflicting outgoing edges")
	ErrNoOutgoingEdge      = errors.New("node has no outgoing edge")
	ErrNoFallbackRoute     = errors.New("conditional edge has no fallback route")
	ErrUnroutedLabel       = errors.New("router label has no route")
	ErrNoPathToEnd         = errors.New("no path to END from entry")
)

var (
	// ErrCycleDetected is unwrapped from every *MaxIterationsError.
	ErrCycleDetected = errors.New("cycle detected: exceeded maximum iterations")
	ErrNilContext    = errors.New("context cannot be nil")
	// ErrMissingValue is unwrapped from every *MissingValueError.
	ErrMissingValue = errors.New("missing state value")
)

// ConstructionError collects every problem Compile found. A graph that
// fails construction never runs.
type ConstructionError struct {
	Graph string
	Errs  []error
}

func (e *ConstructionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "graph %s: construction failed: ", e.Graph)
	for i, err := range e.Errs {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *ConstructionError) Unwrap() []error { return e.Errs }

// NodeError is a failure inside a node. Op is "execute" when the node
// itself returned an error and "merge" when its update was rejected.
type NodeError struct {
	NodeID string
	Op     string
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %s: %v", e.NodeID, e.Op, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// PanicError is a recovered node panic with the stack captured at the
// point of recovery.
type PanicError struct {
	NodeID string
	Value  any
	Stack  string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("node %s panicked: %v", e.NodeID, e.Value)
}

// CancellationError reports a run stopped by its context. WasExecuting
// distinguishes a node interrupted mid-flight from one never started.
type CancellationError struct {
	NodeID       string
	Cause        error
	WasExecuting bool
}

func (e *CancellationError) Error() string {
	when := "before"
	if e.WasExecuting {
		when = "during"
	}
	return fmt.Sprintf("cancelled %s node %s: %v", when, e.NodeID, e.Cause)
}

func (e *CancellationError) Unwrap() error { return e.Cause }

// RouterError is a failed label selection on the conditional edge leaving
// FromNode.
type RouterError struct {
	FromNode string
	Err      error
}

func (e *RouterError) Error() string {
	return fmt.Sprintf("router from %s: %v", e.FromNode, e.Err)
}

func (e *RouterError) Unwrap() error { return e.Err }

// MaxIterationsError stops a run that executed Max nodes without reaching
// END. LastNodeID would have been next.
type MaxIterationsError struct {
	Max        int
	LastNodeID string
}

func (e *MaxIterationsError) Error() string {
	return fmt.Sprintf("exceeded maximum iterations (%d) at node %s", e.Max, e.LastNodeID)
}

func (e *MaxIterationsError) Unwrap() error { return ErrCycleDetected }

// MissingValueError is returned when a required key was never written.
type MissingValueError struct {
	Key string
}

func (e *MissingValueError) Error() string { return "missing state value: " + e.Key }

func (e *MissingValueError) Unwrap() error { return ErrMissingValue }

// ValueTypeError is returned when a key holds a value of the wrong type.
type ValueTypeError struct {
	Key  string
	Want string
	Got  string
}

func (e *ValueTypeError) Error() string {
	return fmt.Sprintf("state value %s: want %s, got %s", e.Key, e.Want, e.Got)
}
