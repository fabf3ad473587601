package triage

import (
	"fmt"
	"maps"
)

// WriteStrategy merges an incoming value into the existing value of a key.
type WriteStrategy interface {
	// Name identifies the strategy in errors and diagrams.
	Name() string

	// Apply returns the value to store. exists is false when the key has
	// never been written in this run.
	Apply(current any, exists bool, incoming any) (any, error)
}

// Replace overwrites the previous value unconditionally.
type Replace struct{}

// Name implements WriteStrategy.
func (Replace) Name() string { return "replace" }

// Apply implements WriteStrategy.
func (Replace) Apply(_ any, _ bool, incoming any) (any, error) {
	return incoming, nil
}

// Append accumulates values into a []any.
// An incoming []any is flattened into the list.
type Append struct{}

// Name implements WriteStrategy.
func (Append) Name() string { return "append" }

// Apply implements WriteStrategy.
func (Append) Apply(current any, exists bool, incoming any) (any, error) {
	var list []any
	if exists && current != nil {
		prev, ok := current.([]any)
		if !ok {
			return nil, fmt.Errorf("append: existing value is %T, want []any", current)
		}
		list = append(list, prev...)
	}
	if items, ok := incoming.([]any); ok {
		return append(list, items...), nil
	}
	return append(list, incoming), nil
}

// Merge shallow-merges map[string]any values; incoming keys win.
type Merge struct{}

// Name implements WriteStrategy.
func (Merge) Name() string { return "merge" }

// Apply implements WriteStrategy.
func (Merge) Apply(current any, exists bool, incoming any) (any, error) {
	in, ok := incoming.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("merge: incoming value is %T, want map[string]any", incoming)
	}
	out := make(map[string]any)
	if exists && current != nil {
		prev, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("merge: existing value is %T, want map[string]any", current)
		}
		maps.Copy(out, prev)
	}
	maps.Copy(out, in)
	return out, nil
}
