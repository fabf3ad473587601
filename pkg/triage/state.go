package triage

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Update is a partial state written by a node.
// Each key is merged into State using the key's registered WriteStrategy.
type Update map[string]any

// Schema declares the keys of a State and the WriteStrategy of each key.
// Build it once with NewSchema and Register, then hand it to NewGraph.
// A Schema must not be modified after the graph using it is compiled.
type Schema struct {
	keys       []string
	strategies map[string]WriteStrategy
	errs       []error
}

// NewSchema creates an empty schema.
func NewSchema() *Schema {
	return &Schema{strategies: make(map[string]WriteStrategy)}
}

// Register declares key with the given strategy.
// Returns the schema for method chaining.
//
// Registering the same key twice, an empty key, or a nil strategy is
// recorded and reported by Graph.Compile as a ConstructionError.
func (s *Schema) Register(key string, strategy WriteStrategy) *Schema {
	switch {
	case key == "":
		s.errs = append(s.errs, fmt.Errorf("%w: empty key", ErrInvalidKey))
	case strategy == nil:
		s.errs = append(s.errs, fmt.Errorf("%w: nil strategy for key %q", ErrInvalidKey, key))
	default:
		if _, exists := s.strategies[key]; exists {
			s.errs = append(s.errs, fmt.Errorf("%w: %s", ErrDuplicateKey, key))
			return s
		}
		s.keys = append(s.keys, key)
		s.strategies[key] = strategy
	}
	return s
}

// Err returns the registration mistakes recorded so far, joined.
func (s *Schema) Err() error {
	return errors.Join(s.errs...)
}

// Has reports whether key is registered.
func (s *Schema) Has(key string) bool {
	_, ok := s.strategies[key]
	return ok
}

// Keys returns the registered keys in registration order.
func (s *Schema) Keys() []string {
	return slices.Clone(s.keys)
}

// Strategy returns the strategy registered for key.
func (s *Schema) Strategy(key string) (WriteStrategy, bool) {
	st, ok := s.strategies[key]
	return st, ok
}

// clone copies the registrations. Recorded errors are not carried over.
func (s *Schema) clone() *Schema {
	return &Schema{
		keys:       slices.Clone(s.keys),
		strategies: maps.Clone(s.strategies),
	}
}

// NewState creates an empty State backed by this schema.
func (s *Schema) NewState() *State {
	return &State{
		schema: s,
		values: make(map[string]any, len(s.keys)),
	}
}

// State is the keyed store threaded through a single run.
//
// A State belongs to exactly one run and is not safe for concurrent use.
// Reading a key that is unregistered or unset returns ok == false.
type State struct {
	schema *Schema
	values map[string]any
}

// Get returns the value for key.
func (s *State) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Text returns the string stored at key.
// An absent key yields "" with no error; a non-string value yields a
// *ValueTypeError.
func (s *State) Text(key string) (string, error) {
	v, ok := s.values[key]
	if !ok || v == nil {
		return "", nil
	}
	str, ok := v.(string)
	if !ok {
		return "", &ValueTypeError{Key: key, Want: "string", Got: fmt.Sprintf("%T", v)}
	}
	return str, nil
}

// Set merges value into key using the key's registered strategy.
func (s *State) Set(key string, value any) error {
	strategy, ok := s.schema.Strategy(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnregisteredKey, key)
	}
	current, exists := s.values[key]
	merged, err := strategy.Apply(current, exists, value)
	if err != nil {
		return fmt.Errorf("apply %s strategy to key %s: %w", strategy.Name(), key, err)
	}
	s.values[key] = merged
	return nil
}

// Apply merges every key of u into the state.
// Keys are applied in sorted order so failures are deterministic.
func (s *State) Apply(u Update) error {
	for _, key := range slices.Sorted(maps.Keys(u)) {
		if err := s.Set(key, u[key]); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot returns a shallow copy of the stored values.
func (s *State) Snapshot() map[string]any {
	return maps.Clone(s.values)
}

// Schema returns the schema backing this state.
func (s *State) Schema() *Schema {
	return s.schema
}
