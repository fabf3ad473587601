// Package registry holds the compiled graphs a process serves, by name.
//
// Graphs are built once at startup. A graph whose construction fails is
// logged and left out; lookups for it report false, and callers answer
// with "service unavailable" rather than crashing:
//
//	reg := registry.New()
//	reg.Build(logger, "customerService", workflows.CustomerService)
//	g, ok := reg.Get("customerService")
//
// All methods are safe for concurrent use.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/randalmurphal/triage/pkg/triage"
)

// ErrDuplicate indicates a graph name is already registered.
var ErrDuplicate = errors.New("graph already registered")

// BuildFunc constructs and compiles a graph.
type BuildFunc func() (*triage.CompiledGraph, error)

// Registry maps names to compiled graphs.
type Registry struct {
	mu     sync.RWMutex
	graphs map[string]*triage.CompiledGraph
	failed map[string]error
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		graphs: make(map[string]*triage.CompiledGraph),
		failed: make(map[string]error),
	}
}

// Register adds g under name.
func (r *Registry) Register(name string, g *triage.CompiledGraph) error {
	if g == nil {
		return fmt.Errorf("register %s: nil graph", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.graphs[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	r.graphs[name] = g
	delete(r.failed, name)
	return nil
}

// Build runs build and registers the result under name.
// A construction failure is logged at error level, remembered for Failure,
// and returned; the name stays unregistered.
func (r *Registry) Build(logger *slog.Logger, name string, build BuildFunc) error {
	if logger == nil {
		logger = slog.Default()
	}

	g, err := build()
	if err == nil {
		err = r.Register(name, g)
	}
	if err != nil {
		logger.Error("graph construction failed", "graph", name, "error", err)
		r.mu.Lock()
		r.failed[name] = err
		r.mu.Unlock()
		return err
	}

	logger.Info("graph registered", "graph", name, "nodes", len(g.NodeIDs()))
	if diagram, derr := g.Diagram(triage.FormatPlantUML); derr == nil {
		logger.Debug("graph diagram", "graph", name, "plantuml", diagram)
	}
	return nil
}

// Get returns the graph registered under name.
func (r *Registry) Get(name string) (*triage.CompiledGraph, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.graphs[name]
	return g, ok
}

// Failure returns the construction error recorded for name, or nil.
func (r *Registry) Failure(name string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.failed[name]
}

// Names returns the registered graph names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.graphs))
}

// Len returns the number of registered graphs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.graphs)
}
