package triage

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
)

// labeler is implemented by routers that can list every label they return
// besides the fallback.
type labeler interface {
	Labels() []string
}

// Compile validates the graph and creates an executable CompiledGraph.
// All validation failures are returned together as a *ConstructionError.
//
// Validation checks:
//  1. A schema is set and was registered without errors
//  2. Builder calls were valid (node IDs, nil nodes, routers)
//  3. Exactly one edge leaves START and it targets an existing node
//  4. All edge sources and targets reference existing nodes (or END)
//  5. Each node has exactly one way out: one simple edge or one conditional edge
//  6. Conditional edges route their fallback label and every declared label
//  7. Every key declared by nodes and routers is registered in the schema
//  8. END is reachable from the entry point
//
// Unreachable nodes are logged as warnings but do not fail compilation.
func (g *Graph) Compile() (*CompiledGraph, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error

	// 1. Schema
	if g.schema == nil {
		errs = append(errs, ErrNoSchema)
	} else {
		errs = append(errs, g.schema.errs...)
	}

	// 2. Builder mistakes
	errs = append(errs, g.errs...)

	// 3. Entry point
	entry := ""
	switch starts := g.edges[START]; len(starts) {
	case 0:
		errs = append(errs, ErrNoEntryPoint)
	case 1:
		entry = starts[0]
		if _, exists := g.nodes[entry]; !exists {
			errs = append(errs, fmt.Errorf("%w: %s", ErrEntryNotFound, entry))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: %v", ErrMultipleEntryPoints, starts))
	}

	// 4 & 5. Simple edges
	for _, from := range slices.Sorted(maps.Keys(g.edges)) {
		if from == START {
			continue
		}
		targets := g.edges[from]
		if _, exists := g.nodes[from]; !exists {
			errs = append(errs, fmt.Errorf("%w: edge source '%s' does not exist", ErrNodeNotFound, from))
		}
		for _, to := range targets {
			if to != END && !g.hasNode(to) {
				errs = append(errs, fmt.Errorf("%w: edge target '%s' does not exist", ErrNodeNotFound, to))
			}
		}
		if len(targets) > 1 {
			errs = append(errs, fmt.Errorf("%w: node %s has %d simple edges", ErrConflictingEdges, from, len(targets)))
		}
		if _, hasConditional := g.conditionalEdges[from]; hasConditional {
			errs = append(errs, fmt.Errorf("%w: node %s has both simple and conditional edges", ErrConflictingEdges, from))
		}
	}

	// 6. Conditional edges
	for _, from := range slices.Sorted(maps.Keys(g.conditionalEdges)) {
		errs = append(errs, g.validateConditional(from, g.conditionalEdges[from])...)
	}

	// 5. Every node needs a way out
	for _, id := range g.order {
		if len(g.edges[id]) == 0 && g.conditionalEdges[id] == nil {
			errs = append(errs, fmt.Errorf("%w: %s", ErrNoOutgoingEdge, id))
		}
	}

	// 7. State keys
	if g.schema != nil {
		errs = append(errs, g.validateKeys()...)
	}

	// 8. Path to END
	if entry != "" && g.hasNode(entry) && !g.canReachEnd()[entry] {
		errs = append(errs, ErrNoPathToEnd)
	}

	if len(errs) > 0 {
		return nil, &ConstructionError{Graph: g.name, Errs: errs}
	}

	g.warnUnreachableNodes(entry)

	return g.buildCompiledGraph(entry), nil
}

func (g *Graph) hasNode(id string) bool {
	_, exists := g.nodes[id]
	return exists
}

func (g *Graph) validateConditional(from string, ce *conditionalEdge) []error {
	var errs []error
	if !g.hasNode(from) {
		errs = append(errs, fmt.Errorf("%w: conditional edge source '%s' does not exist", ErrNodeNotFound, from))
	}
	for _, label := range slices.Sorted(maps.Keys(ce.routes)) {
		to := ce.routes[label]
		if to != END && !g.hasNode(to) {
			errs = append(errs, fmt.Errorf("%w: route %q from '%s' targets '%s'", ErrNodeNotFound, label, from, to))
		}
	}
	if _, ok := ce.routes[ce.router.Fallback()]; !ok {
		errs = append(errs, fmt.Errorf("%w: node %s, fallback %q", ErrNoFallbackRoute, from, ce.router.Fallback()))
	}
	if l, ok := ce.router.(labeler); ok {
		for _, label := range l.Labels() {
			if _, ok := ce.routes[label]; !ok {
				errs = append(errs, fmt.Errorf("%w: node %s, label %q", ErrUnroutedLabel, from, label))
			}
		}
	}
	return errs
}

func (g *Graph) validateKeys() []error {
	var errs []error
	check := func(owner string, v any) {
		ku, ok := v.(KeyUser)
		if !ok {
			return
		}
		for _, key := range ku.StateKeys() {
			if !g.schema.Has(key) {
				errs = append(errs, fmt.Errorf("%w: %s uses %q", ErrUnregisteredKey, owner, key))
			}
		}
	}
	for _, id := range g.order {
		check("node "+id, g.nodes[id])
		if ce := g.conditionalEdges[id]; ce != nil {
			check("router of "+id, ce.router)
		}
	}
	return errs
}

// canReachEnd returns the set of nodes from which END is reachable.
// Conditional edges contribute every routed target.
func (g *Graph) canReachEnd() map[string]bool {
	reach := map[string]bool{END: true}

	changed := true
	for changed {
		changed = false
		for _, id := range g.order {
			if reach[id] {
				continue
			}
			for _, to := range g.successorsOf(id) {
				if reach[to] {
					reach[id] = true
					changed = true
					break
				}
			}
		}
	}
	return reach
}

// successorsOf lists every possible next node, sorted and deduplicated.
func (g *Graph) successorsOf(id string) []string {
	var out []string
	out = append(out, g.edges[id]...)
	if ce := g.conditionalEdges[id]; ce != nil {
		out = append(out, slices.Collect(maps.Values(ce.routes))...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// warnUnreachableNodes logs warnings for nodes not reachable from entry.
func (g *Graph) warnUnreachableNodes(entry string) {
	reachable := map[string]bool{entry: true}
	queue := []string{entry}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range g.successorsOf(current) {
			if next != END && !reachable[next] {
				reachable[next] = true
				queue = append(queue, next)
			}
		}
	}

	for _, id := range g.order {
		if !reachable[id] {
			slog.Warn("node is unreachable from entry", "graph", g.name, "node_id", id)
		}
	}
}

// buildCompiledGraph creates the immutable CompiledGraph from the builder state.
func (g *Graph) buildCompiledGraph(entry string) *CompiledGraph {
	nodes := maps.Clone(g.nodes)

	next := make(map[string]string)
	for from, targets := range g.edges {
		if from != START {
			next[from] = targets[0]
		}
	}

	conditional := make(map[string]*conditionalEdge, len(g.conditionalEdges))
	for from, ce := range g.conditionalEdges {
		conditional[from] = &conditionalEdge{router: ce.router, routes: maps.Clone(ce.routes)}
	}

	predecessors := make(map[string][]string)
	for _, id := range g.order {
		for _, to := range g.successorsOf(id) {
			if to != END {
				predecessors[to] = append(predecessors[to], id)
			}
		}
	}

	return &CompiledGraph{
		name:             g.name,
		schema:           g.schema.clone(),
		nodes:            nodes,
		order:            slices.Clone(g.order),
		entryPoint:       entry,
		next:             next,
		conditionalEdges: conditional,
		predecessors:     predecessors,
	}
}
