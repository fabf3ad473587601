package triage

import (
	"maps"
	"slices"
)

// CompiledGraph is an immutable, executable graph.
// It is created by calling Compile() on a Graph builder.
//
// CompiledGraph is thread-safe and can be used concurrently for multiple
// Run() calls; each run gets its own State from the graph's Schema.
type CompiledGraph struct {
	name             string
	schema           *Schema
	nodes            map[string]Node
	order            []string
	entryPoint       string
	next             map[string]string
	conditionalEdges map[string]*conditionalEdge
	predecessors     map[string][]string
}

// Name returns the graph name.
func (cg *CompiledGraph) Name() string {
	return cg.name
}

// Schema returns a copy of the state schema used by runs of this graph.
func (cg *CompiledGraph) Schema() *Schema {
	return cg.schema.clone()
}

// EntryPoint returns the entry node ID.
func (cg *CompiledGraph) EntryPoint() string {
	return cg.entryPoint
}

// NodeIDs returns all node identifiers in registration order.
func (cg *CompiledGraph) NodeIDs() []string {
	return slices.Clone(cg.order)
}

// HasNode checks if a node exists in the graph.
func (cg *CompiledGraph) HasNode(id string) bool {
	_, exists := cg.nodes[id]
	return exists
}

// Successors returns every node ID reachable in one step from id,
// including the targets of conditional routes. END is included when routed.
func (cg *CompiledGraph) Successors(id string) []string {
	var out []string
	if to, ok := cg.next[id]; ok {
		out = append(out, to)
	}
	if ce := cg.conditionalEdges[id]; ce != nil {
		out = append(out, slices.Collect(maps.Values(ce.routes))...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Predecessors returns the node IDs that have edges to the given node.
func (cg *CompiledGraph) Predecessors(id string) []string {
	return slices.Clone(cg.predecessors[id])
}

// IsConditional returns true if the node leaves through a router.
func (cg *CompiledGraph) IsConditional(id string) bool {
	_, ok := cg.conditionalEdges[id]
	return ok
}

// Routes returns a copy of the label table of a conditional node.
// Returns nil for nodes without a conditional edge.
func (cg *CompiledGraph) Routes(id string) map[string]string {
	ce := cg.conditionalEdges[id]
	if ce == nil {
		return nil
	}
	return maps.Clone(ce.routes)
}

// Fallback returns the fallback label of a conditional node.
func (cg *CompiledGraph) Fallback(id string) (string, bool) {
	ce := cg.conditionalEdges[id]
	if ce == nil {
		return "", false
	}
	return ce.router.Fallback(), true
}
