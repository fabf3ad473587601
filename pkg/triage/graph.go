package triage

import (
	"fmt"
	"maps"
	"strings"
	"sync"
)

// Graph is a mutable builder for a workflow graph.
// Use NewGraph to create a graph, then chain AddNode, AddEdge and
// AddConditionalEdges calls to define the workflow.
//
// Graph is NOT thread-safe during building. Construct it from a single
// goroutine, then call Compile() to create an immutable CompiledGraph that
// can be shared by any number of concurrent runs.
//
// Builder mistakes (empty or duplicate node IDs, nil nodes or routers) do not
// panic; they are collected and reported by Compile as a ConstructionError.
//
// Example:
//
//	graph := triage.NewGraph("feedback", schema).
//	    AddNode("classify", classifyNode).
//	    AddNode("recorder", recorderNode).
//	    AddEdge(triage.START, "classify").
//	    AddConditionalEdges("classify", router, map[string]string{
//	        "positive": "recorder",
//	        "negative": "recorder",
//	    }).
//	    AddEdge("recorder", triage.END)
//
//	compiled, err := graph.Compile()
type Graph struct {
	mu               sync.RWMutex
	name             string
	schema           *Schema
	nodes            map[string]Node
	order            []string
	edges            map[string][]string
	conditionalEdges map[string]*conditionalEdge
	errs             []error
}

// conditionalEdge routes from a node through a Router and a label table.
type conditionalEdge struct {
	router Router
	routes map[string]string
}

// NewGraph creates a graph builder named name whose runs use schema.
func NewGraph(name string, schema *Schema) *Graph {
	return &Graph{
		name:             name,
		schema:           schema,
		nodes:            make(map[string]Node),
		edges:            make(map[string][]string),
		conditionalEdges: make(map[string]*conditionalEdge),
	}
}

// Name returns the graph name.
func (g *Graph) Name() string {
	return g.name
}

// AddNode adds a named node to the graph.
// Returns the graph for method chaining.
//
// Rejected at Compile time:
//   - id is empty or contains whitespace
//   - id is a reserved word (START, END, case-insensitive)
//   - node is nil
//   - id already exists in the graph
func (g *Graph) AddNode(id string, node Node) *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()

	idLower := strings.ToLower(id)
	switch {
	case id == "":
		g.errs = append(g.errs, fmt.Errorf("%w: node ID cannot be empty", ErrInvalidNode))
	case idLower == "end" || idLower == END || idLower == "start" || idLower == START:
		g.errs = append(g.errs, fmt.Errorf("%w: node ID %q is reserved", ErrInvalidNode, id))
	case strings.ContainsAny(id, " \t\n\r"):
		g.errs = append(g.errs, fmt.Errorf("%w: node ID %q contains whitespace", ErrInvalidNode, id))
	case node == nil:
		g.errs = append(g.errs, fmt.Errorf("%w: node %s is nil", ErrInvalidNode, id))
	default:
		if _, exists := g.nodes[id]; exists {
			g.errs = append(g.errs, fmt.Errorf("%w: duplicate node ID: %s", ErrInvalidNode, id))
			break
		}
		g.nodes[id] = node
		g.order = append(g.order, id)
	}
	return g
}

// AddEdge adds an unconditional edge from one node to another.
// The source can be START and the target can be END.
// Returns the graph for method chaining.
//
// Edge validation happens at Compile() time, not here.
// This allows edges to be added in any order.
func (g *Graph) AddEdge(from, to string) *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.edges[from] = append(g.edges[from], to)
	return g
}

// SetEntry designates the entry point node. It is shorthand for
// AddEdge(START, id).
func (g *Graph) SetEntry(id string) *Graph {
	return g.AddEdge(START, id)
}

// AddConditionalEdges routes from a node through router.
// routes maps each label the router may return to a node ID or END, and
// must contain the router's fallback label.
// Returns the graph for method chaining.
func (g *Graph) AddConditionalEdges(from string, router Router, routes map[string]string) *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()

	if router == nil {
		g.errs = append(g.errs, fmt.Errorf("%w: router for node %s is nil", ErrInvalidNode, from))
		return g
	}
	if _, exists := g.conditionalEdges[from]; exists {
		g.errs = append(g.errs, fmt.Errorf("%w: node %s already has a conditional edge", ErrConflictingEdges, from))
		return g
	}

	g.conditionalEdges[from] = &conditionalEdge{
		router: router,
		routes: maps.Clone(routes),
	}
	return g
}
