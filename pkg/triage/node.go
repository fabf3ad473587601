package triage

// START is the virtual entry node.
// AddEdge(START, id) designates id as the entry point.
const START = "__start__"

// END is the terminal node identifier.
// Use this as an edge target to indicate the run should terminate.
const END = "__end__"

// Node is a unit of work in a graph.
//
// Apply reads the live state and returns a partial Update; the executor
// merges the update using each key's WriteStrategy. Nodes must not keep
// state between calls and must not mutate the State they receive.
type Node interface {
	Apply(ctx Context, state *State) (Update, error)
}

// NodeFunc adapts a function to the Node interface.
//
// Example:
//
//	greet := triage.NodeFunc(func(ctx triage.Context, s *triage.State) (triage.Update, error) {
//	    name, err := s.Text("name")
//	    if err != nil {
//	        return nil, err
//	    }
//	    return triage.Update{"greeting": "hello " + name}, nil
//	})
type NodeFunc func(ctx Context, state *State) (Update, error)

// Apply implements Node.
func (f NodeFunc) Apply(ctx Context, state *State) (Update, error) {
	return f(ctx, state)
}

// KeyUser is implemented by nodes and routers that know which state keys
// they read or write. Compile rejects graphs whose key users reference keys
// missing from the schema.
type KeyUser interface {
	StateKeys() []string
}
