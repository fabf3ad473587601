/*
Package triage provides graph-based routing of user text through
classifier-driven workflows.

# Overview

A workflow is a directed graph. Nodes read a shared State and return a
partial Update. Edges decide where control goes next: a simple edge
always continues to the same node, a conditional edge asks a Router for
a label and looks the label up in a route table.

Graphs are validated once by Compile and are immutable afterwards, so a
single CompiledGraph serves any number of concurrent runs.

# State

Every key a graph reads or writes is registered in a Schema together with
a WriteStrategy that decides how updates are merged:

	schema := triage.NewSchema().
	    Register("input", triage.Replace{}).
	    Register("classifier_output", triage.Replace{}).
	    Register("history", triage.Append{})

Each run starts from a fresh State created from the schema. Writing an
unregistered key fails the run.

# Basic Usage

	graph := triage.NewGraph("feedback", schema).
	    AddNode("classify", classifyNode).
	    AddNode("recorder", recorderNode).
	    AddEdge(triage.START, "classify").
	    AddConditionalEdges("classify",
	        triage.NewSubstringRouter("classifier_output", "negative", "positive"),
	        map[string]string{
	            "positive": "recorder",
	            "negative": "recorder",
	        }).
	    AddEdge("recorder", triage.END)

	compiled, err := graph.Compile()
	if err != nil {
	    log.Fatal(err)
	}

	ctx := triage.NewContext(context.Background())
	result, err := compiled.Run(ctx, map[string]any{"input": "great product"})
	if err != nil {
	    log.Fatal(err)
	}
	solution, err := result.Text("solution", "No solution")
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Println(solution)

# Routing

A Router returns a label and names a fallback label. Compile requires the
fallback to be routed, and for routers that list their labels, every
label to be routed. A label missing from the route table at run time
follows the fallback route.

SubstringRouter matches its labels as case-sensitive substrings of a
state value, in declaration order.

# Validation

Compile reports every problem at once as a *ConstructionError. Builder
mistakes such as duplicate node IDs never panic; they surface here.
Use errors.Is with the Err* sentinels to inspect individual problems.

# Errors

Run returns one of *NodeError, *PanicError, *RouterError,
*CancellationError or *MaxIterationsError. Panics in nodes are recovered
with their stack trace.

	var nodeErr *triage.NodeError
	if errors.As(err, &nodeErr) {
	    log.Printf("node %s failed: %v", nodeErr.NodeID, nodeErr.Err)
	}

# Observability

	result, err := compiled.Run(ctx, input,
	    triage.WithMetrics(observability.NewMetricsRecorder()),
	    triage.WithTracing(observability.NewSpanManager()))

Logs carry run_id and node_id. OpenTelemetry metrics are named
triage.node.executions, triage.graph.runs, triage.route.fallbacks and so
on. Spans nest triage.node.{id} under triage.run.

# Diagrams

CompiledGraph.Diagram renders the graph as PlantUML or Mermaid.

# Subpackages

  - classifier: label extraction from free text, LLM backed
  - nodes: classifier and recorder nodes plus the shared schema
  - llm: chat completion clients (OpenAI, Claude CLI, mock)
  - journal: run history stores (memory, SQLite, Redis, Postgres)
  - registry: named compiled graphs
  - config: file and environment configuration
  - observability: logging, metrics and tracing helpers
*/
package triage
