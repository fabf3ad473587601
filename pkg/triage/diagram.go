package triage

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// DiagramFormat selects the text representation produced by Diagram.
type DiagramFormat string

const (
	// FormatPlantUML renders a PlantUML state diagram.
	FormatPlantUML DiagramFormat = "plantuml"
	// FormatMermaid renders a Mermaid flowchart.
	FormatMermaid DiagramFormat = "mermaid"
)

// ParseDiagramFormat validates a format name. Matching is case-insensitive.
func ParseDiagramFormat(s string) (DiagramFormat, error) {
	switch f := DiagramFormat(strings.ToLower(s)); f {
	case FormatPlantUML, FormatMermaid:
		return f, nil
	case "":
		return FormatPlantUML, nil
	default:
		return "", fmt.Errorf("unsupported diagram format: %s", s)
	}
}

// diagramEdge is one drawable transition. label is empty for simple edges.
type diagramEdge struct {
	from, to, label string
	fallback        bool
}

// edges lists every transition: START first, then nodes in registration
// order; conditional routes are sorted by label.
func (cg *CompiledGraph) edges() []diagramEdge {
	out := []diagramEdge{{from: START, to: cg.entryPoint}}
	for _, id := range cg.order {
		if to, ok := cg.next[id]; ok {
			out = append(out, diagramEdge{from: id, to: to})
			continue
		}
		ce := cg.conditionalEdges[id]
		if ce == nil {
			continue
		}
		fallback := ce.router.Fallback()
		for _, label := range slices.Sorted(maps.Keys(ce.routes)) {
			out = append(out, diagramEdge{
				from:     id,
				to:       ce.routes[label],
				label:    label,
				fallback: label == fallback,
			})
		}
	}
	return out
}

// diagramIDs names every node by its registration index (n0, n1, ...).
// Node IDs appear only as labels.
func (cg *CompiledGraph) diagramIDs() map[string]string {
	ids := make(map[string]string, len(cg.order)+2)
	for i, id := range cg.order {
		ids[id] = fmt.Sprintf("n%d", i)
	}
	return ids
}

// Diagram renders the graph's structure.
//
// Example (PlantUML):
//
//	@startuml customerService
//	hide empty description
//	state "feedback_classifier" as n0
//	state "recorder" as n1
//	[*] --> n0
//	n0 --> n1 : positive
//	...
//	@enduml
func (cg *CompiledGraph) Diagram(format DiagramFormat) (string, error) {
	switch format {
	case FormatPlantUML:
		return cg.plantUML(), nil
	case FormatMermaid:
		return cg.mermaid(), nil
	default:
		return "", fmt.Errorf("unsupported diagram format: %s", format)
	}
}

func (cg *CompiledGraph) plantUML() string {
	ids := cg.diagramIDs()
	ids[START], ids[END] = "[*]", "[*]"

	var sb strings.Builder
	fmt.Fprintf(&sb, "@startuml %s\n", cg.name)
	sb.WriteString("hide empty description\n")
	for _, id := range cg.order {
		fmt.Fprintf(&sb, "state %q as %s\n", id, ids[id])
	}

	for _, e := range cg.edges() {
		from, to := ids[e.from], ids[e.to]
		switch {
		case e.label == "":
			fmt.Fprintf(&sb, "%s --> %s\n", from, to)
		case e.fallback:
			fmt.Fprintf(&sb, "%s -[dashed]-> %s : %s\n", from, to, e.label)
		default:
			fmt.Fprintf(&sb, "%s --> %s : %s\n", from, to, e.label)
		}
	}
	sb.WriteString("@enduml\n")
	return sb.String()
}

func (cg *CompiledGraph) mermaid() string {
	ids := cg.diagramIDs()
	ids[START], ids[END] = START, END

	var sb strings.Builder
	sb.WriteString("flowchart TD\n")
	fmt.Fprintf(&sb, "    %s((start))\n", ids[START])
	for _, id := range cg.order {
		fmt.Fprintf(&sb, "    %s[%q]\n", ids[id], id)
	}
	fmt.Fprintf(&sb, "    %s((end))\n", ids[END])

	for _, e := range cg.edges() {
		from, to := ids[e.from], ids[e.to]
		switch {
		case e.label == "":
			fmt.Fprintf(&sb, "    %s --> %s\n", from, to)
		case e.fallback:
			fmt.Fprintf(&sb, "    %s -.->|%q| %s\n", from, e.label, to)
		default:
			fmt.Fprintf(&sb, "    %s -->|%q| %s\n", from, e.label, to)
		}
	}
	return sb.String()
}
