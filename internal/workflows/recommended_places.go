package workflows

import (
	"github.com/randalmurphal/triage/pkg/triage"
	"github.com/randalmurphal/triage/pkg/triage/classifier"
	"github.com/randalmurphal/triage/pkg/triage/nodes"
)

// NodeIntentClassifier decides whether a place request names a category.
const NodeIntentClassifier = "intent_classifier"

// Intent labels.
const (
	WithIntent    = "with intent"
	WithoutIntent = "without intent"
)

// NewIntentRouter routes "with intent" labels; everything else is without intent.
func NewIntentRouter() *triage.SubstringRouter {
	return triage.NewSubstringRouter(nodes.KeyClassifierOutput, WithoutIntent, WithIntent)
}

// NewRecommendedPlaces builds the place recommendation intent graph.
func NewRecommendedPlaces(c classifier.Classifier) (*triage.CompiledGraph, error) {
	if c == nil {
		return nil, ErrNilClassifier
	}

	intent := nodes.NewClassifier(c, []string{WithIntent, WithoutIntent},
		nodes.WithInstructions("Determine if the user's input specifies a **category of place** to visit "+
			"(e.g., 'coffee shop', 'hospital'). Inputs with a specific category are 'with intent'. "+
			"General inquiries like 'where to go for fun?' are 'without intent'."))

	return triage.NewGraph(RecommendedPlaces, nodes.Schema()).
		AddNode(NodeIntentClassifier, intent).
		AddNode(NodeRecorder, nodes.NewRecorder()).
		AddEdge(triage.START, NodeIntentClassifier).
		AddConditionalEdges(NodeIntentClassifier, NewIntentRouter(), map[string]string{
			WithIntent:    NodeRecorder,
			WithoutIntent: NodeRecorder,
		}).
		AddEdge(NodeRecorder, triage.END).
		Compile()
}
