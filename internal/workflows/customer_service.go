package workflows

import (
	"github.com/randalmurphal/triage/pkg/triage"
	"github.com/randalmurphal/triage/pkg/triage/classifier"
	"github.com/randalmurphal/triage/pkg/triage/nodes"
)

// Node IDs of the customer service graph.
const (
	NodeFeedbackClassifier         = "feedback_classifier"
	NodeSpecificQuestionClassifier = "specific_question_classifier"
	NodeRecorder                   = "recorder"
)

// Feedback and problem categories offered to the classifier.
var (
	FeedbackCategories         = []string{"positive feedback", "negative feedback"}
	SpecificQuestionCategories = []string{"after-sale service", "transportation", "product quality", "others"}
)

// NewFeedbackRouter routes "positive" labels to praise and everything else
// to the negative branch.
func NewFeedbackRouter() *triage.SubstringRouter {
	return triage.NewSubstringRouter(nodes.KeyClassifierOutput, "negative", "positive")
}

// NewSpecificQuestionRouter picks the problem area of negative feedback.
// When a label names several areas the first in after-sale, quality,
// transportation order wins.
func NewSpecificQuestionRouter() *triage.SubstringRouter {
	return triage.NewSubstringRouter(nodes.KeyClassifierOutput, "others",
		"after-sale", "quality", "transportation")
}

// NewCustomerService builds the feedback triage graph:
//
//	feedback_classifier --positive--> recorder
//	feedback_classifier --negative--> specific_question_classifier --*--> recorder
func NewCustomerService(c classifier.Classifier) (*triage.CompiledGraph, error) {
	if c == nil {
		return nil, ErrNilClassifier
	}

	feedback := nodes.NewClassifier(c, FeedbackCategories,
		nodes.WithInstructions("Try to understand the user's feeling when he/she is giving the feedback."))
	specific := nodes.NewClassifier(c, SpecificQuestionCategories,
		nodes.WithInstructions("What kind of service or help the customer is trying to get from us? "+
			"Classify the question based on your understanding."))

	return triage.NewGraph(CustomerService, nodes.Schema()).
		AddNode(NodeFeedbackClassifier, feedback).
		AddNode(NodeSpecificQuestionClassifier, specific).
		AddNode(NodeRecorder, nodes.NewRecorder()).
		AddEdge(triage.START, NodeFeedbackClassifier).
		AddConditionalEdges(NodeFeedbackClassifier, NewFeedbackRouter(), map[string]string{
			"positive": NodeRecorder,
			"negative": NodeSpecificQuestionClassifier,
		}).
		AddConditionalEdges(NodeSpecificQuestionClassifier, NewSpecificQuestionRouter(), map[string]string{
			"after-sale":     NodeRecorder,
			"transportation": NodeRecorder,
			"quality":        NodeRecorder,
			"others":         NodeRecorder,
		}).
		AddEdge(NodeRecorder, triage.END).
		Compile()
}
