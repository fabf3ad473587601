// Package nodes provides the node kinds used by the shipped workflows:
// an LLM-backed classifier and the terminal recorder.
package nodes

import "github.com/randalmurphal/triage/pkg/triage"

// Well-known state keys.
const (
	// KeyInput holds the user's text.
	KeyInput = "input"
	// KeyClassifierOutput holds the most recent classifier label.
	KeyClassifierOutput = triage.DefaultRouteKey
	// KeySolution holds the text returned to the caller.
	KeySolution = "solution"
)

// Schema returns a schema registering input, classifier_output and
// solution with the Replace strategy.
func Schema() *triage.Schema {
	return triage.NewSchema().
		Register(KeyInput, triage.Replace{}).
		Register(KeyClassifierOutput, triage.Replace{}).
		Register(KeySolution, triage.Replace{})
}
