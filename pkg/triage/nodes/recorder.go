package nodes

import (
	"strings"

	"github.com/randalmurphal/triage/pkg/triage"
)

// PraiseReply is recorded for positive feedback.
const PraiseReply = "Praise, no action taken."

// Recorder is the terminal node that turns the last label into a solution.
// Labels containing "positive" (case-sensitive) become PraiseReply; any
// other label, including "", is recorded verbatim.
type Recorder struct {
	sourceKey string
	targetKey string
}

// NewRecorder creates a recorder reading KeyClassifierOutput and writing KeySolution.
func NewRecorder() *Recorder {
	return &Recorder{sourceKey: KeyClassifierOutput, targetKey: KeySolution}
}

// Apply implements triage.Node.
func (r *Recorder) Apply(_ triage.Context, state *triage.State) (triage.Update, error) {
	label, err := state.Text(r.sourceKey)
	if err != nil {
		return nil, err
	}
	return triage.Update{r.targetKey: Solution(label)}, nil
}

// StateKeys implements triage.KeyUser.
func (r *Recorder) StateKeys() []string {
	return []string{r.sourceKey, r.targetKey}
}

// Solution maps a classifier label to the recorded reply.
func Solution(label string) string {
	if strings.Contains(label, "positive") {
		return PraiseReply
	}
	return label
}
