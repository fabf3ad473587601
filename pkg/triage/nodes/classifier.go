package nodes

import (
	"errors"
	"slices"

	"github.com/randalmurphal/triage/pkg/triage"
	"github.com/randalmurphal/triage/pkg/triage/classifier"
)

// Classifier is a node that labels the text at its input key.
type Classifier struct {
	classifier   classifier.Classifier
	inputKey     string
	outputKey    string
	categories   []string
	instructions []string
}

// ClassifierOption configures a Classifier node.
type ClassifierOption func(*Classifier)

// WithInputKey sets the key the text is read from. Default: KeyInput.
func WithInputKey(key string) ClassifierOption {
	return func(n *Classifier) { n.inputKey = key }
}

// WithOutputKey sets the key the label is written to. Default: KeyClassifierOutput.
func WithOutputKey(key string) ClassifierOption {
	return func(n *Classifier) { n.outputKey = key }
}

// WithInstructions adds classification instructions sent with every request.
func WithInstructions(instructions ...string) ClassifierOption {
	return func(n *Classifier) { n.instructions = append(n.instructions, instructions...) }
}

// NewClassifier creates a classifier node choosing among categories.
func NewClassifier(c classifier.Classifier, categories []string, opts ...ClassifierOption) *Classifier {
	if c == nil {
		panic("nodes: classifier cannot be nil")
	}
	n := &Classifier{
		classifier: c,
		inputKey:   KeyInput,
		outputKey:  KeyClassifierOutput,
		categories: slices.Clone(categories),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Categories returns the configured categories.
func (n *Classifier) Categories() []string {
	return slices.Clone(n.categories)
}

// Apply implements triage.Node.
// The label is written verbatim; routing interprets it.
func (n *Classifier) Apply(ctx triage.Context, state *triage.State) (triage.Update, error) {
	if _, ok := state.Get(n.inputKey); !ok {
		return nil, &triage.MissingValueError{Key: n.inputKey}
	}
	text, err := state.Text(n.inputKey)
	if err != nil {
		return nil, err
	}

	label, err := n.classifier.Classify(ctx, text, n.categories, n.instructions)
	if err != nil {
		var failure *classifier.Failure
		if !errors.As(err, &failure) {
			err = &classifier.Failure{Input: text, Err: err}
		}
		return nil, err
	}

	ctx.Logger().Debug("classifier label", "key", n.outputKey, "label", label)
	return triage.Update{n.outputKey: label}, nil
}

// StateKeys implements triage.KeyUser.
func (n *Classifier) StateKeys() []string {
	return []string{n.inputKey, n.outputKey}
}
