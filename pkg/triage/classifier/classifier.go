// Package classifier turns free text into a category label.
//
// The LLM implementation asks the model for a JSON answer naming one of the
// supplied categories; Func adapts a plain function for tests and fixed rules.
package classifier

import (
	"context"
	"errors"
	"fmt"
)

// Classifier assigns text to one of categories.
// The returned label is the model's raw category text; callers route on it
// by substring, so it need not match a category exactly.
type Classifier interface {
	Classify(ctx context.Context, text string, categories, instructions []string) (string, error)
}

// Func adapts a function to the Classifier interface.
type Func func(ctx context.Context, text string, categories, instructions []string) (string, error)

// Classify implements Classifier.
func (f Func) Classify(ctx context.Context, text string, categories, instructions []string) (string, error) {
	return f(ctx, text, categories, instructions)
}

// ErrEmptyLabel is returned when the model produced no usable label.
var ErrEmptyLabel = errors.New("classifier: empty label")

// Failure is a classification that could not produce a label.
// It covers transport errors, provider errors and unusable answers.
type Failure struct {
	// Input is the text being classified.
	Input string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Failure) Error() string {
	return fmt.Sprintf("classification failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *Failure) Unwrap() error {
	return e.Err
}

// IsFailure reports whether err contains a *Failure.
func IsFailure(err error) bool {
	var f *Failure
	return errors.As(err, &f)
}
