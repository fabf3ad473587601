// Package llm provides chat-completion clients used by triage classifiers
// and the simple chat endpoint.
//
// Implementations:
//   - OpenAI: any OpenAI-compatible endpoint (OpenAI, DashScope compatible mode)
//   - ClaudeCLI: the claude binary
//   - MockClient: canned responses for tests and offline runs
//
// WithLogging wraps any Client and logs each exchange at debug level.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Client sends completion requests to a language model.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// ErrEmptyResponse is returned when the provider answered without any choices.
var ErrEmptyResponse = errors.New("llm: empty response")

// Error is a failed completion call.
type Error struct {
	// Op is the operation that failed, e.g. "complete".
	Op string
	// Err is the underlying cause.
	Err error
	// Retryable reports whether repeating the call may succeed.
	Retryable bool
}

// NewError creates an Error.
func NewError(op string, err error, retryable bool) *Error {
	return &Error{Op: op, Err: err, Retryable: retryable}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("llm %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is an *Error marked retryable.
func IsRetryable(err error) bool {
	var llmErr *Error
	return errors.As(err, &llmErr) && llmErr.Retryable
}
