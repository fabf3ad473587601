// Package retry categorizes failures and retries transient ones with
// exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Category says whether another attempt could succeed.
type Category int

const (
	// CategoryTransient failures (rate limits, timeouts, overloaded
	// upstreams) are retried.
	CategoryTransient Category = iota

	// CategoryPermanent failures (bad credentials, bad requests,
	// cancellation) are returned at once.
	CategoryPermanent
)

var categoryNames = map[Category]string{
	CategoryTransient: "transient",
	CategoryPermanent: "permanent",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "unknown"
}

// CategorizedError is the error Do returns, and the way callers mark an
// error's category explicitly.
type CategorizedError struct {
	Err      error
	Category Category
	// Attempts made before giving up. Zero when marked by a caller.
	Attempts int
	// Context names the operation, e.g. "classify".
	Context string
}

func (e *CategorizedError) Error() string {
	msg := fmt.Sprintf("%v [%s after %d attempts]", e.Err, e.Category, e.Attempts)
	if e.Context == "" {
		return msg
	}
	return e.Context + ": " + msg
}

func (e *CategorizedError) Unwrap() error { return e.Err }

// Transient marks err as worth retrying.
func Transient(err error, op string) *CategorizedError {
	return &CategorizedError{Err: err, Category: CategoryTransient, Context: op}
}

// Permanent marks err as not worth retrying.
func Permanent(err error, op string) *CategorizedError {
	return &CategorizedError{Err: err, Category: CategoryPermanent, Context: op}
}

// Categorize returns the category of err. An explicit mark anywhere in the
// chain wins, then cancellation (permanent), then network timeouts
// (transient). Everything else is permanent.
func Categorize(err error) Category {
	var marked *CategorizedError
	switch {
	case err == nil:
		return CategoryPermanent
	case errors.As(err, &marked):
		return marked.Category
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CategoryPermanent
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CategoryTransient
	}
	return CategoryPermanent
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	return Categorize(err) == CategoryTransient
}
