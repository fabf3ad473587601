// Package journal keeps a record of every graph run for later inspection.
package journal

import (
	"context"
	"errors"
	"time"
)

// Record describes one finished run, successful or not.
type Record struct {
	RunID    string        `json:"run_id"`
	Graph    string        `json:"graph"`
	Input    string        `json:"input"`
	Solution string        `json:"solution,omitempty"`
	Path     []string      `json:"path"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
	// CreatedAt is set by Save when zero.
	CreatedAt time.Time `json:"created_at"`
}

// Failed reports whether the run ended with an error.
func (r Record) Failed() bool {
	return r.Error != ""
}

// Store persists run records.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores a record. A record with the same RunID is replaced.
	Save(ctx context.Context, rec Record) error

	// Get retrieves a record.
	// Returns ErrNotFound if the run is unknown or has expired.
	Get(ctx context.Context, runID string) (Record, error)

	// List returns up to limit records, newest first.
	// A limit <= 0 means DefaultListLimit.
	List(ctx context.Context, limit int) ([]Record, error)

	// Close releases any resources (connections, files).
	Close() error
}

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 50

// Sentinel errors for journal operations.
var (
	// ErrNotFound indicates a record doesn't exist.
	ErrNotFound = errors.New("run record not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("journal store closed")

	// ErrEmptyRunID indicates a record without a run ID.
	ErrEmptyRunID = errors.New("run record has no run id")
)

// prepare validates rec and fills CreatedAt.
func prepare(rec Record) (Record, error) {
	if rec.RunID == "" {
		return Record{}, ErrEmptyRunID
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return rec, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
