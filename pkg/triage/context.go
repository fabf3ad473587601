package triage

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Context is what nodes and routers receive: a context.Context that also
// carries the run's identity and logger.
//
// The executor derives a fresh Context for every node, so NodeID names the
// node being applied and Logger already has run_id and node_id attached.
type Context interface {
	context.Context

	// Logger is never nil.
	Logger() *slog.Logger
	RunID() string
	// NodeID is empty outside node execution.
	NodeID() string
}

type runContext struct {
	context.Context
	log  *slog.Logger
	run  string
	node string
}

func (c *runContext) Logger() *slog.Logger { return c.log }
func (c *runContext) RunID() string        { return c.run }
func (c *runContext) NodeID() string       { return c.node }

// ContextOption configures NewContext.
type ContextOption func(*runContext)

// WithLogger replaces slog.Default. Nil is ignored.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *runContext) {
		if logger != nil {
			c.log = logger
		}
	}
}

// WithRunID fixes the run ID instead of generating a UUID. Empty is ignored.
func WithRunID(id string) ContextOption {
	return func(c *runContext) {
		if id != "" {
			c.run = id
		}
	}
}

// NewContext wraps parent for a single run.
//
//	ctx := triage.NewContext(r.Context(),
//	    triage.WithLogger(logger),
//	    triage.WithRunID(r.Header.Get("X-Request-ID")))
func NewContext(parent context.Context, opts ...ContextOption) Context {
	c := &runContext{Context: parent, log: slog.Default(), run: uuid.NewString()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// forNode scopes ctx to nodeID. Foreign Context implementations pass
// through unchanged.
func forNode(ctx Context, nodeID string) Context {
	c, ok := ctx.(*runContext)
	if !ok {
		return ctx
	}
	scoped := *c
	scoped.node = nodeID
	scoped.log = c.log.With("run_id", c.run, "node_id", nodeID)
	return &scoped
}
