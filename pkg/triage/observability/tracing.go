package observability

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentation = "github.com/randalmurphal/triage"

// Span attribute keys.
const (
	AttrGraph    = attribute.Key("triage.graph")
	AttrRunID    = attribute.Key("triage.run_id")
	AttrNode     = attribute.Key("triage.node")
	AttrLabel    = attribute.Key("triage.label")
	AttrTarget   = attribute.Key("triage.target")
	AttrFallback = attribute.Key("triage.fallback")
)

// SpanManager opens the run and node spans and annotates routing.
type SpanManager interface {
	// StartRunSpan opens the root span of a run.
	StartRunSpan(ctx context.Context, graph, runID string) (context.Context, trace.Span)

	// StartNodeSpan opens a child span for one node application.
	StartNodeSpan(ctx context.Context, nodeID string) (context.Context, trace.Span)

	// Route adds a "route" event to the span in ctx.
	Route(ctx context.Context, from, label, to string, fallback bool)

	// EndSpanWithError sets the span status from err and ends it.
	EndSpanWithError(span trace.Span, err error)
}

// otelSpanManager resolves the tracer on every call so a provider installed
// after construction still takes effect.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager backed by the global OTel tracer
// provider.
func NewSpanManager() SpanManager {
	return otelSpanManager{}
}

func (otelSpanManager) tracer() trace.Tracer {
	return otel.Tracer(instrumentation)
}

func (m otelSpanManager) StartRunSpan(ctx context.Context, graph, runID string) (context.Context, trace.Span) {
	return m.tracer().Start(ctx, "triage.run",
		trace.WithAttributes(AttrGraph.String(graph), AttrRunID.String(runID)))
}

func (m otelSpanManager) StartNodeSpan(ctx context.Context, nodeID string) (context.Context, trace.Span) {
	return m.tracer().Start(ctx, "triage.node."+nodeID,
		trace.WithAttributes(AttrNode.String(nodeID)))
}

func (otelSpanManager) Route(ctx context.Context, from, label, to string, fallback bool) {
	trace.SpanFromContext(ctx).AddEvent("route", trace.WithAttributes(
		AttrNode.String(from),
		AttrLabel.String(label),
		AttrTarget.String(to),
		AttrFallback.Bool(fallback),
	))
}

func (otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	defer span.End()
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// InstallStdoutTracing installs a global tracer provider that writes spans
// as indented JSON to w. The returned function flushes and shuts it down.
func InstallStdoutTracing(w io.Writer) (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create stdout exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
