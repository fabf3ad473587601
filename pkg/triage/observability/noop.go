package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics discards everything.
type NoopMetrics struct{}

var _ MetricsRecorder = NoopMetrics{}

func (NoopMetrics) RecordNodeExecution(context.Context, string, string, time.Duration, error) {}

func (NoopMetrics) RecordGraphRun(context.Context, string, Outcome, time.Duration) {}

func (NoopMetrics) RecordRoute(context.Context, string, string, string, bool) {}

// NoopSpanManager returns ctx unchanged and non-recording spans.
type NoopSpanManager struct{}

var _ SpanManager = NoopSpanManager{}

func (NoopSpanManager) StartRunSpan(ctx context.Context, _, _ string) (context.Context, trace.Span) {
	return ctx, noop.Span{}
}

func (NoopSpanManager) StartNodeSpan(ctx context.Context, _ string) (context.Context, trace.Span) {
	return ctx, noop.Span{}
}

func (NoopSpanManager) Route(context.Context, string, string, string, bool) {}

func (NoopSpanManager) EndSpanWithError(trace.Span, error) {}
