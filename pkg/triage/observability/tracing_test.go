package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTracingTest installs a tracer provider that records spans in memory.
func setupTracingTest(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("shutdown tracer provider: %v", err)
		}
	})
	return exporter
}

func attrValue(attrs []attribute.KeyValue, key string) (string, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value.AsString(), true
		}
	}
	return "", false
}

func TestSpanManager_RunAndNodeSpans(t *testing.T) {
	exporter := setupTracingTest(t)
	sm := NewSpanManager()

	ctx, runSpan := sm.StartRunSpan(context.Background(), "customerService", "run-1")
	_, nodeSpan := sm.StartNodeSpan(ctx, "recorder")
	sm.EndSpanWithError(nodeSpan, nil)
	sm.EndSpanWithError(runSpan, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	node, run := spans[0], spans[1]
	assert.Equal(t, "triage.node.recorder", node.Name)
	assert.Equal(t, "triage.run", run.Name)
	assert.Equal(t, run.SpanContext.SpanID(), node.Parent.SpanID())
	assert.Equal(t, codes.Ok, run.Status.Code)

	name, ok := attrValue(run.Attributes, string(AttrGraph))
	require.True(t, ok)
	assert.Equal(t, "customerService", name)
	id, ok := attrValue(run.Attributes, string(AttrRunID))
	require.True(t, ok)
	assert.Equal(t, "run-1", id)
}

func TestSpanManager_Route(t *testing.T) {
	exporter := setupTracingTest(t)
	sm := NewSpanManager()

	ctx, span := sm.StartRunSpan(context.Background(), "deviceOps", "run-2")
	sm.Route(ctx, "level1_classifier", "Other", "recorder", true)
	sm.EndSpanWithError(span, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events, 1)

	event := spans[0].Events[0]
	assert.Equal(t, "route", event.Name)
	label, ok := attrValue(event.Attributes, string(AttrLabel))
	require.True(t, ok)
	assert.Equal(t, "Other", label)
	to, _ := attrValue(event.Attributes, string(AttrTarget))
	assert.Equal(t, "recorder", to)
}

func TestSpanManager_RouteWithoutSpan(t *testing.T) {
	assert.NotPanics(t, func() {
		NewSpanManager().Route(context.Background(), "a", "b", "c", false)
	})
}

func TestSpanManager_EndSpanWithError(t *testing.T) {
	exporter := setupTracingTest(t)
	sm := NewSpanManager()

	_, span := sm.StartNodeSpan(context.Background(), "feedback_classifier")
	sm.EndSpanWithError(span, errors.New("classifier unavailable"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "classifier unavailable", spans[0].Status.Description)
	require.NotEmpty(t, spans[0].Events)
	assert.Equal(t, "exception", spans[0].Events[0].Name)
}

func TestSpanManager_EndNilSpan(t *testing.T) {
	assert.NotPanics(t, func() {
		NewSpanManager().EndSpanWithError(nil, errors.New("x"))
	})
}

func TestNoopSpanManager(t *testing.T) {
	sm := NoopSpanManager{}
	ctx := context.Background()

	got, span := sm.StartRunSpan(ctx, "g", "r")
	assert.Equal(t, ctx, got)
	assert.False(t, span.IsRecording())

	got, span = sm.StartNodeSpan(ctx, "n")
	assert.Equal(t, ctx, got)
	sm.Route(ctx, "n", "label", "m", true)
	sm.EndSpanWithError(span, errors.New("ignored"))
}

func TestInstallStdoutTracing(t *testing.T) {
	original := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(original) })

	var buf bytes.Buffer
	shutdown, err := InstallStdoutTracing(&buf)
	require.NoError(t, err)

	_, span := NewSpanManager().StartRunSpan(context.Background(), "deviceOps", "run-9")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), `"Name": "triage.run"`)
	assert.Contains(t, buf.String(), "run-9")
}
