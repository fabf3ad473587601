package observability

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome classifies how a run ended.
type Outcome string

// Run outcomes.
const (
	OutcomeSuccess   Outcome = "success"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// MetricsRecorder records triage metrics.
// Use NewMetricsRecorder for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordNodeExecution records one node application.
	RecordNodeExecution(ctx context.Context, graph, nodeID string, d time.Duration, err error)

	// RecordGraphRun records a finished run.
	RecordGraphRun(ctx context.Context, graph string, outcome Outcome, d time.Duration)

	// RecordRoute records the label followed out of a conditional node.
	// fallback is true when the router's answer had no route of its own.
	RecordRoute(ctx context.Context, graph, nodeID, label string, fallback bool)
}

// Metric names.
const (
	MetricNodeExecutions = "triage.node.executions"
	MetricNodeErrors     = "triage.node.errors"
	MetricNodeLatency    = "triage.node.latency_ms"
	MetricGraphRuns      = "triage.graph.runs"
	MetricGraphLatency   = "triage.graph.latency_ms"
	MetricRouteDecisions = "triage.route.decisions"
	MetricRouteFallbacks = "triage.route.fallbacks"
)

type otelMetrics struct {
	nodeExecutions metric.Int64Counter
	nodeErrors     metric.Int64Counter
	nodeLatency    metric.Float64Histogram
	graphRuns      metric.Int64Counter
	graphLatency   metric.Float64Histogram
	routes         metric.Int64Counter
	fallbacks      metric.Int64Counter
}

var (
	sharedMetrics     *otelMetrics
	sharedMetricsErr  error
	sharedMetricsOnce sync.Once
)

// newOtelMetrics creates the instruments on the global meter provider.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter(instrumentation)
	var errs []error

	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		errs = append(errs, err)
		return c
	}
	histogram := func(name, desc string) metric.Float64Histogram {
		h, err := meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("ms"))
		errs = append(errs, err)
		return h
	}

	m := &otelMetrics{
		nodeExecutions: counter(MetricNodeExecutions, "Node applications"),
		nodeErrors:     counter(MetricNodeErrors, "Node applications that failed"),
		nodeLatency:    histogram(MetricNodeLatency, "Node application latency"),
		graphRuns:      counter(MetricGraphRuns, "Finished runs by outcome"),
		graphLatency:   histogram(MetricGraphLatency, "Run latency"),
		routes:         counter(MetricRouteDecisions, "Labels followed out of conditional nodes"),
		fallbacks:      counter(MetricRouteFallbacks, "Router answers that had no route and followed the fallback"),
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

// NewMetricsRecorder returns a recorder on the global OTel meter provider.
// Instruments are created once per process; if that fails the no-op
// recorder is returned and a warning logged.
func NewMetricsRecorder() MetricsRecorder {
	sharedMetricsOnce.Do(func() {
		sharedMetrics, sharedMetricsErr = newOtelMetrics()
	})
	if sharedMetricsErr != nil {
		slog.Warn("metrics disabled", slog.String("error", sharedMetricsErr.Error()))
		return NoopMetrics{}
	}
	return sharedMetrics
}

func (m *otelMetrics) RecordNodeExecution(ctx context.Context, graph, nodeID string, d time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("graph", graph), attribute.String("node_id", nodeID))
	m.nodeExecutions.Add(ctx, 1, attrs)
	m.nodeLatency.Record(ctx, millis(d), attrs)
	if err != nil {
		m.nodeErrors.Add(ctx, 1, attrs)
	}
}

func (m *otelMetrics) RecordGraphRun(ctx context.Context, graph string, outcome Outcome, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("graph", graph), attribute.String("outcome", string(outcome)))
	m.graphRuns.Add(ctx, 1, attrs)
	m.graphLatency.Record(ctx, millis(d), attrs)
}

func (m *otelMetrics) RecordRoute(ctx context.Context, graph, nodeID, label string, fallback bool) {
	m.routes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("graph", graph),
		attribute.String("node_id", nodeID),
		attribute.String("label", label),
	))
	if fallback {
		m.fallbacks.Add(ctx, 1, metric.WithAttributes(
			attribute.String("graph", graph),
			attribute.String("node_id", nodeID),
		))
	}
}
