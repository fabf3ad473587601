// Package observability carries the logging, metrics and tracing hooks the
// executor calls during a run.
//
// Logging is slog. Metrics and spans go through OpenTelemetry behind the
// MetricsRecorder and SpanManager interfaces; the Noop implementations are
// the defaults, so nothing is exported unless a caller opts in.
package observability

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// NewLogger builds a slog.Logger writing to w.
// format is "json" or "text" (empty means text); level is debug, info, warn
// or error in any case.
func NewLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("unsupported log format: %s", format)
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// LogRunStart logs the start of a run.
func LogRunStart(logger *slog.Logger, runID string) {
	if logger != nil {
		logger.Info("run started", slog.String("run_id", runID))
	}
}

// LogRunComplete logs a finished run and the path it took.
func LogRunComplete(logger *slog.Logger, runID string, d time.Duration, path []string) {
	if logger == nil {
		return
	}
	logger.Info("run completed",
		slog.String("run_id", runID),
		slog.Float64("duration_ms", millis(d)),
		slog.String("path", strings.Join(path, " > ")),
		slog.Int("steps", len(path)),
	)
}

// LogRunError logs a failed run. node is where it stopped, if known.
func LogRunError(logger *slog.Logger, runID string, err error, d time.Duration, node string) {
	if logger == nil {
		return
	}
	attrs := []any{
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", millis(d)),
	}
	if node != "" {
		attrs = append(attrs, slog.String("node_id", node))
	}
	logger.Error("run failed", attrs...)
}

// LogNodeStart logs a node about to be applied.
func LogNodeStart(logger *slog.Logger, nodeID string) {
	if logger != nil {
		logger.Debug("node started", slog.String("node_id", nodeID))
	}
}

// LogNodeComplete logs a node whose update was merged.
func LogNodeComplete(logger *slog.Logger, nodeID string, d time.Duration) {
	if logger != nil {
		logger.Debug("node completed",
			slog.String("node_id", nodeID),
			slog.Float64("duration_ms", millis(d)),
		)
	}
}

// LogNodeError logs a node failure.
func LogNodeError(logger *slog.Logger, nodeID string, err error) {
	if logger != nil {
		logger.Error("node failed",
			slog.String("node_id", nodeID),
			slog.String("error", err.Error()),
		)
	}
}

// LogRoute logs a routing decision. label is the label that was followed;
// fallback reports that the router's own answer had no route.
func LogRoute(logger *slog.Logger, from, label, to string, fallback bool) {
	if logger == nil {
		return
	}
	msg := "route selected"
	if fallback {
		msg = "route fallback"
	}
	logger.Debug(msg,
		slog.String("from", from),
		slog.String("label", label),
		slog.String("to", to),
	)
}
