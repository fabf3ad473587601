package llm

import (
	"context"
	"log/slog"
	"time"
)

type loggingClient struct {
	next   Client
	logger *slog.Logger
}

// WithLogging wraps next so every request and response is logged at debug
// level, and failures at warn.
func WithLogging(next Client, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &loggingClient{next: next, logger: logger}
}

func (c *loggingClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	var prompt string
	if n := len(req.Messages); n > 0 {
		prompt = req.Messages[n-1].Content
	}
	c.logger.DebugContext(ctx, "llm request",
		slog.String("system_prompt", req.SystemPrompt),
		slog.String("prompt", prompt),
		slog.String("model", req.Model),
	)

	start := time.Now()
	resp, err := c.next.Complete(ctx, req)
	if err != nil {
		c.logger.WarnContext(ctx, "llm request failed",
			slog.String("error", err.Error()),
			slog.Bool("retryable", IsRetryable(err)),
			slog.Duration("elapsed", time.Since(start)),
		)
		return nil, err
	}

	c.logger.DebugContext(ctx, "llm response",
		slog.String("content", resp.Content),
		slog.String("model", resp.Model),
		slog.String("finish_reason", resp.FinishReason),
		slog.Int("total_tokens", resp.Usage.TotalTokens),
		slog.Duration("elapsed", time.Since(start)),
	)
	return resp, nil
}
