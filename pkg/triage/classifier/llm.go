package classifier

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/randalmurphal/triage/pkg/triage/llm"
	"github.com/randalmurphal/triage/pkg/triage/prompt"
	"github.com/randalmurphal/triage/pkg/triage/retry"
)

// LLM classifies text by prompting a language model.
type LLM struct {
	client      llm.Client
	retry       retry.Config
	model       string
	temperature float64
	logger      *slog.Logger
}

// Option configures an LLM classifier.
type Option func(*LLM)

// WithRetry sets the retry policy for model calls.
// Default: retry.Default retrying llm errors marked retryable.
func WithRetry(cfg retry.Config) Option {
	return func(c *LLM) { c.retry = cfg }
}

// WithModel overrides the client's default model.
func WithModel(model string) Option {
	return func(c *LLM) { c.model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *LLM) { c.temperature = t }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *LLM) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewLLM creates a classifier backed by client.
func NewLLM(client llm.Client, opts ...Option) *LLM {
	c := &LLM{
		client: client,
		retry:  retry.New(retry.WithRetryableFunc(llm.IsRetryable)),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify implements Classifier.
// Every error is a *Failure.
func (c *LLM) Classify(ctx context.Context, text string, categories, instructions []string) (string, error) {
	system, user, err := prompt.Classification(text, categories, instructions)
	if err != nil {
		return "", &Failure{Input: text, Err: err}
	}

	req := llm.UserRequest(system, user)
	req.Model = c.model
	req.Temperature = c.temperature

	res := retry.Do(ctx, c.retry, func(ctx context.Context) (*llm.CompletionResponse, error) {
		return c.client.Complete(ctx, req)
	})
	if res.Err != nil {
		return "", &Failure{Input: text, Err: res.Err}
	}

	label := ParseLabel(res.Value.Content)
	if label == "" {
		return "", &Failure{Input: text, Err: ErrEmptyLabel}
	}

	c.logger.DebugContext(ctx, "classified",
		slog.String("label", label),
		slog.Int("attempts", res.Attempts),
	)
	return label, nil
}

type answer struct {
	Keywords     []string `json:"keywords"`
	CategoryName string   `json:"category_name"`
}

// ParseLabel extracts the category from a model answer.
// JSON answers (optionally inside a ```json fence) yield category_name;
// anything else is returned trimmed.
func ParseLabel(content string) string {
	raw := strings.TrimSpace(content)
	body := stripFence(raw)

	if strings.HasPrefix(body, "{") {
		var a answer
		if err := json.Unmarshal([]byte(body), &a); err == nil {
			return strings.TrimSpace(a.CategoryName)
		}
	}
	if strings.HasPrefix(body, "[") {
		var as []answer
		if err := json.Unmarshal([]byte(body), &as); err == nil && len(as) > 0 {
			return strings.TrimSpace(as[0].CategoryName)
		}
	}
	return raw
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
