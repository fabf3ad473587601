package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/randalmurphal/triage/internal/runner"
	"github.com/randalmurphal/triage/internal/workflows"
	"github.com/randalmurphal/triage/pkg/triage"
	"github.com/randalmurphal/triage/pkg/triage/classifier"
	"github.com/randalmurphal/triage/pkg/triage/config"
	"github.com/randalmurphal/triage/pkg/triage/journal"
	"github.com/randalmurphal/triage/pkg/triage/llm"
	"github.com/randalmurphal/triage/pkg/triage/observability"
	"github.com/randalmurphal/triage/pkg/triage/registry"
	"github.com/randalmurphal/triage/pkg/triage/retry"
)

var errMissingAPIKey = errors.New("llm api key is required for the openai provider " +
	"(set TRIAGE_LLM_API_KEY, OPENAI_API_KEY or DASHSCOPE_API_KEY)")

// newLLMClient builds the chat model client selected by cfg.Provider,
// wrapped with request logging.
func newLLMClient(cfg config.LLMConfig, logger *slog.Logger) (llm.Client, error) {
	var client llm.Client
	switch cfg.Provider {
	case config.ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, errMissingAPIKey
		}
		opts := []llm.OpenAIOption{
			llm.WithBaseURL(cfg.BaseURL),
			llm.WithModel(cfg.Model),
			llm.WithTimeout(cfg.Timeout),
		}
		if cfg.MaxTokens > 0 {
			opts = append(opts, llm.WithMaxTokens(cfg.MaxTokens))
		}
		if cfg.Temperature > 0 {
			opts = append(opts, llm.WithTemperature(cfg.Temperature))
		}
		if cfg.TopP > 0 {
			opts = append(opts, llm.WithTopP(cfg.TopP))
		}
		client = llm.NewOpenAI(cfg.APIKey, opts...)
	case config.ProviderClaudeCLI:
		client = llm.NewClaudeCLI(
			llm.WithClaudePath(cfg.ClaudePath),
			llm.WithClaudeModel(cfg.Model),
			llm.WithClaudeTimeout(cfg.Timeout),
		)
	case config.ProviderMock:
		mock := llm.NewMockClient("")
		if len(cfg.MockResponses) > 0 {
			mock.WithResponses(cfg.MockResponses...)
		}
		client = mock
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	return llm.WithLogging(client, logger), nil
}

// newClassifier wraps client with the configured retry policy.
func newClassifier(client llm.Client, cfg config.LLMConfig, logger *slog.Logger) classifier.Classifier {
	policy := retry.New(
		retry.WithMaxAttempts(cfg.MaxAttempts),
		retry.WithRetryableFunc(llm.IsRetryable),
	)
	return classifier.NewLLM(client,
		classifier.WithRetry(policy),
		classifier.WithTemperature(cfg.Temperature),
		classifier.WithLogger(logger),
	)
}

// services is everything a front door needs to run graphs.
type services struct {
	runner *runner.Runner
	chat   llm.Client
	close  func(context.Context)
}

// newServices wires the LLM client, the graph registry, the journal and
// observability from configuration. Graphs that fail to build are logged
// and left out.
func newServices(ctx context.Context, cfg config.AppConfig, logger *slog.Logger) (*services, error) {
	client, err := newLLMClient(cfg.LLM, logger)
	if err != nil {
		return nil, err
	}

	reg := registry.New()
	if err := workflows.RegisterAll(reg, logger, newClassifier(client, cfg.LLM, logger)); err != nil {
		logger.Warn("some graphs are unavailable", "registered", reg.Names())
	}

	store, err := journal.Open(ctx, cfg.Journal)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	runOpts := []triage.RunOption{triage.WithMetrics(observability.NewMetricsRecorder())}
	shutdownTracing := func(context.Context) error { return nil }
	if cfg.Tracing.Stdout {
		shutdownTracing, err = observability.InstallStdoutTracing(os.Stderr)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		runOpts = append(runOpts, triage.WithTracing(observability.NewSpanManager()))
	}

	r := runner.New(reg,
		runner.WithJournal(store),
		runner.WithLogger(logger),
		runner.WithTimeout(cfg.Server.RunTimeout),
		runner.WithRunOptions(runOpts...),
	)

	return &services{
		runner: r,
		chat:   client,
		close: func(ctx context.Context) {
			if err := shutdownTracing(ctx); err != nil {
				logger.Warn("tracing shutdown failed", "error", err)
			}
			if err := store.Close(); err != nil {
				logger.Warn("journal close failed", "error", err)
			}
		},
	}, nil
}
