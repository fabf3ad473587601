package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// Config configures Do.
type Config struct {
	// MaxAttempts counts the first call. Values below 1 mean 1.
	MaxAttempts int
	// InitialBackoff is the pause after the first failure.
	InitialBackoff time.Duration
	// MaxBackoff caps the pause. Zero means no cap.
	MaxBackoff time.Duration
	// BackoffFactor multiplies the pause after every failure.
	BackoffFactor float64
	// Jitter spreads each pause by up to this fraction either way.
	Jitter float64
	// RetryableFunc decides retryability. Default: IsTransient.
	RetryableFunc func(error) bool
}

// Default suits chat completion calls: three attempts, half a second
// growing to ten.
var Default = Config{
	MaxAttempts:    3,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     10 * time.Second,
	BackoffFactor:  2.0,
	Jitter:         0.1,
}

// None makes a single attempt.
var None = Config{MaxAttempts: 1}

// Result is the outcome of Do.
type Result[T any] struct {
	Value    T
	Err      error
	Attempts int
	Duration time.Duration
}

// Do calls fn until it succeeds, fails permanently, runs out of attempts
// or ctx ends. A failed Result carries a *CategorizedError wrapping the
// last error (or the context error).
func Do[T any](ctx context.Context, cfg Config, fn func(context.Context) (T, error)) Result[T] {
	start := time.Now()
	retryable := cfg.RetryableFunc
	if retryable == nil {
		retryable = IsTransient
	}
	attempts := max(cfg.MaxAttempts, 1)

	fail := func(err error, made int, cat Category, why string) Result[T] {
		return Result[T]{
			Err:      &CategorizedError{Err: err, Category: cat, Attempts: made, Context: why},
			Attempts: made,
			Duration: time.Since(start),
		}
	}

	wait := cfg.InitialBackoff
	var lastErr error
	for made := 0; made < attempts; made++ {
		if err := ctx.Err(); err != nil {
			return fail(err, made, CategoryPermanent, "context cancelled")
		}

		value, err := fn(ctx)
		if err == nil {
			return Result[T]{Value: value, Attempts: made + 1, Duration: time.Since(start)}
		}
		lastErr = err
		if !retryable(err) {
			return fail(err, made+1, CategoryPermanent, "")
		}
		if made == attempts-1 {
			break
		}

		if err := sleep(ctx, calculateBackoff(wait, cfg.Jitter)); err != nil {
			return fail(err, made+1, CategoryPermanent, "context cancelled during backoff")
		}
		wait = nextBackoff(wait, cfg)
	}

	return fail(lastErr, attempts, Categorize(lastErr), "max retries exceeded")
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current time.Duration, cfg Config) time.Duration {
	next := time.Duration(float64(current) * cfg.BackoffFactor)
	if cfg.MaxBackoff > 0 && next > cfg.MaxBackoff {
		return cfg.MaxBackoff
	}
	return next
}

// calculateBackoff returns base moved by up to base*jitter either way.
func calculateBackoff(base time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return base
	}
	spread := float64(base) * jitter * (rand.Float64()*2 - 1)
	return base + time.Duration(spread)
}

// Option configures a Config built by New.
type Option func(*Config)

func WithMaxAttempts(n int) Option {
	return func(cfg *Config) { cfg.MaxAttempts = n }
}

func WithInitialBackoff(d time.Duration) Option {
	return func(cfg *Config) { cfg.InitialBackoff = d }
}

func WithMaxBackoff(d time.Duration) Option {
	return func(cfg *Config) { cfg.MaxBackoff = d }
}

func WithBackoffFactor(f float64) Option {
	return func(cfg *Config) { cfg.BackoffFactor = f }
}

func WithJitter(j float64) Option {
	return func(cfg *Config) { cfg.Jitter = j }
}

// WithRetryableFunc replaces IsTransient as the retryability check.
func WithRetryableFunc(fn func(error) bool) Option {
	return func(cfg *Config) { cfg.RetryableFunc = fn }
}

// New returns Default with opts applied.
func New(opts ...Option) Config {
	cfg := Default
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
