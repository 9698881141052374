package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"distill/internal/logging"
	"distill/internal/services"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
)

// Executor invokes one external call with bounded retry. Every failure is
// retried identically; classifying retryable vs. permanent errors is left to
// a future product decision, matching current behavior.
type Executor struct {
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
	sleeper     func(ctx context.Context, delay time.Duration) error
}

// Option customizes the executor.
type Option func(*Executor)

// WithMaxAttempts overrides the attempt ceiling (defaults to 3).
func WithMaxAttempts(attempts int) Option {
	return func(e *Executor) {
		if attempts > 0 {
			e.maxAttempts = attempts
		}
	}
}

// WithBaseDelay overrides the backoff base (defaults to 1s).
func WithBaseDelay(delay time.Duration) Option {
	return func(e *Executor) {
		if delay >= 0 {
			e.baseDelay = delay
		}
	}
}

// WithSleeper overrides how backoff sleeps are performed (useful for tests).
func WithSleeper(sleeper func(ctx context.Context, delay time.Duration) error) Option {
	return func(e *Executor) {
		if sleeper != nil {
			e.sleeper = sleeper
		}
	}
}

// New constructs an executor.
func New(logger *slog.Logger, opts ...Option) *Executor {
	e := &Executor{
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		logger:      logging.NewComponentLogger(logger, "call-executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaxAttempts reports the configured attempt ceiling.
func (e *Executor) MaxAttempts() int {
	return e.maxAttempts
}

// Do runs call until it succeeds or attempts are exhausted. After failed
// attempt i (0-indexed), the executor waits base·2^i before the next attempt.
// The final failure is returned tagged provider_call_failed, wrapping the
// last attempt's error; earlier failures are only logged.
func (e *Executor) Do(ctx context.Context, op string, call func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = call(ctx)
		if lastErr == nil {
			return nil
		}

		e.logger.Warn("call attempt failed",
			logging.String("operation", op),
			logging.Int("attempt", attempt+1),
			logging.Int("max_attempts", e.maxAttempts),
			logging.Error(lastErr),
		)

		if attempt+1 < e.maxAttempts {
			if err := e.sleep(ctx, e.baseDelay<<uint(attempt)); err != nil {
				return err
			}
		}
	}

	return services.Wrap(services.ErrProviderCall, "", op,
		fmt.Sprintf("%d attempts exhausted", e.maxAttempts), lastErr)
}

func (e *Executor) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if e.sleeper != nil {
		if err := e.sleeper(ctx, delay); err != nil {
			return err
		}
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
