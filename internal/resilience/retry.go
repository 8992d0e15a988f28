// Package resilience provides the retry engine and circuit breaker used for
// calls to external services.
package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Options controls WithRetry.
type Options struct {
	// MaxAttempts is the total number of attempts including the first.
	// Default: 3.
	MaxAttempts int

	// BaseDelay is the delay before the first retry. Default: 1s.
	BaseDelay time.Duration

	// MaxDelay caps the pre-jitter delay. Default: 30s.
	MaxDelay time.Duration

	// ShouldRetry overrides the default classifier. If nil, IsRetryable is used.
	ShouldRetry func(err error) bool

	// OnRetry is called before each retry sleep.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultOptions returns the options used when no configuration is supplied.
func DefaultOptions() Options {
	return Options{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// FromConfig builds Options from configured values. Non-positive values fall
// back to DefaultOptions.
func FromConfig(maxAttempts, baseDelayMs, maxDelayMs int) Options {
	opts := DefaultOptions()
	if maxAttempts > 0 {
		opts.MaxAttempts = maxAttempts
	}
	if baseDelayMs > 0 {
		opts.BaseDelay = time.Duration(baseDelayMs) * time.Millisecond
	}
	if maxDelayMs > 0 {
		opts.MaxDelay = time.Duration(maxDelayMs) * time.Millisecond
	}
	return opts
}

// WithRetry runs op until it succeeds, returns a non-retryable error, the
// attempts are exhausted, or ctx is done. The last error is returned
// unchanged so callers can still classify it.
func WithRetry[T any](ctx context.Context, name string, opts Options, op func(ctx context.Context) (T, error)) (T, error) {
	opts = applyDefaults(opts)
	shouldRetry := opts.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsRetryable
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		val, err := op(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !shouldRetry(err) || attempt == opts.MaxAttempts {
			return zero, lastErr
		}

		delay := Backoff(attempt, opts.BaseDelay, opts.MaxDelay)
		zap.L().Warn("retrying operation",
			zap.String("operation", name),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if opts.OnRetry != nil {
			opts.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
	return zero, lastErr
}

// Backoff returns the sleep after a failed attempt (1-based):
// min(maxDelay, base*2^(attempt-1)) scaled by a uniform factor in [0.75, 1.25].
func Backoff(attempt int, base, maxDelay time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(maxDelay)
	if attempt <= 62 {
		if d := float64(base) * float64(int64(1)<<(attempt-1)); d < delay {
			delay = d
		}
	}
	delay *= 0.75 + rand.Float64()*0.5
	return time.Duration(delay)
}

func applyDefaults(opts Options) Options {
	def := DefaultOptions()
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = def.BaseDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = def.MaxDelay
	}
	return opts
}
