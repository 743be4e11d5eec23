package retry

import (
	"context"
	"time"

	"github.com/vyrodovalexey/avabackoff/internal/backoff"
)

// Default policy constants.
const (
	// DefaultMaxRetries is the default number of retries.
	DefaultMaxRetries = 3

	// DefaultInitialDelayMs is the default delay before the first retry.
	DefaultInitialDelayMs = 100

	// DefaultMaxDelayMs is the default cap.
	DefaultMaxDelayMs = 30000

	// DefaultFactor is the default exponential growth factor.
	DefaultFactor = 2.0
)

// DefaultPolicy returns an exponential policy with equal jitter.
func DefaultPolicy() *backoff.BackoffConfig {
	return &backoff.BackoffConfig{
		Strategy:       backoff.StrategyExponential,
		InitialDelayMs: DefaultInitialDelayMs,
		MaxRetries:     DefaultMaxRetries,
		MaxDelayMs:     backoff.Cap(DefaultMaxDelayMs),
		Factor:         DefaultFactor,
		Jitter:         backoff.JitterEqual,
	}
}

// RetryableFunc is a function that can be retried.
type RetryableFunc func() error

// ShouldRetryFunc determines if an error should trigger a retry.
type ShouldRetryFunc func(error) bool

// OnRetryFunc is called before each retry with the 1-based retry number.
type OnRetryFunc func(retry int, err error, wait time.Duration)

// Options contains optional retry behavior configuration.
type Options struct {
	// ShouldRetry determines if an error should trigger a retry.
	// If nil, all errors are retried.
	ShouldRetry ShouldRetryFunc

	// OnRetry is called before each retry.
	OnRetry OnRetryFunc

	// Backoff overrides the waits derived from the policy.
	Backoff Backoff

	// Metrics records attempts and waits when set.
	Metrics *Metrics

	// Operation labels the metrics.
	Operation string
}

// Do executes fn once and then up to MaxRetries more times while it fails.
// A nil policy uses DefaultPolicy; an invalid policy returns an
// *backoff.InvalidConfigError before fn is called.
func Do(ctx context.Context, cfg *backoff.BackoffConfig, fn RetryableFunc, opts *Options) error {
	if cfg == nil {
		cfg = DefaultPolicy()
	}
	if opts == nil {
		opts = &Options{}
	}

	policy, err := NewPolicyBackoff(cfg)
	if err != nil {
		return err
	}
	var waits Backoff = policy
	if opts.Backoff != nil {
		waits = opts.Backoff
	}

	maxRetries := cfg.Retries()
	start := time.Now()

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		// Check context before each attempt
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		opts.Metrics.recordAttempt(opts.Operation)
		lastErr = fn()
		if lastErr == nil {
			opts.Metrics.recordResult(opts.Operation, true, time.Since(start))
			return nil
		}

		// Check if error is retryable
		if opts.ShouldRetry != nil && !opts.ShouldRetry(lastErr) {
			break
		}

		// Don't sleep after the last attempt
		if attempt < maxRetries {
			wait := waits.Next(attempt + 1)

			if opts.OnRetry != nil {
				opts.OnRetry(attempt+1, lastErr, wait)
			}
			opts.Metrics.recordWait(opts.Operation, wait)

			if err := sleep(ctx, wait); err != nil {
				return err
			}
		}
	}

	opts.Metrics.recordResult(opts.Operation, false, time.Since(start))
	return lastErr
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
