package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avabackoff/internal/backoff"
)

func fastPolicy(retries float64) *backoff.BackoffConfig {
	return &backoff.BackoffConfig{
		Strategy:       backoff.StrategyExponential,
		InitialDelayMs: 1,
		MaxRetries:     retries,
		MaxDelayMs:     backoff.Cap(5),
		Factor:         2,
	}
}

func TestDefaultPolicy(t *testing.T) {
	t.Parallel()

	cfg := DefaultPolicy()

	assert.Empty(t, backoff.ValidateConfig(cfg))
	assert.Equal(t, backoff.StrategyExponential, cfg.Strategy)
	assert.Equal(t, 3, cfg.Retries())
	assert.Equal(t, backoff.JitterEqual, cfg.Jitter)
}

func TestDo_Success(t *testing.T) {
	t.Parallel()

	callCount := 0
	err := Do(context.Background(), fastPolicy(3), func() error {
		callCount++
		return nil
	}, nil)

	assert.NoError(t, err)
	assert.Equal(t, 1, callCount)
}

func TestDo_RetryThenSuccess(t *testing.T) {
	t.Parallel()

	callCount := 0
	err := Do(context.Background(), fastPolicy(3), func() error {
		callCount++
		if callCount < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, nil)

	assert.NoError(t, err)
	assert.Equal(t, 3, callCount)
}

func TestDo_AllRetriesFail(t *testing.T) {
	t.Parallel()

	expectedErr := errors.New("persistent error")
	callCount := 0
	err := Do(context.Background(), fastPolicy(2), func() error {
		callCount++
		return expectedErr
	}, nil)

	assert.ErrorIs(t, err, expectedErr)
	assert.Equal(t, 3, callCount) // Initial + 2 retries
}

func TestDo_ZeroRetries(t *testing.T) {
	t.Parallel()

	callCount := 0
	err := Do(context.Background(), fastPolicy(0), func() error {
		callCount++
		return errors.New("error")
	}, nil)

	assert.Error(t, err)
	assert.Equal(t, 1, callCount)
}

func TestDo_InvalidPolicy(t *testing.T) {
	t.Parallel()

	cfg := fastPolicy(3)
	cfg.Factor = 0.5

	callCount := 0
	err := Do(context.Background(), cfg, func() error {
		callCount++
		return nil
	}, nil)

	assert.ErrorIs(t, err, backoff.ErrInvalidConfig)
	assert.Equal(t, 0, callCount)
}

func TestDo_ContextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cfg := &backoff.BackoffConfig{
		Strategy:       backoff.StrategyFixed,
		InitialDelayMs: 100,
		MaxRetries:     5,
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, cfg, func() error {
		return errors.New("error")
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_ContextCanceledBeforeFirstAttempt(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	callCount := 0
	err := Do(ctx, nil, func() error {
		callCount++
		return nil
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, callCount)
}

func TestDo_ShouldRetryFunc(t *testing.T) {
	t.Parallel()

	retryableErr := errors.New("retryable")
	nonRetryableErr := errors.New("non-retryable")

	callCount := 0
	err := Do(context.Background(), fastPolicy(3), func() error {
		callCount++
		if callCount == 1 {
			return retryableErr
		}
		return nonRetryableErr
	}, &Options{
		ShouldRetry: func(err error) bool {
			return errors.Is(err, retryableErr)
		},
	})

	assert.ErrorIs(t, err, nonRetryableErr)
	assert.Equal(t, 2, callCount) // First call + one retry
}

type recordingBackoff struct {
	retries []int
}

func (r *recordingBackoff) Next(retry int) time.Duration {
	r.retries = append(r.retries, retry)
	return time.Millisecond
}

func TestDo_OnRetryCallbackAndBackoffOverride(t *testing.T) {
	t.Parallel()

	waits := &recordingBackoff{}
	var retryNumbers []int
	var durations []time.Duration

	err := Do(context.Background(), fastPolicy(2), func() error {
		return errors.New("error")
	}, &Options{
		Backoff: waits,
		OnRetry: func(retry int, err error, wait time.Duration) {
			retryNumbers = append(retryNumbers, retry)
			durations = append(durations, wait)
		},
	})

	assert.Error(t, err)
	assert.Equal(t, []int{1, 2}, retryNumbers)
	assert.Equal(t, []int{1, 2}, waits.retries)
	assert.Equal(t, []time.Duration{time.Millisecond, time.Millisecond}, durations)
}

func TestDo_Metrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	metrics := NewMetrics("test", reg)

	callCount := 0
	err := Do(context.Background(), fastPolicy(3), func() error {
		callCount++
		if callCount < 2 {
			return errors.New("flaky")
		}
		return nil
	}, &Options{Metrics: metrics, Operation: "reload"})
	require.NoError(t, err)

	err = Do(context.Background(), fastPolicy(1), func() error {
		return errors.New("down")
	}, &Options{Metrics: metrics, Operation: "reload"})
	require.Error(t, err)

	assert.Equal(t, 4.0, testutil.ToFloat64(metrics.attemptsTotal.WithLabelValues("reload")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.successTotal.WithLabelValues("reload")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.failureTotal.WithLabelValues("reload")))
}
