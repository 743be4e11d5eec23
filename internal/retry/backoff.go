package retry

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/vyrodovalexey/avabackoff/internal/backoff"
)

// Backoff defines the interface for wait providers.
type Backoff interface {
	// Next returns the duration to wait before the given retry (1-based).
	Next(retry int) time.Duration
}

// PolicyBackoff draws waits from the jitter range of a backoff policy.
type PolicyBackoff struct {
	cfg backoff.BackoffConfig

	mu   sync.Mutex
	rand *rand.Rand
}

// BackoffOption is a functional option for configuring a PolicyBackoff.
type BackoffOption func(*PolicyBackoff)

// WithSeed makes draws reproducible.
func WithSeed(seed int64) BackoffOption {
	return func(b *PolicyBackoff) {
		b.rand = rand.New(rand.NewSource(seed)) //nolint:gosec // jitter timing is not security-sensitive
	}
}

// NewPolicyBackoff creates a backoff for a valid policy.
func NewPolicyBackoff(cfg *backoff.BackoffConfig, opts ...BackoffOption) (*PolicyBackoff, error) {
	if errs := backoff.ValidateConfig(cfg); errs.HasErrors() {
		return nil, &backoff.InvalidConfigError{Errors: errs}
	}

	b := &PolicyBackoff{
		cfg:  *cfg,
		rand: rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // jitter timing is not security-sensitive
	}
	if cfg.MaxDelayMs != nil {
		maxDelay := *cfg.MaxDelayMs
		b.cfg.MaxDelayMs = &maxDelay
	}

	for _, opt := range opts {
		opt(b)
	}

	return b, nil
}

// Range returns the jitter range of the given retry. Retries below 1 are
// treated as the first retry.
func (b *PolicyBackoff) Range(retry int) backoff.JitterRange {
	if retry < 1 {
		retry = 1
	}

	// The policy was validated in NewPolicyBackoff, so neither helper can fail.
	capped, _ := backoff.CappedDelayAt(&b.cfg, retry)
	rng, _ := backoff.JitterRangeOf(capped, b.cfg.Jitter)
	return rng
}

// Next implements Backoff.
func (b *PolicyBackoff) Next(retry int) time.Duration {
	rng := b.Range(retry)

	b.mu.Lock()
	ms := Draw(b.rand, rng)
	b.mu.Unlock()

	return msToDuration(ms)
}

// maxWaitMs is the longest wait a time.Duration can hold, in milliseconds.
const maxWaitMs = float64(math.MaxInt64 / int64(time.Millisecond))

// msToDuration converts milliseconds to a duration, saturating at the
// largest duration for uncapped delays past its range.
func msToDuration(ms float64) time.Duration {
	if !(ms < maxWaitMs) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ms * float64(time.Millisecond))
}

// Draw returns a value drawn uniformly from [rng.MinMs, rng.MaxMs].
// A range without jitter returns its single value.
func Draw(r *rand.Rand, rng backoff.JitterRange) float64 {
	if rng.MaxMs <= rng.MinMs {
		return rng.MinMs
	}
	return rng.MinMs + r.Float64()*(rng.MaxMs-rng.MinMs)
}
