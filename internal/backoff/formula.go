package backoff

import (
	"fmt"
	"math"
)

// Jitter range multipliers applied to the capped delay.
const (
	// EqualJitterMinRatio is the fixed half kept by equal jitter.
	EqualJitterMinRatio = 0.5

	// EqualJitterExpectedRatio is the expected value of equal jitter:
	// half fixed plus the mean of a uniform draw over the other half.
	EqualJitterExpectedRatio = 0.75

	// FullJitterExpectedRatio is the mean of a uniform draw between zero and the cap.
	FullJitterExpectedRatio = 0.5
)

// JitterRange is the deterministic envelope of a jittered delay.
type JitterRange struct {
	MinMs      float64 `json:"minMs"`
	ExpectedMs float64 `json:"expectedMs"`
	MaxMs      float64 `json:"maxMs"`
}

// RawDelayAt returns the uncapped delay for retry r (1-based).
func RawDelayAt(cfg *BackoffConfig, r int) (float64, error) {
	switch cfg.Strategy {
	case StrategyExponential:
		// 0 · f^(r−1) is 0 even where the power overflows to +Inf.
		if cfg.InitialDelayMs == 0 {
			return 0, nil
		}
		return cfg.InitialDelayMs * math.Pow(cfg.Factor, float64(r-1)), nil
	case StrategyLinear:
		return cfg.InitialDelayMs + float64(r-1)*cfg.IncrementMs, nil
	case StrategyFixed:
		return cfg.InitialDelayMs, nil
	default:
		return 0, fmt.Errorf("%w: unknown strategy %q", ErrInvalidConfig, cfg.Strategy)
	}
}

// CappedDelayAt returns the delay for retry r after the cap is applied.
func CappedDelayAt(cfg *BackoffConfig, r int) (float64, error) {
	raw, err := RawDelayAt(cfg, r)
	if err != nil {
		return 0, err
	}
	return applyCap(cfg, raw), nil
}

// applyCap clamps raw to the cap. A raw delay past the float64 range is
// clamped too, so a capped delay is always finite.
func applyCap(cfg *BackoffConfig, raw float64) float64 {
	if cfg.MaxDelayMs == nil {
		return raw
	}
	if !isFinite(raw) {
		return *cfg.MaxDelayMs
	}
	return math.Min(raw, *cfg.MaxDelayMs)
}

// JitterRangeOf derives the jitter envelope around value. An unset jitter
// resolves to JitterNone.
func JitterRangeOf(value float64, jitter Jitter) (JitterRange, error) {
	if jitter == "" {
		jitter = JitterNone
	}

	switch jitter {
	case JitterNone:
		return JitterRange{MinMs: value, ExpectedMs: value, MaxMs: value}, nil
	case JitterEqual:
		return JitterRange{
			MinMs:      value * EqualJitterMinRatio,
			ExpectedMs: value * EqualJitterExpectedRatio,
			MaxMs:      value,
		}, nil
	case JitterFull:
		return JitterRange{
			MinMs:      0,
			ExpectedMs: value * FullJitterExpectedRatio,
			MaxMs:      value,
		}, nil
	default:
		return JitterRange{}, fmt.Errorf("%w: unknown jitter %q", ErrInvalidConfig, jitter)
	}
}
