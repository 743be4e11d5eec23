package backoff

import "encoding/json"

// GenerateSchedule computes one RetryPoint per retry, 1 through MaxRetries.
//
// The configuration is validated again; an invalid configuration returns an
// *InvalidConfigError and no points. MaxRetries of zero yields an empty,
// non-nil slice.
func GenerateSchedule(cfg *BackoffConfig) ([]RetryPoint, error) {
	if err := requireValid(cfg); err != nil {
		return nil, err
	}

	retries := cfg.Retries()
	points := make([]RetryPoint, 0, retries)

	var cumulative, cumulativeMin, cumulativeMax float64
	for r := 1; r <= retries; r++ {
		raw, err := RawDelayAt(cfg, r)
		if err != nil {
			return nil, err
		}

		rng, err := JitterRangeOf(applyCap(cfg, raw), cfg.Jitter)
		if err != nil {
			return nil, err
		}

		cumulative += rng.ExpectedMs
		cumulativeMin += rng.MinMs
		cumulativeMax += rng.MaxMs

		points = append(points, RetryPoint{
			Retry:                r,
			RawDelayMs:           raw,
			MinDelayMs:           rng.MinMs,
			ExpectedDelayMs:      rng.ExpectedMs,
			MaxDelayMs:           rng.MaxMs,
			DelayMs:              rng.ExpectedMs,
			CumulativeDelayMs:    cumulative,
			CumulativeMinDelayMs: cumulativeMin,
			CumulativeMaxDelayMs: cumulativeMax,
		})
	}

	return points, nil
}

// Summarize folds a schedule into its summary. It reads only the last point,
// which GenerateSchedule guarantees to be the highest retry.
func Summarize(points []RetryPoint) ScheduleSummary {
	if len(points) == 0 {
		return ScheduleSummary{}
	}

	last := points[len(points)-1]
	return ScheduleSummary{
		TotalRetries: len(points),
		FinalDelayMs: last.DelayMs,
		TotalDelayMs: last.CumulativeDelayMs,
	}
}

// CheckOverflow returns an *OverflowError for the first point whose delays
// are not finite, or nil. The raw delay is not checked: a capped schedule
// stays finite when its raw formula overflows.
func CheckOverflow(points []RetryPoint) error {
	for _, p := range points {
		if !p.finite() {
			return &OverflowError{Retry: p.Retry}
		}
	}
	return nil
}

func (p RetryPoint) finite() bool {
	for _, v := range []float64{
		p.MinDelayMs, p.ExpectedDelayMs, p.MaxDelayMs, p.DelayMs,
		p.CumulativeDelayMs, p.CumulativeMinDelayMs, p.CumulativeMaxDelayMs,
	} {
		if !isFinite(v) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes a raw delay past the float64 range as null, which is
// how JSON spells a number it cannot hold.
func (p RetryPoint) MarshalJSON() ([]byte, error) {
	type point RetryPoint
	return json.Marshal(struct {
		point
		RawDelayMs *float64 `json:"rawDelayMs"`
	}{
		point:      point(p),
		RawDelayMs: finiteOrNil(&p.RawDelayMs),
	})
}
