// Package chart projects a backoff schedule into chart series.
//
// A series plots either per-retry delays or their running total, using either
// the expected value of each retry or one simulated random draw inside its
// jitter range. The simulated draw lives here and not in package backoff,
// which stays deterministic.
package chart

import (
	"math/rand"
	"sync"
	"time"

	"github.com/vyrodovalexey/avabackoff/internal/backoff"
	"github.com/vyrodovalexey/avabackoff/internal/retry"
)

// Point is one plotted retry.
type Point struct {
	Retry int `json:"retry"`

	// ValueMs is the plotted value for the series mode and chart mode.
	ValueMs float64 `json:"valueMs"`

	// MinMs and MaxMs bound the band drawn around the value.
	MinMs float64 `json:"minMs"`
	MaxMs float64 `json:"maxMs"`

	// ExpectedMs is the analytical value in the same chart mode.
	ExpectedMs float64 `json:"expectedMs"`

	// SimulatedMs is the drawn per-retry delay.
	SimulatedMs float64 `json:"simulatedMs"`

	// CumulativeSimulatedMs is the running total of draws.
	CumulativeSimulatedMs float64 `json:"cumulativeSimulatedMs"`
}

// Series is an ordered list of plotted retries.
type Series struct {
	ChartMode  backoff.ChartMode  `json:"chartMode"`
	SeriesMode backoff.SeriesMode `json:"seriesMode"`
	Points     []Point            `json:"points"`
}

// Options controls BuildSeries.
type Options struct {
	ChartMode  backoff.ChartMode
	SeriesMode backoff.SeriesMode

	// Sampler draws simulated values. Nil uses a time-seeded sampler.
	Sampler *Sampler
}

// Sampler draws simulated delays. It is safe for concurrent use.
type Sampler struct {
	mu   sync.Mutex
	rand *rand.Rand
}

// NewSampler creates a sampler with a fixed seed.
func NewSampler(seed int64) *Sampler {
	return &Sampler{
		rand: rand.New(rand.NewSource(seed)), //nolint:gosec // chart simulation is not security-sensitive
	}
}

// Sample draws one value from the point's jitter range.
func (s *Sampler) Sample(p backoff.RetryPoint) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return retry.Draw(s.rand, backoff.JitterRange{
		MinMs:      p.MinDelayMs,
		ExpectedMs: p.ExpectedDelayMs,
		MaxMs:      p.MaxDelayMs,
	})
}

// Simulation is one random draw per retry.
type Simulation struct {
	DelaysMs     []float64 `json:"delaysMs"`
	CumulativeMs []float64 `json:"cumulativeMs"`
}

// Simulate draws one delay per point and accumulates them.
func Simulate(points []backoff.RetryPoint, sampler *Sampler) Simulation {
	sim := Simulation{
		DelaysMs:     make([]float64, len(points)),
		CumulativeMs: make([]float64, len(points)),
	}

	var total float64
	for i, p := range points {
		d := sampler.Sample(p)
		total += d
		sim.DelaysMs[i] = d
		sim.CumulativeMs[i] = total
	}

	return sim
}

// BuildSeries merges a schedule with a simulation into a chart series.
// Unknown modes fall back to the delay chart of expected values.
func BuildSeries(points []backoff.RetryPoint, opts Options) Series {
	chartMode := backoff.ResolveChartMode(opts.ChartMode)
	seriesMode := backoff.ResolveSeriesMode(opts.SeriesMode)

	sampler := opts.Sampler
	if sampler == nil {
		sampler = NewSampler(time.Now().UnixNano())
	}
	sim := Simulate(points, sampler)

	out := Series{
		ChartMode:  chartMode,
		SeriesMode: seriesMode,
		Points:     make([]Point, len(points)),
	}

	for i, p := range points {
		pt := Point{
			Retry:                 p.Retry,
			SimulatedMs:           sim.DelaysMs[i],
			CumulativeSimulatedMs: sim.CumulativeMs[i],
		}

		if chartMode == backoff.ChartModeCumulative {
			pt.ExpectedMs = p.CumulativeDelayMs
			pt.MinMs = p.CumulativeMinDelayMs
			pt.MaxMs = p.CumulativeMaxDelayMs
		} else {
			pt.ExpectedMs = p.DelayMs
			pt.MinMs = p.MinDelayMs
			pt.MaxMs = p.MaxDelayMs
		}

		switch {
		case seriesMode == backoff.SeriesModeSimulated && chartMode == backoff.ChartModeCumulative:
			pt.ValueMs = pt.CumulativeSimulatedMs
		case seriesMode == backoff.SeriesModeSimulated:
			pt.ValueMs = pt.SimulatedMs
		default:
			pt.ValueMs = pt.ExpectedMs
		}

		out.Points[i] = pt
	}

	return out
}

// ActivePoint returns the explanation selection for retry, or nil when the
// series has no such retry.
func (s Series) ActivePoint(retry int) *backoff.ActivePoint {
	for _, p := range s.Points {
		if p.Retry != retry {
			continue
		}
		minMs, maxMs := p.MinMs, p.MaxMs
		return &backoff.ActivePoint{
			Retry:   p.Retry,
			ValueMs: p.ValueMs,
			MinMs:   &minMs,
			MaxMs:   &maxMs,
		}
	}
	return nil
}
