package chart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avabackoff/internal/backoff"
)

func schedule(t *testing.T, jitter backoff.Jitter) []backoff.RetryPoint {
	t.Helper()

	points, err := backoff.GenerateSchedule(&backoff.BackoffConfig{
		Strategy:       backoff.StrategyExponential,
		InitialDelayMs: 500,
		MaxRetries:     6,
		MaxDelayMs:     backoff.Cap(1500),
		Factor:         2,
		Jitter:         jitter,
	})
	require.NoError(t, err)
	return points
}

func TestBuildSeries_ExpectedDelay(t *testing.T) {
	points := schedule(t, backoff.JitterEqual)

	series := BuildSeries(points, Options{Sampler: NewSampler(1)})

	assert.Equal(t, backoff.ChartModeDelay, series.ChartMode)
	assert.Equal(t, backoff.SeriesModeExpected, series.SeriesMode)
	require.Len(t, series.Points, len(points))
	for i, p := range series.Points {
		assert.Equal(t, points[i].Retry, p.Retry)
		assert.Equal(t, points[i].DelayMs, p.ValueMs)
		assert.Equal(t, points[i].MinDelayMs, p.MinMs)
		assert.Equal(t, points[i].MaxDelayMs, p.MaxMs)
	}
}

func TestBuildSeries_ExpectedCumulative(t *testing.T) {
	points := schedule(t, backoff.JitterFull)

	series := BuildSeries(points, Options{
		ChartMode: backoff.ChartModeCumulative,
		Sampler:   NewSampler(1),
	})

	for i, p := range series.Points {
		assert.Equal(t, points[i].CumulativeDelayMs, p.ValueMs)
		assert.Equal(t, points[i].CumulativeMinDelayMs, p.MinMs)
		assert.Equal(t, points[i].CumulativeMaxDelayMs, p.MaxMs)
	}
}

func TestBuildSeries_Simulated(t *testing.T) {
	points := schedule(t, backoff.JitterEqual)

	delay := BuildSeries(points, Options{
		SeriesMode: backoff.SeriesModeSimulated,
		Sampler:    NewSampler(99),
	})
	cumulative := BuildSeries(points, Options{
		ChartMode:  backoff.ChartModeCumulative,
		SeriesMode: backoff.SeriesModeSimulated,
		Sampler:    NewSampler(99),
	})

	var total float64
	for i, p := range delay.Points {
		assert.GreaterOrEqual(t, p.ValueMs, points[i].MinDelayMs)
		assert.LessOrEqual(t, p.ValueMs, points[i].MaxDelayMs)
		assert.Equal(t, p.SimulatedMs, p.ValueMs)

		total += p.SimulatedMs
		assert.InDelta(t, total, p.CumulativeSimulatedMs, 1e-9)

		assert.Equal(t, p.CumulativeSimulatedMs, cumulative.Points[i].ValueMs)
	}
}

func TestBuildSeries_NoJitterSimulationMatchesExpected(t *testing.T) {
	points := schedule(t, backoff.JitterNone)

	series := BuildSeries(points, Options{SeriesMode: backoff.SeriesModeSimulated})

	for i, p := range series.Points {
		assert.Equal(t, points[i].DelayMs, p.ValueMs)
	}
}

func TestBuildSeries_UnknownModesFallBack(t *testing.T) {
	series := BuildSeries(schedule(t, backoff.JitterNone), Options{
		ChartMode:  "area",
		SeriesMode: "random",
	})

	assert.Equal(t, backoff.ChartModeDelay, series.ChartMode)
	assert.Equal(t, backoff.SeriesModeExpected, series.SeriesMode)
}

func TestSimulate_Empty(t *testing.T) {
	sim := Simulate(nil, NewSampler(1))

	assert.Empty(t, sim.DelaysMs)
	assert.Empty(t, sim.CumulativeMs)
}

func TestSeries_ActivePoint(t *testing.T) {
	series := BuildSeries(schedule(t, backoff.JitterEqual), Options{Sampler: NewSampler(3)})

	ap := series.ActivePoint(3)
	require.NotNil(t, ap)
	assert.Equal(t, 3, ap.Retry)
	assert.Equal(t, 1125.0, ap.ValueMs)
	assert.Equal(t, 750.0, *ap.MinMs)
	assert.Equal(t, 1500.0, *ap.MaxMs)

	assert.Nil(t, series.ActivePoint(0))
	assert.Nil(t, series.ActivePoint(7))
}

func TestSeries_ActivePointDrivesExplanation(t *testing.T) {
	cfg := &backoff.BackoffConfig{
		Strategy:       backoff.StrategyExponential,
		InitialDelayMs: 500,
		MaxRetries:     6,
		MaxDelayMs:     backoff.Cap(1500),
		Factor:         2,
		Jitter:         backoff.JitterFull,
	}
	points, err := backoff.GenerateSchedule(cfg)
	require.NoError(t, err)

	series := BuildSeries(points, Options{
		ChartMode:  backoff.ChartModeCumulative,
		SeriesMode: backoff.SeriesModeSimulated,
		Sampler:    NewSampler(5),
	})

	expl, err := backoff.BuildChartMathExplanation(backoff.ExplanationContext{
		Config:      cfg,
		ChartMode:   series.ChartMode,
		SeriesMode:  series.SeriesMode,
		ActivePoint: series.ActivePoint(2),
	})
	require.NoError(t, err)

	require.NotNil(t, expl.ActiveRetry)
	assert.Equal(t, series.Points[1].ValueMs, *expl.Resolved.ChartedValueMs)
	assert.Equal(t, 1500.0, *expl.Resolved.BaseChartValueMs)
	assert.Equal(t, backoff.SourceSymbolSimulated, expl.ChartSourceSymbol)
}
