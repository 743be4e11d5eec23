package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avabackoff/internal/backoff"
)

func explain(t *testing.T, cfg *backoff.BackoffConfig, mode backoff.ChartMode, active *backoff.ActivePoint) *backoff.ChartMathExplanation {
	t.Helper()

	expl, err := backoff.BuildChartMathExplanation(backoff.ExplanationContext{
		Config:      cfg,
		ChartMode:   mode,
		SeriesMode:  backoff.SeriesModeExpected,
		ActivePoint: active,
	})
	require.NoError(t, err)
	return expl
}

func exponential() *backoff.BackoffConfig {
	return &backoff.BackoffConfig{
		Strategy:       backoff.StrategyExponential,
		InitialDelayMs: 500,
		MaxRetries:     5,
		Factor:         2,
	}
}

func TestFormula_Symbolic(t *testing.T) {
	t.Parallel()

	lines := Formula(explain(t, exponential(), backoff.ChartModeDelay, nil), false, NewFormatter("en"))

	assert.Equal(t, []string{
		"raw(r) = d₀ · f^(r − 1)",
		"capped(r) = raw(r)",
		"E(r) = capped(r)",
	}, lines)
}

func TestFormula_Substituted(t *testing.T) {
	t.Parallel()

	expl := explain(t, exponential(), backoff.ChartModeDelay, &backoff.ActivePoint{Retry: 4, ValueMs: 4000})
	lines := Formula(expl, true, NewFormatter("en"))

	assert.Equal(t, []string{
		"raw(4) = 500 · 2^(4 − 1) = 4,000",
		"capped(4) = raw(4) = 4,000",
		"E(4) = capped(4) = 4,000",
		"E(4) = 4,000",
	}, lines)
}

func TestFormula_SubstitutedWithoutActiveRetry(t *testing.T) {
	t.Parallel()

	lines := Formula(explain(t, exponential(), backoff.ChartModeDelay, nil), true, NewFormatter("en"))

	assert.Equal(t, "raw(r) = 500 · 2^(r − 1)", lines[0])
	assert.Len(t, lines, 3)
}

func TestFormula_CapAndJitter(t *testing.T) {
	t.Parallel()

	cfg := &backoff.BackoffConfig{
		Strategy:       backoff.StrategyLinear,
		InitialDelayMs: 100,
		MaxRetries:     5,
		IncrementMs:    100,
		MaxDelayMs:     backoff.Cap(250),
		Jitter:         backoff.JitterFull,
	}

	symbolic := Formula(explain(t, cfg, backoff.ChartModeDelay, nil), false, NewFormatter("en"))
	assert.Equal(t, "raw(r) = d₀ + (r − 1) · Δ", symbolic[0])
	assert.Equal(t, "capped(r) = min(raw(r), C)", symbolic[1])
	assert.Equal(t, "E(r) = 0.5 · capped(r), range [0, capped(r)]", symbolic[2])

	expl := explain(t, cfg, backoff.ChartModeDelay, &backoff.ActivePoint{Retry: 3, ValueMs: 125, MinMs: backoff.Cap(0), MaxMs: backoff.Cap(250)})
	substituted := Formula(expl, true, NewFormatter("en"))
	assert.Equal(t, "raw(3) = 100 + (3 − 1) · 100 = 300", substituted[0])
	assert.Equal(t, "capped(3) = min(raw(3), 250) = 250", substituted[1])
	assert.Equal(t, "E(3) = 0.5 · capped(3) = 125, range [0, capped(3)] = [0, 250]", substituted[2])
	assert.Equal(t, "E(3) = 125 in [0, 250]", substituted[3])
}

func TestFormula_Cumulative(t *testing.T) {
	t.Parallel()

	cfg := &backoff.BackoffConfig{
		Strategy:       backoff.StrategyFixed,
		InitialDelayMs: 1000,
		MaxRetries:     3,
	}

	expl := explain(t, cfg, backoff.ChartModeCumulative, &backoff.ActivePoint{Retry: 3, ValueMs: 3000})
	lines := Formula(expl, true, NewFormatter("en"))

	require.Len(t, lines, 5)
	assert.Equal(t, "raw(3) = 1,000 = 1,000", lines[0])
	assert.Equal(t, "Σ(3) = Σ capped(k), k = 1…3 = 3,000", lines[3])
}

func TestBindings(t *testing.T) {
	t.Parallel()

	expl := explain(t, exponential(), backoff.ChartModeDelay, &backoff.ActivePoint{Retry: 2, ValueMs: 1000})

	assert.Equal(t, "d₀ = 500, f = 2, C = ∞, r = 2", Bindings(expl, NewFormatter("en")))
}
