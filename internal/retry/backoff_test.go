package retry

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avabackoff/internal/backoff"
)

func TestNewPolicyBackoff_Invalid(t *testing.T) {
	_, err := NewPolicyBackoff(nil)
	assert.ErrorIs(t, err, backoff.ErrInvalidConfig)

	_, err = NewPolicyBackoff(&backoff.BackoffConfig{Strategy: "spiral", MaxRetries: 1})
	assert.ErrorIs(t, err, backoff.ErrInvalidConfig)
}

func TestPolicyBackoff_NoJitterFollowsSchedule(t *testing.T) {
	cfg := &backoff.BackoffConfig{
		Strategy:       backoff.StrategyExponential,
		InitialDelayMs: 500,
		MaxRetries:     6,
		MaxDelayMs:     backoff.Cap(1500),
		Factor:         2,
	}

	b, err := NewPolicyBackoff(cfg)
	require.NoError(t, err)

	expected := []time.Duration{
		500 * time.Millisecond,
		1000 * time.Millisecond,
		1500 * time.Millisecond,
		1500 * time.Millisecond,
	}
	for i, want := range expected {
		assert.Equal(t, want, b.Next(i+1), "retry %d", i+1)
	}
	assert.Equal(t, 500*time.Millisecond, b.Next(0))
}

func TestPolicyBackoff_JitterWithinRange(t *testing.T) {
	tests := []struct {
		name   string
		jitter backoff.Jitter
		min    time.Duration
		max    time.Duration
	}{
		{"equal", backoff.JitterEqual, 400 * time.Millisecond, 800 * time.Millisecond},
		{"full", backoff.JitterFull, 0, 800 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewPolicyBackoff(&backoff.BackoffConfig{
				Strategy:       backoff.StrategyLinear,
				InitialDelayMs: 200,
				MaxRetries:     5,
				IncrementMs:    200,
				Jitter:         tt.jitter,
			}, WithSeed(42))
			require.NoError(t, err)

			seen := make(map[time.Duration]bool)
			for i := 0; i < 200; i++ {
				d := b.Next(4)
				seen[d] = true
				assert.GreaterOrEqual(t, d, tt.min)
				assert.LessOrEqual(t, d, tt.max)
			}
			assert.Greater(t, len(seen), 1)
		})
	}
}

func TestPolicyBackoff_SeedIsReproducible(t *testing.T) {
	cfg := &backoff.BackoffConfig{
		Strategy:       backoff.StrategyFixed,
		InitialDelayMs: 1000,
		MaxRetries:     3,
		Jitter:         backoff.JitterFull,
	}

	a, err := NewPolicyBackoff(cfg, WithSeed(7))
	require.NoError(t, err)
	b, err := NewPolicyBackoff(cfg, WithSeed(7))
	require.NoError(t, err)

	for r := 1; r <= 3; r++ {
		assert.Equal(t, a.Next(r), b.Next(r))
	}
}

func TestPolicyBackoff_CopiesPolicy(t *testing.T) {
	cfg := &backoff.BackoffConfig{
		Strategy:       backoff.StrategyFixed,
		InitialDelayMs: 1000,
		MaxRetries:     3,
		MaxDelayMs:     backoff.Cap(600),
	}

	b, err := NewPolicyBackoff(cfg)
	require.NoError(t, err)

	*cfg.MaxDelayMs = 100
	cfg.InitialDelayMs = 5

	assert.Equal(t, 600*time.Millisecond, b.Next(1))
}

func TestDraw(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	assert.Equal(t, 250.0, Draw(r, backoff.JitterRange{MinMs: 250, ExpectedMs: 250, MaxMs: 250}))

	for i := 0; i < 100; i++ {
		v := Draw(r, backoff.JitterRange{MinMs: 100, ExpectedMs: 150, MaxMs: 200})
		assert.GreaterOrEqual(t, v, 100.0)
		assert.LessOrEqual(t, v, 200.0)
	}
}

func BenchmarkPolicyBackoff_Next(b *testing.B) {
	pb, _ := NewPolicyBackoff(DefaultPolicy())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pb.Next(i%3 + 1)
	}
}

func TestPolicyBackoff_SaturatesLongWaits(t *testing.T) {
	b, err := NewPolicyBackoff(&backoff.BackoffConfig{
		Strategy:       backoff.StrategyExponential,
		InitialDelayMs: 500,
		MaxRetries:     1000,
		Factor:         10,
	})
	require.NoError(t, err)

	tests := []struct {
		name  string
		retry int
		want  time.Duration
	}{
		{name: "first retry", retry: 1, want: 500 * time.Millisecond},
		{name: "past duration range", retry: 20, want: time.Duration(math.MaxInt64)},
		{name: "past float64 range", retry: 400, want: time.Duration(math.MaxInt64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.Next(tt.retry))
		})
	}
}

func TestPolicyBackoff_ZeroInitialDelay(t *testing.T) {
	b, err := NewPolicyBackoff(&backoff.BackoffConfig{
		Strategy:   backoff.StrategyExponential,
		MaxRetries: 400,
		MaxDelayMs: backoff.Cap(1000),
		Factor:     10,
	})
	require.NoError(t, err)

	assert.Equal(t, time.Duration(0), b.Next(400))
}
