package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paths(err error) []string {
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]string, 0, len(verrs))
	for _, e := range verrs {
		out = append(out, e.Path)
	}
	return out
}

func TestValidateConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   []string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:   "missing address",
			mutate: func(c *Config) { c.Server.Address = "" },
			want:   []string{"server.address"},
		},
		{
			name:   "address without port",
			mutate: func(c *Config) { c.Server.Address = "localhost" },
			want:   []string{"server.address"},
		},
		{
			name:   "negative timeout",
			mutate: func(c *Config) { c.Server.WriteTimeout = -1 },
			want:   []string{"server.writeTimeout"},
		},
		{
			name: "rate limit values",
			mutate: func(c *Config) {
				c.Server.RateLimit.RequestsPerSecond = 0
				c.Server.RateLimit.Burst = 0
			},
			want: []string{"server.rateLimit.requestsPerSecond", "server.rateLimit.burst"},
		},
		{
			name: "disabled rate limit is not checked",
			mutate: func(c *Config) {
				c.Server.RateLimit = RateLimitConfig{}
			},
		},
		{
			name: "logging",
			mutate: func(c *Config) {
				c.Logging.Level = "chatty"
				c.Logging.Format = "xml"
			},
			want: []string{"logging.level", "logging.format"},
		},
		{
			name: "tracing",
			mutate: func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.SamplingRate = 1.5
			},
			want: []string{"tracing.samplingRate", "tracing.endpoint"},
		},
		{
			name:   "metrics path",
			mutate: func(c *Config) { c.Metrics.Path = "metrics" },
			want:   []string{"metrics.path"},
		},
		{
			name:   "locale",
			mutate: func(c *Config) { c.Locale = "not a locale!" },
			want:   []string{"locale"},
		},
		{
			name: "policy fields",
			mutate: func(c *Config) {
				c.Policy.Factor = "1"
				c.Policy.Jitter = "loud"
			},
			want: []string{"policy.factor", "policy.jitter"},
		},
		{
			name: "policy display modes",
			mutate: func(c *Config) {
				c.Policy.ChartMode = "bars"
				c.Policy.SeriesMode = "random"
			},
			want: []string{"policy.chartMode", "policy.seriesMode"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := ValidateConfig(cfg)
			if len(tt.want) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.want, paths(err))
		})
	}
}

func TestValidateConfig_Nil(t *testing.T) {
	t.Parallel()

	err := ValidateConfig(nil)

	require.Error(t, err)
	assert.Equal(t, "configuration is nil", err.Error())
}

func TestValidationErrors_Error(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "no validation errors", ValidationErrors{}.Error())
	assert.Equal(t, "locale: bad", ValidationErrors{{Path: "locale", Message: "bad"}}.Error())

	multi := ValidationErrors{
		{Path: "a", Message: "first"},
		{Message: "second"},
	}
	assert.Equal(t, "2 validation errors:\n  1. a: first\n  2. second\n", multi.Error())
}
