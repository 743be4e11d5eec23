// Package form converts between the string form of a backoff policy and
// backoff.BackoffConfig, and encodes that string form into shareable URL
// queries.
package form

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/vyrodovalexey/avabackoff/internal/backoff"
)

// Query keys.
const (
	KeyStrategy       = "strategy"
	KeyInitialDelayMs = "initialDelayMs"
	KeyMaxRetries     = "maxRetries"
	KeyMaxDelayMs     = "maxDelayMs"
	KeyFactor         = "factor"
	KeyIncrementMs    = "incrementMs"
	KeyJitter         = "jitter"
	KeyChartMode      = "chartMode"
	KeySeriesMode     = "seriesMode"
)

// Values is the string form of a policy and its display selections, exactly
// as typed by a user.
type Values struct {
	Strategy       string `json:"strategy" yaml:"strategy"`
	InitialDelayMs string `json:"initialDelayMs" yaml:"initialDelayMs"`
	MaxRetries     string `json:"maxRetries" yaml:"maxRetries"`
	MaxDelayMs     string `json:"maxDelayMs" yaml:"maxDelayMs"`
	Factor         string `json:"factor" yaml:"factor"`
	IncrementMs    string `json:"incrementMs" yaml:"incrementMs"`
	Jitter         string `json:"jitter" yaml:"jitter"`
	ChartMode      string `json:"chartMode" yaml:"chartMode"`
	SeriesMode     string `json:"seriesMode" yaml:"seriesMode"`
}

// Default returns the values shown before any input.
func Default() Values {
	return Values{
		Strategy:       string(backoff.StrategyExponential),
		InitialDelayMs: "500",
		MaxRetries:     "5",
		MaxDelayMs:     "",
		Factor:         "2",
		IncrementMs:    "500",
		Jitter:         string(backoff.JitterNone),
		ChartMode:      string(backoff.ChartModeDelay),
		SeriesMode:     string(backoff.SeriesModeExpected),
	}
}

// FromConfig renders a configuration as form values. Display selections are
// left at their defaults.
func FromConfig(cfg *backoff.BackoffConfig) Values {
	v := Default()
	v.Strategy = string(cfg.Strategy)
	v.InitialDelayMs = formatNumber(cfg.InitialDelayMs)
	v.MaxRetries = formatNumber(cfg.MaxRetries)
	v.MaxDelayMs = ""
	if cfg.MaxDelayMs != nil {
		v.MaxDelayMs = formatNumber(*cfg.MaxDelayMs)
	}
	v.Factor = formatNumber(cfg.Factor)
	v.IncrementMs = formatNumber(cfg.IncrementMs)
	v.Jitter = string(cfg.Jitter)
	return v
}

// Config parses the values into a configuration. Numbers that do not parse
// become NaN so that backoff.ValidateConfig reports them; a blank max delay
// means uncapped.
func (v Values) Config() *backoff.BackoffConfig {
	cfg := &backoff.BackoffConfig{
		Strategy:       backoff.Strategy(strings.TrimSpace(v.Strategy)),
		InitialDelayMs: parseNumber(v.InitialDelayMs),
		MaxRetries:     parseNumber(v.MaxRetries),
		Factor:         parseNumber(v.Factor),
		IncrementMs:    parseNumber(v.IncrementMs),
		Jitter:         backoff.Jitter(strings.TrimSpace(v.Jitter)),
	}

	if s := strings.TrimSpace(v.MaxDelayMs); s != "" {
		maxDelay := parseNumber(s)
		cfg.MaxDelayMs = &maxDelay
	}

	return cfg
}

// ChartModeValue returns the resolved chart mode.
func (v Values) ChartModeValue() backoff.ChartMode {
	return backoff.ResolveChartMode(backoff.ChartMode(strings.TrimSpace(v.ChartMode)))
}

// SeriesModeValue returns the resolved series mode.
func (v Values) SeriesModeValue() backoff.SeriesMode {
	return backoff.ResolveSeriesMode(backoff.SeriesMode(strings.TrimSpace(v.SeriesMode)))
}

// Encode returns the URL query form of v. Every key is written, including
// empty ones, so that Decode restores the exact strings.
func Encode(v Values) string {
	q := url.Values{}
	for _, f := range v.fields() {
		q.Set(f.key, *f.value)
	}
	return q.Encode()
}

// Decode parses a URL query, with or without a leading '?'. Keys absent from
// the query keep their Default value; unknown keys are ignored.
func Decode(query string) (Values, error) {
	q, err := url.ParseQuery(strings.TrimPrefix(query, "?"))
	if err != nil {
		return Values{}, fmt.Errorf("parse share query: %w", err)
	}
	return FromQuery(q), nil
}

// FromQuery reads values from already parsed query parameters.
func FromQuery(q url.Values) Values {
	v := Default()
	for _, f := range v.fields() {
		if vals, ok := q[f.key]; ok && len(vals) > 0 {
			*f.value = vals[0]
		}
	}
	return v
}

type field struct {
	key   string
	value *string
}

func (v *Values) fields() []field {
	return []field{
		{KeyStrategy, &v.Strategy},
		{KeyInitialDelayMs, &v.InitialDelayMs},
		{KeyMaxRetries, &v.MaxRetries},
		{KeyMaxDelayMs, &v.MaxDelayMs},
		{KeyFactor, &v.Factor},
		{KeyIncrementMs, &v.IncrementMs},
		{KeyJitter, &v.Jitter},
		{KeyChartMode, &v.ChartMode},
		{KeySeriesMode, &v.SeriesMode},
	}
}

func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
