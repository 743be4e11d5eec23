package backoff

import (
	"encoding/json"
	"strconv"
)

// ChartMode selects whether the chart plots per-retry or cumulative delays.
type ChartMode string

const (
	// ChartModeDelay plots the delay of each retry.
	ChartModeDelay ChartMode = "delay"

	// ChartModeCumulative plots the running total of delays.
	ChartModeCumulative ChartMode = "cumulative"
)

// ResolveChartMode returns m when recognized and ChartModeDelay otherwise.
func ResolveChartMode(m ChartMode) ChartMode {
	if m == ChartModeCumulative {
		return ChartModeCumulative
	}
	return ChartModeDelay
}

// SeriesMode selects whether the chart plots expected values or simulated draws.
type SeriesMode string

const (
	// SeriesModeExpected plots the analytical expected value.
	SeriesModeExpected SeriesMode = "expected"

	// SeriesModeSimulated plots one random draw per retry.
	SeriesModeSimulated SeriesMode = "simulated"
)

// ResolveSeriesMode returns m when recognized and SeriesModeExpected otherwise.
func ResolveSeriesMode(m SeriesMode) SeriesMode {
	if m == SeriesModeSimulated {
		return SeriesModeSimulated
	}
	return SeriesModeExpected
}

// Chart source symbols used when labelling the charted value.
const (
	SourceSymbolExpected  = "E"
	SourceSymbolSimulated = "S"
)

// ActivePoint is the chart selection that drives an explanation.
type ActivePoint struct {
	Retry   int      `json:"retry"`
	ValueMs float64  `json:"valueMs"`
	MinMs   *float64 `json:"minMs,omitempty"`
	MaxMs   *float64 `json:"maxMs,omitempty"`
}

// ExplanationContext is the input of BuildChartMathExplanation.
type ExplanationContext struct {
	Config      *BackoffConfig `json:"config"`
	ChartMode   ChartMode      `json:"chartMode"`
	SeriesMode  SeriesMode     `json:"seriesMode"`
	ActivePoint *ActivePoint   `json:"activePoint,omitempty"`
}

// Constants mirrors the configuration numbers used by the formulas.
type Constants struct {
	InitialDelayMs float64  `json:"initialDelayMs"`
	Factor         float64  `json:"factor"`
	IncrementMs    float64  `json:"incrementMs"`
	MaxDelayMs     *float64 `json:"maxDelayMs"`
	MaxRetries     int      `json:"maxRetries"`
}

// Resolved holds the values computed for the active retry. Every field is
// nil when no retry is active.
type Resolved struct {
	RawDelayMs                *float64 `json:"rawDelayMs"`
	CappedDelayMs             *float64 `json:"cappedDelayMs"`
	BaseChartValueMs          *float64 `json:"baseChartValueMs"`
	MinDelayMs                *float64 `json:"minDelayMs"`
	ExpectedDelayMs           *float64 `json:"expectedDelayMs"`
	MaxDelayMs                *float64 `json:"maxDelayMs"`
	RandomizedMinValueMs      *float64 `json:"randomizedMinValueMs"`
	RandomizedExpectedValueMs *float64 `json:"randomizedExpectedValueMs"`
	RandomizedMaxValueMs      *float64 `json:"randomizedMaxValueMs"`
	ChartedValueMs            *float64 `json:"chartedValueMs"`
	ChartedMinMs              *float64 `json:"chartedMinMs"`
	ChartedMaxMs              *float64 `json:"chartedMaxMs"`
}

// MarshalJSON encodes values past the float64 range as null.
func (r Resolved) MarshalJSON() ([]byte, error) {
	type resolved Resolved
	out := resolved{
		RawDelayMs:                finiteOrNil(r.RawDelayMs),
		CappedDelayMs:             finiteOrNil(r.CappedDelayMs),
		BaseChartValueMs:          finiteOrNil(r.BaseChartValueMs),
		MinDelayMs:                finiteOrNil(r.MinDelayMs),
		ExpectedDelayMs:           finiteOrNil(r.ExpectedDelayMs),
		MaxDelayMs:                finiteOrNil(r.MaxDelayMs),
		RandomizedMinValueMs:      finiteOrNil(r.RandomizedMinValueMs),
		RandomizedExpectedValueMs: finiteOrNil(r.RandomizedExpectedValueMs),
		RandomizedMaxValueMs:      finiteOrNil(r.RandomizedMaxValueMs),
		ChartedValueMs:            finiteOrNil(r.ChartedValueMs),
		ChartedMinMs:              finiteOrNil(r.ChartedMinMs),
		ChartedMaxMs:              finiteOrNil(r.ChartedMaxMs),
	}
	return json.Marshal(out)
}

// BindingKey identifies a formula variable.
type BindingKey string

// Formula variables, in rendering order.
const (
	BindingInitialDelay BindingKey = "initialDelay"
	BindingFactor       BindingKey = "factor"
	BindingIncrement    BindingKey = "increment"
	BindingCap          BindingKey = "cap"
	BindingRetry        BindingKey = "retry"
)

// BindingValueKind tells how a BindingValue is displayed.
type BindingValueKind int

const (
	// BindingNumber is a concrete number.
	BindingNumber BindingValueKind = iota
	// BindingInfinite marks an absent cap.
	BindingInfinite
	// BindingSymbolic marks the retry index when no retry is active.
	BindingSymbolic
)

// Display tokens for non-numeric binding values.
const (
	InfiniteToken = "∞"
	SymbolicToken = "symbolic"
)

// BindingValue is the value bound to a formula variable.
type BindingValue struct {
	Kind   BindingValueKind
	Number float64
}

// NumberValue returns a numeric binding value.
func NumberValue(v float64) BindingValue {
	return BindingValue{Kind: BindingNumber, Number: v}
}

// IsSymbolic reports whether the value is the symbolic placeholder.
func (v BindingValue) IsSymbolic() bool {
	return v.Kind == BindingSymbolic
}

// String returns the display form.
func (v BindingValue) String() string {
	switch v.Kind {
	case BindingInfinite:
		return InfiniteToken
	case BindingSymbolic:
		return SymbolicToken
	default:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	}
}

// MarshalJSON encodes numbers as JSON numbers and placeholders as strings.
func (v BindingValue) MarshalJSON() ([]byte, error) {
	if v.Kind == BindingNumber {
		return json.Marshal(v.Number)
	}
	return json.Marshal(v.String())
}

// VariableBinding binds one formula symbol to its value.
type VariableBinding struct {
	Key     BindingKey   `json:"key"`
	Symbol  string       `json:"symbol"`
	Label   string       `json:"label"`
	Visible bool         `json:"visible"`
	Value   BindingValue `json:"value"`
}

// ChartMathExplanation is the read-only model behind the formula display.
type ChartMathExplanation struct {
	Strategy          Strategy          `json:"strategy"`
	Jitter            Jitter            `json:"jitter"`
	ChartMode         ChartMode         `json:"chartMode"`
	SeriesMode        SeriesMode        `json:"seriesMode"`
	HasCap            bool              `json:"hasCap"`
	MaxRetries        int               `json:"maxRetries"`
	ActiveRetry       *int              `json:"activeRetry"`
	ActivePoint       *ActivePoint      `json:"activePoint"`
	ChartSourceSymbol string            `json:"chartSourceSymbol"`
	Constants         Constants         `json:"constants"`
	Resolved          Resolved          `json:"resolved"`
	VariableBindings  []VariableBinding `json:"variableBindings"`
}

// Binding returns the binding for key.
func (e *ChartMathExplanation) Binding(key BindingKey) (VariableBinding, bool) {
	for _, b := range e.VariableBindings {
		if b.Key == key {
			return b, true
		}
	}
	return VariableBinding{}, false
}

// CheckOverflow returns an *OverflowError when a resolved delay of the active
// retry is not finite. As in CheckOverflow for schedules, the raw delay is
// exempt.
func (e *ChartMathExplanation) CheckOverflow() error {
	if e.ActiveRetry == nil {
		return nil
	}
	r := e.Resolved
	for _, v := range []*float64{
		r.CappedDelayMs, r.BaseChartValueMs,
		r.MinDelayMs, r.ExpectedDelayMs, r.MaxDelayMs,
		r.RandomizedMinValueMs, r.RandomizedExpectedValueMs, r.RandomizedMaxValueMs,
	} {
		if v != nil && !isFinite(*v) {
			return &OverflowError{Retry: *e.ActiveRetry}
		}
	}
	return nil
}

// BuildChartMathExplanation reconstructs the math behind one chart point.
//
// Values for the active retry are recomputed from the configuration alone and
// never looked up in a generated schedule; only ChartedValueMs and its range
// are taken from the caller, because a simulated chart draws its own value.
func BuildChartMathExplanation(ctx ExplanationContext) (*ChartMathExplanation, error) {
	cfg := ctx.Config
	if err := requireValid(cfg); err != nil {
		return nil, err
	}

	chartMode := ResolveChartMode(ctx.ChartMode)
	seriesMode := ResolveSeriesMode(ctx.SeriesMode)
	maxRetries := cfg.Retries()
	active := normalizeActivePoint(ctx.ActivePoint, maxRetries)

	expl := &ChartMathExplanation{
		Strategy:          cfg.Strategy,
		Jitter:            ResolveJitter(cfg.Jitter),
		ChartMode:         chartMode,
		SeriesMode:        seriesMode,
		HasCap:            cfg.HasCap(),
		MaxRetries:        maxRetries,
		ActivePoint:       active,
		ChartSourceSymbol: SourceSymbolExpected,
		Constants: Constants{
			InitialDelayMs: cfg.InitialDelayMs,
			Factor:         cfg.Factor,
			IncrementMs:    cfg.IncrementMs,
			MaxDelayMs:     copyFloat(cfg.MaxDelayMs),
			MaxRetries:     maxRetries,
		},
	}
	if seriesMode == SeriesModeSimulated {
		expl.ChartSourceSymbol = SourceSymbolSimulated
	}

	if active != nil {
		retry := active.Retry
		expl.ActiveRetry = &retry

		resolved, err := resolveAt(cfg, chartMode, active)
		if err != nil {
			return nil, err
		}
		expl.Resolved = resolved
	}

	expl.VariableBindings = buildBindings(cfg, active)

	return expl, nil
}

// normalizeActivePoint drops selections outside [1, maxRetries] or without a
// finite value, and defaults the range to the value.
func normalizeActivePoint(p *ActivePoint, maxRetries int) *ActivePoint {
	if p == nil || p.Retry < 1 || p.Retry > maxRetries || !isFinite(p.ValueMs) {
		return nil
	}

	out := &ActivePoint{Retry: p.Retry, ValueMs: p.ValueMs}
	out.MinMs = finiteOr(p.MinMs, p.ValueMs)
	out.MaxMs = finiteOr(p.MaxMs, p.ValueMs)
	return out
}

func resolveAt(cfg *BackoffConfig, mode ChartMode, active *ActivePoint) (Resolved, error) {
	raw, err := RawDelayAt(cfg, active.Retry)
	if err != nil {
		return Resolved{}, err
	}
	capped := applyCap(cfg, raw)

	base := capped
	if mode == ChartModeCumulative {
		base = 0
		for k := 1; k <= active.Retry; k++ {
			c, err := CappedDelayAt(cfg, k)
			if err != nil {
				return Resolved{}, err
			}
			base += c
		}
	}

	delayRange, err := JitterRangeOf(capped, cfg.Jitter)
	if err != nil {
		return Resolved{}, err
	}
	valueRange, err := JitterRangeOf(base, cfg.Jitter)
	if err != nil {
		return Resolved{}, err
	}

	return Resolved{
		RawDelayMs:                ptr(raw),
		CappedDelayMs:             ptr(capped),
		BaseChartValueMs:          ptr(base),
		MinDelayMs:                ptr(delayRange.MinMs),
		ExpectedDelayMs:           ptr(delayRange.ExpectedMs),
		MaxDelayMs:                ptr(delayRange.MaxMs),
		RandomizedMinValueMs:      ptr(valueRange.MinMs),
		RandomizedExpectedValueMs: ptr(valueRange.ExpectedMs),
		RandomizedMaxValueMs:      ptr(valueRange.MaxMs),
		ChartedValueMs:            ptr(active.ValueMs),
		ChartedMinMs:              copyFloat(active.MinMs),
		ChartedMaxMs:              copyFloat(active.MaxMs),
	}, nil
}

func buildBindings(cfg *BackoffConfig, active *ActivePoint) []VariableBinding {
	capValue := BindingValue{Kind: BindingInfinite}
	if cfg.MaxDelayMs != nil {
		capValue = NumberValue(*cfg.MaxDelayMs)
	}

	retryValue := BindingValue{Kind: BindingSymbolic}
	if active != nil {
		retryValue = NumberValue(float64(active.Retry))
	}

	return []VariableBinding{
		{
			Key:     BindingInitialDelay,
			Symbol:  "d₀",
			Label:   "Initial delay",
			Visible: true,
			Value:   NumberValue(cfg.InitialDelayMs),
		},
		{
			Key:     BindingFactor,
			Symbol:  "f",
			Label:   "Factor",
			Visible: cfg.Strategy == StrategyExponential,
			Value:   NumberValue(cfg.Factor),
		},
		{
			Key:     BindingIncrement,
			Symbol:  "Δ",
			Label:   "Increment",
			Visible: cfg.Strategy == StrategyLinear,
			Value:   NumberValue(cfg.IncrementMs),
		},
		{
			Key:     BindingCap,
			Symbol:  "C",
			Label:   "Max delay",
			Visible: true,
			Value:   capValue,
		},
		{
			Key:     BindingRetry,
			Symbol:  "r",
			Label:   "Retry",
			Visible: true,
			Value:   retryValue,
		},
	}
}

func finiteOr(v *float64, fallback float64) *float64 {
	if v == nil || !isFinite(*v) {
		return ptr(fallback)
	}
	return ptr(*v)
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return ptr(*v)
}

func ptr(v float64) *float64 {
	return &v
}

func finiteOrNil(v *float64) *float64 {
	if v == nil || !isFinite(*v) {
		return nil
	}
	return v
}
