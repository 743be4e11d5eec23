// Package backoff computes retry-backoff schedules and the data needed to
// explain them.
//
// The package is a set of pure functions. Nothing here performs I/O, logs,
// draws random numbers or keeps state between calls; jitter is represented by
// its deterministic min/expected/max range only.
//
// # Pipeline
//
//	cfg := &backoff.BackoffConfig{
//	    Strategy:       backoff.StrategyExponential,
//	    InitialDelayMs: 500,
//	    MaxRetries:     5,
//	    Factor:         2,
//	}
//	if errs := backoff.ValidateConfig(cfg); errs.HasErrors() {
//	    return errs
//	}
//	points, err := backoff.GenerateSchedule(cfg)
//	summary := backoff.Summarize(points)
//
// # Explanations
//
// BuildChartMathExplanation reconstructs the formula inputs for one retry
// index directly from the configuration, independently of any previously
// generated schedule:
//
//	expl, err := backoff.BuildChartMathExplanation(backoff.ExplanationContext{
//	    Config:      cfg,
//	    ChartMode:   backoff.ChartModeCumulative,
//	    ActivePoint: &backoff.ActivePoint{Retry: 3, ValueMs: 3500},
//	})
package backoff
