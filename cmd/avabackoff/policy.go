package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vyrodovalexey/avabackoff/internal/form"
)

// Policy flag names.
const (
	flagStrategy     = "strategy"
	flagInitialDelay = "initial-delay"
	flagMaxRetries   = "max-retries"
	flagMaxDelay     = "max-delay"
	flagFactor       = "factor"
	flagIncrement    = "increment"
	flagJitter       = "jitter"
	flagChartMode    = "chart-mode"
	flagSeriesMode   = "series-mode"
	flagShare        = "share"
)

// policyFlags are the policy inputs shared by schedule, explain, validate
// and share. They are kept as strings so malformed numbers reach validation
// exactly as typed.
type policyFlags struct {
	values form.Values
	share  string
}

func addPolicyFlags(cmd *cobra.Command) *policyFlags {
	pf := &policyFlags{}
	fs := cmd.Flags()

	fs.StringVar(&pf.values.Strategy, flagStrategy, "", "Strategy: exponential, linear or fixed")
	fs.StringVar(&pf.values.InitialDelayMs, flagInitialDelay, "", "Initial delay in milliseconds")
	fs.StringVar(&pf.values.MaxRetries, flagMaxRetries, "", "Number of retries")
	fs.StringVar(&pf.values.MaxDelayMs, flagMaxDelay, "", "Maximum delay in milliseconds; empty means uncapped")
	fs.StringVar(&pf.values.Factor, flagFactor, "", "Growth factor of the exponential strategy")
	fs.StringVar(&pf.values.IncrementMs, flagIncrement, "", "Increment of the linear strategy in milliseconds")
	fs.StringVar(&pf.values.Jitter, flagJitter, "", "Jitter: none, equal or full")
	fs.StringVar(&pf.values.ChartMode, flagChartMode, "", "Chart mode: delay or cumulative")
	fs.StringVar(&pf.values.SeriesMode, flagSeriesMode, "", "Series mode: expected or simulated")
	fs.StringVar(&pf.share, flagShare, "", "Share query to start from, e.g. strategy=linear&incrementMs=250")

	return pf
}

// resolve layers the configured policy, the share query and the explicitly
// set flags, in that order.
func (pf *policyFlags) resolve(fs *pflag.FlagSet, base form.Values) (form.Values, error) {
	values := base
	if pf.share != "" {
		decoded, err := form.Decode(pf.share)
		if err != nil {
			return form.Values{}, fmt.Errorf("invalid --%s: %w", flagShare, err)
		}
		values = decoded
	}

	overrides := []struct {
		flag string
		dst  *string
		src  string
	}{
		{flagStrategy, &values.Strategy, pf.values.Strategy},
		{flagInitialDelay, &values.InitialDelayMs, pf.values.InitialDelayMs},
		{flagMaxRetries, &values.MaxRetries, pf.values.MaxRetries},
		{flagMaxDelay, &values.MaxDelayMs, pf.values.MaxDelayMs},
		{flagFactor, &values.Factor, pf.values.Factor},
		{flagIncrement, &values.IncrementMs, pf.values.IncrementMs},
		{flagJitter, &values.Jitter, pf.values.Jitter},
		{flagChartMode, &values.ChartMode, pf.values.ChartMode},
		{flagSeriesMode, &values.SeriesMode, pf.values.SeriesMode},
	}
	for _, o := range overrides {
		if fs.Changed(o.flag) {
			*o.dst = o.src
		}
	}

	return values, nil
}
