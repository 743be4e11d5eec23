package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/avabackoff/internal/api"
	"github.com/vyrodovalexey/avabackoff/internal/backoff"
	"github.com/vyrodovalexey/avabackoff/internal/chart"
	"github.com/vyrodovalexey/avabackoff/internal/form"
	"github.com/vyrodovalexey/avabackoff/internal/observability"
	"github.com/vyrodovalexey/avabackoff/internal/render"
)

// explainOptions are the explain-only flags.
type explainOptions struct {
	retry       int
	substituted bool
	seed        int64
	output      string
}

func newExplainCmd(opts *rootOptions) *cobra.Command {
	eo := &explainOptions{}

	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Show the formulas behind a policy's chart",
		Long: `Explain prints the formulas that produce the charted values of a policy.

With --retry the formulas are evaluated for that retry: the selected chart
point (expected value, or one simulated draw with --series-mode simulated)
is explained step by step.`,
		Example: `  avabackoff explain --retry 3
  avabackoff explain --retry 4 --jitter full --chart-mode cumulative --substituted`,
		Args: cobra.NoArgs,
	}
	pf := addPolicyFlags(cmd)
	cmd.Flags().IntVarP(&eo.retry, "retry", "r", 0, "Retry to explain; 0 explains the formulas symbolically")
	cmd.Flags().BoolVar(&eo.substituted, "substituted", false, "Also print the formulas with values substituted")
	cmd.Flags().Int64Var(&eo.seed, "seed", 0, "Seed for simulated series; 0 draws a fresh one")
	cmd.Flags().StringVarP(&eo.output, "output", "o", outputTable, "Output format: table or json")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		if err := checkOutput(eo.output); err != nil {
			return err
		}
		env, err := opts.setup()
		if err != nil {
			return err
		}
		values, err := pf.resolve(cmd.Flags(), env.cfg.Policy)
		if err != nil {
			return err
		}
		return runExplain(cmd.OutOrStdout(), env, values, eo)
	}

	return cmd
}

func runExplain(w io.Writer, env *cliEnv, values form.Values, eo *explainOptions) error {
	cfg, err := parsePolicy(w, env, values, eo.output)
	if err != nil {
		return err
	}

	points, err := backoff.GenerateSchedule(cfg)
	if err != nil {
		return err
	}

	var sampler *chart.Sampler
	if eo.seed != 0 {
		sampler = chart.NewSampler(eo.seed)
	}
	series := chart.BuildSeries(points, chart.Options{
		ChartMode:  values.ChartModeValue(),
		SeriesMode: values.SeriesModeValue(),
		Sampler:    sampler,
	})

	active := series.ActivePoint(eo.retry)
	if eo.retry != 0 && active == nil {
		env.logger.Warn("retry out of range, explaining symbolically",
			observability.Int("retry", eo.retry),
			observability.Int("max_retries", cfg.Retries()),
		)
	}

	expl, err := backoff.BuildChartMathExplanation(backoff.ExplanationContext{
		Config:      cfg,
		ChartMode:   series.ChartMode,
		SeriesMode:  series.SeriesMode,
		ActivePoint: active,
	})
	if err != nil {
		return err
	}

	resp := api.ExplainResponse{
		Explanation: expl,
		Formula: api.FormulaLines{
			Symbolic:    render.Formula(expl, false, env.format),
			Substituted: render.Formula(expl, true, env.format),
		},
		Bindings: render.Bindings(expl, env.format),
	}
	if eo.output == outputJSON {
		return writeJSON(w, resp)
	}

	return printExplanation(w, expl, resp, eo.substituted)
}

func printExplanation(w io.Writer, expl *backoff.ChartMathExplanation, resp api.ExplainResponse, substituted bool) error {
	header := fmt.Sprintf("%s strategy, %s jitter, %s chart of %s values",
		expl.Strategy, expl.Jitter, expl.ChartMode, expl.SeriesMode)
	if expl.ActiveRetry != nil {
		header += fmt.Sprintf(", retry %d of %d", *expl.ActiveRetry, expl.MaxRetries)
	}

	lines := []string{header, ""}
	lines = append(lines, resp.Formula.Symbolic...)
	if substituted && expl.ActiveRetry != nil {
		lines = append(lines, "")
		lines = append(lines, resp.Formula.Substituted...)
	}
	lines = append(lines, "", resp.Bindings)

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
