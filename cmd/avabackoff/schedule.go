package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/avabackoff/internal/api"
	"github.com/vyrodovalexey/avabackoff/internal/backoff"
	"github.com/vyrodovalexey/avabackoff/internal/form"
	"github.com/vyrodovalexey/avabackoff/internal/observability"
	"github.com/vyrodovalexey/avabackoff/internal/render"
)

func newScheduleCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the delay schedule of a policy",
		Example: `  avabackoff schedule --strategy exponential --initial-delay 500 --max-retries 5
  avabackoff schedule --share 'strategy=linear&incrementMs=250' --jitter full --output json`,
		Args: cobra.NoArgs,
	}
	pf := addPolicyFlags(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format: table or json")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		if err := checkOutput(output); err != nil {
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
		return runSchedule(cmd.OutOrStdout(), env, values, output)
	}

	return cmd
}

func runSchedule(w io.Writer, env *cliEnv, values form.Values, output string) error {
	cfg, err := parsePolicy(w, env, values, output)
	if err != nil {
		return err
	}

	points, err := backoff.GenerateSchedule(cfg)
	if err != nil {
		return err
	}
	summary := backoff.Summarize(points)

	env.logger.Debug("schedule generated",
		observability.String("strategy", string(cfg.Strategy)),
		observability.Int("retries", len(points)),
	)

	if output == outputJSON {
		if err := backoff.CheckOverflow(points); err != nil {
			return err
		}
		return writeJSON(w, api.ScheduleResponse{Config: cfg, Points: points, Summary: summary})
	}

	if err := render.Table(w, points, cfg.Jitter, env.format); err != nil {
		return err
	}
	return render.Summary(w, summary, env.format)
}

// parsePolicy converts form values into a configuration, printing the
// validation errors when it does not validate.
func parsePolicy(w io.Writer, env *cliEnv, values form.Values, output string) (*backoff.BackoffConfig, error) {
	cfg := values.Config()
	errs := backoff.ValidateConfig(cfg)
	if !errs.HasErrors() {
		return cfg, nil
	}

	env.logger.Debug("policy rejected", observability.String("errors", errs.Messages()))

	var err error
	if output == outputJSON {
		err = writeJSON(w, api.ValidationResponse{Valid: false, Errors: errs})
	} else {
		err = render.ValidationErrors(w, errs)
	}
	if err != nil {
		return nil, err
	}
	return nil, errInvalidPolicy
}
