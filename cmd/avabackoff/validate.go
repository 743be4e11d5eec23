package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/avabackoff/internal/api"
	"github.com/vyrodovalexey/avabackoff/internal/backoff"
	"github.com/vyrodovalexey/avabackoff/internal/form"
)

func newValidateCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a policy and report every problem",
		Long:  "Validate checks a policy and exits with status 1 when it has errors.",
		Args:  cobra.NoArgs,
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
		return runValidate(cmd.OutOrStdout(), env, values, output)
	}

	return cmd
}

func runValidate(w io.Writer, env *cliEnv, values form.Values, output string) error {
	if _, err := parsePolicy(w, env, values, output); err != nil {
		return err
	}

	if output == outputJSON {
		return writeJSON(w, api.ValidationResponse{Valid: true, Errors: backoff.ValidationErrors{}})
	}
	_, err := fmt.Fprintln(w, "Policy is valid.")
	return err
}
