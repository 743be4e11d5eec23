package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/avabackoff/internal/form"
)

func newShareCmd(opts *rootOptions) *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "share",
		Short: "Print the share query of a policy",
		Long: `Share prints the URL query that restores the policy, including the chart
selections. Invalid values are shared as typed.`,
		Args: cobra.NoArgs,
	}
	pf := addPolicyFlags(cmd)
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Prefix the query with this URL, e.g. http://localhost:8080/api/v1/share")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		env, err := opts.setup()
		if err != nil {
			return err
		}
		values, err := pf.resolve(cmd.Flags(), env.cfg.Policy)
		if err != nil {
			return err
		}
		return runShare(cmd.OutOrStdout(), values, baseURL)
	}

	return cmd
}

func runShare(w io.Writer, values form.Values, baseURL string) error {
	query := form.Encode(values)
	if baseURL != "" {
		query = strings.TrimSuffix(baseURL, "?") + "?" + query
	}
	_, err := fmt.Fprintln(w, query)
	return err
}
