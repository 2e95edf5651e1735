package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	slackdm "github.com/peteraglen/slack-dm-action"
)

func newErrorCmd(g *globalFlags, out io.Writer) *cobra.Command {
	p := &paramFlags{}

	var message string

	cmd := &cobra.Command{
		Use:   "error",
		Short: "Decide whether a failed invocation should be retried",
		Long: `error classifies the failure message of a previous invocation.

A retryable failure waits for its backoff and prints a retry request. Any
other failure is reported back and the command exits non-zero.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if message == "" {
				return fmt.Errorf("--message is required")
			}

			params, err := p.resolve(cmd.Flags())
			if err != nil {
				return err
			}

			rt, err := setup(cmd.Context(), cmd, g, slackdm.EntryError)
			if err != nil {
				return err
			}
			defer rt.close()

			res, err := rt.handler.Error(cmd.Context(), errors.New(message), params)
			if err != nil {
				return err
			}

			return printJSON(out, res)
		},
	}

	cmd.Flags().StringVar(&message, "message", "", "error message of the failed invocation")
	p.bind(cmd.Flags(), false)

	return cmd
}
