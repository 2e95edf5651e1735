package main

import (
	"io"

	"github.com/spf13/cobra"

	slackdm "github.com/peteraglen/slack-dm-action"
)

func newHaltCmd(g *globalFlags, out io.Writer) *cobra.Command {
	var reason, userEmail string

	cmd := &cobra.Command{
		Use:   "halt",
		Short: "Acknowledge that the action was stopped",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := setup(cmd.Context(), cmd, g, slackdm.EntryHalt)
			if err != nil {
				return err
			}
			defer rt.close()

			return printJSON(out, rt.handler.Halt(reason, userEmail))
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "why the action was halted")
	cmd.Flags().StringVar(&userEmail, "user-email", "", "recipient of the halted invocation")

	return cmd
}
