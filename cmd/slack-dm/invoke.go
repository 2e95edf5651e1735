package main

import (
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	slackdm "github.com/peteraglen/slack-dm-action"
	"github.com/peteraglen/slack-dm-action/internal/config"
)

type paramFlags struct {
	file   string
	params slackdm.Params
}

// bind registers the per-invocation parameters. Flags given explicitly
// override values read from --params.
func (p *paramFlags) bind(fs *pflag.FlagSet, withMessage bool) {
	fs.StringVar(&p.file, "params", "", "JSON or YAML file with job parameters")
	fs.StringVar(&p.params.UserEmail, "user-email", "", "email address of the recipient")

	if withMessage {
		fs.StringVar(&p.params.Text, "text", "", "message text")
		fs.StringVar(&p.params.Delay, "delay", "", "pause between lookup and send, e.g. 250ms or 1s")
		fs.StringVar(&p.params.Address, "address", "", "Slack API base URL")
	}
}

func (p *paramFlags) resolve(fs *pflag.FlagSet) (slackdm.Params, error) {
	if p.file == "" {
		return p.params, nil
	}

	params, err := config.LoadParams(p.file)
	if err != nil {
		return params, err
	}

	overrides := map[string]*string{
		"user-email": &params.UserEmail,
		"text":       &params.Text,
		"delay":      &params.Delay,
		"address":    &params.Address,
	}

	fs.Visit(func(f *pflag.Flag) {
		if dst, ok := overrides[f.Name]; ok {
			*dst = f.Value.String()
		}
	})

	return params, nil
}

func newInvokeCmd(g *globalFlags, out io.Writer) *cobra.Command {
	p := &paramFlags{}

	cmd := &cobra.Command{
		Use:   "invoke",
		Short: "Look up a Slack user by email and send them a direct message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := p.resolve(cmd.Flags())
			if err != nil {
				return err
			}

			rt, err := setup(cmd.Context(), cmd, g, slackdm.EntryInvoke)
			if err != nil {
				return err
			}
			defer rt.close()

			res, err := rt.handler.Invoke(cmd.Context(), rt.exec, params)
			if err != nil {
				return err
			}

			return printJSON(out, res)
		},
	}

	p.bind(cmd.Flags(), true)

	return cmd
}
