package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	slackdm "github.com/peteraglen/slack-dm-action"
	"github.com/peteraglen/slack-dm-action/internal/config"
	"github.com/peteraglen/slack-dm-action/internal/logging"
	"github.com/peteraglen/slack-dm-action/internal/observability"
)

type globalFlags struct {
	envFile     string
	secretsFile string
}

func newRootCmd(out io.Writer) *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "slack-dm",
		Short: "Send a Slack direct message to a user looked up by email",
		Long: `slack-dm runs the three entry points of the Slack direct message action.

The Slack address and credentials are read from the environment (and an
optional .env file); secrets may instead be supplied as a YAML map with
--secrets-file. Results are written to stdout as JSON.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&g.envFile, "env-file", ".env", "dotenv file loaded before reading configuration (optional)")
	root.PersistentFlags().StringVar(&g.secretsFile, "secrets-file", "", "YAML file with action secrets (overrides SLACK_DM_SECRETS_FILE)")

	root.AddCommand(
		newInvokeCmd(g, out),
		newErrorCmd(g, out),
		newHaltCmd(g, out),
	)

	return root
}

// runtime is everything one entry point needs.
type runtime struct {
	cfg      *config.Config
	log      *logging.Logger
	handler  *slackdm.Handler
	exec     slackdm.ExecutionContext
	shutdown observability.ShutdownFunc
}

func setup(ctx context.Context, cmd *cobra.Command, g *globalFlags, entryPoint string) (*runtime, error) {
	if err := config.LoadDotEnv(g.envFile, cmd.Flags().Changed("env-file")); err != nil {
		return nil, err
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	base, err := logging.New(logging.Config{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return nil, err
	}

	log := base.With("invocation_id", uuid.NewString(), "entry_point", entryPoint)

	secretsFile := cfg.SecretsFile
	if g.secretsFile != "" {
		secretsFile = g.secretsFile
	}

	ec, err := config.ExecutionContext(config.ProcessEnviron(), secretsFile)
	if err != nil {
		_ = log.Close()
		return nil, err
	}

	mp, shutdown, err := observability.InitMeter(ctx, observability.ConfigFrom(cfg))
	if err != nil {
		_ = log.Close()
		return nil, err
	}

	recorder, err := observability.NewRecorder(mp)
	if err != nil {
		_ = shutdown(ctx)
		_ = log.Close()
		return nil, err
	}

	handler := slackdm.New(
		slackdm.WithRequestLogger(log),
		slackdm.WithTimeout(cfg.RequestTimeout),
		slackdm.WithUnknownErrorBehavior(cfg.UnknownErrors),
		slackdm.WithFailFastErrors(cfg.FailFast),
		slackdm.WithBaseURLEnvKeys(cfg.BaseURLEnvKeys...),
		slackdm.WithMetrics(recorder),
	)

	return &runtime{
		cfg:      cfg,
		log:      log,
		handler:  handler,
		exec:     ec,
		shutdown: shutdown,
	}, nil
}

func (r *runtime) close() {
	if err := r.shutdown(context.Background()); err != nil {
		r.log.Warnf("flushing metrics: %v", err)
	}

	_ = r.log.Close()
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
