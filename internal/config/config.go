// Package config loads the settings of the slack-dm command and assembles
// the execution context handed to the action.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	env "github.com/netflix/go-env"

	slackdm "github.com/peteraglen/slack-dm-action"
)

// Config holds host settings. Action inputs (secrets, Slack address,
// OAuth2 settings) are not part of it; they travel in the execution context.
type Config struct {
	UnknownErrorsStr  string `env:"SLACK_DM_UNKNOWN_ERRORS,default=retry"`
	UnknownErrors     slackdm.UnknownErrorBehavior
	FailFast          bool   `env:"SLACK_DM_FAIL_FAST,default=false"`
	BaseURLEnvKeysStr string `env:"SLACK_DM_BASE_URL_ENV_KEYS,default=ADDRESS|SLACK_API_URL"`
	BaseURLEnvKeys    []string

	RequestTimeout time.Duration `env:"SLACK_DM_REQUEST_TIMEOUT,default=30s"`
	LogLevel       string        `env:"SLACK_DM_LOG_LEVEL,default=info"`
	LogFile        string        `env:"SLACK_DM_LOG_FILE"`
	SecretsFile    string        `env:"SLACK_DM_SECRETS_FILE"`

	OTelEnabled     bool          `env:"OTEL_ENABLED,default=false"`
	OTelEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelServiceName string        `env:"OTEL_SERVICE_NAME,default=slack-dm"`
	OTelInterval    time.Duration `env:"OTEL_METRIC_EXPORT_INTERVAL,default=10s"`
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	var config Config

	_, err := env.UnmarshalFromEnviron(&config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	config.UnknownErrors, err = slackdm.ParseUnknownErrorBehavior(config.UnknownErrorsStr)
	if err != nil {
		return nil, fmt.Errorf("SLACK_DM_UNKNOWN_ERRORS: %w", err)
	}

	for _, key := range strings.Split(config.BaseURLEnvKeysStr, "|") {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			config.BaseURLEnvKeys = append(config.BaseURLEnvKeys, trimmed)
		}
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(config *Config) error {
	if len(config.BaseURLEnvKeys) == 0 {
		return fmt.Errorf("SLACK_DM_BASE_URL_ENV_KEYS must name at least one variable")
	}

	if config.RequestTimeout <= 0 {
		return fmt.Errorf("SLACK_DM_REQUEST_TIMEOUT must be greater than 0")
	}

	if config.OTelEnabled && strings.TrimSpace(config.OTelEndpoint) == "" {
		return fmt.Errorf("OTEL_EXPORTER_OTLP_ENDPOINT is required when OTEL_ENABLED is true")
	}

	if config.OTelInterval <= 0 {
		config.OTelInterval = 10 * time.Second
	}

	return nil
}

// LoadDotEnv loads path into the process environment without overriding
// variables that are already set. A missing file is not an error unless
// required is true.
func LoadDotEnv(path string, required bool) error {
	if path == "" {
		return nil
	}

	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	if !required && errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return fmt.Errorf("loading %s: %w", path, err)
}

// Environ converts os.Environ-style pairs to a map.
func Environ(pairs []string) map[string]string {
	m := make(map[string]string, len(pairs))

	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}

		m[k] = v
	}

	return m
}

// ProcessEnviron returns the current process environment as a map.
func ProcessEnviron() map[string]string {
	return Environ(os.Environ())
}
