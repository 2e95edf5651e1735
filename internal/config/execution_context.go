package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	slackdm "github.com/peteraglen/slack-dm-action"
)

// SecretNames are the secrets the action understands.
var SecretNames = []string{
	slackdm.SecretBearerToken,
	slackdm.SecretBasicUsername,
	slackdm.SecretBasicPassword,
	slackdm.SecretOAuth2AuthorizationCodeToken,
	slackdm.SecretOAuth2ClientSecret,
}

// ExecutionContext builds the context for one invocation. Secrets come from
// the YAML map in secretsFile; without one, the known secret names are read
// from environment.
func ExecutionContext(environment map[string]string, secretsFile string) (slackdm.ExecutionContext, error) {
	secrets, err := loadSecrets(environment, secretsFile)
	if err != nil {
		return slackdm.ExecutionContext{}, err
	}

	return slackdm.ExecutionContext{
		Environment: environment,
		Secrets:     secrets,
	}, nil
}

func loadSecrets(environment map[string]string, secretsFile string) (map[string]string, error) {
	if secretsFile == "" {
		secrets := make(map[string]string)
		for _, name := range SecretNames {
			if v, ok := environment[name]; ok && v != "" {
				secrets[name] = v
			}
		}

		return secrets, nil
	}

	data, err := os.ReadFile(secretsFile)
	if err != nil {
		return nil, fmt.Errorf("reading secrets file: %w", err)
	}

	secrets := make(map[string]string)
	if err := yaml.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("parsing secrets file: %w", err)
	}

	return secrets, nil
}

// LoadParams reads job parameters from a YAML or JSON file.
func LoadParams(path string) (slackdm.Params, error) {
	var params slackdm.Params

	data, err := os.ReadFile(path)
	if err != nil {
		return params, fmt.Errorf("reading params file: %w", err)
	}

	if err := yaml.Unmarshal(data, &params); err != nil {
		return params, fmt.Errorf("parsing params file: %w", err)
	}

	return params, nil
}
