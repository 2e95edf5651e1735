package slackdm

import "strings"

const (
	EnvAddress     = "ADDRESS"
	EnvSlackAPIURL = "SLACK_API_URL"
)

// ResolveBaseURL returns the Slack API base URL without a trailing slash.
// address wins over the environment; otherwise the first non-empty value of
// envKeys is used.
func ResolveBaseURL(address string, ec ExecutionContext, envKeys []string) (string, error) {
	base := strings.TrimSpace(address)

	for _, key := range envKeys {
		if base != "" {
			break
		}
		base = strings.TrimSpace(ec.env(key))
	}

	base = strings.TrimRight(base, "/")
	if base == "" {
		return "", configurationError("Slack API base URL is not configured: set the address parameter or one of %s",
			strings.Join(envKeys, ", "))
	}

	return base, nil
}
