package slackdm

import (
	"context"
	"encoding/base64"
	"strings"

	"golang.org/x/oauth2"
)

// Secret names read from the execution context.
const (
	SecretBearerToken                  = "BEARER_AUTH_TOKEN"
	SecretBasicUsername                = "BASIC_USERNAME"
	SecretBasicPassword                = "BASIC_PASSWORD"
	SecretOAuth2AuthorizationCodeToken = "OAUTH2_AUTHORIZATION_CODE_ACCESS_TOKEN"
	SecretOAuth2ClientSecret           = "OAUTH2_CLIENT_CREDENTIALS_CLIENT_SECRET"
)

// Environment names used by the client-credentials method.
const (
	EnvOAuth2TokenURL  = "OAUTH2_CLIENT_CREDENTIALS_TOKEN_URL"
	EnvOAuth2ClientID  = "OAUTH2_CLIENT_CREDENTIALS_CLIENT_ID"
	EnvOAuth2Scope     = "OAUTH2_CLIENT_CREDENTIALS_SCOPE"
	EnvOAuth2Audience  = "OAUTH2_CLIENT_CREDENTIALS_AUDIENCE"
	EnvOAuth2AuthStyle = "OAUTH2_CLIENT_CREDENTIALS_AUTH_STYLE"
)

const bearerPrefix = "Bearer "

// AuthMethod is one of the closed set of ways the Authorization header can
// be produced.
type AuthMethod int

const (
	AuthNone AuthMethod = iota
	AuthBearer
	AuthBasic
	AuthOAuth2AuthorizationCode
	AuthOAuth2ClientCredentials
)

func (m AuthMethod) String() string {
	switch m {
	case AuthBearer:
		return "bearer"
	case AuthBasic:
		return "basic"
	case AuthOAuth2AuthorizationCode:
		return "oauth2_authorization_code"
	case AuthOAuth2ClientCredentials:
		return "oauth2_client_credentials"
	default:
		return "none"
	}
}

// Authorization is the resolved header for one invocation.
type Authorization struct {
	Method AuthMethod
	Header string
}

// authCandidates lists the methods in priority order together with the
// secrets that must all be present for the method to apply.
var authCandidates = []struct {
	method  AuthMethod
	secrets []string
}{
	{AuthBearer, []string{SecretBearerToken}},
	{AuthBasic, []string{SecretBasicUsername, SecretBasicPassword}},
	{AuthOAuth2AuthorizationCode, []string{SecretOAuth2AuthorizationCodeToken}},
	{AuthOAuth2ClientCredentials, []string{SecretOAuth2ClientSecret}},
}

// SelectAuthMethod returns the first method whose secrets are all present.
func SelectAuthMethod(ec ExecutionContext) (AuthMethod, bool) {
	for _, c := range authCandidates {
		present := true
		for _, name := range c.secrets {
			if ec.secret(name) == "" {
				present = false
				break
			}
		}

		if present {
			return c.method, true
		}
	}

	return AuthNone, false
}

// TokenExchanger obtains an access token with the OAuth2 client-credentials
// grant. The returned token has no "Bearer " prefix.
type TokenExchanger interface {
	Exchange(ctx context.Context, creds ClientCredentials) (string, error)
}

// ResolveAuthorization produces the Authorization header for ec. The
// exchanger is only used by the client-credentials method.
func ResolveAuthorization(ctx context.Context, ec ExecutionContext, exchanger TokenExchanger) (Authorization, error) {
	method, ok := SelectAuthMethod(ec)
	if !ok {
		return Authorization{}, configurationError(
			"no authentication configured: provide one of the secrets %s, %s + %s, %s or %s",
			SecretBearerToken, SecretBasicUsername, SecretBasicPassword,
			SecretOAuth2AuthorizationCodeToken, SecretOAuth2ClientSecret)
	}

	auth := Authorization{Method: method}

	switch method {
	case AuthBearer:
		auth.Header = withBearerPrefix(ec.secret(SecretBearerToken))
	case AuthBasic:
		creds := ec.secret(SecretBasicUsername) + ":" + ec.secret(SecretBasicPassword)
		auth.Header = "Basic " + base64.StdEncoding.EncodeToString([]byte(creds))
	case AuthOAuth2AuthorizationCode:
		auth.Header = withBearerPrefix(ec.secret(SecretOAuth2AuthorizationCodeToken))
	case AuthOAuth2ClientCredentials:
		creds, err := clientCredentialsFrom(ec)
		if err != nil {
			return Authorization{}, err
		}

		token, err := exchanger.Exchange(ctx, creds)
		if err != nil {
			return Authorization{}, err
		}

		auth.Header = bearerPrefix + token
	}

	return auth, nil
}

func withBearerPrefix(token string) string {
	if strings.HasPrefix(token, bearerPrefix) {
		return token
	}

	return bearerPrefix + token
}

// ClientCredentials configures a client-credentials token exchange.
type ClientCredentials struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string
	Audience     string
	// AuthStyle is oauth2.AuthStyleInParams to send the client identity in
	// the form body; anything else sends it as a Basic credential.
	AuthStyle oauth2.AuthStyle
}

func clientCredentialsFrom(ec ExecutionContext) (ClientCredentials, error) {
	creds := ClientCredentials{
		TokenURL:     strings.TrimSpace(ec.env(EnvOAuth2TokenURL)),
		ClientID:     strings.TrimSpace(ec.env(EnvOAuth2ClientID)),
		ClientSecret: ec.secret(SecretOAuth2ClientSecret),
		Scope:        ec.env(EnvOAuth2Scope),
		Audience:     ec.env(EnvOAuth2Audience),
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	var missing []string
	if creds.TokenURL == "" {
		missing = append(missing, EnvOAuth2TokenURL)
	}
	if creds.ClientID == "" {
		missing = append(missing, EnvOAuth2ClientID)
	}
	if len(missing) > 0 {
		return ClientCredentials{}, configurationError(
			"OAuth2 client credentials configured but %s not set", strings.Join(missing, " and "))
	}

	if ec.env(EnvOAuth2AuthStyle) == "InParams" {
		creds.AuthStyle = oauth2.AuthStyleInParams
	}

	return creds, nil
}
