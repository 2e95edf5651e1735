package slackdm

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
)

// RestyTokenExchanger performs the client-credentials grant with resty.
type RestyTokenExchanger struct {
	client *resty.Client
}

func NewRestyTokenExchanger(client *resty.Client) *RestyTokenExchanger {
	return &RestyTokenExchanger{client: client}
}

func (x *RestyTokenExchanger) Exchange(ctx context.Context, creds ClientCredentials) (string, error) {
	form := map[string]string{
		"grant_type": "client_credentials",
	}

	if creds.Scope != "" {
		form["scope"] = creds.Scope
	}

	if creds.Audience != "" {
		form["audience"] = creds.Audience
	}

	if creds.AuthStyle == oauth2.AuthStyleInParams {
		form["client_id"] = creds.ClientID
		form["client_secret"] = creds.ClientSecret
	}

	req := x.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetFormData(form)

	if creds.AuthStyle != oauth2.AuthStyleInParams {
		req.SetBasicAuth(creds.ClientID, creds.ClientSecret)
	}

	resp, err := req.Post(creds.TokenURL)
	if err != nil {
		return "", transportError(err, "OAuth2 token request failed")
	}

	if !resp.IsSuccess() {
		return "", httpError(KindTokenExchange, resp, "OAuth2 token exchange failed: %s: %s",
			statusLine(resp), describeBody(resp.Body()))
	}

	var token oauth2.Token
	if err := json.Unmarshal(resp.Body(), &token); err != nil || token.AccessToken == "" {
		e := newError(KindMalformedToken, "malformed token response: missing access_token")
		e.StatusCode = resp.StatusCode()

		return "", e
	}

	return token.AccessToken, nil
}

// describeBody renders an error body for messages: compacted JSON when the
// body parses, the raw text otherwise.
func describeBody(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return "(empty error body)"
	}

	if json.Valid(body) {
		var buf bytes.Buffer
		if err := json.Compact(&buf, body); err == nil {
			return buf.String()
		}
	}

	return strings.TrimSpace(string(body))
}
