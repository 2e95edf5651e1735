package slackdm

import (
	"context"

	"github.com/go-resty/resty/v2"
	"github.com/slack-go/slack"
)

const (
	MethodUsersLookupByEmail = "users.lookupByEmail"
	MethodChatPostMessage    = "chat.postMessage"
)

// SlackClient builds the two Slack Web API requests made by the action. It
// returns raw responses; interpreting status codes and bodies is left to the
// caller. Transport failures are returned as errors.
type SlackClient struct {
	client *resty.Client
}

func NewSlackClient(client *resty.Client) *SlackClient {
	return &SlackClient{client: client}
}

// LookupUserByEmail calls GET {baseURL}/api/users.lookupByEmail.
func (c *SlackClient) LookupUserByEmail(ctx context.Context, baseURL, authHeader, email string) (*resty.Response, error) {
	return c.client.R().
		SetContext(ctx).
		SetHeader("Authorization", authHeader).
		SetHeader("Accept", "application/json").
		SetQueryParam("email", email).
		Get(baseURL + "/api/" + MethodUsersLookupByEmail)
}

// SendDirectMessage calls POST {baseURL}/api/chat.postMessage with the user
// ID as channel, which Slack delivers as a direct message from the app.
func (c *SlackClient) SendDirectMessage(ctx context.Context, baseURL, authHeader, userID, text string) (*resty.Response, error) {
	return c.client.R().
		SetContext(ctx).
		SetHeader("Authorization", authHeader).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetBody(postMessageRequest{Channel: userID, Text: text}).
		Post(baseURL + "/api/" + MethodChatPostMessage)
}

type postMessageRequest struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

type lookupUserResponse struct {
	slack.SlackResponse
	User *slack.User `json:"user,omitempty"`
}

type postMessageResponse struct {
	slack.SlackResponse
	Channel string `json:"channel"`
	TS      string `json:"ts"`
}
