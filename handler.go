package slackdm

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	EntryInvoke = "invoke"
	EntryError  = "error"
	EntryHalt   = "halt"
)

const usersNotFound = "users_not_found"

// haltedAtLayout renders UTC with millisecond precision, e.g.
// 2024-05-01T12:00:00.000Z.
const haltedAtLayout = "2006-01-02T15:04:05.000Z07:00"

// Handler implements the invoke, error and halt entry points of the action.
// A Handler holds no per-invocation state and is safe for concurrent use.
type Handler struct {
	options     *Options
	slack       *SlackClient
	exchanger   TokenExchanger
	retryPolicy RetryPolicy
}

// New creates a Handler. Invalid option values are ignored and the default
// is retained.
func New(opts ...Option) *Handler {
	options := newHandlerOptions()

	for _, o := range opts {
		o(options)
	}

	var rc *resty.Client
	if options.httpClient != nil {
		rc = resty.NewWithClient(options.httpClient)
	} else {
		rc = resty.New()
	}

	rc.SetTimeout(options.timeout).
		SetLogger(options.requestLogger).
		SetHeaders(options.requestHeaders).
		SetRetryCount(0)

	h := &Handler{
		options:     options,
		slack:       NewSlackClient(rc),
		exchanger:   options.tokenExchanger,
		retryPolicy: options.retryPolicy,
	}

	if h.exchanger == nil {
		h.exchanger = NewRestyTokenExchanger(rc)
	}

	if h.retryPolicy == nil {
		if options.failFast {
			h.retryPolicy = NewFailFastRetryPolicy(options.unknownErrors)
		} else {
			h.retryPolicy = NewRetryPolicy(options.unknownErrors)
		}
	}

	return h
}

// Invoke looks up the Slack user by params.UserEmail and sends them
// params.Text as a direct message. The first failure aborts the invocation
// and is returned as an [*Error]; Invoke never retries.
func (h *Handler) Invoke(ctx context.Context, ec ExecutionContext, params Params) (*Result, error) {
	res, err := h.invoke(ctx, ec, params)

	outcome := StatusSuccess
	if err != nil {
		outcome = "failed"
	}
	h.options.metrics.RecordOutcome(ctx, EntryInvoke, outcome)

	return res, err
}

func (h *Handler) invoke(ctx context.Context, ec ExecutionContext, params Params) (*Result, error) {
	log := h.options.requestLogger

	if strings.TrimSpace(params.UserEmail) == "" {
		return nil, newError(KindInvalidParams, "userEmail is required")
	}

	if params.Text == "" {
		return nil, newError(KindInvalidParams, "text is required")
	}

	baseURL, err := ResolveBaseURL(params.Address, ec, h.options.baseURLEnvKeys)
	if err != nil {
		log.Errorf("%v", err)
		return nil, err
	}

	auth, err := ResolveAuthorization(ctx, ec, h.exchanger)
	if err != nil {
		log.Errorf("resolving authorization: %v", err)
		return nil, err
	}
	log.Debugf("using %s authorization", auth.Method)

	delay := time.Duration(ParseDelay(params.Delay, log) * float64(time.Millisecond))

	log.Infof("looking up Slack user %s", params.UserEmail)

	userID, err := h.lookupUser(ctx, baseURL, auth.Header, params.UserEmail)
	if err != nil {
		log.Errorf("%v", err)
		return nil, err
	}

	log.Debugf("found Slack user %s, waiting %s before sending", userID, delay)

	if err := h.options.sleep(ctx, delay); err != nil {
		return nil, transportError(err, "interrupted before sending message")
	}

	sent, err := h.sendMessage(ctx, baseURL, auth.Header, userID, params.Text)
	if err != nil {
		log.Errorf("%v", err)
		return nil, err
	}

	log.Infof("sent direct message to %s (%s), ts=%s", params.UserEmail, userID, sent.TS)

	return &Result{
		Status:    StatusSuccess,
		UserEmail: params.UserEmail,
		UserID:    userID,
		Text:      params.Text,
		TS:        sent.TS,
		OK:        sent.Ok,
	}, nil
}

func (h *Handler) lookupUser(ctx context.Context, baseURL, authHeader, email string) (string, error) {
	start := time.Now()
	resp, err := h.slack.LookupUserByEmail(ctx, baseURL, authHeader, email)
	h.recordCall(ctx, MethodUsersLookupByEmail, resp, time.Since(start))

	if err != nil {
		return "", transportError(err, "Failed to lookup user %s", email)
	}

	var body lookupUserResponse
	decodeErr := json.Unmarshal(resp.Body(), &body)

	if resp.StatusCode() == http.StatusNotFound || body.Error == usersNotFound {
		e := httpError(KindUserNotFound, resp, "User not found with email: %s", email)
		e.SlackError = body.Error

		return "", e
	}

	if !resp.IsSuccess() {
		e := httpError(KindLookup, resp, "Failed to lookup user %s: %s", email, statusLine(resp))
		e.SlackError = body.Error

		return "", e
	}

	if decodeErr != nil || !body.Ok {
		e := httpError(KindLookup, resp, "Slack API error during user lookup: %s", slackErrorText(body.Error))
		e.SlackError = body.Error

		return "", e
	}

	if body.User == nil || body.User.ID == "" {
		return "", httpError(KindLookup, resp, "No user ID found in response for email: %s", email)
	}

	return body.User.ID, nil
}

func (h *Handler) sendMessage(ctx context.Context, baseURL, authHeader, userID, text string) (*postMessageResponse, error) {
	start := time.Now()
	resp, err := h.slack.SendDirectMessage(ctx, baseURL, authHeader, userID, text)
	h.recordCall(ctx, MethodChatPostMessage, resp, time.Since(start))

	if err != nil {
		return nil, transportError(err, "Failed to send message")
	}

	var body postMessageResponse
	decodeErr := json.Unmarshal(resp.Body(), &body)

	if !resp.IsSuccess() {
		e := httpError(KindSend, resp, "Failed to send message: %s", statusLine(resp))
		e.SlackError = body.Error

		return nil, e
	}

	if decodeErr != nil || !body.Ok {
		e := httpError(KindSend, resp, "Slack API error during message send: %s", slackErrorText(body.Error))
		e.SlackError = body.Error

		return nil, e
	}

	return &body, nil
}

// Error decides what happens after a failed invocation. A retryable error
// is answered, after the policy's backoff, with a [RetryResult] asking the
// host framework to invoke again. Any other error is returned unchanged so
// the framework stops.
func (h *Handler) Error(ctx context.Context, err error, params Params) (*RetryResult, error) {
	log := h.options.requestLogger
	decision := h.retryPolicy(err)

	if !decision.Retry {
		log.Errorf("not retrying message to %s: %v", params.UserEmail, err)
		h.options.metrics.RecordOutcome(ctx, EntryError, "raised")

		return nil, err
	}

	log.Warnf("retrying message to %s in %s: %v", params.UserEmail, decision.Backoff, err)

	if waitErr := h.options.sleep(ctx, decision.Backoff); waitErr != nil {
		h.options.metrics.RecordOutcome(ctx, EntryError, "interrupted")
		return nil, transportError(waitErr, "interrupted before requesting retry")
	}

	h.options.metrics.RecordOutcome(ctx, EntryError, StatusRetryRequested)

	return &RetryResult{Status: StatusRetryRequested}, nil
}

// Halt acknowledges that the host framework stopped the action. It makes no
// network calls.
func (h *Handler) Halt(reason, userEmail string) *HaltResult {
	if userEmail == "" {
		userEmail = "unknown"
	}

	h.options.requestLogger.Infof("halted for %s: %s", userEmail, reason)

	return &HaltResult{
		Status:    StatusHalted,
		UserEmail: userEmail,
		Reason:    reason,
		HaltedAt:  h.options.now().UTC().Format(haltedAtLayout),
	}
}

func (h *Handler) recordCall(ctx context.Context, method string, resp *resty.Response, elapsed time.Duration) {
	status := 0
	if resp != nil {
		status = resp.StatusCode()
	}

	h.options.metrics.RecordSlackCall(ctx, method, status, elapsed)
}

func slackErrorText(code string) string {
	if code == "" {
		return "Unknown error"
	}

	return code
}
