package slackdm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoke_Success(t *testing.T) {
	t.Parallel()

	var rawQuery, lookupAuth, lookupAccept string
	var sendContentType string
	var sent postMessageRequest

	slack := newFakeSlack(t,
		func(w http.ResponseWriter, r *http.Request) {
			rawQuery = r.URL.RawQuery
			lookupAuth = r.Header.Get("Authorization")
			lookupAccept = r.Header.Get("Accept")
			assert.Equal(t, http.MethodGet, r.Method)
			writeJSON(w, http.StatusOK, `{"ok":true,"user":{"id":"U123","name":"test"}}`)
		},
		func(w http.ResponseWriter, r *http.Request) {
			sendContentType = r.Header.Get("Content-Type")
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "Bearer xoxb-test", r.Header.Get("Authorization"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
			writeJSON(w, http.StatusOK, `{"ok":true,"channel":"D999","ts":"1700000000.000100"}`)
		},
	)

	sleeper := &fakeSleeper{}
	metrics := &fakeMetrics{}
	h := New(WithSleeper(sleeper.sleep), WithMetrics(metrics))

	res, err := h.Invoke(context.Background(), bearerContext(slack.server.URL), Params{
		UserEmail: "test+user@example.com",
		Text:      "Hello there",
		Delay:     "250ms",
	})
	require.NoError(t, err)

	assert.Equal(t, &Result{
		Status:    StatusSuccess,
		UserEmail: "test+user@example.com",
		UserID:    "U123",
		Text:      "Hello there",
		TS:        "1700000000.000100",
		OK:        true,
	}, res)

	assert.Equal(t, "email=test%2Buser%40example.com", rawQuery)
	assert.Equal(t, "Bearer xoxb-test", lookupAuth)
	assert.Equal(t, "application/json", lookupAccept)
	assert.Contains(t, sendContentType, "application/json")
	assert.Equal(t, postMessageRequest{Channel: "U123", Text: "Hello there"}, sent)

	assert.Equal(t, []time.Duration{250 * time.Millisecond}, sleeper.calls())

	assert.Equal(t, []recordedCall{
		{method: MethodUsersLookupByEmail, status: http.StatusOK},
		{method: MethodChatPostMessage, status: http.StatusOK},
	}, metrics.calls)
	assert.Equal(t, []string{"invoke:success"}, metrics.outcomes)
}

func TestInvoke_DefaultDelay(t *testing.T) {
	t.Parallel()

	slack := newFakeSlack(t,
		respond(http.StatusOK, `{"ok":true,"user":{"id":"U1"}}`),
		respond(http.StatusOK, `{"ok":true,"ts":"1.2"}`),
	)

	sleeper := &fakeSleeper{}
	h := New(WithSleeper(sleeper.sleep))

	_, err := h.Invoke(context.Background(), bearerContext(slack.server.URL), Params{
		UserEmail: "a@example.com",
		Text:      "hi",
		Delay:     "soon",
	})
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{100 * time.Millisecond}, sleeper.calls())
}

func TestInvoke_LookupFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		kind    Kind
		message string
	}{
		{
			name:    "404",
			status:  http.StatusNotFound,
			body:    `{"ok":false}`,
			kind:    KindUserNotFound,
			message: "User not found with email: a@example.com",
		},
		{
			name:    "users_not_found",
			status:  http.StatusOK,
			body:    `{"ok":false,"error":"users_not_found"}`,
			kind:    KindUserNotFound,
			message: "User not found with email: a@example.com",
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    `oops`,
			kind:    KindLookup,
			message: "Failed to lookup user a@example.com: 500 Internal Server Error",
		},
		{
			name:    "rate limited",
			status:  http.StatusTooManyRequests,
			body:    `{"ok":false,"error":"ratelimited"}`,
			kind:    KindLookup,
			message: "Failed to lookup user a@example.com: 429 Too Many Requests",
		},
		{
			name:    "api error",
			status:  http.StatusOK,
			body:    `{"ok":false,"error":"invalid_auth"}`,
			kind:    KindLookup,
			message: "Slack API error during user lookup: invalid_auth",
		},
		{
			name:    "api error without code",
			status:  http.StatusOK,
			body:    `{"ok":false}`,
			kind:    KindLookup,
			message: "Slack API error during user lookup: Unknown error",
		},
		{
			name:    "no user id",
			status:  http.StatusOK,
			body:    `{"ok":true,"user":{"name":"ghost"}}`,
			kind:    KindLookup,
			message: "No user ID found in response for email: a@example.com",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			slack := newFakeSlack(t,
				respond(tt.status, tt.body),
				respond(http.StatusOK, `{"ok":true,"ts":"1.2"}`),
			)

			sleeper := &fakeSleeper{}
			h := New(WithSleeper(sleeper.sleep))

			res, err := h.Invoke(context.Background(), bearerContext(slack.server.URL), Params{
				UserEmail: "a@example.com",
				Text:      "hi",
			})

			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, tt.message, err.Error())
			assert.True(t, IsKind(err, tt.kind), "expected kind %s, got %v", tt.kind, err)

			assert.Equal(t, int32(1), slack.lookupCalls.Load())
			assert.Equal(t, int32(0), slack.sendCalls.Load())
			assert.Empty(t, sleeper.calls())
		})
	}
}

func TestInvoke_LookupCarriesStatusAndRetryAfter(t *testing.T) {
	t.Parallel()

	slack := newFakeSlack(t,
		func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Retry-After", "30")
			writeJSON(w, http.StatusTooManyRequests, `{"ok":false,"error":"ratelimited"}`)
		},
		respond(http.StatusOK, `{"ok":true}`),
	)

	h := New(WithSleeper((&fakeSleeper{}).sleep))

	_, err := h.Invoke(context.Background(), bearerContext(slack.server.URL), Params{UserEmail: "a@example.com", Text: "hi"})

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, http.StatusTooManyRequests, e.StatusCode)
	assert.Equal(t, "ratelimited", e.SlackError)
	assert.Equal(t, 30*time.Second, e.RetryAfter)
}

func TestInvoke_SendFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{
			name:    "http error",
			status:  http.StatusServiceUnavailable,
			body:    `upstream down`,
			message: "Failed to send message: 503 Service Unavailable",
		},
		{
			name:    "api error",
			status:  http.StatusOK,
			body:    `{"ok":false,"error":"channel_not_found"}`,
			message: "Slack API error during message send: channel_not_found",
		},
		{
			name:    "api error without code",
			status:  http.StatusOK,
			body:    `not json`,
			message: "Slack API error during message send: Unknown error",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			slack := newFakeSlack(t,
				respond(http.StatusOK, `{"ok":true,"user":{"id":"U1"}}`),
				respond(tt.status, tt.body),
			)

			h := New(WithSleeper((&fakeSleeper{}).sleep))

			_, err := h.Invoke(context.Background(), bearerContext(slack.server.URL), Params{
				UserEmail: "a@example.com",
				Text:      "hi",
			})

			require.Error(t, err)
			assert.Equal(t, tt.message, err.Error())
			assert.True(t, IsKind(err, KindSend))
			assert.Equal(t, int32(1), slack.sendCalls.Load(), "send must not be retried inside invoke")
		})
	}
}

func TestInvoke_ConfigurationErrors(t *testing.T) {
	t.Parallel()

	slack := newFakeSlack(t,
		respond(http.StatusOK, `{"ok":true,"user":{"id":"U1"}}`),
		respond(http.StatusOK, `{"ok":true}`),
	)

	tests := []struct {
		name string
		ec   ExecutionContext
		want string
	}{
		{
			name: "no secrets",
			ec:   ExecutionContext{Environment: map[string]string{EnvAddress: slack.server.URL}},
			want: "no authentication configured",
		},
		{
			name: "no base url",
			ec:   ExecutionContext{Secrets: map[string]string{SecretBearerToken: "t"}},
			want: "base URL is not configured",
		},
		{
			name: "client credentials without token url",
			ec: ExecutionContext{
				Environment: map[string]string{EnvAddress: slack.server.URL, EnvOAuth2ClientID: "id"},
				Secrets:     map[string]string{SecretOAuth2ClientSecret: "secret"},
			},
			want: EnvOAuth2TokenURL,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			h := New(WithSleeper((&fakeSleeper{}).sleep))

			_, err := h.Invoke(context.Background(), tt.ec, Params{UserEmail: "a@example.com", Text: "hi"})

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.True(t, IsKind(err, KindConfiguration))
		})
	}

	assert.Equal(t, int32(0), slack.lookupCalls.Load())
}

func TestInvoke_InvalidParams(t *testing.T) {
	t.Parallel()

	h := New()

	_, err := h.Invoke(context.Background(), bearerContext("http://localhost:1"), Params{Text: "hi"})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidParams))

	_, err = h.Invoke(context.Background(), bearerContext("http://localhost:1"), Params{UserEmail: "a@example.com"})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidParams))
}

func TestInvoke_BaseURLResolution(t *testing.T) {
	t.Parallel()

	slack := newFakeSlack(t,
		respond(http.StatusOK, `{"ok":true,"user":{"id":"U1"}}`),
		respond(http.StatusOK, `{"ok":true,"ts":"1.2"}`),
	)

	secrets := map[string]string{SecretBearerToken: "t"}

	tests := []struct {
		name    string
		ec      ExecutionContext
		address string
		opts    []Option
	}{
		{
			name:    "address parameter with trailing slash",
			ec:      ExecutionContext{Environment: map[string]string{EnvAddress: "http://localhost:1"}, Secrets: secrets},
			address: slack.server.URL + "/",
		},
		{
			name: "SLACK_API_URL fallback",
			ec:   ExecutionContext{Environment: map[string]string{EnvSlackAPIURL: slack.server.URL}, Secrets: secrets},
		},
		{
			name: "custom env key",
			ec:   ExecutionContext{Environment: map[string]string{"SLACK_BASE": slack.server.URL + "//"}, Secrets: secrets},
			opts: []Option{WithBaseURLEnvKeys("SLACK_BASE")},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			h := New(append(tt.opts, WithSleeper((&fakeSleeper{}).sleep))...)

			res, err := h.Invoke(context.Background(), tt.ec, Params{UserEmail: "a@example.com", Text: "hi", Address: tt.address})
			require.NoError(t, err)
			assert.Equal(t, "U1", res.UserID)
		})
	}
}

func TestInvoke_ContextCancelledDuringDelay(t *testing.T) {
	t.Parallel()

	slack := newFakeSlack(t,
		respond(http.StatusOK, `{"ok":true,"user":{"id":"U1"}}`),
		respond(http.StatusOK, `{"ok":true}`),
	)

	ctx, cancel := context.WithCancel(context.Background())
	h := New(WithSleeper(func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	_, err := h.Invoke(ctx, bearerContext(slack.server.URL), Params{UserEmail: "a@example.com", Text: "hi"})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), slack.sendCalls.Load())
	assert.True(t, DefaultRetryPolicy(err).Retry)
	assert.False(t, NewFailFastRetryPolicy(RetryUnknownErrors)(err).Retry)
}

func TestError_Retryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		backoff time.Duration
	}{
		{"structured 429", &Error{Kind: KindSend, StatusCode: 429, msg: "Failed to send message: 429 Too Many Requests"}, 5 * time.Second},
		{"message 429", errors.New("Failed to send message: 429 Too Many Requests"), 5 * time.Second},
		{"429 with long retry-after", &Error{Kind: KindLookup, StatusCode: 429, RetryAfter: time.Minute, msg: "x"}, 5 * time.Second},
		{"structured 503", &Error{Kind: KindLookup, StatusCode: 503, msg: "x"}, time.Second},
		{"message 502", errors.New("Failed to lookup user a@b.c: 502 Bad Gateway"), time.Second},
		{"message 504", errors.New("gateway 504"), time.Second},
		{"unknown", errors.New("something odd"), 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sleeper := &fakeSleeper{}
			metrics := &fakeMetrics{}
			h := New(WithSleeper(sleeper.sleep), WithMetrics(metrics))

			res, err := h.Error(context.Background(), tt.err, Params{UserEmail: "a@example.com"})

			require.NoError(t, err)
			assert.Equal(t, &RetryResult{Status: StatusRetryRequested}, res)
			assert.Equal(t, []time.Duration{tt.backoff}, sleeper.calls())
			assert.Equal(t, []string{"error:retry_requested"}, metrics.outcomes)
		})
	}
}

func TestError_Fatal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
	}{
		{"message 401", errors.New("Failed to lookup user a@b.c: 401 Unauthorized")},
		{"message 403", errors.New("Failed to send message: 403 Forbidden")},
		{"message user not found", errors.New("User not found with email: a@b.c")},
		{"structured user not found", newError(KindUserNotFound, "User not found with email: a@b.c")},
		{"configuration", configurationError("no authentication configured")},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sleeper := &fakeSleeper{}
			h := New(WithSleeper(sleeper.sleep))

			res, err := h.Error(context.Background(), tt.err, Params{})

			assert.Nil(t, res)
			assert.Same(t, tt.err, err)
			assert.Empty(t, sleeper.calls())
		})
	}
}

func TestError_UnknownErrorBehavior(t *testing.T) {
	t.Parallel()

	h := New(WithSleeper((&fakeSleeper{}).sleep), WithUnknownErrorBehavior(FailUnknownErrors))
	original := errors.New("something odd")

	res, err := h.Error(context.Background(), original, Params{})

	assert.Nil(t, res)
	assert.Same(t, original, err)

	// Known patterns are unaffected.
	res, err = h.Error(context.Background(), errors.New("503 Service Unavailable"), Params{})
	require.NoError(t, err)
	assert.Equal(t, StatusRetryRequested, res.Status)
}

func TestError_CustomPolicy(t *testing.T) {
	t.Parallel()

	h := New(
		WithSleeper((&fakeSleeper{}).sleep),
		WithRetryPolicy(func(error) RetryDecision { return RetryDecision{} }),
	)

	original := errors.New("Failed to send message: 503 Service Unavailable")
	_, err := h.Error(context.Background(), original, Params{})

	assert.Same(t, original, err)
}

func TestError_SlackAuthErrorIsRetried(t *testing.T) {
	t.Parallel()

	slack := newFakeSlack(t,
		respond(http.StatusOK, `{"ok":false,"error":"invalid_auth"}`),
		respond(http.StatusOK, `{"ok":true}`),
	)

	sleeper := &fakeSleeper{}
	h := New(WithSleeper(sleeper.sleep))
	params := Params{UserEmail: "a@example.com", Text: "hi"}

	_, invokeErr := h.Invoke(context.Background(), bearerContext(slack.server.URL), params)
	require.EqualError(t, invokeErr, "Slack API error during user lookup: invalid_auth")

	res, err := h.Error(context.Background(), invokeErr, params)

	require.NoError(t, err)
	assert.Equal(t, &RetryResult{Status: StatusRetryRequested}, res)
	assert.Equal(t, []time.Duration{0}, sleeper.calls())
}

func TestError_InterruptedDelayIsRetried(t *testing.T) {
	t.Parallel()

	slack := newFakeSlack(t,
		respond(http.StatusOK, `{"ok":true,"user":{"id":"U1"}}`),
		respond(http.StatusOK, `{"ok":true}`),
	)

	ctx, cancel := context.WithCancel(context.Background())
	h := New(WithSleeper(func(ctx context.Context, d time.Duration) error {
		if d == 0 {
			return nil
		}

		cancel()
		return ctx.Err()
	}))
	params := Params{UserEmail: "a@example.com", Text: "hi"}

	_, invokeErr := h.Invoke(ctx, bearerContext(slack.server.URL), params)
	require.ErrorIs(t, invokeErr, context.Canceled)

	res, err := h.Error(context.Background(), invokeErr, params)

	require.NoError(t, err)
	assert.Equal(t, StatusRetryRequested, res.Status)
}

func TestError_FailFastErrors(t *testing.T) {
	t.Parallel()

	slack := newFakeSlack(t,
		respond(http.StatusOK, `{"ok":false,"error":"invalid_auth"}`),
		respond(http.StatusOK, `{"ok":true}`),
	)

	sleeper := &fakeSleeper{}
	h := New(WithSleeper(sleeper.sleep), WithFailFastErrors(true))
	params := Params{UserEmail: "a@example.com", Text: "hi"}

	_, invokeErr := h.Invoke(context.Background(), bearerContext(slack.server.URL), params)
	require.Error(t, invokeErr)

	res, err := h.Error(context.Background(), invokeErr, params)

	assert.Nil(t, res)
	assert.Same(t, invokeErr, err)
	assert.Empty(t, sleeper.calls())
}

func TestHalt(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2024, 5, 1, 14, 30, 15, 123_000_000, time.FixedZone("CEST", 2*60*60))
	h := New(WithClock(func() time.Time { return fixed }))

	res := h.Halt("deploy", "")
	assert.Equal(t, &HaltResult{
		Status:    StatusHalted,
		UserEmail: "unknown",
		Reason:    "deploy",
		HaltedAt:  "2024-05-01T12:30:15.123Z",
	}, res)

	res = h.Halt("deploy", "a@example.com")
	assert.Equal(t, "a@example.com", res.UserEmail)
}

func TestHalt_DefaultClock(t *testing.T) {
	t.Parallel()

	res := New().Halt("shutdown", "")

	assert.NotEmpty(t, res.HaltedAt)
	_, err := time.Parse(time.RFC3339, res.HaltedAt)
	assert.NoError(t, err)
}
