package slackdm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	// RateLimitBackoff is waited before asking for a retry after HTTP 429.
	RateLimitBackoff = 5 * time.Second
	// ServerErrorBackoff is waited before asking for a retry after a gateway
	// error.
	ServerErrorBackoff = 1 * time.Second
)

// RetryDecision is the outcome of a [RetryPolicy].
type RetryDecision struct {
	Retry   bool
	Backoff time.Duration
}

// RetryPolicy decides whether a failed invocation should be retried.
type RetryPolicy func(err error) RetryDecision

// UnknownErrorBehavior controls errors that no rule of the retry policy
// recognises.
type UnknownErrorBehavior int

const (
	RetryUnknownErrors UnknownErrorBehavior = iota
	FailUnknownErrors
)

func (b UnknownErrorBehavior) String() string {
	if b == FailUnknownErrors {
		return "fatal"
	}

	return "retry"
}

// ParseUnknownErrorBehavior accepts "retry" or "fatal".
func ParseUnknownErrorBehavior(s string) (UnknownErrorBehavior, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "retry":
		return RetryUnknownErrors, nil
	case "fatal", "fail", "raise":
		return FailUnknownErrors, nil
	default:
		return RetryUnknownErrors, fmt.Errorf("unknown error behavior %q: must be retry or fatal", s)
	}
}

// Slack error codes that will not go away by retrying. Only consulted by
// fail-fast policies.
var slackAuthErrors = map[string]bool{
	"not_authed":       true,
	"invalid_auth":     true,
	"token_revoked":    true,
	"token_expired":    true,
	"account_inactive": true,
	"missing_scope":    true,
}

var fatal = RetryDecision{}

// DefaultRetryPolicy is the retry policy used by [Handler] unless replaced
// with [WithRetryPolicy]. It retries HTTP 429 after [RateLimitBackoff] and
// 502/503/504 after [ServerErrorBackoff]. HTTP 401/403, unknown users,
// configuration and token errors are never retried. Anything else is
// retried immediately.
//
// Errors that are not an [*Error], e.g. a message relayed by the host
// framework, are classified by the status codes and phrases in their text.
func DefaultRetryPolicy(err error) RetryDecision {
	return classify(err, RetryUnknownErrors, false)
}

// NewRetryPolicy returns [DefaultRetryPolicy] with the given treatment of
// unrecognised errors.
func NewRetryPolicy(unknown UnknownErrorBehavior) RetryPolicy {
	return func(err error) RetryDecision {
		return classify(err, unknown, false)
	}
}

// NewFailFastRetryPolicy extends [NewRetryPolicy] with rules that stop
// early: Slack authentication error codes (invalid_auth, missing_scope, ...)
// and transport failures caused by context cancellation, an expired
// deadline or DNS resolution are fatal, and other transport failures wait
// [ServerErrorBackoff].
func NewFailFastRetryPolicy(unknown UnknownErrorBehavior) RetryPolicy {
	return func(err error) RetryDecision {
		return classify(err, unknown, true)
	}
}

func classify(err error, unknown UnknownErrorBehavior, failFast bool) RetryDecision {
	fallback := RetryDecision{Retry: unknown == RetryUnknownErrors}

	if err == nil {
		return fallback
	}

	var e *Error
	if errors.As(err, &e) {
		if d, ok := classifyError(e, failFast); ok {
			return d
		}

		return fallback
	}

	if d, ok := classifyMessage(err.Error()); ok {
		return d
	}

	return fallback
}

func classifyError(e *Error, failFast bool) (RetryDecision, bool) {
	switch e.Kind {
	case KindConfiguration, KindInvalidParams, KindTokenExchange, KindMalformedToken, KindUserNotFound:
		return fatal, true
	}

	switch e.StatusCode {
	case http.StatusTooManyRequests:
		return RetryDecision{Retry: true, Backoff: RateLimitBackoff}, true
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return RetryDecision{Retry: true, Backoff: ServerErrorBackoff}, true
	case http.StatusUnauthorized, http.StatusForbidden:
		return fatal, true
	}

	if !failFast {
		return RetryDecision{}, false
	}

	if slackAuthErrors[e.SlackError] {
		return fatal, true
	}

	if e.Kind == KindTransport {
		return classifyTransport(e.err), true
	}

	return RetryDecision{}, false
}

func classifyTransport(err error) RetryDecision {
	// Don't retry on context cancellation or deadline exceeded
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fatal
	}

	// Don't retry on DNS resolution errors
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fatal
	}

	return RetryDecision{Retry: true, Backoff: ServerErrorBackoff}
}

func classifyMessage(msg string) (RetryDecision, bool) {
	switch {
	case strings.Contains(msg, "429"):
		return RetryDecision{Retry: true, Backoff: RateLimitBackoff}, true
	case strings.Contains(msg, "502"), strings.Contains(msg, "503"), strings.Contains(msg, "504"):
		return RetryDecision{Retry: true, Backoff: ServerErrorBackoff}, true
	case strings.Contains(msg, "401"), strings.Contains(msg, "403"), strings.Contains(msg, "User not found"):
		return fatal, true
	}

	return RetryDecision{}, false
}
