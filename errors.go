package slackdm

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Kind identifies where and how an invocation failed.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConfiguration means secrets or environment required by the action
	// are missing or invalid.
	KindConfiguration
	// KindInvalidParams means a required job parameter was empty.
	KindInvalidParams
	// KindTokenExchange means the OAuth2 token endpoint answered with a
	// non-success status.
	KindTokenExchange
	// KindMalformedToken means the token endpoint answered 2xx without an
	// access token.
	KindMalformedToken
	KindUserNotFound
	KindLookup
	KindSend
	// KindTransport means no HTTP response was received.
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindInvalidParams:
		return "invalid_params"
	case KindTokenExchange:
		return "token_exchange"
	case KindMalformedToken:
		return "malformed_token"
	case KindUserNotFound:
		return "user_not_found"
	case KindLookup:
		return "lookup"
	case KindSend:
		return "send"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Error is the error type returned by [Handler.Invoke]. The message matches
// what operators see in the job log; Kind and StatusCode carry the same
// information in structured form for [DefaultRetryPolicy].
type Error struct {
	Kind Kind
	// StatusCode is the HTTP status of the failing response, or 0.
	StatusCode int
	// SlackError is the "error" field of a Slack API response, if any.
	SlackError string
	// RetryAfter is the delay requested by a Retry-After response header.
	RetryAfter time.Duration

	msg string
	err error
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}

	return e.msg
}

func (e *Error) Unwrap() error {
	return e.err
}

func newError(kind Kind, format string, v ...any) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, v...)}
}

func configurationError(format string, v ...any) *Error {
	return newError(KindConfiguration, format, v...)
}

func transportError(err error, format string, v ...any) *Error {
	e := newError(KindTransport, format, v...)
	e.err = err

	return e
}

// httpError builds an error for a received response and records its status.
func httpError(kind Kind, r *resty.Response, format string, v ...any) *Error {
	e := newError(kind, format, v...)
	e.StatusCode = r.StatusCode()
	e.RetryAfter = retryAfter(r)

	return e
}

// IsKind reports whether err carries an [*Error] of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error

	return errors.As(err, &e) && e.Kind == kind
}

// statusLine renders "<code> <text>", e.g. "404 Not Found".
func statusLine(r *resty.Response) string {
	if status := strings.TrimSpace(r.Status()); status != "" {
		return status
	}

	return strconv.Itoa(r.StatusCode()) + " " + http.StatusText(r.StatusCode())
}

func retryAfter(r *resty.Response) time.Duration {
	value := strings.TrimSpace(r.Header().Get("Retry-After"))
	if value == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}

	return 0
}
