package slackdm

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

type Option func(*Options)

type Options struct {
	timeout        time.Duration
	requestLogger  RequestLogger
	retryPolicy    RetryPolicy
	unknownErrors  UnknownErrorBehavior
	failFast       bool
	requestHeaders map[string]string
	baseURLEnvKeys []string
	httpClient     *http.Client
	metrics        Metrics
	tokenExchanger TokenExchanger
	sleep          SleepFunc
	now            func() time.Time
}

func newHandlerOptions() *Options {
	return &Options{
		timeout:        30 * time.Second,
		requestLogger:  &NoopLogger{},
		unknownErrors:  RetryUnknownErrors,
		requestHeaders: map[string]string{},
		baseURLEnvKeys: []string{EnvAddress, EnvSlackAPIURL},
		metrics:        &NoopMetrics{},
		sleep:          sleepContext,
		now:            time.Now,
	}
}

// WithTimeout sets the timeout of each HTTP request. Values below 100ms are
// ignored.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		if timeout >= 100*time.Millisecond {
			o.timeout = timeout
		}
	}
}

func WithRequestLogger(logger RequestLogger) Option {
	return func(o *Options) {
		if logger != nil {
			o.requestLogger = logger
		}
	}
}

// WithRetryPolicy replaces the policy used by [Handler.Error]. When set, the
// behaviour chosen with [WithUnknownErrorBehavior] is up to the policy.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(o *Options) {
		if policy != nil {
			o.retryPolicy = policy
		}
	}
}

// WithUnknownErrorBehavior decides whether errors that match no known
// pattern are retried (the default) or re-raised.
func WithUnknownErrorBehavior(b UnknownErrorBehavior) Option {
	return func(o *Options) {
		if b == RetryUnknownErrors || b == FailUnknownErrors {
			o.unknownErrors = b
		}
	}
}

// WithFailFastErrors makes Slack authentication error codes and
// unrecoverable transport failures fatal in the default retry policy. It is
// off by default, in which case those errors are retried like any other
// unrecognised error.
func WithFailFastErrors(enabled bool) Option {
	return func(o *Options) {
		o.failFast = enabled
	}
}

// WithRequestHeader adds a header to every Slack and token request.
// Authorization, Content-Type and Accept are managed by the handler and
// cannot be overridden.
func WithRequestHeader(header, value string) Option {
	return func(o *Options) {
		header = strings.TrimSpace(header)

		if header == "" ||
			strings.EqualFold(header, "Authorization") ||
			strings.EqualFold(header, "Content-Type") ||
			strings.EqualFold(header, "Accept") {
			return
		}

		o.requestHeaders[header] = value
	}
}

// WithBaseURLEnvKeys sets the environment keys consulted, in order, when the
// address parameter is empty. The default is ADDRESS then SLACK_API_URL.
func WithBaseURLEnvKeys(keys ...string) Option {
	return func(o *Options) {
		cleaned := make([]string, 0, len(keys))
		for _, k := range keys {
			if k = strings.TrimSpace(k); k != "" {
				cleaned = append(cleaned, k)
			}
		}

		if len(cleaned) > 0 {
			o.baseURLEnvKeys = cleaned
		}
	}
}

// WithHTTPClient sets the underlying HTTP client, e.g. to install a custom
// transport.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(o *Options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithTokenExchanger replaces the client-credentials token exchange, which
// by default is performed over the handler's own HTTP client.
func WithTokenExchanger(x TokenExchanger) Option {
	return func(o *Options) {
		if x != nil {
			o.tokenExchanger = x
		}
	}
}

// WithSleeper replaces the wait used between the two Slack calls and before
// signalling a retry.
func WithSleeper(sleep SleepFunc) Option {
	return func(o *Options) {
		if sleep != nil {
			o.sleep = sleep
		}
	}
}

// WithClock replaces the time source used for halt timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		if now != nil {
			o.now = now
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
