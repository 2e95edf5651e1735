// Package slackdm implements a job action that sends a Slack direct message
// to a user identified by email address.
//
// An invocation makes two sequential calls to the Slack Web API: it resolves
// the user ID with users.lookupByEmail, waits for a short pacing delay, and
// posts the message with chat.postMessage using the user ID as the channel.
// HTTP calls go through [github.com/go-resty/resty/v2].
//
// # Basic Usage
//
//	h := slackdm.New(
//	    slackdm.WithRequestLogger(logger),
//	    slackdm.WithTimeout(10*time.Second),
//	)
//
//	res, err := h.Invoke(ctx, execCtx, slackdm.Params{
//	    UserEmail: "jane@example.com",
//	    Text:      "Deploy finished",
//	    Delay:     "250ms",
//	})
//	if err != nil {
//	    res, err := h.Error(ctx, err, params)
//	    ...
//	}
//
// # Entry Points
//
// The host job framework drives three entry points on [Handler]:
// [Handler.Invoke] performs the work, [Handler.Error] decides whether a
// failed invocation should be retried, and [Handler.Halt] acknowledges a
// shutdown.
//
// # Authentication
//
// The Authorization header is resolved per invocation from the
// [ExecutionContext] secrets, in a fixed order: bearer token, basic
// credentials, a pre-issued OAuth2 authorization-code token, and finally an
// OAuth2 client-credentials exchange. The first method whose secrets are
// present is used; methods are never combined. Tokens are not cached.
//
// # Retry Behaviour
//
// Failures are returned as [*Error] values carrying a [Kind] and, when an
// HTTP response was received, its status code. [DefaultRetryPolicy] retries
// rate limits (after 5s) and gateway errors (after 1s), and never retries
// HTTP 401/403, unknown users or configuration problems. How unclassified
// errors are treated is controlled with [WithUnknownErrorBehavior];
// [WithFailFastErrors] additionally stops on Slack authentication error codes
// and unrecoverable transport failures.
//
// # Logging
//
// Implement [RequestLogger] and supply it via [WithRequestLogger]. The
// default [NoopLogger] discards all output. Secrets are never passed to the
// logger.
package slackdm
