package slackdm

import (
	"context"
	"time"
)

// Metrics receives per-invocation measurements. Implementations must be
// safe for concurrent use.
type Metrics interface {
	// RecordSlackCall is called after each Slack Web API call. statusCode is
	// 0 when no response was received.
	RecordSlackCall(ctx context.Context, method string, statusCode int, elapsed time.Duration)
	// RecordOutcome is called once per entry point call, e.g.
	// ("invoke", "success") or ("error", "retry_requested").
	RecordOutcome(ctx context.Context, entryPoint, outcome string)
}

// NoopMetrics discards all measurements.
type NoopMetrics struct{}

func (m *NoopMetrics) RecordSlackCall(_ context.Context, _ string, _ int, _ time.Duration) {}

func (m *NoopMetrics) RecordOutcome(_ context.Context, _, _ string) {}
