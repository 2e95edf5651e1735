package observability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	slackdm "github.com/peteraglen/slack-dm-action"
)

const meterName = "github.com/peteraglen/slack-dm-action"

// Recorder implements [slackdm.Metrics] with OpenTelemetry instruments.
type Recorder struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	outcomes metric.Int64Counter
}

var _ slackdm.Metrics = (*Recorder)(nil)

// NewRecorder creates the instruments on a meter obtained from mp.
func NewRecorder(mp metric.MeterProvider) (*Recorder, error) {
	meter := mp.Meter(meterName)

	requests, err := meter.Int64Counter(
		"slackdm.slack.requests",
		metric.WithDescription("Slack Web API calls by method and HTTP status"),
		metric.WithUnit("{requests}"),
	)
	if err != nil {
		return nil, fmt.Errorf("observability: failed to create request counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		"slackdm.slack.duration",
		metric.WithDescription("Duration of Slack Web API calls"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("observability: failed to create duration histogram: %w", err)
	}

	outcomes, err := meter.Int64Counter(
		"slackdm.outcomes",
		metric.WithDescription("Entry point results by outcome"),
		metric.WithUnit("{invocations}"),
	)
	if err != nil {
		return nil, fmt.Errorf("observability: failed to create outcome counter: %w", err)
	}

	return &Recorder{requests: requests, duration: duration, outcomes: outcomes}, nil
}

func (r *Recorder) RecordSlackCall(ctx context.Context, method string, statusCode int, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("status", statusLabel(statusCode)),
	)

	r.requests.Add(ctx, 1, attrs)
	r.duration.Record(ctx, float64(elapsed)/float64(time.Millisecond), attrs)
}

func (r *Recorder) RecordOutcome(ctx context.Context, entryPoint, outcome string) {
	r.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entry_point", entryPoint),
		attribute.String("outcome", outcome),
	))
}

func statusLabel(code int) string {
	if code == 0 {
		return "error"
	}

	return strconv.Itoa(code)
}
