package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricToolCallsTotal    = "braindrive.tool.calls.total"
	metricToolCallDuration  = "braindrive.tool.call.duration.seconds"
	metricToolErrorsTotal   = "braindrive.tool.errors.total"
	metricInflightToolCalls = "braindrive.tool.inflight.calls"

	attrTool      = "tool"
	attrStatus    = "status"
	attrErrorCode = "code"

	// StatusOK and StatusError are the status label values.
	StatusOK    = "ok"
	StatusError = "error"
)

// durationBucketBoundaries covers 1ms to 30s. Most tool calls are
// filesystem-bound and finish well under a second; git commits and digest
// rollups can take longer on large libraries.
var durationBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// REDMetrics holds the OTel instruments for Rate, Error, Duration metrics
// across the tool surface.
type REDMetrics struct {
	callsTotal    metric.Int64Counter
	callDuration  metric.Float64Histogram
	errorsTotal   metric.Int64Counter
	inflightCalls metric.Int64UpDownCounter
}

// NewREDMetrics creates RED metric instruments from the given meter.
func NewREDMetrics(mt metric.Meter) (*REDMetrics, error) {
	callsTotal, err := mt.Int64Counter(metricToolCallsTotal,
		metric.WithDescription("Total number of tool calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricToolCallsTotal, err)
	}

	callDuration, err := mt.Float64Histogram(metricToolCallDuration,
		metric.WithDescription("Tool call duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricToolCallDuration, err)
	}

	errorsTotal, err := mt.Int64Counter(metricToolErrorsTotal,
		metric.WithDescription("Total number of tool call errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricToolErrorsTotal, err)
	}

	inflight, err := mt.Int64UpDownCounter(metricInflightToolCalls,
		metric.WithDescription("Number of in-flight tool calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricInflightToolCalls, err)
	}

	return &REDMetrics{
		callsTotal:    callsTotal,
		callDuration:  callDuration,
		errorsTotal:   errorsTotal,
		inflightCalls: inflight,
	}, nil
}

// RecordCall records a completed tool call with its status and duration.
// errorCode labels the error counter and is ignored for successful calls.
func (rm *REDMetrics) RecordCall(ctx context.Context, tool, status, errorCode string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrTool, tool),
		attribute.String(attrStatus, status),
	)

	rm.callsTotal.Add(ctx, 1, attrs)
	rm.callDuration.Record(ctx, duration.Seconds(), attrs)

	if status == StatusError {
		rm.errorsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String(attrTool, tool),
			attribute.String(attrErrorCode, errorCode),
		))
	}
}

// TrackInflight increments the in-flight gauge and returns a function to
// decrement it.
func (rm *REDMetrics) TrackInflight(ctx context.Context, tool string) func() {
	attrs := metric.WithAttributes(attribute.String(attrTool, tool))
	rm.inflightCalls.Add(ctx, 1, attrs)

	return func() {
		rm.inflightCalls.Add(ctx, -1, attrs)
	}
}
