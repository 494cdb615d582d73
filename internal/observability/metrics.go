package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/finops-claw-gang/eventcheck-go/internal/domain"
)

// Metrics holds OTel metric instruments for event comparisons.
type Metrics struct {
	Comparisons   metric.Int64Counter
	Issues        metric.Int64Counter
	ParseFailures metric.Int64Counter
	BatchLatency  metric.Float64Histogram
	ActivityCalls metric.Int64Counter
}

// NewMetrics creates the comparison metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	return NewMetricsFrom(otel.Meter("eventcheck"))
}

// NewMetricsFrom creates the instruments on the given meter.
func NewMetricsFrom(meter metric.Meter) (*Metrics, error) {
	comparisons, err := meter.Int64Counter("eventcheck.comparisons",
		metric.WithDescription("Number of event pairs compared, by consistency grade"),
	)
	if err != nil {
		return nil, err
	}

	issues, err := meter.Int64Counter("eventcheck.issues",
		metric.WithDescription("Number of issues reported, by issue kind"),
	)
	if err != nil {
		return nil, err
	}

	parseFailures, err := meter.Int64Counter("eventcheck.parse_failures",
		metric.WithDescription("Number of event pairs rejected as malformed JSON"),
	)
	if err != nil {
		return nil, err
	}

	batchLatency, err := meter.Float64Histogram("eventcheck.batch.latency_seconds",
		metric.WithDescription("Wall time to compare one batch"),
	)
	if err != nil {
		return nil, err
	}

	activityCalls, err := meter.Int64Counter("eventcheck.activity.calls",
		metric.WithDescription("Number of activity invocations"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		Comparisons:   comparisons,
		Issues:        issues,
		ParseFailures: parseFailures,
		BatchLatency:  batchLatency,
		ActivityCalls: activityCalls,
	}, nil
}

// RecordComparison records one comparison and its issues by kind.
func (m *Metrics) RecordComparison(ctx context.Context, result domain.ComparisonResult) {
	m.Comparisons.Add(ctx, 1,
		metric.WithAttributes(attribute.String("consistency", string(result.Grade))),
	)
	for kind, n := range result.CountByKind() {
		m.Issues.Add(ctx, int64(n),
			metric.WithAttributes(attribute.String("kind", string(kind))),
		)
	}
}

// RecordParseFailure records a malformed pair.
func (m *Metrics) RecordParseFailure(ctx context.Context) {
	m.ParseFailures.Add(ctx, 1)
}

// RecordBatchLatency records how long a batch took.
func (m *Metrics) RecordBatchLatency(ctx context.Context, d time.Duration) {
	m.BatchLatency.Record(ctx, d.Seconds())
}

// RecordActivity records an activity invocation.
func (m *Metrics) RecordActivity(ctx context.Context, name string) {
	m.ActivityCalls.Add(ctx, 1,
		metric.WithAttributes(attribute.String("activity", name)),
	)
}
