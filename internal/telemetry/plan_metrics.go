package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const planMeterName = "github.com/chargepath/chargepath/internal/planner"

// PlanMetrics records trip planning outcomes.
type PlanMetrics struct {
	plans    metric.Int64Counter
	duration metric.Float64Histogram
	stops    metric.Int64Histogram
	rescues  metric.Int64Counter
}

// NewPlanMetrics creates the planning instruments on the global meter.
func NewPlanMetrics() (*PlanMetrics, error) {
	meter := otel.Meter(planMeterName)

	plans, err := meter.Int64Counter(
		"trip.plans.total",
		metric.WithDescription("Trip planning requests by outcome code"),
		metric.WithUnit("{plan}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"trip.plan.duration",
		metric.WithDescription("Time spent planning a trip in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	stops, err := meter.Int64Histogram(
		"trip.plan.stops",
		metric.WithDescription("Charging stops per successful plan"),
		metric.WithUnit("{stop}"),
	)
	if err != nil {
		return nil, err
	}

	rescues, err := meter.Int64Counter(
		"trip.rescues.total",
		metric.WithDescription("Simulated community rescues by result"),
		metric.WithUnit("{rescue}"),
	)
	if err != nil {
		return nil, err
	}

	return &PlanMetrics{plans: plans, duration: duration, stops: stops, rescues: rescues}, nil
}

// RecordPlan records one planning call. code is "ok" on success.
func (m *PlanMetrics) RecordPlan(ctx context.Context, code string, stops int, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("code", code))
	m.plans.Add(ctx, 1, attrs)
	m.duration.Record(ctx, d.Seconds(), attrs)
	if code == "ok" {
		m.stops.Record(ctx, int64(stops))
	}
}

// RecordRescue records one simulated rescue.
func (m *PlanMetrics) RecordRescue(ctx context.Context, found bool) {
	if m == nil {
		return
	}
	m.rescues.Add(ctx, 1, metric.WithAttributes(attribute.Bool("found", found)))
}
