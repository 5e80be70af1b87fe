// Package telemetry reports engine lifecycle events to OpenTelemetry.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/abdidvp/luaguard/internal/domain"
)

const scope = "github.com/abdidvp/luaguard"

// Observer implements domain.Observer with one span per validation, a
// child span per checker, and run/failure/finding counters.
type Observer struct {
	tracer trace.Tracer

	runs     metric.Int64Counter
	failures metric.Int64Counter
	findings metric.Int64Counter
	duration metric.Float64Histogram
}

// New creates an observer bound to the provided meter and tracer providers.
func New(mp metric.MeterProvider, tp trace.TracerProvider) (*Observer, error) {
	meter := mp.Meter(scope)

	runs, err := meter.Int64Counter("luaguard.checker.runs",
		metric.WithDescription("Number of checker runs"),
	)
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter("luaguard.checker.failures",
		metric.WithDescription("Number of checker runs that errored or timed out"),
	)
	if err != nil {
		return nil, err
	}
	findings, err := meter.Int64Counter("luaguard.findings",
		metric.WithDescription("Number of findings reported"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("luaguard.checker.duration",
		metric.WithDescription("Checker duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Observer{
		tracer:   tp.Tracer(scope),
		runs:     runs,
		failures: failures,
		findings: findings,
		duration: duration,
	}, nil
}

// Noop returns an observer backed by no-op providers.
func Noop() *Observer {
	o, _ := New(metricnoop.NewMeterProvider(), tracenoop.NewTracerProvider())
	return o
}

func (o *Observer) StartValidation(ctx context.Context, req domain.ValidationRequest) (context.Context, func(*domain.Report, error)) {
	ctx, span := o.tracer.Start(ctx, "luaguard.validate", trace.WithAttributes(
		attribute.String("request_id", req.ID),
		attribute.String("script_name", req.ScriptName),
		attribute.String("validation_type", string(req.EffectiveType())),
		attribute.Int("script_bytes", len(req.ScriptCode)),
	))
	return ctx, func(report *domain.Report, err error) {
		defer span.End()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return
		}
		span.SetAttributes(
			attribute.String("overall_status", string(report.OverallStatus)),
			attribute.Float64("overall_score", report.OverallScore),
			attribute.Bool("deployment_ready", report.DeploymentReady),
		)
		span.SetStatus(codes.Ok, "")
	}
}

func (o *Observer) StartChecker(ctx context.Context, name domain.CheckerName) (context.Context, func(domain.CheckerResult, time.Duration)) {
	ctx, span := o.tracer.Start(ctx, "luaguard.checker", trace.WithAttributes(
		attribute.String("checker", string(name)),
	))
	return ctx, func(res domain.CheckerResult, elapsed time.Duration) {
		defer span.End()

		bg := context.Background()
		attrs := []attribute.KeyValue{
			attribute.String("checker", string(name)),
			attribute.String("status", string(res.Status)),
		}
		options := metric.WithAttributes(attrs...)
		o.runs.Add(bg, 1, options)
		o.duration.Record(bg, elapsed.Seconds(), options)

		for _, f := range res.Findings {
			o.findings.Add(bg, 1, metric.WithAttributes(
				attribute.String("checker", string(name)),
				attribute.String("severity", string(f.Severity)),
			))
		}

		span.SetAttributes(attribute.Float64("score", res.Score), attribute.Int("findings", len(res.Findings)))
		if res.Status == domain.CheckError {
			o.failures.Add(bg, 1, metric.WithAttributes(attribute.String("checker", string(name))))
			span.SetStatus(codes.Error, res.Error)
			return
		}
		span.SetStatus(codes.Ok, "")
	}
}

var _ domain.Observer = (*Observer)(nil)
