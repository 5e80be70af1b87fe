package telemetry

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Standard OTLP endpoint variables. Either one enables span export.
const (
	EnvEndpoint       = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvTracesEndpoint = "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"
)

// Enabled reports whether an OTLP endpoint is configured in the environment.
func Enabled() bool {
	return os.Getenv(EnvEndpoint) != "" || os.Getenv(EnvTracesEndpoint) != ""
}

// Setup returns the observer for a process run and a shutdown function that
// flushes pending spans. Without an OTLP endpoint it returns Noop. The
// exporter reads its endpoint, headers and timeout from the standard OTEL_*
// variables.
func Setup(ctx context.Context, version string) (*Observer, func(context.Context) error, error) {
	if !Enabled() {
		return Noop(), func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("creating OTLP trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", "luaguard"),
			attribute.String("service.version", version),
		)),
	)

	o, err := New(metricnoop.NewMeterProvider(), tp)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, nil, err
	}
	return o, tp.Shutdown, nil
}
