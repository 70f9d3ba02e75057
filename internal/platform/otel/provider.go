// Package otel wires opt-in OpenTelemetry tracing for Sokoni binaries.
package otel

import (
	"context"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Environment variables read by Setup.
const (
	EnvEnabled  = "SOKONI_OTEL_ENABLED"
	EnvEndpoint = "SOKONI_OTEL_ENDPOINT"
)

// serviceNamespace groups every Sokoni binary under one resource namespace.
const serviceNamespace = "sokoni"

// Setup installs the global tracer provider for the named service and
// returns the flush function the caller defers. Tracing stays off, with a
// no-op flush, unless SOKONI_OTEL_ENDPOINT is set and SOKONI_OTEL_ENABLED
// is not "false".
func Setup(ctx context.Context, serviceName string) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	endpoint := strings.TrimSpace(os.Getenv(EnvEndpoint))
	if endpoint == "" || strings.EqualFold(os.Getenv(EnvEnabled), "false") {
		return noop, nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(serviceName),
		semconv.ServiceNamespace(serviceNamespace),
	))
	if err != nil {
		return noop, err
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return noop, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return provider.Shutdown, nil
}
