// Package otel configures OpenTelemetry tracing for turnkeeper binaries.
package otel

import (
	"context"
	"fmt"
	"strings"

	"github.com/louisbranch/turnkeeper/internal/platform/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

type tracingEnv struct {
	Endpoint string `env:"OTEL_ENDPOINT"`
	Enabled  string `env:"OTEL_ENABLED"`
	// SampleRatio is the share of root spans kept. Combat commands are rare
	// enough that the default keeps all of them.
	SampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"1"`
}

func (e tracingEnv) active() bool {
	if strings.EqualFold(strings.TrimSpace(e.Enabled), "false") {
		return false
	}
	return strings.TrimSpace(e.Endpoint) != ""
}

func (e tracingEnv) sampler() (sdktrace.Sampler, error) {
	if e.SampleRatio < 0 || e.SampleRatio > 1 {
		return nil, fmt.Errorf("otel sample ratio %v outside [0, 1]", e.SampleRatio)
	}
	if e.SampleRatio == 1 {
		return sdktrace.AlwaysSample(), nil
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(e.SampleRatio)), nil
}

// Setup registers a global tracer provider exporting to
// TURNKEEPER_OTEL_ENDPOINT over OTLP/HTTP. Without an endpoint, or with
// TURNKEEPER_OTEL_ENABLED=false, nothing is registered and shutdown is a no-op.
func Setup(ctx context.Context, serviceName string) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	var cfg tracingEnv
	if err := config.ParseEnv(&cfg); err != nil {
		return noop, err
	}
	if !cfg.active() {
		return noop, nil
	}
	sampler, err := cfg.sampler()
	if err != nil {
		return noop, err
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(strings.TrimSpace(cfg.Endpoint)))
	if err != nil {
		return noop, fmt.Errorf("create otlp exporter: %w", err)
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return noop, fmt.Errorf("build otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return tp.Shutdown, nil
}

// Tracer returns a named tracer from the global provider, a no-op tracer
// until Setup registers one.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
