package telemetry

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/c360/campaignpulse/errors"
)

// Config configures trace export.
type Config struct {
	Enabled     bool
	Endpoint    string  // OTLP/HTTP endpoint URL, e.g. http://localhost:4318
	ServiceName string  // Reported as service.name
	SampleRatio float64 // Fraction of root spans sampled; 1 samples everything
}

// DefaultConfig returns tracing disabled.
func DefaultConfig() Config {
	return Config{ServiceName: "campaignpulse", SampleRatio: 1}
}

// Validate checks the configuration for errors
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "telemetry", "Validate",
			"endpoint is required when tracing is enabled")
	}
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "telemetry", "Validate",
			fmt.Sprintf("sample_ratio must be within [0, 1], got %v", c.SampleRatio))
	}
	return nil
}

// ShutdownFunc flushes pending spans.
type ShutdownFunc func(context.Context) error

// Setup initialises OpenTelemetry tracing.
//
// Tracing is opt-in: when cfg is disabled, Setup returns a no-op provider and
// shutdown, and no global provider is registered. Otherwise the SDK provider
// is installed globally with W3C trace context propagation. The returned
// shutdown should be deferred by the caller.
func Setup(ctx context.Context, cfg Config) (trace.TracerProvider, ShutdownFunc, error) {
	disabled := func(context.Context) error { return nil }

	if !cfg.Enabled {
		return noop.NewTracerProvider(), disabled, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, disabled, err
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(cfg.Endpoint),
	)
	if err != nil {
		return nil, disabled, errors.Wrap(err, "telemetry", "Setup", "create exporter")
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, disabled, errors.Wrap(err, "telemetry", "Setup", "build resource")
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp, tp.Shutdown, nil
}
