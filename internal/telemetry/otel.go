package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// InstrumentationName names the tracer used for spans created by this module
const InstrumentationName = "github.com/benvon/chore-tracker"

// ShutdownFunc flushes and stops tracing
type ShutdownFunc func(ctx context.Context) error

// InitTracer initializes the OpenTelemetry tracer provider. An empty endpoint
// leaves the exporter on its OTEL_EXPORTER_OTLP_* defaults.
func InitTracer(ctx context.Context, serviceName, endpoint string) (*sdktrace.TracerProvider, error) {
	var opts []otlptracehttp.Option
	if endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp, nil
}

// Setup initializes tracing when enabled. The returned function is always
// safe to call. A failure to start the exporter is logged and tracing stays off.
func Setup(ctx context.Context, enabled bool, serviceName, endpoint string, logger *zap.Logger) ShutdownFunc {
	if !enabled {
		return func(context.Context) error { return nil }
	}
	tp, err := InitTracer(ctx, serviceName, endpoint)
	if err != nil {
		logger.Warn("failed_to_initialize_otel", zap.Error(err))
		return func(context.Context) error { return nil }
	}
	logger.Info("otel_tracing_enabled", zap.String("service", serviceName), zap.String("endpoint", endpoint))
	return func(ctx context.Context) error {
		return Shutdown(ctx, tp)
	}
}

// Tracer returns the module tracer from the global provider
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// Shutdown gracefully shuts down the tracer provider
func Shutdown(ctx context.Context, tp *sdktrace.TracerProvider) error {
	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}
