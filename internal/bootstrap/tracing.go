package bootstrap

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/brackwater/payrail/internal/config"
	"github.com/brackwater/payrail/internal/mlog"
)

// newTracerProvider registers a sdktrace.TracerProvider as the global
// tracer so internal/mtrace.Tracer.Start produces real exported spans,
// returning a no-op shutdown func when no collector endpoint is
// configured — tracing is additive, never required to run a process.
func newTracerProvider(ctx context.Context, cfg config.Config, logger mlog.Logger) (func(context.Context) error, error) {
	if cfg.OtelExporterEndpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OtelExporterEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		logger.Warnf("otel collector unavailable, tracing disabled: %v", err)
		return func(context.Context) error { return nil }, nil
	}

	res, err := sdkresource.Merge(
		sdkresource.Default(),
		sdkresource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(cfg.OtelServiceName)),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp.Shutdown, nil
}
