// Package mtrace carries the ambient correlation id and wraps the
// OpenTelemetry tracer the teacher threads through every use case
// (mopentelemetry.HandleSpanError in the teacher's command files).
// Correlation id is propagated via context.Context, never a package-level
// global, per spec.md §9.
package mtrace

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/brackwater/payrail/internal/idgen"
)

type correlationKey struct{}

// WithCorrelationID returns a context carrying the given correlation id.
func WithCorrelationID(ctx context.Context, cid string) context.Context {
	return context.WithValue(ctx, correlationKey{}, cid)
}

// CorrelationID returns the ambient correlation id, generating one if the
// context doesn't carry one yet (mirrors shared/correlation.py's
// get_correlation_id auto-generation).
func CorrelationID(ctx context.Context) string {
	if v, ok := ctx.Value(correlationKey{}).(string); ok && v != "" {
		return v
	}

	return idgen.CorrelationID()
}

// Tracer is the package-wide tracer handle, named after the service the way
// the teacher names its tracer per component.
var Tracer = otel.Tracer("payrail")

// StartSpan starts a span named op and returns the derived context plus a
// closer that also records err on the span, mirroring the teacher's
// mopentelemetry.HandleSpanError helper used in every command.
func StartSpan(ctx context.Context, op string) (context.Context, func(err error)) {
	ctx, span := Tracer.Start(ctx, op)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}

		span.End()
	}
}

// SpanFromContext is a thin re-export so callers that only need the raw
// span (e.g. to add attributes) don't need to import otel/trace directly.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}
