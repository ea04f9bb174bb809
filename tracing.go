package instrumented

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the global tracer used for spans opened by WithTracing.
var tracer = otel.Tracer("instrumented")

// startSpan opens a span for one observed call. The returned func ends the
// span, marking it failed when given a non-nil error.
func startSpan(name, ctx string) func(error) {
	_, span := tracer.Start(context.Background(), name,
		trace.WithAttributes(attribute.String("ctx", ctx)),
	)
	return func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.Bool("error", true))
		}
		span.End()
	}
}
