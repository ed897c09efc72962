package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "crowdin-connector"

// StartDeliverySpan starts a span covering one webhook delivery.
func StartDeliverySpan(ctx context.Context, deliveryID string, subEvents int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "webhook.delivery",
		trace.WithAttributes(
			attribute.String("delivery.id", deliveryID),
			attribute.Int("delivery.subevents", subEvents),
		),
	)
}

// StartSubEventSpan starts a span for one sub-event of a delivery.
func StartSubEventSpan(ctx context.Context, trigger string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "webhook.subevent",
		trace.WithAttributes(attribute.String("crowdin.trigger", trigger)),
	)
}

// StartCrowdinSpan starts a client span for a Crowdin API call.
func StartCrowdinSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "crowdin."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
	)
}
