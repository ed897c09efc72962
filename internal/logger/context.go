package logger

import "context"

// contextKey is a private type to prevent collisions with other context keys.
type contextKey int

const (
	requestIDKey contextKey = iota
	deliveryIDKey
)

// WithRequestID returns a new context with the given request ID stored.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID extracts the request ID from the context.
// Returns an empty string if no request ID is set.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithDeliveryID stores the id of one inbound webhook delivery. The id
// follows the delivery onto the worker pool, after the request is gone.
func WithDeliveryID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, deliveryIDKey, id)
}

// DeliveryID extracts the webhook delivery ID from the context.
func DeliveryID(ctx context.Context) string {
	id, _ := ctx.Value(deliveryIDKey).(string)
	return id
}
