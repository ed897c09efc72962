package logger

import (
	"context"
	"log/slog"
)

// ContextHandler decorates records with the request and delivery IDs
// carried by the context passed to the *Context logging methods.
type ContextHandler struct {
	inner slog.Handler
}

// Enabled delegates to the inner handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle adds request_id and delivery_id when present, then delegates.
func (h *ContextHandler) Handle(ctx context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	if id := RequestID(ctx); id != "" {
		rec.AddAttrs(slog.String("request_id", id))
	}
	if id := DeliveryID(ctx); id != "" {
		rec.AddAttrs(slog.String("delivery_id", id))
	}
	return h.inner.Handle(ctx, rec)
}

// WithAttrs returns a new ContextHandler wrapping the derived inner handler.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs)}
}

// WithGroup returns a new ContextHandler wrapping the derived inner handler.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{inner: h.inner.WithGroup(name)}
}
