package logger

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// ContextHandler implements [slog.Handler] and enriches every record
// with the attributes stashed in the context, so a feed or request id
// attached once shows up on all logs below it.
type ContextHandler struct {
	slog.Handler
}

// NewContextHandler wraps `base` with context-attribute support.
func NewContextHandler(base slog.Handler) ContextHandler {
	return ContextHandler{Handler: base}
}

// Handle implements [slog.Handler].
func (h ContextHandler) Handle(ctx context.Context, record slog.Record) error {
	if attrs, ok := ctx.Value(ctxKey{}).([]slog.Attr); ok {
		record.AddAttrs(attrs...)
	}

	return h.Handler.Handle(ctx, record)
}

// Ctx returns a context carrying the given attributes for the
// [ContextHandler] to pick up later.
func Ctx(ctx context.Context, toAppend ...slog.Attr) context.Context {
	attrs, _ := ctx.Value(ctxKey{}).([]slog.Attr)
	attrs = append(attrs[:len(attrs):len(attrs)], toAppend...)

	return context.WithValue(ctx, ctxKey{}, attrs)
}
