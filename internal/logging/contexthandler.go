package logging

import (
	"context"
	"log/slog"
	"time"
)

// ContextProvider is a function that returns dynamic context attributes.
type ContextProvider func() []slog.Attr

// Clock is the simulation clock as seen by the log.
type Clock interface {
	Now() time.Duration
	Ticks() uint64
}

// ClockAttrs stamps records with the simulation time and tick count.
func ClockAttrs(c Clock) ContextProvider {
	return func() []slog.Attr {
		return []slog.Attr{
			slog.Duration("simTime", c.Now()),
			slog.Uint64("tick", c.Ticks()),
		}
	}
}

// ContextHandler wraps another handler and injects dynamic context attributes.
type ContextHandler struct {
	inner    slog.Handler
	provider ContextProvider
}

// NewContextHandler creates a handler that adds dynamic context to each record.
func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{
		inner:    inner,
		provider: provider,
	}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle adds the provider attributes in front of the record's own.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider == nil {
		return h.inner.Handle(ctx, r)
	}
	attrs := h.provider()
	if len(attrs) == 0 {
		return h.inner.Handle(ctx, r)
	}
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	out.AddAttrs(attrs...)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(a)
		return true
	})
	return h.inner.Handle(ctx, out)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{
		inner:    h.inner.WithAttrs(attrs),
		provider: h.provider,
	}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{
		inner:    h.inner.WithGroup(name),
		provider: h.provider,
	}
}
