package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// ContextProvider is a function that returns dynamic context attributes.
type ContextProvider func() []slog.Attr

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

// Enabled delegates to the inner handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle adds dynamic context attributes and delegates to the inner handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider != nil {
		r.AddAttrs(h.provider()...)
	}
	return h.inner.Handle(ctx, r)
}

// WithAttrs returns a new ContextHandler with the given attributes.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{
		inner:    h.inner.WithAttrs(attrs),
		provider: h.provider,
	}
}

// WithGroup returns a new ContextHandler with the given group.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{
		inner:    h.inner.WithGroup(name),
		provider: h.provider,
	}
}

// SessionContext tracks which file is loaded and where the cursor is, so
// every log line can be tied to a sample. Safe for concurrent use.
type SessionContext struct {
	file   atomic.Pointer[string]
	cursor atomic.Int64
	total  atomic.Int64
}

// NewSessionContext returns a context with nothing loaded.
func NewSessionContext() *SessionContext {
	s := &SessionContext{}
	s.cursor.Store(-1)
	return s
}

// Update records the current session position.
func (s *SessionContext) Update(file string, cursor, total int) {
	s.file.Store(&file)
	s.cursor.Store(int64(cursor))
	s.total.Store(int64(total))
}

// Attrs is a ContextProvider. It adds nothing until a file is loaded.
func (s *SessionContext) Attrs() []slog.Attr {
	file := s.file.Load()
	if file == nil {
		return nil
	}
	return []slog.Attr{
		slog.Group("session",
			slog.String("file", *file),
			slog.Int64("cursor", s.cursor.Load()),
			slog.Int64("total", s.total.Load()),
		),
	}
}
