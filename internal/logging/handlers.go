package logging

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
)

// fanout passes each record to every handler enabled for its level. One
// failing output (Graylog unreachable) does not starve the others.
type fanout []slog.Handler

// NewFanout combines handlers; nil entries are skipped.
func NewFanout(handlers ...slog.Handler) slog.Handler {
	f := make(fanout, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			f = append(f, h)
		}
	}
	return f
}

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f fanout) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f fanout) each(fn func(slog.Handler) slog.Handler) fanout {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = fn(h)
	}
	return out
}

// SessionInfo is the live session state stamped on every record.
// Radius and Markers may be nil.
type SessionInfo struct {
	ID      string
	Radius  func() float64
	Markers func() int
}

func (s *SessionInfo) attrs() []slog.Attr {
	if s == nil {
		return nil
	}
	attrs := make([]slog.Attr, 0, 3)
	if s.ID != "" {
		attrs = append(attrs, slog.String("session", s.ID))
	}
	if s.Radius != nil {
		attrs = append(attrs, slog.Float64("radius", s.Radius()))
	}
	if s.Markers != nil {
		attrs = append(attrs, slog.Int("markers", s.Markers()))
	}
	return attrs
}

// sessionHandler appends the bound SessionInfo to each record. The binding is
// shared with the manager so a session can attach after the logger exists.
type sessionHandler struct {
	inner slog.Handler
	info  *atomic.Pointer[SessionInfo]
}

func (h sessionHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h sessionHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs := h.info.Load().attrs(); len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.inner.Handle(ctx, r)
}

func (h sessionHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return sessionHandler{inner: h.inner.WithAttrs(attrs), info: h.info}
}

func (h sessionHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return sessionHandler{inner: h.inner.WithGroup(name), info: h.info}
}
