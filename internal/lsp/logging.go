package lsp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// clientHandler forwards records at or above level to the client as
// window/logMessage notifications and passes every record on to next.
// Stdout belongs to the protocol, so next must never write there.
type clientHandler struct {
	next   slog.Handler
	level  slog.Level
	send   func(LogMessageParams)
	attrs  []slog.Attr
	groups []string
}

func newClientHandler(next slog.Handler, level slog.Level, send func(LogMessageParams)) *clientHandler {
	return &clientHandler{next: next, level: level, send: send}
}

func (h *clientHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level || h.next.Enabled(ctx, level)
}

func (h *clientHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.level {
		h.send(LogMessageParams{Type: messageType(r.Level), Message: h.format(r)})
	}
	if h.next.Enabled(ctx, r.Level) {
		return h.next.Handle(ctx, r)
	}
	return nil
}

func (h *clientHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	cp.next = h.next.WithAttrs(attrs)
	cp.attrs = append(append([]slog.Attr(nil), h.attrs...), h.qualify(attrs)...)
	return &cp
}

func (h *clientHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	cp := *h
	cp.next = h.next.WithGroup(name)
	cp.groups = append(append([]string(nil), h.groups...), name)
	return &cp
}

func (h *clientHandler) qualify(attrs []slog.Attr) []slog.Attr {
	if len(h.groups) == 0 {
		return attrs
	}
	prefix := strings.Join(h.groups, ".") + "."
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = slog.Attr{Key: prefix + a.Key, Value: a.Value}
	}
	return out
}

// format renders "msg key=value ..." on one line.
func (h *clientHandler) format(r slog.Record) string {
	var b strings.Builder
	b.WriteString(r.Message)
	write := func(a slog.Attr) {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value.Resolve())
	}
	for _, a := range h.attrs {
		write(a)
	}
	var own []slog.Attr
	r.Attrs(func(a slog.Attr) bool {
		own = append(own, a)
		return true
	})
	for _, a := range h.qualify(own) {
		write(a)
	}
	return b.String()
}

func messageType(level slog.Level) int {
	switch {
	case level >= slog.LevelError:
		return MessageError
	case level >= slog.LevelWarn:
		return MessageWarning
	case level >= slog.LevelInfo:
		return MessageInfo
	}
	return MessageLog
}
