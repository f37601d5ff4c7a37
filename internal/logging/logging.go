// Package logging builds the process logger: a console handler, an optional
// rotating file, and a feed into the in-memory event log.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/GriffinCanCode/scan-sentry/internal/events"
)

// Options selects sinks.
type Options struct {
	Debug   bool
	Console io.Writer
	File    string // rotating log path; empty disables
	Sink    *events.Log
}

// New returns a logger writing to every configured sink, and a closer for the file.
func New(opts Options) (*slog.Logger, io.Closer) {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}

	var handlers []slog.Handler
	var closer io.Closer = nopCloser{}
	if opts.Console != nil {
		handlers = append(handlers, slog.NewTextHandler(opts.Console, hopts))
	}
	if opts.File != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    10, // MB
			MaxAge:     14,
			MaxBackups: 3,
		}
		handlers = append(handlers, slog.NewJSONHandler(lj, hopts))
		closer = lj
	}
	if opts.Sink != nil {
		handlers = append(handlers, NewEventHandler(opts.Sink, level))
	}
	return slog.New(Fanout(handlers...)), closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Fanout sends each record to every handler that accepts its level.
func Fanout(handlers ...slog.Handler) slog.Handler {
	return fanout(handlers)
}

type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// EventHandler turns records into events.Log entries.
type EventHandler struct {
	sink   *events.Log
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string
}

// NewEventHandler creates a handler feeding sink.
func NewEventHandler(sink *events.Log, level slog.Leveler) *EventHandler {
	return &EventHandler{sink: sink, level: level}
}

func (h *EventHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *EventHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]string, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		addAttr(attrs, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(attrs, h.prefix, a)
		return true
	})
	h.sink.Add(events.Entry{
		Time:    r.Time,
		Kind:    events.KindLog,
		Level:   r.Level.String(),
		Message: r.Message,
		Attrs:   attrs,
	})
	return nil
}

func addAttr(m map[string]string, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, ga := range v.Group() {
			addAttr(m, prefix+a.Key+".", ga)
		}
		return
	}
	m[prefix+a.Key] = fmt.Sprint(v.Any())
}

func (h *EventHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append(append([]slog.Attr(nil), h.attrs...), qualify(h.prefix, attrs)...)
	return &c
}

func (h *EventHandler) WithGroup(name string) slog.Handler {
	c := *h
	c.prefix = h.prefix + name + "."
	return &c
}

func qualify(prefix string, attrs []slog.Attr) []slog.Attr {
	if prefix == "" {
		return attrs
	}
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = slog.Attr{Key: prefix + a.Key, Value: a.Value}
	}
	return out
}
