package log

import (
	"context"
	"log/slog"
	"runtime"
	"strconv"

	"github.com/Bind-Forward/port/domain/entities"
)

// ForwardFunc delivers one converted record. Errors are returned from Handle.
type ForwardFunc func(ctx context.Context, rec entities.LogRecord) error

// ForwardHandler implements slog.Handler by converting records into
// entities.LogRecord values and passing them to a ForwardFunc. The worker
// uses it to send its logs to the host over the protocol channel.
type ForwardHandler struct {
	forward ForwardFunc
	attrs   []slog.Attr
	group   string
	opts    handlerConfig
}

// HandlerOption configures the ForwardHandler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	level     slog.Leveler
	addSource bool
}

func defaultHandlerConfig() handlerConfig {
	return handlerConfig{
		level: slog.LevelInfo,
	}
}

// WithLevel sets the minimum level forwarded.
func WithLevel(level slog.Leveler) HandlerOption {
	return func(c *handlerConfig) {
		c.level = level
	}
}

// WithForwardSource adds a "source" attribute with the caller's file:line.
func WithForwardSource(enabled bool) HandlerOption {
	return func(c *handlerConfig) {
		c.addSource = enabled
	}
}

// NewForwardHandler creates a ForwardHandler sending records to fn.
func NewForwardHandler(fn ForwardFunc, opts ...HandlerOption) *ForwardHandler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &ForwardHandler{forward: fn, opts: cfg}
}

// Enabled reports whether the handler handles records at the given level.
func (h *ForwardHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.level.Level()
}

// Handle converts record and forwards it.
func (h *ForwardHandler) Handle(ctx context.Context, record slog.Record) error {
	rec := entities.LogRecord{
		Level:   record.Level.String(),
		Message: record.Message,
	}

	n := len(h.attrs) + record.NumAttrs()
	if h.opts.addSource && record.PC != 0 {
		n++
	}
	if n > 0 {
		rec.Attrs = make(map[string]any, n)
	}
	for _, a := range h.attrs {
		addAttr(rec.Attrs, "", a)
	}
	record.Attrs(func(a slog.Attr) bool {
		addAttr(rec.Attrs, h.group, a)
		return true
	})
	if h.opts.addSource && record.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{record.PC})
		f, _ := frames.Next()
		rec.Attrs[slog.SourceKey] = f.File + ":" + strconv.Itoa(f.Line)
	}

	return h.forward(ctx, rec)
}

// WithAttrs returns a handler that adds attrs to every record.
func (h *ForwardHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		next.attrs = append(next.attrs, a)
	}
	return &next
}

// WithGroup returns a handler that prefixes later attribute keys with name.
func (h *ForwardHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	if h.group != "" {
		next.group = h.group + "." + name
	} else {
		next.group = name
	}
	return &next
}

// Replay logs a forwarded record on logger, tagging it with origin.
func Replay(ctx context.Context, logger *slog.Logger, origin string, rec entities.LogRecord) {
	args := make([]any, 0, 2*len(rec.Attrs)+2)
	args = append(args, "source", origin)
	for _, k := range sortedKeys(rec.Attrs) {
		args = append(args, k, rec.Attrs[k])
	}
	logger.Log(ctx, levelOf(rec.Level), rec.Message, args...)
}

func levelOf(s string) slog.Level {
	level, err := ParseLevel(s)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}
