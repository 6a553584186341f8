// Package logger builds the JSON slog logger shared by the storefront
// binaries and correlates records with the active OpenTelemetry span.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ctxKey struct{}

type Options struct {
	Service string
	Level   string
	// FilePath enables a rotated log file next to stdout when set.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New returns a logger writing JSON to stdout and, optionally, a rotated file.
// The returned closer flushes and closes the file writer.
func New(opts Options) (*slog.Logger, io.Closer) {
	var w io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}

	if opts.FilePath != "" {
		rot := &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    valueOr(opts.MaxSizeMB, 50),
			MaxBackups: valueOr(opts.MaxBackups, 3),
			MaxAge:     valueOr(opts.MaxAgeDays, 7),
		}
		w = io.MultiWriter(os.Stdout, rot)
		closer = rot
	}

	return NewWithWriter(w, opts), closer
}

// NewWithWriter is New without file rotation, mostly for tests.
func NewWithWriter(w io.Writer, opts Options) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(opts.Level)})
	l := slog.New(traceHandler{Handler: h})
	if opts.Service != "" {
		l = l.With("service", opts.Service)
	}
	return l
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithCtx stores l in ctx.
func WithCtx(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromCtx returns the logger stored in ctx or slog.Default().
func FromCtx(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// traceHandler adds trace_id and span_id when the record's context carries a span.
type traceHandler struct {
	slog.Handler
}

func (h traceHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return traceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h traceHandler) WithGroup(name string) slog.Handler {
	return traceHandler{Handler: h.Handler.WithGroup(name)}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func valueOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
