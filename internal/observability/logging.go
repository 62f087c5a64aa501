// Package observability carries the build's identity through context.Context
// so that every log line from a stage can be tied back to its build.
package observability

import (
	"context"
	"io"
	"log/slog"
)

// LogContext is the build identity attached to log records.
type LogContext struct {
	BuildID string
	Target  string
	Stage   string
}

// Attrs returns the non-empty fields as slog attributes.
func (lc LogContext) Attrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, 3)
	for _, kv := range [...]struct{ key, value string }{
		{"build.id", lc.BuildID},
		{"target", lc.Target},
		{"stage", lc.Stage},
	} {
		if kv.value != "" {
			attrs = append(attrs, slog.String(kv.key, kv.value))
		}
	}
	return attrs
}

type logContextKey struct{}

func update(ctx context.Context, set func(*LogContext)) context.Context {
	lc := GetContext(ctx)
	set(&lc)
	return context.WithValue(ctx, logContextKey{}, lc)
}

// WithBuildID tags the context with the build's unique id.
func WithBuildID(ctx context.Context, buildID string) context.Context {
	return update(ctx, func(lc *LogContext) { lc.BuildID = buildID })
}

// WithTarget tags the context with the target being built.
func WithTarget(ctx context.Context, target string) context.Context {
	return update(ctx, func(lc *LogContext) { lc.Target = target })
}

// WithStage tags the context with the pipeline stage that is running.
func WithStage(ctx context.Context, stage string) context.Context {
	return update(ctx, func(lc *LogContext) { lc.Stage = stage })
}

// GetContext returns the build identity stored in ctx.
func GetContext(ctx context.Context) LogContext {
	lc, _ := ctx.Value(logContextKey{}).(LogContext)
	return lc
}

func logAttrs(ctx context.Context, level slog.Level, msg string, attrs []slog.Attr) {
	slog.LogAttrs(ctx, level, msg, append(GetContext(ctx).Attrs(), attrs...)...)
}

func InfoContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	logAttrs(ctx, slog.LevelInfo, msg, attrs)
}

func WarnContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	logAttrs(ctx, slog.LevelWarn, msg, attrs)
}

func ErrorContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	logAttrs(ctx, slog.LevelError, msg, attrs)
}

func DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	logAttrs(ctx, slog.LevelDebug, msg, attrs)
}

// NewLogger builds the process logger. format is "json" or "text".
func NewLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
