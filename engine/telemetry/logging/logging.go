// Package logging wraps log/slog with OpenTelemetry trace/span correlation
// and a per-call correlation id, so every log line emitted during a single
// RunCompleteAnalysis invocation can be grepped together regardless of which
// component emitted it.
package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Logger is the dependency every component takes at construction. It is
// deliberately small: callers build up structured attrs themselves rather
// than leaning on a fluent field builder.
type Logger interface {
	DebugCtx(ctx context.Context, msg string, attrs ...any)
	InfoCtx(ctx context.Context, msg string, attrs ...any)
	WarnCtx(ctx context.Context, msg string, attrs ...any)
	ErrorCtx(ctx context.Context, msg string, attrs ...any)
}

type correlationKey struct{}

// WithCorrelationID attaches a correlation id to ctx so every log call made
// while handling that context carries it automatically.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID extracts a correlation id previously attached with
// WithCorrelationID, or "" if none was set.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

type correlatedLogger struct{ base *slog.Logger }

// New returns a correlated Logger wrapping base (slog.Default() if nil).
func New(base *slog.Logger) Logger {
	if base == nil {
		base = slog.Default()
	}
	return &correlatedLogger{base: base}
}

func (l *correlatedLogger) enrich(ctx context.Context, attrs []any) []any {
	if id := CorrelationID(ctx); id != "" {
		attrs = append(attrs, slog.String("correlation_id", id))
	}
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.HasTraceID() {
		attrs = append(attrs, slog.String("trace_id", spanCtx.TraceID().String()))
	}
	if spanCtx.HasSpanID() {
		attrs = append(attrs, slog.String("span_id", spanCtx.SpanID().String()))
	}
	return attrs
}

func (l *correlatedLogger) DebugCtx(ctx context.Context, msg string, attrs ...any) {
	l.base.DebugContext(ctx, msg, l.enrich(ctx, attrs)...)
}

func (l *correlatedLogger) InfoCtx(ctx context.Context, msg string, attrs ...any) {
	l.base.InfoContext(ctx, msg, l.enrich(ctx, attrs)...)
}

func (l *correlatedLogger) WarnCtx(ctx context.Context, msg string, attrs ...any) {
	l.base.WarnContext(ctx, msg, l.enrich(ctx, attrs)...)
}

func (l *correlatedLogger) ErrorCtx(ctx context.Context, msg string, attrs ...any) {
	l.base.ErrorContext(ctx, msg, l.enrich(ctx, attrs)...)
}

// Noop returns a Logger that discards everything, useful as a construction
// default and in tests that don't care about log output.
func Noop() Logger { return New(slog.New(slog.DiscardHandler)) }
