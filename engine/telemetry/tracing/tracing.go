// Package tracing wraps the global OpenTelemetry tracer with one helper,
// StartStage, used to bound each orchestrator stage in its own span. No SDK
// is wired in (see DESIGN.md): without one, spans are cheap no-ops, but the
// instrumentation points are real and an embedding process can make them
// live by registering its own TracerProvider before calling into this
// module.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/interviewintel/pipeline/engine/telemetry/logging"
)

var tracer = otel.Tracer("github.com/interviewintel/pipeline/engine/internal/orchestrator")

// StartStage starts a span named stage, tagging it with the correlation id
// carried on ctx (if any). Callers defer span.End().
func StartStage(ctx context.Context, stage string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if id := logging.CorrelationID(ctx); id != "" {
		attrs = append(attrs, attribute.String("correlation_id", id))
	}
	return tracer.Start(ctx, stage, trace.WithAttributes(attrs...))
}
