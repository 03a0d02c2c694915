package engine

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Priya8975/webhook-notifier/internal/domain"
)

const tracerName = "github.com/Priya8975/webhook-notifier/engine"

type tracer struct {
	tracer trace.Tracer
}

func newTracer() *tracer {
	return &tracer{tracer: otel.Tracer(tracerName)}
}

func (t *tracer) startIngest(ctx context.Context, targetID, sourceAddr string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "notifier.ingest",
		trace.WithAttributes(
			attribute.String("notifier.target_id", targetID),
			attribute.String("notifier.source_addr", sourceAddr),
		),
	)
}

func (t *tracer) startSend(ctx context.Context, targetID, senderID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "notifier.send",
		trace.WithAttributes(
			attribute.String("notifier.target_id", targetID),
			attribute.String("notifier.sender_id", senderID),
		),
	)
}

func endIngest(span trace.Span, entry *domain.LogEntry, err error) {
	if entry != nil {
		span.SetAttributes(attribute.String("notifier.delivery_status", string(entry.DeliveryStatus)))
	}
	if err != nil {
		span.SetAttributes(attribute.String("notifier.error", err.Error()))
	}
	span.End()
}
