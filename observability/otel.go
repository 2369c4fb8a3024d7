package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OTelObserver records events as span events on the span found in ctx, or as
// a standalone span when none is active. It exists because Level's doc
// comment promises "zero-translation compatibility with OTel collectors" —
// this cashes that promise in for callers who already run an OTel pipeline.
type OTelObserver struct {
	tracer trace.Tracer
}

// NewOTelObserver creates an OTelObserver that records through the given tracer.
func NewOTelObserver(tracer trace.Tracer) *OTelObserver {
	return &OTelObserver{tracer: tracer}
}

func (o *OTelObserver) OnEvent(ctx context.Context, event Event) {
	attrs := make([]attribute.KeyValue, 0, len(event.Data)+2)
	attrs = append(attrs,
		attribute.String("source", event.Source),
		attribute.Int("severity_number", int(event.Level)),
	)
	for k, v := range event.Data {
		attrs = append(attrs, attribute.String(k, toAttrString(v)))
	}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		span.AddEvent(string(event.Type), trace.WithAttributes(attrs...))
		return
	}

	_, span = o.tracer.Start(ctx, string(event.Type), trace.WithAttributes(attrs...))
	span.End()
}

func toAttrString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}
