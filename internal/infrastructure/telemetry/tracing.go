package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer used for ledger spans
const TracerName = "stockledger"

// Span attribute keys
const (
	AttrOperation = attribute.Key("ledger.operation")
	AttrVariantID = attribute.Key("ledger.variant_id")
	AttrProductID = attribute.Key("ledger.product_id")
	AttrOrderRef  = attribute.Key("ledger.order_ref")
	AttrSeverity  = attribute.Key("ledger.alert_severity")
)

// StartServiceSpan starts a span named {service}.{method}, e.g. "alert_sweep.run".
// The caller must end it.
func StartServiceSpan(ctx context.Context, service, method string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, fmt.Sprintf("%s.%s", service, method),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// RecordError marks the span failed. A nil error is ignored.
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// EndSpan records err, if any, and ends the span. Use it in a defer:
//
//	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "audit")
//	defer func() { telemetry.EndSpan(span, err) }()
func EndSpan(span trace.Span, err error) {
	RecordError(span, err)
	span.End()
}

// TraceID returns the trace ID in ctx, or "" outside a sampled span
func TraceID(ctx context.Context) string {
	id := trace.SpanFromContext(ctx).SpanContext().TraceID()
	if !id.IsValid() {
		return ""
	}
	return id.String()
}
