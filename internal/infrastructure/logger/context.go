package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	operationKey contextKey = "operation"
	actorKey     contextKey = "actor"
	variantKey   contextKey = "variant_id"
	orderRefKey  contextKey = "order_ref"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithOperation tags the context with the ledger operation being executed
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, operationKey, operation)
}

// WithActor tags the context with who triggered the operation
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// WithVariant tags the context with the variant being read or written
func WithVariant(ctx context.Context, variantID string) context.Context {
	return context.WithValue(ctx, variantKey, variantID)
}

// WithOrderRef tags the context with the order being processed
func WithOrderRef(ctx context.Context, orderRef string) context.Context {
	return context.WithValue(ctx, orderRefKey, orderRef)
}

// Operation returns the operation tag, if any
func Operation(ctx context.Context) string {
	op, _ := ctx.Value(operationKey).(string)
	return op
}

// Actor returns the actor tag, if any
func Actor(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey).(string)
	return actor
}

// VariantID returns the variant tag, if any
func VariantID(ctx context.Context) string {
	id, _ := ctx.Value(variantKey).(string)
	return id
}

// OrderRef returns the order tag, if any
func OrderRef(ctx context.Context) string {
	ref, _ := ctx.Value(orderRefKey).(string)
	return ref
}

// L returns the context logger enriched with trace ids and ledger tags.
//
//	logger.L(ctx).Info("movement recorded", zap.String("variant_id", id))
func L(ctx context.Context) *zap.Logger {
	return enrich(ctx, FromContext(ctx))
}

// Enrich adds the context fields to an explicit logger
func Enrich(ctx context.Context, l *zap.Logger) *zap.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return enrich(ctx, l)
}

func enrich(ctx context.Context, l *zap.Logger) *zap.Logger {
	var fields []zap.Field
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if op := Operation(ctx); op != "" {
		fields = append(fields, zap.String("operation", op))
	}
	if actor := Actor(ctx); actor != "" {
		fields = append(fields, zap.String("actor", actor))
	}
	if id := VariantID(ctx); id != "" {
		fields = append(fields, zap.String("variant_id", id))
	}
	if ref := OrderRef(ctx); ref != "" {
		fields = append(fields, zap.String("order_ref", ref))
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}
