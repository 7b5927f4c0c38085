package telemetry

import (
	"errors"
	"time"

	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const queryStartKey = "telemetry:query_start"

// RegisterDBTracing installs otelgorm so every statement gets a span, and
// flags spans of statements slower than the configured threshold. Bound
// variables are left out unless DBLogFullSQL is set.
func RegisterDBTracing(db *gorm.DB, cfg config.TelemetryConfig, logger *zap.Logger) error {
	if !cfg.Enabled || !cfg.DBTraceEnabled {
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(db.Dialector.Name())}
	if !cfg.DBLogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	threshold := cfg.DBSlowQueryThresh
	if threshold <= 0 {
		threshold = 200 * time.Millisecond
	}

	if err := registerTimingCallbacks(db, slowQueryCallback(threshold)); err != nil {
		return err
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.DBLogFullSQL),
		zap.Duration("slow_query_threshold", threshold),
	)
	return nil
}

func registerTimingCallbacks(db *gorm.DB, after func(*gorm.DB)) error {
	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("telemetry:start_create", markQueryStart),
		cb.Create().After("gorm:create").Register("telemetry:slow_create", after),
		cb.Query().Before("gorm:query").Register("telemetry:start_query", markQueryStart),
		cb.Query().After("gorm:query").Register("telemetry:slow_query", after),
		cb.Update().Before("gorm:update").Register("telemetry:start_update", markQueryStart),
		cb.Update().After("gorm:update").Register("telemetry:slow_update", after),
		cb.Delete().Before("gorm:delete").Register("telemetry:start_delete", markQueryStart),
		cb.Delete().After("gorm:delete").Register("telemetry:slow_delete", after),
		cb.Row().Before("gorm:row").Register("telemetry:start_row", markQueryStart),
		cb.Row().After("gorm:row").Register("telemetry:slow_row", after),
		cb.Raw().Before("gorm:raw").Register("telemetry:start_raw", markQueryStart),
		cb.Raw().After("gorm:raw").Register("telemetry:slow_raw", after),
	)
}

func markQueryStart(db *gorm.DB) {
	db.InstanceSet(queryStartKey, time.Now())
}

func slowQueryCallback(threshold time.Duration) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			return
		}
		span := trace.SpanFromContext(ctx)
		if !span.IsRecording() {
			return
		}

		if db.Statement.Table != "" {
			span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
		}
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			RecordError(span, db.Error)
		}

		v, ok := db.InstanceGet(queryStartKey)
		if !ok {
			return
		}
		start, ok := v.(time.Time)
		if !ok {
			return
		}
		if elapsed := time.Since(start); elapsed > threshold {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
		}
	}
}
