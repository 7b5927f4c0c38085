package telemetry

import (
	"context"
	"database/sql"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AttrPoolState distinguishes in-use from idle connections
var AttrPoolState = attribute.Key("db.pool.state")

// PoolStatsSource is satisfied by *sql.DB
type PoolStatsSource interface {
	Stats() sql.DBStats
}

// RegisterDBPoolMetrics reports connection pool gauges, read at every
// collection. The returned registration stops the reporting.
func RegisterDBPoolMetrics(meter metric.Meter, src PoolStatsSource) (metric.Registration, error) {
	conns, err := meter.Int64ObservableGauge("db.pool.connections",
		metric.WithDescription("Open database connections by state"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create db.pool.connections: %w", err)
	}
	maxOpen, err := meter.Int64ObservableGauge("db.pool.max_open",
		metric.WithDescription("Maximum open database connections"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create db.pool.max_open: %w", err)
	}
	waits, err := meter.Int64ObservableCounter("db.pool.wait_count",
		metric.WithDescription("Connections waited for"),
		metric.WithUnit("{wait}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create db.pool.wait_count: %w", err)
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := src.Stats()
		o.ObserveInt64(conns, int64(s.InUse), metric.WithAttributes(AttrPoolState.String("in_use")))
		o.ObserveInt64(conns, int64(s.Idle), metric.WithAttributes(AttrPoolState.String("idle")))
		o.ObserveInt64(maxOpen, int64(s.MaxOpenConnections))
		o.ObserveInt64(waits, s.WaitCount)
		return nil
	}, conns, maxOpen, waits)
}
