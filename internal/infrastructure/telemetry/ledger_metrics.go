package telemetry

import (
	"context"
	"fmt"

	appinventory "github.com/erp/stockledger/internal/application/inventory"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
var (
	AttrMovementKind = attribute.Key("movement_kind")
	AttrOperationKey = attribute.Key("operation")
	AttrAlertSev     = attribute.Key("severity")
	AttrAlertOutcome = attribute.Key("outcome")
)

// LedgerMetrics exports ledger activity as OpenTelemetry instruments
type LedgerMetrics struct {
	movements       metric.Int64Counter
	movedUnits      metric.Float64Counter
	shortfalls      metric.Int64Counter
	shortfallUnits  metric.Float64Counter
	conflictRetries metric.Int64Counter
	chainViolations metric.Int64Gauge
	alerts          metric.Int64Counter
}

// NewLedgerMetrics creates every ledger instrument on meter
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, fmt.Errorf("NewLedgerMetrics: meter cannot be nil")
	}

	m := &LedgerMetrics{}
	var err error
	if m.movements, err = meter.Int64Counter("ledger.movements",
		metric.WithDescription("Stock movements committed"),
		metric.WithUnit("{movement}")); err != nil {
		return nil, err
	}
	if m.movedUnits, err = meter.Float64Counter("ledger.movement.units",
		metric.WithDescription("Absolute units moved"),
		metric.WithUnit("{unit}")); err != nil {
		return nil, err
	}
	if m.shortfalls, err = meter.Int64Counter("ledger.shortfalls",
		metric.WithDescription("Sales that could not be fully served from batches"),
		metric.WithUnit("{shortfall}")); err != nil {
		return nil, err
	}
	if m.shortfallUnits, err = meter.Float64Counter("ledger.shortfall.units",
		metric.WithDescription("Units requested beyond available batches"),
		metric.WithUnit("{unit}")); err != nil {
		return nil, err
	}
	if m.conflictRetries, err = meter.Int64Counter("ledger.conflict_retries",
		metric.WithDescription("Writes retried after a concurrency conflict"),
		metric.WithUnit("{retry}")); err != nil {
		return nil, err
	}
	if m.chainViolations, err = meter.Int64Gauge("ledger.chain_violations",
		metric.WithDescription("Violations found by the last ledger audit"),
		metric.WithUnit("{violation}")); err != nil {
		return nil, err
	}
	if m.alerts, err = meter.Int64Counter("ledger.alerts",
		metric.WithDescription("Stock alerts by severity and delivery outcome"),
		metric.WithUnit("{alert}")); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordMovement counts one movement and its absolute quantity
func (m *LedgerMetrics) RecordMovement(ctx context.Context, kind string, quantity decimal.Decimal) {
	attrs := metric.WithAttributes(AttrMovementKind.String(kind))
	m.movements.Add(ctx, 1, attrs)
	m.movedUnits.Add(ctx, quantity.Abs().InexactFloat64(), attrs)
}

// RecordShortfall counts a sale left partly unserved
func (m *LedgerMetrics) RecordShortfall(ctx context.Context, units decimal.Decimal) {
	m.shortfalls.Add(ctx, 1)
	m.shortfallUnits.Add(ctx, units.InexactFloat64())
}

// RecordConflictRetry counts one retried write
func (m *LedgerMetrics) RecordConflictRetry(ctx context.Context, operation string) {
	m.conflictRetries.Add(ctx, 1, metric.WithAttributes(AttrOperationKey.String(operation)))
}

// RecordChainViolations reports the violation count of an audit
func (m *LedgerMetrics) RecordChainViolations(ctx context.Context, count int) {
	m.chainViolations.Record(ctx, int64(count))
}

// RecordAlert counts an alert and what happened to it
func (m *LedgerMetrics) RecordAlert(ctx context.Context, severity, outcome string) {
	m.alerts.Add(ctx, 1, metric.WithAttributes(
		AttrAlertSev.String(severity),
		AttrAlertOutcome.String(outcome),
	))
}

var _ appinventory.LedgerRecorder = (*LedgerMetrics)(nil)
