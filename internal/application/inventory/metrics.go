package inventory

import (
	"context"

	"github.com/shopspring/decimal"
)

// LedgerRecorder receives ledger activity for metrics export
type LedgerRecorder interface {
	RecordMovement(ctx context.Context, kind string, quantity decimal.Decimal)
	RecordShortfall(ctx context.Context, units decimal.Decimal)
	RecordConflictRetry(ctx context.Context, operation string)
	RecordChainViolations(ctx context.Context, count int)
	RecordAlert(ctx context.Context, severity string, outcome string)
}

// Alert delivery outcomes passed to RecordAlert
const (
	AlertOutcomeDelivered  = "delivered"
	AlertOutcomeSuppressed = "suppressed"
	AlertOutcomeFailed     = "failed"
)

type noopRecorder struct{}

func (noopRecorder) RecordMovement(context.Context, string, decimal.Decimal) {}
func (noopRecorder) RecordShortfall(context.Context, decimal.Decimal)        {}
func (noopRecorder) RecordConflictRetry(context.Context, string)             {}
func (noopRecorder) RecordChainViolations(context.Context, int)              {}
func (noopRecorder) RecordAlert(context.Context, string, string)             {}
