package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"go.uber.org/zap"
)

// DemandRecorder feeds the demand history from ledger events. A sale counts
// what was consumed plus what was short, so backordered units are demand too.
// Reversing an order cancels its demand.
type DemandRecorder struct {
	log    inventory.DemandLog
	logger *zap.Logger
}

// NewDemandRecorder creates a new DemandRecorder
func NewDemandRecorder(log inventory.DemandLog, logger *zap.Logger) *DemandRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DemandRecorder{log: log, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (r *DemandRecorder) EventTypes() []string {
	return []string{
		inventory.EventTypeStockMovementRecorded,
		inventory.EventTypeStockShortfall,
		inventory.EventTypeOrderLedgerReversed,
	}
}

// Handle records or cancels demand for one event
func (r *DemandRecorder) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *inventory.StockMovementRecordedEvent:
		if e.Kind != inventory.MovementOutbound {
			return nil
		}
		return r.record(ctx, inventory.DemandTransaction{
			ID:         e.MovementID,
			VariantID:  e.AggregateID(),
			Quantity:   e.Quantity.Abs(),
			OccurredAt: eventTime(e.MovedAt, e),
			OrderRef:   e.OrderRef,
		})
	case *inventory.StockShortfallEvent:
		return r.record(ctx, inventory.DemandTransaction{
			ID:         e.EventID(),
			VariantID:  e.AggregateID(),
			Quantity:   e.Unconsumed,
			OccurredAt: eventTime(e.SoldAt, e),
			OrderRef:   e.OrderRef,
		})
	case *inventory.OrderLedgerReversedEvent:
		if err := r.log.MarkOrderCancelled(ctx, e.OrderRef); err != nil {
			return fmt.Errorf("cancel demand for order %s: %w", e.OrderRef, err)
		}
		r.logger.Debug("demand cancelled", zap.String("order_ref", e.OrderRef))
		return nil
	}
	return fmt.Errorf("unexpected event type: %s", event.EventType())
}

// eventTime prefers the business time carried by the event. Events from
// older producers carry none and fall back to when they were raised.
func eventTime(at time.Time, event shared.DomainEvent) time.Time {
	if at.IsZero() {
		return event.OccurredAt()
	}
	return at
}

func (r *DemandRecorder) record(ctx context.Context, tx inventory.DemandTransaction) error {
	if !tx.Quantity.IsPositive() {
		return nil
	}
	if err := r.log.Record(ctx, tx); err != nil {
		return fmt.Errorf("record demand for variant %s: %w", tx.VariantID, err)
	}
	return nil
}

var _ shared.EventHandler = (*DemandRecorder)(nil)
