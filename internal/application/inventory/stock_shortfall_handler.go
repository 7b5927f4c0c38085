package inventory

import (
	"context"
	"fmt"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StockShortfallHandler turns StockShortfall events into out-of-stock alerts
// so a sale that ran dry is reported without waiting for the next sweep.
type StockShortfallHandler struct {
	logger   *zap.Logger
	notifier StockAlertNotifier
	dedup    shared.IdempotencyStore
	dedupCfg shared.IdempotencyConfig
}

// NewStockShortfallHandler creates a new handler for shortfall events
func NewStockShortfallHandler(logger *zap.Logger) *StockShortfallHandler {
	return &StockShortfallHandler{
		logger:   logger,
		dedupCfg: shared.DefaultIdempotencyConfig(),
	}
}

// WithNotifier sets the notifier for sending alerts
func (h *StockShortfallHandler) WithNotifier(notifier StockAlertNotifier) *StockShortfallHandler {
	h.notifier = notifier
	return h
}

// WithDeduplicator shares the sweep's store so the same out-of-stock alert
// is not sent twice
func (h *StockShortfallHandler) WithDeduplicator(store shared.IdempotencyStore, cfg shared.IdempotencyConfig) *StockShortfallHandler {
	h.dedup = store
	h.dedupCfg = cfg
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *StockShortfallHandler) EventTypes() []string {
	return []string{inventory.EventTypeStockShortfall}
}

// Handle processes a StockShortfallEvent
func (h *StockShortfallHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	shortfall, ok := event.(*inventory.StockShortfallEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", inventory.EventTypeStockShortfall),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			inventory.EventTypeStockShortfall, event.EventType())
	}

	h.logger.Warn("stock shortfall on sale",
		zap.String("variant_id", shortfall.AggregateID().String()),
		zap.String("sku", shortfall.SKU),
		zap.String("order_ref", shortfall.OrderRef),
		zap.String("requested", shortfall.Requested.String()),
		zap.String("unconsumed", shortfall.Unconsumed.String()),
		zap.Bool("backordered", shortfall.Backordered),
	)

	if h.notifier == nil {
		return nil
	}

	alert := ShortfallAlert(shortfall)
	key := AlertKey(alert)
	if h.dedup != nil && h.dedupCfg.Enabled {
		held, err := h.dedup.IsProcessed(ctx, key)
		if err != nil {
			h.logger.Warn("alert dedup lookup failed", zap.String("key", key), zap.Error(err))
		} else if held {
			return nil
		}
	}

	// Delivery failures are logged; the sale has already committed.
	if err := h.notifier.Notify(ctx, alert); err != nil {
		h.logger.Error("failed to send shortfall alert",
			zap.String("variant_id", alert.VariantID.String()),
			zap.Error(err),
		)
		return nil
	}
	if h.dedup != nil && h.dedupCfg.Enabled {
		if _, err := h.dedup.MarkProcessed(ctx, key, h.dedupCfg.TTL); err != nil {
			h.logger.Warn("alert dedup write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}

// ShortfallAlert builds the out-of-stock alert for a shortfall
func ShortfallAlert(e *inventory.StockShortfallEvent) inventory.Alert {
	return inventory.Alert{
		VariantID:         e.AggregateID(),
		ProductID:         e.ProductID,
		SKU:               e.SKU,
		Severity:          inventory.SeverityOutOfStock,
		CurrentStock:      decimal.Zero,
		SuggestedQuantity: e.Unconsumed.Ceil().IntPart(),
		Reasons:           []string{inventory.ReasonNoStock},
		RaisedAt:          e.OccurredAt(),
	}
}

var _ shared.EventHandler = (*StockShortfallHandler)(nil)
