package inventory

import (
	"context"
	"fmt"

	"github.com/erp/stockledger/internal/domain/inventory"
	"go.uber.org/zap"
)

// StockAlertNotifier delivers stock alerts to a channel
type StockAlertNotifier interface {
	Notify(ctx context.Context, alert inventory.Alert) error
}

// AlertKey identifies an alert for deduplication. The severity is part of
// the key so an escalation is delivered even while a milder alert is held.
func AlertKey(alert inventory.Alert) string {
	return fmt.Sprintf("%s:%s", alert.VariantID, alert.Severity)
}

// LoggingStockAlertNotifier writes alerts to the log
type LoggingStockAlertNotifier struct {
	logger *zap.Logger
}

// NewLoggingStockAlertNotifier creates a new logging notifier
func NewLoggingStockAlertNotifier(logger *zap.Logger) *LoggingStockAlertNotifier {
	return &LoggingStockAlertNotifier{
		logger: logger,
	}
}

// Notify logs the alert
func (n *LoggingStockAlertNotifier) Notify(_ context.Context, alert inventory.Alert) error {
	n.logger.Warn("Stock alert",
		zap.String("severity", string(alert.Severity)),
		zap.String("sku", alert.SKU),
		zap.String("variant_id", alert.VariantID.String()),
		zap.String("current_stock", alert.CurrentStock.String()),
		zap.Int64("days_of_stock", alert.DaysOfStock),
		zap.Int64("reorder_point", alert.Metrics.ReorderPoint),
		zap.Int64("suggested_quantity", alert.SuggestedQuantity),
		zap.Strings("reasons", alert.Reasons),
	)
	return nil
}

var _ StockAlertNotifier = (*LoggingStockAlertNotifier)(nil)
