package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/shared/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func shortfallEvent(t *testing.T) *inventory.StockShortfallEvent {
	t.Helper()
	f := newLedgerFixture(t, strategy.CostMethodFIFO)
	f.update(t, f.variant.ID, func(v *inventory.Variant) { v.AllowBackorder = true })
	f.receive(t, f.variant.ID, 2, 10, t0, "PO-1")
	f.sell(t, f.variant.ID, 5, "SO-1")

	events := f.events.GetEventsByType(inventory.EventTypeStockShortfall)
	require.Len(t, events, 1)
	return events[0].(*inventory.StockShortfallEvent)
}

func TestStockShortfallHandler_EventTypes(t *testing.T) {
	h := NewStockShortfallHandler(zaptest.NewLogger(t))
	assert.Equal(t, []string{inventory.EventTypeStockShortfall}, h.EventTypes())
}

func TestStockShortfallHandler_UnexpectedEvent(t *testing.T) {
	h := NewStockShortfallHandler(zaptest.NewLogger(t))
	p, err := inventory.NewProduct("Widget", strategy.CostMethodFIFO, 7, 14, 0)
	require.NoError(t, err)

	err = h.Handle(context.Background(), inventory.NewCostMethodChangedEvent(p, strategy.CostMethodFIFO, strategy.CostMethodLIFO))
	assert.Error(t, err)
}

func TestShortfallAlert(t *testing.T) {
	e := shortfallEvent(t)

	alert := ShortfallAlert(e)
	assert.Equal(t, e.AggregateID(), alert.VariantID)
	assert.Equal(t, "W-RED", alert.SKU)
	assert.Equal(t, inventory.SeverityOutOfStock, alert.Severity)
	assert.True(t, alert.CurrentStock.IsZero())
	assert.Equal(t, int64(3), alert.SuggestedQuantity)
	assert.Equal(t, []string{inventory.ReasonNoStock}, alert.Reasons)
	assert.True(t, e.Backordered)
	assert.Equal(t, "SO-1", e.OrderRef)
}

func TestStockShortfallHandler_Handle(t *testing.T) {
	t.Run("without notifier only logs", func(t *testing.T) {
		h := NewStockShortfallHandler(zaptest.NewLogger(t))
		assert.NoError(t, h.Handle(context.Background(), shortfallEvent(t)))
	})

	t.Run("notifies once per dedup window", func(t *testing.T) {
		e := shortfallEvent(t)
		notifier := new(MockStockAlertNotifier)
		notifier.On("Notify", mock.Anything, ShortfallAlert(e)).Return(nil).Once()

		h := NewStockShortfallHandler(zaptest.NewLogger(t)).
			WithNotifier(notifier).
			WithDeduplicator(newMemIdempotencyStore(), shared.DefaultIdempotencyConfig())

		require.NoError(t, h.Handle(context.Background(), e))
		require.NoError(t, h.Handle(context.Background(), e))
		notifier.AssertNumberOfCalls(t, "Notify", 1)
	})

	t.Run("delivery failure is swallowed and not marked", func(t *testing.T) {
		e := shortfallEvent(t)
		notifier := new(MockStockAlertNotifier)
		notifier.On("Notify", mock.Anything, mock.Anything).Return(errors.New("broker unavailable"))
		store := newMemIdempotencyStore()

		h := NewStockShortfallHandler(zaptest.NewLogger(t)).
			WithNotifier(notifier).
			WithDeduplicator(store, shared.DefaultIdempotencyConfig())

		require.NoError(t, h.Handle(context.Background(), e))
		held, err := store.IsProcessed(context.Background(), AlertKey(ShortfallAlert(e)))
		require.NoError(t, err)
		assert.False(t, held)
	})

	t.Run("shares keys with the sweep", func(t *testing.T) {
		e := shortfallEvent(t)
		store := newMemIdempotencyStore()
		_, err := store.MarkProcessed(context.Background(), AlertKey(inventory.Alert{
			VariantID: e.AggregateID(),
			Severity:  inventory.SeverityOutOfStock,
		}), 0)
		require.NoError(t, err)

		notifier := new(MockStockAlertNotifier)
		h := NewStockShortfallHandler(zaptest.NewLogger(t)).
			WithNotifier(notifier).
			WithDeduplicator(store, shared.DefaultIdempotencyConfig())

		require.NoError(t, h.Handle(context.Background(), e))
		notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
	})
}
