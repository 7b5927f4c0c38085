package inventory

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// replay hands every published event the recorder subscribes to
func replay(t *testing.T, f *ledgerFixture, r *DemandRecorder) {
	t.Helper()
	f.events.mu.Lock()
	events := slices.Clone(f.events.events)
	f.events.mu.Unlock()

	for _, e := range events {
		if slices.Contains(r.EventTypes(), e.EventType()) {
			require.NoError(t, r.Handle(context.Background(), e))
		}
	}
}

func TestDemandRecorder(t *testing.T) {
	f := newLedgerFixture(t, strategy.CostMethodFIFO)
	f.update(t, f.variant.ID, func(v *inventory.Variant) { v.AllowBackorder = true })
	recorder := NewDemandRecorder(&memDemand{f.store}, zaptest.NewLogger(t))

	f.receive(t, f.variant.ID, 5, 10, t0, "PO-1")
	f.sell(t, f.variant.ID, 8, "SO-1")
	replay(t, f, recorder)
	// replaying is harmless
	replay(t, f, recorder)

	demand := f.store.demand
	require.Len(t, demand, 2)
	total := num("0")
	for _, d := range demand {
		assert.Equal(t, "SO-1", d.OrderRef)
		assert.False(t, d.Cancelled)
		total = total.Add(d.Quantity)
	}
	assert.Equal(t, "8", total.String())

	_, err := f.ledger.CancelOrder(context.Background(), CancelOrderRequest{OrderRef: "SO-1"})
	require.NoError(t, err)
	replay(t, f, recorder)

	for _, d := range f.store.demand {
		assert.True(t, d.Cancelled)
	}
}

func TestDemandRecorder_BackorderOnlyOrder(t *testing.T) {
	f := newLedgerFixture(t, strategy.CostMethodFIFO)
	f.update(t, f.variant.ID, func(v *inventory.Variant) { v.AllowBackorder = true })
	recorder := NewDemandRecorder(&memDemand{f.store}, zaptest.NewLogger(t))

	f.sell(t, f.variant.ID, 4, "SO-7")
	replay(t, f, recorder)
	require.Len(t, f.store.demand, 1)
	assert.False(t, f.store.demand[0].Cancelled)

	_, err := f.ledger.CancelOrder(context.Background(), CancelOrderRequest{OrderRef: "SO-7"})
	require.NoError(t, err)
	replay(t, f, recorder)

	require.Len(t, f.store.demand, 1)
	assert.True(t, f.store.demand[0].Cancelled)
}

func TestDemandRecorder_DatesDemandBySaleTime(t *testing.T) {
	soldAt := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	t.Run("backdated sale", func(t *testing.T) {
		f := newLedgerFixture(t, strategy.CostMethodFIFO)
		f.update(t, f.variant.ID, func(v *inventory.Variant) { v.AllowBackorder = true })
		recorder := NewDemandRecorder(&memDemand{f.store}, zaptest.NewLogger(t))
		f.receive(t, f.variant.ID, 2, 10, soldAt.AddDate(0, 0, -7), "")

		_, err := f.ledger.RecordSale(context.Background(), RecordSaleRequest{
			VariantID:  f.variant.ID,
			Quantity:   num("5"),
			OrderRef:   "SO-OLD",
			OccurredAt: soldAt,
		})
		require.NoError(t, err)
		replay(t, f, recorder)

		require.Len(t, f.store.demand, 2, "consumed and backordered parts")
		for _, d := range f.store.demand {
			assert.True(t, soldAt.Equal(d.OccurredAt), "demand dated %s", d.OccurredAt)
		}
	})

	t.Run("event without a sale time", func(t *testing.T) {
		f := newLedgerFixture(t, strategy.CostMethodFIFO)
		recorder := NewDemandRecorder(&memDemand{f.store}, zaptest.NewLogger(t))

		ev := inventory.NewStockShortfallEvent(f.variant, decimal.NewFromInt(2), decimal.NewFromInt(2), "SO-1", time.Time{})
		require.NoError(t, recorder.Handle(context.Background(), ev))

		require.Len(t, f.store.demand, 1)
		assert.True(t, ev.OccurredAt().Equal(f.store.demand[0].OccurredAt))
	})
}

func TestDemandRecorder_IgnoresOtherMovements(t *testing.T) {
	f := newLedgerFixture(t, strategy.CostMethodFIFO)
	recorder := NewDemandRecorder(&memDemand{f.store}, zaptest.NewLogger(t))

	f.receive(t, f.variant.ID, 5, 10, t0, "PO-1")
	_, err := f.ledger.RecordDamage(context.Background(), RecordLossRequest{
		VariantID: f.variant.ID,
		Quantity:  num("1"),
		Reason:    "dropped",
	})
	require.NoError(t, err)
	replay(t, f, recorder)

	assert.Empty(t, f.store.demand)
}

func TestDemandRecorder_UnexpectedEvent(t *testing.T) {
	f := newLedgerFixture(t, strategy.CostMethodFIFO)
	recorder := NewDemandRecorder(&memDemand{f.store}, zaptest.NewLogger(t))

	err := recorder.Handle(context.Background(), inventory.NewCostMethodChangedEvent(f.product, strategy.CostMethodFIFO, strategy.CostMethodLIFO))
	assert.Error(t, err)
}
