package models

import (
	"testing"
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared/strategy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		model interface{ TableName() string }
		want  string
	}{
		{ProductModel{}, "products"},
		{VariantModel{}, "variants"},
		{BatchModel{}, "batches"},
		{BatchConsumptionModel{}, "batch_consumptions"},
		{BackorderModel{}, "backorders"},
		{MovementModel{}, "movements"},
		{DemandTransactionModel{}, "demand_transactions"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.model.TableName())
		})
	}
}

func TestProductModel_UnknownMethodFallsBack(t *testing.T) {
	m := &ProductModel{Name: "Widget", CostMethod: "hifo"}
	m.ID = uuid.New()
	m.Version = 3

	p := m.ToDomain()
	assert.Equal(t, 3, p.Version)
	assert.Equal(t, strategy.CostMethodFIFO, p.EffectiveCostMethod())
}

func TestVariantModel_BatchesInSequenceOrder(t *testing.T) {
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	v, err := inventory.NewVariant(uuid.New(), "W-RED", decimal.NewFromInt(25), decimal.NewFromInt(10))
	require.NoError(t, err)
	for _, qty := range []int64{4, 6} {
		_, err := v.ReceiveBatch(inventory.BatchReceipt{Quantity: decimal.NewFromInt(qty), UnitCost: decimal.NewFromInt(2), ReceivedAt: at})
		require.NoError(t, err)
	}
	_, err = v.Consume(strategy.CostMethodFIFO, decimal.NewFromInt(5), "SO-1", at)
	require.NoError(t, err)

	// rows come back from the database in no particular order
	rows := make([]BatchModel, 0, 2)
	for _, b := range v.Batches() {
		rows = append([]BatchModel{*BatchModelFromDomain(b)}, rows...)
	}
	m := VariantModelFromDomain(v)
	m.Batches = rows

	loaded := m.ToDomain()
	batches := loaded.Batches()
	require.Len(t, batches, 2)
	assert.Equal(t, int64(1), batches[0].Sequence)
	assert.Equal(t, int64(2), batches[1].Sequence)
	assert.True(t, loaded.StockOnHand().Equal(decimal.NewFromInt(5)))
	assert.True(t, batches[1].DrawnBy("SO-1").Equal(decimal.NewFromInt(1)))

	// the next receipt continues the sequence
	b, err := loaded.ReceiveBatch(inventory.BatchReceipt{Quantity: decimal.NewFromInt(1), UnitCost: decimal.NewFromInt(2), ReceivedAt: at})
	require.NoError(t, err)
	assert.Equal(t, int64(3), b.Sequence)
}

func TestVariantModel_Backorders(t *testing.T) {
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	v, err := inventory.NewVariant(uuid.New(), "W-RED", decimal.NewFromInt(25), decimal.NewFromInt(10))
	require.NoError(t, err)
	v.RecordBackorder("SO-1", decimal.NewFromInt(4), at)
	v.RecordBackorder("SO-2", decimal.NewFromInt(3), at.Add(time.Hour))
	v.CancelBackorders("SO-2", at.Add(2*time.Hour))

	m := VariantModelFromDomain(v)
	for _, b := range v.Backorders() {
		m.Backorders = append([]BackorderModel{BackorderModelFromDomain(b)}, m.Backorders...)
	}

	loaded := m.ToDomain()
	backorders := loaded.Backorders()
	require.Len(t, backorders, 2)
	assert.Equal(t, "SO-1", backorders[0].OrderRef)
	assert.True(t, backorders[0].IsOpen())
	assert.False(t, backorders[1].IsOpen())
	assert.True(t, loaded.BackorderedQuantity().Equal(decimal.NewFromInt(4)))
}

func TestBatchModel_ConsumptionOrdinals(t *testing.T) {
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	v, err := inventory.NewVariant(uuid.New(), "W-RED", decimal.NewFromInt(25), decimal.NewFromInt(10))
	require.NoError(t, err)
	_, err = v.ReceiveBatch(inventory.BatchReceipt{Quantity: decimal.NewFromInt(10), UnitCost: decimal.NewFromInt(2), ReceivedAt: at})
	require.NoError(t, err)
	for _, ref := range []string{"SO-1", "SO-2", "SO-3"} {
		_, err := v.Consume(strategy.CostMethodFIFO, decimal.NewFromInt(1), ref, at)
		require.NoError(t, err)
	}

	m := BatchModelFromDomain(v.Batches()[0])
	require.Len(t, m.Consumptions, 3)
	for i, c := range m.Consumptions {
		assert.Equal(t, i, c.Ordinal)
	}

	m.Consumptions[0], m.Consumptions[2] = m.Consumptions[2], m.Consumptions[0]
	history := m.ToDomain().History
	assert.Equal(t, "SO-1", history[0].TransactionRef)
	assert.Equal(t, "SO-3", history[2].TransactionRef)
}

func TestMovementModel_DefaultsCreatedAt(t *testing.T) {
	m := MovementModelFromDomain(&inventory.Movement{
		ID:        uuid.New(),
		VariantID: uuid.New(),
		Sequence:  1,
		Kind:      inventory.MovementInbound,
		Quantity:  decimal.NewFromInt(3),
	})
	assert.False(t, m.CreatedAt.IsZero())
	assert.Equal(t, "inbound", m.Kind)
	assert.Equal(t, inventory.MovementInbound, m.ToDomain().Kind)
}

func TestDemandTransactionModel_GeneratesID(t *testing.T) {
	m := DemandTransactionModelFromDomain(inventory.DemandTransaction{VariantID: uuid.New(), Quantity: decimal.NewFromInt(2)})
	assert.NotEqual(t, uuid.Nil, m.ID)

	id := uuid.New()
	m = DemandTransactionModelFromDomain(inventory.DemandTransaction{ID: id})
	assert.Equal(t, id, m.ToDomain().ID)
}
