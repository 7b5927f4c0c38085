package inventory

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func newTestBatch(qty, cost int64) *Batch {
	return newBatch(uuid.New(), 1, BatchReceipt{
		ReferenceCode: "LOT-1",
		Quantity:      dec(qty),
		UnitCost:      dec(cost),
		ReceivedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
}

func TestBatchReceipt_Validate(t *testing.T) {
	tests := []struct {
		name    string
		receipt BatchReceipt
		wantErr error
	}{
		{"valid", BatchReceipt{Quantity: dec(10), UnitCost: dec(2)}, nil},
		{"zero cost allowed", BatchReceipt{Quantity: dec(10), UnitCost: decimal.Zero}, nil},
		{"zero quantity", BatchReceipt{Quantity: decimal.Zero, UnitCost: dec(2)}, ErrInvalidQuantity},
		{"negative quantity", BatchReceipt{Quantity: dec(-1), UnitCost: dec(2)}, ErrInvalidQuantity},
		{"negative cost", BatchReceipt{Quantity: dec(1), UnitCost: dec(-2)}, ErrInvalidUnitCost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.receipt.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestBatch_Consume(t *testing.T) {
	b := newTestBatch(10, 5)
	at := time.Now()

	taken := b.Consume(dec(4), "tx-1", at)
	assert.True(t, dec(4).Equal(taken))
	assert.True(t, dec(6).Equal(b.Quantity))
	assert.True(t, dec(4).Equal(b.QuantityConsumed))
	require.Len(t, b.History, 1)
	assert.Equal(t, "tx-1", b.History[0].TransactionRef)
	assert.Equal(t, b.ID, b.History[0].BatchID)

	taken = b.Consume(dec(100), "tx-2", at)
	assert.True(t, dec(6).Equal(taken))
	assert.True(t, b.IsDepleted())
	assert.True(t, dec(10).Equal(b.QuantityConsumed))

	// drained batch takes nothing and logs nothing
	taken = b.Consume(dec(1), "tx-3", at)
	assert.True(t, taken.IsZero())
	assert.Len(t, b.History, 2)
}

func TestBatch_Restore(t *testing.T) {
	b := newTestBatch(10, 5)
	at := time.Now()
	b.Consume(dec(7), "sale", at)

	require.NoError(t, b.Restore(dec(3), "cancel", at))
	assert.True(t, dec(6).Equal(b.Quantity))
	assert.True(t, dec(4).Equal(b.QuantityConsumed))
	require.Len(t, b.History, 2)
	assert.True(t, dec(-3).Equal(b.History[1].Quantity))

	err := b.Restore(dec(5), "cancel", at)
	assert.True(t, errors.Is(err, ErrRestoreExceedsDrawn))

	err = b.Restore(decimal.Zero, "cancel", at)
	assert.True(t, errors.Is(err, ErrInvalidQuantity))
}

func TestBatch_DrawnBy(t *testing.T) {
	b := newTestBatch(10, 5)
	at := time.Now()
	b.Consume(dec(2), "a", at)
	b.Consume(dec(3), "b", at)
	b.Consume(dec(1), "a", at)

	assert.True(t, dec(3).Equal(b.DrawnBy("a")))
	assert.True(t, dec(3).Equal(b.DrawnBy("b")))
	assert.True(t, b.DrawnBy("c").IsZero())
}

func TestBatch_IsIntactAndExpired(t *testing.T) {
	b := newTestBatch(10, 5)
	assert.True(t, b.IsIntact())

	b.Consume(dec(2), "a", time.Now())
	assert.False(t, b.IsIntact())
	require.NoError(t, b.Restore(dec(2), "r", time.Now()))
	assert.True(t, b.IsIntact())

	assert.False(t, b.IsExpired(time.Now()))
	past := time.Now().Add(-time.Hour)
	b.ExpiresAt = &past
	assert.True(t, b.IsExpired(time.Now()))
}

func TestBatch_CostLayer(t *testing.T) {
	b := newTestBatch(10, 5)
	b.Consume(dec(4), "a", time.Now())

	layer := b.CostLayer()
	assert.Equal(t, b.ID.String(), layer.BatchID)
	assert.True(t, dec(6).Equal(layer.Quantity))
	assert.True(t, dec(10).Equal(layer.ReceivedQuantity))
	assert.True(t, dec(5).Equal(layer.UnitCost))
	assert.True(t, dec(30).Equal(b.Value()))
}
