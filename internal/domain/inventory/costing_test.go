package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared/strategy"
	"github.com/erp/stockledger/internal/infrastructure/strategy/cost"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strategyFor(method strategy.CostMethod) strategy.ValuationStrategy {
	switch method {
	case strategy.CostMethodLIFO:
		return cost.NewLIFOValuationStrategy()
	case strategy.CostMethodWeightedAverage:
		return cost.NewWeightedAverageValuationStrategy()
	}
	return cost.NewFIFOValuationStrategy()
}

// Batch A: 100 @ 10 on Jan 1, batch B: 50 @ 12 on Jan 5, then a sale of 120.
func TestValuate_WorkedExample(t *testing.T) {
	tests := []struct {
		method strategy.CostMethod
		want   string
	}{
		{strategy.CostMethodFIFO, "360"},
		{strategy.CostMethodLIFO, "300"},
		{strategy.CostMethodWeightedAverage, "320"},
	}

	for _, tt := range tests {
		t.Run(tt.method.String(), func(t *testing.T) {
			v, err := inventory.NewVariant(uuid.New(), "TEE-M", decimal.NewFromInt(25), decimal.NewFromInt(10))
			require.NoError(t, err)

			_, err = v.ReceiveBatch(inventory.BatchReceipt{
				Quantity:   decimal.NewFromInt(100),
				UnitCost:   decimal.NewFromInt(10),
				ReceivedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			})
			require.NoError(t, err)
			_, err = v.ReceiveBatch(inventory.BatchReceipt{
				Quantity:   decimal.NewFromInt(50),
				UnitCost:   decimal.NewFromInt(12),
				ReceivedAt: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
			})
			require.NoError(t, err)

			result, err := v.Consume(tt.method, decimal.NewFromInt(120), "sale-1", time.Now())
			require.NoError(t, err)
			require.True(t, result.Unconsumed.IsZero())

			val, err := inventory.Valuate(context.Background(), v, strategyFor(tt.method))
			require.NoError(t, err)
			assert.Equal(t, v.ID, val.VariantID)
			assert.Equal(t, tt.method, val.Method)
			assert.True(t, decimal.NewFromInt(30).Equal(val.StockOnHand))
			assert.Equal(t, tt.want, val.Amount.String())
			assert.False(t, val.IntegrityFault)
		})
	}
}

func TestValuateLayers_ZeroStock(t *testing.T) {
	layers := []strategy.CostLayer{{BatchID: "a", Sequence: 1, ReceivedQuantity: decimal.NewFromInt(5), UnitCost: decimal.NewFromInt(3)}}

	for _, stock := range []int64{0, -4} {
		val, err := inventory.ValuateLayers(context.Background(), decimal.NewFromInt(stock), layers, cost.NewFIFOValuationStrategy())
		require.NoError(t, err)
		assert.True(t, val.Amount.IsZero())
		assert.False(t, val.IntegrityFault)
	}
}

func TestValuateLayers_StockWithoutBatches(t *testing.T) {
	val, err := inventory.ValuateLayers(context.Background(), decimal.NewFromInt(12), nil, cost.NewWeightedAverageValuationStrategy())
	require.NoError(t, err)
	assert.True(t, val.IntegrityFault)
	assert.True(t, val.Amount.IsZero())
	assert.Equal(t, strategy.CostMethodWeightedAverage, val.Method)
}
