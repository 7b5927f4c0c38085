package cost

import (
	"context"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	jan1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	jan5 = time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
)

func layer(seq int64, remaining, received, cost int64, at time.Time) strategy.CostLayer {
	return strategy.CostLayer{
		Sequence:         seq,
		Quantity:         decimal.NewFromInt(remaining),
		ReceivedQuantity: decimal.NewFromInt(received),
		UnitCost:         decimal.NewFromInt(cost),
		ReceivedAt:       at,
	}
}

func TestStrategies_Metadata(t *testing.T) {
	tests := []struct {
		name   string
		s      strategy.ValuationStrategy
		method strategy.CostMethod
	}{
		{"fifo", NewFIFOValuationStrategy(), strategy.CostMethodFIFO},
		{"lifo", NewLIFOValuationStrategy(), strategy.CostMethodLIFO},
		{"weighted_average", NewWeightedAverageValuationStrategy(), strategy.CostMethodWeightedAverage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.s.Name())
			assert.Equal(t, tt.method, tt.s.Method())
			assert.NotEmpty(t, tt.s.Description())
		})
	}
}

// Batch A = 100 @ 10 (Jan 1), Batch B = 50 @ 12 (Jan 5), 120 units consumed.
func TestValuation_WorkedExample(t *testing.T) {
	ctx := context.Background()
	stock := decimal.NewFromInt(30)

	tests := []struct {
		name     string
		s        strategy.ValuationStrategy
		layers   []strategy.CostLayer
		expected decimal.Decimal
	}{
		{
			name:     "fifo keeps the newer batch",
			s:        NewFIFOValuationStrategy(),
			layers:   []strategy.CostLayer{layer(1, 0, 100, 10, jan1), layer(2, 30, 50, 12, jan5)},
			expected: decimal.NewFromInt(360),
		},
		{
			name:     "lifo keeps the older batch",
			s:        NewLIFOValuationStrategy(),
			layers:   []strategy.CostLayer{layer(1, 30, 100, 10, jan1), layer(2, 0, 50, 12, jan5)},
			expected: decimal.NewFromInt(300),
		},
		{
			name:     "weighted average after fifo depletion",
			s:        NewWeightedAverageValuationStrategy(),
			layers:   []strategy.CostLayer{layer(1, 0, 100, 10, jan1), layer(2, 30, 50, 12, jan5)},
			expected: decimal.NewFromInt(320),
		},
		{
			name:     "weighted average after lifo depletion",
			s:        NewWeightedAverageValuationStrategy(),
			layers:   []strategy.CostLayer{layer(1, 30, 100, 10, jan1), layer(2, 0, 50, 12, jan5)},
			expected: decimal.NewFromInt(320),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := tt.s.Valuate(ctx, stock, tt.layers)
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(value), "expected %s but got %s", tt.expected, value)
		})
	}
}

func TestValuation_VirtualConsumptionDirection(t *testing.T) {
	ctx := context.Background()
	// Layers listed out of receipt order on purpose.
	layers := []strategy.CostLayer{layer(2, 50, 50, 12, jan5), layer(1, 100, 100, 10, jan1)}
	stock := decimal.NewFromInt(70)

	fifo, err := NewFIFOValuationStrategy().Valuate(ctx, stock, layers)
	require.NoError(t, err)
	// 50 @ 12 + 20 @ 10
	assert.True(t, decimal.NewFromInt(800).Equal(fifo), "got %s", fifo)

	lifo, err := NewLIFOValuationStrategy().Valuate(ctx, stock, layers)
	require.NoError(t, err)
	// 70 @ 10
	assert.True(t, decimal.NewFromInt(700).Equal(lifo), "got %s", lifo)
}

func TestValuation_NonPositiveStock(t *testing.T) {
	ctx := context.Background()
	layers := []strategy.CostLayer{layer(1, 10, 10, 5, jan1)}

	for _, s := range []strategy.ValuationStrategy{
		NewFIFOValuationStrategy(),
		NewLIFOValuationStrategy(),
		NewWeightedAverageValuationStrategy(),
	} {
		t.Run(s.Name(), func(t *testing.T) {
			value, err := s.Valuate(ctx, decimal.Zero, layers)
			require.NoError(t, err)
			assert.True(t, value.IsZero())

			value, err = s.Valuate(ctx, decimal.NewFromInt(-5), layers)
			require.NoError(t, err)
			assert.True(t, value.IsZero())

			value, err = s.Valuate(ctx, decimal.NewFromInt(5), nil)
			require.NoError(t, err)
			assert.True(t, value.IsZero())
		})
	}
}

func TestValuation_TiesBreakBySequence(t *testing.T) {
	ctx := context.Background()
	layers := []strategy.CostLayer{
		layer(2, 10, 10, 20, jan1),
		layer(1, 10, 10, 10, jan1),
	}

	// newest by sequence is the 20-cost layer
	fifo, err := NewFIFOValuationStrategy().Valuate(ctx, decimal.NewFromInt(10), layers)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(200).Equal(fifo), "got %s", fifo)

	lifo, err := NewLIFOValuationStrategy().Valuate(ctx, decimal.NewFromInt(10), layers)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(lifo), "got %s", lifo)
}

func TestWeightedAverage_IndependentOfConsumptionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewWeightedAverageValuationStrategy()
	stock := decimal.NewFromInt(45)

	a := []strategy.CostLayer{layer(1, 0, 40, 7, jan1), layer(2, 20, 30, 9, jan5), layer(3, 25, 25, 11, jan5)}
	b := []strategy.CostLayer{layer(1, 40, 40, 7, jan1), layer(2, 5, 30, 9, jan5), layer(3, 0, 25, 11, jan5)}

	va, err := s.Valuate(ctx, stock, a)
	require.NoError(t, err)
	vb, err := s.Valuate(ctx, stock, b)
	require.NoError(t, err)

	// 45 * (280 + 270 + 275) / 95
	expected := decimal.NewFromInt(45).Mul(decimal.NewFromInt(825)).Div(decimal.NewFromInt(95)).Round(4)
	assert.True(t, expected.Equal(va), "expected %s but got %s", expected, va)
	assert.True(t, va.Equal(vb))
}

func TestWeightedAverage_AverageUnitCost(t *testing.T) {
	s := NewWeightedAverageValuationStrategy()

	avg := s.AverageUnitCost([]strategy.CostLayer{layer(1, 0, 100, 10, jan1), layer(2, 30, 50, 12, jan5)})
	assert.True(t, decimal.RequireFromString("10.6667").Equal(avg), "got %s", avg)

	assert.True(t, s.AverageUnitCost(nil).IsZero())
}
