package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BatchDraw is the quantity one consumption took from one batch
type BatchDraw struct {
	BatchID  uuid.UUID
	Quantity decimal.Decimal
	UnitCost decimal.Decimal
}

// ConsumptionResult summarizes a walk over the depletion order
type ConsumptionResult struct {
	Requested  decimal.Decimal
	Consumed   decimal.Decimal
	Unconsumed decimal.Decimal
	TotalCost  decimal.Decimal
	Draws      []BatchDraw
}

// UnitCost returns the weighted cost of the consumed units
func (r ConsumptionResult) UnitCost() decimal.Decimal {
	if !r.Consumed.IsPositive() {
		return decimal.Zero
	}
	return r.TotalCost.Div(r.Consumed).Round(4)
}

// SingleBatch returns the batch ID when exactly one batch was drawn
func (r ConsumptionResult) SingleBatch() *uuid.UUID {
	if len(r.Draws) != 1 {
		return nil
	}
	id := r.Draws[0].BatchID
	return &id
}

// ConsumeBatches drains requested units from batches in the given order and
// returns the shortfall. It only touches the batches it is handed.
func ConsumeBatches(ordered []*Batch, requested decimal.Decimal, ref string, at time.Time) decimal.Decimal {
	return drainBatches(ordered, requested, ref, at).Unconsumed
}

func drainBatches(ordered []*Batch, requested decimal.Decimal, ref string, at time.Time) ConsumptionResult {
	result := ConsumptionResult{
		Requested:  requested,
		Consumed:   decimal.Zero,
		Unconsumed: decimal.Zero,
		TotalCost:  decimal.Zero,
	}
	if !requested.IsPositive() {
		return result
	}

	needed := requested
	for _, b := range ordered {
		if !needed.IsPositive() {
			break
		}
		if b.IsDepleted() {
			continue
		}
		taken := b.Consume(needed, ref, at)
		if taken.IsZero() {
			continue
		}
		needed = needed.Sub(taken)
		result.Consumed = result.Consumed.Add(taken)
		result.TotalCost = result.TotalCost.Add(taken.Mul(b.UnitCost))
		result.Draws = append(result.Draws, BatchDraw{
			BatchID:  b.ID,
			Quantity: taken,
			UnitCost: b.UnitCost,
		})
	}
	result.Unconsumed = needed
	return result
}
