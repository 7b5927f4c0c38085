package inventory

import "github.com/shopspring/decimal"

// ReorderMetrics are the replenishment thresholds derived from demand
type ReorderMetrics struct {
	DailyRate       decimal.Decimal `json:"daily_rate"`
	SafetyStock     int64           `json:"safety_stock"`
	ReorderPoint    int64           `json:"reorder_point"`
	ReorderQuantity int64           `json:"reorder_quantity"`
}

// CalculateReorderMetrics derives:
//
//	safetyStock  = ceil(rate * buffer)
//	reorderPoint = ceil(rate * lead + safetyStock)
//	reorderQty   = ceil(rate * (lead + buffer))
//
// Negative inputs are treated as zero so reorderPoint >= safetyStock holds.
func CalculateReorderMetrics(dailyRate decimal.Decimal, leadTimeDays, bufferDays int) ReorderMetrics {
	if dailyRate.IsNegative() {
		dailyRate = decimal.Zero
	}
	lead := decimal.NewFromInt(int64(max(leadTimeDays, 0)))
	buffer := decimal.NewFromInt(int64(max(bufferDays, 0)))

	safety := dailyRate.Mul(buffer).Ceil()
	reorderPoint := dailyRate.Mul(lead).Add(safety).Ceil()
	reorderQty := dailyRate.Mul(lead.Add(buffer)).Ceil()

	return ReorderMetrics{
		DailyRate:       dailyRate,
		SafetyStock:     safety.IntPart(),
		ReorderPoint:    reorderPoint.IntPart(),
		ReorderQuantity: reorderQty.IntPart(),
	}
}
