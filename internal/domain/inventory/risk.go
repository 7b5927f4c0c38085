package inventory

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AlertSeverity ranks how urgent a stock alert is
type AlertSeverity string

const (
	SeverityOutOfStock AlertSeverity = "out_of_stock"
	SeverityCritical   AlertSeverity = "critical"
	SeverityLowStock   AlertSeverity = "low_stock"
)

// Rank orders severities, higher is more urgent
func (s AlertSeverity) Rank() int {
	switch s {
	case SeverityOutOfStock:
		return 3
	case SeverityCritical:
		return 2
	case SeverityLowStock:
		return 1
	}
	return 0
}

// Alert reasons
const (
	ReasonNoStock             = "stock_not_positive"
	ReasonAtReorderPoint      = "at_or_below_reorder_point"
	ReasonAtSafetyStock       = "at_or_below_safety_stock"
	ReasonCoverWithinLeadTime = "cover_within_lead_time"
)

// DefaultCriticalDays is the days-of-stock at or below which an alert is critical
const DefaultCriticalDays = 3

// RiskPolicy tunes the classifier
type RiskPolicy struct {
	CriticalDays int
}

// DefaultRiskPolicy returns the default classifier policy
func DefaultRiskPolicy() RiskPolicy {
	return RiskPolicy{CriticalDays: DefaultCriticalDays}
}

// Alert is a severity-tagged stock warning for one variant
type Alert struct {
	VariantID         uuid.UUID       `json:"variant_id"`
	ProductID         uuid.UUID       `json:"product_id"`
	SKU               string          `json:"sku"`
	Severity          AlertSeverity   `json:"severity"`
	CurrentStock      decimal.Decimal `json:"current_stock"`
	DaysOfStock       int64           `json:"days_of_stock"`
	LeadTimeDays      int             `json:"lead_time_days"`
	Metrics           ReorderMetrics  `json:"metrics"`
	SuggestedQuantity int64           `json:"suggested_quantity"`
	Reasons           []string        `json:"reasons"`
	RaisedAt          time.Time       `json:"raised_at"`
}

// ClassifyRisk evaluates one variant. It returns false when no alert is due.
func ClassifyRisk(v *Variant, p *Product, dailyRate decimal.Decimal, policy RiskPolicy, now time.Time) (*Alert, bool) {
	stock := v.StockOnHand()
	leadTime := v.EffectiveLeadTime(p)
	bufferDays := 0
	if p != nil {
		bufferDays = p.BufferDays
	}
	metrics := CalculateReorderMetrics(dailyRate, leadTime, bufferDays)

	days := int64(math.MaxInt64)
	if dailyRate.IsPositive() {
		days = stock.Div(dailyRate).Floor().IntPart()
	}

	var reasons []string
	if !stock.IsPositive() {
		reasons = append(reasons, ReasonNoStock)
	}
	if stock.LessThanOrEqual(decimal.NewFromInt(metrics.ReorderPoint)) {
		reasons = append(reasons, ReasonAtReorderPoint)
	}
	if stock.LessThanOrEqual(decimal.NewFromInt(metrics.SafetyStock)) {
		reasons = append(reasons, ReasonAtSafetyStock)
	}
	if days <= int64(leadTime) {
		reasons = append(reasons, ReasonCoverWithinLeadTime)
	}
	if len(reasons) == 0 {
		return nil, false
	}

	criticalDays := policy.CriticalDays
	if criticalDays <= 0 {
		criticalDays = DefaultCriticalDays
	}

	severity := SeverityLowStock
	switch {
	case !stock.IsPositive():
		severity = SeverityOutOfStock
	case days <= int64(criticalDays):
		severity = SeverityCritical
	}

	suggested := decimal.NewFromInt(metrics.ReorderQuantity).Sub(stock).Ceil().IntPart()
	if suggested < 0 {
		suggested = 0
	}

	return &Alert{
		VariantID:         v.ID,
		ProductID:         v.ProductID,
		SKU:               v.SKU,
		Severity:          severity,
		CurrentStock:      stock,
		DaysOfStock:       days,
		LeadTimeDays:      leadTime,
		Metrics:           metrics,
		SuggestedQuantity: suggested,
		Reasons:           reasons,
		RaisedAt:          now,
	}, true
}
