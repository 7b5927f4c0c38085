package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DemandTransaction is a historical sale supplied by the order history.
// ID is the source record it was derived from, so replays are harmless.
type DemandTransaction struct {
	ID         uuid.UUID
	VariantID  uuid.UUID
	Quantity   decimal.Decimal
	OccurredAt time.Time
	OrderRef   string
	Cancelled  bool
}

// RateSource tells where a resolved daily rate came from
type RateSource string

const (
	RateSourceObserved      RateSource = "observed"
	RateSourceReorderPolicy RateSource = "reorder_policy"
	RateSourceFloor         RateSource = "floor"
)

// DefaultEpsilonRate is the floor used when neither history nor policy gives a rate
var DefaultEpsilonRate = decimal.RequireFromString("0.0001")

// AverageDailyRate sums the variant's non-cancelled demand inside the
// trailing window (now-windowDays, now] and divides by windowDays.
func AverageDailyRate(transactions []DemandTransaction, variantID uuid.UUID, windowDays int, now time.Time) decimal.Decimal {
	if windowDays <= 0 {
		return decimal.Zero
	}
	since := now.AddDate(0, 0, -windowDays)

	total := decimal.Zero
	for _, tx := range transactions {
		if tx.VariantID != variantID || tx.Cancelled {
			continue
		}
		if !tx.OccurredAt.After(since) || tx.OccurredAt.After(now) {
			continue
		}
		if tx.Quantity.IsPositive() {
			total = total.Add(tx.Quantity)
		}
	}
	return total.Div(decimal.NewFromInt(int64(windowDays)))
}

// ResolveDailyRate picks the rate used downstream: the observed one when
// positive, then reorderPoint/leadTime, then epsilon.
func ResolveDailyRate(observed decimal.Decimal, reorderPoint int64, leadTimeDays int, epsilon decimal.Decimal) (decimal.Decimal, RateSource) {
	if observed.IsPositive() {
		return observed, RateSourceObserved
	}
	if reorderPoint > 0 && leadTimeDays > 0 {
		return decimal.NewFromInt(reorderPoint).Div(decimal.NewFromInt(int64(leadTimeDays))), RateSourceReorderPolicy
	}
	if !epsilon.IsPositive() {
		epsilon = DefaultEpsilonRate
	}
	return epsilon, RateSourceFloor
}
