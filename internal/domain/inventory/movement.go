package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementKind classifies a stock transition
type MovementKind string

const (
	MovementInbound    MovementKind = "inbound"
	MovementOutbound   MovementKind = "outbound"
	MovementAdjustment MovementKind = "adjustment"
	MovementTransfer   MovementKind = "transfer"
	MovementReturn     MovementKind = "return"
	MovementDamage     MovementKind = "damage"
	MovementExpired    MovementKind = "expired"
)

// IsValid reports whether the kind is known
func (k MovementKind) IsValid() bool {
	switch k {
	case MovementInbound, MovementOutbound, MovementAdjustment, MovementTransfer,
		MovementReturn, MovementDamage, MovementExpired:
		return true
	}
	return false
}

// String returns the string representation of the kind
func (k MovementKind) String() string {
	return string(k)
}

// AcceptsSign reports whether qty has a sign this kind allows.
// Inbound and return only add, outbound, damage and expired only remove,
// adjustment and transfer go either way.
func (k MovementKind) AcceptsSign(qty decimal.Decimal) bool {
	switch k {
	case MovementInbound, MovementReturn:
		return qty.IsPositive()
	case MovementOutbound, MovementDamage, MovementExpired:
		return qty.IsNegative()
	case MovementAdjustment, MovementTransfer:
		return !qty.IsZero()
	}
	return false
}

// AllMovementKinds lists every kind
func AllMovementKinds() []MovementKind {
	return []MovementKind{
		MovementInbound, MovementOutbound, MovementAdjustment, MovementTransfer,
		MovementReturn, MovementDamage, MovementExpired,
	}
}

// Movement is an immutable ledger entry. Corrections are new movements.
type Movement struct {
	ID            uuid.UUID
	VariantID     uuid.UUID
	Sequence      int64
	Kind          MovementKind
	Quantity      decimal.Decimal
	PreviousStock decimal.Decimal
	NewStock      decimal.Decimal
	OrderRef      string
	Reason        string
	BatchID       *uuid.UUID
	UnitCost      decimal.Decimal
	Actor         string
	ReversalOf    *uuid.UUID
	OccurredAt    time.Time
	CreatedAt     time.Time
}

// MovementOptions carries the optional attributes of a new movement
type MovementOptions struct {
	ID         uuid.UUID
	OrderRef   string
	Reason     string
	BatchID    *uuid.UUID
	UnitCost   decimal.Decimal
	Actor      string
	ReversalOf *uuid.UUID
	OccurredAt time.Time
}

// IsIncrease reports whether the movement added stock
func (m *Movement) IsIncrease() bool {
	return m.Quantity.IsPositive()
}

// IsReversal reports whether the movement compensates another one
func (m *Movement) IsReversal() bool {
	return m.ReversalOf != nil
}

// TotalCost is the absolute quantity priced at the recorded unit cost
func (m *Movement) TotalCost() decimal.Decimal {
	return m.Quantity.Abs().Mul(m.UnitCost)
}
