package inventory

import (
	"strings"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/shared/strategy"
)

// AggregateTypeProduct is the aggregate type used on product events
const AggregateTypeProduct = "Product"

// Product groups variants and carries the costing and replenishment policy
type Product struct {
	shared.BaseAggregateRoot
	Name                 string
	CostMethod           strategy.CostMethod
	BufferDays           int
	DefaultLeadTimeDays  int
	MinimumOrderQuantity int64
}

// NewProduct creates a product. An unrecognized method is stored as FIFO.
func NewProduct(name string, method strategy.CostMethod, bufferDays, leadTimeDays int, moq int64) (*Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if bufferDays < 0 || leadTimeDays < 0 || moq < 0 {
		return nil, shared.NewDomainError("INVALID_REPLENISHMENT_POLICY", "Buffer, lead time and MOQ cannot be negative")
	}

	return &Product{
		BaseAggregateRoot:    shared.NewBaseAggregateRoot(),
		Name:                 name,
		CostMethod:           strategy.ParseCostMethod(method.String()),
		BufferDays:           bufferDays,
		DefaultLeadTimeDays:  leadTimeDays,
		MinimumOrderQuantity: moq,
	}, nil
}

// EffectiveCostMethod returns the stored method, or FIFO when it is not recognized
func (p *Product) EffectiveCostMethod() strategy.CostMethod {
	return strategy.ParseCostMethod(p.CostMethod.String())
}

// ChangeCostMethod switches the costing method. Once any batch of the
// product has been drawn from, the depletion order already applied would
// disagree with the new method, so the change is refused.
func (p *Product) ChangeCostMethod(method strategy.CostMethod, anyConsumption bool) error {
	if !method.IsValid() {
		return ErrInvalidCostMethod.Withf("unsupported costing method %q", method)
	}
	if method == p.EffectiveCostMethod() {
		return nil
	}
	if anyConsumption {
		return ErrCostMethodLocked
	}

	old := p.CostMethod
	p.CostMethod = method
	p.IncrementVersion()
	p.AddDomainEvent(NewCostMethodChangedEvent(p, old, method))
	return nil
}

// SetReplenishmentPolicy updates buffer, default lead time and MOQ
func (p *Product) SetReplenishmentPolicy(bufferDays, leadTimeDays int, moq int64) error {
	if bufferDays < 0 || leadTimeDays < 0 || moq < 0 {
		return shared.NewDomainError("INVALID_REPLENISHMENT_POLICY", "Buffer, lead time and MOQ cannot be negative")
	}
	p.BufferDays = bufferDays
	p.DefaultLeadTimeDays = leadTimeDays
	p.MinimumOrderQuantity = moq
	return nil
}
