// Package strategy holds the costing conventions shared by the ledger and
// the valuation engine.
package strategy

// Descriptor identifies a valuation strategy by the cost method it implements.
// Strategies embed it so the registry and listings can describe them.
type Descriptor struct {
	method      CostMethod
	description string
}

// NewDescriptor describes a strategy for method
func NewDescriptor(method CostMethod, description string) Descriptor {
	return Descriptor{method: method, description: description}
}

// Name is the method's stored form
func (d Descriptor) Name() string {
	return d.method.String()
}

func (d Descriptor) Method() CostMethod {
	return d.method
}

func (d Descriptor) Description() string {
	return d.description
}

// Described is implemented by anything embedding a Descriptor
type Described interface {
	Name() string
	Method() CostMethod
	Description() string
}
