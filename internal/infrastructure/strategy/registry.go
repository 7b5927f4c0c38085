package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/shared/strategy"
)

// StrategyRegistry manages valuation strategy registrations
type StrategyRegistry struct {
	mu                  sync.RWMutex
	valuationStrategies map[strategy.CostMethod]strategy.ValuationStrategy
	defaultMethod       strategy.CostMethod
}

var _ strategy.ValuationStrategyProvider = (*StrategyRegistry)(nil)

// NewStrategyRegistry creates an empty registry whose fallback is FIFO
func NewStrategyRegistry() *StrategyRegistry {
	return &StrategyRegistry{
		valuationStrategies: make(map[strategy.CostMethod]strategy.ValuationStrategy),
		defaultMethod:       strategy.DefaultCostMethod,
	}
}

// RegisterValuationStrategy registers a valuation strategy under its method
func (r *StrategyRegistry) RegisterValuationStrategy(s strategy.ValuationStrategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	method := s.Method()
	if _, exists := r.valuationStrategies[method]; exists {
		return fmt.Errorf("%w: valuation strategy '%s' already registered", shared.ErrAlreadyExists, method)
	}
	r.valuationStrategies[method] = s
	return nil
}

// GetValuationStrategy returns the strategy registered for method
func (r *StrategyRegistry) GetValuationStrategy(method strategy.CostMethod) (strategy.ValuationStrategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.valuationStrategies[method]
	if !exists {
		return nil, fmt.Errorf("%w: valuation strategy '%s' not found", shared.ErrNotFound, method)
	}
	return s, nil
}

// GetValuationStrategyOrDefault returns the strategy for method, falling back
// to the default method when it is unknown or unregistered
func (r *StrategyRegistry) GetValuationStrategyOrDefault(method strategy.CostMethod) strategy.ValuationStrategy {
	s, err := r.GetValuationStrategy(method)
	if err != nil {
		s, _ = r.GetValuationStrategy(r.defaultMethod)
	}
	return s
}

// SetDefaultMethod changes the fallback method
func (r *StrategyRegistry) SetDefaultMethod(method strategy.CostMethod) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.valuationStrategies[method]; !exists {
		return fmt.Errorf("%w: valuation strategy '%s' not found", shared.ErrNotFound, method)
	}
	r.defaultMethod = method
	return nil
}

// ListValuationStrategies returns the registered methods in sorted order
func (r *StrategyRegistry) ListValuationStrategies() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.valuationStrategies))
	for method := range r.valuationStrategies {
		names = append(names, method.String())
	}
	sort.Strings(names)
	return names
}
