package inventory

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/shared/strategy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AnalysisOptions tunes demand estimation and risk classification
type AnalysisOptions struct {
	WindowDays  int
	EpsilonRate decimal.Decimal
	Risk        inventory.RiskPolicy
}

// DefaultAnalysisOptions uses a 30 day window
func DefaultAnalysisOptions() AnalysisOptions {
	return AnalysisOptions{
		WindowDays:  30,
		EpsilonRate: inventory.DefaultEpsilonRate,
		Risk:        inventory.DefaultRiskPolicy(),
	}
}

// AnalysisService answers read-only questions about stock: value, reorder
// thresholds, risk and replenishment. It never writes.
type AnalysisService struct {
	variantRepo  inventory.VariantRepository
	productRepo  inventory.ProductRepository
	movementRepo inventory.MovementRepository
	demand       inventory.DemandSource
	strategies   strategy.ValuationStrategyProvider
	opts         AnalysisOptions
	logger       *zap.Logger
	now          func() time.Time
}

// NewAnalysisService creates a new AnalysisService
func NewAnalysisService(
	variantRepo inventory.VariantRepository,
	productRepo inventory.ProductRepository,
	movementRepo inventory.MovementRepository,
	demand inventory.DemandSource,
	strategies strategy.ValuationStrategyProvider,
	opts AnalysisOptions,
	logger *zap.Logger,
) *AnalysisService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = DefaultAnalysisOptions().WindowDays
	}
	return &AnalysisService{
		variantRepo:  variantRepo,
		productRepo:  productRepo,
		movementRepo: movementRepo,
		demand:       demand,
		strategies:   strategies,
		opts:         opts,
		logger:       logger,
		now:          time.Now,
	}
}

// SetClock replaces the time source
func (s *AnalysisService) SetClock(now func() time.Time) {
	s.now = now
}

// ValuateInventory values a variant's stock with its product's costing method.
// Positive stock without batches values at zero and is logged as an integrity fault.
func (s *AnalysisService) ValuateInventory(ctx context.Context, variantID uuid.UUID) (*inventory.Valuation, error) {
	v, err := s.variantRepo.FindByID(ctx, variantID)
	if err != nil {
		return nil, err
	}
	p, err := s.productRepo.FindByID(ctx, v.ProductID)
	if err != nil {
		return nil, err
	}
	return s.valuate(ctx, v, p)
}

func (s *AnalysisService) valuate(ctx context.Context, v *inventory.Variant, p *inventory.Product) (*inventory.Valuation, error) {
	method := p.EffectiveCostMethod()
	val, err := inventory.Valuate(ctx, v, s.strategies.GetValuationStrategyOrDefault(method))
	if err != nil {
		return nil, err
	}
	if val.IntegrityFault {
		s.logger.Warn("Positive stock without batches, valued at zero",
			zap.String("variant_id", v.ID.String()),
			zap.String("sku", v.SKU),
			zap.String("stock_on_hand", val.StockOnHand.String()),
		)
	}
	return &val, nil
}

// ProductValuation is the valuation of every variant of a product
type ProductValuation struct {
	ProductID  uuid.UUID             `json:"product_id"`
	Method     strategy.CostMethod   `json:"method"`
	Total      decimal.Decimal       `json:"total"`
	Valuations []inventory.Valuation `json:"valuations"`
}

// ValuateProduct values every variant of a product and sums the amounts
func (s *AnalysisService) ValuateProduct(ctx context.Context, productID uuid.UUID) (*ProductValuation, error) {
	p, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	variants, err := s.variantRepo.FindByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	out := &ProductValuation{
		ProductID: productID,
		Method:    p.EffectiveCostMethod(),
		Total:     decimal.Zero,
	}
	for _, v := range variants {
		val, err := s.valuate(ctx, v, p)
		if err != nil {
			return nil, err
		}
		out.Total = out.Total.Add(val.Amount)
		out.Valuations = append(out.Valuations, *val)
	}
	return out, nil
}

// dailyRate estimates demand over the trailing window and applies the fallbacks
func (s *AnalysisService) dailyRate(ctx context.Context, v *inventory.Variant, p *inventory.Product, windowDays int) (decimal.Decimal, inventory.RateSource, error) {
	now := s.now()
	txns, err := s.demand.FindByVariant(ctx, v.ID, now.AddDate(0, 0, -windowDays))
	if err != nil {
		return decimal.Zero, "", err
	}
	observed := inventory.AverageDailyRate(txns, v.ID, windowDays, now)
	rate, source := inventory.ResolveDailyRate(observed, v.ReorderPoint, v.EffectiveLeadTime(p), s.opts.EpsilonRate)
	return rate, source, nil
}

func (s *AnalysisService) window(windowDays int) int {
	if windowDays > 0 {
		return windowDays
	}
	return s.opts.WindowDays
}

// ReorderMetrics derives safety stock, reorder point and reorder quantity for a variant
func (s *AnalysisService) ReorderMetrics(ctx context.Context, variantID uuid.UUID) (*ReorderMetricsResponse, error) {
	v, err := s.variantRepo.FindByID(ctx, variantID)
	if err != nil {
		return nil, err
	}
	p, err := s.productRepo.FindByID(ctx, v.ProductID)
	if err != nil {
		return nil, err
	}
	rate, source, err := s.dailyRate(ctx, v, p, s.opts.WindowDays)
	if err != nil {
		return nil, err
	}

	lead := v.EffectiveLeadTime(p)
	return &ReorderMetricsResponse{
		VariantID:    v.ID,
		SKU:          v.SKU,
		RateSource:   source,
		LeadTimeDays: lead,
		BufferDays:   p.BufferDays,
		Metrics:      inventory.CalculateReorderMetrics(rate, lead, p.BufferDays),
	}, nil
}

// RiskAlerts classifies every active variant of every product. Alerts are
// ordered most urgent first, then by fewest days of stock, then by SKU.
// A non-positive windowDays uses the configured window.
func (s *AnalysisService) RiskAlerts(ctx context.Context, windowDays int) ([]inventory.Alert, error) {
	products, err := s.productRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	var alerts []inventory.Alert
	for _, p := range products {
		productAlerts, err := s.productAlerts(ctx, p, windowDays)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, productAlerts...)
	}
	SortAlerts(alerts)
	return alerts, nil
}

// ProductRiskAlerts classifies the active variants of one product
func (s *AnalysisService) ProductRiskAlerts(ctx context.Context, productID uuid.UUID, windowDays int) ([]inventory.Alert, error) {
	p, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	alerts, err := s.productAlerts(ctx, p, windowDays)
	if err != nil {
		return nil, err
	}
	SortAlerts(alerts)
	return alerts, nil
}

// ProductIDs lists every product, for callers that fan out per product
func (s *AnalysisService) ProductIDs(ctx context.Context) ([]uuid.UUID, error) {
	products, err := s.productRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	return ids, nil
}

func (s *AnalysisService) productAlerts(ctx context.Context, p *inventory.Product, windowDays int) ([]inventory.Alert, error) {
	variants, err := s.variantRepo.FindByProduct(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	window := s.window(windowDays)
	now := s.now()
	var alerts []inventory.Alert
	for _, v := range variants {
		if !v.IsActive() {
			continue
		}
		rate, _, err := s.dailyRate(ctx, v, p, window)
		if err != nil {
			return nil, err
		}
		if alert, ok := inventory.ClassifyRisk(v, p, rate, s.opts.Risk, now); ok {
			alerts = append(alerts, *alert)
		}
	}
	return alerts, nil
}

// SortAlerts orders alerts by severity, days of stock and SKU
func SortAlerts(alerts []inventory.Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		a, b := alerts[i], alerts[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if a.DaysOfStock != b.DaysOfStock {
			return a.DaysOfStock < b.DaysOfStock
		}
		return a.SKU < b.SKU
	})
}

// ReplenishmentPlan splits a product's purchase order across its variants.
// Flagged variants carry their suggested quantity; the product MOQ is
// applied on top by the allocator.
func (s *AnalysisService) ReplenishmentPlan(ctx context.Context, productID uuid.UUID) (*inventory.ReplenishmentPlan, error) {
	p, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	variants, err := s.variantRepo.FindByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	candidates := make([]inventory.ReplenishmentCandidate, 0, len(variants))
	for _, v := range variants {
		if !v.IsActive() {
			continue
		}
		rate, _, err := s.dailyRate(ctx, v, p, s.opts.WindowDays)
		if err != nil {
			return nil, err
		}
		c := inventory.ReplenishmentCandidate{
			VariantID:  v.ID,
			SKU:        v.SKU,
			DemandRate: rate,
		}
		if alert, ok := inventory.ClassifyRisk(v, p, rate, s.opts.Risk, now); ok {
			c.Flagged = true
			c.Recommended = alert.SuggestedQuantity
		}
		candidates = append(candidates, c)
	}

	plan, err := inventory.AllocateReplenishment(p.ID, p.MinimumOrderQuantity, candidates)
	if err != nil {
		if errors.Is(err, inventory.ErrAllocationMismatch) {
			s.logger.Error("Replenishment allocation does not add up",
				zap.String("product_id", productID.String()),
				zap.Error(err),
			)
		}
		return nil, err
	}
	return &plan, nil
}

// MovementHistory returns one page of a variant's ledger in sequence order
func (s *AnalysisService) MovementHistory(ctx context.Context, variantID uuid.UUID, filter shared.Filter) (shared.Paginated[MovementResponse], error) {
	if filter.PageSize <= 0 {
		filter.PageSize = shared.DefaultFilter().PageSize
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	movements, total, err := s.movementRepo.FindByVariant(ctx, variantID, filter)
	if err != nil {
		return shared.Paginated[MovementResponse]{}, err
	}
	return shared.NewPaginated(ToMovementResponses(movements), total, filter.Page, filter.PageSize), nil
}
