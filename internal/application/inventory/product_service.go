package inventory

import (
	"context"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/shared/strategy"
	"go.uber.org/zap"
)

// ProductDefaults are applied when a create request leaves a policy unset
type ProductDefaults struct {
	CostMethod strategy.CostMethod
	BufferDays int
}

// ProductService manages products, variants and their policies
type ProductService struct {
	scope          TransactionScope
	productRepo    inventory.ProductRepository
	variantRepo    inventory.VariantRepository
	defaults       ProductDefaults
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewProductService creates a new ProductService
func NewProductService(
	scope TransactionScope,
	productRepo inventory.ProductRepository,
	variantRepo inventory.VariantRepository,
	defaults ProductDefaults,
	logger *zap.Logger,
) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		scope:       scope,
		productRepo: productRepo,
		variantRepo: variantRepo,
		defaults:    defaults,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ProductService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CreateProduct creates a product
func (s *ProductService) CreateProduct(ctx context.Context, req CreateProductRequest) (*inventory.Product, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	method := s.defaults.CostMethod
	if req.CostMethod != "" {
		method = strategy.ParseCostMethod(req.CostMethod)
	}
	bufferDays := s.defaults.BufferDays
	if req.BufferDays != nil {
		bufferDays = *req.BufferDays
	}

	p, err := inventory.NewProduct(req.Name, method, bufferDays, req.DefaultLeadTimeDays, req.MinimumOrderQuantity)
	if err != nil {
		return nil, err
	}
	if err := s.productRepo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("Product created",
		zap.String("product_id", p.ID.String()),
		zap.String("cost_method", p.CostMethod.String()),
	)
	return p, nil
}

// CreateVariant creates a variant under an existing product
func (s *ProductService) CreateVariant(ctx context.Context, req CreateVariantRequest) (*inventory.Variant, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if _, err := s.productRepo.FindByID(ctx, req.ProductID); err != nil {
		return nil, err
	}

	v, err := inventory.NewVariant(req.ProductID, req.SKU, req.UnitPrice, req.ReferenceCost)
	if err != nil {
		return nil, err
	}
	if err := v.SetReorderPolicy(req.ReorderPoint, req.ReorderQuantity, req.LeadTimeDays); err != nil {
		return nil, err
	}
	v.AllowBackorder = req.AllowBackorder

	if err := s.variantRepo.Create(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// SetReorderPolicy updates a variant's configured reorder settings
func (s *ProductService) SetReorderPolicy(ctx context.Context, req SetReorderPolicyRequest) (*inventory.Variant, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var variant *inventory.Variant
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		v, err := repos.VariantRepo().FindByIDForUpdate(ctx, req.VariantID)
		if err != nil {
			return err
		}
		if err := v.SetReorderPolicy(req.ReorderPoint, req.ReorderQuantity, req.LeadTimeDays); err != nil {
			return err
		}
		if req.AllowBackorder != nil {
			v.AllowBackorder = *req.AllowBackorder
		}
		v.IncrementVersion()
		variant = v
		return repos.VariantRepo().SaveWithLock(ctx, v)
	})
	if err != nil {
		return nil, err
	}
	return variant, nil
}

// SetReplenishmentPolicy updates a product's buffer, default lead time and MOQ
func (s *ProductService) SetReplenishmentPolicy(ctx context.Context, req SetReplenishmentPolicyRequest) (*inventory.Product, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var product *inventory.Product
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.ProductRepo().FindByID(ctx, req.ProductID)
		if err != nil {
			return err
		}
		if err := p.SetReplenishmentPolicy(req.BufferDays, req.DefaultLeadTimeDays, req.MinimumOrderQuantity); err != nil {
			return err
		}
		p.IncrementVersion()
		product = p
		return repos.ProductRepo().SaveWithLock(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// ChangeCostMethod switches a product's costing method. The change is
// refused with ErrCostMethodLocked once any batch of any variant of the
// product has been consumed.
func (s *ProductService) ChangeCostMethod(ctx context.Context, req ChangeCostMethodRequest) (*inventory.Product, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	method := strategy.CostMethod(req.CostMethod)

	var product *inventory.Product
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.ProductRepo().FindByID(ctx, req.ProductID)
		if err != nil {
			return err
		}
		consumed, err := repos.VariantRepo().AnyConsumptionForProduct(ctx, p.ID)
		if err != nil {
			return err
		}
		version := p.Version
		if err := p.ChangeCostMethod(method, consumed); err != nil {
			return err
		}
		product = p
		if p.Version == version {
			return nil
		}
		return repos.ProductRepo().SaveWithLock(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	if events := product.GetDomainEvents(); len(events) > 0 && s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, events...); err != nil {
			s.logger.Error("Failed to publish product events", zap.Error(err))
		}
	}
	product.ClearDomainEvents()
	return product, nil
}
