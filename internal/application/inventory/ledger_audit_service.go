package inventory

import (
	"context"
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// VariantAudit is the audit outcome for one variant
type VariantAudit struct {
	VariantID     uuid.UUID              `json:"variant_id"`
	SKU           string                 `json:"sku"`
	Movements     int                    `json:"movements"`
	LedgerStock   decimal.Decimal        `json:"ledger_stock"`
	BatchStock    decimal.Decimal        `json:"batch_stock"`
	StockMismatch bool                   `json:"stock_mismatch"`
	Breaks        []inventory.ChainBreak `json:"breaks,omitempty"`
}

// Healthy reports whether the chain is intact and agrees with the batches
func (a VariantAudit) Healthy() bool {
	return len(a.Breaks) == 0 && !a.StockMismatch
}

// AuditReport summarizes an audit over every variant with movements
type AuditReport struct {
	Variants  []VariantAudit `json:"variants"`
	Healthy   int            `json:"healthy"`
	Unhealthy int            `json:"unhealthy"`
	CheckedAt time.Time      `json:"checked_at"`
}

// LedgerAuditService verifies movement chains against batch quantities.
// It only reads; a broken chain is reported, never repaired.
type LedgerAuditService struct {
	variantRepo  inventory.VariantRepository
	movementRepo inventory.MovementRepository
	metrics      LedgerRecorder
	logger       *zap.Logger
}

// NewLedgerAuditService creates a new LedgerAuditService
func NewLedgerAuditService(
	variantRepo inventory.VariantRepository,
	movementRepo inventory.MovementRepository,
	logger *zap.Logger,
) *LedgerAuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerAuditService{
		variantRepo:  variantRepo,
		movementRepo: movementRepo,
		metrics:      noopRecorder{},
		logger:       logger,
	}
}

// SetMetrics sets the ledger metrics recorder
func (s *LedgerAuditService) SetMetrics(recorder LedgerRecorder) {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	s.metrics = recorder
}

// Audit checks every variant that has movements
func (s *LedgerAuditService) Audit(ctx context.Context) (*AuditReport, error) {
	ids, err := s.movementRepo.ListVariantIDs(ctx)
	if err != nil {
		return nil, err
	}

	report := &AuditReport{CheckedAt: time.Now()}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		audit, err := s.AuditVariant(ctx, id)
		if err != nil {
			return nil, err
		}
		report.Variants = append(report.Variants, *audit)
		if audit.Healthy() {
			report.Healthy++
		} else {
			report.Unhealthy++
		}
	}

	s.logger.Info("Ledger audit finished",
		zap.Int("variants", len(ids)),
		zap.Int("unhealthy", report.Unhealthy),
	)
	return report, nil
}

// AuditVariant verifies one variant's chain and compares its final balance
// with the sum of its batches
func (s *LedgerAuditService) AuditVariant(ctx context.Context, variantID uuid.UUID) (*VariantAudit, error) {
	v, err := s.variantRepo.FindByID(ctx, variantID)
	if err != nil {
		return nil, err
	}
	movements, err := s.movementRepo.FindAllByVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}

	audit := &VariantAudit{
		VariantID:   v.ID,
		SKU:         v.SKU,
		Movements:   len(movements),
		LedgerStock: decimal.Zero,
		BatchStock:  v.StockOnHand(),
		Breaks:      inventory.VerifyChain(movements),
	}
	if n := len(movements); n > 0 {
		audit.LedgerStock = movements[n-1].NewStock
	}
	audit.StockMismatch = !audit.LedgerStock.Equal(audit.BatchStock)

	if !audit.Healthy() {
		s.metrics.RecordChainViolations(ctx, len(audit.Breaks))
		fields := []zap.Field{
			zap.String("variant_id", v.ID.String()),
			zap.String("sku", v.SKU),
			zap.String("ledger_stock", audit.LedgerStock.String()),
			zap.String("batch_stock", audit.BatchStock.String()),
			zap.Int("breaks", len(audit.Breaks)),
		}
		if len(audit.Breaks) > 0 {
			fields = append(fields, zap.String("first_break", audit.Breaks[0].String()))
		}
		s.logger.Warn("Ledger integrity violation", fields...)
	}
	return audit, nil
}
