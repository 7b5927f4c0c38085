package inventory

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RiskAnalyzer is the part of AnalysisService the sweep depends on
type RiskAnalyzer interface {
	ProductIDs(ctx context.Context) ([]uuid.UUID, error)
	ProductRiskAlerts(ctx context.Context, productID uuid.UUID, windowDays int) ([]inventory.Alert, error)
}

// SweepOptions tunes the alert sweep
type SweepOptions struct {
	WindowDays  int
	Concurrency int
	Dedup       shared.IdempotencyConfig
}

// DefaultSweepOptions classifies eight products at a time
func DefaultSweepOptions() SweepOptions {
	return SweepOptions{
		WindowDays:  30,
		Concurrency: 8,
		Dedup:       shared.DefaultIdempotencyConfig(),
	}
}

// SweepResult contains statistics about one sweep
type SweepResult struct {
	Products   int       `json:"products"`
	Alerts     int       `json:"alerts"`
	Delivered  int       `json:"delivered"`
	Suppressed int       `json:"suppressed"`
	Failed     int       `json:"failed"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// AlertSweepService classifies every product and delivers the alerts.
// An alert already delivered within the dedup TTL is suppressed.
type AlertSweepService struct {
	analyzer RiskAnalyzer
	notifier StockAlertNotifier
	dedup    shared.IdempotencyStore
	opts     SweepOptions
	metrics  LedgerRecorder
	logger   *zap.Logger
}

// NewAlertSweepService creates a new AlertSweepService. dedup may be nil.
func NewAlertSweepService(
	analyzer RiskAnalyzer,
	notifier StockAlertNotifier,
	dedup shared.IdempotencyStore,
	opts SweepOptions,
	logger *zap.Logger,
) *AlertSweepService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultSweepOptions().Concurrency
	}
	return &AlertSweepService{
		analyzer: analyzer,
		notifier: notifier,
		dedup:    dedup,
		opts:     opts,
		metrics:  noopRecorder{},
		logger:   logger,
	}
}

// SetMetrics sets the ledger metrics recorder
func (s *AlertSweepService) SetMetrics(recorder LedgerRecorder) {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	s.metrics = recorder
}

// Sweep classifies all products in parallel and delivers their alerts.
// A classification error aborts the sweep; a delivery error is counted and
// the alert is retried on the next sweep.
func (s *AlertSweepService) Sweep(ctx context.Context) (*SweepResult, error) {
	result := &SweepResult{StartedAt: time.Now()}

	ids, err := s.analyzer.ProductIDs(ctx)
	if err != nil {
		return nil, err
	}
	result.Products = len(ids)

	var alerts, delivered, suppressed, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for _, id := range ids {
		g.Go(func() error {
			list, err := s.analyzer.ProductRiskAlerts(gctx, id, s.opts.WindowDays)
			if err != nil {
				return fmt.Errorf("classify product %s: %w", id, err)
			}
			for _, alert := range list {
				alerts.Add(1)
				switch outcome := s.deliver(gctx, alert); outcome {
				case AlertOutcomeDelivered:
					delivered.Add(1)
				case AlertOutcomeSuppressed:
					suppressed.Add(1)
				default:
					failed.Add(1)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("Alert sweep aborted", zap.Error(err))
		return nil, err
	}

	result.Alerts = int(alerts.Load())
	result.Delivered = int(delivered.Load())
	result.Suppressed = int(suppressed.Load())
	result.Failed = int(failed.Load())
	result.FinishedAt = time.Now()

	s.logger.Info("Alert sweep finished",
		zap.Int("products", result.Products),
		zap.Int("alerts", result.Alerts),
		zap.Int("delivered", result.Delivered),
		zap.Int("suppressed", result.Suppressed),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", result.FinishedAt.Sub(result.StartedAt)),
	)
	return result, nil
}

func (s *AlertSweepService) deliver(ctx context.Context, alert inventory.Alert) string {
	key := AlertKey(alert)
	dedup := s.dedup != nil && s.opts.Dedup.Enabled

	outcome := AlertOutcomeDelivered
	defer func() { s.metrics.RecordAlert(ctx, string(alert.Severity), outcome) }()

	if dedup {
		held, err := s.dedup.IsProcessed(ctx, key)
		if err != nil {
			s.logger.Warn("Alert dedup lookup failed, delivering anyway",
				zap.String("key", key),
				zap.Error(err),
			)
		} else if held {
			outcome = AlertOutcomeSuppressed
			return outcome
		}
	}

	if err := s.notifier.Notify(ctx, alert); err != nil {
		s.logger.Error("Alert delivery failed",
			zap.String("sku", alert.SKU),
			zap.String("severity", string(alert.Severity)),
			zap.Error(err),
		)
		outcome = AlertOutcomeFailed
		return outcome
	}

	if dedup {
		if _, err := s.dedup.MarkProcessed(ctx, key, s.opts.Dedup.TTL); err != nil {
			s.logger.Warn("Alert dedup write failed",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}
	return outcome
}
