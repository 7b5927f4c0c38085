package messaging

import (
	"context"
	"errors"
	"fmt"

	appinventory "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrNotifierUnavailable is returned while the breaker rejects deliveries
var ErrNotifierUnavailable = errors.New("alert notifier unavailable")

// BreakerNotifier guards a notifier with a circuit breaker. After
// MaxFailures consecutive failures deliveries fail fast until OpenTimeout
// has passed, then a single trial call is let through.
type BreakerNotifier struct {
	next    appinventory.StockAlertNotifier
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewBreakerNotifier wraps next with a breaker named name
func NewBreakerNotifier(name string, next appinventory.StockAlertNotifier, cfg config.BreakerConfig, logger *zap.Logger) *BreakerNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &BreakerNotifier{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// Notify delivers through the breaker
func (b *BreakerNotifier) Notify(ctx context.Context, alert inventory.Alert) error {
	_, err := b.breaker.Execute(func() (any, error) {
		return nil, b.next.Notify(ctx, alert)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s: %v", ErrNotifierUnavailable, b.breaker.Name(), err)
	}
	return err
}

// State returns the breaker state
func (b *BreakerNotifier) State() gobreaker.State {
	return b.breaker.State()
}

var _ appinventory.StockAlertNotifier = (*BreakerNotifier)(nil)
