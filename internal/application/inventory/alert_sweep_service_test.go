package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// stubAnalyzer serves fixed alerts per product
type stubAnalyzer struct {
	alerts map[uuid.UUID][]inventory.Alert
	failOn uuid.UUID
}

func (a *stubAnalyzer) ProductIDs(context.Context) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(a.alerts))
	for id := range a.alerts {
		ids = append(ids, id)
	}
	return ids, nil
}

func (a *stubAnalyzer) ProductRiskAlerts(_ context.Context, productID uuid.UUID, _ int) ([]inventory.Alert, error) {
	if productID == a.failOn {
		return nil, errors.New("demand source unavailable")
	}
	return a.alerts[productID], nil
}

// recordingNotifier keeps delivered alerts and fails SKUs listed in failSKUs
type recordingNotifier struct {
	mu        sync.Mutex
	delivered []inventory.Alert
	failSKUs  map[string]bool
}

func (n *recordingNotifier) Notify(_ context.Context, alert inventory.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failSKUs[alert.SKU] {
		return errors.New("broker unavailable")
	}
	n.delivered = append(n.delivered, alert)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.delivered)
}

func sweepAlerts() *stubAnalyzer {
	p1, p2 := uuid.New(), uuid.New()
	alert := func(p uuid.UUID, sku string, sev inventory.AlertSeverity) inventory.Alert {
		return inventory.Alert{VariantID: uuid.New(), ProductID: p, SKU: sku, Severity: sev}
	}
	return &stubAnalyzer{alerts: map[uuid.UUID][]inventory.Alert{
		p1: {alert(p1, "A-1", inventory.SeverityOutOfStock), alert(p1, "A-2", inventory.SeverityLowStock)},
		p2: {alert(p2, "B-1", inventory.SeverityCritical)},
	}}
}

func TestAlertSweepService_Sweep(t *testing.T) {
	t.Run("second sweep is suppressed", func(t *testing.T) {
		notifier := &recordingNotifier{}
		metrics := newCountingRecorder()
		svc := NewAlertSweepService(sweepAlerts(), notifier, newMemIdempotencyStore(), DefaultSweepOptions(), zaptest.NewLogger(t))
		svc.SetMetrics(metrics)

		first, err := svc.Sweep(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, first.Products)
		assert.Equal(t, 3, first.Alerts)
		assert.Equal(t, 3, first.Delivered)
		assert.Zero(t, first.Suppressed)
		assert.False(t, first.FinishedAt.Before(first.StartedAt))

		second, err := svc.Sweep(context.Background())
		require.NoError(t, err)
		assert.Zero(t, second.Delivered)
		assert.Equal(t, 3, second.Suppressed)

		assert.Equal(t, 3, notifier.count())
		assert.Equal(t, 3, metrics.alerts[AlertOutcomeDelivered])
		assert.Equal(t, 3, metrics.alerts[AlertOutcomeSuppressed])
	})

	t.Run("failed delivery is retried next sweep", func(t *testing.T) {
		notifier := &recordingNotifier{failSKUs: map[string]bool{"B-1": true}}
		svc := NewAlertSweepService(sweepAlerts(), notifier, newMemIdempotencyStore(), DefaultSweepOptions(), zaptest.NewLogger(t))

		first, err := svc.Sweep(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, first.Delivered)
		assert.Equal(t, 1, first.Failed)

		notifier.mu.Lock()
		notifier.failSKUs = nil
		notifier.mu.Unlock()

		second, err := svc.Sweep(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, second.Delivered)
		assert.Equal(t, 2, second.Suppressed)
		assert.Zero(t, second.Failed)
	})

	t.Run("dedup disabled delivers every time", func(t *testing.T) {
		notifier := &recordingNotifier{}
		opts := DefaultSweepOptions()
		opts.Dedup.Enabled = false
		svc := NewAlertSweepService(sweepAlerts(), notifier, newMemIdempotencyStore(), opts, zaptest.NewLogger(t))

		for range 2 {
			res, err := svc.Sweep(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 3, res.Delivered)
		}
		assert.Equal(t, 6, notifier.count())
	})

	t.Run("no dedup store", func(t *testing.T) {
		notifier := &recordingNotifier{}
		svc := NewAlertSweepService(sweepAlerts(), notifier, nil, SweepOptions{WindowDays: 14}, zaptest.NewLogger(t))

		res, err := svc.Sweep(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, res.Delivered)
	})

	t.Run("classification error aborts", func(t *testing.T) {
		analyzer := sweepAlerts()
		for id := range analyzer.alerts {
			analyzer.failOn = id
			break
		}
		svc := NewAlertSweepService(analyzer, &recordingNotifier{}, newMemIdempotencyStore(), DefaultSweepOptions(), zaptest.NewLogger(t))

		res, err := svc.Sweep(context.Background())
		assert.Error(t, err)
		assert.Nil(t, res)
		assert.Contains(t, err.Error(), "demand source unavailable")
	})
}

func TestAlertSweepService_DedupStoreErrors(t *testing.T) {
	p := uuid.New()
	alert := inventory.Alert{VariantID: uuid.New(), ProductID: p, SKU: "A-1", Severity: inventory.SeverityCritical}
	analyzer := &stubAnalyzer{alerts: map[uuid.UUID][]inventory.Alert{p: {alert}}}

	store := new(MockIdempotencyStore)
	store.On("IsProcessed", mock.Anything, AlertKey(alert)).Return(false, errors.New("redis down"))
	store.On("MarkProcessed", mock.Anything, AlertKey(alert), shared.DefaultIdempotencyConfig().TTL).Return(true, nil)

	notifier := new(MockStockAlertNotifier)
	notifier.On("Notify", mock.Anything, alert).Return(nil)

	svc := NewAlertSweepService(analyzer, notifier, store, DefaultSweepOptions(), zaptest.NewLogger(t))
	res, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Delivered)

	store.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestAlertSweepService_WithAnalysisService(t *testing.T) {
	f, _ := riskFixture(t)
	analysis := newAnalysisService(t, f)
	notifier := &recordingNotifier{}
	svc := NewAlertSweepService(analysis, notifier, newMemIdempotencyStore(), DefaultSweepOptions(), zaptest.NewLogger(t))

	res, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Products)
	assert.Equal(t, 3, res.Delivered)

	skus := make([]string, 0, 3)
	for _, a := range notifier.delivered {
		skus = append(skus, a.SKU)
	}
	assert.ElementsMatch(t, []string{"W-RED", "W-GRN", "W-BLUE"}, skus)
}
