package inventory

import (
	"context"
	"sync"
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func num(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{
		events: make([]shared.DomainEvent, 0),
	}
}

func (m *MockEventPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *MockEventPublisher) GetEventsByType(eventType string) []shared.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]shared.DomainEvent, 0)
	for _, e := range m.events {
		if e.EventType() == eventType {
			result = append(result, e)
		}
	}
	return result
}

// countingRecorder is a LedgerRecorder that keeps totals
type countingRecorder struct {
	mu         sync.Mutex
	movements  map[string]int
	shortfall  decimal.Decimal
	retries    int
	violations int
	alerts     map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		movements: make(map[string]int),
		shortfall: decimal.Zero,
		alerts:    make(map[string]int),
	}
}

func (r *countingRecorder) RecordMovement(_ context.Context, kind string, _ decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movements[kind]++
}

func (r *countingRecorder) RecordShortfall(_ context.Context, units decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shortfall = r.shortfall.Add(units)
}

func (r *countingRecorder) RecordConflictRetry(context.Context, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retries++
}

func (r *countingRecorder) RecordChainViolations(_ context.Context, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.violations += count
}

func (r *countingRecorder) RecordAlert(_ context.Context, _ string, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts[outcome]++
}

// MockStockAlertNotifier is a testify mock of StockAlertNotifier
type MockStockAlertNotifier struct {
	mock.Mock
}

func (m *MockStockAlertNotifier) Notify(ctx context.Context, alert inventory.Alert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

// MockIdempotencyStore is a testify mock of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

// memIdempotencyStore is a map-backed store without expiry
type memIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMemIdempotencyStore() *memIdempotencyStore {
	return &memIdempotencyStore{keys: make(map[string]bool)}
}

func (s *memIdempotencyStore) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *memIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key], nil
}

func (s *memIdempotencyStore) Close() error { return nil }
