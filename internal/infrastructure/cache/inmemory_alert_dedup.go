package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
)

// InMemoryAlertDeduplicator keeps suppression keys in process memory.
// Suitable for a single sweep instance and for tests.
type InMemoryAlertDeduplicator struct {
	mu        sync.RWMutex
	expiry    map[string]time.Time
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryAlertDeduplicator starts a janitor that evicts expired keys
func NewInMemoryAlertDeduplicator() *InMemoryAlertDeduplicator {
	d := &InMemoryAlertDeduplicator{
		expiry:   make(map[string]time.Time),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	d.wg.Add(1)
	go d.janitor(5 * time.Minute)
	return d
}

// MarkProcessed stores key until now+ttl unless it is already held
func (d *InMemoryAlertDeduplicator) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if until, ok := d.expiry[key]; ok && now.Before(until) {
		return false, nil
	}
	d.expiry[key] = now.Add(ttl)
	return true, nil
}

// IsProcessed reports whether key is held and unexpired
func (d *InMemoryAlertDeduplicator) IsProcessed(_ context.Context, key string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	until, ok := d.expiry[key]
	return ok && d.now().Before(until), nil
}

// Close stops the janitor. Safe to call more than once.
func (d *InMemoryAlertDeduplicator) Close() error {
	d.closeOnce.Do(func() {
		close(d.stopChan)
		d.wg.Wait()
	})
	return nil
}

// Size returns the number of stored keys, expired ones included until evicted
func (d *InMemoryAlertDeduplicator) Size() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.expiry)
}

func (d *InMemoryAlertDeduplicator) janitor(every time.Duration) {
	defer d.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopChan:
			return
		case <-ticker.C:
			d.evictExpired()
		}
	}
}

func (d *InMemoryAlertDeduplicator) evictExpired() {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for key, until := range d.expiry {
		if !now.Before(until) {
			delete(d.expiry, key)
		}
	}
}

var _ shared.IdempotencyStore = (*InMemoryAlertDeduplicator)(nil)
