package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryAlertDeduplicator_MarkProcessed(t *testing.T) {
	d := NewInMemoryAlertDeduplicator()
	defer d.Close()
	ctx := context.Background()

	t.Run("first mark wins", func(t *testing.T) {
		isNew, err := d.MarkProcessed(ctx, "v1:critical", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)

		isNew, err = d.MarkProcessed(ctx, "v1:critical", time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew)
	})

	t.Run("expired key can be marked again", func(t *testing.T) {
		now := time.Now()
		d.now = func() time.Time { return now }

		isNew, err := d.MarkProcessed(ctx, "v2:low_stock", time.Minute)
		require.NoError(t, err)
		assert.True(t, isNew)

		now = now.Add(2 * time.Minute)
		processed, err := d.IsProcessed(ctx, "v2:low_stock")
		require.NoError(t, err)
		assert.False(t, processed)

		isNew, err = d.MarkProcessed(ctx, "v2:low_stock", time.Minute)
		require.NoError(t, err)
		assert.True(t, isNew)
	})
}

func TestInMemoryAlertDeduplicator_EvictExpired(t *testing.T) {
	d := NewInMemoryAlertDeduplicator()
	defer d.Close()
	ctx := context.Background()

	now := time.Now()
	d.now = func() time.Time { return now }

	_, _ = d.MarkProcessed(ctx, "short", time.Second)
	_, _ = d.MarkProcessed(ctx, "long", time.Hour)
	assert.Equal(t, 2, d.Size())

	now = now.Add(time.Minute)
	d.evictExpired()
	assert.Equal(t, 1, d.Size())

	processed, err := d.IsProcessed(ctx, "long")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestInMemoryAlertDeduplicator_ConcurrentMark(t *testing.T) {
	d := NewInMemoryAlertDeduplicator()
	defer d.Close()

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := d.MarkProcessed(context.Background(), "same", time.Hour); ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), winners.Load())
}

func TestInMemoryAlertDeduplicator_CloseTwice(t *testing.T) {
	d := NewInMemoryAlertDeduplicator()
	assert.NoError(t, d.Close())
	assert.NoError(t, d.Close())
}

func TestDeduplicatorFactory_DisabledRedisUsesMemory(t *testing.T) {
	store, err := NewDeduplicatorFactory(config.RedisConfig{Enabled: false}).Create()
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.(*InMemoryAlertDeduplicator)
	assert.True(t, ok)
}

func TestDeduplicatorFactory_UnreachableRedis(t *testing.T) {
	cfg := config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}

	store, err := NewDeduplicatorFactory(cfg).Create()
	require.NoError(t, err)
	_, ok := store.(*InMemoryAlertDeduplicator)
	assert.True(t, ok)
	_ = store.Close()

	_, err = NewDeduplicatorFactory(cfg, WithInMemoryFallback(false)).Create()
	assert.Error(t, err)
}
