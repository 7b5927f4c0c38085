package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

const defaultAlertKeyPrefix = "stockledger:alert:"

// RedisAlertDeduplicator shares alert suppression state between sweep
// instances through Redis keys with a TTL.
type RedisAlertDeduplicator struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisAlertDeduplicator connects to Redis and pings it
func NewRedisAlertDeduplicator(cfg RedisConfig) (*RedisAlertDeduplicator, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisAlertDeduplicatorWithClient(client, ""), nil
}

// NewRedisAlertDeduplicatorWithClient wraps an existing client
func NewRedisAlertDeduplicatorWithClient(client *redis.Client, keyPrefix string) *RedisAlertDeduplicator {
	if keyPrefix == "" {
		keyPrefix = defaultAlertKeyPrefix
	}
	return &RedisAlertDeduplicator{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// MarkProcessed sets the key with SETNX so concurrent sweeps agree on one winner
func (d *RedisAlertDeduplicator) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.keyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark alert %s: %w", key, err)
	}
	return ok, nil
}

// IsProcessed reports whether the key is still held
func (d *RedisAlertDeduplicator) IsProcessed(ctx context.Context, key string) (bool, error) {
	n, err := d.client.Exists(ctx, d.keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check alert %s: %w", key, err)
	}
	return n > 0, nil
}

// Close closes the Redis client
func (d *RedisAlertDeduplicator) Close() error {
	return d.client.Close()
}

var _ shared.IdempotencyStore = (*RedisAlertDeduplicator)(nil)
