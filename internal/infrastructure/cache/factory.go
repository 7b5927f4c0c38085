package cache

import (
	"fmt"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/config"
	"go.uber.org/zap"
)

// DeduplicatorFactory picks the alert deduplication backend from configuration
type DeduplicatorFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// DeduplicatorFactoryOption configures the factory
type DeduplicatorFactoryOption func(*DeduplicatorFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) DeduplicatorFactoryOption {
	return func(f *DeduplicatorFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to memory
func WithInMemoryFallback(allow bool) DeduplicatorFactoryOption {
	return func(f *DeduplicatorFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewDeduplicatorFactory creates a factory that falls back to memory by default
func NewDeduplicatorFactory(cfg config.RedisConfig, opts ...DeduplicatorFactoryOption) *DeduplicatorFactory {
	f := &DeduplicatorFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns a Redis deduplicator, or an in-memory one when Redis is
// disabled or unreachable and fallback is allowed.
func (f *DeduplicatorFactory) Create() (shared.IdempotencyStore, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("redis disabled, using in-memory alert deduplication")
		return NewInMemoryAlertDeduplicator(), nil
	}

	store, err := NewRedisAlertDeduplicator(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err == nil {
		f.logger.Info("using Redis alert deduplication")
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for alert deduplication but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory alert deduplication; "+
		"separate sweep instances may repeat alerts",
		zap.Error(err),
	)
	return NewInMemoryAlertDeduplicator(), nil
}
