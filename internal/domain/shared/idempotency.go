package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers keys that were already acted on for a while.
// The alert sweep uses it so the same alert is not delivered on every run.
type IdempotencyStore interface {
	// MarkProcessed records key for ttl.
	// It returns true when the key was new and false when it was already held.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether key is currently held
	IsProcessed(ctx context.Context, key string) (bool, error)

	Close() error
}

// IdempotencyConfig tunes deduplication
type IdempotencyConfig struct {
	// TTL is how long a key suppresses repeats
	TTL time.Duration
	// Enabled turns deduplication off when false; every key is then new
	Enabled bool
}

// DefaultIdempotencyConfig keeps keys for six hours
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     6 * time.Hour,
		Enabled: true,
	}
}
