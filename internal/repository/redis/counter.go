package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/md-arif-islam/rentplan-app-sub001/internal/core/port"
)

// CounterConfig defines configuration for the fixed-window counter store.
type CounterConfig struct {
	KeyPrefix string
}

// CounterRepository persists fixed-window counters in Redis. Increment is a
// single INCR, so the returned count is unique per caller even under
// concurrency.
type CounterRepository struct {
	client *redis.Client
	cfg    CounterConfig
}

// NewCounterRepository constructs a repository using the provided Redis
// client and config.
func NewCounterRepository(client *redis.Client, cfg CounterConfig) *CounterRepository {
	return &CounterRepository{client: client, cfg: cfg}
}

// Increment bumps the counter and returns the post-increment value. The
// window TTL is attached only when the key is created, so the window never
// slides on subsequent hits.
func (r *CounterRepository) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}

	fullKey := r.key(key)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.ExpireNX(ctx, fullKey, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis incr: %w", err)
	}

	return incr.Val(), nil
}

// Count returns the current counter value. A missing key counts as zero.
func (r *CounterRepository) Count(ctx context.Context, key string) (int64, error) {
	val, err := r.client.Get(ctx, r.key(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis get: %w", err)
	}

	return val, nil
}

// AvailableIn returns the remaining life of the current window. A missing
// key or a key without TTL reports zero.
func (r *CounterRepository) AvailableIn(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := r.client.TTL(ctx, r.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis ttl: %w", err)
	}

	if ttl < 0 {
		return 0, nil
	}

	return ttl, nil
}

func (r *CounterRepository) key(identifier string) string {
	if r.cfg.KeyPrefix == "" {
		return identifier
	}
	return fmt.Sprintf("%s:%s", r.cfg.KeyPrefix, identifier)
}

var _ port.CounterStore = (*CounterRepository)(nil)
