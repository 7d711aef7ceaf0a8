package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/md-arif-islam/rentplan-app-sub001/internal/core/port"
)

// Decision is the outcome of a single rate-limit attempt.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter enforces fixed-window budgets on top of a shared counter
// store. The store's increment result is the admission decision, so two
// concurrent callers racing for the last slot cannot both be admitted.
//
// Store failures deny the request (fail closed): when the shared counter is
// unreachable the limiter cannot prove the budget has headroom.
type RateLimiter struct {
	store  port.CounterStore
	logger *zap.Logger
	onFail func()
}

// NewRateLimiter constructs a RateLimiter.
func NewRateLimiter(store port.CounterStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{store: store, logger: logger, onFail: func() {}}
}

// WithFailureHook registers a callback invoked on every counter store
// failure, typically a metrics counter.
func (l *RateLimiter) WithFailureHook(hook func()) *RateLimiter {
	if hook != nil {
		l.onFail = hook
	}
	return l
}

// Attempt records a hit against the key and decides admission in one atomic
// step. The caller passes the un-hashed key; storage keys are SHA-256 hashed
// so raw emails and IPs never reach the store.
func (l *RateLimiter) Attempt(ctx context.Context, key string, max int, window time.Duration) Decision {
	if max <= 0 || window <= 0 {
		return Decision{Allowed: true, Limit: max, Remaining: max}
	}

	storageKey := HashLimiterKey(key)

	count, err := l.store.Increment(ctx, storageKey, window)
	if err != nil {
		l.logger.Error("rate limit counter unavailable, denying request",
			zap.String("key", storageKey),
			zap.Error(err),
		)
		l.onFail()
		return Decision{Allowed: false, Limit: max, Remaining: 0, RetryAfter: window}
	}

	if count > int64(max) {
		retryAfter, availErr := l.store.AvailableIn(ctx, storageKey)
		if availErr != nil || retryAfter <= 0 {
			retryAfter = window
		}
		return Decision{Allowed: false, Limit: max, Remaining: 0, RetryAfter: retryAfter}
	}

	remaining := max - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Decision{Allowed: true, Limit: max, Remaining: remaining}
}

// Allow reports whether the key currently has budget left without recording
// a hit.
func (l *RateLimiter) Allow(ctx context.Context, key string, max int) (bool, int, error) {
	if max <= 0 {
		return true, max, nil
	}

	count, err := l.store.Count(ctx, HashLimiterKey(key))
	if err != nil {
		l.onFail()
		return false, 0, fmt.Errorf("count attempts: %w", err)
	}

	remaining := max - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return count < int64(max), remaining, nil
}

// Hit records an attempt and returns the running count for the window.
func (l *RateLimiter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := l.store.Increment(ctx, HashLimiterKey(key), window)
	if err != nil {
		l.onFail()
		return 0, fmt.Errorf("increment attempts: %w", err)
	}
	return count, nil
}

// AvailableInSeconds returns the whole seconds until the window for the key
// reopens, rounded up so callers never retry early.
func (l *RateLimiter) AvailableInSeconds(ctx context.Context, key string) (int, error) {
	remaining, err := l.store.AvailableIn(ctx, HashLimiterKey(key))
	if err != nil {
		l.onFail()
		return 0, fmt.Errorf("window ttl: %w", err)
	}
	if remaining <= 0 {
		return 0, nil
	}
	return int(math.Ceil(remaining.Seconds())), nil
}

// HashLimiterKey normalizes and hashes a limiter key for storage. Keys are
// lower-cased first so "User@Example.com" and "user@example.com" share a
// budget.
func HashLimiterKey(key string) string {
	normalized := strings.ToLower(strings.TrimSpace(key))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
