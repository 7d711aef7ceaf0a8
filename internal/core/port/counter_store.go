package port

import (
	"context"
	"time"
)

// CounterStore is a shared fixed-window counter. Increment must be atomic
// across concurrent callers: the returned count is the admission decision,
// so two callers may never observe the same value.
type CounterStore interface {
	// Increment bumps the counter for key, creating it with the window TTL
	// when absent, and returns the post-increment count.
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
	// Count returns the current value without modifying it. Missing keys
	// count as zero.
	Count(ctx context.Context, key string) (int64, error)
	// AvailableIn returns the remaining life of the current window. Missing
	// keys return zero.
	AvailableIn(ctx context.Context, key string) (time.Duration, error)
}
