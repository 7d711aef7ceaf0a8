package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type counterStoreMock struct {
	mu      sync.Mutex
	counts  map[string]int64
	windows map[string]time.Duration
	incErr  error
	getErr  error
}

func newCounterStoreMock() *counterStoreMock {
	return &counterStoreMock{
		counts:  make(map[string]int64),
		windows: make(map[string]time.Duration),
	}
}

func (m *counterStoreMock) Increment(_ context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.incErr != nil {
		return 0, m.incErr
	}

	m.counts[key]++
	if _, ok := m.windows[key]; !ok {
		m.windows[key] = window
	}
	return m.counts[key], nil
}

func (m *counterStoreMock) Count(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return 0, m.getErr
	}
	return m.counts[key], nil
}

func (m *counterStoreMock) AvailableIn(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return 0, m.getErr
	}
	return m.windows[key], nil
}

func TestRateLimiterAttemptBudget(t *testing.T) {
	store := newCounterStoreMock()
	limiter := NewRateLimiter(store, zaptest.NewLogger(t))

	ctx := context.Background()
	max := 5
	window := time.Minute

	for i := 0; i < max; i++ {
		decision := limiter.Attempt(ctx, "auth|user@example.com|1.2.3.4", max, window)
		if !decision.Allowed {
			t.Fatalf("attempt %d unexpectedly denied", i+1)
		}
		if decision.Remaining != max-i-1 {
			t.Fatalf("attempt %d: remaining = %d, want %d", i+1, decision.Remaining, max-i-1)
		}
	}

	decision := limiter.Attempt(ctx, "auth|user@example.com|1.2.3.4", max, window)
	if decision.Allowed {
		t.Fatal("expected sixth attempt to be denied")
	}
	if decision.Remaining != 0 {
		t.Fatalf("denied decision remaining = %d, want 0", decision.Remaining)
	}
	if decision.RetryAfter != window {
		t.Fatalf("retry after = %v, want %v", decision.RetryAfter, window)
	}
}

func TestRateLimiterConcurrentAdmitsExactlyMax(t *testing.T) {
	store := newCounterStoreMock()
	limiter := NewRateLimiter(store, zaptest.NewLogger(t))

	ctx := context.Background()
	max := 5
	attempts := 20

	var wg sync.WaitGroup
	results := make([]bool, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			decision := limiter.Attempt(ctx, "auth|race@example.com|1.2.3.4", max, time.Minute)
			results[idx] = decision.Allowed
		}(i)
	}
	wg.Wait()

	admitted := 0
	for _, ok := range results {
		if ok {
			admitted++
		}
	}
	if admitted != max {
		t.Fatalf("admitted %d of %d concurrent attempts, want exactly %d", admitted, attempts, max)
	}
}

func TestRateLimiterFailsClosed(t *testing.T) {
	store := newCounterStoreMock()
	store.incErr = errors.New("connection refused")

	failures := 0
	limiter := NewRateLimiter(store, zaptest.NewLogger(t)).WithFailureHook(func() { failures++ })

	window := 30 * time.Second
	decision := limiter.Attempt(context.Background(), "auth|key", 5, window)
	if decision.Allowed {
		t.Fatal("expected denial when counter store is unavailable")
	}
	if decision.RetryAfter != window {
		t.Fatalf("retry after = %v, want full window %v", decision.RetryAfter, window)
	}
	if failures != 1 {
		t.Fatalf("failure hook fired %d times, want 1", failures)
	}
}

func TestRateLimiterKeysShareBudgetCaseInsensitively(t *testing.T) {
	store := newCounterStoreMock()
	limiter := NewRateLimiter(store, zaptest.NewLogger(t))

	ctx := context.Background()
	limiter.Attempt(ctx, "auth|User@Example.COM|1.2.3.4", 2, time.Minute)
	limiter.Attempt(ctx, "auth|user@example.com|1.2.3.4", 2, time.Minute)

	decision := limiter.Attempt(ctx, "auth|USER@example.com|1.2.3.4", 2, time.Minute)
	if decision.Allowed {
		t.Fatal("expected shared budget across case variants to be exhausted")
	}
}

func TestRateLimiterAllowDoesNotConsume(t *testing.T) {
	store := newCounterStoreMock()
	limiter := NewRateLimiter(store, zaptest.NewLogger(t))

	ctx := context.Background()
	if _, err := limiter.Hit(ctx, "api|user-1", time.Minute); err != nil {
		t.Fatalf("Hit returned error: %v", err)
	}

	allowed, remaining, err := limiter.Allow(ctx, "api|user-1", 3)
	if err != nil {
		t.Fatalf("Allow returned error: %v", err)
	}
	if !allowed {
		t.Fatal("expected request to be allowed")
	}
	if remaining != 2 {
		t.Fatalf("remaining = %d, want 2", remaining)
	}

	// A second read must see the same count.
	if _, again, _ := limiter.Allow(ctx, "api|user-1", 3); again != 2 {
		t.Fatalf("Allow consumed budget: remaining = %d, want 2", again)
	}
}

func TestRateLimiterAvailableInSecondsRoundsUp(t *testing.T) {
	store := newCounterStoreMock()
	limiter := NewRateLimiter(store, zaptest.NewLogger(t))

	ctx := context.Background()
	if _, err := limiter.Hit(ctx, "auth|key", 90500*time.Millisecond); err != nil {
		t.Fatalf("Hit returned error: %v", err)
	}

	seconds, err := limiter.AvailableInSeconds(ctx, "auth|key")
	if err != nil {
		t.Fatalf("AvailableInSeconds returned error: %v", err)
	}
	if seconds != 91 {
		t.Fatalf("seconds = %d, want 91", seconds)
	}
}

func TestRateLimiterZeroBudgetDisablesLimiting(t *testing.T) {
	store := newCounterStoreMock()
	limiter := NewRateLimiter(store, zaptest.NewLogger(t))

	decision := limiter.Attempt(context.Background(), "auth|key", 0, time.Minute)
	if !decision.Allowed {
		t.Fatal("expected limiter with zero budget to admit")
	}
	if len(store.counts) != 0 {
		t.Fatal("expected no counter activity for disabled limiter")
	}
}
