package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Store applies a sliding window to one key. Implementations must be safe for
// concurrent use; *redis.Client satisfies it for multi-instance deployments.
type Store interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Decision outcome of Allow.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter keys windows by (endpoint, client identity).
type Limiter struct {
	store Store
}

// New wraps store.
func New(store Store) *Limiter {
	return &Limiter{store: store}
}

// Key window key for endpoint and client. Endpoints never share windows.
func Key(endpoint, client string) string {
	return fmt.Sprintf("%s:%s", endpoint, client)
}

// Allow records a request for (endpoint, client) unless maxRequests were
// already seen within window. A rejection reports RetryAfter = window.
func (l *Limiter) Allow(ctx context.Context, endpoint, client string, maxRequests int, window time.Duration) (Decision, error) {
	ok, err := l.store.CheckRateLimit(ctx, Key(endpoint, client), maxRequests, window)
	if err != nil {
		return Decision{}, err
	}
	if !ok {
		return Decision{Allowed: false, RetryAfter: window}, nil
	}
	return Decision{Allowed: true}, nil
}

// MemoryStore mutex-guarded window map for a single instance.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	now     func() time.Time
}

// NewMemoryStore creates an empty store. A nil clock means time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{windows: make(map[string][]time.Time), now: now}
}

// CheckRateLimit purges timestamps older than window, then accepts and
// records now only while fewer than limit remain.
func (s *MemoryStore) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := purge(s.windows[key], now, window)
	if len(kept) >= limit {
		s.windows[key] = kept
		return false, nil
	}
	s.windows[key] = append(kept, now)
	return true, nil
}

// Sweep drops windows with no live entries. Safe to call from a ticker.
func (s *MemoryStore) Sweep(window time.Duration) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, ts := range s.windows {
		if kept := purge(ts, now, window); len(kept) == 0 {
			delete(s.windows, k)
		} else {
			s.windows[k] = kept
		}
	}
}

// Len number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// purge keeps entries with now-t < window; ts is in insertion order.
func purge(ts []time.Time, now time.Time, window time.Duration) []time.Time {
	i := 0
	for i < len(ts) && now.Sub(ts[i]) >= window {
		i++
	}
	if i == 0 {
		return ts
	}
	return append(ts[:0:0], ts[i:]...)
}
