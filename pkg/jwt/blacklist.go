package jwt

import (
	"context"
	"sync"
	"time"
)

// MemoryBlacklist mutex-guarded revocation set for a single instance.
// State is lost on restart and not shared between replicas.
type MemoryBlacklist struct {
	mu      sync.Mutex
	entries map[string]time.Time // key -> expiry
	now     func() time.Time
}

// NewMemoryBlacklist creates an empty set. A nil clock means time.Now.
func NewMemoryBlacklist(now func() time.Time) *MemoryBlacklist {
	if now == nil {
		now = time.Now
	}
	return &MemoryBlacklist{entries: make(map[string]time.Time), now: now}
}

// BlacklistToken records key until now+ttl and prunes entries that have expired.
func (b *MemoryBlacklist) BlacklistToken(_ context.Context, key string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	now := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()
	for k, exp := range b.entries {
		if !now.Before(exp) {
			delete(b.entries, k)
		}
	}
	b.entries[key] = now.Add(ttl)
	return nil
}

// IsBlacklisted reports whether key is still revoked.
func (b *MemoryBlacklist) IsBlacklisted(_ context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	exp, ok := b.entries[key]
	return ok && b.now().Before(exp), nil
}

// Len number of entries held, expired or not.
func (b *MemoryBlacklist) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
