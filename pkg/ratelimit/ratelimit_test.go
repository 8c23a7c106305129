package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestAllow_RejectsAfterMaxWithinWindow(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := New(NewMemoryStore(clock.Now))
	ctx := context.Background()
	const max, window = 3, 10 * time.Second

	for i := 0; i < max; i++ {
		d, err := l.Allow(ctx, "login", "10.0.0.1", max, window)
		if err != nil || !d.Allowed {
			t.Fatalf("request %d should pass: %+v %v", i+1, d, err)
		}
		clock.Advance(time.Second)
	}

	d, _ := l.Allow(ctx, "login", "10.0.0.1", max, window)
	if d.Allowed {
		t.Fatal("request N+1 within the window must be rejected")
	}
	if d.RetryAfter != window {
		t.Errorf("expected retry-after %v, got %v", window, d.RetryAfter)
	}
}

func TestAllow_AcceptsAfterWindowElapses(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := New(NewMemoryStore(clock.Now))
	ctx := context.Background()
	const max, window = 2, 10 * time.Second

	l.Allow(ctx, "send-otp", "c1", max, window)
	l.Allow(ctx, "send-otp", "c1", max, window)
	if d, _ := l.Allow(ctx, "send-otp", "c1", max, window); d.Allowed {
		t.Fatal("third request should be rejected")
	}

	clock.Advance(window)

	for i := 0; i < max; i++ {
		if d, _ := l.Allow(ctx, "send-otp", "c1", max, window); !d.Allowed {
			t.Fatalf("request %d after the window should pass", i+1)
		}
	}
	if d, _ := l.Allow(ctx, "send-otp", "c1", max, window); d.Allowed {
		t.Error("count should have restarted from the first post-window request")
	}
}

func TestAllow_RejectionIsNotRecorded(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := New(NewMemoryStore(clock.Now))
	ctx := context.Background()

	l.Allow(ctx, "login", "c1", 1, 10*time.Second)
	clock.Advance(5 * time.Second)
	l.Allow(ctx, "login", "c1", 1, 10*time.Second) // rejected
	clock.Advance(5 * time.Second)

	if d, _ := l.Allow(ctx, "login", "c1", 1, 10*time.Second); !d.Allowed {
		t.Error("a rejected request must not extend the window")
	}
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := New(NewMemoryStore(clock.Now))
	ctx := context.Background()

	l.Allow(ctx, "login", "c1", 1, time.Minute)
	if d, _ := l.Allow(ctx, "login", "c2", 1, time.Minute); !d.Allowed {
		t.Error("another client must have its own window")
	}
	if d, _ := l.Allow(ctx, "send-otp", "c1", 1, time.Minute); !d.Allowed {
		t.Error("another endpoint must have its own window")
	}
}

func TestAllow_Concurrent(t *testing.T) {
	l := New(NewMemoryStore(nil))
	ctx := context.Background()
	const max = 50

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, _ := l.Allow(ctx, "login", "c1", max, time.Hour)
			if d.Allowed {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if accepted != max {
		t.Errorf("expected exactly %d accepted, got %d", max, accepted)
	}
}

type failingStore struct{}

func (failingStore) CheckRateLimit(context.Context, string, int, time.Duration) (bool, error) {
	return false, errors.New("connection refused")
}

func TestAllow_StoreError(t *testing.T) {
	if _, err := New(failingStore{}).Allow(context.Background(), "login", "c1", 1, time.Minute); err == nil {
		t.Error("store errors must surface")
	}
}

func TestMemoryStore_Sweep(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	s := NewMemoryStore(clock.Now)
	ctx := context.Background()
	s.CheckRateLimit(ctx, "a", 5, time.Minute)
	s.CheckRateLimit(ctx, "b", 5, time.Minute)

	clock.Advance(30 * time.Second)
	s.CheckRateLimit(ctx, "b", 5, time.Minute)
	clock.Advance(31 * time.Second)
	s.Sweep(time.Minute)

	if s.Len() != 1 {
		t.Errorf("expected only b kept, len=%d", s.Len())
	}
}
