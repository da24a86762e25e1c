// Package limiter holds the injected stores for login attempt counting
// and notification throttling. The in-memory implementations suit a
// single-instance deployment; the Redis ones are for deployments with
// more than one process.
package limiter

import (
	"context"
	"sync"
	"time"
)

// Store counts hits per key inside a fixed window. The count resets
// lazily when the window elapses.
type Store interface {
	// Hit records one attempt and returns the attempt count within the
	// current window plus the time remaining until it resets.
	Hit(ctx context.Context, key string) (count int, resetIn time.Duration, err error)
	// Reset clears the counter for a key.
	Reset(ctx context.Context, key string) error
}

// Throttle suppresses repeats of the same key within a window.
type Throttle interface {
	// Allow reports whether the key may fire now; a true result claims
	// the window.
	Allow(ctx context.Context, key string) (bool, error)
}

type memoryEntry struct {
	count   int
	resetAt time.Time
}

type memoryStore struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[string]*memoryEntry
	now     func() time.Time
}

func NewMemoryStore(window time.Duration) Store {
	return &memoryStore{
		window:  window,
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

func (s *memoryStore) Hit(_ context.Context, key string) (int, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[key]
	if !ok || now.After(e.resetAt) {
		e = &memoryEntry{resetAt: now.Add(s.window)}
		s.entries[key] = e
	}
	e.count++
	return e.count, e.resetAt.Sub(now), nil
}

func (s *memoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

type memoryThrottle struct {
	mu     sync.Mutex
	window time.Duration
	last   map[string]time.Time
	now    func() time.Time
}

func NewMemoryThrottle(window time.Duration) Throttle {
	return &memoryThrottle{
		window: window,
		last:   make(map[string]time.Time),
		now:    time.Now,
	}
}

func (t *memoryThrottle) Allow(_ context.Context, key string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if last, ok := t.last[key]; ok && now.Sub(last) < t.window {
		return false, nil
	}
	t.last[key] = now
	return true, nil
}
