// Package ratelimit provides a fixed-window failed-attempt counter used to
// throttle credential endpoints. It is a best-effort safeguard: the memory
// store is per-process, the redis store is shared, and a boundary race that
// lets one extra attempt through is acceptable.
package ratelimit

import (
	"context"
	"log"
	"time"
)

// Store is a keyed counter with window-elapse reset. Implementations must be
// safe for concurrent use.
type Store interface {
	// Incr records one attempt against key, starting a fresh window if the
	// current one has elapsed, and returns the count inside the window.
	Incr(ctx context.Context, key string) (int, error)
	// Count returns the current count and the time left in the window.
	Count(ctx context.Context, key string) (int, time.Duration, error)
}

type Limiter struct {
	store Store
	limit int
}

// NewLimiter blocks a key once its bucket reaches limit attempts within the
// store's window.
func NewLimiter(store Store, limit int) *Limiter {
	return &Limiter{store: store, limit: limit}
}

// Allow reports whether the key may attempt again. It never counts the
// attempt itself; callers record failures separately so successful requests
// do not consume the bucket. Store errors fail open.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, time.Duration) {
	count, remaining, err := l.store.Count(ctx, key)
	if err != nil {
		log.Printf("WARN [ratelimit] store unavailable, allowing key=%s: %v", key, err)
		return true, 0
	}
	if count >= l.limit {
		return false, remaining
	}
	return true, 0
}

// Record counts a failed attempt. Crossing the threshold is logged as a
// security event; the bucket is never cleared by a later success.
func (l *Limiter) Record(ctx context.Context, key string) {
	count, err := l.store.Incr(ctx, key)
	if err != nil {
		log.Printf("WARN [ratelimit] failed to record attempt for key=%s: %v", key, err)
		return
	}
	if count == l.limit {
		log.Printf("WARN [ratelimit] lockout threshold reached key=%s attempts=%d", key, count)
	}
}
