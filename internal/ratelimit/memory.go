package ratelimit

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	count       int
	windowStart time.Time
}

// MemoryStore keeps buckets in a process-local map. Suitable for
// single-instance deployments; use RedisStore when running more than one
// server.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	window  time.Duration
	stopC   chan struct{}
	now     func() time.Time
}

func NewMemoryStore(window time.Duration) *MemoryStore {
	s := &MemoryStore{
		buckets: make(map[string]*bucket),
		window:  window,
		stopC:   make(chan struct{}),
		now:     time.Now,
	}
	go s.cleanup()
	return s
}

func (s *MemoryStore) Incr(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	b, ok := s.buckets[key]
	if !ok || now.Sub(b.windowStart) >= s.window {
		b = &bucket{windowStart: now}
		s.buckets[key] = b
	}
	b.count++
	return b.count, nil
}

func (s *MemoryStore) Count(_ context.Context, key string) (int, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	b, ok := s.buckets[key]
	if !ok || now.Sub(b.windowStart) >= s.window {
		return 0, 0, nil
	}
	return b.count, s.window - now.Sub(b.windowStart), nil
}

// cleanup drops elapsed buckets so abandoned keys do not accumulate.
func (s *MemoryStore) cleanup() {
	ticker := time.NewTicker(s.window * 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			now := s.now()
			for key, b := range s.buckets {
				if now.Sub(b.windowStart) >= s.window {
					delete(s.buckets, key)
				}
			}
			s.mu.Unlock()
		case <-s.stopC:
			return
		}
	}
}

// Stop terminates the cleanup goroutine.
func (s *MemoryStore) Stop() {
	close(s.stopC)
}
