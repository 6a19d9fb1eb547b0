package memory

import (
	"context"
	"sync"
	"time"
)

const pendingMarker = "processing"

// IdempotencyStore implements usecase.IdempotencyStore for a single process.
type IdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]idempotencyEntry
	now     func() time.Time
}

type idempotencyEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewIdempotencyStore creates an empty IdempotencyStore.
func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{
		entries: make(map[string]idempotencyEntry),
		now:     time.Now,
	}
}

// CheckAndSet claims key unless a live entry exists, in which case the
// stored value is returned.
func (s *IdempotencyStore) CheckAndSet(_ context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expiresAt) {
		return true, e.value, nil
	}

	value := []byte(pendingMarker)
	if response != nil {
		value = response
	}
	s.entries[key] = idempotencyEntry{value: value, expiresAt: now.Add(ttl)}
	s.evictExpired(now)

	return false, nil, nil
}

// Update stores the final response for key.
func (s *IdempotencyStore) Update(_ context.Context, key string, response []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = idempotencyEntry{value: response, expiresAt: s.now().Add(ttl)}
	return nil
}

// Release forgets key.
func (s *IdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

func (s *IdempotencyStore) evictExpired(now time.Time) {
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
		}
	}
}
