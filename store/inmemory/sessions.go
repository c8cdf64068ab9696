package inmemory

import (
	"context"
	"maps"
	"sync"
)

// Sessions holds nonce buckets for a single session.  It satisfies the
// bucket, adder and consumer interfaces of the nonce package.
type Sessions struct {
	mu      sync.Mutex
	buckets map[string]map[string]int64
}

// NewSessions creates an empty [Sessions].
func NewSessions() *Sessions {
	return &Sessions{buckets: make(map[string]map[string]int64)}
}

// Get returns a copy of the bucket stored under key.
func (s *Sessions) Get(_ context.Context, key string) (map[string]int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok {
		return nil, false, nil
	}
	return maps.Clone(b), true, nil
}

// Set replaces the bucket stored under key.
func (s *Sessions) Set(_ context.Context, key string, bucket map[string]int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buckets[key] = maps.Clone(bucket)
	return nil
}

// Add records token in bucket key and drops the entries that expired before
// now.
func (s *Sessions) Add(_ context.Context, key, token string, expires, now int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.buckets[key]
	if b == nil {
		b = make(map[string]int64)
		s.buckets[key] = b
	}
	maps.DeleteFunc(b, func(_ string, exp int64) bool { return exp < now })
	b[token] = expires
	return nil
}

// Consume atomically checks that token exists in bucket key with an expiry of
// at least now and, if so, overwrites the expiry with 0.
func (s *Sessions) Consume(_ context.Context, key, token string, now int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok {
		return false, nil
	}
	expires, ok := b[token]
	if !ok || expires < now {
		return false, nil
	}
	b[token] = 0
	return true, nil
}
