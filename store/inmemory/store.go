// Package inmemory provides thread-safe in-memory implementations of the
// store collaborators: a key-value option store, session nonce buckets and a
// credential store.
//
// It is intended for use in tests and prototyping. Do not use it in production.
package inmemory

import (
	"context"
	"maps"
	"sync"
)

// Store is an in-memory [store.KeyValueStore] that also implements
// [store.ConditionalSetter].
type Store struct {
	mu     sync.RWMutex
	values map[string]string
}

// New creates an empty [Store].
func New() *Store {
	return &Store{values: make(map[string]string)}
}

// NewWith creates a [Store] pre-populated with a copy of values.
func NewWith(values map[string]string) *Store {
	s := New()
	maps.Copy(s.values, values)
	return s
}

// Get returns the value stored under name.
func (s *Store) Get(_ context.Context, name string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[name]
	return v, ok, nil
}

// Set stores value under name.
func (s *Store) Set(_ context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[name] = value
	return nil
}

// Delete removes name. A missing entry is ignored.
func (s *Store) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, name)
	return nil
}

// SetIfAbsent stores value unless name already holds a non-empty value and
// returns the value that ends up stored.
func (s *Store) SetIfAbsent(_ context.Context, name, value string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.values[name]; ok && existing != "" {
		return existing, nil
	}
	s.values[name] = value
	return value, nil
}

// Snapshot returns a copy of every stored option.
func (s *Store) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return maps.Clone(s.values)
}
