package inmemory

import (
	"context"
	"errors"
	"sync"
)

// ErrUserNotFound is returned by [Credentials.UpdatePasswordHash] for an
// unknown user when the store was created with [NewStrictCredentials].
var ErrUserNotFound = errors.New("inmemory: user not found")

// Credentials is an in-memory password hash table keyed by user ID.
type Credentials struct {
	mu      sync.RWMutex
	hashes  map[int64]string
	updates int
	strict  bool

	// OnUpdate, when set, runs after every successful update.  Hosts use it
	// to invalidate cached user records.
	OnUpdate func(userID int64)
}

// NewCredentials creates a [Credentials] that accepts updates for any user.
func NewCredentials() *Credentials {
	return &Credentials{hashes: make(map[int64]string)}
}

// NewStrictCredentials creates a [Credentials] that rejects updates for users
// that were never [Credentials.Put].
func NewStrictCredentials() *Credentials {
	c := NewCredentials()
	c.strict = true
	return c
}

// Put seeds the stored hash of userID without counting as an update.
func (c *Credentials) Put(userID int64, hash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hashes[userID] = hash
}

// UpdatePasswordHash replaces the stored hash of userID.
func (c *Credentials) UpdatePasswordHash(_ context.Context, userID int64, hash string) error {
	c.mu.Lock()
	if _, ok := c.hashes[userID]; c.strict && !ok {
		c.mu.Unlock()
		return ErrUserNotFound
	}
	c.hashes[userID] = hash
	c.updates++
	hook := c.OnUpdate
	c.mu.Unlock()

	if hook != nil {
		hook(userID)
	}
	return nil
}

// Hash returns the stored hash of userID.
func (c *Credentials) Hash(userID int64) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.hashes[userID]
	return h, ok
}

// Updates reports how many times [Credentials.UpdatePasswordHash] succeeded.
func (c *Credentials) Updates() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updates
}
