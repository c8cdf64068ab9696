// Package store declares the persistence collaborators the security core
// depends on, plus the [Error] type every adapter reports failures with.
//
// The core never performs I/O on its own.  Hosts supply a [ConfigSource] for
// operator constants and a [KeyValueStore] for durable options; reference
// adapters live in the inmemory, redisstore and pgstore sub-packages.
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrStore is matched by every [Error] so callers can test for persistence
// failures without knowing the adapter:
//
//	if errors.Is(err, store.ErrStore) {
//	    // retry or surface
//	}
var ErrStore = errors.New("store: unavailable or write rejected")

// ConfigSource exposes operator-level constants (environment, config file).
// It is read-only for the process lifetime.
type ConfigSource interface {
	// Constant returns the named value and whether it is defined.
	Constant(name string) (string, bool)
}

// KeyValueStore is a durable option store.
type KeyValueStore interface {
	// Get returns the value stored under name.  A missing entry is reported
	// as ok == false with a nil error.
	Get(ctx context.Context, name string) (value string, ok bool, err error)

	// Set stores value under name, replacing any existing value.
	Set(ctx context.Context, name, value string) error

	// Delete removes name.  Deleting a missing entry is not an error.
	Delete(ctx context.Context, name string) error
}

// ConditionalSetter is implemented by stores that can write a value only when
// none exists yet.
type ConditionalSetter interface {
	// SetIfAbsent stores value under name unless an entry already exists and
	// returns whichever value is persisted afterwards.
	SetIfAbsent(ctx context.Context, name, value string) (stored string, err error)
}

// ConfigMap is a [ConfigSource] backed by a plain map.
type ConfigMap map[string]string

// Constant implements [ConfigSource].
func (m ConfigMap) Constant(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// Error describes a failed store operation.
type Error struct {
	Op   string // "get", "set", "delete", ...
	Name string // option or bucket name
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("store: %s %q failed", e.Op, e.Name)
	}
	return fmt.Sprintf("store: %s %q: %v", e.Op, e.Name, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports true for [ErrStore].
func (e *Error) Is(target error) bool { return target == ErrStore }

// Wrap returns err as an [*Error] unless it is nil.
func Wrap(op, name string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Name: name, Err: err}
}

// PutIfAbsent writes value under name unless an entry exists, using
// [ConditionalSetter] when kv implements it.  Otherwise it writes and then
// reads back, so concurrent writers converge on the last one.
func PutIfAbsent(ctx context.Context, kv KeyValueStore, name, value string) (string, error) {
	if cs, ok := kv.(ConditionalSetter); ok {
		return cs.SetIfAbsent(ctx, name, value)
	}
	if err := kv.Set(ctx, name, value); err != nil {
		return "", err
	}
	stored, ok, err := kv.Get(ctx, name)
	if err != nil {
		return "", err
	}
	if !ok || stored == "" {
		return "", &Error{Op: "get", Name: name, Err: errors.New("value vanished after write")}
	}
	return stored, nil
}
