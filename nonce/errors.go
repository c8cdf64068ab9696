package nonce

import "errors"

var (
	// ErrNilHasher is returned by [New] when no hasher is supplied.
	ErrNilHasher = errors.New("nonce: hasher must not be nil")

	// ErrInvalidLifetime is returned by [New] for lifetimes under two seconds.
	ErrInvalidLifetime = errors.New("nonce: lifetime too short")

	// ErrNilBucket is returned by [NewSessionNonces] when no bucket is supplied.
	ErrNilBucket = errors.New("nonce: session bucket must not be nil")
)
