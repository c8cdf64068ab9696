package salt

import "errors"

var (
	// ErrEmptyScheme is returned when a salt is requested for "".
	ErrEmptyScheme = errors.New("salt: scheme must not be empty")

	// ErrNilStore is returned by [New] when no key-value store is supplied.
	ErrNilStore = errors.New("salt: key-value store must not be nil")
)
