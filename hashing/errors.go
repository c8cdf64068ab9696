package hashing

import "errors"

// Drivers return these wrapped with detail; compare with [errors.Is].
// [Credentials] turns hash errors into a plain mismatch and only surfaces
// [ErrNoCredentialStore].
var (
	// ErrInvalidHash means a stored hash could not be decoded: unknown
	// format, wrong field count, bad base64 or parameters out of range.
	ErrInvalidHash = errors.New("hashing: invalid or unrecognised hash string")

	// ErrInvalidOption means a constructor got a cost parameter it cannot
	// use, such as a bcrypt cost of 3.
	ErrInvalidOption = errors.New("hashing: invalid option value")

	// ErrAlgorithmMismatch means a driver was handed another driver's hash.
	ErrAlgorithmMismatch = errors.New("hashing: hash was produced by a different algorithm")

	// ErrNoCredentialStore means an upgrade or password change had nowhere
	// to write the new hash.
	ErrNoCredentialStore = errors.New("hashing: no credential store configured")
)
