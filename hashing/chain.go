package hashing

import (
	"fmt"

	"github.com/hasbyte1/go-unplugged/secret"
)

// AdaptiveChain dispatches a [LegacyAdaptive] hash to the verifier
// registered for the driver [DetectDriver] reports.
//
// It is not safe to call Register concurrently with Check.
type AdaptiveChain struct {
	verifiers map[DriverName]Verifier
}

// NewAdaptiveChain returns an empty chain.
func NewAdaptiveChain() *AdaptiveChain {
	return &AdaptiveChain{verifiers: make(map[DriverName]Verifier)}
}

// DefaultAdaptiveChain returns a chain that verifies phpass portable,
// bcrypt and Argon2i hashes.
func DefaultAdaptiveChain() *AdaptiveChain {
	c := NewAdaptiveChain()
	portable, _ := NewPortableHasher(DefaultPortableCost, nil)
	bc, _ := NewBcryptHasher(DefaultBcryptCost)
	a2i, _ := NewArgon2iHasher(InteractiveArgon2Options(), secret.Default())
	c.Register(DriverPortable, portable)
	c.Register(DriverBcrypt, bc)
	c.Register(DriverArgon2i, a2i)
	return c
}

// Register installs v for hashes detected as d, replacing any previous one.
func (c *AdaptiveChain) Register(d DriverName, v Verifier) *AdaptiveChain {
	c.verifiers[d] = v
	return c
}

// Check verifies password with the verifier for hash's format.  Hashes with
// no registered verifier return [ErrInvalidHash].
func (c *AdaptiveChain) Check(password []byte, hash string) (bool, error) {
	d, ok := DetectDriver(hash)
	if !ok {
		return false, fmt.Errorf("%w: unrecognised hash format", ErrInvalidHash)
	}
	v, ok := c.verifiers[d]
	if !ok {
		return false, fmt.Errorf("%w: no verifier registered for %s", ErrInvalidHash, d)
	}
	return v.Check(password, hash)
}
