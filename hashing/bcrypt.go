package hashing

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor of hashes made by [BcryptHasher].
// Stored hashes of any cost verify.
const DefaultBcryptCost = 12

// bcrypt reads at most this many bytes of a password.
const maxBcryptPassword = 72

// BcryptHasher handles the bcrypt hashes hosts wrote before Argon2id.
// PHP's password_hash emits $2y$, which is the same digest as $2a$ and $2b$
// and verifies unchanged.  Credentials only ever verifies with it; Make is
// there for hosts that still need to produce bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a BcryptHasher making hashes at cost, which must
// lie in [bcrypt.MinCost, bcrypt.MaxCost].
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: bcrypt cost %d outside %d..%d",
			ErrInvalidOption, cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptHasher{cost: cost}, nil
}

// Driver returns [DriverBcrypt].
func (h *BcryptHasher) Driver() DriverName { return DriverBcrypt }

// Cost returns the work factor new hashes are made with.
func (h *BcryptHasher) Cost() int { return h.cost }

// Make returns a $2a$ hash of password.  Passwords over 72 bytes are
// rejected.
func (h *BcryptHasher) Make(password []byte) (string, error) {
	out, err := bcrypt.GenerateFromPassword(password, h.cost)
	if err != nil {
		return "", fmt.Errorf("hashing: making bcrypt hash: %w", err)
	}
	return string(out), nil
}

// Check implements [Verifier].  A password over 72 bytes never matches.
func (h *BcryptHasher) Check(password []byte, stored string) (bool, error) {
	if d, ok := DetectDriver(stored); !ok || d != DriverBcrypt {
		return false, fmt.Errorf("%w: not a bcrypt hash", ErrAlgorithmMismatch)
	}
	if len(password) > maxBcryptPassword {
		return false, nil
	}
	switch err := bcrypt.CompareHashAndPassword([]byte(stored), password); {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: bcrypt: %v", ErrInvalidHash, err)
	}
}

// NeedsRehash reports whether stored was made at a cost other than
// [BcryptHasher.Cost].
func (h *BcryptHasher) NeedsRehash(stored string) (bool, error) {
	if d, ok := DetectDriver(stored); !ok || d != DriverBcrypt {
		return false, fmt.Errorf("%w: not a bcrypt hash", ErrAlgorithmMismatch)
	}
	cost, err := bcrypt.Cost([]byte(stored))
	if err != nil {
		return false, fmt.Errorf("%w: bcrypt: %v", ErrInvalidHash, err)
	}
	return cost != h.cost, nil
}
