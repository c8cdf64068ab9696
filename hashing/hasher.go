package hashing

import "strings"

// DriverName identifies a hashing algorithm driver.
type DriverName string

const (
	// DriverMD5 identifies unsalted 32-character lower-case MD5 hex digests.
	DriverMD5 DriverName = "md5"
	// DriverPortable identifies phpass portable hashes ($P$ / $H$).
	DriverPortable DriverName = "phpass"
	// DriverBcrypt identifies bcrypt hashes ($2a$ / $2b$ / $2y$).
	DriverBcrypt DriverName = "bcrypt"
	// DriverArgon2i identifies Argon2i PHC strings.
	DriverArgon2i DriverName = "argon2i"
	// DriverArgon2id identifies Argon2id PHC strings, the current format.
	DriverArgon2id DriverName = "argon2id"
)

// ModernPrefix is the leading text of every hash in the [Modern] generation.
const ModernPrefix = "$argon2id$v="

// Generation is a step in the migration path of stored password hashes,
// oldest first.
type Generation int

const (
	// LegacyFast is a bare 32-character hex digest.
	LegacyFast Generation = iota
	// LegacyAdaptive is any iterated or adaptive hash other than Argon2id
	// (phpass portable, bcrypt, Argon2i).
	LegacyAdaptive
	// Modern is an Argon2id PHC string.
	Modern
)

func (g Generation) String() string {
	switch g {
	case LegacyFast:
		return "legacy_fast"
	case LegacyAdaptive:
		return "legacy_adaptive"
	case Modern:
		return "modern"
	default:
		return "unknown"
	}
}

// Classify returns the generation of a stored hash.  Anything that is not a
// lower-case hex digest or a modern hash, including garbage, is [LegacyAdaptive] and is
// left to the adaptive verifiers to reject.
func Classify(hash string) Generation {
	switch {
	case isHexDigest(hash):
		return LegacyFast
	case strings.HasPrefix(hash, ModernPrefix):
		return Modern
	default:
		return LegacyAdaptive
	}
}

// Verifier checks a password against one family of encoded hashes.
//
// Implementations never modify password; wiping it is the caller's job.
type Verifier interface {
	// Check returns (true, nil) on match, (false, nil) on mismatch, or
	// (false, err) if the hash is structurally invalid.  Comparison is
	// performed in constant time.
	Check(password []byte, hash string) (bool, error)
}

// Hasher is a [Verifier] that can also produce hashes.
//
// All implementations must be safe for concurrent use by multiple goroutines.
type Hasher interface {
	Verifier

	// Make hashes password with a fresh random salt.
	Make(password []byte) (string, error)

	// NeedsRehash returns true when hash was produced with parameters that
	// differ from the hasher's current configuration.
	NeedsRehash(hash string) (bool, error)

	// Driver returns the DriverName implemented by this hasher.
	Driver() DriverName
}

// DetectDriver inspects a hash string and returns the [DriverName] that
// produced it.  It is a best-effort heuristic based on the hash prefix and
// does not verify the hash itself.
//
// The second return value is false when the hash format is not recognised.
func DetectDriver(hash string) (DriverName, bool) {
	switch {
	case isHexDigest(hash):
		return DriverMD5, true
	case strings.HasPrefix(hash, "$argon2id$"):
		return DriverArgon2id, true
	case strings.HasPrefix(hash, "$argon2i$"):
		return DriverArgon2i, true
	case strings.HasPrefix(hash, "$P$"), strings.HasPrefix(hash, "$H$"):
		return DriverPortable, true
	// bcrypt hashes start with $2a$, $2b$, or $2y$
	case strings.HasPrefix(hash, "$2a$"),
		strings.HasPrefix(hash, "$2b$"),
		strings.HasPrefix(hash, "$2y$"):
		return DriverBcrypt, true
	default:
		return "", false
	}
}

func isHexDigest(s string) bool {
	if len(s) != 32 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f') {
			return false
		}
	}
	return true
}
