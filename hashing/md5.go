package hashing

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/hasbyte1/go-unplugged/secret"
)

// LegacyFastVerifier checks unsalted MD5 hex digests, the [LegacyFast]
// generation.  It cannot produce hashes.
type LegacyFastVerifier struct{}

// Check compares the MD5 digest of password with hash in constant time.
// Upper-case hex digits in hash are rejected.
func (LegacyFastVerifier) Check(password []byte, hash string) (bool, error) {
	if !isHexDigest(hash) {
		return false, fmt.Errorf("%w: hash is not a 32-character lower-case hex digest", ErrAlgorithmMismatch)
	}
	sum := md5.Sum(password)
	computed := []byte(hex.EncodeToString(sum[:]))
	defer secret.Wipe(computed)
	return subtle.ConstantTimeCompare(computed, []byte(hash)) == 1, nil
}
