// Package cryptohash implements the keyed hash primitive shared by salts,
// nonces and every other derived token.
//
// The caller's salt is first normalised to a 32-byte key with SHA-256, then
// BLAKE2b keyed with that value runs once over the data.  The output length
// is clamped to what BLAKE2b supports and returned as standard base64.
package cryptohash

import (
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/blake2b"

	"github.com/hasbyte1/go-unplugged/secret"
)

const (
	// DefaultSize is the output length used when size is 0 (44 base64 chars).
	DefaultSize = blake2b.Size256

	// MinSize is the shortest output BLAKE2b can be asked for here.
	MinSize = 16

	// MaxSize is the longest BLAKE2b output.
	MaxSize = blake2b.Size
)

// Size clamps n into [MinSize, MaxSize].  Zero selects [DefaultSize].
func Size(n int) int {
	switch {
	case n == 0:
		return DefaultSize
	case n < MinSize:
		return MinSize
	case n > MaxSize:
		return MaxSize
	default:
		return n
	}
}

// Hash returns base64(BLAKE2b-keyed(data, key = sha256(salt))) with an output
// of Size(size) bytes.
//
// salt is wiped before Hash returns; pass a copy if it is still needed.
func Hash(data, salt []byte, size int) string {
	key := sha256.Sum256(salt)
	defer secret.Wipe(key[:])
	defer secret.Wipe(salt)

	h, err := blake2b.New(Size(size), key[:])
	if err != nil {
		// Only reachable for sizes outside [1, 64] or keys over 64 bytes,
		// both excluded above.
		panic("cryptohash: " + err.Error())
	}
	h.Write(data)
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// HashString is [Hash] for string inputs.  The temporary salt copy is wiped.
func HashString(data, salt string, size int) string {
	return Hash([]byte(data), []byte(salt), size)
}
