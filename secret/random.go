package secret

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"math/big"
)

const (
	// SaltBytes is the number of random bytes behind every [SaltShaker] value.
	SaltBytes = 32

	// MinNonceBytes is the smallest nonce [Source.Nonce] will generate.
	// Smaller requests are raised to this value.
	MinNonceBytes = 16
)

// Source produces random material from an underlying reader.
//
// The zero value is not usable; construct one with [NewSource].  A Source is
// safe for concurrent use when its reader is (crypto/rand.Reader is).
type Source struct {
	r io.Reader
}

// NewSource returns a Source reading from r.  A nil reader selects
// crypto/rand.Reader.
func NewSource(r io.Reader) *Source {
	if r == nil {
		r = rand.Reader
	}
	return &Source{r: r}
}

var defaultSource = NewSource(nil)

// Default returns the process-wide Source backed by crypto/rand.
func Default() *Source { return defaultSource }

// Bytes returns n random bytes.
func (s *Source) Bytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("secret: negative byte count %d", n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(s.r, b); err != nil {
		return nil, fmt.Errorf("%w: reading %d bytes: %v", ErrEntropy, n, err)
	}
	return b, nil
}

// Int returns a uniformly distributed integer in the inclusive range
// [low, high].  Reversed bounds are swapped rather than rejected.
func (s *Source) Int(low, high int64) (int64, error) {
	if low > high {
		low, high = high, low
	}
	if low == high {
		return low, nil
	}
	span := new(big.Int).Sub(big.NewInt(high), big.NewInt(low))
	span.Add(span, big.NewInt(1))

	// rand.Int rejection-samples, so there is no modulo bias.
	n, err := rand.Int(s.r, span)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrEntropy, err)
	}
	return n.Add(n, big.NewInt(low)).Int64(), nil
}

// SaltShaker returns [SaltBytes] random bytes encoded as standard base64
// (44 characters including padding).
func (s *Source) SaltShaker() (string, error) {
	raw, err := s.Bytes(SaltBytes)
	if err != nil {
		return "", err
	}
	defer Wipe(raw)
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Nonce returns n random bytes (at least [MinNonceBytes]) encoded as
// standard base64.  16 bytes yield 24 characters, 32 bytes yield 44.
func (s *Source) Nonce(n int) (string, error) {
	if n < MinNonceBytes {
		n = MinNonceBytes
	}
	raw, err := s.Bytes(n)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Shuffle returns the bytes of str in a uniformly random order
// (Fisher–Yates driven by [Source.Int]).
func (s *Source) Shuffle(str string) (string, error) {
	b := []byte(str)
	for i := len(b) - 1; i > 0; i-- {
		j, err := s.Int(0, int64(i))
		if err != nil {
			return "", err
		}
		b[i], b[j] = b[j], b[i]
	}
	return string(b), nil
}

// Bytes returns n random bytes from the default source.
func Bytes(n int) ([]byte, error) { return defaultSource.Bytes(n) }

// Int returns a uniform integer in [low, high] from the default source.
func Int(low, high int64) (int64, error) { return defaultSource.Int(low, high) }

// SaltShaker returns a fresh 44-character base64 salt from the default source.
func SaltShaker() (string, error) { return defaultSource.SaltShaker() }

// Nonce returns a base64 nonce of at least [MinNonceBytes] from the default source.
func Nonce(n int) (string, error) { return defaultSource.Nonce(n) }

// Shuffle randomly permutes str using the default source.
func Shuffle(str string) (string, error) { return defaultSource.Shuffle(str) }

// Wipe overwrites b with zeros.
func Wipe(b []byte) {
	clear(b)
}
