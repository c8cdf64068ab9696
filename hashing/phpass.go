package hashing

import (
	"crypto/md5"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/hasbyte1/go-unplugged/secret"
)

const (
	// DefaultPortableCost is the log2 iteration count of new portable
	// hashes, encoded as 'B' ($P$B…).
	DefaultPortableCost = 13

	// MinPortableCost and MaxPortableCost bound the log2 iteration count
	// accepted from a stored hash.
	MinPortableCost = 7
	MaxPortableCost = 30

	// MaxPortablePasswordLength is the longest password the portable
	// hasher will process.
	MaxPortablePasswordLength = 4096

	portableHashLen = 34
	itoa64          = "./0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

// PortableHasher verifies and produces phpass "portable" hashes: an 8-char
// salt and 2^cost rounds of MD5, encoded as $P$ (or the older $H$) followed
// by the cost character, the salt and 22 characters of digest.
//
// PortableHasher is immutable after construction and safe for concurrent use.
type PortableHasher struct {
	cost   int
	source *secret.Source
}

// NewPortableHasher constructs a PortableHasher producing hashes with
// 2^cost iterations.  Salts are drawn from src, or from crypto/rand when src
// is nil.
func NewPortableHasher(cost int, src *secret.Source) (*PortableHasher, error) {
	if cost < MinPortableCost || cost > MaxPortableCost {
		return nil, fmt.Errorf("%w: portable cost %d must be in [%d, %d]",
			ErrInvalidOption, cost, MinPortableCost, MaxPortableCost)
	}
	if src == nil {
		src = secret.Default()
	}
	return &PortableHasher{cost: cost, source: src}, nil
}

// Driver returns [DriverPortable].
func (h *PortableHasher) Driver() DriverName { return DriverPortable }

// Make hashes password with a fresh salt using the $P$ identifier.
func (h *PortableHasher) Make(password []byte) (string, error) {
	if len(password) > MaxPortablePasswordLength {
		return "", fmt.Errorf("%w: password longer than %d bytes", ErrInvalidOption, MaxPortablePasswordLength)
	}
	raw, err := h.source.Bytes(6)
	if err != nil {
		return "", fmt.Errorf("hashing: phpass: generating salt: %w", err)
	}
	setting := "$P$" + string(itoa64[h.cost]) + encode64(raw, len(raw))
	return portableCrypt(password, setting)
}

// Check verifies password against a portable hash.
func (h *PortableHasher) Check(password []byte, hash string) (bool, error) {
	if len(password) > MaxPortablePasswordLength {
		return false, nil
	}
	if len(hash) != portableHashLen {
		return false, fmt.Errorf("%w: portable hash must be %d characters", ErrInvalidHash, portableHashLen)
	}
	computed, err := portableCrypt(password, hash)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1, nil
}

// NeedsRehash returns true if hash was produced with a different cost.
func (h *PortableHasher) NeedsRehash(hash string) (bool, error) {
	cost, err := portableCost(hash)
	if err != nil {
		return false, err
	}
	return cost != h.cost, nil
}

func portableCost(setting string) (int, error) {
	if len(setting) < 12 || (setting[:3] != "$P$" && setting[:3] != "$H$") {
		return 0, fmt.Errorf("%w: hash does not appear to be phpass portable", ErrAlgorithmMismatch)
	}
	cost := strings.IndexByte(itoa64, setting[3])
	if cost < MinPortableCost || cost > MaxPortableCost {
		return 0, fmt.Errorf("%w: portable cost character %q out of range", ErrInvalidHash, setting[3])
	}
	return cost, nil
}

// portableCrypt computes the portable hash of password for the identifier,
// cost and salt held in the first 12 characters of setting.
func portableCrypt(password []byte, setting string) (string, error) {
	cost, err := portableCost(setting)
	if err != nil {
		return "", err
	}
	salt := setting[4:12]

	buf := make([]byte, 0, md5.Size+len(password))
	defer func() { secret.Wipe(buf[:cap(buf)]) }()

	buf = append(append(buf, salt...), password...)
	sum := md5.Sum(buf)
	for count := 1 << cost; count > 0; count-- {
		buf = append(append(buf[:0], sum[:]...), password...)
		sum = md5.Sum(buf)
	}
	return setting[:12] + encode64(sum[:], md5.Size), nil
}

// encode64 is the phpass base64 variant: little-endian 6-bit groups over
// itoa64, with no padding.
func encode64(in []byte, count int) string {
	var out strings.Builder
	for i := 0; i < count; {
		v := uint32(in[i])
		i++
		out.WriteByte(itoa64[v&0x3f])
		if i < count {
			v |= uint32(in[i]) << 8
		}
		out.WriteByte(itoa64[(v>>6)&0x3f])
		if i >= count {
			break
		}
		i++
		if i < count {
			v |= uint32(in[i]) << 16
		}
		out.WriteByte(itoa64[(v>>12)&0x3f])
		if i >= count {
			break
		}
		i++
		out.WriteByte(itoa64[(v>>18)&0x3f])
	}
	return out.String()
}
