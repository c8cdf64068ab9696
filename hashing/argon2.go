package hashing

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/hasbyte1/go-unplugged/secret"
)

// ──────────────────────────────────────────────────────────────────────────────
// Options
// ──────────────────────────────────────────────────────────────────────────────

const (
	// DefaultArgon2Memory is the interactive memory cost in KiB (64 MiB).
	DefaultArgon2Memory uint32 = 64 * 1024

	// DefaultArgon2Time is the interactive number of passes.
	DefaultArgon2Time uint32 = 2

	// DefaultArgon2Threads is the default degree of parallelism.
	DefaultArgon2Threads uint8 = 1

	// DefaultArgon2KeyLen is the default output key length in bytes.
	DefaultArgon2KeyLen uint32 = 32

	// DefaultArgon2SaltLen is the default random salt length in bytes.
	DefaultArgon2SaltLen uint32 = 16

	// maxArgon2Memory bounds the memory cost accepted from a stored hash
	// (2 GiB).  Hashes above it are rejected as invalid.
	maxArgon2Memory uint32 = 1 << 21

	argon2Version = argon2.Version // 0x13 = 19
)

// Argon2Options configures an [Argon2iHasher] or [Argon2idHasher].
//
// All parameters are encoded into the output hash string (PHC format), so
// changing them only affects newly produced hashes.
type Argon2Options struct {
	// Memory is the memory cost in KiB.  Minimum: 8 * Threads.
	Memory uint32

	// Time is the number of passes over memory.  Minimum: 1.
	Time uint32

	// Threads is the degree of parallelism.  Minimum: 1.
	Threads uint8

	// KeyLen is the length of the derived key in bytes.  Minimum: 4.
	KeyLen uint32

	// SaltLen is the length of the random salt in bytes.  Minimum: 8.
	SaltLen uint32
}

// InteractiveArgon2Options returns the interactive profile: 2 passes over
// 64 MiB with a single lane, a 32-byte key and a 16-byte salt.
func InteractiveArgon2Options() Argon2Options {
	return Argon2Options{
		Memory:  DefaultArgon2Memory,
		Time:    DefaultArgon2Time,
		Threads: DefaultArgon2Threads,
		KeyLen:  DefaultArgon2KeyLen,
		SaltLen: DefaultArgon2SaltLen,
	}
}

func (o Argon2Options) validate() error {
	var problem string
	switch {
	case o.Time < 1:
		problem = "at least one pass is required"
	case o.Threads < 1:
		problem = "at least one lane is required"
	case o.Memory < 8*uint32(o.Threads):
		problem = fmt.Sprintf("%d KiB is below 8 KiB per lane", o.Memory)
	case o.Memory > maxArgon2Memory:
		problem = fmt.Sprintf("%d KiB is above the %d KiB ceiling", o.Memory, maxArgon2Memory)
	case o.KeyLen < 4:
		problem = fmt.Sprintf("%d-byte key is shorter than 4 bytes", o.KeyLen)
	case o.SaltLen < 8:
		problem = fmt.Sprintf("%d-byte salt is shorter than 8 bytes", o.SaltLen)
	default:
		return nil
	}
	return fmt.Errorf("%w: argon2: %s", ErrInvalidOption, problem)
}

// ──────────────────────────────────────────────────────────────────────────────
// PHC strings
// ──────────────────────────────────────────────────────────────────────────────

// phcHash is a decoded $argon2…$ string.
type phcHash struct {
	variant DriverName
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	digest  []byte
}

// String encodes h as
//
//	$argon2id$v=19$m=65536,t=2,p=1$<salt>$<digest>
//
// with unpadded standard base64.
func (h phcHash) String() string {
	b64 := base64.RawStdEncoding
	return "$" + string(h.variant) +
		"$v=" + strconv.Itoa(argon2Version) +
		"$" + phcParams(uint64(h.memory), uint64(h.time), uint64(h.threads)) +
		"$" + b64.EncodeToString(h.salt) +
		"$" + b64.EncodeToString(h.digest)
}

func phcParams(m, t, p uint64) string { return fmt.Sprintf("m=%d,t=%d,p=%d", m, t, p) }

// parsePHC decodes a stored Argon2 hash.  Stored hashes are untrusted: argon2
// panics on zero passes or lanes and an empty digest matches any password, so
// every field is bounded here.
func parsePHC(stored string) (phcHash, error) {
	var h phcHash
	invalid := func(format string, args ...any) (phcHash, error) {
		return phcHash{}, fmt.Errorf("%w: argon2: "+format, append([]any{ErrInvalidHash}, args...)...)
	}

	fields := strings.Split(stored, "$")
	if len(fields) != 6 || fields[0] != "" {
		return invalid("want 5 $-separated fields, got %d", len(fields)-1)
	}
	switch DriverName(fields[1]) {
	case DriverArgon2i, DriverArgon2id:
		h.variant = DriverName(fields[1])
	default:
		return invalid("unknown variant %q", fields[1])
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2Version {
		return invalid("unsupported version field %q", fields[2])
	}

	var m, t, p uint64
	_, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &m, &t, &p)
	if err != nil || phcParams(m, t, p) != fields[3] {
		return invalid("malformed parameters %q", fields[3])
	}
	switch {
	case t < 1 || t > 1<<16:
		return invalid("%d passes out of range", t)
	case p < 1 || p > 255:
		return invalid("%d lanes out of range", p)
	case m < 8*p || m > uint64(maxArgon2Memory):
		return invalid("%d KiB out of range", m)
	}
	h.memory, h.time, h.threads = uint32(m), uint32(t), uint8(p)

	if h.salt, err = base64.RawStdEncoding.DecodeString(fields[4]); err != nil {
		return invalid("salt: %v", err)
	}
	if h.digest, err = base64.RawStdEncoding.DecodeString(fields[5]); err != nil {
		return invalid("digest: %v", err)
	}
	if len(h.salt) < 8 || len(h.digest) < 4 {
		return invalid("salt or digest too short")
	}
	return h, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Shared argon2 core
// ──────────────────────────────────────────────────────────────────────────────

type keyFunc func(password, salt []byte, time, memory uint32, threads uint8, keyLen uint32) []byte

// argon2Hasher holds what the two variants share; they differ only in key.
type argon2Hasher struct {
	variant DriverName
	key     keyFunc
	opts    Argon2Options
	source  *secret.Source
}

func newArgon2(variant DriverName, key keyFunc, opts Argon2Options, src *secret.Source) (argon2Hasher, error) {
	if err := opts.validate(); err != nil {
		return argon2Hasher{}, err
	}
	if src == nil {
		src = secret.Default()
	}
	return argon2Hasher{variant: variant, key: key, opts: opts, source: src}, nil
}

func (a *argon2Hasher) make(password []byte) (string, error) {
	salt, err := a.source.Bytes(int(a.opts.SaltLen))
	if err != nil {
		return "", fmt.Errorf("hashing: %s salt: %w", a.variant, err)
	}
	return phcHash{
		variant: a.variant,
		memory:  a.opts.Memory,
		time:    a.opts.Time,
		threads: a.opts.Threads,
		salt:    salt,
		digest:  a.key(password, salt, a.opts.Time, a.opts.Memory, a.opts.Threads, a.opts.KeyLen),
	}.String(), nil
}

// parse decodes stored and insists it is of this hasher's variant.
func (a *argon2Hasher) parse(stored string) (phcHash, error) {
	h, err := parsePHC(stored)
	if err != nil {
		return phcHash{}, err
	}
	if h.variant != a.variant {
		return phcHash{}, fmt.Errorf("%w: %s hash given to %s hasher", ErrAlgorithmMismatch, h.variant, a.variant)
	}
	return h, nil
}

func (a *argon2Hasher) check(password []byte, stored string) (bool, error) {
	h, err := a.parse(stored)
	if err != nil {
		return false, err
	}
	got := a.key(password, h.salt, h.time, h.memory, h.threads, uint32(len(h.digest)))
	defer secret.Wipe(got)
	return subtle.ConstantTimeCompare(got, h.digest) == 1, nil
}

func (a *argon2Hasher) needsRehash(stored string) (bool, error) {
	h, err := a.parse(stored)
	if err != nil {
		return false, err
	}
	want := a.opts
	return h.memory != want.Memory || h.time != want.Time || h.threads != want.Threads ||
		uint32(len(h.digest)) != want.KeyLen, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Variants
// ──────────────────────────────────────────────────────────────────────────────

// Argon2iHasher handles Argon2i hashes written by older hosts.  They are
// [LegacyAdaptive] and get upgraded to Argon2id on login.
type Argon2iHasher struct {
	core argon2Hasher
}

// NewArgon2iHasher returns an Argon2iHasher.  A nil src reads crypto/rand.
func NewArgon2iHasher(opts Argon2Options, src *secret.Source) (*Argon2iHasher, error) {
	core, err := newArgon2(DriverArgon2i, argon2.Key, opts, src)
	if err != nil {
		return nil, err
	}
	return &Argon2iHasher{core: core}, nil
}

func (h *Argon2iHasher) Driver() DriverName { return DriverArgon2i }
func (h *Argon2iHasher) Options() Argon2Options { return h.core.opts }
func (h *Argon2iHasher) Make(password []byte) (string, error) { return h.core.make(password) }

// Check reads the cost parameters from stored, not from Options.
func (h *Argon2iHasher) Check(password []byte, stored string) (bool, error) {
	return h.core.check(password, stored)
}

func (h *Argon2iHasher) NeedsRehash(stored string) (bool, error) { return h.core.needsRehash(stored) }

// Argon2idHasher makes the [Modern] generation of hashes,
// $argon2id$v=19$m=…,t=…,p=…$<salt>$<digest>.  It is safe for concurrent use.
type Argon2idHasher struct {
	core argon2Hasher
}

// NewArgon2idHasher returns an Argon2idHasher; [InteractiveArgon2Options] is
// the usual profile.  A nil src reads crypto/rand.
func NewArgon2idHasher(opts Argon2Options, src *secret.Source) (*Argon2idHasher, error) {
	core, err := newArgon2(DriverArgon2id, argon2.IDKey, opts, src)
	if err != nil {
		return nil, err
	}
	return &Argon2idHasher{core: core}, nil
}

func (h *Argon2idHasher) Driver() DriverName { return DriverArgon2id }
func (h *Argon2idHasher) Options() Argon2Options { return h.core.opts }
func (h *Argon2idHasher) Make(password []byte) (string, error) { return h.core.make(password) }

// Check reads the cost parameters from stored, not from Options.
func (h *Argon2idHasher) Check(password []byte, stored string) (bool, error) {
	return h.core.check(password, stored)
}

// NeedsRehash reports whether stored differs from Options in memory, passes,
// lanes or key length.
func (h *Argon2idHasher) NeedsRehash(stored string) (bool, error) { return h.core.needsRehash(stored) }
