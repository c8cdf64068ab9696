package hashing_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/hasbyte1/go-unplugged/hashing"
)

// fastArgon2Opts returns minimal Argon2 parameters for unit tests.
// These are intentionally weak; do NOT use in production.
func fastArgon2Opts() hashing.Argon2Options {
	return hashing.Argon2Options{
		Memory:  8 * 2, // 8 × Threads minimum
		Time:    1,
		Threads: 2,
		KeyLen:  16,
		SaltLen: 8,
	}
}

func newTestArgon2iHasher(t testing.TB) *hashing.Argon2iHasher {
	t.Helper()
	h, err := hashing.NewArgon2iHasher(fastArgon2Opts(), nil)
	if err != nil {
		t.Fatalf("NewArgon2iHasher: %v", err)
	}
	return h
}

func newTestArgon2idHasher(t testing.TB) *hashing.Argon2idHasher {
	t.Helper()
	h, err := hashing.NewArgon2idHasher(fastArgon2Opts(), nil)
	if err != nil {
		t.Fatalf("NewArgon2idHasher: %v", err)
	}
	return h
}

// ──────────────────────────────────────────────────────────────────────────────
// Constructor validation
// ──────────────────────────────────────────────────────────────────────────────

func TestNewArgon2Hasher_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts hashing.Argon2Options
	}{
		{"time=0", hashing.Argon2Options{Memory: 64, Time: 0, Threads: 1, KeyLen: 16, SaltLen: 8}},
		{"threads=0", hashing.Argon2Options{Memory: 64, Time: 1, Threads: 0, KeyLen: 16, SaltLen: 8}},
		{"memory too low", hashing.Argon2Options{Memory: 1, Time: 1, Threads: 2, KeyLen: 16, SaltLen: 8}},
		{"memory too high", hashing.Argon2Options{Memory: 1<<21 + 1, Time: 1, Threads: 1, KeyLen: 16, SaltLen: 8}},
		{"key_len<4", hashing.Argon2Options{Memory: 64, Time: 1, Threads: 1, KeyLen: 3, SaltLen: 8}},
		{"salt_len<8", hashing.Argon2Options{Memory: 64, Time: 1, Threads: 1, KeyLen: 16, SaltLen: 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := hashing.NewArgon2iHasher(tt.opts, nil); !errors.Is(err, hashing.ErrInvalidOption) {
				t.Errorf("argon2i: expected ErrInvalidOption, got %v", err)
			}
			if _, err := hashing.NewArgon2idHasher(tt.opts, nil); !errors.Is(err, hashing.ErrInvalidOption) {
				t.Errorf("argon2id: expected ErrInvalidOption, got %v", err)
			}
		})
	}
}

func TestInteractiveArgon2Options(t *testing.T) {
	got := hashing.InteractiveArgon2Options()
	want := hashing.Argon2Options{Memory: 65536, Time: 2, Threads: 1, KeyLen: 32, SaltLen: 16}
	if got != want {
		t.Errorf("InteractiveArgon2Options() = %+v, want %+v", got, want)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Make / Check / NeedsRehash, both variants
// ──────────────────────────────────────────────────────────────────────────────

func argon2Variants(t *testing.T) map[string]hashing.Hasher {
	return map[string]hashing.Hasher{
		"$argon2i$":  newTestArgon2iHasher(t),
		"$argon2id$": newTestArgon2idHasher(t),
	}
}

func TestArgon2Hasher_RoundTrip(t *testing.T) {
	for prefix, h := range argon2Variants(t) {
		t.Run(string(h.Driver()), func(t *testing.T) {
			hash, err := h.Make([]byte("secure-pass"))
			if err != nil {
				t.Fatal(err)
			}
			if !strings.HasPrefix(hash, prefix+"v=19$m=16,t=1,p=2$") {
				t.Errorf("unexpected PHC header in %q", hash)
			}
			if ok, err := h.Check([]byte("secure-pass"), hash); err != nil || !ok {
				t.Errorf("correct password: ok=%v err=%v", ok, err)
			}
			if ok, err := h.Check([]byte("incorrect"), hash); err != nil || ok {
				t.Errorf("wrong password: ok=%v err=%v", ok, err)
			}

			empty, _ := h.Make(nil)
			if ok, _ := h.Check([]byte{}, empty); !ok {
				t.Error("empty password round-trip failed")
			}

			again, _ := h.Make([]byte("secure-pass"))
			if again == hash {
				t.Error("two Make calls must produce different hashes (different salts)")
			}
		})
	}
}

func TestArgon2Hasher_Check_WrongVariant(t *testing.T) {
	i := newTestArgon2iHasher(t)
	id := newTestArgon2idHasher(t)

	hashI, _ := i.Make([]byte("pw"))
	hashID, _ := id.Make([]byte("pw"))

	if _, err := i.Check([]byte("pw"), hashID); !errors.Is(err, hashing.ErrAlgorithmMismatch) {
		t.Errorf("argon2i on argon2id hash: expected ErrAlgorithmMismatch, got %v", err)
	}
	if _, err := id.Check([]byte("pw"), hashI); !errors.Is(err, hashing.ErrAlgorithmMismatch) {
		t.Errorf("argon2id on argon2i hash: expected ErrAlgorithmMismatch, got %v", err)
	}
}

func TestArgon2idHasher_Check_MalformedHash(t *testing.T) {
	h := newTestArgon2idHasher(t)
	salt := "c29tZXNhbHQ"        // "somesalt"
	digest := "ZGlnZXN0ZGlnZXN0" // 12 bytes

	tests := map[string]string{
		"not phc":         "not-a-hash",
		"unknown variant": "$argon2d$v=19$m=16,t=1,p=1$" + salt + "$" + digest,
		"old version":     "$argon2id$v=16$m=16,t=1,p=1$" + salt + "$" + digest,
		"zero time":       "$argon2id$v=19$m=16,t=0,p=1$" + salt + "$" + digest,
		"zero threads":    "$argon2id$v=19$m=16,t=1,p=0$" + salt + "$" + digest,
		"too many lanes":  "$argon2id$v=19$m=4096,t=1,p=256$" + salt + "$" + digest,
		"memory too low":  "$argon2id$v=19$m=8,t=1,p=2$" + salt + "$" + digest,
		"memory too high": "$argon2id$v=19$m=4294967295,t=1,p=1$" + salt + "$" + digest,
		"missing param":   "$argon2id$v=19$m=16,t=1$" + salt + "$" + digest,
		"short salt":      "$argon2id$v=19$m=16,t=1,p=1$YWJj$" + digest,
		"empty digest":    "$argon2id$v=19$m=16,t=1,p=1$" + salt + "$",
		"bad base64":      "$argon2id$v=19$m=16,t=1,p=1$" + salt + "$!!!!",
	}
	for name, hash := range tests {
		t.Run(name, func(t *testing.T) {
			ok, err := h.Check([]byte("pw"), hash)
			if ok || !errors.Is(err, hashing.ErrInvalidHash) {
				t.Errorf("Check(%q) = %v, %v; want false, ErrInvalidHash", hash, ok, err)
			}
		})
	}
}

func TestArgon2idHasher_NeedsRehash(t *testing.T) {
	h := newTestArgon2idHasher(t)
	hash, _ := h.Make([]byte("pw"))

	if needs, err := h.NeedsRehash(hash); err != nil || needs {
		t.Errorf("same params: needs=%v err=%v", needs, err)
	}

	changes := map[string]func(*hashing.Argon2Options){
		"memory":  func(o *hashing.Argon2Options) { o.Memory *= 2 },
		"time":    func(o *hashing.Argon2Options) { o.Time++ },
		"threads": func(o *hashing.Argon2Options) { o.Threads = 1 },
		"key_len": func(o *hashing.Argon2Options) { o.KeyLen = 32 },
	}
	for name, change := range changes {
		t.Run(name, func(t *testing.T) {
			opts := fastArgon2Opts()
			change(&opts)
			h2, err := hashing.NewArgon2idHasher(opts, nil)
			if err != nil {
				t.Fatal(err)
			}
			if needs, err := h2.NeedsRehash(hash); err != nil || !needs {
				t.Errorf("expected NeedsRehash=true: needs=%v err=%v", needs, err)
			}
		})
	}
}

// A hash produced with older parameters still verifies after the work factors
// are increased between deployments.
func TestArgon2id_PHCRoundTrip_DifferentOptions(t *testing.T) {
	optsB := fastArgon2Opts()
	optsB.Memory *= 4
	optsB.Time = 2

	hA := newTestArgon2idHasher(t)
	hB, _ := hashing.NewArgon2idHasher(optsB, nil)

	hash, _ := hA.Make([]byte("hello"))
	if ok, err := hB.Check([]byte("hello"), hash); err != nil || !ok {
		t.Fatalf("cross-option Check failed: ok=%v err=%v", ok, err)
	}
}

func TestArgon2Hasher_DoesNotModifyPassword(t *testing.T) {
	h := newTestArgon2idHasher(t)
	pw := []byte("keep-me")
	hash, _ := h.Make(pw)
	_, _ = h.Check(pw, hash)
	if string(pw) != "keep-me" {
		t.Errorf("password buffer modified: %q", pw)
	}
}
