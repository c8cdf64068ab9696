package hashing_test

import (
	"context"
	"testing"

	"github.com/hasbyte1/go-unplugged/hashing"
	"github.com/hasbyte1/go-unplugged/store/inmemory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Driver benchmarks
// ──────────────────────────────────────────────────────────────────────────────
//
// The Interactive benchmark is the real-world login cost; the others use the
// fast test parameters and measure overhead only.

func BenchmarkArgon2id_Interactive_Make(b *testing.B) {
	h, _ := hashing.NewArgon2idHasher(hashing.InteractiveArgon2Options(), nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = h.Make([]byte("bench-password"))
	}
}

func BenchmarkArgon2id_Fast_Check(b *testing.B) {
	h := newTestArgon2idHasher(b)
	hash, _ := h.Make([]byte("bench-password"))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = h.Check([]byte("bench-password"), hash)
	}
}

func BenchmarkBcrypt_MinCost_Check(b *testing.B) {
	h := newTestBcryptHasher(b)
	hash, _ := h.Make([]byte("bench-password"))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = h.Check([]byte("bench-password"), hash)
	}
}

func BenchmarkPortable_DefaultCost_Check(b *testing.B) {
	h, _ := hashing.NewPortableHasher(hashing.DefaultPortableCost, nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = h.Check([]byte("password"), "$P$BabcdefghEP1Dc925xipBv72nvZxoc1")
	}
}

func BenchmarkLegacyFast_Check(b *testing.B) {
	var v hashing.LegacyFastVerifier
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = v.Check([]byte("password"), "5f4dcc3b5aa765d61d8327deb882cf99")
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Credentials
// ──────────────────────────────────────────────────────────────────────────────

func BenchmarkCredentials_VerifyUser_Modern(b *testing.B) {
	fast := newTestArgon2idHasher(b)
	c, _ := hashing.NewCredentials(
		hashing.WithStore(inmemory.NewCredentials()),
		hashing.WithModernHasher(fast),
	)
	stored, _ := fast.Make([]byte("bench-password"))
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.VerifyUser(ctx, 1, []byte("bench-password"), stored)
	}
}
