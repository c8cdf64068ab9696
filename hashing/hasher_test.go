package hashing_test

import (
	"testing"

	"github.com/hasbyte1/go-unplugged/hashing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		hash string
		want hashing.Generation
	}{
		{"5f4dcc3b5aa765d61d8327deb882cf99", hashing.LegacyFast},
		{"5F4DCC3B5AA765D61D8327DEB882CF99", hashing.LegacyAdaptive},  // upper case
		{"5f4dcc3b5aa765d61d8327deb882cf9", hashing.LegacyAdaptive},   // 31 chars
		{"5f4dcc3b5aa765d61d8327deb882cf9g", hashing.LegacyAdaptive},  // non-hex
		{"5f4dcc3b5aa765d61d8327deb882cf990", hashing.LegacyAdaptive}, // 33 chars
		{"$P$BabcdefghEP1Dc925xipBv72nvZxoc1", hashing.LegacyAdaptive},
		{"$2y$10$abcdefghijklmnopqrstuu", hashing.LegacyAdaptive},
		{"$argon2i$v=19$m=16,t=1,p=1$c2FsdHNhbHQ$aGFzaA", hashing.LegacyAdaptive},
		{"$argon2id$v=19$m=65536,t=2,p=1$c2FsdHNhbHQ$aGFzaA", hashing.Modern},
		{"$argon2id$v=", hashing.Modern},
		{"$argon2id$", hashing.LegacyAdaptive},
		{"", hashing.LegacyAdaptive},
		{"garbage", hashing.LegacyAdaptive},
	}
	for _, tt := range tests {
		if got := hashing.Classify(tt.hash); got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.hash, got, tt.want)
		}
	}
}

func TestGeneration_String(t *testing.T) {
	tests := map[hashing.Generation]string{
		hashing.LegacyFast:     "legacy_fast",
		hashing.LegacyAdaptive: "legacy_adaptive",
		hashing.Modern:         "modern",
		hashing.Generation(42): "unknown",
	}
	for g, want := range tests {
		if got := g.String(); got != want {
			t.Errorf("Generation(%d).String() = %q, want %q", int(g), got, want)
		}
	}
}

func TestDetectDriver(t *testing.T) {
	tests := []struct {
		hash   string
		want   hashing.DriverName
		wantOK bool
	}{
		{"5f4dcc3b5aa765d61d8327deb882cf99", hashing.DriverMD5, true},
		{"$P$BabcdefghEP1Dc925xipBv72nvZxoc1", hashing.DriverPortable, true},
		{"$H$9IQRaTwmfeRo7ud9Fh4E2PdI0S3r.L0", hashing.DriverPortable, true},
		{"$2a$04$x", hashing.DriverBcrypt, true},
		{"$2b$04$x", hashing.DriverBcrypt, true},
		{"$2y$04$x", hashing.DriverBcrypt, true},
		{"$argon2i$v=19$x", hashing.DriverArgon2i, true},
		{"$argon2id$v=19$x", hashing.DriverArgon2id, true},
		{"$1$saltsalt$hash", "", false},
		{"plaintext", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := hashing.DetectDriver(tt.hash)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("DetectDriver(%q) = %q, %v; want %q, %v", tt.hash, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestHashersSatisfyInterfaces(t *testing.T) {
	var (
		_ hashing.Hasher   = newTestArgon2iHasher(t)
		_ hashing.Hasher   = newTestArgon2idHasher(t)
		_ hashing.Hasher   = newTestBcryptHasher(t)
		_ hashing.Hasher   = newTestPortableHasher(t)
		_ hashing.Verifier = hashing.LegacyFastVerifier{}
		_ hashing.Verifier = hashing.NewAdaptiveChain()
	)
}

// ──────────────────────────────────────────────────────────────────────────────
// LegacyFastVerifier
// ──────────────────────────────────────────────────────────────────────────────

func TestLegacyFastVerifier(t *testing.T) {
	var v hashing.LegacyFastVerifier
	tests := []struct {
		password string
		hash     string
		want     bool
	}{
		{"password", "5f4dcc3b5aa765d61d8327deb882cf99", true},
		{"Password", "5f4dcc3b5aa765d61d8327deb882cf99", false},
		{"", "d41d8cd98f00b204e9800998ecf8427e", true},
	}
	for _, tt := range tests {
		ok, err := v.Check([]byte(tt.password), tt.hash)
		if err != nil || ok != tt.want {
			t.Errorf("Check(%q, %q) = %v, %v; want %v", tt.password, tt.hash, ok, err, tt.want)
		}
	}
	for _, bad := range []string{"$P$B", "5F4DCC3B5AA765D61D8327DEB882CF99"} {
		if ok, err := v.Check([]byte("password"), bad); ok || err == nil {
			t.Errorf("Check(%q) = %v, %v; want an error", bad, ok, err)
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// AdaptiveChain
// ──────────────────────────────────────────────────────────────────────────────

func TestAdaptiveChain_Dispatch(t *testing.T) {
	portable := newTestPortableHasher(t)
	bc := newTestBcryptHasher(t)
	a2i := newTestArgon2iHasher(t)

	chain := hashing.NewAdaptiveChain().
		Register(hashing.DriverPortable, portable).
		Register(hashing.DriverBcrypt, bc).
		Register(hashing.DriverArgon2i, a2i)

	for _, h := range []hashing.Hasher{portable, bc, a2i} {
		hash, err := h.Make([]byte("chained"))
		if err != nil {
			t.Fatalf("%s Make: %v", h.Driver(), err)
		}
		if ok, err := chain.Check([]byte("chained"), hash); err != nil || !ok {
			t.Errorf("%s: ok=%v err=%v", h.Driver(), ok, err)
		}
		if ok, _ := chain.Check([]byte("other"), hash); ok {
			t.Errorf("%s: wrong password accepted", h.Driver())
		}
	}
}

func TestAdaptiveChain_Unknown(t *testing.T) {
	chain := hashing.NewAdaptiveChain()
	for _, hash := range []string{"garbage", "$2a$04$abc", "$1$salt$hash"} {
		ok, err := chain.Check([]byte("pw"), hash)
		if ok || err == nil {
			t.Errorf("Check(%q) = %v, %v; want false with error", hash, ok, err)
		}
	}
}

func TestDefaultAdaptiveChain_PortableVector(t *testing.T) {
	chain := hashing.DefaultAdaptiveChain()
	ok, err := chain.Check([]byte("password"), "$P$BabcdefghEP1Dc925xipBv72nvZxoc1")
	if err != nil || !ok {
		t.Errorf("ok=%v err=%v", ok, err)
	}
}
