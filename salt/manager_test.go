package salt_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/hasbyte1/go-unplugged/cryptohash"
	"github.com/hasbyte1/go-unplugged/salt"
	"github.com/hasbyte1/go-unplugged/store"
	"github.com/hasbyte1/go-unplugged/store/inmemory"
)

// countingStore counts reads so tests can observe caching.
type countingStore struct {
	*inmemory.Store
	gets atomic.Int64
}

func (c *countingStore) Get(ctx context.Context, name string) (string, bool, error) {
	c.gets.Add(1)
	return c.Store.Get(ctx, name)
}

// brokenStore fails every operation.
type brokenStore struct{}

func (brokenStore) Get(_ context.Context, name string) (string, bool, error) {
	return "", false, store.Wrap("get", name, io.ErrClosedPipe)
}
func (brokenStore) Set(_ context.Context, name, _ string) error {
	return store.Wrap("set", name, io.ErrClosedPipe)
}
func (brokenStore) Delete(_ context.Context, name string) error {
	return store.Wrap("delete", name, io.ErrClosedPipe)
}

func newManager(t *testing.T, consts store.ConfigMap, kv store.KeyValueStore, opts ...salt.Option) *salt.Manager {
	t.Helper()
	opts = append([]salt.Option{salt.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	m, err := salt.New(consts, kv, opts...)
	if err != nil {
		t.Fatalf("salt.New: %v", err)
	}
	return m
}

// ──────────────────────────────────────────────────────────────────────────────
// Canonical schemes
// ──────────────────────────────────────────────────────────────────────────────

func TestPair_UsesConstants(t *testing.T) {
	kv := inmemory.New()
	m := newManager(t, store.ConfigMap{"AUTH_KEY": "ak", "AUTH_SALT": "as"}, kv)

	p, err := m.Pair(context.Background(), salt.SchemeAuth)
	if err != nil {
		t.Fatalf("Pair: %v", err)
	}
	if p.Key != "ak" || p.Salt != "as" {
		t.Errorf("Pair = %+v", p)
	}
	if len(kv.Snapshot()) != 0 {
		t.Errorf("constants must not be persisted: %v", kv.Snapshot())
	}
}

func TestPair_GeneratesAndPersists(t *testing.T) {
	kv := inmemory.New()
	m := newManager(t, nil, kv)
	ctx := context.Background()

	p, err := m.Pair(ctx, salt.SchemeNonce)
	if err != nil {
		t.Fatalf("Pair: %v", err)
	}
	if len(p.Key) != 44 || len(p.Salt) != 44 {
		t.Errorf("generated lengths = %d/%d, want 44", len(p.Key), len(p.Salt))
	}
	snap := kv.Snapshot()
	if snap["nonce_key"] != p.Key || snap["nonce_salt"] != p.Salt {
		t.Errorf("store = %v, pair = %+v", snap, p)
	}

	// A fresh manager over the same store resolves the same pair.
	again, err := newManager(t, nil, kv).Pair(ctx, salt.SchemeNonce)
	if err != nil {
		t.Fatal(err)
	}
	if again != p {
		t.Errorf("second manager resolved %+v, want %+v", again, p)
	}
}

func TestPair_DuplicateConstantsIgnored(t *testing.T) {
	kv := inmemory.New()
	m := newManager(t, store.ConfigMap{
		"AUTH_KEY":        "same",
		"SECURE_AUTH_KEY": "same",
		"AUTH_SALT":       salt.Placeholder,
	}, kv)

	p, err := m.Pair(context.Background(), salt.SchemeAuth)
	if err != nil {
		t.Fatal(err)
	}
	if p.Key == "same" {
		t.Error("duplicated constant was used")
	}
	if p.Salt == salt.Placeholder {
		t.Error("placeholder constant was used")
	}
	snap := kv.Snapshot()
	if snap["auth_key"] != p.Key || snap["auth_salt"] != p.Salt {
		t.Errorf("fallback values not persisted: %v", snap)
	}
}

func TestPair_EmptyConstantIgnored(t *testing.T) {
	m := newManager(t, store.ConfigMap{"LOGGED_IN_KEY": ""}, inmemory.New())
	p, err := m.Pair(context.Background(), salt.SchemeLoggedIn)
	if err != nil {
		t.Fatal(err)
	}
	if p.Key == "" {
		t.Error("empty constant produced an empty key")
	}
}

func TestPair_SecretKeyAndSecretSalt(t *testing.T) {
	consts := store.ConfigMap{"SECRET_KEY": "sk", "SECRET_SALT": "ss"}
	ctx := context.Background()

	auth, err := newManager(t, consts, inmemory.New()).Pair(ctx, salt.SchemeAuth)
	if err != nil {
		t.Fatal(err)
	}
	if auth.Key != "sk" || auth.Salt != "ss" {
		t.Errorf("auth = %+v, want sk/ss", auth)
	}

	// SECRET_SALT only applies to auth.
	kv := inmemory.New()
	secure, err := newManager(t, consts, kv).Pair(ctx, salt.SchemeSecureAuth)
	if err != nil {
		t.Fatal(err)
	}
	if secure.Key != "sk" {
		t.Errorf("secure_auth key = %q, want sk", secure.Key)
	}
	if secure.Salt == "ss" || kv.Snapshot()["secure_auth_salt"] != secure.Salt {
		t.Errorf("secure_auth salt = %q, store %v", secure.Salt, kv.Snapshot())
	}
}

func TestPair_SchemeConstantBeatsSecretKey(t *testing.T) {
	m := newManager(t, store.ConfigMap{"SECRET_KEY": "sk", "NONCE_KEY": "nk"}, inmemory.New())
	p, err := m.Pair(context.Background(), salt.SchemeNonce)
	if err != nil {
		t.Fatal(err)
	}
	if p.Key != "nk" {
		t.Errorf("key = %q, want nk", p.Key)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Derived schemes
// ──────────────────────────────────────────────────────────────────────────────

func TestPair_CustomSchemeDerivesSalt(t *testing.T) {
	kv := inmemory.New()
	m := newManager(t, nil, kv)
	ctx := context.Background()

	p, err := m.Pair(ctx, "password_reset")
	if err != nil {
		t.Fatal(err)
	}
	if kv.Snapshot()["secret_key"] != p.Key {
		t.Errorf("secret_key not persisted: %v", kv.Snapshot())
	}
	if want := cryptohash.HashString("password_reset", p.Key, 0); p.Salt != want {
		t.Errorf("salt = %q, want %q", p.Salt, want)
	}
	if _, ok := kv.Snapshot()["password_reset_salt"]; ok {
		t.Error("derived salt must not be persisted")
	}

	other, err := m.Pair(ctx, "export")
	if err != nil {
		t.Fatal(err)
	}
	if other.Key != p.Key || other.Salt == p.Salt {
		t.Errorf("custom schemes should share the key but not the salt: %+v vs %+v", other, p)
	}
}

func TestPair_CustomSchemeUsesSecretKey(t *testing.T) {
	m := newManager(t, store.ConfigMap{"SECRET_KEY": "sk"}, inmemory.New())
	p, err := m.Pair(context.Background(), "custom")
	if err != nil {
		t.Fatal(err)
	}
	if p.Key != "sk" {
		t.Errorf("key = %q, want the SECRET_KEY value", p.Key)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Caching, concurrency, failures
// ──────────────────────────────────────────────────────────────────────────────

func TestPair_Cached(t *testing.T) {
	kv := &countingStore{Store: inmemory.New()}
	m := newManager(t, nil, kv)
	ctx := context.Background()

	first, _ := m.Pair(ctx, salt.SchemeAuth)
	reads := kv.gets.Load()
	for range 5 {
		p, _ := m.Pair(ctx, salt.SchemeAuth)
		if p != first {
			t.Fatal("cached pair changed")
		}
	}
	if kv.gets.Load() != reads {
		t.Errorf("store read %d more times after caching", kv.gets.Load()-reads)
	}
}

func TestPair_SharedCache(t *testing.T) {
	cache := salt.NewCache()
	cache.Put(salt.SchemeAuth, salt.Pair{Key: "k", Salt: "s"})

	m := newManager(t, nil, brokenStore{}, salt.WithCache(cache))
	p, err := m.Pair(context.Background(), salt.SchemeAuth)
	if err != nil {
		t.Fatalf("cached scheme should not touch the store: %v", err)
	}
	if p.Combined() != "ks" {
		t.Errorf("Combined = %q", p.Combined())
	}
}

func TestPair_ConcurrentGenerateOnce(t *testing.T) {
	kv := inmemory.New()
	m := newManager(t, nil, kv)
	ctx := context.Background()

	var wg sync.WaitGroup
	pairs := make([]salt.Pair, 32)
	for i := range pairs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pairs[i], _ = m.Pair(ctx, salt.SchemeLoggedIn)
		}(i)
	}
	wg.Wait()
	for _, p := range pairs {
		if p != pairs[0] {
			t.Fatalf("concurrent callers disagree: %+v vs %+v", p, pairs[0])
		}
	}
}

func TestPair_StoreErrorPropagates(t *testing.T) {
	m := newManager(t, nil, brokenStore{})
	for _, scheme := range []string{salt.SchemeAuth, "custom"} {
		_, err := m.Pair(context.Background(), scheme)
		if !errors.Is(err, store.ErrStore) {
			t.Errorf("%s: expected ErrStore, got %v", scheme, err)
		}
	}
	if m.Cache().Len() != 0 {
		t.Error("failed resolution must not be cached")
	}
}

func TestPair_EmptyScheme(t *testing.T) {
	m := newManager(t, nil, inmemory.New())
	if _, err := m.Pair(context.Background(), ""); !errors.Is(err, salt.ErrEmptyScheme) {
		t.Errorf("expected ErrEmptyScheme, got %v", err)
	}
}

func TestNew_NilStore(t *testing.T) {
	if _, err := salt.New(nil, nil); !errors.Is(err, salt.ErrNilStore) {
		t.Errorf("expected ErrNilStore, got %v", err)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Salt / Hash / Regenerate
// ──────────────────────────────────────────────────────────────────────────────

func TestSalt_Filter(t *testing.T) {
	var seen []string
	m := newManager(t, store.ConfigMap{"AUTH_KEY": "k", "AUTH_SALT": "s"}, inmemory.New(),
		salt.WithFilter(func(v, scheme string) string {
			seen = append(seen, scheme)
			return strings.ToUpper(v)
		}))
	ctx := context.Background()

	for range 2 {
		got, err := m.Salt(ctx, salt.SchemeAuth)
		if err != nil {
			t.Fatal(err)
		}
		if got != "KS" {
			t.Errorf("Salt = %q, want KS", got)
		}
	}
	if len(seen) != 2 {
		t.Errorf("filter should run on cached values too, ran %d times", len(seen))
	}
}

func TestHash_SixteenBytes(t *testing.T) {
	m := newManager(t, store.ConfigMap{"NONCE_KEY": "k", "NONCE_SALT": "s"}, inmemory.New())
	h, err := m.Hash(context.Background(), "data", salt.SchemeNonce)
	if err != nil {
		t.Fatal(err)
	}
	if len(h) != 24 {
		t.Errorf("len = %d, want 24", len(h))
	}
	if want := cryptohash.HashString("data", "ks", 16); h != want {
		t.Errorf("Hash = %q, want %q", h, want)
	}
}

func TestRegenerate(t *testing.T) {
	kv := inmemory.New()
	m := newManager(t, nil, kv)
	ctx := context.Background()

	before, _ := m.Pair(ctx, salt.SchemeAuth)
	if err := m.Regenerate(ctx, salt.SchemeAuth); err != nil {
		t.Fatal(err)
	}
	after, _ := m.Pair(ctx, salt.SchemeAuth)
	if after == before {
		t.Error("Regenerate kept the old pair")
	}
}

func TestPair_LogValueRedacts(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logger.Info("resolved", "pair", salt.Pair{Key: "very-secret", Salt: "also-secret"})
	if strings.Contains(buf.String(), "secret") {
		t.Errorf("log leaked secret material: %s", buf.String())
	}
}

func TestConstantNames(t *testing.T) {
	names := salt.ConstantNames()
	if len(names) != 10 {
		t.Fatalf("len = %d, want 10", len(names))
	}
	if names[0] != "AUTH_KEY" || names[9] != "SECRET_SALT" {
		t.Errorf("unexpected order %v", names)
	}
}
