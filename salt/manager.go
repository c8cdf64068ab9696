// Package salt resolves the keyed secret behind each usage scheme.
//
// A scheme's key and salt come from, in order of preference:
//
//  1. an operator constant such as AUTH_KEY or NONCE_SALT,
//  2. a value persisted in the key-value store (auth_key, nonce_salt, ...),
//  3. a freshly generated value, which is persisted for next time.
//
// Constant values that appear more than once, or that still hold the
// "put your unique phrase here" placeholder, are treated as undefined.
//
// Only auth, secure_auth, logged_in and nonce persist both halves.  Every
// other scheme shares the secret_key and derives its salt from the scheme
// name, so it is stable without extra storage.
package salt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/hasbyte1/go-unplugged/cryptohash"
	"github.com/hasbyte1/go-unplugged/secret"
	"github.com/hasbyte1/go-unplugged/store"
)

// Built-in schemes.
const (
	SchemeAuth       = "auth"
	SchemeSecureAuth = "secure_auth"
	SchemeLoggedIn   = "logged_in"
	SchemeNonce      = "nonce"
)

// Placeholder is the sample value shipped in configuration templates.  It is
// never accepted as a secret.
const Placeholder = "put your unique phrase here"

// HashSize is the output length of [Manager.Hash].
const HashSize = 16

var (
	canonical = map[string]bool{
		SchemeAuth:       true,
		SchemeSecureAuth: true,
		SchemeLoggedIn:   true,
		SchemeNonce:      true,
	}
	constantPrefixes = []string{"AUTH", "SECURE_AUTH", "LOGGED_IN", "NONCE", "SECRET"}
	constantSuffixes = []string{"KEY", "SALT"}
)

// ConstantNames lists every constant consulted during resolution.
func ConstantNames() []string {
	names := make([]string, 0, len(constantPrefixes)*len(constantSuffixes))
	for _, p := range constantPrefixes {
		for _, s := range constantSuffixes {
			names = append(names, p+"_"+s)
		}
	}
	return names
}

// Filter may rewrite the combined value returned by [Manager.Salt].
type Filter func(value, scheme string) string

// Option configures a [Manager].
type Option func(*Manager)

// WithCache shares c instead of a private cache.
func WithCache(c *Cache) Option { return func(m *Manager) { m.cache = c } }

// WithFilter installs a hook applied to every value [Manager.Salt] returns.
func WithFilter(f Filter) Option { return func(m *Manager) { m.filter = f } }

// WithSource overrides the random source used for generated secrets.
func WithSource(s *secret.Source) Option { return func(m *Manager) { m.rnd = s } }

// WithLogger sets the logger.  The default is slog.Default().
func WithLogger(l *slog.Logger) Option { return func(m *Manager) { m.logger = l } }

// Manager resolves and caches per-scheme secrets.  It is safe for concurrent use.
type Manager struct {
	consts store.ConfigSource
	kv     store.KeyValueStore
	cache  *Cache
	rnd    *secret.Source
	filter Filter
	logger *slog.Logger

	// mu serialises resolution of uncached schemes so two callers never
	// generate competing secrets for the same name.
	mu    sync.Mutex
	dupes map[string]bool
}

// New returns a Manager reading constants from consts (which may be nil) and
// persisting generated secrets to kv.
func New(consts store.ConfigSource, kv store.KeyValueStore, opts ...Option) (*Manager, error) {
	if kv == nil {
		return nil, ErrNilStore
	}
	if consts == nil {
		consts = store.ConfigMap{}
	}
	m := &Manager{
		consts: consts,
		kv:     kv,
		cache:  NewCache(),
		rnd:    secret.Default(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Cache returns the cache the manager memoises into.
func (m *Manager) Cache() *Cache { return m.cache }

// Pair resolves the key and salt for scheme.
func (m *Manager) Pair(ctx context.Context, scheme string) (Pair, error) {
	if scheme == "" {
		return Pair{}, ErrEmptyScheme
	}
	if p, ok := m.cache.Get(scheme); ok {
		return p, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.cache.Get(scheme); ok {
		return p, nil
	}
	if m.dupes == nil {
		m.dupes = m.scanDuplicates()
	}
	p, err := m.resolve(ctx, scheme)
	if err != nil {
		return Pair{}, err
	}
	m.cache.Put(scheme, p)
	return p, nil
}

// Salt returns the combined key and salt for scheme, passed through the
// configured [Filter].
func (m *Manager) Salt(ctx context.Context, scheme string) (string, error) {
	p, err := m.Pair(ctx, scheme)
	if err != nil {
		return "", err
	}
	v := p.Combined()
	if m.filter != nil {
		v = m.filter(v, scheme)
	}
	return v, nil
}

// Hash keys data with the salt of scheme and returns a 16-byte digest in
// base64.
func (m *Manager) Hash(ctx context.Context, data, scheme string) (string, error) {
	s, err := m.Salt(ctx, scheme)
	if err != nil {
		return "", err
	}
	return cryptohash.HashString(data, s, HashSize), nil
}

// Regenerate deletes the persisted secrets of scheme and drops it from the
// cache.  The next lookup generates new values unless constants are defined.
func (m *Manager) Regenerate(ctx context.Context, scheme string) error {
	if scheme == "" {
		return ErrEmptyScheme
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	names := []string{"secret_key"}
	if canonical[scheme] {
		names = []string{scheme + "_key", scheme + "_salt"}
	}
	for _, name := range names {
		if err := m.kv.Delete(ctx, name); err != nil {
			return fmt.Errorf("salt: regenerating %q: %w", scheme, err)
		}
	}
	if canonical[scheme] {
		m.cache.Invalidate(scheme)
	} else {
		// Every derived scheme shares secret_key.
		m.cache.Reset()
	}
	return nil
}

// scanDuplicates maps each configured constant value to whether it occurs
// more than once.  The placeholder is seeded as a duplicate.
func (m *Manager) scanDuplicates() map[string]bool {
	dupes := map[string]bool{Placeholder: true}
	for _, name := range ConstantNames() {
		v, ok := m.consts.Constant(name)
		if !ok {
			continue
		}
		_, seen := dupes[v]
		dupes[v] = seen
	}
	return dupes
}

// constant returns the named constant when it is defined, non-empty and unique.
func (m *Manager) constant(name string) (string, bool) {
	v, ok := m.consts.Constant(name)
	if !ok || v == "" || m.dupes[v] {
		return "", false
	}
	return v, true
}

func (m *Manager) resolve(ctx context.Context, scheme string) (Pair, error) {
	var p Pair
	if v, ok := m.constant("SECRET_KEY"); ok {
		p.Key = v
	}
	if scheme == SchemeAuth {
		if v, ok := m.constant("SECRET_SALT"); ok {
			p.Salt = v
		}
	}

	if canonical[scheme] {
		for _, part := range []struct {
			typ string
			dst *string
		}{
			{"key", &p.Key},
			{"salt", &p.Salt},
		} {
			if v, ok := m.constant(strings.ToUpper(scheme + "_" + part.typ)); ok {
				*part.dst = v
				continue
			}
			if *part.dst != "" {
				continue
			}
			v, err := m.persisted(ctx, scheme, scheme+"_"+part.typ)
			if err != nil {
				return Pair{}, err
			}
			*part.dst = v
		}
		return p, nil
	}

	if p.Key == "" {
		v, err := m.persisted(ctx, scheme, "secret_key")
		if err != nil {
			return Pair{}, err
		}
		p.Key = v
	}
	// Derived rather than stored, so it must be deterministic in (scheme, key).
	p.Salt = cryptohash.HashString(scheme, p.Key, cryptohash.DefaultSize)
	return p, nil
}

// persisted reads name from the store, generating and persisting a value
// when none exists.  The value returned is the one the store holds, which
// may belong to a concurrent writer.
func (m *Manager) persisted(ctx context.Context, scheme, name string) (string, error) {
	v, ok, err := m.kv.Get(ctx, name)
	if err != nil {
		return "", fmt.Errorf("salt: reading %q: %w", name, err)
	}
	if ok && v != "" {
		return v, nil
	}

	generated, err := m.rnd.SaltShaker()
	if err != nil {
		return "", fmt.Errorf("salt: generating %q: %w", name, err)
	}
	stored, err := store.PutIfAbsent(ctx, m.kv, name, generated)
	if err != nil {
		return "", fmt.Errorf("salt: persisting %q: %w", name, err)
	}
	m.logger.InfoContext(ctx, "salt generated", "scheme", scheme, "name", name)
	return stored, nil
}
