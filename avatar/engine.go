package avatar

import (
	"crypto/md5"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/crypto/ripemd160"

	"github.com/hasbyte1/go-unplugged/secret"
)

const (
	// DefaultBaseURL is the avatar service every URL points at.
	DefaultBaseURL = "https://secure.gravatar.com/avatar/"

	// DefaultAvatar is the generated-avatar theme used when none is given.
	DefaultAvatar = "monsterid"

	// DefaultRating is the highest rating of avatar served by default.
	DefaultRating = "g"

	// UnknownAddress replaces addresses that fail validation.
	UnknownAddress = "unknown@gravatar.com"

	// MinCustomSaltLength is the shortest salt [Engine.SetCustomSalts] accepts.
	MinCustomSaltLength = 18

	referenceRounds = 5
)

// DefaultAddresses are always whitelisted in a new engine.
var DefaultAddresses = []string{"anonymous@gravatar.com", "wapuu@wordpress.example"}

// Option configures an [Engine].
type Option func(*Engine)

// WithSalts sets the two obfuscation salts instead of generating them.
func WithSalts(first, second string) Option {
	return func(e *Engine) { e.salts = [2]string{first, second} }
}

// WithBaseURL overrides [DefaultBaseURL].  A trailing "/" is added if missing.
// An empty u keeps the default.
func WithBaseURL(u string) Option {
	return func(e *Engine) {
		if u == "" {
			return
		}
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		e.baseURL = u
	}
}

// WithDefaultAvatar overrides [DefaultAvatar].  An empty name keeps the
// default.
func WithDefaultAvatar(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.defaultAvatar = name
		}
	}
}

// WithRating overrides [DefaultRating].  An empty r keeps the default.
func WithRating(r string) Option {
	return func(e *Engine) {
		if r != "" {
			e.rating = strings.ToLower(r)
		}
	}
}

// WithResolver installs the host resolver for [UserID] and [HostObject]
// subjects.
func WithResolver(r Resolver) Option { return func(e *Engine) { e.resolver = r } }

// WithSource overrides the random source used for salts.
func WithSource(s *secret.Source) Option { return func(e *Engine) { e.rnd = s } }

// WithLogger sets the logger.  The default is slog.Default().
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// Snapshot is a copy of the whitelist.
type Snapshot struct {
	Domains   []string `json:"domains"`
	Addresses []string `json:"addresses"`
}

// Engine turns e-mail addresses into avatar hashes, obfuscating every
// address that is not whitelisted.  It is safe for concurrent use.
type Engine struct {
	mu        sync.RWMutex
	salts     [2]string
	domains   []string
	addresses []string

	baseURL       string
	defaultAvatar string
	rating        string
	resolver      Resolver
	rnd           *secret.Source
	logger        *slog.Logger
}

// New returns an engine seeded with [DefaultAddresses].  Salts are generated
// unless [WithSalts] supplies both.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		addresses:     slices.Clone(DefaultAddresses),
		baseURL:       DefaultBaseURL,
		defaultAvatar: DefaultAvatar,
		rating:        DefaultRating,
		resolver:      EmailResolver,
		rnd:           secret.Default(),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.salts[0] == "" || e.salts[1] == "" {
		salts, err := generateSalts(e.rnd)
		if err != nil {
			return nil, err
		}
		e.salts = salts
	}
	return e, nil
}

// GenerateSalts returns two fresh 44-character salts.
func GenerateSalts() ([2]string, error) { return generateSalts(secret.Default()) }

func generateSalts(rnd *secret.Source) ([2]string, error) {
	var out [2]string
	for i := range out {
		s, err := rnd.SaltShaker()
		if err != nil {
			return [2]string{}, fmt.Errorf("avatar: generating salts: %w", err)
		}
		out[i] = s
	}
	return out, nil
}

// Salts returns the current obfuscation salts.
func (e *Engine) Salts() [2]string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.salts
}

// SetCustomSalts replaces both salts.  Empty strings are treated as absent:
// two empty salts leave the current ones in place, and exactly one is
// [ErrSaltPair].
func (e *Engine) SetCustomSalts(first, second string) error {
	var set []string
	for _, s := range []string{first, second} {
		if s == "" {
			continue
		}
		if len(s) < MinCustomSaltLength {
			return fmt.Errorf("%w: must be at least %d characters long", ErrSaltTooShort, MinCustomSaltLength)
		}
		set = append(set, s)
	}
	switch len(set) {
	case 0:
		return nil
	case 1:
		return ErrSaltPair
	}
	e.mu.Lock()
	e.salts = [2]string{first, second}
	e.mu.Unlock()
	return nil
}

// RegenerateSalts replaces both salts with fresh random values.  Every
// obfuscated hash changes.
func (e *Engine) RegenerateSalts() error {
	salts, err := generateSalts(e.rnd)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.salts = salts
	e.mu.Unlock()
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Whitelist
// ──────────────────────────────────────────────────────────────────────────────

// Whitelist returns a copy of the current whitelist.
func (e *Engine) Whitelist() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot()
}

func (e *Engine) snapshot() Snapshot {
	return Snapshot{Domains: slices.Clone(e.domains), Addresses: slices.Clone(e.addresses)}
}

// AddDomain whitelists domain and all of its subdomains.
func (e *Engine) AddDomain(domain string) (Snapshot, error) {
	d := DomainToASCII(domain)
	if !validDomain(d) {
		return Snapshot{}, invalidDomain(domain)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !slices.Contains(e.domains, d) {
		e.domains = append(e.domains, d)
	}
	return e.snapshot(), nil
}

// RemoveDomain drops domain from the whitelist.  Removing a domain that is
// not listed is not an error.
func (e *Engine) RemoveDomain(domain string) (Snapshot, error) {
	d := DomainToASCII(domain)
	if !validDomain(d) {
		return Snapshot{}, invalidDomain(domain)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.domains = lo.Without(e.domains, d)
	return e.snapshot(), nil
}

// AddEmailAddress whitelists a single address.
func (e *Engine) AddEmailAddress(address string) (Snapshot, error) {
	a := NormalizeEmail(address)
	if !validEmail(a) {
		return Snapshot{}, invalidEmail(address)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !slices.Contains(e.addresses, a) {
		e.addresses = append(e.addresses, a)
	}
	return e.snapshot(), nil
}

// RemoveEmailAddress drops address from the whitelist.  Removing an address
// that is not listed is not an error.
func (e *Engine) RemoveEmailAddress(address string) (Snapshot, error) {
	a := NormalizeEmail(address)
	if !validEmail(a) {
		return Snapshot{}, invalidEmail(address)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.addresses = lo.Without(e.addresses, a)
	return e.snapshot(), nil
}

// AddDomains adds every ";"-separated domain in list.  Valid entries are
// added even when others fail; the failures are returned in order.
func (e *Engine) AddDomains(list string) (Snapshot, []error) {
	return e.bulk(list, e.AddDomain)
}

// RemoveDomains removes every ";"-separated domain in list.
func (e *Engine) RemoveDomains(list string) (Snapshot, []error) {
	return e.bulk(list, e.RemoveDomain)
}

// AddEmailAddresses adds every ";"-separated address in list.
func (e *Engine) AddEmailAddresses(list string) (Snapshot, []error) {
	return e.bulk(list, e.AddEmailAddress)
}

// RemoveEmailAddresses removes every ";"-separated address in list.
func (e *Engine) RemoveEmailAddresses(list string) (Snapshot, []error) {
	return e.bulk(list, e.RemoveEmailAddress)
}

func (e *Engine) bulk(list string, op func(string) (Snapshot, error)) (Snapshot, []error) {
	entries := lo.Compact(lo.Map(strings.Split(list, ";"), func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))
	var errs []error
	for _, entry := range entries {
		if _, err := op(entry); err != nil {
			errs = append(errs, err)
		}
	}
	return e.Whitelist(), errs
}

// ──────────────────────────────────────────────────────────────────────────────
// Hashes
// ──────────────────────────────────────────────────────────────────────────────

// MimicHash returns the 32-character hex hash used in avatar URLs.
//
// Whitelisted addresses, and addresses in a whitelisted domain or any of its
// subdomains, get the plain MD5 of the normalised address.  Every other
// address gets hex(sha256(salt2 + hex(sha256(salt1 + address))))[4:36],
// which cannot be linked to the address without the salts.  Invalid input
// hashes as [UnknownAddress].
func (e *Engine) MimicHash(email string) string {
	addr := NormalizeEmail(email)
	if !validEmail(addr) {
		addr = UnknownAddress
	}
	_, domain, _ := strings.Cut(addr, "@")

	e.mu.RLock()
	matched := e.whitelisted(addr, domain)
	salts := e.salts
	e.mu.RUnlock()

	if matched {
		sum := md5.Sum([]byte(addr))
		return hex.EncodeToString(sum[:])
	}
	inner := sha256.Sum256([]byte(salts[0] + addr))
	outer := sha256.Sum256([]byte(salts[1] + hex.EncodeToString(inner[:])))
	return hex.EncodeToString(outer[:])[4:36]
}

func (e *Engine) whitelisted(addr, domain string) bool {
	for _, w := range e.domains {
		if !validDomain(w) {
			continue
		}
		if domain == w || strings.HasSuffix("."+domain, "."+w) {
			return true
		}
	}
	return slices.Contains(e.addresses, addr)
}

// ReferenceHash returns base64(ripemd160(hex(sha384)^5(address))), a
// deployment-independent identifier for address.
func ReferenceHash(email string) (string, error) {
	addr := NormalizeEmail(email)
	if !validEmail(addr) {
		return "", invalidEmail(email)
	}
	pre := addr
	for range referenceRounds {
		sum := sha512.Sum384([]byte(pre))
		pre = hex.EncodeToString(sum[:])
	}
	h := ripemd160.New()
	h.Write([]byte(pre))
	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}
