package hashing

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/hasbyte1/go-unplugged/secret"
)

// DefaultRehashOdds is the default denominator of the chance that a
// successful [Modern] verification rewrites the stored hash.
const DefaultRehashOdds = 5

// RehashCounterName is the OpenTelemetry instrument upgrades are counted on
// when [WithMeter] is used.
const RehashCounterName = "unplugged.password.rehashes"

// CredentialStore persists upgraded password hashes.  Implementations own
// any cache invalidation that must follow a write.
type CredentialStore interface {
	UpdatePasswordHash(ctx context.Context, userID int64, hash string) error
}

// Option configures [Credentials].
type Option func(*Credentials)

// WithStore sets the store upgrades and password changes are written to.
func WithStore(s CredentialStore) Option { return func(c *Credentials) { c.store = s } }

// WithModernHasher replaces the default interactive Argon2id hasher.
func WithModernHasher(h Hasher) Option { return func(c *Credentials) { c.modern = h } }

// WithAdaptiveVerifier replaces [DefaultAdaptiveChain] for [LegacyAdaptive] hashes.
func WithAdaptiveVerifier(v Verifier) Option { return func(c *Credentials) { c.adaptive = v } }

// WithRehashOdds makes one in n successful modern verifications rehash.
// n <= 1 rehashes every time.
func WithRehashOdds(n int) Option { return func(c *Credentials) { c.odds = n } }

// WithSource overrides the random source used for salts and rehash rolls.
func WithSource(s *secret.Source) Option { return func(c *Credentials) { c.rnd = s } }

// WithLogger sets the logger.  The default is slog.Default().
func WithLogger(l *slog.Logger) Option { return func(c *Credentials) { c.logger = l } }

// WithMeter counts upgrades on meter under [RehashCounterName].
func WithMeter(m metric.Meter) Option { return func(c *Credentials) { c.meter = m } }

// Credentials hashes new passwords with the modern hasher and verifies
// stored hashes of every generation, upgrading them on successful login.
//
// Every method that takes a password wipes it before returning.
type Credentials struct {
	modern   Hasher
	fast     Verifier
	adaptive Verifier
	store    CredentialStore
	odds     int
	rnd      *secret.Source
	logger   *slog.Logger
	meter    metric.Meter
	rehashes metric.Int64Counter
}

// NewCredentials returns Credentials with the interactive Argon2id profile,
// the default adaptive chain and no store.
func NewCredentials(opts ...Option) (*Credentials, error) {
	c := &Credentials{
		fast:   LegacyFastVerifier{},
		odds:   DefaultRehashOdds,
		rnd:    secret.Default(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.modern == nil {
		h, err := NewArgon2idHasher(InteractiveArgon2Options(), c.rnd)
		if err != nil {
			return nil, err
		}
		c.modern = h
	}
	if c.adaptive == nil {
		c.adaptive = DefaultAdaptiveChain()
	}
	if c.meter != nil {
		counter, err := c.meter.Int64Counter(RehashCounterName,
			metric.WithDescription("Stored password hashes rewritten after a successful login."),
			metric.WithUnit("{rehash}"),
		)
		if err != nil {
			return nil, fmt.Errorf("hashing: creating rehash counter: %w", err)
		}
		c.rehashes = counter
	}
	return c, nil
}

// Hash returns a modern hash of password.
func (c *Credentials) Hash(password []byte) (string, error) {
	defer secret.Wipe(password)
	return c.modern.Make(password)
}

// Verify reports whether password matches stored.  It never upgrades and
// never fails: a malformed stored hash simply does not match.
func (c *Credentials) Verify(password []byte, stored string) bool {
	defer secret.Wipe(password)
	return c.check(Classify(stored), password, stored)
}

// VerifyUser reports whether password matches stored, the current hash of
// userID.  On success a legacy hash is always rewritten through the store; a
// modern one is rewritten with probability 1/odds.
//
// The error is non-nil only when an upgrade was due and could not be made; ok
// still carries the verification result.  A userID of 0 disables upgrades.
func (c *Credentials) VerifyUser(ctx context.Context, userID int64, password []byte, stored string) (bool, error) {
	defer secret.Wipe(password)

	gen := Classify(stored)
	if !c.check(gen, password, stored) {
		return false, nil
	}
	if userID == 0 {
		return true, nil
	}

	due, err := c.upgradeDue(gen)
	if err != nil {
		return true, fmt.Errorf("hashing: rolling rehash for user %d: %w", userID, err)
	}
	if !due {
		return true, nil
	}
	if c.store == nil {
		return true, ErrNoCredentialStore
	}

	hash, err := c.modern.Make(password)
	if err != nil {
		return true, fmt.Errorf("hashing: rehashing password of user %d: %w", userID, err)
	}
	if err := c.store.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return true, fmt.Errorf("hashing: persisting rehash of user %d: %w", userID, err)
	}
	if c.rehashes != nil {
		c.rehashes.Add(ctx, 1, metric.WithAttributes(attribute.String("from", gen.String())))
	}
	c.logger.InfoContext(ctx, "password rehashed", "user_id", userID, "from", gen.String())
	return true, nil
}

// SetPassword hashes password and stores it as the hash of userID.
func (c *Credentials) SetPassword(ctx context.Context, userID int64, password []byte) error {
	if c.store == nil {
		secret.Wipe(password)
		return ErrNoCredentialStore
	}
	hash, err := c.Hash(password)
	if err != nil {
		return fmt.Errorf("hashing: setting password of user %d: %w", userID, err)
	}
	if err := c.store.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("hashing: setting password of user %d: %w", userID, err)
	}
	return nil
}

// NeedsRehash reports whether stored is a legacy hash, or a modern hash whose
// parameters differ from the configured profile.  A malformed modern hash
// needs rehashing.
func (c *Credentials) NeedsRehash(stored string) bool {
	if Classify(stored) != Modern {
		return true
	}
	needs, err := c.modern.NeedsRehash(stored)
	return err != nil || needs
}

func (c *Credentials) check(gen Generation, password []byte, stored string) bool {
	var v Verifier
	switch gen {
	case LegacyFast:
		v = c.fast
	case Modern:
		v = c.modern
	default:
		v = c.adaptive
	}
	ok, err := v.Check(password, stored)
	if err != nil {
		c.logger.Debug("stored password hash rejected", "generation", gen.String(), "error", err)
		return false
	}
	return ok
}

func (c *Credentials) upgradeDue(gen Generation) (bool, error) {
	if gen != Modern || c.odds <= 1 {
		return true, nil
	}
	n, err := c.rnd.Int(0, int64(c.odds-1))
	if err != nil {
		return false, err
	}
	return n == 0, nil
}
