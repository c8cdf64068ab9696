// Package nonce issues and verifies anti-forgery tokens.
//
// [Service] produces stateless tokens bound to an action, a user and a
// session, valid for the current and the previous tick.  A tick is half the
// configured lifetime, so a token lives between one and two half-windows.
//
// [SessionNonces] produces single-use tokens recorded in a session bucket.
//
// # Known limitation
//
// The hashed input joins tick, action, user and session with "|" without
// escaping.  An action containing "|" can collide with a different
// action/user pair; callers should not put the delimiter in action names.
package nonce

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/hasbyte1/go-unplugged/secret"
)

const (
	// DefaultLifetime is the nominal token lifetime (two ticks).
	DefaultLifetime = 10800 * time.Second

	// DefaultAction is used by callers that do not name an action.
	DefaultAction = "-1"

	// Scheme is the salt scheme tokens are keyed with.
	Scheme = "nonce"
)

// Result is the outcome of [Service.Verify].  The numeric values match the
// legacy 1/2/false convention.
type Result int

const (
	// Invalid means the token matched neither tick.
	Invalid Result = iota
	// ValidFresh means the token was issued during the current tick.
	ValidFresh
	// ValidStale means the token was issued during the previous tick.
	ValidStale
)

// Valid reports whether r is [ValidFresh] or [ValidStale].
func (r Result) Valid() bool { return r == ValidFresh || r == ValidStale }

func (r Result) String() string {
	switch r {
	case ValidFresh:
		return "valid_fresh"
	case ValidStale:
		return "valid_stale"
	default:
		return "invalid"
	}
}

// Hasher keys data with the salt of a scheme.  *salt.Manager implements it.
type Hasher interface {
	Hash(ctx context.Context, data, scheme string) (string, error)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to [Clock].
type ClockFunc func() time.Time

// Now implements [Clock].
func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Session is the caller's current user and session.
type Session interface {
	// CurrentUserID returns 0 for anonymous visitors.
	CurrentUserID() int64
	SessionToken() string
}

// Tick returns ceil(now / (lifetime/2)) in whole seconds since the epoch.
func Tick(now time.Time, lifetime time.Duration) int64 {
	half := lifetime.Seconds() / 2
	return int64(math.Ceil(float64(now.Unix()) / half))
}

// Service creates and verifies tick-windowed tokens.  It is safe for
// concurrent use when its Hasher and Auditor are.
type Service struct {
	hasher Hasher
	opts   options
}

// New returns a Service keyed through h.
func New(h Hasher, opts ...Option) (*Service, error) {
	if h == nil {
		return nil, ErrNilHasher
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.lifetime < 2*time.Second {
		return nil, fmt.Errorf("%w: lifetime %s", ErrInvalidLifetime, o.lifetime)
	}
	if o.auditor == nil {
		o.auditor = LogAuditor(o.logger)
	}
	return &Service{hasher: h, opts: o}, nil
}

// Lifetime returns the configured nominal lifetime.
func (s *Service) Lifetime() time.Duration { return s.opts.lifetime }

// Tick returns the current tick.
func (s *Service) Tick() int64 { return Tick(s.opts.clock.Now(), s.opts.lifetime) }

// Create returns the token for action, userID and sessionToken at the
// current tick.
func (s *Service) Create(ctx context.Context, action string, userID int64, sessionToken string) (string, error) {
	return s.token(ctx, s.Tick(), action, s.uid(userID, action), sessionToken)
}

// CreateFor is [Service.Create] for the user and session of sess.
func (s *Service) CreateFor(ctx context.Context, action string, sess Session) (string, error) {
	return s.Create(ctx, action, sess.CurrentUserID(), sess.SessionToken())
}

// Verify checks token against the current and the previous tick.  A
// mismatch is not an error: it yields [Invalid] and is reported to the
// configured [Auditor].  The error is non-nil only when hashing failed.
func (s *Service) Verify(ctx context.Context, token, action string, userID int64, sessionToken string) (Result, error) {
	uid := s.uid(userID, action)
	tick := s.Tick()

	for _, c := range []struct {
		tick   int64
		result Result
	}{
		{tick, ValidFresh},
		{tick - 1, ValidStale},
	} {
		expected, err := s.token(ctx, c.tick, action, uid, sessionToken)
		if err != nil {
			return Invalid, err
		}
		if subtle.ConstantTimeCompare([]byte(expected), []byte(token)) == 1 {
			return c.result, nil
		}
	}

	s.opts.auditor.NonceFailed(ctx, Failure{
		Token:        token,
		Action:       action,
		UserID:       uid,
		SessionToken: sessionToken,
		At:           s.opts.clock.Now(),
	})
	return Invalid, nil
}

// VerifyFor is [Service.Verify] for the user and session of sess.
func (s *Service) VerifyFor(ctx context.Context, token, action string, sess Session) (Result, error) {
	return s.Verify(ctx, token, action, sess.CurrentUserID(), sess.SessionToken())
}

func (s *Service) uid(userID int64, action string) int64 {
	if userID == 0 && s.opts.loggedOutUID != nil {
		return s.opts.loggedOutUID(action)
	}
	return userID
}

func (s *Service) token(ctx context.Context, tick int64, action string, uid int64, sessionToken string) (string, error) {
	input := fmt.Sprintf("%d|%s|%d|%s", tick, action, uid, sessionToken)
	h, err := s.hasher.Hash(ctx, input, Scheme)
	if err != nil {
		return "", fmt.Errorf("nonce: hashing: %w", err)
	}
	return alphanumeric(h), nil
}

// alphanumeric drops every byte outside [A-Za-z0-9].
func alphanumeric(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return -1
		}
	}, s)
}

// ──────────────────────────────────────────────────────────────────────────────
// Options
// ──────────────────────────────────────────────────────────────────────────────

type options struct {
	lifetime     time.Duration
	sessionTTL   time.Duration
	clock        Clock
	auditor      Auditor
	logger       *slog.Logger
	loggedOutUID func(action string) int64
	source       *secret.Source
}

func defaultOptions() options {
	return options{
		lifetime:   DefaultLifetime,
		sessionTTL: DefaultLifetime,
		clock:      systemClock{},
		logger:     slog.Default(),
		source:     secret.Default(),
	}
}

// Option configures a [Service] or [SessionNonces].
type Option func(*options)

// WithLifetime sets the nominal token lifetime (two ticks).
func WithLifetime(d time.Duration) Option { return func(o *options) { o.lifetime = d } }

// WithSessionTTL sets the default expiry of session nonces.
func WithSessionTTL(d time.Duration) Option { return func(o *options) { o.sessionTTL = d } }

// WithClock replaces the wall clock.
func WithClock(c Clock) Option { return func(o *options) { o.clock = c } }

// WithAuditor receives every failed verification.  The default logs them.
func WithAuditor(a Auditor) Option { return func(o *options) { o.auditor = a } }

// WithLogger sets the logger used by the default auditor.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithSource overrides the random source behind session nonces.
func WithSource(src *secret.Source) Option { return func(o *options) { o.source = src } }

// WithLoggedOutUID substitutes a user ID for anonymous callers, per action.
func WithLoggedOutUID(f func(action string) int64) Option {
	return func(o *options) { o.loggedOutUID = f }
}
