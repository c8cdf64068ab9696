// Package unplugged wires the security core of a host application: salts,
// nonces, password credentials and privacy-preserving avatars.
//
// [New] takes the collaborators explicitly; [Open] builds them from the
// store section of a [config.Config].
//
//	cfg, err := config.Load("unplugged.yaml")
//	...
//	u, err := unplugged.Open(ctx, cfg)
//	...
//	defer u.Close()
//
//	tok, _ := u.Nonces.Create(ctx, "delete-post", userID, sessionToken)
package unplugged

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/hasbyte1/go-unplugged/avatar"
	"github.com/hasbyte1/go-unplugged/config"
	"github.com/hasbyte1/go-unplugged/hashing"
	"github.com/hasbyte1/go-unplugged/nonce"
	"github.com/hasbyte1/go-unplugged/salt"
	"github.com/hasbyte1/go-unplugged/secret"
	"github.com/hasbyte1/go-unplugged/store"
	"github.com/hasbyte1/go-unplugged/store/inmemory"
	"github.com/hasbyte1/go-unplugged/store/pgstore"
	"github.com/hasbyte1/go-unplugged/store/redisstore"
)

// MeterName is the instrumentation scope used when [Deps.Meter] is nil.
const MeterName = "github.com/hasbyte1/go-unplugged"

var (
	// ErrNoStore is returned by [New] without [Deps.KV].
	ErrNoStore = errors.New("unplugged: a key-value store is required")

	// ErrUnknownDriver is returned by [Open] for an unsupported store driver.
	ErrUnknownDriver = errors.New("unplugged: unknown store driver")
)

// Deps are the host collaborators.  Only KV is required.
type Deps struct {
	// KV persists generated secrets and the avatar whitelist.
	KV store.KeyValueStore

	// Sessions returns the nonce bucket of a session.  Nil keeps buckets in
	// memory.
	Sessions func(sessionID string) nonce.Bucket

	// Credentials receives upgraded password hashes.  Nil disables upgrades.
	Credentials hashing.CredentialStore

	// Resolver maps avatar subjects to addresses.  Nil resolves e-mail
	// subjects only.
	Resolver avatar.Resolver

	// Meter counts nonce failures and password rehashes.  Nil uses the
	// global meter provider.
	Meter metric.Meter

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Source defaults to crypto/rand.
	Source *secret.Source
}

// Unplugged holds the wired services.
type Unplugged struct {
	Salts     *salt.Manager
	Nonces    *nonce.Service
	Passwords *hashing.Credentials
	Avatars   *avatar.Engine

	sessions  func(sessionID string) nonce.Bucket
	nonceOpts []nonce.Option
	closers   []func()
	closeOnce sync.Once
}

// New wires every service from cfg and deps.  The avatar engine is loaded
// from deps.KV, so New performs I/O.
func New(ctx context.Context, cfg *config.Config, deps Deps) (*Unplugged, error) {
	if deps.KV == nil {
		return nil, ErrNoStore
	}
	if cfg == nil {
		var err error
		if cfg, err = config.Default(); err != nil {
			return nil, err
		}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Meter == nil {
		deps.Meter = otel.Meter(MeterName)
	}
	if deps.Source == nil {
		deps.Source = secret.Default()
	}
	if deps.Sessions == nil {
		deps.Sessions = memorySessions()
	}

	salts, err := salt.New(cfg.Constants, deps.KV,
		salt.WithSource(deps.Source),
		salt.WithLogger(deps.Logger),
	)
	if err != nil {
		return nil, err
	}

	metricAuditor, err := nonce.NewMetricAuditor(deps.Meter)
	if err != nil {
		return nil, err
	}
	nonceOpts := []nonce.Option{
		nonce.WithLifetime(cfg.Nonce.Lifetime),
		nonce.WithSessionTTL(cfg.Nonce.SessionTTL),
		nonce.WithAuditor(nonce.MultiAuditor(nonce.LogAuditor(deps.Logger), metricAuditor)),
		nonce.WithLogger(deps.Logger),
		nonce.WithSource(deps.Source),
	}
	nonces, err := nonce.New(salts, nonceOpts...)
	if err != nil {
		return nil, err
	}

	modern, err := hashing.NewArgon2idHasher(cfg.Password.Argon2Options(), deps.Source)
	if err != nil {
		return nil, err
	}
	credOpts := []hashing.Option{
		hashing.WithModernHasher(modern),
		hashing.WithRehashOdds(cfg.Password.RehashOdds),
		hashing.WithSource(deps.Source),
		hashing.WithLogger(deps.Logger),
		hashing.WithMeter(deps.Meter),
	}
	if deps.Credentials != nil {
		credOpts = append(credOpts, hashing.WithStore(deps.Credentials))
	}
	passwords, err := hashing.NewCredentials(credOpts...)
	if err != nil {
		return nil, err
	}

	avOpts := []avatar.Option{
		avatar.WithBaseURL(cfg.Avatar.BaseURL),
		avatar.WithDefaultAvatar(cfg.Avatar.Default),
		avatar.WithRating(cfg.Avatar.Rating),
		avatar.WithSource(deps.Source),
		avatar.WithLogger(deps.Logger),
	}
	if deps.Resolver != nil {
		avOpts = append(avOpts, avatar.WithResolver(deps.Resolver))
	}
	avatars, err := avatar.Load(ctx, deps.KV, avOpts...)
	if err != nil {
		return nil, err
	}
	_, errs := avatars.AddDomains(strings.Join(cfg.Avatar.Domains, ";"))
	_, addrErrs := avatars.AddEmailAddresses(strings.Join(cfg.Avatar.Addresses, ";"))
	for _, err := range append(errs, addrErrs...) {
		deps.Logger.WarnContext(ctx, "avatar whitelist entry skipped", "source", "config", "error", err)
	}

	return &Unplugged{
		Salts:     salts,
		Nonces:    nonces,
		Passwords: passwords,
		Avatars:   avatars,
		sessions:  deps.Sessions,
		nonceOpts: nonceOpts,
	}, nil
}

// Open builds the store adapters named by cfg.Store and calls [New].  The
// postgres driver migrates its tables first.  Close releases the
// connections.
func Open(ctx context.Context, cfg *config.Config) (*Unplugged, error) {
	if cfg == nil {
		var err error
		if cfg, err = config.Default(); err != nil {
			return nil, err
		}
	}

	var (
		deps    Deps
		closers []func()
	)
	switch cfg.Store.Driver {
	case "", config.DriverMemory:
		deps.KV = inmemory.New()
		deps.Credentials = inmemory.NewCredentials()

	case config.DriverRedis:
		client, err := redisstore.Open(ctx, cfg.Store.RedisURL)
		if err != nil {
			return nil, err
		}
		closers = append(closers, func() { _ = client.Close() })
		prefix := cfg.Store.RedisPrefix
		deps.KV = redisstore.New(client, prefix)
		deps.Sessions = func(id string) nonce.Bucket {
			return redisstore.NewBucket(client, id, redisstore.WithPrefix(prefix), redisstore.WithTTL(cfg.Nonce.SessionTTL))
		}

	case config.DriverPostgres:
		pool, err := pgstore.Open(ctx, cfg.Store.PostgresURL)
		if err != nil {
			return nil, err
		}
		closers = append(closers, pool.Close)
		if err := pgstore.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		deps.KV = pgstore.New(pool)
		deps.Credentials = pgstore.NewCredentials(pool)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Store.Driver)
	}

	u, err := New(ctx, cfg, deps)
	if err != nil {
		for _, c := range closers {
			c()
		}
		return nil, err
	}
	u.closers = closers
	return u, nil
}

// SessionNonces returns the single-use nonce issuer for sessionID.
func (u *Unplugged) SessionNonces(sessionID string) (*nonce.SessionNonces, error) {
	return nonce.NewSessionNonces(u.sessions(sessionID), u.nonceOpts...)
}

// Close releases connections opened by [Open].  It is safe to call more
// than once.
func (u *Unplugged) Close() error {
	u.closeOnce.Do(func() {
		for _, c := range u.closers {
			c()
		}
	})
	return nil
}

// memorySessions keeps one in-memory bucket per session ID for the life of
// the process.
func memorySessions() func(string) nonce.Bucket {
	var (
		mu       sync.Mutex
		sessions = map[string]*inmemory.Sessions{}
	)
	return func(id string) nonce.Bucket {
		mu.Lock()
		defer mu.Unlock()
		s, ok := sessions[id]
		if !ok {
			s = inmemory.NewSessions()
			sessions[id] = s
		}
		return s
	}
}
