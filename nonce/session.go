package nonce

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

// DefaultSessionAction buckets session nonces created without an action.
const DefaultSessionAction = "generic"

// Bucket stores per-action maps of token to expiry (Unix seconds) in the
// caller's session.
type Bucket interface {
	Get(ctx context.Context, key string) (map[string]int64, bool, error)
	Set(ctx context.Context, key string, tokens map[string]int64) error
}

// Consumer is implemented by buckets that can check and invalidate a token
// in one atomic step.
type Consumer interface {
	// Consume reports whether token in bucket key has an expiry of at least
	// now, and if so overwrites the expiry with 0.
	Consume(ctx context.Context, key, token string, now int64) (bool, error)
}

// Adder is implemented by buckets that can record a token in one atomic
// step.  Buckets that also implement [Consumer] should implement Adder, or a
// Create racing a Verify may write back a token that was just consumed.
type Adder interface {
	// Add stores token with expiry expires in bucket key, and drops every
	// other entry whose expiry is before now.
	Add(ctx context.Context, key, token string, expires, now int64) error
}

// BucketKey returns the bucket name for action: trimmed, lower-cased,
// "generic" when empty, followed by "_nonces".
func BucketKey(action string) string {
	action = strings.ToLower(strings.TrimSpace(action))
	if action == "" {
		action = DefaultSessionAction
	}
	return action + "_nonces"
}

// SessionNonces issues single-use tokens stored in a session [Bucket].
type SessionNonces struct {
	bucket Bucket
	opts   options
}

// NewSessionNonces returns a SessionNonces over b.  Only [WithClock],
// [WithSource] and [WithSessionTTL] apply.
func NewSessionNonces(b Bucket, opts ...Option) (*SessionNonces, error) {
	if b == nil {
		return nil, ErrNilBucket
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &SessionNonces{bucket: b, opts: o}, nil
}

// Create records a fresh 16-byte token for action that expires after ttl
// (the configured session TTL when ttl <= 0).  Expired and already consumed
// entries in the bucket are dropped.
func (s *SessionNonces) Create(ctx context.Context, ttl time.Duration, action string) (string, error) {
	if ttl <= 0 {
		ttl = s.opts.sessionTTL
	}
	key := BucketKey(action)
	now := s.opts.clock.Now().Unix()

	token, err := s.opts.source.Nonce(16)
	if err != nil {
		return "", fmt.Errorf("nonce: generating session nonce: %w", err)
	}

	expires := now + int64(ttl/time.Second)

	if a, ok := s.bucket.(Adder); ok {
		if err := a.Add(ctx, key, token, expires, now); err != nil {
			return "", fmt.Errorf("nonce: adding to bucket %q: %w", key, err)
		}
		return token, nil
	}

	tokens, _, err := s.bucket.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("nonce: reading bucket %q: %w", key, err)
	}
	tokens = lo.PickBy(tokens, func(_ string, exp int64) bool { return exp >= now })
	tokens[token] = expires

	if err := s.bucket.Set(ctx, key, tokens); err != nil {
		return "", fmt.Errorf("nonce: writing bucket %q: %w", key, err)
	}
	return token, nil
}

// Verify reports whether token is a live entry of action's bucket, and
// invalidates it on success so it cannot be used again.
func (s *SessionNonces) Verify(ctx context.Context, token, action string) (bool, error) {
	if token == "" {
		return false, nil
	}
	key := BucketKey(action)
	now := s.opts.clock.Now().Unix()

	if c, ok := s.bucket.(Consumer); ok {
		ok, err := c.Consume(ctx, key, token, now)
		if err != nil {
			return false, fmt.Errorf("nonce: consuming from bucket %q: %w", key, err)
		}
		return ok, nil
	}

	tokens, ok, err := s.bucket.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("nonce: reading bucket %q: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	expires, ok := tokens[token]
	if !ok || expires < now {
		return false, nil
	}
	tokens[token] = 0
	if err := s.bucket.Set(ctx, key, tokens); err != nil {
		return false, fmt.Errorf("nonce: writing bucket %q: %w", key, err)
	}
	return true, nil
}
