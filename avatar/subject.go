package avatar

import "context"

// Subject identifies whose avatar is wanted.  It is one of [UserID],
// [Email] or [HostObject].
type Subject interface {
	subject()
}

// UserID is a host user identifier.
type UserID int64

// Email is an e-mail address.
type Email string

// HostObject wraps a host record, such as a comment or post, that only the
// host's [Resolver] understands.
type HostObject struct {
	Value any
}

func (UserID) subject()     {}
func (Email) subject()      {}
func (HostObject) subject() {}

// Resolver maps a subject to an e-mail address.  It returns "" when the
// subject has no address.
type Resolver interface {
	ResolveEmail(ctx context.Context, s Subject) (string, error)
}

// ResolverFunc adapts a function to [Resolver].
type ResolverFunc func(ctx context.Context, s Subject) (string, error)

// ResolveEmail implements [Resolver].
func (fn ResolverFunc) ResolveEmail(ctx context.Context, s Subject) (string, error) {
	return fn(ctx, s)
}

// EmailResolver resolves [Email] subjects to themselves and every other
// subject to no address.
var EmailResolver Resolver = ResolverFunc(func(_ context.Context, s Subject) (string, error) {
	if e, ok := s.(Email); ok {
		return string(e), nil
	}
	return "", nil
})
