package avatar

import (
	"errors"
	"fmt"
	"html"
)

var (
	// ErrInvalidDomain is matched by an [*InputError] for a rejected domain.
	ErrInvalidDomain = errors.New("avatar: invalid domain")

	// ErrInvalidEmail is matched by an [*InputError] for a rejected address.
	ErrInvalidEmail = errors.New("avatar: invalid e-mail address")

	// ErrSaltTooShort is returned by [Engine.SetCustomSalts] for a salt
	// shorter than [MinCustomSaltLength].
	ErrSaltTooShort = errors.New("avatar: custom salt too short")

	// ErrSaltPair is returned by [Engine.SetCustomSalts] when only one salt
	// is supplied.
	ErrSaltPair = errors.New("avatar: custom salts must be supplied in pairs")
)

// InputError reports a whitelist entry or address that failed validation.
// Input is the value exactly as the caller supplied it.
type InputError struct {
	Kind  error
	Input string
}

func (e *InputError) Error() string {
	if e.Kind == ErrInvalidDomain {
		return fmt.Sprintf("avatar: the supplied domain %q is not a valid domain name", e.Input)
	}
	return fmt.Sprintf("avatar: the supplied e-mail address %q is not a valid e-mail address", e.Input)
}

func (e *InputError) Unwrap() error { return e.Kind }

// HTML renders the message for an admin page with Input escaped.
func (e *InputError) HTML() string {
	in := html.EscapeString(e.Input)
	if e.Kind == ErrInvalidDomain {
		return "The supplied domain <code>" + in + "</code> is not a valid domain name."
	}
	return "The supplied e-mail address <code>" + in + "</code> is not a valid e-mail address."
}

func invalidDomain(in string) error { return &InputError{Kind: ErrInvalidDomain, Input: in} }
func invalidEmail(in string) error  { return &InputError{Kind: ErrInvalidEmail, Input: in} }
