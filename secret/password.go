package secret

import "strings"

// MinPasswordLength is the shortest password [Source.Password] produces.
const MinPasswordLength = 12

const (
	alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	specialChars = "!@#$%^&*()"
	extraChars   = "-_ []{}<>~`+=,.;:/?|"
)

// PasswordOptions controls the alphabet and length of generated passwords.
type PasswordOptions struct {
	// Length is the number of characters to draw.  Values below
	// [MinPasswordLength] are raised to it.
	Length int

	// Special adds !@#$%^&*() to the alphabet.
	Special bool

	// ExtraSpecial adds the extended punctuation set to the alphabet.
	ExtraSpecial bool
}

// DefaultPasswordOptions returns 12 characters with the basic special set.
func DefaultPasswordOptions() PasswordOptions {
	return PasswordOptions{Length: MinPasswordLength, Special: true}
}

// Alphabet returns the character set selected by opts, before shuffling.
func (opts PasswordOptions) Alphabet() string {
	var b strings.Builder
	b.WriteString(alphanumeric)
	if opts.Special {
		b.WriteString(specialChars)
	}
	if opts.ExtraSpecial {
		b.WriteString(extraChars)
	}
	return b.String()
}

// Password generates a random password.  The alphabet is shuffled first, then
// each character is drawn independently with [Source.Int].
func (s *Source) Password(opts PasswordOptions) (string, error) {
	length := max(opts.Length, MinPasswordLength)

	alphabet, err := s.Shuffle(opts.Alphabet())
	if err != nil {
		return "", err
	}

	top := int64(len(alphabet) - 1)
	out := make([]byte, length)
	for i := range out {
		idx, err := s.Int(0, top)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[idx]
	}
	return string(out), nil
}

// Password generates a random password from the default source.
func Password(opts PasswordOptions) (string, error) { return defaultSource.Password(opts) }
