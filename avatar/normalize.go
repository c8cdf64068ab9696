package avatar

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/net/idna"
)

var validate = validator.New()

// DomainToASCII lower-cases domain and converts it to its IDNA ASCII form.
// Input that cannot be converted is returned trimmed and lower-cased.
func DomainToASCII(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if a, err := idna.Lookup.ToASCII(domain); err == nil {
		return a
	}
	return domain
}

// DomainToUnicode converts an IDNA ASCII domain back to Unicode for display.
// Input that cannot be converted is returned unchanged.
func DomainToUnicode(domain string) string {
	if u, err := idna.Lookup.ToUnicode(domain); err == nil {
		return u
	}
	return domain
}

// NormalizeEmail trims and lower-cases address and converts its domain part
// to ASCII.  Strings without exactly one "@" are only trimmed and lower-cased.
func NormalizeEmail(address string) string {
	address = strings.ToLower(strings.TrimSpace(address))
	if strings.Count(address, "@") != 1 {
		return address
	}
	local, domain, _ := strings.Cut(address, "@")
	return local + "@" + DomainToASCII(domain)
}

func validEmail(address string) bool {
	return validate.Var(address, "required,email") == nil
}

func validDomain(domain string) bool {
	return validEmail("user@" + domain)
}
