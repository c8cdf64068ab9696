// Package urlargs edits the query string of a URL without reordering it.
package urlargs

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/samber/lo"
)

// Arg is one query parameter.
type Arg struct {
	Key   string
	Value string
}

// Modify applies set and remove to the query of rawURL.
//
// Existing parameters keep their position.  A key in set replaces the value
// in place when present and is appended otherwise, in the order given.  Keys
// in remove are dropped after set is applied.  An empty path becomes "/".
func Modify(rawURL string, set []Arg, remove []string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("urlargs: parsing %q: %w", rawURL, err)
	}
	args, err := Parse(u.RawQuery)
	if err != nil {
		return "", fmt.Errorf("urlargs: parsing query of %q: %w", rawURL, err)
	}

	for _, a := range set {
		_, i, found := lo.FindIndexOf(args, func(e Arg) bool { return e.Key == a.Key })
		if found {
			args[i].Value = a.Value
			continue
		}
		args = append(args, a)
	}
	if len(remove) > 0 {
		args = lo.Reject(args, func(e Arg, _ int) bool { return lo.Contains(remove, e.Key) })
	}

	if u.Path == "" && u.Opaque == "" {
		u.Path = "/"
	}
	u.RawQuery = Encode(args)
	u.ForceQuery = false
	return u.String(), nil
}

// Parse splits a raw query into its parameters in order.  Repeated keys are
// kept; a key without "=" has an empty value.
func Parse(rawQuery string) ([]Arg, error) {
	var args []Arg
	for _, part := range strings.Split(rawQuery, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, err
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return nil, err
		}
		args = append(args, Arg{Key: key, Value: value})
	}
	return args, nil
}

// Encode joins args into a query string in order.
func Encode(args []Arg) string {
	var b strings.Builder
	for i, a := range args {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(a.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(a.Value))
	}
	return b.String()
}
