// Command mksalts prints a fresh set of operator constants.
//
// Each value is 64 random bytes, base64 encoded and then shuffled.  The yaml
// format is a "constants" section ready for the config file:
//
//	mksalts --format yaml >> unplugged.yaml
//	mksalts --format php --password-salt
package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/hasbyte1/go-unplugged/salt"
	"github.com/hasbyte1/go-unplugged/secret"
)

const rawLength = 64

type constant struct {
	Name  string
	Value string
}

func main() {
	flags := pflag.NewFlagSet("mksalts", pflag.ContinueOnError)
	format := flags.StringP("format", "f", "env", "output format: env, yaml or php")
	passwordSalt := flags.Bool("password-salt", false, "also print PASSWORD_SALT")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: mksalts [flags]\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	names := canonicalNames()
	if *passwordSalt {
		names = append(names, "PASSWORD_SALT")
	}
	consts, err := generate(secret.Default(), names)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mksalts: %v\n", err)
		os.Exit(1)
	}
	if err := render(os.Stdout, *format, consts); err != nil {
		fmt.Fprintf(os.Stderr, "mksalts: %v\n", err)
		os.Exit(2)
	}
}

// canonicalNames returns the eight key and salt constants of the canonical
// schemes, keys first.
func canonicalNames() []string {
	var keys, salts []string
	for _, scheme := range []string{salt.SchemeAuth, salt.SchemeSecureAuth, salt.SchemeLoggedIn, salt.SchemeNonce} {
		prefix := strings.ToUpper(scheme)
		keys = append(keys, prefix+"_KEY")
		salts = append(salts, prefix+"_SALT")
	}
	return append(keys, salts...)
}

func generate(src *secret.Source, names []string) ([]constant, error) {
	out := make([]constant, 0, len(names))
	for _, name := range names {
		raw, err := src.Bytes(rawLength)
		if err != nil {
			return nil, fmt.Errorf("generating %s: %w", name, err)
		}
		v, err := src.Shuffle(base64.StdEncoding.EncodeToString(raw))
		secret.Wipe(raw)
		if err != nil {
			return nil, fmt.Errorf("generating %s: %w", name, err)
		}
		out = append(out, constant{Name: name, Value: v})
	}
	return out, nil
}

func render(w io.Writer, format string, consts []constant) error {
	var line func(c constant) string
	switch format {
	case "env":
		line = func(c constant) string { return fmt.Sprintf("%s=%s\n", c.Name, c.Value) }
	case "yaml":
		if _, err := io.WriteString(w, "constants:\n"); err != nil {
			return err
		}
		line = func(c constant) string { return fmt.Sprintf("  %s: %q\n", c.Name, c.Value) }
	case "php":
		line = func(c constant) string { return fmt.Sprintf("define(%-19s '%s');\n", "'"+c.Name+"',", c.Value) }
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	for _, c := range consts {
		if _, err := io.WriteString(w, line(c)); err != nil {
			return err
		}
	}
	return nil
}
