// Package hashing stores and verifies user passwords across three
// generations of hash formats, oldest first:
//
//   - [LegacyFast]: a bare 32-character MD5 hex digest.
//   - [LegacyAdaptive]: phpass portable ($P$, $H$), bcrypt ($2a$, $2b$, $2y$)
//     or Argon2i.
//   - [Modern]: Argon2id in PHC format, produced by [Argon2idHasher] with the
//     interactive profile.
//
// [Classify] decides the generation from the hash prefix alone.  Each driver
// implements [Verifier], and those that can produce hashes implement [Hasher].
//
// # Upgrading on login
//
// [Credentials] always writes modern hashes.  [Credentials.VerifyUser]
// rewrites a legacy hash after every successful login and a modern one after
// roughly one in five, so tightened cost parameters spread across the user
// base gradually:
//
//	creds, err := hashing.NewCredentials(hashing.WithStore(users))
//	if err != nil { return err }
//
//	ok, err := creds.VerifyUser(ctx, user.ID, []byte(form.Password), user.PasswordHash)
//	if err != nil {
//	    log.Warn("password upgrade failed", "error", err) // ok is still valid
//	}
//
// Verification never fails on a malformed stored hash; it reports a
// mismatch.
//
// # Argon2 hash format
//
//	$argon2id$v=19$m=65536,t=2,p=1$<base64-salt>$<base64-hash>
//
// All parameters are self-contained in the string, so previously produced
// hashes verify after the configured profile changes.
package hashing
