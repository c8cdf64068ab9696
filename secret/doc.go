// Package secret generates cryptographically strong random material: raw
// bytes, unbiased integers, base64 salts and nonces, and passwords.
//
// Every function reads from crypto/rand unless a [Source] bound to another
// reader is used.  An RNG failure is always reported as an error wrapping
// [ErrEntropy]; no weaker fallback is ever substituted.
//
// # Quick start
//
//	salt, err := secret.SaltShaker()       // 44-char base64, 32 random bytes
//	nonce, err := secret.Nonce(16)         // 24-char base64
//	pw, err := secret.Password(secret.DefaultPasswordOptions())
//
// Buffers holding key or password bytes should be cleared with [Wipe] as
// soon as they are no longer needed.
package secret
