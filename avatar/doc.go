// Package avatar builds avatar URLs without revealing the e-mail addresses
// behind them.
//
// Avatar services key images by the MD5 of an address, which is trivially
// reversed for known addresses.  [Engine.MimicHash] instead returns a salted,
// double SHA-256 value of the same length, so the URL still has the expected
// shape but cannot be linked to the address.  Addresses and domains on the
// whitelist keep the plain MD5 so their owners' avatars still appear.
//
//	e, err := avatar.Load(ctx, options)
//	if err != nil { return err }
//	_, err = e.AddDomain("example.org")
//	url := e.URL(ctx, avatar.Email("crazy@test.example.org"), avatar.Args{Size: 64})
//
// Domains are stored in IDNA ASCII form; use [DomainToUnicode] to display
// them.
package avatar
