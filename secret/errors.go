package secret

import "errors"

// ErrEntropy is returned (wrapped) when the random source cannot supply the
// requested bytes.  The operation must be aborted.
//
//	if errors.Is(err, secret.ErrEntropy) {
//	    // RNG unavailable
//	}
var ErrEntropy = errors.New("secret: random source unavailable")
