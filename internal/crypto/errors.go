package crypto

import "errors"

var (
	// ErrNotInitialized is returned by methods on a nil or zero Suite.
	ErrNotInitialized = errors.New("crypto: suite not initialised")
	// ErrInvalidKeyFormat is returned for keys of the wrong length or
	// public keys that do not decode to a usable Ed25519 point.
	ErrInvalidKeyFormat = errors.New("crypto: invalid key format")
	// ErrAuthenticationFailed is returned when a box or signature does not
	// verify, including inputs too short to contain a nonce and tag.
	ErrAuthenticationFailed = errors.New("crypto: authentication failed")
)
