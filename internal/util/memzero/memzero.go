// Package memzero wipes key material once it is no longer needed.
package memzero

import "runtime"

// Zero overwrites b with zeros.
func Zero(b []byte) {
	clear(b)
	// Keep the write from being treated as dead.
	runtime.KeepAlive(b)
}

// Key wipes a 32-byte key in place.
func Key(k *[32]byte) {
	Zero(k[:])
}
