// Package store provides persistence for Pinch.
//
// DB is a bbolt database with CBOR-encoded records:
//   - connections, keyed by peer address
//   - messages, keyed by message ID
//   - the relay key registry (pending claims and approved keys)
//
// Record updates go through UpdateConnection and UpdateMessage, which run the
// caller's transition function inside one write transaction so that the read,
// the transition, its side effects and the write commit or fail together.
//
// IdentityFileStore keeps the local Ed25519 identity in a single file sealed
// with scrypt and ChaCha20-Poly1305, written atomically.
package store
