// Package identity manages creation, encryption and loading of the local identity.
//
// It enforces passphrase policy, generates the Ed25519 signing key pair,
// derives the agent address from it, and persists it via the
// domain.IdentityStore. X25519 keys are never stored; they are derived from
// the signing key when needed.
package identity
