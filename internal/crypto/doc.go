// Package crypto exposes the primitives Pinch builds on.
//
// Contents
//
//   - Ed25519 to X25519 key conversion (ConvertPublicKey, ConvertPrivateKey,
//     ConvertIdentity)
//   - NaCl crypto_box authenticated encryption with a random nonce prefixed
//     to the ciphertext (Seal, Open)
//   - Ed25519 key generation, signing and verification
//   - Short public-key fingerprints for display/logging (Fingerprint)
//
// # Initialisation
//
// Every operation is a method on *Suite, obtained from Init. Init runs a
// known-answer self test once per process; concurrent and repeated calls
// return the same handle. A nil Suite reports ErrNotInitialized.
//
// SealWithFixedNonce exists to reproduce published vectors. It takes a
// FixedNonce so that call sites reusing a nonce are easy to find.
package crypto
