// Package message sends and receives encrypted messages.
//
// It seals plaintext with keys converted from both parties' Ed25519
// identities, tracks each message through the delivery state machine, and
// answers inbound messages with signed delivery confirmations.
package message
