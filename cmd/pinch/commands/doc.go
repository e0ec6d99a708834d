// Package commands defines the pinch CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init        Create the local identity
//   - whoami      Print the local address and fingerprint
//   - connect     Ask a peer to connect
//   - accept      Approve a pending connection request
//   - reject      Decline a pending connection request
//   - contacts    List connections
//   - send        Encrypt and send a message to a connected peer
//   - status      Print the delivery state of a message
//   - history     List stored messages
//   - listen      Hold a relay session and process inbound envelopes
//   - claim       Approve a pending agent registration (relay operator)
//
// The binary also answers to pinch-<command> names, so a link named
// pinch-accept runs "pinch accept".
//
// # Output
//
// Agent-facing commands write one JSON object per line to standard output
// and report failures as {"error": "..."} on standard error with exit code 1.
// init, whoami and claim write plain text.
package commands
