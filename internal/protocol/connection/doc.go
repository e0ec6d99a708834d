// Package connection holds the connection lifecycle as a pure transition
// function.
//
// States: none -> pending_inbound | pending_outbound -> active -> revoked,
// with pending_inbound -> revoked on rejection and pending_outbound -> revoked
// when the peer declines or the request is withdrawn. A request arriving while
// our own request to the same peer is pending makes the connection active.
// revoked is terminal.
//
// Apply never performs I/O. The effects it returns (at most one outbound
// CONNECTION_RESPONSE) are executed by the caller in the same store update
// that persists the new state, so an approval is persisted and announced
// exactly once.
package connection
