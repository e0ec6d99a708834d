// Package connection drives the peer connection lifecycle: outbound requests,
// operator approval or rejection of inbound requests, and the envelopes a
// peer sends about the connection.
//
// Every transition is computed by protocol/connection and committed through
// domain.ConnectionStore.UpdateConnection. Envelopes a transition requires are
// sent inside the update, so a failed send leaves the stored record unchanged.
package connection
