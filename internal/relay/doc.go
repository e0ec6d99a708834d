// Package relay talks to a Pinch relay and implements a development relay.
//
// The relay is a store-nothing router for envelopes between connected
// agents. Agents hold a WebSocket session to it (Session) and prove
// ownership of their address by signing the relay's AUTH_CHALLENGE. Keys the
// relay has not seen before are parked as pending registrations until an
// operator redeems the claim code through the HTTP administration surface
// (HTTPClient.Claim).
//
// Server is the development relay served by cmd/relay. It keeps approved
// keys in a domain.KeyRegistry and drops envelopes for recipients that are
// not connected.
package relay
