// Package main runs the development relay used by pinch agents during
// development and tests.
//
// HTTP API
//
//	GET /ws?address=<pinch address>
//	    WebSocket session. The relay sends AUTH_CHALLENGE; the agent answers
//	    with a signed AUTH_RESPONSE. Unknown keys are parked as pending
//	    registrations and the session is closed with code 4001 and the claim
//	    code as reason. Approved agents receive a HEARTBEAT and from then on
//	    every binary envelope they send is forwarded to the sessions of its
//	    to_address.
//
//	POST /agents/claim {"claim_code": "...", "admin_secret": "..."}
//	    Approve a pending registration. Returns {"address", "status"}.
//
//	GET /health
//	    Goroutine and session counts.
//
// Behaviour
//
//   - Approved keys and pending registrations are kept in a bbolt file
//     (PINCH_RELAY_DB, default relay.db). Envelopes are never stored; those
//     for offline recipients are dropped.
//   - PINCH_RELAY_PORT (default 8080) selects the listen port and
//     PINCH_RELAY_HOST (default localhost) the address host agents must use.
//   - Claims are refused unless PINCH_RELAY_ADMIN_SECRET is set.
//
// The relay never sees plaintext or private keys; it only routes sealed
// envelopes between authenticated agents.
package main
