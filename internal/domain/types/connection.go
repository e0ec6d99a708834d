package types

import "time"

// ConnectionState is the lifecycle state of a peer connection.
type ConnectionState string

const (
	// ConnectionNone is the state of a peer with no stored record.
	ConnectionNone            ConnectionState = ""
	ConnectionPendingInbound  ConnectionState = "pending_inbound"
	ConnectionPendingOutbound ConnectionState = "pending_outbound"
	ConnectionActive          ConnectionState = "active"
	// ConnectionRevoked is terminal.
	ConnectionRevoked ConnectionState = "revoked"
)

// String returns the string form of the state.
func (s ConnectionState) String() string {
	if s == ConnectionNone {
		return "none"
	}
	return string(s)
}

// Connection is the persisted relationship with one peer address.
type Connection struct {
	PeerAddress Address         `cbor:"1,keyasint"`
	State       ConnectionState `cbor:"2,keyasint"`
	// PeerSigningKey is taken from the peer address and confirmed by any key
	// the peer advertises.
	PeerSigningKey Ed25519Public `cbor:"3,keyasint"`
	// Message is the free-text note carried by the connection request.
	Message      string    `cbor:"4,keyasint,omitempty"`
	ExpiresAt    int64     `cbor:"5,keyasint,omitempty"`
	NextSequence uint64    `cbor:"6,keyasint"`
	CreatedAt    time.Time `cbor:"7,keyasint"`
	UpdatedAt    time.Time `cbor:"8,keyasint"`
}
