package types

import "time"

// MessageState is the delivery state of a message.
type MessageState string

const (
	MessageNone      MessageState = ""
	MessageQueued    MessageState = "queued"
	MessageSent      MessageState = "sent"
	MessageDelivered MessageState = "delivered"
	MessageFailed    MessageState = "failed"
)

// String returns the string form of the state.
func (s MessageState) String() string {
	if s == MessageNone {
		return "none"
	}
	return string(s)
}

// Terminal reports whether no further transition is possible.
func (s MessageState) Terminal() bool {
	return s == MessageDelivered || s == MessageFailed
}

// Direction tells whether the local agent sent or received a message.
type Direction string

const (
	Outbound Direction = "outbound"
	Inbound  Direction = "inbound"
)

// Message is the persisted record of one message and its delivery state.
type Message struct {
	ID          MessageID    `cbor:"1,keyasint"`
	Direction   Direction    `cbor:"2,keyasint"`
	PeerAddress Address      `cbor:"3,keyasint"`
	State       MessageState `cbor:"4,keyasint"`
	// FailureReason is set only when State is MessageFailed.
	FailureReason string    `cbor:"5,keyasint,omitempty"`
	Sequence      uint64    `cbor:"6,keyasint"`
	ContentType   string    `cbor:"7,keyasint,omitempty"`
	Content       []byte    `cbor:"8,keyasint,omitempty"`
	SentAt        int64     `cbor:"9,keyasint,omitempty"`
	CreatedAt     time.Time `cbor:"10,keyasint"`
	UpdatedAt     time.Time `cbor:"11,keyasint"`
}
