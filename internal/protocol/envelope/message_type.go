package envelope

import "strconv"

// MessageType discriminates the purpose of an envelope.
type MessageType int32

const (
	TypeUnspecified        MessageType = 0
	TypeHandshake          MessageType = 1
	TypeAuthChallenge      MessageType = 2
	TypeAuthResponse       MessageType = 3
	TypeMessage            MessageType = 4
	TypeDeliveryConfirm    MessageType = 5
	TypeConnectionRequest  MessageType = 6
	TypeConnectionResponse MessageType = 7
	TypeHeartbeat          MessageType = 8
)

var typeNames = map[MessageType]string{
	TypeUnspecified:        "UNSPECIFIED",
	TypeHandshake:          "HANDSHAKE",
	TypeAuthChallenge:      "AUTH_CHALLENGE",
	TypeAuthResponse:       "AUTH_RESPONSE",
	TypeMessage:            "MESSAGE",
	TypeDeliveryConfirm:    "DELIVERY_CONFIRM",
	TypeConnectionRequest:  "CONNECTION_REQUEST",
	TypeConnectionResponse: "CONNECTION_RESPONSE",
	TypeHeartbeat:          "HEARTBEAT",
}

// String returns the protocol name, or the number for unknown values.
func (t MessageType) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return strconv.Itoa(int(t))
}

// Known reports whether t is one of the defined message types.
func (t MessageType) Known() bool {
	_, ok := typeNames[t]
	return ok
}

// accepts reports whether p is a valid payload for t. Unspecified and
// unknown types accept any payload, and every type accepts a payload variant
// from a later protocol version; handlers reject what they cannot use.
func (t MessageType) accepts(p Payload) bool {
	if _, ok := p.(*UnknownPayload); ok {
		return true
	}
	switch t {
	case TypeHandshake:
		_, ok := p.(*Handshake)
		return ok
	case TypeAuthChallenge:
		_, ok := p.(*AuthChallenge)
		return ok
	case TypeAuthResponse:
		_, ok := p.(*AuthResponse)
		return ok
	case TypeMessage:
		switch p.(type) {
		case *EncryptedPayload, *PlaintextPayload:
			return true
		}
		return false
	case TypeDeliveryConfirm:
		_, ok := p.(*DeliveryConfirm)
		return ok
	case TypeConnectionRequest:
		_, ok := p.(*ConnectionRequest)
		return ok
	case TypeConnectionResponse:
		_, ok := p.(*ConnectionResponse)
		return ok
	case TypeHeartbeat:
		_, ok := p.(*Heartbeat)
		return ok
	default:
		return true
	}
}
