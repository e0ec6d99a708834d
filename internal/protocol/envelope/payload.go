package envelope

import (
	"encoding/binary"

	"google.golang.org/protobuf/encoding/protowire"
)

// Envelope field numbers of the payload variants.
const (
	fieldEncrypted          protowire.Number = 10
	fieldPlaintext          protowire.Number = 11
	fieldHandshake          protowire.Number = 12
	fieldAuthChallenge      protowire.Number = 13
	fieldAuthResponse       protowire.Number = 14
	fieldDeliveryConfirm    protowire.Number = 15
	fieldConnectionRequest  protowire.Number = 16
	fieldConnectionResponse protowire.Number = 17
	fieldHeartbeat          protowire.Number = 18

	// Field numbers reserved for payload variants, including ones defined
	// by later protocol versions.
	payloadFieldMin protowire.Number = 10
	payloadFieldMax protowire.Number = 49
)

const nonceSize = 24

// Payload is the closed set of envelope payload variants. Use a type switch
// over the pointer types defined in this package.
type Payload interface {
	payloadField() protowire.Number
	appendTo(b []byte) []byte
}

// EncryptedPayload carries a PlaintextPayload sealed with the sender's and
// recipient's converted X25519 keys.
type EncryptedPayload struct {
	Nonce      []byte
	Ciphertext []byte
	// SenderPublicKey is the sender's X25519 public key.
	SenderPublicKey []byte

	unknown []byte
}

// NewEncryptedPayload splits a sealed box (nonce || ciphertext).
func NewEncryptedPayload(sealed, senderPublicKey []byte) *EncryptedPayload {
	p := &EncryptedPayload{SenderPublicKey: cloneBytes(senderPublicKey)}
	if len(sealed) < nonceSize {
		p.Ciphertext = cloneBytes(sealed)
		return p
	}
	p.Nonce = cloneBytes(sealed[:nonceSize])
	p.Ciphertext = cloneBytes(sealed[nonceSize:])
	return p
}

// Sealed joins nonce and ciphertext back into the sealed box form.
func (p *EncryptedPayload) Sealed() []byte {
	out := make([]byte, 0, len(p.Nonce)+len(p.Ciphertext))
	out = append(out, p.Nonce...)
	return append(out, p.Ciphertext...)
}

func (*EncryptedPayload) payloadField() protowire.Number { return fieldEncrypted }

func (p *EncryptedPayload) appendTo(b []byte) []byte {
	b = appendBytes(b, 1, p.Nonce)
	b = appendBytes(b, 2, p.Ciphertext)
	b = appendBytes(b, 3, p.SenderPublicKey)
	return append(b, p.unknown...)
}

func (p *EncryptedPayload) unmarshal(b []byte) (err error) {
	p.unknown, err = decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeBytes(typ, b, func(v []byte) { p.Nonce = v })
		case 2:
			return consumeBytes(typ, b, func(v []byte) { p.Ciphertext = v })
		case 3:
			return consumeBytes(typ, b, func(v []byte) { p.SenderPublicKey = v })
		}
		return 0, nil
	})
	return err
}

// PlaintextPayload is the content of a message before sealing.
type PlaintextPayload struct {
	Version uint32
	// Sequence is the sender's per-peer counter. It is stored, not enforced.
	Sequence    uint64
	Timestamp   int64
	Content     []byte
	ContentType string

	unknown []byte
}

func (*PlaintextPayload) payloadField() protowire.Number { return fieldPlaintext }

func (p *PlaintextPayload) appendTo(b []byte) []byte {
	b = appendVarint(b, 1, uint64(p.Version))
	b = appendVarint(b, 2, p.Sequence)
	b = appendVarint(b, 3, uint64(p.Timestamp))
	b = appendBytes(b, 4, p.Content)
	b = appendString(b, 5, p.ContentType)
	return append(b, p.unknown...)
}

func (p *PlaintextPayload) unmarshal(b []byte) (err error) {
	p.unknown, err = decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeVarint(typ, b, func(v uint64) { p.Version = uint32(v) })
		case 2:
			return consumeVarint(typ, b, func(v uint64) { p.Sequence = v })
		case 3:
			return consumeVarint(typ, b, func(v uint64) { p.Timestamp = int64(v) })
		case 4:
			return consumeBytes(typ, b, func(v []byte) { p.Content = v })
		case 5:
			return consumeString(typ, b, func(v string) { p.ContentType = v })
		}
		return 0, nil
	})
	return err
}

// Handshake advertises an identity's signing key and converted encryption key.
type Handshake struct {
	Version       uint32
	SigningKey    []byte
	EncryptionKey []byte

	unknown []byte
}

func (*Handshake) payloadField() protowire.Number { return fieldHandshake }

func (p *Handshake) appendTo(b []byte) []byte {
	b = appendVarint(b, 1, uint64(p.Version))
	b = appendBytes(b, 2, p.SigningKey)
	b = appendBytes(b, 3, p.EncryptionKey)
	return append(b, p.unknown...)
}

func (p *Handshake) unmarshal(b []byte) (err error) {
	p.unknown, err = decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeVarint(typ, b, func(v uint64) { p.Version = uint32(v) })
		case 2:
			return consumeBytes(typ, b, func(v []byte) { p.SigningKey = v })
		case 3:
			return consumeBytes(typ, b, func(v []byte) { p.EncryptionKey = v })
		}
		return 0, nil
	})
	return err
}

// AuthChallenge is sent by the relay when a client connects.
type AuthChallenge struct {
	Nonce     []byte
	Timestamp int64

	unknown []byte
}

func (*AuthChallenge) payloadField() protowire.Number { return fieldAuthChallenge }

func (p *AuthChallenge) appendTo(b []byte) []byte {
	b = appendBytes(b, 1, p.Nonce)
	b = appendVarint(b, 2, uint64(p.Timestamp))
	return append(b, p.unknown...)
}

func (p *AuthChallenge) unmarshal(b []byte) (err error) {
	p.unknown, err = decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeBytes(typ, b, func(v []byte) { p.Nonce = v })
		case 2:
			return consumeVarint(typ, b, func(v uint64) { p.Timestamp = int64(v) })
		}
		return 0, nil
	})
	return err
}

// AuthResponse answers an AuthChallenge with a signature over its nonce.
type AuthResponse struct {
	Version   uint32
	Signature []byte
	// PublicKey is the client's Ed25519 public key.
	PublicKey []byte
	Nonce     []byte

	unknown []byte
}

func (*AuthResponse) payloadField() protowire.Number { return fieldAuthResponse }

func (p *AuthResponse) appendTo(b []byte) []byte {
	b = appendVarint(b, 1, uint64(p.Version))
	b = appendBytes(b, 2, p.Signature)
	b = appendBytes(b, 3, p.PublicKey)
	b = appendBytes(b, 4, p.Nonce)
	return append(b, p.unknown...)
}

func (p *AuthResponse) unmarshal(b []byte) (err error) {
	p.unknown, err = decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeVarint(typ, b, func(v uint64) { p.Version = uint32(v) })
		case 2:
			return consumeBytes(typ, b, func(v []byte) { p.Signature = v })
		case 3:
			return consumeBytes(typ, b, func(v []byte) { p.PublicKey = v })
		case 4:
			return consumeBytes(typ, b, func(v []byte) { p.Nonce = v })
		}
		return 0, nil
	})
	return err
}

// DeliveryStatus is the outcome reported by a DeliveryConfirm.
type DeliveryStatus int32

const (
	DeliveryUnspecified DeliveryStatus = 0
	DeliveryDelivered   DeliveryStatus = 1
	DeliveryFailed      DeliveryStatus = 2
)

// DeliveryConfirm is the recipient's signed acknowledgement of a message.
type DeliveryConfirm struct {
	MessageID []byte
	Signature []byte
	Timestamp int64
	Status    DeliveryStatus
	Reason    string

	unknown []byte
}

// SignedBytes returns the bytes covered by Signature.
func (p *DeliveryConfirm) SignedBytes() []byte {
	const label = "pinch/delivery-confirm/v1"
	out := make([]byte, 0, len(label)+len(p.MessageID)+12+len(p.Reason))
	out = append(out, label...)
	out = append(out, p.MessageID...)
	out = binary.BigEndian.AppendUint64(out, uint64(p.Timestamp))
	out = binary.BigEndian.AppendUint32(out, uint32(p.Status))
	return append(out, p.Reason...)
}

func (*DeliveryConfirm) payloadField() protowire.Number { return fieldDeliveryConfirm }

func (p *DeliveryConfirm) appendTo(b []byte) []byte {
	b = appendBytes(b, 1, p.MessageID)
	b = appendBytes(b, 2, p.Signature)
	b = appendVarint(b, 3, uint64(p.Timestamp))
	b = appendVarint(b, 4, uint64(int64(p.Status)))
	b = appendString(b, 5, p.Reason)
	return append(b, p.unknown...)
}

func (p *DeliveryConfirm) unmarshal(b []byte) (err error) {
	p.unknown, err = decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeBytes(typ, b, func(v []byte) { p.MessageID = v })
		case 2:
			return consumeBytes(typ, b, func(v []byte) { p.Signature = v })
		case 3:
			return consumeVarint(typ, b, func(v uint64) { p.Timestamp = int64(v) })
		case 4:
			return consumeVarint(typ, b, func(v uint64) { p.Status = DeliveryStatus(int32(v)) })
		case 5:
			return consumeString(typ, b, func(v string) { p.Reason = v })
		}
		return 0, nil
	})
	return err
}

// ConnectionRequest asks a peer to approve a connection.
type ConnectionRequest struct {
	FromAddress string
	ToAddress   string
	Message     string
	// SenderPublicKey is the requester's Ed25519 public key.
	SenderPublicKey []byte
	ExpiresAt       int64

	unknown []byte
}

func (*ConnectionRequest) payloadField() protowire.Number { return fieldConnectionRequest }

func (p *ConnectionRequest) appendTo(b []byte) []byte {
	b = appendString(b, 1, p.FromAddress)
	b = appendString(b, 2, p.ToAddress)
	b = appendString(b, 3, p.Message)
	b = appendBytes(b, 4, p.SenderPublicKey)
	b = appendVarint(b, 5, uint64(p.ExpiresAt))
	return append(b, p.unknown...)
}

func (p *ConnectionRequest) unmarshal(b []byte) (err error) {
	p.unknown, err = decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, func(v string) { p.FromAddress = v })
		case 2:
			return consumeString(typ, b, func(v string) { p.ToAddress = v })
		case 3:
			return consumeString(typ, b, func(v string) { p.Message = v })
		case 4:
			return consumeBytes(typ, b, func(v []byte) { p.SenderPublicKey = v })
		case 5:
			return consumeVarint(typ, b, func(v uint64) { p.ExpiresAt = int64(v) })
		}
		return 0, nil
	})
	return err
}

// ConnectionResponse answers a ConnectionRequest.
type ConnectionResponse struct {
	FromAddress string
	ToAddress   string
	Accepted    bool
	// ResponderPublicKey is the responder's Ed25519 public key.
	ResponderPublicKey []byte

	unknown []byte
}

func (*ConnectionResponse) payloadField() protowire.Number { return fieldConnectionResponse }

func (p *ConnectionResponse) appendTo(b []byte) []byte {
	b = appendString(b, 1, p.FromAddress)
	b = appendString(b, 2, p.ToAddress)
	b = appendBool(b, 3, p.Accepted)
	b = appendBytes(b, 4, p.ResponderPublicKey)
	return append(b, p.unknown...)
}

func (p *ConnectionResponse) unmarshal(b []byte) (err error) {
	p.unknown, err = decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, func(v string) { p.FromAddress = v })
		case 2:
			return consumeString(typ, b, func(v string) { p.ToAddress = v })
		case 3:
			return consumeVarint(typ, b, func(v uint64) { p.Accepted = protowire.DecodeBool(v) })
		case 4:
			return consumeBytes(typ, b, func(v []byte) { p.ResponderPublicKey = v })
		}
		return 0, nil
	})
	return err
}

// Heartbeat keeps a relay session alive.
type Heartbeat struct {
	Timestamp int64

	unknown []byte
}

func (*Heartbeat) payloadField() protowire.Number { return fieldHeartbeat }

func (p *Heartbeat) appendTo(b []byte) []byte {
	b = appendVarint(b, 1, uint64(p.Timestamp))
	return append(b, p.unknown...)
}

func (p *Heartbeat) unmarshal(b []byte) (err error) {
	p.unknown, err = decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			return consumeVarint(typ, b, func(v uint64) { p.Timestamp = int64(v) })
		}
		return 0, nil
	})
	return err
}

// UnknownPayload is a payload variant this version does not define. Its
// encoded body is kept so the envelope can be forwarded unchanged.
type UnknownPayload struct {
	Field int32
	Raw   []byte
}

func (p *UnknownPayload) payloadField() protowire.Number { return protowire.Number(p.Field) }

func (p *UnknownPayload) appendTo(b []byte) []byte { return append(b, p.Raw...) }

func decodePayload(num protowire.Number, b []byte) (Payload, error) {
	var p interface {
		Payload
		unmarshal([]byte) error
	}
	switch num {
	case fieldEncrypted:
		p = &EncryptedPayload{}
	case fieldPlaintext:
		p = &PlaintextPayload{}
	case fieldHandshake:
		p = &Handshake{}
	case fieldAuthChallenge:
		p = &AuthChallenge{}
	case fieldAuthResponse:
		p = &AuthResponse{}
	case fieldDeliveryConfirm:
		p = &DeliveryConfirm{}
	case fieldConnectionRequest:
		p = &ConnectionRequest{}
	case fieldConnectionResponse:
		p = &ConnectionResponse{}
	case fieldHeartbeat:
		p = &Heartbeat{}
	default:
		return &UnknownPayload{Field: int32(num), Raw: cloneBytes(b)}, nil
	}
	if err := p.unmarshal(b); err != nil {
		return nil, err
	}
	return p, nil
}
