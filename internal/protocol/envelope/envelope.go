package envelope

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// CurrentVersion is the envelope version written by this implementation.
const CurrentVersion = 1

const (
	fieldVersion   protowire.Number = 1
	fieldFrom      protowire.Number = 2
	fieldTo        protowire.Number = 3
	fieldType      protowire.Number = 4
	fieldMessageID protowire.Number = 5
	fieldTimestamp protowire.Number = 6
)

// Envelope is the unit exchanged through the relay.
type Envelope struct {
	Version     uint32
	FromAddress string
	ToAddress   string
	Type        MessageType
	// MessageID is a 16-byte identifier.
	MessageID []byte
	// Timestamp is in milliseconds since the Unix epoch.
	Timestamp int64
	Payload   Payload

	unknown []byte
}

// Marshal encodes e. The payload must be present and consistent with e.Type.
func Marshal(e *Envelope) ([]byte, error) {
	if e.Payload == nil {
		return nil, malformed("no payload")
	}
	num := e.Payload.payloadField()
	if u, ok := e.Payload.(*UnknownPayload); ok {
		if u.Field < int32(payloadFieldMin) || u.Field > int32(payloadFieldMax) || isKnownPayloadField(num) {
			return nil, malformed("unknown payload field %d outside the unassigned payload range", u.Field)
		}
	}
	if !e.Type.accepts(e.Payload) {
		return nil, malformed("%s envelope carries %T", e.Type, e.Payload)
	}

	var b []byte
	b = appendVarint(b, fieldVersion, uint64(e.Version))
	b = appendString(b, fieldFrom, e.FromAddress)
	b = appendString(b, fieldTo, e.ToAddress)
	b = appendVarint(b, fieldType, uint64(int64(e.Type)))
	b = appendBytes(b, fieldMessageID, e.MessageID)
	b = appendVarint(b, fieldTimestamp, uint64(e.Timestamp))

	// The payload is written even when empty so the variant survives.
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendBytes(b, e.Payload.appendTo(nil))

	return append(b, e.unknown...), nil
}

// Unmarshal decodes an envelope. When several payload fields are present the
// last one wins. Zero-length bytes fields decode as nil.
func Unmarshal(b []byte) (*Envelope, error) {
	e := &Envelope{}
	var err error
	e.unknown, err = decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldVersion:
			return consumeVarint(typ, b, func(v uint64) { e.Version = uint32(v) })
		case fieldFrom:
			return consumeString(typ, b, func(v string) { e.FromAddress = v })
		case fieldTo:
			return consumeString(typ, b, func(v string) { e.ToAddress = v })
		case fieldType:
			return consumeVarint(typ, b, func(v uint64) { e.Type = MessageType(int32(v)) })
		case fieldMessageID:
			return consumeBytes(typ, b, func(v []byte) { e.MessageID = v })
		case fieldTimestamp:
			return consumeVarint(typ, b, func(v uint64) { e.Timestamp = int64(v) })
		}
		if num < payloadFieldMin || num > payloadFieldMax || typ != protowire.BytesType {
			return 0, nil
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return 0, malformed("payload field %d: %v", num, protowire.ParseError(n))
		}
		p, err := decodePayload(num, v)
		if err != nil {
			return 0, fmt.Errorf("payload field %d: %w", num, err)
		}
		e.Payload = p
		return n, nil
	})
	if err != nil {
		return nil, err
	}
	if e.Payload == nil {
		return nil, malformed("no payload")
	}
	if !e.Type.accepts(e.Payload) {
		return nil, malformed("%s envelope carries %T", e.Type, e.Payload)
	}
	return e, nil
}

// MarshalPlaintext encodes a PlaintextPayload on its own, as sealed inside
// an EncryptedPayload.
func MarshalPlaintext(p *PlaintextPayload) []byte { return p.appendTo(nil) }

// UnmarshalPlaintext decodes bytes produced by MarshalPlaintext.
func UnmarshalPlaintext(b []byte) (*PlaintextPayload, error) {
	p := &PlaintextPayload{}
	if err := p.unmarshal(b); err != nil {
		return nil, err
	}
	return p, nil
}

func isKnownPayloadField(num protowire.Number) bool {
	return num >= fieldEncrypted && num <= fieldHeartbeat
}
