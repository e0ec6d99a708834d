package envelope_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"pinch/internal/protocol/envelope"
)

func seq(start byte, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = start + byte(i)
	}
	return b
}

func roundTrip(t *testing.T, e *envelope.Envelope) *envelope.Envelope {
	t.Helper()
	b, err := envelope.Marshal(e)
	require.NoError(t, err)
	got, err := envelope.Unmarshal(b)
	require.NoError(t, err)
	return got
}

func TestRoundTrip(t *testing.T) {
	cases := map[string]*envelope.Envelope{
		"encrypted": {
			Version:     1,
			FromAddress: "pinch:abc123@relay.example.com",
			ToAddress:   "pinch:def456@relay.example.com",
			Type:        envelope.TypeMessage,
			MessageID:   seq(1, 16),
			Timestamp:   1718000000000,
			Payload: &envelope.EncryptedPayload{
				Nonce:           seq(100, 24),
				Ciphertext:      []byte("encrypted-data-here"),
				SenderPublicKey: seq(0, 32),
			},
		},
		"handshake with empty to address": {
			Version:     1,
			FromAddress: "pinch:abc123@relay.example.com",
			Type:        envelope.TypeHandshake,
			Payload: &envelope.Handshake{
				Version:       1,
				SigningKey:    seq(0, 32),
				EncryptionKey: seq(32, 32),
			},
		},
		"timestamp max": {
			Version:   1,
			Type:      envelope.TypeHeartbeat,
			Timestamp: math.MaxInt64,
			Payload:   &envelope.Heartbeat{Timestamp: math.MaxInt64},
		},
		"empty heartbeat": {
			Type:    envelope.TypeHeartbeat,
			Payload: &envelope.Heartbeat{},
		},
		"plaintext sequence max": {
			Type: envelope.TypeMessage,
			Payload: &envelope.PlaintextPayload{
				Version:     1,
				Sequence:    math.MaxUint64,
				Timestamp:   1,
				Content:     []byte("hello"),
				ContentType: "text/plain",
			},
		},
		"plaintext sequence zero": {
			Type:    envelope.TypeMessage,
			Payload: &envelope.PlaintextPayload{Version: 1, ContentType: "application/json"},
		},
		"connection request": {
			Version:     1,
			FromAddress: "pinch:a@r",
			ToAddress:   "pinch:b@r",
			Type:        envelope.TypeConnectionRequest,
			MessageID:   seq(9, 16),
			Payload: &envelope.ConnectionRequest{
				FromAddress:     "pinch:a@r",
				ToAddress:       "pinch:b@r",
				Message:         "hi, it's alice",
				SenderPublicKey: seq(7, 32),
				ExpiresAt:       1718000600000,
			},
		},
		"connection response": {
			Type: envelope.TypeConnectionResponse,
			Payload: &envelope.ConnectionResponse{
				FromAddress:        "pinch:b@r",
				ToAddress:          "pinch:a@r",
				Accepted:           true,
				ResponderPublicKey: seq(3, 32),
			},
		},
		"delivery confirm": {
			Type: envelope.TypeDeliveryConfirm,
			Payload: &envelope.DeliveryConfirm{
				MessageID: seq(1, 16),
				Signature: seq(2, 64),
				Timestamp: 5,
				Status:    envelope.DeliveryFailed,
				Reason:    "decrypt failed",
			},
		},
		"auth": {
			Type:    envelope.TypeAuthResponse,
			Payload: &envelope.AuthResponse{Version: 1, Signature: seq(1, 64), PublicKey: seq(2, 32), Nonce: seq(3, 32)},
		},
		"auth challenge": {
			Type:    envelope.TypeAuthChallenge,
			Payload: &envelope.AuthChallenge{Nonce: seq(3, 32), Timestamp: 42},
		},
		"unspecified type accepts any payload": {
			Type:    envelope.TypeUnspecified,
			Payload: &envelope.Handshake{Version: 2},
		},
		"unknown type": {
			Type:    envelope.MessageType(42),
			Payload: &envelope.UnknownPayload{Field: 30, Raw: []byte{0x08, 0x01}},
		},
		"negative timestamp": {
			Type:      envelope.TypeHeartbeat,
			Timestamp: -1,
			Payload:   &envelope.Heartbeat{Timestamp: -1},
		},
	}
	for name, e := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, e, roundTrip(t, e))
		})
	}
}

func TestUnmarshal_PreservesUnknownFields(t *testing.T) {
	e := &envelope.Envelope{
		Version: 1,
		Type:    envelope.TypeHeartbeat,
		Payload: &envelope.Heartbeat{Timestamp: 7},
	}
	b, err := envelope.Marshal(e)
	require.NoError(t, err)

	// A header field and an unknown payload-internal field from a newer peer.
	extra := protowire.AppendTag(nil, 60, protowire.BytesType)
	extra = protowire.AppendString(extra, "future")
	b = append(b, extra...)

	got, err := envelope.Unmarshal(b)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.Payload.(*envelope.Heartbeat).Timestamp)

	again, err := envelope.Marshal(got)
	require.NoError(t, err)
	assert.Equal(t, b, again)

	var inner []byte
	inner = protowire.AppendTag(inner, 1, protowire.VarintType)
	inner = protowire.AppendVarint(inner, 9)
	inner = protowire.AppendTag(inner, 7, protowire.VarintType)
	inner = protowire.AppendVarint(inner, 1)
	var raw []byte
	raw = protowire.AppendTag(raw, 4, protowire.VarintType)
	raw = protowire.AppendVarint(raw, uint64(envelope.TypeHeartbeat))
	raw = protowire.AppendTag(raw, 18, protowire.BytesType)
	raw = protowire.AppendBytes(raw, inner)

	got, err = envelope.Unmarshal(raw)
	require.NoError(t, err)
	again, err = envelope.Marshal(got)
	require.NoError(t, err)
	assert.Equal(t, raw, again)
}

func TestUnmarshal_UnknownTypeAndVariant(t *testing.T) {
	var raw []byte
	raw = protowire.AppendTag(raw, 4, protowire.VarintType)
	raw = protowire.AppendVarint(raw, 99)
	raw = protowire.AppendTag(raw, 25, protowire.BytesType)
	raw = protowire.AppendBytes(raw, []byte{0x0a, 0x01, 0xff})

	e, err := envelope.Unmarshal(raw)
	require.NoError(t, err)
	assert.Equal(t, envelope.MessageType(99), e.Type)
	assert.False(t, e.Type.Known())
	assert.Equal(t, "99", e.Type.String())
	assert.Equal(t, &envelope.UnknownPayload{Field: 25, Raw: []byte{0x0a, 0x01, 0xff}}, e.Payload)

	out, err := envelope.Marshal(e)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestUnmarshal_FutureVariantOnKnownType(t *testing.T) {
	for _, typ := range []envelope.MessageType{envelope.TypeMessage, envelope.TypeHandshake} {
		var raw []byte
		raw = protowire.AppendTag(raw, 4, protowire.VarintType)
		raw = protowire.AppendVarint(raw, uint64(typ))
		raw = protowire.AppendTag(raw, 19, protowire.BytesType)
		raw = protowire.AppendBytes(raw, []byte{0x08, 0x2a})

		e, err := envelope.Unmarshal(raw)
		require.NoError(t, err, "%s", typ)
		assert.Equal(t, typ, e.Type)
		assert.Equal(t, &envelope.UnknownPayload{Field: 19, Raw: []byte{0x08, 0x2a}}, e.Payload)

		out, err := envelope.Marshal(e)
		require.NoError(t, err)
		assert.Equal(t, raw, out)
	}
}

func TestRoundTrip_EmptyBytesDecodeAsNil(t *testing.T) {
	e := &envelope.Envelope{
		Version:   1,
		Type:      envelope.TypeHandshake,
		MessageID: []byte{},
		Payload:   &envelope.Handshake{SigningKey: []byte{}},
	}
	b, err := envelope.Marshal(e)
	require.NoError(t, err)

	got, err := envelope.Unmarshal(b)
	require.NoError(t, err)
	assert.Nil(t, got.MessageID)
	assert.Nil(t, got.Payload.(*envelope.Handshake).SigningKey)

	again, err := envelope.Marshal(got)
	require.NoError(t, err)
	assert.Equal(t, b, again)
}

func TestUnmarshal_MissingPayload(t *testing.T) {
	var raw []byte
	raw = protowire.AppendTag(raw, 1, protowire.VarintType)
	raw = protowire.AppendVarint(raw, 1)
	raw = protowire.AppendTag(raw, 4, protowire.VarintType)
	raw = protowire.AppendVarint(raw, uint64(envelope.TypeMessage))

	_, err := envelope.Unmarshal(raw)
	assert.ErrorIs(t, err, envelope.ErrMalformedEnvelope)

	_, err = envelope.Unmarshal(nil)
	assert.ErrorIs(t, err, envelope.ErrMalformedEnvelope)
}

func TestUnmarshal_Truncated(t *testing.T) {
	b, err := envelope.Marshal(&envelope.Envelope{
		Version:     1,
		FromAddress: "pinch:abc@relay",
		ToAddress:   "pinch:def@relay",
		Type:        envelope.TypeMessage,
		MessageID:   seq(1, 16),
		Timestamp:   1718000000000,
		Payload: &envelope.EncryptedPayload{
			Nonce:           seq(0, 24),
			Ciphertext:      seq(50, 40),
			SenderPublicKey: seq(9, 32),
		},
	})
	require.NoError(t, err)

	for n := 0; n < len(b); n++ {
		_, err := envelope.Unmarshal(b[:n])
		assert.ErrorIs(t, err, envelope.ErrMalformedEnvelope, "prefix %d of %d", n, len(b))
	}
}

func TestTypePayloadMismatch(t *testing.T) {
	e := &envelope.Envelope{Type: envelope.TypeHandshake, Payload: &envelope.Heartbeat{}}
	_, err := envelope.Marshal(e)
	assert.ErrorIs(t, err, envelope.ErrMalformedEnvelope)

	// Encode as heartbeat, then relabel the type on the wire.
	b, err := envelope.Marshal(&envelope.Envelope{Type: envelope.TypeHeartbeat, Payload: &envelope.Heartbeat{Timestamp: 1}})
	require.NoError(t, err)
	b = bytes.Replace(b, []byte{0x20, byte(envelope.TypeHeartbeat)}, []byte{0x20, byte(envelope.TypeHandshake)}, 1)
	_, err = envelope.Unmarshal(b)
	assert.ErrorIs(t, err, envelope.ErrMalformedEnvelope)

	_, err = envelope.Marshal(&envelope.Envelope{Type: envelope.TypeMessage, Payload: &envelope.Handshake{}})
	assert.ErrorIs(t, err, envelope.ErrMalformedEnvelope)
}

func TestMarshal_RejectsBadUnknownPayload(t *testing.T) {
	for _, field := range []int32{5, 12, 50} {
		_, err := envelope.Marshal(&envelope.Envelope{Payload: &envelope.UnknownPayload{Field: field}})
		assert.ErrorIs(t, err, envelope.ErrMalformedEnvelope, "field %d", field)
	}
	_, err := envelope.Marshal(&envelope.Envelope{})
	assert.ErrorIs(t, err, envelope.ErrMalformedEnvelope)
}

func TestPlaintext_Standalone(t *testing.T) {
	p := &envelope.PlaintextPayload{
		Version:     1,
		Sequence:    42,
		Timestamp:   1718000000000,
		Content:     []byte("hello"),
		ContentType: "text/plain",
	}
	got, err := envelope.UnmarshalPlaintext(envelope.MarshalPlaintext(p))
	require.NoError(t, err)
	assert.Equal(t, p, got)

	_, err = envelope.UnmarshalPlaintext([]byte{0x22, 0x05, 'h'})
	assert.ErrorIs(t, err, envelope.ErrMalformedEnvelope)
}

func TestEncryptedPayload_Sealed(t *testing.T) {
	sealed := seq(0, 24+16+3)
	p := envelope.NewEncryptedPayload(sealed, seq(1, 32))
	assert.Equal(t, sealed[:24], p.Nonce)
	assert.Equal(t, sealed[24:], p.Ciphertext)
	assert.Equal(t, sealed, p.Sealed())
}

func TestMessageType_Values(t *testing.T) {
	assert.Equal(t, envelope.MessageType(0), envelope.TypeUnspecified)
	assert.Equal(t, envelope.MessageType(1), envelope.TypeHandshake)
	assert.Equal(t, envelope.MessageType(2), envelope.TypeAuthChallenge)
	assert.Equal(t, envelope.MessageType(3), envelope.TypeAuthResponse)
	assert.Equal(t, envelope.MessageType(4), envelope.TypeMessage)
	assert.Equal(t, envelope.MessageType(5), envelope.TypeDeliveryConfirm)
	assert.Equal(t, envelope.MessageType(6), envelope.TypeConnectionRequest)
	assert.Equal(t, envelope.MessageType(7), envelope.TypeConnectionResponse)
	assert.Equal(t, envelope.MessageType(8), envelope.TypeHeartbeat)
	assert.Equal(t, "CONNECTION_RESPONSE", envelope.TypeConnectionResponse.String())
}
