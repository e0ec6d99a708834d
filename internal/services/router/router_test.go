package router_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pinch/internal/domain"
	plog "pinch/internal/log"
	"pinch/internal/protocol/envelope"
	"pinch/internal/services/router"
)

const self domain.Address = "pinch:self@relay"

type recorder struct {
	calls []string
	err   error
}

func (r *recorder) hit(name string) error { r.calls = append(r.calls, name); return r.err }

type fakeConnections struct {
	domain.ConnectionService
	*recorder
}

func (f fakeConnections) HandleRequest(context.Context, string, *envelope.Envelope) error {
	return f.hit("request")
}

func (f fakeConnections) HandleResponse(context.Context, *envelope.Envelope) error {
	return f.hit("response")
}

func (f fakeConnections) HandleHandshake(context.Context, *envelope.Envelope) error {
	return f.hit("handshake")
}

type fakeMessages struct {
	domain.MessageService
	*recorder
}

func (f fakeMessages) HandleMessage(_ context.Context, passphrase string, _ *envelope.Envelope) error {
	return f.hit("message:" + passphrase)
}

func (f fakeMessages) HandleConfirm(context.Context, *envelope.Envelope) error {
	return f.hit("confirm")
}

func newRouter() (*router.Router, *recorder) {
	rec := &recorder{}
	return router.New(self, fakeConnections{recorder: rec}, fakeMessages{recorder: rec},
		plog.Discard().GetLogger("router")), rec
}

func encode(t *testing.T, typ envelope.MessageType, to domain.Address, p envelope.Payload) []byte {
	t.Helper()
	b, err := envelope.Marshal(&envelope.Envelope{
		Version:     envelope.CurrentVersion,
		FromAddress: "pinch:peer@relay",
		ToAddress:   string(to),
		Type:        typ,
		MessageID:   make([]byte, 16),
		Payload:     p,
	})
	require.NoError(t, err)
	return b
}

func TestDispatch_Routes(t *testing.T) {
	cases := []struct {
		typ     envelope.MessageType
		payload envelope.Payload
		want    []string
	}{
		{envelope.TypeConnectionRequest, &envelope.ConnectionRequest{}, []string{"request"}},
		{envelope.TypeConnectionResponse, &envelope.ConnectionResponse{}, []string{"response"}},
		{envelope.TypeHandshake, &envelope.Handshake{}, []string{"handshake"}},
		{envelope.TypeMessage, &envelope.EncryptedPayload{}, []string{"message:pw"}},
		{envelope.TypeDeliveryConfirm, &envelope.DeliveryConfirm{}, []string{"confirm"}},
		{envelope.TypeHeartbeat, &envelope.Heartbeat{}, nil},
		{envelope.TypeAuthChallenge, &envelope.AuthChallenge{}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.typ.String(), func(t *testing.T) {
			r, rec := newRouter()
			require.NoError(t, r.Dispatch(context.Background(), "pw", encode(t, tc.typ, self, tc.payload)))
			assert.Equal(t, tc.want, rec.calls)
		})
	}
}

func TestDispatch_Malformed(t *testing.T) {
	r, rec := newRouter()
	err := r.Dispatch(context.Background(), "pw", []byte{0xff, 0xff})
	assert.ErrorIs(t, err, envelope.ErrMalformedEnvelope)
	assert.Empty(t, rec.calls)
}

func TestDispatch_Misrouted(t *testing.T) {
	r, rec := newRouter()
	err := r.Dispatch(context.Background(), "pw",
		encode(t, envelope.TypeMessage, "pinch:other@relay", &envelope.EncryptedPayload{}))
	assert.ErrorIs(t, err, router.ErrMisrouted)
	assert.Empty(t, rec.calls)
}

func TestDispatch_HandlerError(t *testing.T) {
	r, rec := newRouter()
	rec.err = domain.ErrNotFound
	err := r.Dispatch(context.Background(), "pw",
		encode(t, envelope.TypeConnectionResponse, self, &envelope.ConnectionResponse{}))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
