package connection

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/op/go-logging.v1"

	"pinch/internal/crypto"
	"pinch/internal/domain"
	"pinch/internal/protocol/address"
	proto "pinch/internal/protocol/connection"
	"pinch/internal/protocol/envelope"
)

// requestTTL bounds how long an outbound request stays meaningful to the peer.
const requestTTL = 7 * 24 * time.Hour

var (
	// ErrSelfConnection is returned when an agent tries to connect to itself.
	ErrSelfConnection = errors.New("connection: cannot connect to own address")
)

// Service implements domain.ConnectionService.
type Service struct {
	ids       domain.IdentityStore
	store     domain.ConnectionStore
	transport domain.Transport
	suite     *crypto.Suite
	log       *logging.Logger

	now func() time.Time
}

// New constructs a connection service.
func New(
	ids domain.IdentityStore,
	store domain.ConnectionStore,
	transport domain.Transport,
	suite *crypto.Suite,
	log *logging.Logger,
) *Service {
	return &Service{
		ids:       ids,
		store:     store,
		transport: transport,
		suite:     suite,
		log:       log,
		now:       time.Now,
	}
}

// Request asks the peer at to connect, recording a pending outbound connection.
func (s *Service) Request(
	ctx context.Context,
	passphrase string,
	to domain.Address,
	message string,
) (domain.Connection, error) {
	peerKey, _, err := address.Validate(to)
	if err != nil {
		return domain.Connection{}, err
	}
	id, err := s.ids.LoadIdentity(passphrase)
	if err != nil {
		return domain.Connection{}, err
	}
	if id.Address == to {
		return domain.Connection{}, ErrSelfConnection
	}

	now := s.now()
	expiresAt := now.Add(requestTTL).UnixMilli()
	return s.store.UpdateConnection(to, func(cur domain.Connection, found bool) (domain.Connection, error) {
		next, _, err := proto.Apply(cur, found, to, proto.RequestSent{Message: message, ExpiresAt: expiresAt}, now)
		if err != nil {
			return cur, err
		}
		next.PeerSigningKey = peerKey

		env := newEnvelope(id.Address, to, envelope.TypeConnectionRequest, now, &envelope.ConnectionRequest{
			FromAddress:     string(id.Address),
			ToAddress:       string(to),
			Message:         message,
			SenderPublicKey: id.EdPub[:],
			ExpiresAt:       expiresAt,
		})
		if err := s.transport.Send(ctx, env); err != nil {
			return cur, fmt.Errorf("send connection request: %w", err)
		}
		s.log.Infof("requested connection with %s", to)
		return next, nil
	})
}

// Approve accepts a pending inbound request and tells the peer.
func (s *Service) Approve(
	ctx context.Context,
	passphrase string,
	peer domain.Address,
) (domain.Connection, error) {
	return s.transition(ctx, passphrase, peer, proto.Approve{})
}

// Reject declines a pending inbound request. Nothing is sent to the peer.
func (s *Service) Reject(ctx context.Context, peer domain.Address) (domain.Connection, error) {
	return s.transition(ctx, "", peer, proto.Reject{})
}

// Revoke ends an active connection locally.
func (s *Service) Revoke(ctx context.Context, peer domain.Address) (domain.Connection, error) {
	return s.transition(ctx, "", peer, proto.Revoke{})
}

// Get returns the connection with peer.
func (s *Service) Get(peer domain.Address) (domain.Connection, error) {
	return s.store.GetConnection(peer)
}

// List returns all known connections.
func (s *Service) List() ([]domain.Connection, error) {
	return s.store.ListConnections()
}

// HandleRequest records an inbound CONNECTION_REQUEST as pending. If our own
// request to the same peer is outstanding the connection becomes active and
// the peer is answered.
func (s *Service) HandleRequest(ctx context.Context, passphrase string, env *envelope.Envelope) error {
	req, ok := env.Payload.(*envelope.ConnectionRequest)
	if !ok {
		return fmt.Errorf("%w: %s envelope carries %T", envelope.ErrMalformedEnvelope, env.Type, env.Payload)
	}
	from := domain.Address(env.FromAddress)
	peerKey, err := s.peerKey(from, req.SenderPublicKey)
	if err != nil {
		return err
	}

	ev := proto.RequestReceived{Message: req.Message, ExpiresAt: req.ExpiresAt}
	_, err = s.store.UpdateConnection(from, func(cur domain.Connection, found bool) (domain.Connection, error) {
		next, effects, err := proto.Apply(cur, found, from, ev, s.now())
		if err != nil {
			return cur, err
		}
		if err := s.run(ctx, passphrase, from, effects); err != nil {
			return cur, err
		}
		if !found {
			next.PeerSigningKey = peerKey
			s.log.Noticef("connection request from %s", from)
		} else if next.State != cur.State {
			s.log.Noticef("crossed requests with %s, connection is now %s", from, next.State)
		}
		return next, nil
	})
	return err
}

// HandleResponse applies the peer's answer to our pending outbound request.
func (s *Service) HandleResponse(_ context.Context, env *envelope.Envelope) error {
	resp, ok := env.Payload.(*envelope.ConnectionResponse)
	if !ok {
		return fmt.Errorf("%w: %s envelope carries %T", envelope.ErrMalformedEnvelope, env.Type, env.Payload)
	}
	from := domain.Address(env.FromAddress)
	if _, err := s.peerKey(from, resp.ResponderPublicKey); err != nil {
		return err
	}

	_, err := s.store.UpdateConnection(from, func(cur domain.Connection, found bool) (domain.Connection, error) {
		if !found {
			return cur, fmt.Errorf("connection %s: %w", from, domain.ErrNotFound)
		}
		next, _, err := proto.Apply(cur, found, from, proto.ResponseReceived{Accepted: resp.Accepted}, s.now())
		if err != nil {
			return cur, err
		}
		s.log.Noticef("connection with %s is now %s", from, next.State)
		return next, nil
	})
	return err
}

// HandleHandshake checks that the keys a peer advertises agree with its
// address. Both keys are derivable from the address, so nothing is stored.
func (s *Service) HandleHandshake(_ context.Context, env *envelope.Envelope) error {
	hs, ok := env.Payload.(*envelope.Handshake)
	if !ok {
		return fmt.Errorf("%w: %s envelope carries %T", envelope.ErrMalformedEnvelope, env.Type, env.Payload)
	}
	from := domain.Address(env.FromAddress)
	peerKey, err := s.peerKey(from, hs.SigningKey)
	if err != nil {
		return err
	}
	enc, err := s.suite.ConvertPublicKey(peerKey[:])
	if err != nil {
		return err
	}
	if len(hs.EncryptionKey) > 0 && !bytes.Equal(hs.EncryptionKey, enc[:]) {
		return fmt.Errorf("%w: handshake encryption key does not match signing key", crypto.ErrAuthenticationFailed)
	}
	s.log.Debugf("handshake from %s verified", from)
	return nil
}

func (s *Service) transition(
	ctx context.Context,
	passphrase string,
	peer domain.Address,
	ev proto.Event,
) (domain.Connection, error) {
	// An unknown peer is in state none, where every operator event is an
	// invalid transition; the failed update stores nothing.
	return s.store.UpdateConnection(peer, func(cur domain.Connection, found bool) (domain.Connection, error) {
		next, effects, err := proto.Apply(cur, found, peer, ev, s.now())
		if err != nil {
			return cur, err
		}
		if err := s.run(ctx, passphrase, peer, effects); err != nil {
			return cur, err
		}
		return next, nil
	})
}

// run executes the effects of a transition inside its store update.
func (s *Service) run(ctx context.Context, passphrase string, peer domain.Address, effects []proto.Effect) error {
	for _, eff := range effects {
		switch eff := eff.(type) {
		case proto.SendResponse:
			if err := s.sendResponse(ctx, passphrase, peer, eff.Accepted); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) sendResponse(ctx context.Context, passphrase string, peer domain.Address, accepted bool) error {
	id, err := s.ids.LoadIdentity(passphrase)
	if err != nil {
		return err
	}
	env := newEnvelope(id.Address, peer, envelope.TypeConnectionResponse, s.now(), &envelope.ConnectionResponse{
		FromAddress:        string(id.Address),
		ToAddress:          string(peer),
		Accepted:           accepted,
		ResponderPublicKey: id.EdPub[:],
	})
	if err := s.transport.Send(ctx, env); err != nil {
		return fmt.Errorf("send connection response: %w", err)
	}
	return nil
}

// peerKey returns the signing key embedded in from, checking it against an
// advertised key when one is present.
func (s *Service) peerKey(from domain.Address, advertised []byte) (domain.Ed25519Public, error) {
	key, _, err := address.Validate(from)
	if err != nil {
		return domain.Ed25519Public{}, err
	}
	if len(advertised) > 0 && !bytes.Equal(advertised, key[:]) {
		return domain.Ed25519Public{}, fmt.Errorf(
			"%w: key advertised by %s does not match its address", crypto.ErrAuthenticationFailed, from)
	}
	return key, nil
}

func newEnvelope(
	from, to domain.Address,
	typ envelope.MessageType,
	now time.Time,
	payload envelope.Payload,
) *envelope.Envelope {
	id := uuid.New()
	return &envelope.Envelope{
		Version:     envelope.CurrentVersion,
		FromAddress: string(from),
		ToAddress:   string(to),
		Type:        typ,
		MessageID:   id[:],
		Timestamp:   now.UnixMilli(),
		Payload:     payload,
	}
}

var _ domain.ConnectionService = (*Service)(nil)
