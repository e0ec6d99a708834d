package message

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
	"pinch/internal/protocol/delivery"
	"pinch/internal/protocol/envelope"
	"pinch/internal/util/memzero"
)

const plaintextVersion = 1

var (
	// ErrNotConnected indicates there is no active connection with the peer.
	ErrNotConnected = errors.New("no active connection with peer; connect first")
	// ErrPlaintextRejected is returned for MESSAGE envelopes that arrive unencrypted.
	ErrPlaintextRejected = errors.New("message: unencrypted payload rejected")

	errDuplicate = errors.New("message: duplicate")
)

// Service sends and receives messages over the relay.
//
// High-level flow:
//   - Send: reserve the next sequence number on the connection, seal the
//     plaintext for the peer, record the message as queued, hand it to the
//     transport, then record the outcome.
//   - HandleMessage: decrypt with the connection's keys, record the message as
//     delivered, and send a signed DELIVERY_CONFIRM back.
//   - HandleConfirm: verify the peer's signature and settle the outbound record.
type Service struct {
	ids         domain.IdentityStore
	connections domain.ConnectionStore
	messages    domain.MessageStore
	transport   domain.Transport
	suite       *crypto.Suite
	log         *logging.Logger

	now func() time.Time
}

// New constructs a Message Service with the given stores and transport.
func New(
	ids domain.IdentityStore,
	connections domain.ConnectionStore,
	messages domain.MessageStore,
	transport domain.Transport,
	suite *crypto.Suite,
	log *logging.Logger,
) *Service {
	return &Service{
		ids:         ids,
		connections: connections,
		messages:    messages,
		transport:   transport,
		suite:       suite,
		log:         log,
		now:         time.Now,
	}
}

// Send encrypts content for the peer at to and hands it to the transport.
//
// The returned record reflects the outcome of the hand-off: sent on success,
// failed (with the transport error as reason) otherwise. In the failure case
// the error is returned alongside the record.
func (s *Service) Send(
	ctx context.Context,
	passphrase string,
	to domain.Address,
	content []byte,
	contentType string,
) (domain.Message, error) {
	id, err := s.ids.LoadIdentity(passphrase)
	if err != nil {
		return domain.Message{}, err
	}
	kp, err := s.suite.ConvertIdentity(id.EdPriv)
	if err != nil {
		return domain.Message{}, err
	}
	defer memzero.Key((*[32]byte)(&kp.Private))

	conn, err := s.connections.UpdateConnection(to, func(cur domain.Connection, found bool) (domain.Connection, error) {
		if !found || cur.State != domain.ConnectionActive {
			return cur, ErrNotConnected
		}
		cur.NextSequence++
		return cur, nil
	})
	if err != nil {
		return domain.Message{}, err
	}
	peerKey, err := s.suite.ConvertPublicKey(conn.PeerSigningKey[:])
	if err != nil {
		return domain.Message{}, err
	}

	now := s.now()
	pt := &envelope.PlaintextPayload{
		Version:     plaintextVersion,
		Sequence:    conn.NextSequence,
		Timestamp:   now.UnixMilli(),
		Content:     content,
		ContentType: contentType,
	}
	sealed, err := s.suite.Seal(envelope.MarshalPlaintext(pt), peerKey, kp.Private)
	if err != nil {
		return domain.Message{}, err
	}

	uid := uuid.New()
	mid := domain.MessageID(uid.String())
	env := &envelope.Envelope{
		Version:     envelope.CurrentVersion,
		FromAddress: string(id.Address),
		ToAddress:   string(to),
		Type:        envelope.TypeMessage,
		MessageID:   uid[:],
		Timestamp:   now.UnixMilli(),
		Payload:     envelope.NewEncryptedPayload(sealed, kp.Public[:]),
	}

	// Record the message before it leaves so a fast confirmation finds it.
	if _, err := s.messages.UpdateMessage(mid, func(cur domain.Message, found bool) (domain.Message, error) {
		if found {
			return cur, fmt.Errorf("message %s: %w", mid, errDuplicate)
		}
		return delivery.Apply(domain.Message{
			ID:          mid,
			Direction:   domain.Outbound,
			PeerAddress: to,
			Sequence:    pt.Sequence,
			ContentType: contentType,
			Content:     content,
			SentAt:      pt.Timestamp,
		}, false, delivery.Queue{}, now)
	}); err != nil {
		return domain.Message{}, err
	}

	if sendErr := s.transport.Send(ctx, env); sendErr != nil {
		s.log.Warningf("send %s to %s: %v", mid, to, sendErr)
		rec, err := s.advance(mid, delivery.Failed{Reason: sendErr.Error()})
		if err != nil {
			return rec, errors.Join(sendErr, err)
		}
		return rec, fmt.Errorf("send message: %w", sendErr)
	}

	rec, err := s.advance(mid, delivery.HandedOff{})
	if errors.Is(err, domain.ErrInvalidTransition) && rec.State.Terminal() {
		// The confirmation beat us to it.
		return rec, nil
	}
	return rec, err
}

// Get returns the message record with the given ID.
func (s *Service) Get(id domain.MessageID) (domain.Message, error) {
	return s.messages.GetMessage(id)
}

// List returns every stored message, oldest first.
func (s *Service) List() ([]domain.Message, error) {
	return s.messages.ListMessages()
}

// HandleMessage decrypts an inbound MESSAGE envelope, records it as
// delivered, and confirms receipt to the sender.
//
// A message that fails authentication is dropped without touching any
// stored state. A repeat of an already recorded message is confirmed again
// but not stored twice.
func (s *Service) HandleMessage(ctx context.Context, passphrase string, env *envelope.Envelope) error {
	from := domain.Address(env.FromAddress)
	var enc *envelope.EncryptedPayload
	switch p := env.Payload.(type) {
	case *envelope.EncryptedPayload:
		enc = p
	case *envelope.PlaintextPayload:
		return ErrPlaintextRejected
	default:
		return fmt.Errorf("%w: %s envelope carries %T", envelope.ErrMalformedEnvelope, env.Type, env.Payload)
	}

	uid, err := uuid.FromBytes(env.MessageID)
	if err != nil {
		return fmt.Errorf("%w: message id: %v", envelope.ErrMalformedEnvelope, err)
	}
	mid := domain.MessageID(uid.String())

	conn, err := s.connections.GetConnection(from)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && conn.State != domain.ConnectionActive) {
		return fmt.Errorf("message from %s: %w", from, ErrNotConnected)
	}
	if err != nil {
		return err
	}
	peerKey, err := s.suite.ConvertPublicKey(conn.PeerSigningKey[:])
	if err != nil {
		return err
	}
	if len(enc.SenderPublicKey) > 0 && !bytes.Equal(enc.SenderPublicKey, peerKey[:]) {
		return fmt.Errorf("%w: sender key does not match connection with %s", crypto.ErrAuthenticationFailed, from)
	}

	id, err := s.ids.LoadIdentity(passphrase)
	if err != nil {
		return err
	}
	kp, err := s.suite.ConvertIdentity(id.EdPriv)
	if err != nil {
		return err
	}
	defer memzero.Key((*[32]byte)(&kp.Private))
	raw, err := s.suite.Open(enc.Sealed(), peerKey, kp.Private)
	if err != nil {
		return fmt.Errorf("message %s from %s: %w", mid, from, err)
	}
	pt, err := envelope.UnmarshalPlaintext(raw)
	if err != nil {
		return err
	}

	_, err = s.messages.UpdateMessage(mid, func(cur domain.Message, found bool) (domain.Message, error) {
		if found {
			return cur, errDuplicate
		}
		return delivery.Apply(domain.Message{
			ID:          mid,
			Direction:   domain.Inbound,
			PeerAddress: from,
			Sequence:    pt.Sequence,
			ContentType: pt.ContentType,
			Content:     pt.Content,
			SentAt:      pt.Timestamp,
		}, false, delivery.Receive{}, s.now())
	})
	switch {
	case errors.Is(err, errDuplicate):
		s.log.Debugf("duplicate message %s from %s", mid, from)
	case err != nil:
		return err
	default:
		s.log.Noticef("message %s from %s (%d bytes)", mid, from, len(pt.Content))
	}
	return s.confirm(ctx, id, from, env.MessageID)
}

// HandleConfirm settles an outbound message from the peer's signed
// DELIVERY_CONFIRM.
func (s *Service) HandleConfirm(_ context.Context, env *envelope.Envelope) error {
	c, ok := env.Payload.(*envelope.DeliveryConfirm)
	if !ok {
		return fmt.Errorf("%w: %s envelope carries %T", envelope.ErrMalformedEnvelope, env.Type, env.Payload)
	}
	from := domain.Address(env.FromAddress)

	conn, err := s.connections.GetConnection(from)
	if err != nil {
		return fmt.Errorf("confirmation from %s: %w", from, err)
	}
	if err := s.suite.Verify(conn.PeerSigningKey, c.SignedBytes(), c.Signature); err != nil {
		return fmt.Errorf("confirmation from %s: %w", from, err)
	}

	uid, err := uuid.FromBytes(c.MessageID)
	if err != nil {
		return fmt.Errorf("%w: message id: %v", envelope.ErrMalformedEnvelope, err)
	}
	mid := domain.MessageID(uid.String())

	var ev delivery.Event = delivery.Confirmed{}
	if c.Status == envelope.DeliveryFailed {
		ev = delivery.Failed{Reason: c.Reason}
	}
	rec, err := s.messages.UpdateMessage(mid, func(cur domain.Message, found bool) (domain.Message, error) {
		if !found {
			return cur, fmt.Errorf("message %s: %w", mid, domain.ErrNotFound)
		}
		if cur.Direction != domain.Outbound || cur.PeerAddress != from {
			return cur, fmt.Errorf("%w: %s cannot confirm message %s", crypto.ErrAuthenticationFailed, from, mid)
		}
		if cur.State == domain.MessageDelivered && c.Status != envelope.DeliveryFailed {
			// Repeated confirmation.
			return cur, nil
		}
		return delivery.Apply(cur, true, ev, s.now())
	})
	if err != nil {
		return err
	}
	s.log.Infof("message %s is %s", mid, rec.State)
	return nil
}

func (s *Service) advance(id domain.MessageID, ev delivery.Event) (domain.Message, error) {
	var last domain.Message
	rec, err := s.messages.UpdateMessage(id, func(cur domain.Message, found bool) (domain.Message, error) {
		if !found {
			return cur, fmt.Errorf("message %s: %w", id, domain.ErrNotFound)
		}
		last = cur
		return delivery.Apply(cur, true, ev, s.now())
	})
	if err != nil {
		return last, err
	}
	return rec, nil
}

func (s *Service) confirm(ctx context.Context, id domain.Identity, to domain.Address, messageID []byte) error {
	c := &envelope.DeliveryConfirm{
		MessageID: messageID,
		Timestamp: s.now().UnixMilli(),
		Status:    envelope.DeliveryDelivered,
	}
	sig, err := s.suite.Sign(id.EdPriv, c.SignedBytes())
	if err != nil {
		return err
	}
	c.Signature = sig

	uid := uuid.New()
	env := &envelope.Envelope{
		Version:     envelope.CurrentVersion,
		FromAddress: string(id.Address),
		ToAddress:   string(to),
		Type:        envelope.TypeDeliveryConfirm,
		MessageID:   uid[:],
		Timestamp:   c.Timestamp,
		Payload:     c,
	}
	if err := s.transport.Send(ctx, env); err != nil {
		return fmt.Errorf("send delivery confirmation: %w", err)
	}
	return nil
}

// Compile-time assertion that Service implements domain.MessageService.
var _ domain.MessageService = (*Service)(nil)
