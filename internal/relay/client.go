package relay

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pinch/internal/crypto"
	"pinch/internal/domain"
	"pinch/internal/protocol/envelope"
)

// Close codes the relay uses to end a session before routing starts.
const (
	ClosePending      = 4001
	CloseUnauthorized = 4003
)

const (
	authVersion = 1
	authLabel   = "pinch/relay-auth/v1"
)

var (
	// ErrUnauthorized is returned when the relay rejects the auth response.
	ErrUnauthorized = errors.New("relay: authentication rejected")
	// ErrClosed is returned by a Session after Close.
	ErrClosed = errors.New("relay: session closed")
)

// PendingError is returned by Dial when the relay does not know the agent's
// key yet. An operator must redeem ClaimCode before the agent can connect.
type PendingError struct {
	ClaimCode string
}

func (e *PendingError) Error() string {
	return fmt.Sprintf("relay: registration pending approval (claim code %s)", e.ClaimCode)
}

// authMessage returns the bytes an agent signs to answer a challenge.
func authMessage(nonce []byte) []byte {
	return append([]byte(authLabel), nonce...)
}

// Session is an authenticated WebSocket connection to a relay.
//
// Send may be called from several goroutines; Receive from one.
type Session struct {
	conn *websocket.Conn
	self domain.Address

	wmu    sync.Mutex
	closed bool
}

// Dial connects to relayURL as id and completes the relay's challenge.
func Dial(ctx context.Context, relayURL string, suite *crypto.Suite, id domain.Identity) (*Session, error) {
	u, err := url.Parse(relayURL)
	if err != nil {
		return nil, fmt.Errorf("relay: parse url: %w", err)
	}
	q := u.Query()
	q.Set("address", string(id.Address))
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("relay dial %s: %s: %w", relayURL, resp.Status, err)
		}
		return nil, fmt.Errorf("relay dial %s: %w", relayURL, err)
	}
	s := &Session{conn: conn, self: id.Address}
	if err := s.authenticate(ctx, suite, id); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

// authenticate answers the relay's AUTH_CHALLENGE and waits for the
// heartbeat that marks the session as routed.
func (s *Session) authenticate(ctx context.Context, suite *crypto.Suite, id domain.Identity) error {
	env, err := s.receiveEnvelope(ctx)
	if err != nil {
		return err
	}
	ch, ok := env.Payload.(*envelope.AuthChallenge)
	if !ok {
		return fmt.Errorf("relay: expected auth challenge, got %s", env.Type)
	}
	sig, err := suite.Sign(id.EdPriv, authMessage(ch.Nonce))
	if err != nil {
		return err
	}
	err = s.Send(ctx, &envelope.Envelope{
		Version:     envelope.CurrentVersion,
		FromAddress: string(id.Address),
		Type:        envelope.TypeAuthResponse,
		Timestamp:   time.Now().UnixMilli(),
		Payload: &envelope.AuthResponse{
			Version:   authVersion,
			Signature: sig,
			PublicKey: id.EdPub[:],
			Nonce:     ch.Nonce,
		},
	})
	if err != nil {
		return err
	}

	env, err = s.receiveEnvelope(ctx)
	if err != nil {
		return err
	}
	if env.Type != envelope.TypeHeartbeat {
		return fmt.Errorf("relay: expected heartbeat after auth, got %s", env.Type)
	}
	return nil
}

// Address returns the address the session authenticated as.
func (s *Session) Address() domain.Address { return s.self }

// Send encodes env and writes it as one binary message.
func (s *Session) Send(ctx context.Context, env *envelope.Envelope) error {
	b, err := envelope.Marshal(env)
	if err != nil {
		return err
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if s.closed {
		return ErrClosed
	}
	deadline, _ := ctx.Deadline()
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := s.conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return fmt.Errorf("relay: write: %w", err)
	}
	return nil
}

// Receive returns the next binary message from the relay. It returns
// ctx.Err() once ctx is done.
func (s *Session) Receive(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetReadDeadline(time.Now())
	})
	defer stop()
	for {
		typ, b, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, closeReason(err)
		}
		if typ == websocket.BinaryMessage {
			return b, nil
		}
	}
}

func (s *Session) receiveEnvelope(ctx context.Context) (*envelope.Envelope, error) {
	b, err := s.Receive(ctx)
	if err != nil {
		return nil, err
	}
	return envelope.Unmarshal(b)
}

// Close ends the session.
func (s *Session) Close() error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return s.conn.Close()
}

func closeReason(err error) error {
	var ce *websocket.CloseError
	if !errors.As(err, &ce) {
		return fmt.Errorf("relay: read: %w", err)
	}
	switch ce.Code {
	case ClosePending:
		return &PendingError{ClaimCode: ce.Text}
	case CloseUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, ce.Text)
	}
	return fmt.Errorf("relay: closed: %w", err)
}
