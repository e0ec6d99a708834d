package relay

import (
	"context"
	"sync"

	"pinch/internal/domain"
	"pinch/internal/protocol/envelope"
)

// Lazy is a domain.Transport that dials on first use, so commands that
// never send never touch the relay.
type Lazy struct {
	dial func(ctx context.Context) (*Session, error)

	mu sync.Mutex
	s  *Session
}

// NewLazy returns a transport that obtains its session from dial.
func NewLazy(dial func(ctx context.Context) (*Session, error)) *Lazy {
	return &Lazy{dial: dial}
}

// Session returns the underlying session, dialing if needed.
func (l *Lazy) Session(ctx context.Context) (*Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.s != nil {
		return l.s, nil
	}
	s, err := l.dial(ctx)
	if err != nil {
		return nil, err
	}
	l.s = s
	return s, nil
}

// Send implements domain.Transport.
func (l *Lazy) Send(ctx context.Context, env *envelope.Envelope) error {
	s, err := l.Session(ctx)
	if err != nil {
		return err
	}
	return s.Send(ctx, env)
}

// Dialed reports whether a session has been opened.
func (l *Lazy) Dialed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.s != nil
}

// Close closes the session if one was opened.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.s == nil {
		return nil
	}
	err := l.s.Close()
	l.s = nil
	return err
}

var _ domain.Transport = (*Lazy)(nil)
