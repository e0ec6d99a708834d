package relay

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"gopkg.in/op/go-logging.v1"

	"pinch/internal/crypto"
	"pinch/internal/domain"
	"pinch/internal/protocol/address"
	"pinch/internal/protocol/envelope"
)

const (
	authTimeout   = 10 * time.Second
	writeWait     = 10 * time.Second
	maxMessage    = 1 << 20
	nonceSize     = 32
	sweepInterval = time.Minute

	// PendingTTL is how long an unclaimed registration stays redeemable.
	PendingTTL = 24 * time.Hour
)

// Server is a development relay.
type Server struct {
	// Host, when set, is the only address host the relay admits.
	Host string

	registry    domain.KeyRegistry
	adminSecret string
	suite       *crypto.Suite
	log         *logging.Logger

	upgrader websocket.Upgrader

	mu sync.RWMutex
	// An agent may hold several sessions, e.g. a listener plus a command.
	clients map[domain.Address]map[*client]struct{}
	count   int
}

type client struct {
	addr domain.Address
	conn *websocket.Conn
	wmu  sync.Mutex
}

func (c *client) write(b []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.BinaryMessage, b)
}

func (c *client) close(code int, text string) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text), time.Now().Add(writeWait))
}

// NewServer returns a relay that admits keys approved in registry. Claims
// are refused when adminSecret is empty.
func NewServer(registry domain.KeyRegistry, adminSecret string, suite *crypto.Suite, log *logging.Logger) *Server {
	return &Server{
		registry:    registry,
		adminSecret: adminSecret,
		suite:       suite,
		log:         log,
		upgrader: websocket.Upgrader{
			// Development relay: any origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[domain.Address]map[*client]struct{}),
	}
}

// Handler returns the relay's HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.serveWS)
	mux.HandleFunc("POST /agents/claim", s.serveClaim)
	mux.HandleFunc("GET /health", s.serveHealth)
	return mux
}

// Run sweeps expired pending registrations until ctx is done.
func (s *Server) Run(ctx context.Context) {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.registry.SweepPending(PendingTTL)
			if err != nil {
				s.log.Errorf("sweep pending registrations: %v", err)
			} else if n > 0 {
				s.log.Infof("expired %d pending registrations", n)
			}
		}
	}
}

// ClientCount returns the number of routed sessions.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	addr := domain.Address(r.URL.Query().Get("address"))
	pub, host, err := address.Validate(addr)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if s.Host != "" && host != s.Host {
		http.Error(w, fmt.Sprintf("address host %q is not served here", host), http.StatusBadRequest)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warningf("websocket upgrade for %s: %v", addr, err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessage)

	c := &client{addr: addr, conn: conn}
	if err := s.authenticate(c, pub); err != nil {
		s.log.Warningf("auth %s: %v", addr, err)
		c.close(CloseUnauthorized, "authentication failed")
		return
	}

	key := crypto.B64(pub[:])
	approved, err := s.registry.IsApproved(key)
	if err != nil {
		s.log.Errorf("registry lookup for %s: %v", addr, err)
		c.close(websocket.CloseInternalServerErr, "registry unavailable")
		return
	}
	if !approved {
		code, err := s.registry.RegisterPending(key, addr)
		if err != nil {
			s.log.Errorf("register pending %s: %v", addr, err)
			c.close(websocket.CloseInternalServerErr, "registry unavailable")
			return
		}
		s.log.Noticef("pending registration for %s, claim code %s", addr, code)
		c.close(ClosePending, code)
		return
	}

	s.register(c)
	defer s.unregister(c)

	ack, err := envelope.Marshal(&envelope.Envelope{
		Version:   envelope.CurrentVersion,
		ToAddress: string(addr),
		Type:      envelope.TypeHeartbeat,
		Timestamp: time.Now().UnixMilli(),
		Payload:   &envelope.Heartbeat{Timestamp: time.Now().UnixMilli()},
	})
	if err != nil {
		s.log.Errorf("encode heartbeat: %v", err)
		return
	}
	if err := c.write(ack); err != nil {
		return
	}

	for {
		typ, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Infof("session %s ended: %v", addr, err)
			}
			return
		}
		if typ != websocket.BinaryMessage {
			continue
		}
		s.route(c, raw)
	}
}

func (s *Server) authenticate(c *client, pub domain.Ed25519Public) error {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	challenge, err := envelope.Marshal(&envelope.Envelope{
		Version:   envelope.CurrentVersion,
		ToAddress: string(c.addr),
		Type:      envelope.TypeAuthChallenge,
		Timestamp: now,
		Payload:   &envelope.AuthChallenge{Nonce: nonce, Timestamp: now},
	})
	if err != nil {
		return err
	}
	if err := c.write(challenge); err != nil {
		return err
	}

	_ = c.conn.SetReadDeadline(time.Now().Add(authTimeout))
	defer c.conn.SetReadDeadline(time.Time{})
	typ, raw, err := c.conn.ReadMessage()
	if err != nil {
		return err
	}
	if typ != websocket.BinaryMessage {
		return errors.New("auth response is not binary")
	}
	env, err := envelope.Unmarshal(raw)
	if err != nil {
		return err
	}
	resp, ok := env.Payload.(*envelope.AuthResponse)
	if !ok {
		return fmt.Errorf("expected auth response, got %s", env.Type)
	}
	if !bytes.Equal(resp.Nonce, nonce) {
		return errors.New("auth response answers a different challenge")
	}
	if !bytes.Equal(resp.PublicKey, pub[:]) {
		return errors.New("auth response key does not match address")
	}
	return s.suite.Verify(pub, authMessage(nonce), resp.Signature)
}

// route forwards raw to the connected recipient. Envelopes for offline
// recipients are dropped.
func (s *Server) route(from *client, raw []byte) {
	env, err := envelope.Unmarshal(raw)
	if err != nil {
		s.log.Warningf("dropping undecodable envelope from %s: %v", from.addr, err)
		return
	}
	if domain.Address(env.FromAddress) != from.addr {
		s.log.Warningf("dropping envelope from %s claiming to be %s", from.addr, env.FromAddress)
		return
	}
	targets := s.lookup(domain.Address(env.ToAddress))
	if len(targets) == 0 {
		s.log.Infof("dropping %s for offline %s", env.Type, env.ToAddress)
		return
	}
	for _, to := range targets {
		if err := to.write(raw); err != nil {
			s.log.Warningf("deliver %s to %s: %v", env.Type, env.ToAddress, err)
		}
	}
}

func (s *Server) register(c *client) {
	s.mu.Lock()
	set := s.clients[c.addr]
	if set == nil {
		set = make(map[*client]struct{})
		s.clients[c.addr] = set
	}
	set[c] = struct{}{}
	s.count++
	n := s.count
	s.mu.Unlock()
	s.log.Infof("client registered: %s (%d connected)", c.addr, n)
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	if set := s.clients[c.addr]; set != nil {
		if _, ok := set[c]; ok {
			delete(set, c)
			s.count--
		}
		if len(set) == 0 {
			delete(s.clients, c.addr)
		}
	}
	n := s.count
	s.mu.Unlock()
	s.log.Infof("client unregistered: %s (%d connected)", c.addr, n)
}

func (s *Server) lookup(addr domain.Address) []*client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*client, 0, len(s.clients[addr]))
	for c := range s.clients[addr] {
		out = append(out, c)
	}
	return out
}

func (s *Server) serveClaim(w http.ResponseWriter, r *http.Request) {
	if s.adminSecret == "" {
		http.Error(w, "claims are disabled", http.StatusServiceUnavailable)
		return
	}
	var req ClaimRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.AdminSecret), []byte(s.adminSecret)) != 1 {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	addr, err := s.registry.Claim(req.ClaimCode)
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, "claim code not found or expired", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Errorf("claim %s: %v", req.ClaimCode, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.log.Noticef("approved %s", addr)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ClaimResponse{Address: string(addr), Status: "approved"})
}

func (s *Server) serveHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int{
		"goroutines":  runtime.NumGoroutine(),
		"connections": s.ClientCount(),
	})
}
