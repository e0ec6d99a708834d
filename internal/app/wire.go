package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"gopkg.in/op/go-logging.v1"

	"pinch/internal/crypto"
	"pinch/internal/domain"
	plog "pinch/internal/log"
	"pinch/internal/relay"
	connectionsvc "pinch/internal/services/connection"
	identitysvc "pinch/internal/services/identity"
	messagesvc "pinch/internal/services/message"
	"pinch/internal/services/router"
	"pinch/internal/store"
)

const dbFilename = "pinch.db"

// Wire bundles all stores, services, and clients for the CLI.
type Wire struct {
	Config Config
	Log    *plog.Backend
	Suite  *crypto.Suite

	IdentityStore *store.IdentityFileStore
	DB            *store.DB

	Identity    *identitysvc.Service
	Connections domain.ConnectionService
	Messages    domain.MessageService

	Relay     domain.RelayClient
	Transport *relay.Lazy
	HTTP      *http.Client

	log *logging.Logger
}

// NewWire constructs the dependency graph from cfg. passphrase unlocks the
// identity when the transport first dials the relay.
func NewWire(cfg Config, passphrase string) (*Wire, error) {
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, fmt.Errorf("create home %s: %w", cfg.Home, err)
	}
	backend, err := plog.New(cfg.Logging.File, cfg.Logging.Level, cfg.Logging.Disable)
	if err != nil {
		return nil, err
	}
	suite, err := crypto.Init()
	if err != nil {
		return nil, err
	}

	identityStore := store.NewIdentityFileStore(cfg.Home)
	db, err := store.OpenTransient(filepath.Join(cfg.Home, dbFilename))
	if err != nil {
		return nil, err
	}

	// Ensure an HTTP client is available for outbound calls
	httpClient := cfg.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	rc := relay.NewHTTP(cfg.RelayURL)
	rc.HTTP = httpClient

	wireLog := backend.GetLogger("app")
	transport := relay.NewLazy(func(ctx context.Context) (*relay.Session, error) {
		id, err := identityStore.LoadIdentity(passphrase)
		if err != nil {
			return nil, err
		}
		wireLog.Debugf("dialing relay %s as %s", cfg.RelayURL, id.Address)
		return relay.Dial(ctx, cfg.RelayURL, suite, id)
	})

	return &Wire{
		Config:        cfg,
		Log:           backend,
		Suite:         suite,
		IdentityStore: identityStore,
		DB:            db,
		Identity:      identitysvc.New(identityStore, suite),
		Connections: connectionsvc.New(identityStore, db, transport, suite,
			backend.GetLogger("connection")),
		Messages: messagesvc.New(identityStore, db, db, transport, suite,
			backend.GetLogger("message")),
		Relay:     rc,
		Transport: transport,
		HTTP:      httpClient,
		log:       wireLog,
	}, nil
}

// Router returns a dispatcher for envelopes addressed to self.
func (w *Wire) Router(self domain.Address) *router.Router {
	return router.New(self, w.Connections, w.Messages, w.Log.GetLogger("router"))
}

// Close releases the relay session and the database.
func (w *Wire) Close() error {
	if err := w.Transport.Close(); err != nil {
		w.log.Debugf("close relay session: %v", err)
	}
	return w.DB.Close()
}
