package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pinch/internal/crypto"
	plog "pinch/internal/log"
	"pinch/internal/relay"
	"pinch/internal/store"
)

const shutdownTimeout = 10 * time.Second

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	port := getenv("PINCH_RELAY_PORT", "8080")
	host := getenv("PINCH_RELAY_HOST", "localhost")
	dbPath := getenv("PINCH_RELAY_DB", "relay.db")
	secret := os.Getenv("PINCH_RELAY_ADMIN_SECRET")

	backend, err := plog.New(os.Getenv("PINCH_RELAY_LOG_FILE"), getenv("PINCH_RELAY_LOG_LEVEL", "INFO"), false)
	if err != nil {
		panic(err)
	}
	log := backend.GetLogger("relay")

	suite, err := crypto.Init()
	if err != nil {
		log.Critical("crypto init: %v", err)
		os.Exit(1)
	}
	db, err := store.Open(dbPath)
	if err != nil {
		log.Critical("%v", err)
		os.Exit(1)
	}
	defer db.Close()

	if secret == "" {
		log.Warning("PINCH_RELAY_ADMIN_SECRET is not set; claims are disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := relay.NewServer(store.NewKeyRegistry(db), secret, suite, log)
	srv.Host = host
	go srv.Run(ctx)

	httpSrv := &http.Server{
		Addr:              net.JoinHostPort("", port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Noticef("relay listening on %s for @%s addresses", httpSrv.Addr, host)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Critical("server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Notice("shutting down relay")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
	log.Notice("relay stopped")
}
