package app

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	configFilename = "config.toml"

	// EnvRelayURL overrides the relay WebSocket URL.
	EnvRelayURL = "PINCH_RELAY_URL"
	// EnvRelayAdminSecret carries the relay operator secret for claims.
	EnvRelayAdminSecret = "PINCH_RELAY_ADMIN_SECRET"
	// EnvPassphrase supplies the identity passphrase to the CLI.
	EnvPassphrase = "PINCH_PASSPHRASE"

	defaultRelayURL = "ws://localhost:8080/ws"
)

// LoggingConfig selects the log destination and verbosity.
type LoggingConfig struct {
	File    string `toml:"file"`
	Level   string `toml:"level"`
	Disable bool   `toml:"disable"`
}

// Config holds runtime wiring options for building the app.
type Config struct {
	Home     string        `toml:"-"`         // config directory, e.g. $HOME/.pinch
	RelayURL string        `toml:"relay_url"` // relay WebSocket URL, e.g. wss://relay.example.com/ws
	Logging  LoggingConfig `toml:"logging"`
	HTTP     *http.Client  `toml:"-"` // optional; defaults to http.DefaultClient
}

// LoadConfig reads <home>/config.toml when present and applies environment
// overrides. A missing file is not an error.
func LoadConfig(home string) (Config, error) {
	cfg := Config{
		Home:     home,
		RelayURL: defaultRelayURL,
		Logging:  LoggingConfig{Level: "NOTICE"},
	}
	path := filepath.Join(home, configFilename)
	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	if v := os.Getenv(EnvRelayURL); v != "" {
		cfg.RelayURL = v
	}
	cfg.Home = home
	return cfg, cfg.Validate()
}

// Validate checks that the relay URL is usable.
func (c Config) Validate() error {
	u, err := url.Parse(c.RelayURL)
	if err != nil {
		return fmt.Errorf("config: relay_url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return fmt.Errorf("config: relay_url %q: scheme must be ws or wss", c.RelayURL)
	}
	if u.Host == "" {
		return fmt.Errorf("config: relay_url %q: missing host", c.RelayURL)
	}
	return nil
}

// RelayHost is the host part used in addresses minted against this relay.
// The port is not part of it.
func (c Config) RelayHost() string {
	u, err := url.Parse(c.RelayURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
