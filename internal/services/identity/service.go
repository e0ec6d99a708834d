package identity

import (
	"fmt"
	"unicode"

	"pinch/internal/crypto"
	"pinch/internal/domain"
	"pinch/internal/protocol/address"
	"pinch/internal/protocol/envelope"
)

const (
	// minPassphraseLength defines the minimum number of characters required for a passphrase.
	minPassphraseLength = 12

	handshakeVersion = 1
)

var (
	// ErrWeakPassphrase is returned when the passphrase fails the strength policy.
	ErrWeakPassphrase = fmt.Errorf(
		"passphrase is too weak (must be at least %d characters and include upper, lower, "+
			"number, and symbol)",
		minPassphraseLength,
	)
)

// Service manages identity key creation and access using a backing store.
type Service struct {
	store domain.IdentityStore
	suite *crypto.Suite
}

// New returns an identity service backed by the given store.
func New(s domain.IdentityStore, suite *crypto.Suite) *Service {
	return &Service{store: s, suite: suite}
}

// GenerateIdentity creates a new identity for relayHost, saves it encrypted
// with the passphrase, and returns it with a short fingerprint of the
// signing key.
func (s *Service) GenerateIdentity(
	passphrase string,
	relayHost string,
) (domain.Identity, domain.Fingerprint, error) {
	if !isSecurePassphrase(passphrase) {
		return domain.Identity{}, "", ErrWeakPassphrase
	}
	if relayHost == "" {
		return domain.Identity{}, "", fmt.Errorf("identity: relay host required")
	}

	signingPrivateKey, signingPublicKey, err := s.suite.GenerateEd25519()
	if err != nil {
		return domain.Identity{}, "", err
	}
	// The signing key must also be usable for encryption.
	if _, err := s.suite.ConvertIdentity(signingPrivateKey); err != nil {
		return domain.Identity{}, "", err
	}

	id := domain.Identity{
		EdPub:     signingPublicKey,
		EdPriv:    signingPrivateKey,
		Address:   address.Generate(signingPublicKey, relayHost),
		RelayHost: relayHost,
	}
	if err := s.store.SaveIdentity(passphrase, id); err != nil {
		return domain.Identity{}, "", err
	}
	return id, crypto.Fingerprint(id.EdPub), nil
}

// LoadIdentity decrypts and returns the local identity.
func (s *Service) LoadIdentity(passphrase string) (domain.Identity, error) {
	return s.store.LoadIdentity(passphrase)
}

// FingerprintIdentity returns a short fingerprint of the local signing key.
func (s *Service) FingerprintIdentity(passphrase string) (domain.Fingerprint, error) {
	id, err := s.store.LoadIdentity(passphrase)
	if err != nil {
		return "", err
	}
	return crypto.Fingerprint(id.EdPub), nil
}

// Handshake builds the payload advertising the local signing key and its
// converted encryption key.
func (s *Service) Handshake(passphrase string) (*envelope.Handshake, error) {
	id, err := s.store.LoadIdentity(passphrase)
	if err != nil {
		return nil, err
	}
	enc, err := s.suite.ConvertPublicKey(id.EdPub[:])
	if err != nil {
		return nil, err
	}
	return &envelope.Handshake{
		Version:       handshakeVersion,
		SigningKey:    id.EdPub[:],
		EncryptionKey: enc[:],
	}, nil
}

// isSecurePassphrase enforces a basic strength policy.
func isSecurePassphrase(passphrase string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len(passphrase) < minPassphraseLength {
		return false
	}
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}

// Compile-time assertion that Service implements domain.IdentityService.
var _ domain.IdentityService = (*Service)(nil)
