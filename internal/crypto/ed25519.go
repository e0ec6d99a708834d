package crypto

import (
	"crypto/ed25519"
	"crypto/rand"

	"pinch/internal/domain"
)

// GenerateEd25519 returns a new Ed25519 signing key pair.
func (s *Suite) GenerateEd25519() (priv domain.Ed25519Private, pub domain.Ed25519Public, err error) {
	if err = s.check(); err != nil {
		return priv, pub, err
	}
	pk, sk, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return priv, pub, err
	}
	copy(priv[:], sk)
	copy(pub[:], pk)
	return priv, pub, nil
}

// Sign signs msg with priv and returns the signature.
func (s *Suite) Sign(priv domain.Ed25519Private, msg []byte) ([]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return ed25519.Sign(ed25519.PrivateKey(priv[:]), msg), nil
}

// Verify checks sig over msg with pub.
func (s *Suite) Verify(pub domain.Ed25519Public, msg, sig []byte) error {
	if err := s.check(); err != nil {
		return err
	}
	if !ed25519.Verify(ed25519.PublicKey(pub[:]), msg, sig) {
		return ErrAuthenticationFailed
	}
	return nil
}
