package crypto

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/box"

	"pinch/internal/domain"
)

const (
	// NonceSize is the length of the nonce prefixed to every sealed box.
	NonceSize = 24
	// Overhead is the authenticator length added by the box.
	Overhead = box.Overhead
)

// Seal encrypts and authenticates plaintext from sender to recipient. The
// result is nonce || ciphertext, with a fresh random nonce per call.
func (s *Suite) Seal(
	plaintext []byte,
	recipient domain.X25519Public,
	sender domain.X25519Private,
) ([]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	var nonce [NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("crypto: read nonce: %w", err)
	}
	return seal(plaintext, &nonce, recipient, sender), nil
}

// Open verifies and decrypts a sealed box produced by Seal.
func (s *Suite) Open(
	sealed []byte,
	sender domain.X25519Public,
	recipient domain.X25519Private,
) ([]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if len(sealed) < NonceSize+Overhead {
		return nil, fmt.Errorf("%w: sealed box is %d bytes, need at least %d",
			ErrAuthenticationFailed, len(sealed), NonceSize+Overhead)
	}
	var nonce [NonceSize]byte
	copy(nonce[:], sealed[:NonceSize])

	out, ok := box.Open(nil, sealed[NonceSize:], &nonce,
		(*[32]byte)(&sender), (*[32]byte)(&recipient))
	if !ok {
		return nil, ErrAuthenticationFailed
	}
	return out, nil
}

func seal(
	plaintext []byte,
	nonce *[NonceSize]byte,
	recipient domain.X25519Public,
	sender domain.X25519Private,
) []byte {
	out := make([]byte, NonceSize, NonceSize+len(plaintext)+Overhead)
	copy(out, nonce[:])
	return box.Seal(out, plaintext, nonce, (*[32]byte)(&recipient), (*[32]byte)(&sender))
}
