package crypto

import "pinch/internal/domain"

// FixedNonce is a caller-supplied box nonce. Sealing two messages under the
// same key pair and FixedNonce breaks confidentiality.
type FixedNonce [NonceSize]byte

// SealWithFixedNonce is Seal with the nonce supplied by the caller, for
// reproducing published test vectors.
func (s *Suite) SealWithFixedNonce(
	plaintext []byte,
	recipient domain.X25519Public,
	sender domain.X25519Private,
	nonce FixedNonce,
) ([]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	n := [NonceSize]byte(nonce)
	return seal(plaintext, &n, recipient, sender), nil
}
