package crypto

import (
	"crypto/ed25519"
	"crypto/sha512"
	"fmt"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/curve25519"

	"pinch/internal/domain"
	"pinch/internal/util/memzero"
)

// ConvertedKeypair is an X25519 key pair derived from an Ed25519 identity.
type ConvertedKeypair struct {
	Public  domain.X25519Public
	Private domain.X25519Private
}

// ConvertPublicKey maps an Ed25519 public key to the X25519 public key of
// the same identity (the birational map u = (1+y)/(1-y)).
func (s *Suite) ConvertPublicKey(edPub []byte) (domain.X25519Public, error) {
	var out domain.X25519Public
	if err := s.check(); err != nil {
		return out, err
	}
	if len(edPub) != ed25519.PublicKeySize {
		return out, fmt.Errorf("%w: public key is %d bytes, want %d",
			ErrInvalidKeyFormat, len(edPub), ed25519.PublicKeySize)
	}
	p, err := new(edwards25519.Point).SetBytes(edPub)
	if err != nil {
		return out, fmt.Errorf("%w: not an Ed25519 point", ErrInvalidKeyFormat)
	}
	// Small-order points would yield a degenerate shared secret.
	if new(edwards25519.Point).MultByCofactor(p).Equal(edwards25519.NewIdentityPoint()) == 1 {
		return out, fmt.Errorf("%w: small-order Ed25519 point", ErrInvalidKeyFormat)
	}
	copy(out[:], p.BytesMontgomery())
	return out, nil
}

// ConvertPrivateKey derives the X25519 scalar from a 64-byte Ed25519 private
// key: the first 32 bytes of SHA-512(seed), clamped per RFC 7748.
func (s *Suite) ConvertPrivateKey(edPriv []byte) (domain.X25519Private, error) {
	var out domain.X25519Private
	if err := s.check(); err != nil {
		return out, err
	}
	if len(edPriv) != ed25519.PrivateKeySize {
		return out, fmt.Errorf("%w: private key is %d bytes, want %d",
			ErrInvalidKeyFormat, len(edPriv), ed25519.PrivateKeySize)
	}
	h := sha512.Sum512(edPriv[:ed25519.SeedSize])
	defer memzero.Zero(h[:])

	copy(out[:], h[:32])
	clamp(&out)
	return out, nil
}

// ConvertIdentity converts both halves of an Ed25519 identity.
func (s *Suite) ConvertIdentity(priv domain.Ed25519Private) (ConvertedKeypair, error) {
	xpriv, err := s.ConvertPrivateKey(priv[:])
	if err != nil {
		return ConvertedKeypair{}, err
	}
	pub := priv.Public()
	xpub, err := s.ConvertPublicKey(pub[:])
	if err != nil {
		return ConvertedKeypair{}, err
	}
	return ConvertedKeypair{Public: xpub, Private: xpriv}, nil
}

// PublicFromPrivate returns the X25519 public key for priv.
func (s *Suite) PublicFromPrivate(priv domain.X25519Private) (domain.X25519Public, error) {
	var out domain.X25519Public
	if err := s.check(); err != nil {
		return out, err
	}
	pb, err := curve25519.X25519(priv.Slice(), curve25519.Basepoint)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidKeyFormat, err)
	}
	copy(out[:], pb)
	return out, nil
}

func clamp(k *domain.X25519Private) {
	kb := k[:]
	kb[0] &= 248
	kb[31] &= 127
	kb[31] |= 64
}
