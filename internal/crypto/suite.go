package crypto

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"pinch/internal/domain"
)

// Known answer for the self test: RFC 8032 test 1 secret key and the X25519
// public key it maps to.
const (
	selfTestSeed  = "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"
	selfTestXPub  = "d85e07ec22b0ad881537c2f44d662d1a143cf830c57aca4305d85c7a90f6b62e"
	selfTestXPriv = "307c83864f2833cb427a2ef1c00a013cfdff2768d980c0a3a520f006904de94f"
	selfTestPlain = "pinch self test"
)

// Suite is the handle to the initialised cryptographic primitives.
type Suite struct {
	ready bool
}

var initSuite = sync.OnceValues(func() (*Suite, error) {
	s := &Suite{ready: true}
	if err := s.selfTest(); err != nil {
		return nil, fmt.Errorf("crypto: self test: %w", err)
	}
	return s, nil
})

// Init returns the process-wide Suite, running the self test on first use.
func Init() (*Suite, error) { return initSuite() }

func (s *Suite) check() error {
	if s == nil || !s.ready {
		return ErrNotInitialized
	}
	return nil
}

func (s *Suite) selfTest() error {
	seed, err := hex.DecodeString(selfTestSeed)
	if err != nil {
		return err
	}
	var priv domain.Ed25519Private
	copy(priv[:], ed25519.NewKeyFromSeed(seed))

	kp, err := s.ConvertIdentity(priv)
	if err != nil {
		return err
	}
	if hex.EncodeToString(kp.Public[:]) != selfTestXPub ||
		hex.EncodeToString(kp.Private[:]) != selfTestXPriv {
		return errors.New("key conversion mismatch")
	}

	sealed, err := s.Seal([]byte(selfTestPlain), kp.Public, kp.Private)
	if err != nil {
		return err
	}
	opened, err := s.Open(sealed, kp.Public, kp.Private)
	if err != nil {
		return err
	}
	if !bytes.Equal(opened, []byte(selfTestPlain)) {
		return errors.New("box round trip mismatch")
	}
	return nil
}
