package crypto

import (
	"encoding/base64"
	"fmt"

	"pinch/internal/domain"
)

// B64 returns standard base64 encoding without newlines.
func B64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

// ParseEd25519Public decodes a base64 Ed25519 public key as produced by B64.
func ParseEd25519Public(s string) (domain.Ed25519Public, error) {
	var pub domain.Ed25519Public
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return pub, fmt.Errorf("%w: %v", ErrInvalidKeyFormat, err)
	}
	if len(b) != len(pub) {
		return pub, fmt.Errorf("%w: public key is %d bytes, want %d", ErrInvalidKeyFormat, len(b), len(pub))
	}
	copy(pub[:], b)
	return pub, nil
}
