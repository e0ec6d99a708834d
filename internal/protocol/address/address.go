// Package address generates and validates Pinch agent addresses.
//
// An address has the form pinch:<base58(pub || sha256(pub)[:4])>@<relay host>,
// where pub is the agent's Ed25519 public key.
package address

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"regexp"

	"github.com/mr-tron/base58"

	"pinch/internal/domain"
)

const (
	scheme       = "pinch:"
	checksumSize = 4
	payloadSize  = len(domain.Ed25519Public{}) + checksumSize
)

var (
	// ErrInvalidAddress is returned for strings that are not Pinch addresses.
	ErrInvalidAddress = errors.New("address: invalid format")
	// ErrChecksumMismatch is returned when the embedded checksum is wrong.
	ErrChecksumMismatch = errors.New("address: checksum mismatch")
)

var pattern = regexp.MustCompile(`^pinch:([1-9A-HJ-NP-Za-km-z]+)@(.+)$`)

// Generate builds the address of pub on relayHost.
func Generate(pub domain.Ed25519Public, relayHost string) domain.Address {
	sum := sha256.Sum256(pub[:])
	payload := make([]byte, 0, payloadSize)
	payload = append(payload, pub[:]...)
	payload = append(payload, sum[:checksumSize]...)
	return domain.Address(scheme + base58.Encode(payload) + "@" + relayHost)
}

// Parse splits addr into its base58 payload and relay host without checking
// the key or checksum.
func Parse(addr domain.Address) (payload, host string, err error) {
	m := pattern.FindStringSubmatch(string(addr))
	if m == nil {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	return m[1], m[2], nil
}

// Validate parses addr and returns the Ed25519 public key it embeds and the
// relay host.
func Validate(addr domain.Address) (domain.Ed25519Public, string, error) {
	var pub domain.Ed25519Public
	payload, host, err := Parse(addr)
	if err != nil {
		return pub, "", err
	}
	raw, err := base58.Decode(payload)
	if err != nil {
		return pub, "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(raw) != payloadSize {
		return pub, "", fmt.Errorf("%w: payload is %d bytes, want %d", ErrInvalidAddress, len(raw), payloadSize)
	}
	copy(pub[:], raw[:len(pub)])
	sum := sha256.Sum256(pub[:])
	if !bytes.Equal(raw[len(pub):], sum[:checksumSize]) {
		return domain.Ed25519Public{}, "", ErrChecksumMismatch
	}
	return pub, host, nil
}
