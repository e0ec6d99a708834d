package address_test

import (
	"crypto/ed25519"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pinch/internal/domain"
	"pinch/internal/protocol/address"
)

func testKey(t *testing.T) domain.Ed25519Public {
	t.Helper()
	seed, err := hex.DecodeString("9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60")
	require.NoError(t, err)
	var pub domain.Ed25519Public
	copy(pub[:], ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey))
	return pub
}

func TestGenerateValidate(t *testing.T) {
	pub := testKey(t)
	addr := address.Generate(pub, "relay.example.com")
	assert.True(t, strings.HasPrefix(addr.String(), "pinch:"))
	assert.True(t, strings.HasSuffix(addr.String(), "@relay.example.com"))

	got, host, err := address.Validate(addr)
	require.NoError(t, err)
	assert.Equal(t, pub, got)
	assert.Equal(t, "relay.example.com", host)
}

func TestValidate_HostWithPort(t *testing.T) {
	addr := address.Generate(testKey(t), "localhost:8080")
	_, host, err := address.Validate(addr)
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", host)
}

func TestValidate_ChecksumMismatch(t *testing.T) {
	pub := testKey(t)
	payload := append(pub[:], 0, 0, 0, 0)
	addr := domain.Address("pinch:" + base58.Encode(payload) + "@relay")
	_, _, err := address.Validate(addr)
	assert.ErrorIs(t, err, address.ErrChecksumMismatch)
}

func TestValidate_BadFormat(t *testing.T) {
	for _, addr := range []domain.Address{
		"",
		"pinch:@relay",
		"pinch:abc",
		"mailto:abc@relay",
		"pinch:0OIl@relay",
		"pinch:" + domain.Address(base58.Encode([]byte("too short"))) + "@relay",
	} {
		_, _, err := address.Validate(addr)
		assert.ErrorIs(t, err, address.ErrInvalidAddress, "address %q", addr)
	}
}
