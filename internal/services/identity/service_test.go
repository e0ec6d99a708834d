package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pinch/internal/crypto"
	"pinch/internal/protocol/address"
	"pinch/internal/services/identity"
	"pinch/internal/store"
)

const pass = "Correct-Horse-9!"

func newService(t *testing.T) *identity.Service {
	t.Helper()
	suite, err := crypto.Init()
	require.NoError(t, err)
	return identity.New(store.NewIdentityFileStore(t.TempDir()), suite)
}

func TestGenerateIdentity(t *testing.T) {
	svc := newService(t)

	id, fp, err := svc.GenerateIdentity(pass, "relay.example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, fp)

	pub, host, err := address.Validate(id.Address)
	require.NoError(t, err)
	assert.Equal(t, id.EdPub, pub)
	assert.Equal(t, "relay.example.com", host)
	assert.Equal(t, id.EdPub, id.EdPriv.Public())

	loaded, err := svc.LoadIdentity(pass)
	require.NoError(t, err)
	assert.Equal(t, id, loaded)

	again, err := svc.FingerprintIdentity(pass)
	require.NoError(t, err)
	assert.Equal(t, fp, again)
}

func TestGenerateIdentity_WeakPassphrase(t *testing.T) {
	svc := newService(t)
	for _, p := range []string{"", "short1!A", "alllowercase-123", "NoDigitsHere!!"} {
		_, _, err := svc.GenerateIdentity(p, "relay")
		assert.ErrorIs(t, err, identity.ErrWeakPassphrase, p)
	}
}

func TestHandshake_AdvertisesConvertedKey(t *testing.T) {
	svc := newService(t)
	suite, err := crypto.Init()
	require.NoError(t, err)

	id, _, err := svc.GenerateIdentity(pass, "relay")
	require.NoError(t, err)

	hs, err := svc.Handshake(pass)
	require.NoError(t, err)
	assert.Equal(t, id.EdPub[:], hs.SigningKey)

	kp, err := suite.ConvertIdentity(id.EdPriv)
	require.NoError(t, err)
	assert.Equal(t, kp.Public[:], hs.EncryptionKey)
}
