package primitives

import (
	"crypto/rand"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecp256k1SignVerifyRoundTrip(t *testing.T) {
	scalar := make([]byte, 32)
	_, err := rand.Read(scalar)
	require.NoError(t, err)

	pub, err := Secp256k1PublicKey(scalar)
	require.NoError(t, err)
	assert.Len(t, pub, 33)

	msgHash := sha256.Sum256([]byte("build_and_sign input"))
	sig, err := Secp256k1Sign(msgHash[:], scalar)
	require.NoError(t, err)

	assert.True(t, Secp256k1Verify(sig, msgHash[:], pub))
}

func TestSecp256k1VerifyRejectsWrongKey(t *testing.T) {
	scalarA := make([]byte, 32)
	scalarB := make([]byte, 32)
	_, err := rand.Read(scalarA)
	require.NoError(t, err)
	_, err = rand.Read(scalarB)
	require.NoError(t, err)

	pubB, err := Secp256k1PublicKey(scalarB)
	require.NoError(t, err)

	msgHash := sha256.Sum256([]byte("some transaction"))
	sig, err := Secp256k1Sign(msgHash[:], scalarA)
	require.NoError(t, err)

	assert.False(t, Secp256k1Verify(sig, msgHash[:], pubB))
}

func TestECDHSharedSecretAgrees(t *testing.T) {
	scalarA := make([]byte, 32)
	scalarB := make([]byte, 32)
	_, err := rand.Read(scalarA)
	require.NoError(t, err)
	_, err = rand.Read(scalarB)
	require.NoError(t, err)

	pubA, err := Secp256k1PublicKey(scalarA)
	require.NoError(t, err)
	pubB, err := Secp256k1PublicKey(scalarB)
	require.NoError(t, err)

	sharedAB, err := ECDH(scalarA, pubB)
	require.NoError(t, err)
	sharedBA, err := ECDH(scalarB, pubA)
	require.NoError(t, err)

	assert.Equal(t, sharedAB, sharedBA)
}

func TestBitcoinMessageHashDeterministic(t *testing.T) {
	h1 := BitcoinMessageHash([]byte("verify ownership"))
	h2 := BitcoinMessageHash([]byte("verify ownership"))
	assert.Equal(t, h1, h2)

	h3 := BitcoinMessageHash([]byte("different message"))
	assert.NotEqual(t, h1, h3)
}
