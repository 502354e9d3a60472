package primitives

import (
	"crypto/rand"
	"testing"

	"filippo.io/edwards25519"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEd25519SignVerifyRoundTrip(t *testing.T) {
	var wide [64]byte
	_, err := rand.Read(wide[:])
	require.NoError(t, err)
	scalar := ScalarReduce(wide)

	pub, err := ScalarMulBase(scalar)
	require.NoError(t, err)

	msgHash := HashToScalar([]byte("tip claim message"))

	sig, err := Ed25519SignWithScalar(msgHash[:], scalar[:])
	require.NoError(t, err)
	assert.Len(t, sig, 64)

	assert.True(t, Ed25519VerifyScalar(sig, msgHash[:], pub[:]))
}

func TestEd25519VerifyRejectsTamperedMessage(t *testing.T) {
	scalar := HashToScalar([]byte("wallet key 1"))
	pub, err := ScalarMulBase(scalar)
	require.NoError(t, err)

	msgHash := HashToScalar([]byte("original message"))
	sig, err := Ed25519SignWithScalar(msgHash[:], scalar[:])
	require.NoError(t, err)

	tamperedHash := HashToScalar([]byte("tampered message"))
	assert.False(t, Ed25519VerifyScalar(sig, tamperedHash[:], pub[:]))
}

func TestEd25519SignDeterministic(t *testing.T) {
	scalar := HashToScalar([]byte("deterministic nonce check"))
	msgHash := HashToScalar([]byte("fixed message"))

	sig1, err := Ed25519SignWithScalar(msgHash[:], scalar[:])
	require.NoError(t, err)
	sig2, err := Ed25519SignWithScalar(msgHash[:], scalar[:])
	require.NoError(t, err)

	assert.Equal(t, sig1, sig2, "spec §4.1 requires a deterministic nonce, not a random one")
}

func TestScalarAddMatchesPointAddition(t *testing.T) {
	a := HashToScalar([]byte("a"))
	b := HashToScalar([]byte("b"))

	sum, err := ScalarAdd(a, b)
	require.NoError(t, err)

	sumPoint, err := ScalarMulBase(sum)
	require.NoError(t, err)

	aPoint, err := ScalarMulBase(a)
	require.NoError(t, err)
	bPoint, err := ScalarMulBase(b)
	require.NoError(t, err)

	pa, err := new(edwards25519.Point).SetBytes(aPoint[:])
	require.NoError(t, err)
	pb, err := new(edwards25519.Point).SetBytes(bPoint[:])
	require.NoError(t, err)
	added := new(edwards25519.Point).Add(pa, pb)

	assert.Equal(t, added.Bytes(), sumPoint[:], "(a+b)*G must equal a*G + b*G")
}
