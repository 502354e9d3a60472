package cryptonote

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toole-brendan/walletcore/internal/primitives"
)

func randomScalar(t *testing.T) [32]byte {
	t.Helper()
	var s [32]byte
	_, err := rand.Read(s[:])
	require.NoError(t, err)
	var wide [64]byte
	copy(wide[:], s[:])
	return primitives.ScalarReduce(wide)
}

// randomPoint returns a random valid ed25519 public point, for fixture
// transaction public keys.
func randomPoint(t *testing.T) [32]byte {
	t.Helper()
	p, err := primitives.ScalarMulBase(randomScalar(t))
	require.NoError(t, err)
	return p
}

func TestComputeKeyImageDeterministic(t *testing.T) {
	view := randomScalar(t)
	spend := randomScalar(t)
	txPubKey := randomPoint(t)

	ki1, err := ComputeKeyImage(view, spend, txPubKey, 0)
	require.NoError(t, err)
	ki2, err := ComputeKeyImage(view, spend, txPubKey, 0)
	require.NoError(t, err)
	assert.Equal(t, ki1, ki2)
}

func TestComputeKeyImageDiffersByOutputIndex(t *testing.T) {
	view := randomScalar(t)
	spend := randomScalar(t)
	txPubKey := randomPoint(t)

	ki0, err := ComputeKeyImage(view, spend, txPubKey, 0)
	require.NoError(t, err)
	ki1, err := ComputeKeyImage(view, spend, txPubKey, 1)
	require.NoError(t, err)
	assert.NotEqual(t, ki0, ki1)
}

func TestVerifyOutputDetectsServerClaimedSpend(t *testing.T) {
	view := randomScalar(t)
	spend := randomScalar(t)
	txPubKey := randomPoint(t)

	ki, err := ComputeKeyImage(view, spend, txPubKey, 5)
	require.NoError(t, err)

	out := Output{Amount: 1000, TxPubKey: txPubKey, OutputIndex: 5, SpendKeyImages: [][32]byte{ki}}
	gotKI, spent, err := VerifyOutput(view, spend, out, nil)
	require.NoError(t, err)
	assert.Equal(t, ki, gotKI)
	assert.True(t, spent)
}

func TestVerifyOutputDetectsLocallyTrackedSpend(t *testing.T) {
	view := randomScalar(t)
	spend := randomScalar(t)
	txPubKey := randomPoint(t)

	out := Output{Amount: 1000, TxPubKey: txPubKey, OutputIndex: 2}
	ki, _, err := VerifyOutput(view, spend, out, nil)
	require.NoError(t, err)

	recentlySpent := map[[32]byte]bool{ki: true}
	_, spent, err := VerifyOutput(view, spend, out, recentlySpent)
	require.NoError(t, err)
	assert.True(t, spent)
}

func TestVerifyOutputUnspentWhenNoClaimMatches(t *testing.T) {
	view := randomScalar(t)
	spend := randomScalar(t)
	txPubKey := randomPoint(t)

	out := Output{Amount: 1000, TxPubKey: txPubKey, OutputIndex: 3, SpendKeyImages: [][32]byte{randomScalar(t)}}
	_, spent, err := VerifyOutput(view, spend, out, nil)
	require.NoError(t, err)
	assert.False(t, spent)
}

func TestVerifiedBalanceSubtractsSpentOutputs(t *testing.T) {
	view := randomScalar(t)
	spend := randomScalar(t)
	txPubKey1 := randomPoint(t)
	txPubKey2 := randomPoint(t)

	spentKI, err := ComputeKeyImage(view, spend, txPubKey1, 0)
	require.NoError(t, err)

	outs := []Output{
		{Amount: 500, TxPubKey: txPubKey1, OutputIndex: 0, SpendKeyImages: [][32]byte{spentKI}},
		{Amount: 300, TxPubKey: txPubKey2, OutputIndex: 0},
	}
	balance, err := VerifiedBalance(view, spend, outs, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), balance)
}

func TestVerifiedBalanceFloorsAtZero(t *testing.T) {
	view := randomScalar(t)
	spend := randomScalar(t)
	balance, err := VerifiedBalance(view, spend, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), balance)
}
