package keyderiv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestDeriveAllKeysDeterministic(t *testing.T) {
	keys1, err := DeriveAllKeys(testMnemonic, "")
	require.NoError(t, err)
	keys2, err := DeriveAllKeys(testMnemonic, "")
	require.NoError(t, err)

	assert.Equal(t, keys1, keys2)
}

func TestDeriveAllKeysDiffersByPassphrase(t *testing.T) {
	keys1, err := DeriveAllKeys(testMnemonic, "")
	require.NoError(t, err)
	keys2, err := DeriveAllKeys(testMnemonic, "extra")
	require.NoError(t, err)

	assert.NotEqual(t, keys1.BTC.Scalar, keys2.BTC.Scalar)
	assert.NotEqual(t, keys1.XMR.SpendScalar, keys2.XMR.SpendScalar)
}

func TestDeriveAllKeysChainsAreIndependent(t *testing.T) {
	keys, err := DeriveAllKeys(testMnemonic, "")
	require.NoError(t, err)

	assert.NotEqual(t, keys.BTC.Scalar, keys.LTC.Scalar)
	assert.NotEqual(t, keys.XMR.SpendScalar, keys.WOW.SpendScalar)
	assert.NotEqual(t, keys.XMR.SpendScalar, keys.XMR.ViewScalar)
}

func TestBTCAndLTCAddressesUseDistinctHRPs(t *testing.T) {
	keys, err := DeriveAllKeys(testMnemonic, "")
	require.NoError(t, err)

	btcAddr, err := BTCAddress(keys.BTC.PublicKey)
	require.NoError(t, err)
	ltcAddr, err := LTCAddress(keys.LTC.PublicKey)
	require.NoError(t, err)

	assert.Contains(t, btcAddr, "bc1")
	assert.Contains(t, ltcAddr, "ltc1")
}

func TestXMRAndWOWAddressesDiffer(t *testing.T) {
	keys, err := DeriveAllKeys(testMnemonic, "")
	require.NoError(t, err)

	xmrAddr := XMRAddress(keys.XMR.SpendPublic, keys.XMR.ViewPublic)
	wowAddr := WOWAddress(keys.WOW.SpendPublic, keys.WOW.ViewPublic)

	assert.NotEmpty(t, xmrAddr)
	assert.NotEmpty(t, wowAddr)
	assert.NotEqual(t, xmrAddr, wowAddr)
}

func TestGrinAddressRoundTrip(t *testing.T) {
	keys, err := DeriveAllKeys(testMnemonic, "")
	require.NoError(t, err)

	addr, err := GrinAddress(keys.Grin.PublicKey)
	require.NoError(t, err)

	decoded, err := ParseGrinAddress(addr)
	require.NoError(t, err)
	assert.Equal(t, keys.Grin.PublicKey, decoded)
}

func TestEncodeCryptoNoteVarint(t *testing.T) {
	assert.Equal(t, []byte{0x12}, encodeCryptoNoteVarint(18))
	assert.Equal(t, []byte{0xb2, 0x20}, encodeCryptoNoteVarint(4146))
}
