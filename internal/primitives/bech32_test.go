package primitives

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeSegwitAddressP2WPKH(t *testing.T) {
	program := make([]byte, 20)
	_, err := rand.Read(program)
	require.NoError(t, err)

	addr, err := EncodeSegwitAddress("bc", 0, program, false)
	require.NoError(t, err)
	assert.Contains(t, addr, "bc1")

	hrp, version, decodedProgram, err := DecodeSegwitAddress(addr)
	require.NoError(t, err)
	assert.Equal(t, "bc", hrp)
	assert.Equal(t, byte(0), version)
	assert.Equal(t, program, decodedProgram)
}

func TestEncodeDecodeSegwitAddressLTC(t *testing.T) {
	program := make([]byte, 20)
	_, err := rand.Read(program)
	require.NoError(t, err)

	addr, err := EncodeSegwitAddress("ltc", 0, program, false)
	require.NoError(t, err)

	hrp, _, decodedProgram, err := DecodeSegwitAddress(addr)
	require.NoError(t, err)
	assert.Equal(t, "ltc", hrp)
	assert.Equal(t, program, decodedProgram)
}

func TestEncodeDecodeBech32mSlatepackAddress(t *testing.T) {
	pub := make([]byte, 32) // ed25519 pubkey, per spec §4.2 Grin address
	_, err := rand.Read(pub)
	require.NoError(t, err)

	addr, err := EncodeBech32Plain("grin", pub, true)
	require.NoError(t, err)

	hrp, decoded, err := DecodeBech32Plain(addr)
	require.NoError(t, err)
	assert.Equal(t, "grin", hrp)
	assert.Equal(t, pub, decoded)
}

func TestDecodeSegwitAddressRejectsGarbage(t *testing.T) {
	_, _, _, err := DecodeSegwitAddress("not-a-bech32-address")
	assert.ErrorIs(t, err, ErrBadEncoding)
}
