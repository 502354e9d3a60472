package primitives

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateMnemonicWordCounts(t *testing.T) {
	cases := map[int]int{128: 12, 256: 24}
	for bits, words := range cases {
		mnemonic, err := GenerateMnemonic(bits)
		require.NoError(t, err)
		assert.Len(t, strings.Fields(mnemonic), words)
		assert.True(t, ValidateMnemonic(mnemonic))
	}
}

func TestValidateMnemonicRejectsBadChecksum(t *testing.T) {
	// Last word swapped breaks the BIP39 checksum.
	bad := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon"
	assert.False(t, ValidateMnemonic(bad))
}

func TestValidateMnemonicAcceptsKnownTestVector(t *testing.T) {
	mnemonic := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	assert.True(t, ValidateMnemonic(mnemonic))
}

func TestGenerateMnemonicIsRandom(t *testing.T) {
	m1, err := GenerateMnemonic(128)
	require.NoError(t, err)
	m2, err := GenerateMnemonic(128)
	require.NoError(t, err)
	assert.NotEqual(t, m1, m2)
}
