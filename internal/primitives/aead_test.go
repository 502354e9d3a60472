package primitives

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)
	kek := DeriveKEK("correct horse battery staple", salt)

	plaintext := []byte("m/44'/0'/0' seed material")
	ciphertext, err := Encrypt(plaintext, kek)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	decrypted, err := Decrypt(ciphertext, kek)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)
	kek := DeriveKEK("password-one", salt)
	wrongKEK := DeriveKEK("password-two", salt)

	ciphertext, err := Encrypt([]byte("secret"), kek)
	require.NoError(t, err)

	_, err = Decrypt(ciphertext, wrongKEK)
	assert.ErrorIs(t, err, ErrBadCiphertext)
}

func TestDecryptRejectsTruncatedCiphertext(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)
	kek := DeriveKEK("password", salt)

	_, err = Decrypt([]byte{0x01, 0x02}, kek)
	assert.ErrorIs(t, err, ErrBadCiphertext)
}

func TestDeriveKEKDeterministic(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)

	kek1 := DeriveKEK("my password", salt)
	kek2 := DeriveKEK("my password", salt)
	assert.Equal(t, kek1, kek2)

	differentSalt, err := NewSalt()
	require.NoError(t, err)
	kek3 := DeriveKEK("my password", differentSalt)
	assert.NotEqual(t, kek1, kek3)
}

func TestMnemonicToSeedDeterministic(t *testing.T) {
	mnemonic := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	seed1 := MnemonicToSeed(mnemonic, "")
	seed2 := MnemonicToSeed(mnemonic, "")
	assert.Equal(t, seed1, seed2)
	assert.Len(t, seed1, 64)

	seedWithPassphrase := MnemonicToSeed(mnemonic, "extra")
	assert.NotEqual(t, seed1, seedWithPassphrase)
}
