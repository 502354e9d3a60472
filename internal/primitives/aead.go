package primitives

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// KEKSize is the derived key-encryption-key length in bytes.
const KEKSize = 32

// pbkdf2Iterations is the PBKDF2-HMAC-SHA256 iteration count used to derive
// the wallet's key-encryption-key from the user password. Fixed per spec §3.
const pbkdf2Iterations = 100_000

// DeriveKEK derives a 32-byte key-encryption-key from password and salt
// using PBKDF2-HMAC-SHA256 at 100,000 iterations, per spec §4.1.
func DeriveKEK(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, KEKSize, sha256.New)
}

// Encrypt seals plaintext under kek using AES-GCM with a random 12-byte
// nonce prepended to the ciphertext. The 16-byte GCM tag is appended by the
// AEAD implementation, matching spec §4.1's wire shape.
func Encrypt(plaintext, kek []byte) ([]byte, error) {
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("primitives: aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("primitives: gcm: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("primitives: nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a ciphertext produced by Encrypt. It returns ErrBadCiphertext
// on tag mismatch or truncated input, never a partial plaintext.
func Decrypt(ciphertext, kek []byte) ([]byte, error) {
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("primitives: aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("primitives: gcm: %w", err)
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, ErrBadCiphertext
	}
	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrBadCiphertext
	}
	return plaintext, nil
}

// NewSalt returns a fresh random 16-byte salt, used once per wallet per
// spec §3's "one master salt per wallet" invariant.
func NewSalt() ([]byte, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("primitives: salt: %w", err)
	}
	return salt, nil
}

// mnemonicSeedSaltPrefix is the fixed passphrase salt prefix BIP39 uses to stretch
// a mnemonic into a 64-byte seed via PBKDF2-HMAC-SHA512.
const mnemonicSeedSaltPrefix = "mnemonic"

// MnemonicToSeed derives the 64-byte BIP39 seed from a mnemonic phrase and
// optional passphrase, using PBKDF2-HMAC-SHA512 with 2048 iterations and the
// fixed "mnemonic"+passphrase salt, per spec §4.1.
func MnemonicToSeed(mnemonic, passphrase string) []byte {
	salt := mnemonicSeedSaltPrefix + passphrase
	return pbkdf2.Key([]byte(mnemonic), []byte(salt), 2048, 64, sha512.New)
}
