package primitives

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// eciesInfo is the fixed HKDF context string binding derived keys to this
// wallet core's ECIES construction, per spec §4.1.
const eciesInfo = "walletcore-ecies-v1"

// HKDFECIESEncrypt implements spec §4.1's hkdf_ecies_encrypt: generate an
// ephemeral secp256k1 keypair, ECDH with the recipient's public key, stretch
// the shared secret through HKDF-SHA256 into an AES-256-GCM key, and seal
// plaintext under it. The returned payload is
// ephemeralPubkey(33) || nonce(12) || ciphertext+tag, the shape the social
// tip escrow (spec §4.8) hands the back-end when it registers a tip.
func HKDFECIESEncrypt(plaintext, recipientPub []byte) ([]byte, error) {
	ephemeralScalar := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, ephemeralScalar); err != nil {
		return nil, fmt.Errorf("primitives: ecies ephemeral scalar: %w", err)
	}
	ephemeralPub, err := Secp256k1PublicKey(ephemeralScalar)
	if err != nil {
		return nil, err
	}
	shared, err := ECDH(ephemeralScalar, recipientPub)
	if err != nil {
		return nil, err
	}
	kek, err := hkdfExpandKey(shared)
	if err != nil {
		return nil, err
	}
	sealed, err := Encrypt(plaintext, kek)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(ephemeralPub)+len(sealed))
	out = append(out, ephemeralPub...)
	out = append(out, sealed...)
	return out, nil
}

// HKDFECIESDecrypt reverses HKDFECIESEncrypt given the recipient's private
// scalar.
func HKDFECIESDecrypt(payload, recipientScalar []byte) ([]byte, error) {
	const pubLen = 33
	if len(payload) < pubLen {
		return nil, ErrBadCiphertext
	}
	ephemeralPub, sealed := payload[:pubLen], payload[pubLen:]
	shared, err := ECDH(recipientScalar, ephemeralPub)
	if err != nil {
		return nil, err
	}
	kek, err := hkdfExpandKey(shared)
	if err != nil {
		return nil, err
	}
	return Decrypt(sealed, kek)
}

// hkdfExpandKey stretches an ECDH shared secret into a 32-byte AES-GCM key
// via HKDF-SHA256, with no salt (the ephemeral pubkey already provides
// per-message uniqueness) and the fixed eciesInfo context.
func hkdfExpandKey(shared []byte) ([]byte, error) {
	kek := make([]byte, KEKSize)
	reader := hkdf.New(sha256.New, shared, nil, []byte(eciesInfo))
	if _, err := io.ReadFull(reader, kek); err != nil {
		return nil, fmt.Errorf("primitives: hkdf expand: %w", err)
	}
	return kek, nil
}
