package primitives

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// Secp256k1PublicKey derives the public key for scalar. Compressed is always
// 33 bytes; the uncompressed form is never used by this wallet core's wire
// formats.
func Secp256k1PublicKey(scalar []byte) ([]byte, error) {
	priv, err := secp256k1PrivKey(scalar)
	if err != nil {
		return nil, err
	}
	return priv.PubKey().SerializeCompressed(), nil
}

// Secp256k1Sign produces a DER-encoded ECDSA signature over a 32-byte
// message hash; it does not produce the fixed-width 64-byte r||s compact
// form, and this package has no recoverable-signature variant.
// Secp256k1Verify accepts the same DER encoding.
func Secp256k1Sign(messageHash, scalar []byte) ([]byte, error) {
	priv, err := secp256k1PrivKey(scalar)
	if err != nil {
		return nil, err
	}
	if len(messageHash) != 32 {
		return nil, fmt.Errorf("primitives: message hash must be 32 bytes: %w", ErrBadEncoding)
	}
	sig := ecdsa.Sign(priv, messageHash)
	return sig.Serialize(), nil
}

// Secp256k1Verify reports whether sig is a valid signature over messageHash
// by the key pubKey (33-byte compressed).
func Secp256k1Verify(sig, messageHash, pubKey []byte) bool {
	pk, err := btcec.ParsePubKey(pubKey)
	if err != nil {
		return false
	}
	parsed, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	return parsed.Verify(messageHash, pk)
}

// ECDH computes the x-coordinate of scalar*pubPoint, the shared secret used
// by hkdf_ecies_encrypt/decrypt (spec §4.1).
func ECDH(scalar, pubKey []byte) ([]byte, error) {
	priv, err := secp256k1PrivKey(scalar)
	if err != nil {
		return nil, err
	}
	pk, err := btcec.ParsePubKey(pubKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPoint, err)
	}
	x, _ := btcec.S256().ScalarMult(pk.X(), pk.Y(), priv.Key.Bytes()[:])
	var sharedX btcec.FieldVal
	sharedX.SetByteSlice(x.Bytes())
	out := sharedX.Bytes()
	return out[:], nil
}

func secp256k1PrivKey(scalar []byte) (*btcec.PrivateKey, error) {
	if len(scalar) != 32 {
		return nil, fmt.Errorf("%w: scalar must be 32 bytes", ErrInvalidScalar)
	}
	priv, pub := btcec.PrivKeyFromBytes(scalar)
	if priv == nil || pub == nil {
		return nil, ErrInvalidScalar
	}
	return priv, nil
}

// BitcoinMessageHash implements the Bitcoin Signed Message hash: double
// SHA-256 of the fixed magic prefix, the message's CompactSize length, and
// the message itself (spec §4.1).
func BitcoinMessageHash(msg []byte) [32]byte {
	const magic = "\x18Bitcoin Signed Message:\n"
	buf := make([]byte, 0, len(magic)+9+len(msg))
	buf = append(buf, magic...)
	buf = appendVarInt(buf, uint64(len(msg)))
	buf = append(buf, msg...)
	first := sha256.Sum256(buf)
	return sha256.Sum256(first[:])
}

// appendVarInt appends a Bitcoin CompactSize-encoded integer to buf.
func appendVarInt(buf []byte, n uint64) []byte {
	switch {
	case n < 0xfd:
		return append(buf, byte(n))
	case n <= 0xffff:
		return append(buf, 0xfd, byte(n), byte(n>>8))
	case n <= 0xffffffff:
		return append(buf, 0xfe, byte(n), byte(n>>8), byte(n>>16), byte(n>>24))
	default:
		b := []byte{0xff, 0, 0, 0, 0, 0, 0, 0, 0}
		for i := 0; i < 8; i++ {
			b[1+i] = byte(n >> (8 * i))
		}
		return append(buf, b...)
	}
}
