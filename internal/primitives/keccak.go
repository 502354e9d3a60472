package primitives

import "golang.org/x/crypto/sha3"

// Keccak256 computes the original (pre-NIST-padding) Keccak-256 digest that
// CryptoNote chains use throughout: key derivations, key images, and
// address checksums.
func Keccak256(data ...[]byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
