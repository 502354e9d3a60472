package primitives

import (
	"crypto/sha512"
	"fmt"

	"filippo.io/edwards25519"
)

// ScalarReduce reduces a 64-byte little-endian value mod the ed25519 group
// order L = 2^252 + 27742317777372353535851937790883648493, producing a
// canonical 32-byte scalar. Used throughout CryptoNote key derivation (H_s).
func ScalarReduce(wide [64]byte) [32]byte {
	s, err := new(edwards25519.Scalar).SetUniformBytes(wide[:])
	if err != nil {
		// SetUniformBytes only fails on wrong input length; wide is fixed-size.
		panic(fmt.Sprintf("primitives: scalar reduce: %v", err))
	}
	var out [32]byte
	copy(out[:], s.Bytes())
	return out
}

// HashToScalar computes H_s(data...) = Keccak256(data...) reduced mod L,
// the CryptoNote "hash to scalar" primitive used for derivation scalars and
// challenge values.
func HashToScalar(data ...[]byte) [32]byte {
	h := Keccak256(data...)
	var wide [64]byte
	copy(wide[:32], h[:])
	return ScalarReduce(wide)
}

// ScalarAdd returns (a+b) mod L.
func ScalarAdd(a, b [32]byte) ([32]byte, error) {
	sa, err := new(edwards25519.Scalar).SetCanonicalBytes(a[:])
	if err != nil {
		return [32]byte{}, fmt.Errorf("%w: %v", ErrInvalidScalar, err)
	}
	sb, err := new(edwards25519.Scalar).SetCanonicalBytes(b[:])
	if err != nil {
		return [32]byte{}, fmt.Errorf("%w: %v", ErrInvalidScalar, err)
	}
	sum := new(edwards25519.Scalar).Add(sa, sb)
	var out [32]byte
	copy(out[:], sum.Bytes())
	return out, nil
}

// ScalarMulBase multiplies the ed25519 base point by scalar, returning the
// compressed public point (scalar·G).
func ScalarMulBase(scalar [32]byte) ([32]byte, error) {
	s, err := new(edwards25519.Scalar).SetCanonicalBytes(scalar[:])
	if err != nil {
		return [32]byte{}, fmt.Errorf("%w: %v", ErrInvalidScalar, err)
	}
	p := new(edwards25519.Point).ScalarBaseMult(s)
	var out [32]byte
	copy(out[:], p.Bytes())
	return out, nil
}

// ScalarMulPoint computes scalar·point for an arbitrary compressed point,
// used for the view-key Diffie-Hellman shared secret D = a·R and for
// computing key images KI = x·H_p_P.
func ScalarMulPoint(scalar, point [32]byte) ([32]byte, error) {
	s, err := new(edwards25519.Scalar).SetCanonicalBytes(scalar[:])
	if err != nil {
		return [32]byte{}, fmt.Errorf("%w: %v", ErrInvalidScalar, err)
	}
	p, err := new(edwards25519.Point).SetBytes(point[:])
	if err != nil {
		return [32]byte{}, fmt.Errorf("%w: %v", ErrInvalidPoint, err)
	}
	result := new(edwards25519.Point).ScalarMult(s, p)
	var out [32]byte
	copy(out[:], result.Bytes())
	return out, nil
}

// Ed25519SignWithScalar signs msgHash with a raw 32-byte scalar (rather than
// a seed), per spec §4.1: deterministic nonce
// r = SHA-512(SHA-512(scalar) || msgHash) mod L, R = r·G,
// k = SHA-512(R || A || msgHash) mod L, s = r + k·scalar mod L. Returns the
// 64-byte R||s signature.
func Ed25519SignWithScalar(msgHash, scalar []byte) ([]byte, error) {
	if len(scalar) != 32 {
		return nil, fmt.Errorf("%w: scalar must be 32 bytes", ErrInvalidScalar)
	}
	var scalarArr [32]byte
	copy(scalarArr[:], scalar)

	pub, err := ScalarMulBase(scalarArr)
	if err != nil {
		return nil, err
	}

	prefixHash := sha512.Sum512(scalar)
	rWide := sha512.New()
	rWide.Write(prefixHash[:])
	rWide.Write(msgHash)
	var rWideArr [64]byte
	copy(rWideArr[:], rWide.Sum(nil))
	r := ScalarReduce(rWideArr)

	R, err := ScalarMulBase(r)
	if err != nil {
		return nil, err
	}

	kHash := sha512.New()
	kHash.Write(R[:])
	kHash.Write(pub[:])
	kHash.Write(msgHash)
	var kWideArr [64]byte
	copy(kWideArr[:], kHash.Sum(nil))
	k := ScalarReduce(kWideArr)

	kTimesScalar, err := scalarMul(k, scalarArr)
	if err != nil {
		return nil, err
	}
	s, err := ScalarAdd(r, kTimesScalar)
	if err != nil {
		return nil, err
	}

	sig := make([]byte, 64)
	copy(sig[:32], R[:])
	copy(sig[32:], s[:])
	return sig, nil
}

// Ed25519VerifyScalar verifies a signature produced by Ed25519SignWithScalar
// (or standard ed25519 signing) against the public point pub.
func Ed25519VerifyScalar(sig, msgHash, pub []byte) bool {
	if len(sig) != 64 || len(pub) != 32 {
		return false
	}
	var R, pubArr [32]byte
	copy(R[:], sig[:32])
	copy(pubArr[:], pub)

	s, err := new(edwards25519.Scalar).SetCanonicalBytes(sig[32:])
	if err != nil {
		return false
	}

	kHash := sha512.New()
	kHash.Write(R[:])
	kHash.Write(pub)
	kHash.Write(msgHash)
	var kWideArr [64]byte
	copy(kWideArr[:], kHash.Sum(nil))
	k := ScalarReduce(kWideArr)

	// Check s·G == R + k·pub
	sG := new(edwards25519.Point).ScalarBaseMult(s)

	kScalar, err := new(edwards25519.Scalar).SetCanonicalBytes(k[:])
	if err != nil {
		return false
	}
	pubPoint, err := new(edwards25519.Point).SetBytes(pubArr[:])
	if err != nil {
		return false
	}
	kPub := new(edwards25519.Point).ScalarMult(kScalar, pubPoint)

	Rpoint, err := new(edwards25519.Point).SetBytes(R[:])
	if err != nil {
		return false
	}
	rhs := new(edwards25519.Point).Add(Rpoint, kPub)

	return sG.Equal(rhs) == 1
}

func scalarMul(a, b [32]byte) ([32]byte, error) {
	sa, err := new(edwards25519.Scalar).SetCanonicalBytes(a[:])
	if err != nil {
		return [32]byte{}, fmt.Errorf("%w: %v", ErrInvalidScalar, err)
	}
	sb, err := new(edwards25519.Scalar).SetCanonicalBytes(b[:])
	if err != nil {
		return [32]byte{}, fmt.Errorf("%w: %v", ErrInvalidScalar, err)
	}
	product := new(edwards25519.Scalar).Multiply(sa, sb)
	var out [32]byte
	copy(out[:], product.Bytes())
	return out, nil
}
