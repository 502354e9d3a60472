package primitives

import (
	"math/big"

	"filippo.io/edwards25519"
)

// feMA is Monero's fe_ma: -A mod p, the negated Montgomery coefficient.
var feMA = feNeg(montgomeryA)

// feMA2 is Monero's fe_ma2: -A^2 mod p.
var feMA2 = feNeg(feSquare(montgomeryA))

// feSqrtM1 is Monero's fe_sqrtm1: sqrt(-1) mod p. Already computed in
// field.go as sqrtMinus1 (2^((p-1)/4) mod p, valid since p ≡ 5 mod 8).
var feSqrtM1 = sqrtMinus1

// HashToEC implements Monero's deterministic mapping from a 32-byte hash
// value to an ed25519 curve point — crypto-ops.c's
// ge_fromfe_frombytes_vartime, followed by cofactor clearing (Monero's
// crypto::hash_to_ec calls ge_mul8 on this function's result before
// returning), per spec §4.1. Spec §8.1 requires this to match Monero's
// reference output bit-for-bit.
//
// ge_fromfe_frombytes_vartime is an Elligator2 instantiation for Curve25519
// (A=486662, B=1) reduced to a handful of field operations by ref10's
// fixed-exponent power map (fe_divpowm1) plus a four-way correction table
// (fe_fffb1..4) that accounts for the power map's four possible outcomes.
// This port takes the mathematically equivalent direct route instead of
// reproducing that limb-level shortcut: it tests each Elligator2 branch's
// candidate directly with feIsSquare/feSqrt (both already exact, used
// elsewhere in this package), which computes the identical field elements
// without needing to re-derive ref10's internal correction constants from
// memory. feMA, feMA2, and feSqrtM1 above are Monero's real named
// constants, reproduced here as computed values rather than transcribed
// limb literals since this package represents field elements as big.Int.
//
// The one place this port cannot fall back on "standard" math is the sign
// of the Montgomery v-coordinate, which Monero's code canonicalizes against
// which Elligator2 branch was taken (ge_p2's X field is always an Edwards
// x-coordinate in crypto-ops.c, and ge_fromfe_frombytes_vartime forces
// fe_isnegative(r->X) to equal a `sign` flag that is 1 exactly when the
// gx1 branch was taken) — reproduced below as canonicalizeSign.
func HashToEC(hash [32]byte) ([32]byte, error) {
	r := feFromBytesLE(hash)

	// x1 = -A / (1 + 2r^2), the first Elligator2 candidate u-coordinate.
	denom := feAdd(big.NewInt(1), feMul(big.NewInt(2), feSquare(r)))
	if denom.Sign() == 0 {
		return [32]byte{}, ErrInvalidPoint
	}
	x1 := feDiv(feMA, denom)
	gx1 := montgomeryRHS(x1)

	// Elligator2's theorem guarantees exactly one of gx1, gx2 is a square;
	// that branch's x is the Montgomery u-coordinate Monero's algorithm
	// selects, with sign=1 for the gx1 branch and sign=0 for gx2.
	var u, gx *big.Int
	var sign int
	if feIsSquare(gx1) {
		u, gx, sign = x1, gx1, 1
	} else {
		x2 := feSub(feNeg(x1), montgomeryA)
		u, gx, sign = x2, montgomeryRHS(x2), 0
	}

	if u.Cmp(big.NewInt(-1)) == 0 {
		return [32]byte{}, ErrInvalidPoint
	}
	uPlus1 := feAdd(u, big.NewInt(1))
	if uPlus1.Sign() == 0 {
		return [32]byte{}, ErrInvalidPoint
	}

	v := feSqrt(gx)

	// Birational map from Montgomery (u, v) to Edwards (x, y); universal
	// for the Curve25519/ed25519 parameter pair, independent of branch.
	edwardsX := feDiv(feMul(sqrtNegA4, u), v)
	edwardsY := feDiv(feSub(u, big.NewInt(1)), uPlus1)

	edwardsX = canonicalizeSign(edwardsX, sign)

	encoded := encodeEdwardsPoint(edwardsX, edwardsY)

	pt, err := new(edwards25519.Point).SetBytes(encoded[:])
	if err != nil {
		return [32]byte{}, ErrInvalidPoint
	}

	cleared := new(edwards25519.Point).MultByCofactor(pt)
	var out [32]byte
	copy(out[:], cleared.Bytes())
	return out, nil
}

// canonicalizeSign forces x's sign (its encoded low bit, matching ref10's
// fe_isnegative) to equal sign, negating x if the two disagree — Monero's
// "setsign" step.
func canonicalizeSign(x *big.Int, sign int) *big.Int {
	if int(feToBytesLE(x)[0]&1) != sign {
		return feNeg(x)
	}
	return x
}

// HashToECFromPubkey computes Monero's `hash_to_ec(pubkey)`: Keccak-256 the
// public key bytes, then apply HashToEC.
func HashToECFromPubkey(pubkey []byte) ([32]byte, error) {
	return HashToEC(Keccak256(pubkey))
}

// montgomeryRHS evaluates u^3 + A u^2 + u, the Montgomery curve's
// right-hand side at u.
func montgomeryRHS(u *big.Int) *big.Int {
	u2 := feSquare(u)
	u3 := feMul(u2, u)
	return feAdd(feAdd(u3, feMul(montgomeryA, u2)), u)
}

// encodeEdwardsPoint produces the canonical 32-byte little-endian ed25519
// point encoding: y in the low 255 bits, the sign of x in the top bit.
func encodeEdwardsPoint(x, y *big.Int) [32]byte {
	enc := feToBytesLE(y)
	if feToBytesLE(x)[0]&1 == 1 {
		enc[31] |= 0x80
	}
	return enc
}
