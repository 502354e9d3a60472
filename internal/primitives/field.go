package primitives

import "math/big"

// The ed25519/Curve25519 base field, p = 2^255 - 19.
var fieldPrime = func() *big.Int {
	p := new(big.Int).Lsh(big.NewInt(1), 255)
	p.Sub(p, big.NewInt(19))
	return p
}()

// montgomeryA is Curve25519's Montgomery-form coefficient A in
// v^2 = u^3 + A u^2 + u.
var montgomeryA = big.NewInt(486662)

// sqrtMinus1 is a square root of -1 mod p. Since p ≡ 5 (mod 8), it equals
// 2^((p-1)/4) mod p.
var sqrtMinus1 = func() *big.Int {
	exp := new(big.Int).Sub(fieldPrime, big.NewInt(1))
	exp.Rsh(exp, 2)
	return new(big.Int).Exp(big.NewInt(2), exp, fieldPrime)
}()

// sqrtNegA4 is sqrt(-(A+2)) mod p, the birational-map constant converting a
// Curve25519 Montgomery u-coordinate into an ed25519 Edwards x-coordinate:
// x = sqrtNegA4 * u / v.
var sqrtNegA4 = func() *big.Int {
	neg := new(big.Int).Neg(new(big.Int).Add(montgomeryA, big.NewInt(2)))
	neg.Mod(neg, fieldPrime)
	return feSqrt(neg)
}()

func feMod(x *big.Int) *big.Int {
	return new(big.Int).Mod(x, fieldPrime)
}

func feAdd(a, b *big.Int) *big.Int { return feMod(new(big.Int).Add(a, b)) }
func feSub(a, b *big.Int) *big.Int { return feMod(new(big.Int).Sub(a, b)) }
func feMul(a, b *big.Int) *big.Int { return feMod(new(big.Int).Mul(a, b)) }
func feSquare(a *big.Int) *big.Int { return feMul(a, a) }
func feNeg(a *big.Int) *big.Int    { return feMod(new(big.Int).Neg(a)) }

func feInv(a *big.Int) *big.Int {
	return new(big.Int).ModInverse(a, fieldPrime)
}

func feDiv(a, b *big.Int) *big.Int {
	return feMul(a, feInv(b))
}

func fePow(a, e *big.Int) *big.Int {
	return new(big.Int).Exp(a, e, fieldPrime)
}

// feLegendre returns 1 if a is a nonzero quadratic residue mod p, -1 (as
// p-1) if a is a non-residue, and 0 if a is 0.
func feLegendre(a *big.Int) *big.Int {
	if a.Sign() == 0 {
		return big.NewInt(0)
	}
	exp := new(big.Int).Sub(fieldPrime, big.NewInt(1))
	exp.Rsh(exp, 1)
	return fePow(a, exp)
}

func feIsSquare(a *big.Int) bool {
	leg := feLegendre(a)
	return leg.Cmp(big.NewInt(1)) == 0
}

// feSqrt returns a square root of a mod p for the p ≡ 5 (mod 8) field used
// by Curve25519/ed25519, using the standard two-candidate construction. The
// caller must already know a is a quadratic residue (or accept an
// unspecified result otherwise).
func feSqrt(a *big.Int) *big.Int {
	exp := new(big.Int).Add(fieldPrime, big.NewInt(3))
	exp.Rsh(exp, 3)
	candidate := fePow(a, exp)
	sq := feSquare(candidate)
	if sq.Cmp(feMod(a)) == 0 {
		return candidate
	}
	return feMul(candidate, sqrtMinus1)
}

// feFromBytesLE decodes a 32-byte little-endian buffer into a field element,
// masking the top bit as ed25519's fe_frombytes does.
func feFromBytesLE(b [32]byte) *big.Int {
	masked := b
	masked[31] &= 0x7f
	v := new(big.Int)
	for i := 31; i >= 0; i-- {
		v.Lsh(v, 8)
		v.Or(v, big.NewInt(int64(masked[i])))
	}
	return feMod(v)
}

// feToBytesLE encodes a field element as 32 little-endian bytes.
func feToBytesLE(a *big.Int) [32]byte {
	var out [32]byte
	v := feMod(a)
	b := v.Bytes() // big-endian, no leading zero padding
	for i := 0; i < len(b) && i < 32; i++ {
		out[i] = b[len(b)-1-i]
	}
	return out
}
