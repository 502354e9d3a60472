package mimblewimble

import (
	"crypto/rand"
	"crypto/sha256"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
)

// kernelSignature is the aggregated Schnorr signature over a
// transaction's kernel excess: the sum of every participant's blinding
// factor is never reconstructed by any single party, only the resulting
// signature is. Each participant contributes a secret nonce and a
// partial signature; the combination step never needs the other party's
// blinding factor, only their public nonce and partial signature.
type kernelSignature struct {
	R *btcec.PublicKey // aggregated public nonce
	S *big.Int         // aggregated scalar
}

// generateNonce picks a fresh per-slate nonce scalar and its public
// point, the per-participant secret every SRS round needs.
func generateNonce() (scalar [32]byte, public *btcec.PublicKey, err error) {
	for {
		if _, err = rand.Read(scalar[:]); err != nil {
			return scalar, nil, err
		}
		n := new(big.Int).SetBytes(scalar[:])
		if n.Sign() != 0 && n.Cmp(curveOrder) < 0 {
			break
		}
	}
	x, y := btcec.S256().ScalarBaseMult(scalar[:])
	var fx, fy btcec.FieldVal
	fx.SetByteSlice(x.Bytes())
	fy.SetByteSlice(y.Bytes())
	return scalar, btcec.NewPublicKey(&fx, &fy), nil
}

// kernelChallenge computes the Fiat-Shamir challenge e = H(R || excess ||
// message) mod N binding the aggregated nonce and kernel excess to the
// message being signed (the slate's fee and lock height, per convention).
func kernelChallenge(aggregateNonce, excess *btcec.PublicKey, message []byte) *big.Int {
	h := sha256.New()
	h.Write(aggregateNonce.SerializeCompressed())
	h.Write(excess.SerializeCompressed())
	h.Write(message)
	e := new(big.Int).SetBytes(h.Sum(nil))
	return e.Mod(e, curveOrder)
}

// partialSign computes one participant's partial signature s_i = k_i +
// e*blind_i mod N over the shared challenge e.
func partialSign(nonceScalar [32]byte, blind BlindingFactor, e *big.Int) *big.Int {
	k := new(big.Int).SetBytes(nonceScalar[:])
	term := new(big.Int).Mul(e, blind.BigInt())
	s := new(big.Int).Add(k, term)
	return s.Mod(s, curveOrder)
}

// combinePartialSigs sums every participant's partial signature mod N,
// the final step of an SRS round that needs no party's secret blinding
// factor, only the public partial signatures already exchanged.
func combinePartialSigs(partials ...*big.Int) *big.Int {
	sum := new(big.Int)
	for _, p := range partials {
		sum.Add(sum, p)
	}
	return sum.Mod(sum, curveOrder)
}

// addPublicPoints adds two curve points, used to aggregate public
// nonces and excesses without exposing either party's secret scalar.
func addPublicPoints(a, b *btcec.PublicKey) *btcec.PublicKey {
	x, y := btcec.S256().Add(a.X(), a.Y(), b.X(), b.Y())
	var fx, fy btcec.FieldVal
	fx.SetByteSlice(x.Bytes())
	fy.SetByteSlice(y.Bytes())
	return btcec.NewPublicKey(&fx, &fy)
}

// verifyKernelSignature checks s*G == R + e*P, the Schnorr verification
// equation for the combined kernel signature.
func verifyKernelSignature(sig kernelSignature, excess *btcec.PublicKey, message []byte) bool {
	e := kernelChallenge(sig.R, excess, message)

	sx, sy := btcec.S256().ScalarBaseMult(sig.S.Bytes())

	ex, ey := btcec.S256().ScalarMult(excess.X(), excess.Y(), e.Bytes())
	var efx, efy btcec.FieldVal
	efx.SetByteSlice(ex.Bytes())
	efy.SetByteSlice(ey.Bytes())
	ePoint := btcec.NewPublicKey(&efx, &efy)

	rhs := addPublicPoints(sig.R, ePoint)

	return sx.Cmp(rhs.X()) == 0 && sy.Cmp(rhs.Y()) == 0
}
