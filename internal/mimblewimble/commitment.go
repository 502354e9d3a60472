// Package mimblewimble implements the Grin engine (spec §4.7): Pedersen
// commitments, per-output blinding-factor derivation, and the SRS
// (sender-receiver-sender) interactive slate protocol plus its RSR
// invoice variant. Pedersen commitments are adapted directly from the
// teacher's privacy/confidential package, renamed from its Shell
// confidential-transaction domain to Grin's, on the same secp256k1 curve
// real Mimblewimble uses.
package mimblewimble

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btclog"
)

var log btclog.Logger

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger btclog.Logger) {
	log = logger
}

func init() {
	DisableLog()
}

// DisableLog disables all library log output. Logging output is disabled
// by default until UseLogger is called.
func DisableLog() {
	log = btclog.Disabled
}

const (
	// CommitmentSize is a serialized Pedersen commitment's size: a
	// 33-byte compressed secp256k1 point.
	CommitmentSize = 33

	// BlindingFactorSize is a blinding factor's size in bytes.
	BlindingFactorSize = 32
)

var (
	ErrInvalidCommitment     = errors.New("mimblewimble: invalid commitment")
	ErrInvalidBlindingFactor = errors.New("mimblewimble: invalid blinding factor")

	curveOrder = btcec.S256().N
)

// PedersenCommitment is C = vH + rG: a value v blinded by a secret
// factor r, hiding the amount while remaining homomorphic under
// addition.
type PedersenCommitment struct {
	point *btcec.PublicKey
}

// BlindingFactor is the secret scalar r in a Pedersen commitment.
type BlindingFactor [BlindingFactorSize]byte

// NewPedersenCommitment parses a serialized (compressed) commitment.
func NewPedersenCommitment(data []byte) (*PedersenCommitment, error) {
	if len(data) != CommitmentSize {
		return nil, ErrInvalidCommitment
	}
	pubKey, err := btcec.ParsePubKey(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCommitment, err)
	}
	return &PedersenCommitment{point: pubKey}, nil
}

// Bytes returns the serialized (compressed) commitment.
func (c *PedersenCommitment) Bytes() []byte {
	return c.point.SerializeCompressed()
}

// Hash returns a hash of the commitment, used as a Grin output's id.
func (c *PedersenCommitment) Hash() chainhash.Hash {
	return chainhash.DoubleHashH(c.Bytes())
}

// String returns the commitment's hex encoding.
func (c *PedersenCommitment) String() string {
	return fmt.Sprintf("%x", c.Bytes())
}

// IsEqual reports whether two commitments are the same curve point.
func (c *PedersenCommitment) IsEqual(other *PedersenCommitment) bool {
	if other == nil {
		return false
	}
	return c.point.IsEqual(other.point)
}

// BigInt returns the blinding factor as a big integer.
func (bf BlindingFactor) BigInt() *big.Int {
	return new(big.Int).SetBytes(bf[:])
}

// valueGenerator is Mimblewimble's "H" generator point: derived
// deterministically from a domain-separated hash so that no party knows
// its discrete log relative to G, the same construction the teacher's
// confidential package uses for its own value generator.
func valueGenerator() *btcec.PublicKey {
	hasher := sha256.New()
	hasher.Write([]byte("Grin Pedersen Value Generator v1"))
	seed := hasher.Sum(nil)

	scalar := new(big.Int).SetBytes(seed)
	scalar.Mod(scalar, curveOrder)

	hx, hy := btcec.S256().ScalarBaseMult(scalar.Bytes())
	var fx, fy btcec.FieldVal
	fx.SetByteSlice(hx.Bytes())
	fy.SetByteSlice(hy.Bytes())
	return btcec.NewPublicKey(&fx, &fy)
}

// CreateCommitment builds C = vH + rG for value and blindingFactor.
func CreateCommitment(value uint64, blindingFactor BlindingFactor) (*PedersenCommitment, error) {
	if blindingFactor.BigInt().Sign() == 0 {
		return nil, ErrInvalidBlindingFactor
	}
	H := valueGenerator()

	valueBig := new(big.Int).SetUint64(value)
	valuePointX, valuePointY := btcec.S256().ScalarMult(H.X(), H.Y(), valueBig.Bytes())
	blindPointX, blindPointY := btcec.S256().ScalarBaseMult(blindingFactor[:])
	commitX, commitY := btcec.S256().Add(valuePointX, valuePointY, blindPointX, blindPointY)

	var fx, fy btcec.FieldVal
	fx.SetByteSlice(commitX.Bytes())
	fy.SetByteSlice(commitY.Bytes())
	return &PedersenCommitment{point: btcec.NewPublicKey(&fx, &fy)}, nil
}

// VerifyCommitment reports whether commitment opens to value/blindingFactor.
func VerifyCommitment(commitment *PedersenCommitment, value uint64, blindingFactor BlindingFactor) bool {
	expected, err := CreateCommitment(value, blindingFactor)
	if err != nil {
		return false
	}
	return commitment.IsEqual(expected)
}

// AddCommitments adds two commitments homomorphically: useful for
// verifying sum(inputs) = sum(outputs) + fee without learning any
// individual value.
func AddCommitments(c1, c2 *PedersenCommitment) *PedersenCommitment {
	sumX, sumY := btcec.S256().Add(c1.point.X(), c1.point.Y(), c2.point.X(), c2.point.Y())
	var fx, fy btcec.FieldVal
	fx.SetByteSlice(sumX.Bytes())
	fy.SetByteSlice(sumY.Bytes())
	return &PedersenCommitment{point: btcec.NewPublicKey(&fx, &fy)}
}

// SubtractCommitments computes c1 - c2.
func SubtractCommitments(c1, c2 *btcec.PublicKey) *PedersenCommitment {
	negY := new(big.Int).Neg(c2.Y())
	negY.Mod(negY, btcec.S256().P)
	sumX, sumY := btcec.S256().Add(c1.X(), c1.Y(), c2.X(), negY)
	var fx, fy btcec.FieldVal
	fx.SetByteSlice(sumX.Bytes())
	fy.SetByteSlice(sumY.Bytes())
	return &PedersenCommitment{point: btcec.NewPublicKey(&fx, &fy)}
}

// FeeCommitment returns fee*H, the public commitment to an explicit
// (unblinded) transaction fee, used when computing a kernel excess:
// excess = sum(outputs) - sum(inputs) + fee*H.
func FeeCommitment(fee uint64) *btcec.PublicKey {
	H := valueGenerator()
	feeBig := new(big.Int).SetUint64(fee)
	x, y := btcec.S256().ScalarMult(H.X(), H.Y(), feeBig.Bytes())
	var fx, fy btcec.FieldVal
	fx.SetByteSlice(x.Bytes())
	fy.SetByteSlice(y.Bytes())
	return btcec.NewPublicKey(&fx, &fy)
}

// AddBlindingFactors sums two blinding factors mod the curve order, the
// operation the SRS protocol uses to combine the sender's and
// recipient's partial offsets into a transaction's final kernel excess
// scalar.
func AddBlindingFactors(a, b BlindingFactor) BlindingFactor {
	sum := new(big.Int).Add(a.BigInt(), b.BigInt())
	sum.Mod(sum, curveOrder)
	var out BlindingFactor
	sum.FillBytes(out[:])
	return out
}

// NegateBlindingFactor returns -a mod the curve order.
func NegateBlindingFactor(a BlindingFactor) BlindingFactor {
	neg := new(big.Int).Neg(a.BigInt())
	neg.Mod(neg, curveOrder)
	var out BlindingFactor
	neg.FillBytes(out[:])
	return out
}
