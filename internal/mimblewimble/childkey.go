package mimblewimble

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"math/big"
)

// DeriveBlindingFactor derives the blinding factor for output nChild of
// this wallet's Mimblewimble master scalar: HMAC-SHA256 keyed on the
// master scalar over a fixed domain-separation label plus the big-endian
// child index, reduced mod the curve order. A given (masterScalar, nChild) pair always yields the
// same blinding factor — the back-end's monotonic next_child_index is
// what actually prevents reuse (spec §4.7); this function is pure.
func DeriveBlindingFactor(masterScalar [32]byte, nChild uint32) BlindingFactor {
	mac := hmac.New(sha256.New, masterScalar[:])
	mac.Write([]byte("grin/blind/"))
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], nChild)
	mac.Write(idx[:])
	sum := mac.Sum(nil)

	scalar := new(big.Int).SetBytes(sum)
	scalar.Mod(scalar, curveOrder)
	var out BlindingFactor
	scalar.FillBytes(out[:])
	return out
}

// childIndexTracker enforces spec §4.7's "never reuse, even across
// cancelled transactions" nChild invariant within a single process. The
// back-end is the authoritative source of next_child_index; this tracker
// is a local belt-and-braces guard against re-deriving an already-used
// index due to a caller bug.
type childIndexTracker struct {
	used map[uint32]bool
}

func newChildIndexTracker() *childIndexTracker {
	return &childIndexTracker{used: make(map[uint32]bool)}
}

// claim marks nChild as used, returning false if it was already claimed.
func (t *childIndexTracker) claim(nChild uint32) bool {
	if t.used[nChild] {
		return false
	}
	t.used[nChild] = true
	return true
}
