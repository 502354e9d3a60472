package cryptonote

import (
	"github.com/toole-brendan/walletcore/internal/keyderiv"
	"github.com/toole-brendan/walletcore/internal/primitives"
)

// Address derives a CryptoNote standard address from a spend/view scalar
// pair, per spec §4.2. Callers use it both for the wallet's own receiving
// address and to rebuild a social tip's ephemeral one-off address ahead
// of a sweep.
func Address(coin string, spendScalar, viewScalar [32]byte) (string, error) {
	spendPub, err := primitives.ScalarMulBase(spendScalar)
	if err != nil {
		return "", err
	}
	viewPub, err := primitives.ScalarMulBase(viewScalar)
	if err != nil {
		return "", err
	}
	if coin == "wow" {
		return keyderiv.WOWAddress(spendPub, viewPub), nil
	}
	return keyderiv.XMRAddress(spendPub, viewPub), nil
}

// TipViewScalar derives a social tip's CryptoNote view scalar from its
// spend scalar per spec §4.8: H_s(spend_scalar) reduced mod l — the same
// derivation tipescrow.GenerateTipKeypair uses when minting the tip, so a
// sweep can rebuild the view key a funded tip's one-off account needs to
// scan its own outputs without the tip scalar ever leaving this process.
func TipViewScalar(spendScalar [32]byte) [32]byte {
	viewHash := primitives.Keccak256(spendScalar[:])
	var wide [64]byte
	copy(wide[:32], viewHash[:])
	return primitives.ScalarReduce(wide)
}
