package core

import (
	"github.com/toole-brendan/walletcore/internal/keyderiv"
	"github.com/toole-brendan/walletcore/internal/primitives"
	"github.com/toole-brendan/walletcore/internal/walleterr"
)

// ownAddress derives the caller's own receiving address for a UTXO chain
// from its unlocked public key — used as the tip-funding change address
// and the tip-sweep UTXO-lookup address for the wallet's own funds.
func ownAddress(keys keyderiv.AllKeys, asset string) (string, error) {
	switch asset {
	case "btc":
		return keyderiv.BTCAddress(keys.BTC.PublicKey)
	case "ltc":
		return keyderiv.LTCAddress(keys.LTC.PublicKey)
	default:
		return "", walleterr.New(walleterr.KindInvalidInput, "core.ownAddress/unsupported_asset")
	}
}

// cryptoNoteScalars returns the unlocked spend/view scalar pair for a
// CryptoNote chain.
func cryptoNoteScalars(keys keyderiv.AllKeys, asset string) (spend, view [32]byte) {
	if asset == "wow" {
		return keys.WOW.SpendScalar, keys.WOW.ViewScalar
	}
	return keys.XMR.SpendScalar, keys.XMR.ViewScalar
}

// tipPubKey derives the compressed secp256k1 public key for an ephemeral
// tip scalar, so a sweep can rebuild the tip address it needs to query
// for spendable outputs.
func tipPubKey(tipScalar [32]byte) ([]byte, error) {
	return primitives.Secp256k1PublicKey(tipScalar[:])
}

// tipAddressFor rebuilds a UTXO-chain tip address from its public key,
// mirroring GenerateTipKeypair's own address derivation so a sweep looks
// up the same address CreateTip funded.
func tipAddressFor(asset string, pub []byte) (string, error) {
	switch asset {
	case "btc":
		return keyderiv.BTCAddress(pub)
	case "ltc":
		return keyderiv.LTCAddress(pub)
	default:
		return "", walleterr.New(walleterr.KindInvalidInput, "core.tipAddressFor/unsupported_asset")
	}
}
