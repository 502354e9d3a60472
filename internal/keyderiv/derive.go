// Package keyderiv turns a BIP39 mnemonic into the five chain-specific key
// bundles this wallet core signs with, and encodes each chain's public keys
// into its native address format (spec §4.2).
package keyderiv

import (
	"crypto/hmac"
	"crypto/sha512"

	"github.com/btcsuite/btclog"
	"github.com/toole-brendan/walletcore/internal/primitives"
	"github.com/toole-brendan/walletcore/internal/walleterr"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
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

// BTCLTCKeys is the key bundle shared by BTC/LTC: a raw secp256k1 scalar and
// its compressed public key.
type BTCLTCKeys struct {
	Scalar    [32]byte
	PublicKey []byte // 33-byte compressed
}

// CryptoNoteKeys is the key bundle XMR/WOW use: a private spend scalar, a
// private view scalar derived from it Monero-style, and their public points.
type CryptoNoteKeys struct {
	SpendScalar [32]byte
	ViewScalar  [32]byte
	SpendPublic [32]byte
	ViewPublic  [32]byte
}

// GrinKeys is the key bundle Grin uses: a raw ed25519 scalar and its public
// point, which doubles as the slatepack address.
type GrinKeys struct {
	Scalar    [32]byte
	PublicKey [32]byte
}

// AllKeys is the output of DeriveAllKeys: one key bundle per supported
// chain, per spec §4.2.
type AllKeys struct {
	BTC  BTCLTCKeys
	LTC  BTCLTCKeys
	XMR  CryptoNoteKeys
	WOW  CryptoNoteKeys
	Grin GrinKeys
}

// Domain-separation labels for the per-chain HMAC-SHA512 master derivation.
// Each chain gets an independent master secret from the same BIP39 seed so
// that compromising one chain's scalar never reveals another's.
const (
	btcLabel  = "walletcore/btc/master"
	ltcLabel  = "walletcore/ltc/master"
	xmrLabel  = "walletcore/xmr/master"
	wowLabel  = "walletcore/wow/master"
	grinLabel = "walletcore/grin/master"
)

// DeriveAllKeys is spec §4.2's derive_all_keys: a pure, deterministic
// function from a BIP39 mnemonic (plus optional passphrase) to the five
// chain-specific key bundles.
func DeriveAllKeys(mnemonic, passphrase string) (AllKeys, error) {
	seed := primitives.MnemonicToSeed(mnemonic, passphrase)

	btcScalar := reduceSecp256k1Scalar(hmacMaster(seed, btcLabel))
	btcPub, err := primitives.Secp256k1PublicKey(btcScalar[:])
	if err != nil {
		return AllKeys{}, walleterr.Wrap(walleterr.KindInvalidInput, "keyderiv.DeriveAllKeys/btc", err)
	}

	ltcScalar := reduceSecp256k1Scalar(hmacMaster(seed, ltcLabel))
	ltcPub, err := primitives.Secp256k1PublicKey(ltcScalar[:])
	if err != nil {
		return AllKeys{}, walleterr.Wrap(walleterr.KindInvalidInput, "keyderiv.DeriveAllKeys/ltc", err)
	}

	xmrKeys, err := deriveCryptoNoteKeys(seed, xmrLabel)
	if err != nil {
		return AllKeys{}, walleterr.Wrap(walleterr.KindInvalidInput, "keyderiv.DeriveAllKeys/xmr", err)
	}
	wowKeys, err := deriveCryptoNoteKeys(seed, wowLabel)
	if err != nil {
		return AllKeys{}, walleterr.Wrap(walleterr.KindInvalidInput, "keyderiv.DeriveAllKeys/wow", err)
	}

	grinScalar := primitives.ScalarReduce(hmacMaster(seed, grinLabel))
	grinPub, err := primitives.ScalarMulBase(grinScalar)
	if err != nil {
		return AllKeys{}, walleterr.Wrap(walleterr.KindInvalidInput, "keyderiv.DeriveAllKeys/grin", err)
	}

	return AllKeys{
		BTC:  BTCLTCKeys{Scalar: btcScalar, PublicKey: btcPub},
		LTC:  BTCLTCKeys{Scalar: ltcScalar, PublicKey: ltcPub},
		XMR:  xmrKeys,
		WOW:  wowKeys,
		Grin: GrinKeys{Scalar: grinScalar, PublicKey: grinPub},
	}, nil
}

// deriveCryptoNoteKeys derives a CryptoNote-style spend/view keypair: the
// spend scalar comes from the chain-labelled master secret, and the view
// scalar is Keccak-256 of the spend scalar reduced mod L — the same
// private-spend-determines-private-view relationship Monero itself uses.
func deriveCryptoNoteKeys(seed []byte, label string) (CryptoNoteKeys, error) {
	spendScalar := primitives.ScalarReduce(hmacMaster(seed, label))
	viewHash := primitives.Keccak256(spendScalar[:])
	var wide [64]byte
	copy(wide[:32], viewHash[:])
	viewScalar := primitives.ScalarReduce(wide)

	spendPub, err := primitives.ScalarMulBase(spendScalar)
	if err != nil {
		return CryptoNoteKeys{}, err
	}
	viewPub, err := primitives.ScalarMulBase(viewScalar)
	if err != nil {
		return CryptoNoteKeys{}, err
	}

	return CryptoNoteKeys{
		SpendScalar: spendScalar,
		ViewScalar:  viewScalar,
		SpendPublic: spendPub,
		ViewPublic:  viewPub,
	}, nil
}

// hmacMaster computes HMAC-SHA512(key=label, msg=seed), the per-chain master
// secret this package derives every scalar from.
func hmacMaster(seed []byte, label string) [64]byte {
	mac := hmac.New(sha512.New, []byte(label))
	mac.Write(seed)
	var out [64]byte
	copy(out[:], mac.Sum(nil))
	return out
}

// reduceSecp256k1Scalar reduces a 64-byte HMAC output mod the secp256k1
// group order, guaranteeing a scalar btcec's PrivKeyFromBytes will accept
// (it is only ever zero or out of range with negligible probability, but
// spec §2's deterministic contract requires handling it rather than leaving
// it to chance).
func reduceSecp256k1Scalar(wide [64]byte) [32]byte {
	var s secp256k1.ModNScalar
	s.SetByteSlice(wide[:32])
	// SetByteSlice reduces the first 32 bytes mod N; the second 32 bytes
	// are reduced the same way and added in, so the second half's entropy
	// is folded in rather than discarded.
	var second secp256k1.ModNScalar
	second.SetByteSlice(wide[32:])
	s.Add(&second)
	if s.IsZero() {
		s.SetInt(1)
	}
	var out [32]byte
	s.PutBytesUnchecked(out[:])
	return out
}
