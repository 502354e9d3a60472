package keyderiv

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/toole-brendan/walletcore/internal/primitives"
)

// Network HRPs and CryptoNote address prefixes, per spec §4.2.
const (
	btcHRP = "bc"
	ltcHRP = "ltc"

	xmrAddressPrefix = 18
	wowAddressPrefix = 4146

	grinHRP = "grin"
)

// BTCAddress encodes a BTC P2WPKH address: bech32(hrp="bc", [0] ++
// RIPEMD-160(SHA-256(pubkey))).
func BTCAddress(pubKey []byte) (string, error) {
	return p2wpkhAddress(btcHRP, pubKey)
}

// LTCAddress encodes an LTC P2WPKH address: bech32(hrp="ltc", ...).
func LTCAddress(pubKey []byte) (string, error) {
	return p2wpkhAddress(ltcHRP, pubKey)
}

func p2wpkhAddress(hrp string, pubKey []byte) (string, error) {
	hash := btcutil.Hash160(pubKey)
	return primitives.EncodeSegwitAddress(hrp, 0, hash, false)
}

// XMRAddress encodes a Monero mainnet standard address.
func XMRAddress(spendPub, viewPub [32]byte) string {
	return cryptoNoteAddress(xmrAddressPrefix, spendPub, viewPub)
}

// WOWAddress encodes a Wownero mainnet standard address.
func WOWAddress(spendPub, viewPub [32]byte) string {
	return cryptoNoteAddress(wowAddressPrefix, spendPub, viewPub)
}

// cryptoNoteAddress implements spec §4.2's
// cn_base58(varint(prefix) || spend_pub || view_pub || first4(Keccak-256(prefix||spend||view))).
func cryptoNoteAddress(prefix uint64, spendPub, viewPub [32]byte) string {
	prefixBytes := encodeCryptoNoteVarint(prefix)

	payload := make([]byte, 0, len(prefixBytes)+64)
	payload = append(payload, prefixBytes...)
	payload = append(payload, spendPub[:]...)
	payload = append(payload, viewPub[:]...)

	checksum := primitives.Keccak256(payload)

	full := make([]byte, 0, len(payload)+4)
	full = append(full, payload...)
	full = append(full, checksum[:4]...)

	return primitives.Base58CNEncode(full)
}

// encodeCryptoNoteVarint encodes n as CryptoNote's LEB128-style varint: 7
// payload bits per byte, little-endian, continuation bit 0x80 set on every
// byte but the last.
func encodeCryptoNoteVarint(n uint64) []byte {
	var out []byte
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if n == 0 {
			break
		}
	}
	return out
}

// GrinAddress encodes a Grin slatepack address: bech32m(hrp="grin",
// ed25519_pub), with no witness-version byte — unlike segwit addresses,
// Mimblewimble's slatepack address is a bare encoded public key.
func GrinAddress(pub [32]byte) (string, error) {
	return primitives.EncodeBech32Plain(grinHRP, pub[:], true)
}

// ParseGrinAddress reverses GrinAddress, returning the encoded ed25519
// public key.
func ParseGrinAddress(address string) ([32]byte, error) {
	hrp, data, err := primitives.DecodeBech32Plain(address)
	if err != nil {
		return [32]byte{}, err
	}
	if hrp != grinHRP || len(data) != 32 {
		return [32]byte{}, primitives.ErrBadEncoding
	}
	var out [32]byte
	copy(out[:], data)
	return out, nil
}
