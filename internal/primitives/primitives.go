// Package primitives implements the cryptographic building blocks the rest
// of the wallet core composes: curve operations on secp256k1 and ed25519,
// the hash functions and KDFs the spec pins exact parameters for, and the
// encodings (base58-cn, bech32/bech32m, BIP39) the chain-specific engines
// rely on. It performs no I/O and holds no state beyond curve constants.
package primitives

import (
	"errors"

	"github.com/btcsuite/btclog"
)

// log is the package logger, matching the teacher's per-subsystem logging
// convention. Disabled by default until the embedding application calls
// UseLogger.
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

// Sentinel errors bubbled upward by the primitives, per spec §4.1.
var (
	ErrInvalidScalar = errors.New("primitives: invalid scalar")
	ErrInvalidPoint  = errors.New("primitives: invalid point")
	ErrBadCiphertext = errors.New("primitives: ciphertext authentication failed")
	ErrBadEncoding   = errors.New("primitives: malformed encoding")
)
