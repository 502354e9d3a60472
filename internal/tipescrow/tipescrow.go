// Package tipescrow implements the cross-chain social-tip escrow (spec
// §4.8): an ephemeral per-tip keypair funds a tip address that only the
// recipient (via an ECIES-encrypted copy of the tip scalar) or, on
// timeout, the sender (via a locally held copy) can sweep. Grounded on
// the teacher's settlement/swaps HTLC timeout/clawback shape
// (SwapStatus enum, ExpiresAt, CleanupExpiredSwaps), retargeted from an
// on-chain HTLC script to an off-chain ECIES-encrypted-key escrow.
package tipescrow

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"
	"time"

	"github.com/btcsuite/btclog"

	"github.com/toole-brendan/walletcore/internal/keyderiv"
	"github.com/toole-brendan/walletcore/internal/primitives"
	"github.com/toole-brendan/walletcore/internal/walleterr"
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

// TipStatus is a PendingSocialTip's lifecycle state, per spec §3.
type TipStatus string

const (
	TipPending     TipStatus = "pending"
	TipClaimed     TipStatus = "claimed"
	TipClawedBack  TipStatus = "clawed_back"
)

// ErrGrinUnsupported is returned by GenerateTipKeypair for asset "grin":
// spec §4.8 declares Mimblewimble tips out of scope for this revision
// because the interactive SRS protocol cannot be honored anonymously
// without a non-interactive "voucher" extension.
var ErrGrinUnsupported = errors.New("tipescrow: grin tips are out of scope")

// ErrLikelyAlreadyClaimed is returned by Clawback when the tip address
// has no funds left to sweep, per spec §4.8's "likely already claimed"
// clawback-failure contract.
var ErrLikelyAlreadyClaimed = errors.New("tipescrow: tip address has no outputs, likely already claimed")

// ErrNoFunds is the sentinel a Sweeper implementation returns when the
// tip address it was asked to sweep holds nothing spendable; Clawback
// translates it into ErrLikelyAlreadyClaimed.
var ErrNoFunds = errors.New("tipescrow: no spendable outputs at address")

// PendingSocialTip is spec §3's persisted tip record. EncryptedTipKey is
// always the sender's own local clawback copy (the tip scalar encrypted
// under SHA-256(senderBTCScalar)) — the recipient-facing ECIES payload
// the back-end custodies is a separate value handed to RegisterTip and
// never persisted locally, since only the sender ever needs to claw back.
type PendingSocialTip struct {
	TipID              string
	Asset              string
	Amount             uint64
	TipAddress         string
	FundingTxid        string
	EncryptedTipKey    []byte
	RecipientPlatform  string
	RecipientUsername  string
	CreatedAt          time.Time
	Status             TipStatus
	IsPublic           bool
	PublicFragmentKey  []byte
}

// Funder sends amount atoms of asset from the caller's own wallet to a
// freshly generated tip address, using whichever per-chain engine this
// core's embedder wires in (spec §4.8 step 2: "using the appropriate
// engine").
type Funder interface {
	Fund(ctx context.Context, asset, tipAddress string, amount uint64) (txid string, err error)
}

// Sweeper sweeps every output at a tip address, spent by the ephemeral
// tip scalar, to destinationAddress — a claim (recipient) or a clawback
// (sender), depending on who calls it.
type Sweeper interface {
	Sweep(ctx context.Context, asset string, tipScalar [32]byte, destinationAddress string) (txid string, err error)
}

// RegisterTipParams is what CreateTip hands the application backend:
// spec §4.8 step 4, "Register {encrypted_key, tip_address, funding_txid}
// with the back-end."
type RegisterTipParams struct {
	TipID                    string
	Asset                    string
	Amount                   uint64
	TipAddress               string
	FundingTxid              string
	EncryptedKeyForRecipient []byte
	RecipientPlatform        string
	RecipientUsername        string
	IsPublic                 bool
	PublicFragmentKey        []byte
}

// Backend is the application backend's social-tip CRUD contract (spec §6).
type Backend interface {
	RegisterTip(ctx context.Context, params RegisterTipParams) error
	FetchTip(ctx context.Context, tipID string) (tipAddress string, encryptedKeyForRecipient []byte, err error)
	NotifyClawback(ctx context.Context, tipID string) error
}

// GenerateTipKeypair creates the ephemeral per-tip keypair spec §4.8 step
// 1 describes: a fresh secp256k1 scalar and its P2WPKH address for UTXO
// chains, or a fresh CryptoNote spend/view pair (view derived from spend
// the same way internal/keyderiv derives a wallet's own view key) and
// its standard address for XMR/WOW. Grin tips are out of scope.
func GenerateTipKeypair(asset string) (scalar [32]byte, address string, err error) {
	switch asset {
	case "btc", "ltc":
		if _, err := io.ReadFull(rand.Reader, scalar[:]); err != nil {
			return scalar, "", err
		}
		pub, err := primitives.Secp256k1PublicKey(scalar[:])
		if err != nil {
			return scalar, "", err
		}
		if asset == "btc" {
			address, err = keyderiv.BTCAddress(pub)
		} else {
			address, err = keyderiv.LTCAddress(pub)
		}
		return scalar, address, err

	case "xmr", "wow":
		var wide [64]byte
		if _, err := io.ReadFull(rand.Reader, wide[:]); err != nil {
			return scalar, "", err
		}
		spend := primitives.ScalarReduce(wide)
		viewHash := primitives.Keccak256(spend[:])
		var viewWide [64]byte
		copy(viewWide[:32], viewHash[:])
		view := primitives.ScalarReduce(viewWide)

		spendPub, err := primitives.ScalarMulBase(spend)
		if err != nil {
			return scalar, "", err
		}
		viewPub, err := primitives.ScalarMulBase(view)
		if err != nil {
			return scalar, "", err
		}
		if asset == "xmr" {
			address = keyderiv.XMRAddress(spendPub, viewPub)
		} else {
			address = keyderiv.WOWAddress(spendPub, viewPub)
		}
		return spend, address, nil

	case "grin":
		return scalar, "", ErrGrinUnsupported

	default:
		return scalar, "", walleterr.New(walleterr.KindInvalidInput, "tipescrow.GenerateTipKeypair/unknown_asset")
	}
}

// CreateTipParams bundles CreateTip's caller-supplied inputs.
type CreateTipParams struct {
	Asset              string
	Amount             uint64
	SenderBTCScalar    [32]byte
	RecipientBTCPub    []byte // 33-byte compressed, for the ECIES payload
	RecipientPlatform  string
	RecipientUsername  string
	TipID              string
	IsPublic           bool
	PublicClaimPub     []byte // platform-wide claim key, only used if IsPublic
}

// CreateTip implements spec §4.8's targeted-tip creation pipeline:
// generate the ephemeral tip keypair, fund it from the sender's wallet,
// ECIES-encrypt the tip scalar for the recipient (and, for a public tip,
// a second copy under the platform-wide claim key per SPEC_FULL.md's
// §4.8 supplement), register the tip with the back-end, and return the
// record the caller persists locally (with EncryptedTipKey already
// sealed under SHA-256(senderBTCScalar) so clawback works without
// retaining the password).
func CreateTip(ctx context.Context, backend Backend, funder Funder, params CreateTipParams) (*PendingSocialTip, error) {
	if params.Asset == "grin" {
		return nil, ErrGrinUnsupported
	}

	tipScalar, tipAddress, err := GenerateTipKeypair(params.Asset)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindInvalidInput, "tipescrow.CreateTip/keypair", err)
	}

	fundingTxid, err := funder.Fund(ctx, params.Asset, tipAddress, params.Amount)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindBroadcastFailed, "tipescrow.CreateTip/fund", err)
	}

	encryptedForRecipient, err := primitives.HKDFECIESEncrypt(tipScalar[:], params.RecipientBTCPub)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindInvalidInput, "tipescrow.CreateTip/ecies_recipient", err)
	}

	var publicFragment []byte
	if params.IsPublic {
		publicFragment, err = primitives.HKDFECIESEncrypt(tipScalar[:], params.PublicClaimPub)
		if err != nil {
			return nil, walleterr.Wrap(walleterr.KindInvalidInput, "tipescrow.CreateTip/ecies_public", err)
		}
	}

	if err := backend.RegisterTip(ctx, RegisterTipParams{
		TipID:                    params.TipID,
		Asset:                    params.Asset,
		Amount:                   params.Amount,
		TipAddress:               tipAddress,
		FundingTxid:              fundingTxid,
		EncryptedKeyForRecipient: encryptedForRecipient,
		RecipientPlatform:        params.RecipientPlatform,
		RecipientUsername:        params.RecipientUsername,
		IsPublic:                 params.IsPublic,
		PublicFragmentKey:        publicFragment,
	}); err != nil {
		return nil, walleterr.RemoteFailure("tipescrow.CreateTip/register", err)
	}

	localKey := localClawbackKey(params.SenderBTCScalar)
	localEncrypted, err := primitives.Encrypt(tipScalar[:], localKey[:])
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindInvalidInput, "tipescrow.CreateTip/local_seal", err)
	}

	return &PendingSocialTip{
		TipID:             params.TipID,
		Asset:             params.Asset,
		Amount:            params.Amount,
		TipAddress:        tipAddress,
		FundingTxid:       fundingTxid,
		EncryptedTipKey:   localEncrypted,
		RecipientPlatform: params.RecipientPlatform,
		RecipientUsername: params.RecipientUsername,
		CreatedAt:         time.Now(),
		Status:            TipPending,
		IsPublic:          params.IsPublic,
		PublicFragmentKey: publicFragment,
	}, nil
}

// ClaimTip implements spec §4.8's claim: fetch the tip address and
// ECIES-encrypted key from the back-end, decrypt it with the recipient's
// BTC scalar, and sweep the tip address into the recipient's wallet.
func ClaimTip(ctx context.Context, backend Backend, sweeper Sweeper, asset, tipID string, recipientBTCScalar [32]byte, recipientAddress string) (string, error) {
	tipAddress, encryptedKey, err := backend.FetchTip(ctx, tipID)
	if err != nil {
		return "", walleterr.RemoteFailure("tipescrow.ClaimTip/fetch", err)
	}

	scalarBytes, err := primitives.HKDFECIESDecrypt(encryptedKey, recipientBTCScalar[:])
	if err != nil {
		return "", walleterr.VerificationFailed("tipescrow.ClaimTip/decrypt")
	}
	var tipScalar [32]byte
	copy(tipScalar[:], scalarBytes)

	txid, err := sweeper.Sweep(ctx, asset, tipScalar, recipientAddress)
	if err != nil {
		if errors.Is(err, ErrNoFunds) {
			return "", ErrLikelyAlreadyClaimed
		}
		return "", walleterr.BroadcastFailed("tipescrow.ClaimTip/sweep", err)
	}
	return txid, nil
}

// Clawback implements spec §4.8's clawback: the sender decrypts their
// locally stored copy of the tip scalar and sweeps the tip address back
// to themselves. If the address has no outputs, the tip is reported as
// likely already claimed rather than a hard failure.
func Clawback(ctx context.Context, backend Backend, sweeper Sweeper, tip PendingSocialTip, senderBTCScalar [32]byte, senderAddress string) (string, error) {
	localKey := localClawbackKey(senderBTCScalar)
	scalarBytes, err := primitives.Decrypt(tip.EncryptedTipKey, localKey[:])
	if err != nil {
		return "", walleterr.VerificationFailed("tipescrow.Clawback/decrypt")
	}
	var tipScalar [32]byte
	copy(tipScalar[:], scalarBytes)

	txid, err := sweeper.Sweep(ctx, tip.Asset, tipScalar, senderAddress)
	if err != nil {
		if errors.Is(err, ErrNoFunds) {
			return "", ErrLikelyAlreadyClaimed
		}
		return "", walleterr.BroadcastFailed("tipescrow.Clawback/sweep", err)
	}

	if err := backend.NotifyClawback(ctx, tip.TipID); err != nil {
		log.Warnf("tipescrow: notify_clawback failed, continuing: %v", err)
	}
	return txid, nil
}

// localClawbackKey derives the AES-GCM key a tip's EncryptedTipKey is
// sealed under: SHA-256 of the sender's BTC private scalar, per spec §3
// — chosen so clawback only ever needs the unlocked vault's BTC key, not
// the user's password.
func localClawbackKey(senderBTCScalar [32]byte) [32]byte {
	return sha256.Sum256(senderBTCScalar[:])
}
