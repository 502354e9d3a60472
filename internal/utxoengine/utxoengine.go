// Package utxoengine constructs and signs standard P2WPKH transactions for
// the UTXO chains this wallet core supports, BTC and LTC (spec §4.5).
// Grounded on the teacher's settlement/swaps use of wire.MsgTx/wire.TxIn/
// wire.TxOut for raw transaction assembly, generalized from an HTLC
// contract transaction to ordinary coin-selected P2WPKH spends, signed
// with the real github.com/btcsuite/btcd/txscript BIP143 codepath rather
// than the teacher's own deleted script-building fork.
package utxoengine

import (
	"bytes"
	"encoding/hex"
	"sort"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btclog"

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

// Fee-estimate constants, per spec §4.5: "one input stub ≈148 vB, one
// output stub ≈34 vB, fixed 10 vB overhead".
const (
	inputVBytes    = 148
	outputVBytes   = 34
	overheadVBytes = 10

	// dustThreshold is the minimum non-dust output value in atoms, below
	// which change is promoted into the fee rather than created as an
	// output (spec §4.5).
	dustThreshold = 546
)

// UTXO is one spendable output this engine may select as a transaction
// input.
type UTXO struct {
	TxHash       chainhash.Hash
	Vout         uint32
	Value        int64
	PubKeyScript []byte
}

// BuildResult is the output of BuildAndSign: the finished, signed
// transaction plus the fee and actual amount sent, per spec §4.5.
type BuildResult struct {
	TxHex        string
	Fee          int64
	ActualAmount int64
}

// currentFeeFor estimates the fee in atoms for a transaction with
// nInputs inputs and nOutputs outputs at feeRate sat/vB.
func currentFeeFor(nInputs, nOutputs int, feeRate int64) int64 {
	vbytes := int64(inputVBytes*nInputs + outputVBytes*nOutputs + overheadVBytes)
	return vbytes * feeRate
}

// MaxSendable implements spec §4.5's max_sendable: the sweep-shape fee
// estimate over every supplied UTXO as a single input set with one
// output, subtracted from the total value.
func MaxSendable(utxos []UTXO, feeRate int64) int64 {
	if len(utxos) == 0 {
		return 0
	}
	var total int64
	for _, u := range utxos {
		total += u.Value
	}
	fee := currentFeeFor(len(utxos), 1, feeRate)
	if total < fee {
		return 0
	}
	return total - fee
}

// BuildAndSignParams bundles build_and_sign's inputs, per spec §4.5.
type BuildAndSignParams struct {
	UTXOs         []UTXO
	RecipientAddr string
	Amount        int64
	ChangeAddr    string
	PrivKey       []byte // 32-byte secp256k1 scalar
	FeeRate       int64
	Sweep         bool
}

// BuildAndSign implements spec §4.5's build_and_sign: largest-first coin
// selection (or an all-inputs sweep), BIP143 segwit signing for P2WPKH
// with SIGHASH_ALL.
func BuildAndSign(params BuildAndSignParams) (BuildResult, error) {
	if len(params.UTXOs) == 0 {
		return BuildResult{}, walleterr.New(walleterr.KindInsufficientFunds, "utxoengine.BuildAndSign/no_utxos")
	}

	recipientScript, err := payToWitnessPubKeyHashScript(params.RecipientAddr)
	if err != nil {
		return BuildResult{}, walleterr.InvalidInput("utxoengine.BuildAndSign/recipient", err)
	}

	if params.Sweep {
		return buildSweep(params, recipientScript)
	}
	return buildSelected(params, recipientScript)
}

func buildSweep(params BuildAndSignParams, recipientScript []byte) (BuildResult, error) {
	utxos := params.UTXOs
	var total int64
	for _, u := range utxos {
		total += u.Value
	}
	fee := currentFeeFor(len(utxos), 1, params.FeeRate)
	if total < fee {
		return BuildResult{}, walleterr.New(walleterr.KindInsufficientFunds, "utxoengine.BuildAndSign/balance_below_fee")
	}
	actualAmount := total - fee

	tx := wire.NewMsgTx(wire.TxVersion)
	for _, u := range utxos {
		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&u.TxHash, u.Vout), nil, nil))
	}
	tx.AddTxOut(wire.NewTxOut(actualAmount, recipientScript))

	if err := signAllInputs(tx, utxos, params.PrivKey); err != nil {
		return BuildResult{}, err
	}

	hexTx, err := serializeTxHex(tx)
	if err != nil {
		return BuildResult{}, walleterr.Wrap(walleterr.KindInvalidInput, "utxoengine.BuildAndSign/serialize", err)
	}
	return BuildResult{TxHex: hexTx, Fee: fee, ActualAmount: actualAmount}, nil
}

func buildSelected(params BuildAndSignParams, recipientScript []byte) (BuildResult, error) {
	changeScript, err := payToWitnessPubKeyHashScript(params.ChangeAddr)
	if err != nil {
		return BuildResult{}, walleterr.InvalidInput("utxoengine.BuildAndSign/change_addr", err)
	}

	sorted := make([]UTXO, len(params.UTXOs))
	copy(sorted, params.UTXOs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Value > sorted[j].Value })

	var selected []UTXO
	var selectedSum int64
	var fee int64
	for _, u := range sorted {
		selected = append(selected, u)
		selectedSum += u.Value
		fee = currentFeeFor(len(selected), 2, params.FeeRate)
		if selectedSum >= params.Amount+fee {
			break
		}
	}
	if selectedSum < params.Amount+fee {
		return BuildResult{}, walleterr.New(walleterr.KindInsufficientFunds, "utxoengine.BuildAndSign/insufficient_funds")
	}

	change := selectedSum - params.Amount - fee

	tx := wire.NewMsgTx(wire.TxVersion)
	for _, u := range selected {
		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&u.TxHash, u.Vout), nil, nil))
	}
	tx.AddTxOut(wire.NewTxOut(params.Amount, recipientScript))

	if change >= dustThreshold {
		tx.AddTxOut(wire.NewTxOut(change, changeScript))
	} else {
		// Change below dust: promote it into the fee rather than create
		// an uneconomical output, per spec §4.5.
		fee += change
		change = 0
	}

	if err := signAllInputs(tx, selected, params.PrivKey); err != nil {
		return BuildResult{}, err
	}

	hexTx, err := serializeTxHex(tx)
	if err != nil {
		return BuildResult{}, walleterr.Wrap(walleterr.KindInvalidInput, "utxoengine.BuildAndSign/serialize", err)
	}
	return BuildResult{TxHex: hexTx, Fee: fee, ActualAmount: params.Amount}, nil
}

// signAllInputs signs every input of tx as a P2WPKH spend under SIGHASH_ALL,
// per BIP143.
func signAllInputs(tx *wire.MsgTx, spent []UTXO, privKeyBytes []byte) error {
	privKey, pubKey := btcec.PrivKeyFromBytes(privKeyBytes)

	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for i, u := range spent {
		fetcher.AddPrevOut(tx.TxIn[i].PreviousOutPoint, wire.NewTxOut(u.Value, u.PubKeyScript))
	}
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)

	pubKeyHash := btcutil.Hash160(pubKey.SerializeCompressed())
	witnessScript, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(pubKeyHash).
		AddOp(txscript.OP_EQUALVERIFY).
		AddOp(txscript.OP_CHECKSIG).
		Script()
	if err != nil {
		return walleterr.Wrap(walleterr.KindInvalidInput, "utxoengine.signAllInputs/script", err)
	}

	for i, u := range spent {
		witness, err := txscript.WitnessSignature(tx, sigHashes, i, u.Value, witnessScript,
			txscript.SigHashAll, privKey, true)
		if err != nil {
			return walleterr.Wrap(walleterr.KindInvalidInput, "utxoengine.signAllInputs/sign", err)
		}
		tx.TxIn[i].Witness = witness
	}
	return nil
}

// payToWitnessPubKeyHashScript decodes a BTC/LTC bech32 address into its raw
// P2WPKH pubkey-script bytes (OP_0 <20-byte-hash>).
func payToWitnessPubKeyHashScript(address string) ([]byte, error) {
	_, version, program, err := primitives.DecodeSegwitAddress(address)
	if err != nil {
		return nil, err
	}
	if version != 0 || len(program) != 20 {
		return nil, primitives.ErrBadEncoding
	}
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(program).
		Script()
}

func serializeTxHex(tx *wire.MsgTx) (string, error) {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf.Bytes()), nil
}
