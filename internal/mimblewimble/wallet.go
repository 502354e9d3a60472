package mimblewimble

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sort"

	"github.com/toole-brendan/walletcore/internal/walleterr"
)

// SendContextInput is one input a send context references on the wire:
// just enough to rebuild the slate's input list at finalize time, per
// spec §3's GrinSendContext shape ("the inputs as {commitment, features}").
type SendContextInput struct {
	Commitment []byte
	Features   string
}

// GrinSendContext is spec §3's persisted sender-side bookkeeping for an
// in-flight SRS round: everything CombineS3 needs that the compact S2
// wire message does not redundantly carry. A context missing
// SerializedS1 or the change output's range proof is stale and must be
// rejected rather than guessed at (spec §4.7).
type GrinSendContext struct {
	SlateID      string
	SecretKey    [32]byte
	Nonce        [32]byte
	InputIDs     []string
	SerializedS1 string
	Inputs       []SendContextInput
	Offset       []byte
	ChangeOutput *SlateOutput
}

// Wallet owns the output-selection and child-index bookkeeping layer
// above the pure SRS slate functions in slate.go: it talks to the
// application backend for next_child_index and output/transaction
// status, and derives every blinding factor from this wallet's Grin
// master scalar via DeriveBlindingFactor.
type Wallet struct {
	backend     Backend
	prover      RangeProver
	masterScalar [32]byte
	tracker     *childIndexTracker
}

// NewWallet constructs a Wallet over the given backend and range-proof
// primitive, using masterScalar (this wallet's derived Grin scalar, per
// internal/keyderiv) to derive every output's blinding factor.
func NewWallet(backend Backend, prover RangeProver, masterScalar [32]byte) *Wallet {
	return &Wallet{backend: backend, prover: prover, masterScalar: masterScalar, tracker: newChildIndexTracker()}
}

// selectInputs picks unspent outputs largest-first until their sum covers
// amount+fee, mirroring the coin-selection policy the UTXO and CryptoNote
// engines use elsewhere in this core.
func selectInputs(outputs []Output, amount, fee uint64) ([]Output, uint64, error) {
	sorted := make([]Output, 0, len(outputs))
	for _, o := range outputs {
		if o.Status == OutputUnspent {
			sorted = append(sorted, o)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Amount > sorted[j].Amount })

	var selected []Output
	var sum uint64
	for _, o := range sorted {
		selected = append(selected, o)
		sum += o.Amount
		if sum >= amount+fee {
			return selected, sum, nil
		}
	}
	return nil, 0, walleterr.InsufficientFunds("mimblewimble.selectInputs")
}

// CreateSend implements the sender's S1 half-round (spec §4.7): select
// inputs, claim a fresh child index for the change output from the
// back-end's next_child_index, lock the selected inputs, and return the
// armored S1 slatepack to hand to the recipient plus the GrinSendContext
// to persist locally.
func (w *Wallet) CreateSend(ctx context.Context, coin string, amount, fee, lockHeight uint64, slateID string) (string, *GrinSendContext, error) {
	outputs, nextChild, err := w.backend.GetOutputs(ctx)
	if err != nil {
		return "", nil, walleterr.RemoteFailure("mimblewimble.CreateSend/get_outputs", err)
	}

	selected, sum, err := selectInputs(outputs, amount, fee)
	if err != nil {
		return "", nil, err
	}

	if !w.tracker.claim(nextChild) {
		return "", nil, walleterr.StaleState("mimblewimble.CreateSend/child_index_reused")
	}
	changeValue := sum - amount - fee
	changeBlind := DeriveBlindingFactor(w.masterScalar, nextChild)

	spendable := make([]SpendableInput, len(selected))
	ctxInputs := make([]SendContextInput, len(selected))
	inputIDs := make([]string, len(selected))
	for i, o := range selected {
		blind := DeriveBlindingFactor(w.masterScalar, o.NChild)
		spendable[i] = SpendableInput{Commitment: o.Commitment, BlindingFactor: blind}
		ctxInputs[i] = SendContextInput{Commitment: o.Commitment, Features: "plain"}
		inputIDs[i] = o.ID
	}

	slate, sendCtx, err := CreateSendS1(w.prover, slateID, coin, spendable, changeBlind, changeValue, amount, fee, lockHeight)
	if err != nil {
		return "", nil, err
	}

	if err := w.backend.LockOutputs(ctx, slateID, inputIDs); err != nil {
		return "", nil, walleterr.RemoteFailure("mimblewimble.CreateSend/lock_outputs", err)
	}

	serialized, err := serializeS1(slate)
	if err != nil {
		return "", nil, walleterr.Wrap(walleterr.KindInvalidInput, "mimblewimble.CreateSend/serialize", err)
	}

	armored, err := EncodeSlatepack(slate, false)
	if err != nil {
		return "", nil, err
	}

	if err := w.backend.RecordTransaction(ctx, TxRecord{SlateID: slateID, Amount: amount, Fee: fee, Status: TxPending}); err != nil {
		log.Warnf("mimblewimble: record_transaction failed, continuing: %v", err)
	}

	grinCtx := &GrinSendContext{
		SlateID:      slateID,
		SecretKey:    sendCtx.BlindExcess,
		Nonce:        sendCtx.NonceScalar,
		InputIDs:     inputIDs,
		SerializedS1: serialized,
		Inputs:       ctxInputs,
		Offset:       sendCtx.Offset,
		ChangeOutput: &slate.Outputs[0],
	}
	return armored, grinCtx, nil
}

// ReceiveSend implements the recipient's S2 half-round (spec §4.7):
// decode the incoming S1 slatepack, claim a fresh child index for the new
// output the same way the sender did, add a partial signature, and
// return the compact S2 slatepack.
func (w *Wallet) ReceiveSend(ctx context.Context, s1Slatepack string, amount uint64) (string, error) {
	slate, compact, err := DecodeSlatepack(s1Slatepack)
	if err != nil {
		return "", err
	}
	if compact {
		return "", walleterr.New(walleterr.KindInvalidInput, "mimblewimble.ReceiveSend/expected_full_s1")
	}

	_, nextChild, err := w.backend.GetOutputs(ctx)
	if err != nil {
		return "", walleterr.RemoteFailure("mimblewimble.ReceiveSend/get_outputs", err)
	}
	if !w.tracker.claim(nextChild) {
		return "", walleterr.StaleState("mimblewimble.ReceiveSend/child_index_reused")
	}
	outputBlind := DeriveBlindingFactor(w.masterScalar, nextChild)

	signed, err := ReceiveS2(slate, w.prover, amount, outputBlind)
	if err != nil {
		return "", err
	}

	newOutput := signed.Outputs[len(signed.Outputs)-1]
	if err := w.backend.RecordOutput(ctx, Output{
		KeyID: slate.ID, NChild: nextChild, Amount: amount,
		Commitment: newOutput.Commitment, Status: OutputUnconfirmed,
	}); err != nil {
		log.Warnf("mimblewimble: record_output failed, continuing: %v", err)
	}

	return EncodeSlatepack(signed, true)
}

// FinalizeAndBroadcast implements the sender's S3 half-round: rebuild the
// full slate from the compact S2 response plus the stored GrinSendContext,
// combine signatures, and broadcast. A broadcast failure unlocks the
// locked inputs so the funds become selectable again, per spec §4.7's
// explicit rollback contract; a successful broadcast transitions the
// locked inputs to spent and records the change output as unspent.
func (w *Wallet) FinalizeAndBroadcast(ctx context.Context, s2Slatepack string, stored *GrinSendContext) (string, error) {
	compactSlate, compact, err := DecodeSlatepack(s2Slatepack)
	if err != nil {
		return "", err
	}
	if !compact {
		return "", walleterr.New(walleterr.KindInvalidInput, "mimblewimble.FinalizeAndBroadcast/expected_compact_s2")
	}

	merged, err := MergeSendContext(compactSlate, stored)
	if err != nil {
		return "", err
	}

	tx, err := CombineS3(merged, &SendContext{BlindExcess: BlindingFactor(stored.SecretKey), NonceScalar: stored.Nonce, Offset: stored.Offset})
	if err != nil {
		return "", err
	}

	txHash, err := w.backend.BroadcastGrinTx(ctx, tx)
	if err != nil {
		if unlockErr := w.backend.UnlockOutputs(ctx, stored.SlateID); unlockErr != nil {
			log.Errorf("mimblewimble: failed to unlock inputs after broadcast failure: %v", unlockErr)
		}
		_ = w.backend.UpdateTransaction(ctx, stored.SlateID, TxCancelled)
		return "", walleterr.BroadcastFailed("mimblewimble.FinalizeAndBroadcast/broadcast", err)
	}

	if err := w.backend.SpendOutputs(ctx, stored.SlateID); err != nil {
		log.Warnf("mimblewimble: spend_outputs failed after successful broadcast: %v", err)
	}
	if err := w.backend.RecordOutput(ctx, Output{
		Commitment: stored.ChangeOutput.Commitment, Status: OutputUnspent,
	}); err != nil {
		log.Warnf("mimblewimble: record_output (change) failed, continuing: %v", err)
	}
	if err := w.backend.UpdateTransaction(ctx, stored.SlateID, TxConfirmed); err != nil {
		log.Warnf("mimblewimble: update_transaction failed, continuing: %v", err)
	}

	return txHash, nil
}

// CancelSend implements spec §4.7's cancel contract: unlock every input
// this send had locked and mark the transaction row cancelled. It does not
// check whether the transaction was already broadcast: called after
// FinalizeAndBroadcast has returned a txHash, it still unlocks the inputs
// and marks the row cancelled.
func (w *Wallet) CancelSend(ctx context.Context, stored *GrinSendContext) error {
	if err := w.backend.UnlockOutputs(ctx, stored.SlateID); err != nil {
		return walleterr.RemoteFailure("mimblewimble.CancelSend/unlock_outputs", err)
	}
	if err := w.backend.UpdateTransaction(ctx, stored.SlateID, TxCancelled); err != nil {
		log.Warnf("mimblewimble: update_transaction failed during cancel, continuing: %v", err)
	}
	return nil
}

// NewSlateID generates a fresh random slate identifier for a send the
// caller did not supply one for (e.g. a freshly initiated payment, as
// opposed to one resuming from a previously persisted context).
func NewSlateID() (string, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw[:]), nil
}
