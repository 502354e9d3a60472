package mimblewimble

import (
	"errors"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/toole-brendan/walletcore/internal/walleterr"
)

// Stage names one step of the SRS (sender-receiver-sender) interactive
// slate protocol spec §4.7 describes: the sender builds S1 and hands it
// to the recipient, the recipient adds its output and partial signature
// to produce S2 and hands it back, and the sender combines both partial
// signatures into the final, broadcastable transaction.
type Stage string

const (
	StageS1       Stage = "s1"
	StageS2       Stage = "s2"
	StageComplete Stage = "complete"
)

// RangeProver is the external Bulletproof+ range-proof primitive's
// contract. Generating and verifying a Bulletproof+ proof is a
// specialized, heavily-optimized piece of cryptography real Grin
// implementations delegate to a dedicated secp256k1 extension; this
// package never fabricates that math itself and only carries opaque
// proof bytes across this boundary, the same externalization this
// module uses for CryptoNote's ring-signature primitive.
type RangeProver interface {
	Prove(value uint64, blind BlindingFactor) ([]byte, error)
	Verify(commitment []byte, proof []byte) (bool, error)
}

// SlateInput references one input being spent, identified by its
// Pedersen commitment; no amount or blinding factor ever appears on
// the wire.
type SlateInput struct {
	Commitment []byte
}

// SlateOutput is one new output a slate introduces: a commitment and
// its accompanying range proof.
type SlateOutput struct {
	Commitment []byte
	RangeProof []byte
}

// ParticipantData is one party's public contribution to the slate's
// aggregated kernel signature: a public blinding-excess point and
// public nonce, plus — once that party has signed — its partial
// signature scalar. Nothing here reveals a private blinding factor.
type ParticipantData struct {
	PublicBlindExcess []byte
	PublicNonce       []byte
	PartialSignature  []byte
}

// Slate is the message passed between sender and recipient over the
// course of an SRS round. It never carries a private blinding factor
// or nonce scalar — only commitments, proofs, and public signature
// material.
type Slate struct {
	ID           string
	Coin         string
	Amount       uint64
	Fee          uint64
	LockHeight   uint64
	Inputs       []SlateInput
	Outputs      []SlateOutput
	Participants map[string]*ParticipantData
	Stage        Stage

	// Offset is the sender's transaction offset. It is set once at S1
	// and carried unchanged into the finished Transaction; this package
	// never regenerates or clears a non-empty Offset it did not itself
	// set. The offset is not subtracted from the aggregated kernel
	// excess: the published KernelExcess is the full sum of both
	// participants' excesses.
	Offset []byte
}

const (
	roleSender    = "sender"
	roleRecipient = "recipient"
)

// SendContext is the sender's private bookkeeping for an in-flight
// slate: the blinding factor and nonce scalar never leave this
// process, only their public counterparts ride along on the Slate.
type SendContext struct {
	BlindExcess BlindingFactor
	NonceScalar [32]byte
	Offset      []byte
}

// SpendableInput is one of the sender's existing outputs being consumed.
type SpendableInput struct {
	Commitment     []byte
	BlindingFactor BlindingFactor
}

func parsePoint(data []byte) (*btcec.PublicKey, error) {
	return btcec.ParsePubKey(data)
}

func pointBytes(p *btcec.PublicKey) []byte {
	return p.SerializeCompressed()
}

func excessPublicKey(blind BlindingFactor) *btcec.PublicKey {
	x, y := btcec.S256().ScalarBaseMult(blind[:])
	var fx, fy btcec.FieldVal
	fx.SetByteSlice(x.Bytes())
	fy.SetByteSlice(y.Bytes())
	return btcec.NewPublicKey(&fx, &fy)
}

// slateMessage is the byte string the kernel signature actually binds:
// the fee and lock height, the only kernel fields a finished
// transaction commits to beyond the excess itself.
func slateMessage(fee, lockHeight uint64) []byte {
	msg := make([]byte, 16)
	for i := 0; i < 8; i++ {
		msg[i] = byte(fee >> (8 * (7 - i)))
		msg[8+i] = byte(lockHeight >> (8 * (7 - i)))
	}
	return msg
}

// CreateSendS1 builds the sender's opening slate: the inputs being
// spent, a change output back to the sender, and the sender's public
// nonce/excess for the round. The returned SendContext holds the
// sender's private blinding factor and nonce scalar for S3; neither
// value is ever written into the Slate.
func CreateSendS1(prover RangeProver, id string, coin string, inputs []SpendableInput, changeBlind BlindingFactor, changeValue uint64, amount, fee, lockHeight uint64) (*Slate, *SendContext, error) {
	if len(inputs) == 0 {
		return nil, nil, walleterr.InvalidInput("mimblewimble.CreateSendS1", errors.New("no inputs"))
	}

	changeCommit, err := CreateCommitment(changeValue, changeBlind)
	if err != nil {
		return nil, nil, walleterr.Wrap(walleterr.KindInvalidInput, "mimblewimble.CreateSendS1/change_commitment", err)
	}
	changeProof, err := prover.Prove(changeValue, changeBlind)
	if err != nil {
		return nil, nil, walleterr.Wrap(walleterr.KindVerificationFailed, "mimblewimble.CreateSendS1/prove_change", err)
	}

	// sender's partial excess = changeBlind - sum(input blinds): the
	// change output it owns contributes positively, the inputs it
	// spends contribute negatively.
	excess := changeBlind
	for _, in := range inputs {
		excess = AddBlindingFactors(excess, NegateBlindingFactor(in.BlindingFactor))
	}

	nonceScalar, noncePub, err := generateNonce()
	if err != nil {
		return nil, nil, walleterr.Wrap(walleterr.KindInvalidInput, "mimblewimble.CreateSendS1/nonce", err)
	}

	offset, err := randomOffset()
	if err != nil {
		return nil, nil, walleterr.Wrap(walleterr.KindInvalidInput, "mimblewimble.CreateSendS1/offset", err)
	}

	slateInputs := make([]SlateInput, len(inputs))
	for i, in := range inputs {
		slateInputs[i] = SlateInput{Commitment: in.Commitment}
	}

	slate := &Slate{
		ID:         id,
		Coin:       coin,
		Amount:     amount,
		Fee:        fee,
		LockHeight: lockHeight,
		Inputs:     slateInputs,
		Outputs: []SlateOutput{
			{Commitment: changeCommit.Bytes(), RangeProof: changeProof},
		},
		Participants: map[string]*ParticipantData{
			roleSender: {
				PublicBlindExcess: pointBytes(excessPublicKey(excess)),
				PublicNonce:       pointBytes(noncePub),
			},
		},
		Stage:  StageS1,
		Offset: offset,
	}

	return slate, &SendContext{BlindExcess: excess, NonceScalar: nonceScalar, Offset: offset}, nil
}

// randomOffset picks a fresh 32-byte transaction offset for a new send.
// Once set on a Slate it is never regenerated or renormalized, per spec
// §9's explicit instruction to preserve a sender's offset verbatim
// through finalization.
func randomOffset() ([]byte, error) {
	scalar, _, err := generateNonce()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 32)
	copy(out, scalar[:])
	return out, nil
}

// ReceiveS2 is the recipient's half-round: add the receiving output,
// compute the aggregated nonce and excess across both participants,
// and produce this recipient's partial signature over the shared
// challenge. The recipient's own blinding factor never leaves this
// function.
func ReceiveS2(slate *Slate, prover RangeProver, outputValue uint64, outputBlind BlindingFactor) (*Slate, error) {
	if slate.Stage != StageS1 {
		return nil, walleterr.New(walleterr.KindInvalidInput, "mimblewimble.ReceiveS2/wrong_stage")
	}
	sender, ok := slate.Participants[roleSender]
	if !ok {
		return nil, walleterr.New(walleterr.KindInvalidInput, "mimblewimble.ReceiveS2/missing_sender")
	}

	commit, err := CreateCommitment(outputValue, outputBlind)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindInvalidInput, "mimblewimble.ReceiveS2/commitment", err)
	}
	proof, err := prover.Prove(outputValue, outputBlind)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindVerificationFailed, "mimblewimble.ReceiveS2/prove", err)
	}

	nonceScalar, noncePub, err := generateNonce()
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindInvalidInput, "mimblewimble.ReceiveS2/nonce", err)
	}

	senderNonce, err := parsePoint(sender.PublicNonce)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindInvalidInput, "mimblewimble.ReceiveS2/sender_nonce", err)
	}
	senderExcess, err := parsePoint(sender.PublicBlindExcess)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindInvalidInput, "mimblewimble.ReceiveS2/sender_excess", err)
	}

	recipientExcessPub := excessPublicKey(outputBlind)
	aggNonce := addPublicPoints(senderNonce, noncePub)
	aggExcess := addPublicPoints(senderExcess, recipientExcessPub)

	e := kernelChallenge(aggNonce, aggExcess, slateMessage(slate.Fee, slate.LockHeight))
	partial := partialSign(nonceScalar, outputBlind, e)

	slate.Outputs = append(slate.Outputs, SlateOutput{Commitment: commit.Bytes(), RangeProof: proof})
	slate.Participants[roleRecipient] = &ParticipantData{
		PublicBlindExcess: pointBytes(recipientExcessPub),
		PublicNonce:       pointBytes(noncePub),
		PartialSignature:  partial.Bytes(),
	}
	slate.Stage = StageS2

	return slate, nil
}

// Transaction is the final, broadcastable Mimblewimble transaction: the
// spent input commitments, the new output commitments and their range
// proofs, and a single aggregated kernel excess and signature.
type Transaction struct {
	Inputs          []SlateInput
	Outputs         []SlateOutput
	Fee             uint64
	LockHeight      uint64
	KernelExcess    []byte
	KernelNonce     []byte
	KernelSigScalar []byte
	Offset          []byte
}

// CombineS3 is the sender's closing half-round: recompute the shared
// challenge, add its own partial signature to the recipient's, and
// verify the resulting aggregated signature against the aggregated
// excess before returning the finished transaction.
func CombineS3(slate *Slate, ctx *SendContext) (*Transaction, error) {
	if slate.Stage != StageS2 {
		return nil, walleterr.New(walleterr.KindInvalidInput, "mimblewimble.CombineS3/wrong_stage")
	}
	if ctx == nil || len(ctx.Offset) == 0 {
		return nil, walleterr.StaleState("mimblewimble.CombineS3/missing_offset")
	}
	recipient, ok := slate.Participants[roleRecipient]
	if !ok || recipient.PartialSignature == nil {
		return nil, walleterr.New(walleterr.KindInvalidInput, "mimblewimble.CombineS3/missing_recipient_signature")
	}
	sender, ok := slate.Participants[roleSender]
	if !ok {
		return nil, walleterr.New(walleterr.KindInvalidInput, "mimblewimble.CombineS3/missing_sender")
	}

	recipientNonce, err := parsePoint(recipient.PublicNonce)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindInvalidInput, "mimblewimble.CombineS3/recipient_nonce", err)
	}
	recipientExcess, err := parsePoint(recipient.PublicBlindExcess)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindInvalidInput, "mimblewimble.CombineS3/recipient_excess", err)
	}
	senderExcess, err := parsePoint(sender.PublicBlindExcess)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindInvalidInput, "mimblewimble.CombineS3/sender_excess", err)
	}
	senderNoncePub := excessPublicKey(BlindingFactor(ctx.NonceScalar))

	aggNonce := addPublicPoints(senderNoncePub, recipientNonce)
	aggExcess := addPublicPoints(senderExcess, recipientExcess)

	e := kernelChallenge(aggNonce, aggExcess, slateMessage(slate.Fee, slate.LockHeight))
	senderPartial := partialSign(ctx.NonceScalar, ctx.BlindExcess, e)

	recipientPartial := new(big.Int).SetBytes(recipient.PartialSignature)
	combined := combinePartialSigs(senderPartial, recipientPartial)

	sig := kernelSignature{R: aggNonce, S: combined}
	if !verifyKernelSignature(sig, aggExcess, slateMessage(slate.Fee, slate.LockHeight)) {
		return nil, walleterr.New(walleterr.KindVerificationFailed, "mimblewimble.CombineS3/signature_mismatch")
	}

	slate.Stage = StageComplete

	return &Transaction{
		Inputs:          slate.Inputs,
		Outputs:         slate.Outputs,
		Fee:             slate.Fee,
		LockHeight:      slate.LockHeight,
		KernelExcess:    pointBytes(aggExcess),
		KernelNonce:     pointBytes(aggNonce),
		KernelSigScalar: combined.Bytes(),
		Offset:          ctx.Offset,
	}, nil
}

// VerifyKernelExcess recomputes sum(outputs) - sum(inputs) + fee*H from
// the transaction's own commitments and checks it against the kernel
// excess the SRS round produced — the balance invariant every
// Mimblewimble verifier checks without learning any individual amount.
func VerifyKernelExcess(tx *Transaction) error {
	if len(tx.Outputs) == 0 {
		return walleterr.New(walleterr.KindInvalidInput, "mimblewimble.VerifyKernelExcess/no_outputs")
	}

	outSum, err := NewPedersenCommitment(tx.Outputs[0].Commitment)
	if err != nil {
		return walleterr.Wrap(walleterr.KindInvalidInput, "mimblewimble.VerifyKernelExcess/output", err)
	}
	for _, o := range tx.Outputs[1:] {
		c, err := NewPedersenCommitment(o.Commitment)
		if err != nil {
			return walleterr.Wrap(walleterr.KindInvalidInput, "mimblewimble.VerifyKernelExcess/output", err)
		}
		outSum = AddCommitments(outSum, c)
	}

	var lhs *btcec.PublicKey = outSum.point
	for _, in := range tx.Inputs {
		c, err := NewPedersenCommitment(in.Commitment)
		if err != nil {
			return walleterr.Wrap(walleterr.KindInvalidInput, "mimblewimble.VerifyKernelExcess/input", err)
		}
		lhs = SubtractCommitments(lhs, c.point).point
	}
	lhs = AddCommitments(&PedersenCommitment{point: lhs}, &PedersenCommitment{point: FeeCommitment(tx.Fee)}).point

	excessPub, err := parsePoint(tx.KernelExcess)
	if err != nil {
		return walleterr.Wrap(walleterr.KindInvalidInput, "mimblewimble.VerifyKernelExcess/excess", err)
	}
	if !lhs.IsEqual(excessPub) {
		return walleterr.New(walleterr.KindVerificationFailed, "mimblewimble.VerifyKernelExcess/mismatch")
	}

	nonce, err := parsePoint(tx.KernelNonce)
	if err != nil {
		return walleterr.Wrap(walleterr.KindInvalidInput, "mimblewimble.VerifyKernelExcess/nonce", err)
	}
	sig := kernelSignature{R: nonce, S: new(big.Int).SetBytes(tx.KernelSigScalar)}
	if !verifyKernelSignature(sig, excessPub, slateMessage(tx.Fee, tx.LockHeight)) {
		return walleterr.New(walleterr.KindVerificationFailed, "mimblewimble.VerifyKernelExcess/bad_signature")
	}

	return nil
}
