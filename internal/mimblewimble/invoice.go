package mimblewimble

import (
	"math/big"

	"github.com/toole-brendan/walletcore/internal/walleterr"
)

// RSR ("receiver-sender-receiver") is the invoice variant spec §4.7's
// heading names: the recipient emits the opening round (requesting a
// specific amount), the payer supplies inputs and a partial signature,
// and the recipient finishes the round — the mirror image of SRS's
// sender-first flow. The invoice functions return the same SendContext
// as the SRS slate functions; every blinding factor is supplied by the
// caller, and no child index is claimed or tracked on this path.
const (
	stageInvoiceI1 Stage = "i1"
	stageInvoiceI2 Stage = "i2"

	roleInvoicee = "invoicee" // the recipient, who emits first
	rolePayer    = "payer"
)

// CreateInvoice is the recipient's opening round: commit to a receiving
// output under the caller-supplied outputBlind and publish a slate
// requesting amount with no inputs yet — the payer supplies those in
// PayInvoice. CreateInvoice does not allocate or record child indices
// itself.
func CreateInvoice(prover RangeProver, id, coin string, amount, fee, lockHeight uint64, outputBlind BlindingFactor) (*Slate, *SendContext, error) {
	commit, err := CreateCommitment(amount, outputBlind)
	if err != nil {
		return nil, nil, walleterr.Wrap(walleterr.KindInvalidInput, "mimblewimble.CreateInvoice/commitment", err)
	}
	proof, err := prover.Prove(amount, outputBlind)
	if err != nil {
		return nil, nil, walleterr.Wrap(walleterr.KindVerificationFailed, "mimblewimble.CreateInvoice/prove", err)
	}

	nonceScalar, noncePub, err := generateNonce()
	if err != nil {
		return nil, nil, walleterr.Wrap(walleterr.KindInvalidInput, "mimblewimble.CreateInvoice/nonce", err)
	}

	slate := &Slate{
		ID:         id,
		Coin:       coin,
		Amount:     amount,
		Fee:        fee,
		LockHeight: lockHeight,
		Outputs:    []SlateOutput{{Commitment: commit.Bytes(), RangeProof: proof}},
		Participants: map[string]*ParticipantData{
			roleInvoicee: {
				PublicBlindExcess: pointBytes(excessPublicKey(outputBlind)),
				PublicNonce:       pointBytes(noncePub),
			},
		},
		Stage: stageInvoiceI1,
	}
	return slate, &SendContext{BlindExcess: outputBlind, NonceScalar: nonceScalar}, nil
}

// PayInvoice is the payer's half-round: attach the caller-supplied inputs
// and a change output under the caller-supplied changeBlind and
// changeValue (no input selection or child-index claim happens here), and
// add the payer's partial signature — structurally identical to
// ReceiveS2 except the payer contributes inputs rather than a single
// receiving output.
func PayInvoice(slate *Slate, prover RangeProver, inputs []SpendableInput, changeBlind BlindingFactor, changeValue uint64) (*Slate, error) {
	if slate.Stage != stageInvoiceI1 {
		return nil, walleterr.New(walleterr.KindInvalidInput, "mimblewimble.PayInvoice/wrong_stage")
	}
	if len(inputs) == 0 {
		return nil, walleterr.New(walleterr.KindInvalidInput, "mimblewimble.PayInvoice/no_inputs")
	}
	invoicee, ok := slate.Participants[roleInvoicee]
	if !ok {
		return nil, walleterr.New(walleterr.KindInvalidInput, "mimblewimble.PayInvoice/missing_invoicee")
	}

	changeCommit, err := CreateCommitment(changeValue, changeBlind)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindInvalidInput, "mimblewimble.PayInvoice/change_commitment", err)
	}
	changeProof, err := prover.Prove(changeValue, changeBlind)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindVerificationFailed, "mimblewimble.PayInvoice/prove_change", err)
	}

	excess := changeBlind
	for _, in := range inputs {
		excess = AddBlindingFactors(excess, NegateBlindingFactor(in.BlindingFactor))
	}

	nonceScalar, noncePub, err := generateNonce()
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindInvalidInput, "mimblewimble.PayInvoice/nonce", err)
	}

	invoiceeNonce, err := parsePoint(invoicee.PublicNonce)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindInvalidInput, "mimblewimble.PayInvoice/invoicee_nonce", err)
	}
	invoiceeExcess, err := parsePoint(invoicee.PublicBlindExcess)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindInvalidInput, "mimblewimble.PayInvoice/invoicee_excess", err)
	}
	payerExcessPub := excessPublicKey(excess)

	aggNonce := addPublicPoints(invoiceeNonce, noncePub)
	aggExcess := addPublicPoints(invoiceeExcess, payerExcessPub)

	e := kernelChallenge(aggNonce, aggExcess, slateMessage(slate.Fee, slate.LockHeight))
	partial := partialSign(nonceScalar, excess, e)

	slateInputs := make([]SlateInput, len(inputs))
	for i, in := range inputs {
		slateInputs[i] = SlateInput{Commitment: in.Commitment}
	}

	slate.Inputs = slateInputs
	slate.Outputs = append(slate.Outputs, SlateOutput{Commitment: changeCommit.Bytes(), RangeProof: changeProof})
	slate.Participants[rolePayer] = &ParticipantData{
		PublicBlindExcess: pointBytes(payerExcessPub),
		PublicNonce:       pointBytes(noncePub),
		PartialSignature:  partial.Bytes(),
	}
	slate.Stage = stageInvoiceI2

	return slate, nil
}

// FinalizeInvoice is the recipient's closing round, the invoice
// protocol's mirror of CombineS3: combine the payer's partial signature
// with the recipient's own and verify the result.
func FinalizeInvoice(slate *Slate, invoiceeCtx *SendContext) (*Transaction, error) {
	if slate.Stage != stageInvoiceI2 {
		return nil, walleterr.New(walleterr.KindInvalidInput, "mimblewimble.FinalizeInvoice/wrong_stage")
	}
	payer, ok := slate.Participants[rolePayer]
	if !ok || payer.PartialSignature == nil {
		return nil, walleterr.New(walleterr.KindInvalidInput, "mimblewimble.FinalizeInvoice/missing_payer_signature")
	}
	invoicee, ok := slate.Participants[roleInvoicee]
	if !ok {
		return nil, walleterr.New(walleterr.KindInvalidInput, "mimblewimble.FinalizeInvoice/missing_invoicee")
	}

	payerNonce, err := parsePoint(payer.PublicNonce)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindInvalidInput, "mimblewimble.FinalizeInvoice/payer_nonce", err)
	}
	payerExcess, err := parsePoint(payer.PublicBlindExcess)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindInvalidInput, "mimblewimble.FinalizeInvoice/payer_excess", err)
	}
	invoiceeExcess, err := parsePoint(invoicee.PublicBlindExcess)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindInvalidInput, "mimblewimble.FinalizeInvoice/invoicee_excess", err)
	}
	invoiceeNoncePub := excessPublicKey(BlindingFactor(invoiceeCtx.NonceScalar))

	aggNonce := addPublicPoints(invoiceeNoncePub, payerNonce)
	aggExcess := addPublicPoints(invoiceeExcess, payerExcess)

	e := kernelChallenge(aggNonce, aggExcess, slateMessage(slate.Fee, slate.LockHeight))
	invoiceePartial := partialSign(invoiceeCtx.NonceScalar, invoiceeCtx.BlindExcess, e)

	payerPartial := new(big.Int).SetBytes(payer.PartialSignature)
	combined := combinePartialSigs(invoiceePartial, payerPartial)

	sig := kernelSignature{R: aggNonce, S: combined}
	if !verifyKernelSignature(sig, aggExcess, slateMessage(slate.Fee, slate.LockHeight)) {
		return nil, walleterr.New(walleterr.KindVerificationFailed, "mimblewimble.FinalizeInvoice/signature_mismatch")
	}

	return &Transaction{
		Inputs:          slate.Inputs,
		Outputs:         slate.Outputs,
		Fee:             slate.Fee,
		LockHeight:      slate.LockHeight,
		KernelExcess:    pointBytes(aggExcess),
		KernelNonce:     pointBytes(aggNonce),
		KernelSigScalar: combined.Bytes(),
	}, nil
}
