package mimblewimble

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/toole-brendan/walletcore/internal/walleterr"
)

const (
	slatepackBegin = "BEGINSLATEPACK."
	slatepackEnd   = "ENDSLATEPACK."

	// wireLineWidth matches the real Grin slatepack's wrapped-text
	// convention; this wallet core's armor is plain base64 rather than
	// bech32m over CBOR, so only the envelope shape is bit-compatible.
	wireLineWidth = 64
)

// wireSlate is the JSON shape a slatepack's body carries. A compact S2
// response (per spec §6) omits Inputs and the sender's change output —
// the sender already holds both in its locally persisted
// GrinSendContext — so those fields are left nil rather than
// re-transmitted.
type wireSlate struct {
	ID           string                       `json:"id"`
	Coin         string                       `json:"coin"`
	Amount       uint64                       `json:"amount"`
	Fee          uint64                       `json:"fee"`
	LockHeight   uint64                       `json:"lock_height"`
	Inputs       []SlateInput                 `json:"inputs,omitempty"`
	Outputs      []SlateOutput                `json:"outputs"`
	Participants map[string]*ParticipantData  `json:"participants"`
	Stage        Stage                        `json:"stage"`
	Offset       []byte                       `json:"offset,omitempty"`
	Compact      bool                         `json:"compact"`
}

// EncodeSlatepack armors slate into the text envelope spec §6 describes:
// a blob beginning "BEGINSLATEPACK." and terminated "ENDSLATEPACK.". When
// compact is true (the recipient's S2 response), Inputs and every Output
// but the last (the recipient's freshly added one) are omitted, since the
// sender already holds them in its stored GrinSendContext.
func EncodeSlatepack(slate *Slate, compact bool) (string, error) {
	w := wireSlate{
		ID:           slate.ID,
		Coin:         slate.Coin,
		Amount:       slate.Amount,
		Fee:          slate.Fee,
		LockHeight:   slate.LockHeight,
		Participants: slate.Participants,
		Stage:        slate.Stage,
		Compact:      compact,
	}
	if compact {
		if len(slate.Outputs) > 0 {
			w.Outputs = slate.Outputs[len(slate.Outputs)-1:]
		}
	} else {
		w.Inputs = slate.Inputs
		w.Outputs = slate.Outputs
		w.Offset = slate.Offset
	}

	raw, err := json.Marshal(w)
	if err != nil {
		return "", walleterr.Wrap(walleterr.KindInvalidInput, "mimblewimble.EncodeSlatepack/marshal", err)
	}
	body := base64.StdEncoding.EncodeToString(raw)

	var sb strings.Builder
	sb.WriteString(slatepackBegin)
	sb.WriteByte('\n')
	for i := 0; i < len(body); i += wireLineWidth {
		end := i + wireLineWidth
		if end > len(body) {
			end = len(body)
		}
		sb.WriteString(body[i:end])
		sb.WriteByte('\n')
	}
	sb.WriteString(slatepackEnd)
	return sb.String(), nil
}

// DecodeSlatepack reverses EncodeSlatepack. The returned Slate's Inputs
// and (for a compact package) earlier Outputs are empty; callers that
// need them merge the stored GrinSendContext back in before finalizing
// (see MergeSendContext).
func DecodeSlatepack(text string) (*Slate, bool, error) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, slatepackBegin) || !strings.HasSuffix(trimmed, slatepackEnd) {
		return nil, false, walleterr.New(walleterr.KindInvalidInput, "mimblewimble.DecodeSlatepack/bad_envelope")
	}
	body := trimmed[len(slatepackBegin) : len(trimmed)-len(slatepackEnd)]
	body = strings.ReplaceAll(body, "\n", "")
	body = strings.TrimSpace(body)

	raw, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, false, walleterr.Wrap(walleterr.KindInvalidInput, "mimblewimble.DecodeSlatepack/base64", err)
	}
	var w wireSlate
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, false, walleterr.Wrap(walleterr.KindInvalidInput, "mimblewimble.DecodeSlatepack/json", err)
	}

	slate := &Slate{
		ID:           w.ID,
		Coin:         w.Coin,
		Amount:       w.Amount,
		Fee:          w.Fee,
		LockHeight:   w.LockHeight,
		Inputs:       w.Inputs,
		Outputs:      w.Outputs,
		Participants: w.Participants,
		Stage:        w.Stage,
		Offset:       w.Offset,
	}
	return slate, w.Compact, nil
}

// MergeSendContext reconstructs a full, finalize-ready slate from a
// compact S2 slatepack plus the sender's own stored GrinSendContext,
// re-attaching the inputs and change output the compact wire message
// omitted. Per spec §4.7, a context missing the stored S1 serialization
// or the change output's range proof is rejected as stale rather than
// guessed at.
func MergeSendContext(compactS2 *Slate, stored *GrinSendContext) (*Slate, error) {
	if stored == nil || stored.SerializedS1 == "" {
		return nil, walleterr.StaleState("mimblewimble.MergeSendContext/missing_s1")
	}
	if stored.ChangeOutput == nil || len(stored.ChangeOutput.RangeProof) == 0 {
		return nil, walleterr.StaleState("mimblewimble.MergeSendContext/missing_change_proof")
	}

	original, err := decodeStoredS1(stored.SerializedS1)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindStaleState, "mimblewimble.MergeSendContext/decode_s1", err)
	}

	recipientOutput := SlateOutput{}
	if len(compactS2.Outputs) > 0 {
		recipientOutput = compactS2.Outputs[len(compactS2.Outputs)-1]
	}

	merged := &Slate{
		ID:           original.ID,
		Coin:         original.Coin,
		Amount:       original.Amount,
		Fee:          original.Fee,
		LockHeight:   original.LockHeight,
		Inputs:       toSlateInputs(stored.Inputs),
		Outputs:      []SlateOutput{*stored.ChangeOutput, recipientOutput},
		Participants: mergeParticipants(original.Participants, compactS2.Participants),
		Stage:        StageS2,
		Offset:       stored.Offset,
	}
	return merged, nil
}

// decodeStoredS1 reverses the plain (unarmored) base64 serialization
// CreateSend stores in GrinSendContext.SerializedS1 — the sender's own
// record of the slate it built, distinct from the armored slatepack text
// exchanged with the recipient.
func decodeStoredS1(encoded string) (*Slate, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	var w wireSlate
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	return &Slate{
		ID: w.ID, Coin: w.Coin, Amount: w.Amount, Fee: w.Fee, LockHeight: w.LockHeight,
		Inputs: w.Inputs, Outputs: w.Outputs, Participants: w.Participants,
		Stage: w.Stage, Offset: w.Offset,
	}, nil
}

// serializeS1 produces the plain base64 blob GrinSendContext.SerializedS1
// stores locally, carrying every field (inputs included) since this copy
// never leaves the sender's own process.
func serializeS1(slate *Slate) (string, error) {
	w := wireSlate{
		ID: slate.ID, Coin: slate.Coin, Amount: slate.Amount, Fee: slate.Fee,
		LockHeight: slate.LockHeight, Inputs: slate.Inputs, Outputs: slate.Outputs,
		Participants: slate.Participants, Stage: slate.Stage, Offset: slate.Offset,
	}
	raw, err := json.Marshal(w)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func toSlateInputs(inputs []SendContextInput) []SlateInput {
	out := make([]SlateInput, len(inputs))
	for i, in := range inputs {
		out[i] = SlateInput{Commitment: in.Commitment}
	}
	return out
}

func mergeParticipants(a, b map[string]*ParticipantData) map[string]*ParticipantData {
	out := make(map[string]*ParticipantData, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
