package cryptonote

import (
	"context"
	"sort"
	"time"

	"github.com/toole-brendan/walletcore/internal/pendingtx"
	"github.com/toole-brendan/walletcore/internal/walleterr"
)

// RingSize is the per-coin ring size spec §4.6/§6 pins: 16 for XMR, 22 for
// WOW (post hard-fork 9).
func RingSize(coin string) int {
	if coin == "wow" {
		return 22
	}
	return 16
}

// Decoy is one fetched ring member: a plausible alternate spender for an
// input, pulled from the light-wallet server per selected input so a
// single request's response size stays bounded (spec §4.6 step 4).
type Decoy struct {
	GlobalIndex uint64
	PublicKey   [32]byte
	Commitment  [32]byte
}

// Destination is one recipient of a CryptoNote send.
type Destination struct {
	Address string
	Amount  uint64
}

// FeeInfo is the light-wallet server's current fee schedule.
type FeeInfo struct {
	FeePerByte uint64
	FeeMask    uint64
}

// SignRequest is everything the external ring-signature primitive needs
// to produce a signed transaction, per spec §4.6 step 6. This package
// never performs MLSAG/CLSAG math itself: the private spend scalar is
// handed across this one boundary and the resulting signed bytes are
// handed back, exactly as the spec's "external ring-signature primitive"
// phrasing specifies.
type SignRequest struct {
	Inputs        []Output
	Decoys        map[uint64][]Decoy // keyed by the input's GlobalIndex
	Destinations  []Destination
	ChangeAddress string
	FeePerByte    uint64
	FeeMask       uint64
	ViewScalar    [32]byte
	SpendScalar   [32]byte
	Network       string
	Coin          string
}

// SignResult is the external primitive's output.
type SignResult struct {
	TxHex  string
	TxHash string
	Fee    uint64
}

// RingSigner is the external ring-signature primitive's contract.
type RingSigner interface {
	Sign(ctx context.Context, req SignRequest) (SignResult, error)
}

// LightWalletClient is the external light-wallet server's contract (spec
// §6's "external collaborator" for CryptoNote chains). Real light-wallet
// protocols (Monero's "login"/"get_unspent_outs" RPCs, as myMonero-style
// servers implement them) are keyed per request by address and view key
// rather than by a server-side session, so this scans whichever account
// address and view key the caller supplies — the wallet's own account for
// an ordinary send, or a social tip's ephemeral one-off account for a
// claim/clawback sweep.
type LightWalletClient interface {
	GetUnspentOuts(ctx context.Context, address string, viewScalar [32]byte) ([]Output, FeeInfo, error)
	GetRandomOuts(ctx context.Context, ringSize int, excludeGlobalIndex uint64) ([]Decoy, error)
	SubmitRawTx(ctx context.Context, txHex string) (txHash string, err error)
}

// SendParams bundles a CryptoNote send's caller-supplied inputs. Address is
// the scanning account's own address — the wallet's own receiving address
// for an ordinary send, or a social tip's ephemeral address for a sweep —
// and must correspond to ViewScalar/SpendScalar.
type SendParams struct {
	Coin          string
	Network       string
	Address       string
	Recipient     string
	Amount        uint64
	ChangeAddress string
	Sweep         bool
	ViewScalar    [32]byte
	SpendScalar   [32]byte
	RecentlySpent map[[32]byte]bool
}

// estimateFee is a vbyte-shaped CryptoNote fee estimate: a fixed
// per-input/per-output weight times fee-per-byte, rounded up to the
// nearest fee-mask multiple (CryptoNote transactions quantize their fee
// to the server-supplied mask). The exact weight formula Monero itself
// uses depends on ring size and bulletproof+ range-proof count, which is
// the external ring-signature primitive's concern; this estimate only
// has to be close enough to drive coin selection, since the primitive
// returns the real fee actually paid.
func estimateFee(nInputs, nOutputs int, info FeeInfo) uint64 {
	const (
		perInputWeight  = 1500
		perOutputWeight = 300
		overheadWeight  = 200
	)
	weight := uint64(perInputWeight*nInputs + perOutputWeight*nOutputs + overheadWeight)
	fee := weight * info.FeePerByte
	if info.FeeMask > 1 {
		remainder := fee % info.FeeMask
		if remainder != 0 {
			fee += info.FeeMask - remainder
		}
	}
	return fee
}

// Send implements spec §4.6's send pipeline: fetch unspent outputs,
// filter by spent-output verification, select coins largest-first,
// fetch decoys per input, sign via the external primitive, and submit.
// On broadcast failure no key image is marked spent and no pending-tx
// entry is recorded, per spec §4.6's explicit rollback contract.
func Send(ctx context.Context, client LightWalletClient, signer RingSigner, ledger *pendingtx.Ledger, markSpent func(keyImage [32]byte), params SendParams) (SignResult, error) {
	outs, feeInfo, err := client.GetUnspentOuts(ctx, params.Address, params.ViewScalar)
	if err != nil {
		return SignResult{}, walleterr.RemoteFailure("cryptonote.Send/get_unspent_outs", err)
	}

	unspent, err := filterUnspent(params.ViewScalar, params.SpendScalar, outs, params.RecentlySpent)
	if err != nil {
		return SignResult{}, err
	}
	if len(unspent) == 0 {
		return SignResult{}, walleterr.New(walleterr.KindInsufficientFunds, "cryptonote.Send/no_unspent")
	}

	var selected []Output
	var fee uint64
	if params.Sweep {
		selected = unspent
		fee = estimateFee(len(selected), 1, feeInfo)
		buffer := feeInfo.FeeMask
		if tenthPercent := fee / 1000; tenthPercent > buffer {
			buffer = tenthPercent
		}
		fee += buffer
	} else {
		sorted := make([]Output, len(unspent))
		copy(sorted, unspent)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Amount > sorted[j].Amount })

		var sum uint64
		for _, out := range sorted {
			selected = append(selected, out)
			sum += out.Amount
			fee = estimateFee(len(selected), 2, feeInfo)
			if sum >= params.Amount+fee {
				break
			}
		}
		if sum < params.Amount+fee {
			return SignResult{}, walleterr.New(walleterr.KindInsufficientFunds, "cryptonote.Send/insufficient_funds")
		}
	}

	ringSize := RingSize(params.Coin)
	decoys := make(map[uint64][]Decoy, len(selected))
	for _, in := range selected {
		ds, err := client.GetRandomOuts(ctx, ringSize, in.GlobalIndex)
		if err != nil {
			return SignResult{}, walleterr.RemoteFailure("cryptonote.Send/get_random_outs", err)
		}
		if len(ds) < ringSize-1 {
			return SignResult{}, walleterr.New(walleterr.KindInsufficientFunds, "cryptonote.Send/insufficient_decoys")
		}
		decoys[in.GlobalIndex] = ds
	}

	keyImages := make([]keyImageEntry, 0, len(selected))
	for _, in := range selected {
		ki, err := ComputeKeyImage(params.ViewScalar, params.SpendScalar, in.TxPubKey, in.OutputIndex)
		if err != nil {
			return SignResult{}, err
		}
		keyImages = append(keyImages, keyImageEntry{globalIndex: in.GlobalIndex, keyImage: ki})
	}

	amount := params.Amount
	if params.Sweep {
		amount = sumAmounts(selected) - fee
	}

	result, err := signer.Sign(ctx, SignRequest{
		Inputs:        selected,
		Decoys:        decoys,
		Destinations:  []Destination{{Address: params.Recipient, Amount: amount}},
		ChangeAddress: params.ChangeAddress,
		FeePerByte:    feeInfo.FeePerByte,
		FeeMask:       feeInfo.FeeMask,
		ViewScalar:    params.ViewScalar,
		SpendScalar:   params.SpendScalar,
		Network:       params.Network,
		Coin:          params.Coin,
	})
	if err != nil {
		return SignResult{}, walleterr.Wrap(walleterr.KindVerificationFailed, "cryptonote.Send/sign", err)
	}

	txHash, err := client.SubmitRawTx(ctx, result.TxHex)
	if err != nil {
		// Broadcast failure: no key-image marking, no pending-tx record.
		return SignResult{}, walleterr.BroadcastFailed("cryptonote.Send/submit", err)
	}
	result.TxHash = txHash

	for _, pair := range keyImages {
		markSpent(pair.keyImage)
	}
	ledger.Add(pendingtx.Tx{
		TxHash:    result.TxHash,
		Asset:     params.Coin,
		Amount:    amount,
		Fee:       result.Fee,
		Timestamp: time.Now(),
	})

	return result, nil
}

type keyImageEntry struct {
	globalIndex uint64
	keyImage    [32]byte
}

func filterUnspent(viewScalar, spendScalar [32]byte, outs []Output, recentlySpent map[[32]byte]bool) ([]Output, error) {
	var unspent []Output
	for _, out := range outs {
		_, spent, err := VerifyOutput(viewScalar, spendScalar, out, recentlySpent)
		if err != nil {
			return nil, err
		}
		if !spent {
			unspent = append(unspent, out)
		}
	}
	return unspent, nil
}

func sumAmounts(outs []Output) uint64 {
	var sum uint64
	for _, o := range outs {
		sum += o.Amount
	}
	return sum
}
