package cryptonote

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toole-brendan/walletcore/internal/pendingtx"
)

type fakeClient struct {
	outs       []Output
	feeInfo    FeeInfo
	decoys     []Decoy
	submitErr  error
	submitHash string
}

func (c *fakeClient) GetUnspentOuts(ctx context.Context, address string, viewScalar [32]byte) ([]Output, FeeInfo, error) {
	return c.outs, c.feeInfo, nil
}

func (c *fakeClient) GetRandomOuts(ctx context.Context, ringSize int, excludeGlobalIndex uint64) ([]Decoy, error) {
	return c.decoys, nil
}

func (c *fakeClient) SubmitRawTx(ctx context.Context, txHex string) (string, error) {
	if c.submitErr != nil {
		return "", c.submitErr
	}
	return c.submitHash, nil
}

type fakeSigner struct {
	result SignResult
	err    error
}

func (s *fakeSigner) Sign(ctx context.Context, req SignRequest) (SignResult, error) {
	return s.result, s.err
}

func fakeDecoys(n int) []Decoy {
	out := make([]Decoy, n)
	for i := range out {
		out[i] = Decoy{GlobalIndex: uint64(i)}
	}
	return out
}

func TestSendHappyPathMarksSpentAndRecordsPending(t *testing.T) {
	view := randomScalar(t)
	spend := randomScalar(t)
	txPubKey := randomPoint(t)

	client := &fakeClient{
		outs:       []Output{{Amount: 1_000_000, TxPubKey: txPubKey, OutputIndex: 0, GlobalIndex: 1}},
		feeInfo:    FeeInfo{FeePerByte: 1, FeeMask: 10000},
		decoys:     fakeDecoys(15),
		submitHash: "deadbeef",
	}
	signer := &fakeSigner{result: SignResult{TxHex: "abcd", Fee: 12000}}
	ledger := pendingtx.NewLedger()

	var marked []([32]byte)
	markSpent := func(ki [32]byte) { marked = append(marked, ki) }

	result, err := Send(context.Background(), client, signer, ledger, markSpent, SendParams{
		Coin:        "xmr",
		Recipient:   "fake-address",
		Amount:      500_000,
		ViewScalar:  view,
		SpendScalar: spend,
	})
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", result.TxHash)
	assert.Len(t, marked, 1)
	assert.Len(t, ledger.List("xmr"), 1)
}

func TestSendSweepSpendsAllUnspentOutputs(t *testing.T) {
	view := randomScalar(t)
	spend := randomScalar(t)

	client := &fakeClient{
		outs: []Output{
			{Amount: 100_000, TxPubKey: randomPoint(t), OutputIndex: 0, GlobalIndex: 1},
			{Amount: 200_000, TxPubKey: randomPoint(t), OutputIndex: 0, GlobalIndex: 2},
		},
		feeInfo:    FeeInfo{FeePerByte: 1, FeeMask: 1000},
		decoys:     fakeDecoys(21),
		submitHash: "sweephash",
	}
	signer := &fakeSigner{result: SignResult{TxHex: "abcd", Fee: 5000}}
	ledger := pendingtx.NewLedger()

	result, err := Send(context.Background(), client, signer, ledger, func([32]byte) {}, SendParams{
		Coin:        "wow",
		Recipient:   "fake-address",
		Sweep:       true,
		ViewScalar:  view,
		SpendScalar: spend,
	})
	require.NoError(t, err)
	assert.Equal(t, "sweephash", result.TxHash)
}

func TestSendFailsWithInsufficientFunds(t *testing.T) {
	view := randomScalar(t)
	spend := randomScalar(t)

	client := &fakeClient{
		outs:    []Output{{Amount: 100, TxPubKey: randomPoint(t), OutputIndex: 0, GlobalIndex: 1}},
		feeInfo: FeeInfo{FeePerByte: 1, FeeMask: 1000},
		decoys:  fakeDecoys(15),
	}
	signer := &fakeSigner{}
	ledger := pendingtx.NewLedger()

	_, err := Send(context.Background(), client, signer, ledger, func([32]byte) {}, SendParams{
		Coin:        "xmr",
		Recipient:   "fake-address",
		Amount:      1_000_000_000,
		ViewScalar:  view,
		SpendScalar: spend,
	})
	assert.Error(t, err)
}

func TestSendFailsWithNoUnspentOutputs(t *testing.T) {
	view := randomScalar(t)
	spend := randomScalar(t)

	client := &fakeClient{outs: nil, feeInfo: FeeInfo{FeePerByte: 1, FeeMask: 1000}}
	signer := &fakeSigner{}
	ledger := pendingtx.NewLedger()

	_, err := Send(context.Background(), client, signer, ledger, func([32]byte) {}, SendParams{
		Coin: "xmr", Recipient: "fake-address", Amount: 1, ViewScalar: view, SpendScalar: spend,
	})
	assert.Error(t, err)
}

func TestSendBroadcastFailureDoesNotMarkSpentOrRecordPending(t *testing.T) {
	view := randomScalar(t)
	spend := randomScalar(t)
	txPubKey := randomPoint(t)

	client := &fakeClient{
		outs:      []Output{{Amount: 1_000_000, TxPubKey: txPubKey, OutputIndex: 0, GlobalIndex: 1}},
		feeInfo:   FeeInfo{FeePerByte: 1, FeeMask: 1000},
		decoys:    fakeDecoys(15),
		submitErr: errors.New("node rejected tx"),
	}
	signer := &fakeSigner{result: SignResult{TxHex: "abcd", Fee: 5000}}
	ledger := pendingtx.NewLedger()

	var marked []([32]byte)
	_, err := Send(context.Background(), client, signer, ledger, func(ki [32]byte) { marked = append(marked, ki) }, SendParams{
		Coin:        "xmr",
		Recipient:   "fake-address",
		Amount:      500_000,
		ViewScalar:  view,
		SpendScalar: spend,
	})
	assert.Error(t, err)
	assert.Empty(t, marked)
	assert.Empty(t, ledger.List("xmr"))
}

func TestSendFailsWithInsufficientDecoys(t *testing.T) {
	view := randomScalar(t)
	spend := randomScalar(t)

	client := &fakeClient{
		outs:    []Output{{Amount: 1_000_000, TxPubKey: randomPoint(t), OutputIndex: 0, GlobalIndex: 1}},
		feeInfo: FeeInfo{FeePerByte: 1, FeeMask: 1000},
		decoys:  fakeDecoys(2),
	}
	signer := &fakeSigner{}
	ledger := pendingtx.NewLedger()

	_, err := Send(context.Background(), client, signer, ledger, func([32]byte) {}, SendParams{
		Coin: "xmr", Recipient: "fake-address", Amount: 1000, ViewScalar: view, SpendScalar: spend,
	})
	assert.Error(t, err)
}
