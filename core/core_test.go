package core

import (
	"context"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toole-brendan/walletcore/config"
	"github.com/toole-brendan/walletcore/internal/cryptonote"
	"github.com/toole-brendan/walletcore/internal/mimblewimble"
	"github.com/toole-brendan/walletcore/internal/persistence"
	"github.com/toole-brendan/walletcore/internal/primitives"
	"github.com/toole-brendan/walletcore/internal/tipescrow"
	"github.com/toole-brendan/walletcore/internal/utxoengine"
	"github.com/toole-brendan/walletcore/internal/vault"
)

// p2wpkhScriptFixture is a placeholder witness pubkey-script: BuildAndSign
// only consults a UTXO's script for the sighash fetcher, not to verify it
// matches the signing key, so any well-formed OP_0<20 bytes> script works
// for these fakes.
var p2wpkhScriptFixture = append([]byte{0x00, 0x14}, make([]byte, 20)...)

func vaultCreateParams(password string) vault.CreateWalletParams {
	return vault.CreateWalletParams{Password: password, AutoLockMinutes: 10}
}

type fakeElectrum struct {
	utxos       []utxoengine.UTXO
	broadcasted []string
	broadcastTx string
	broadcastErr error
}

func (f *fakeElectrum) GetUTXOs(ctx context.Context, asset, address string) ([]utxoengine.UTXO, error) {
	return f.utxos, nil
}
func (f *fakeElectrum) EstimateFeeRate(ctx context.Context, asset string) (int64, error) { return 1, nil }
func (f *fakeElectrum) GetHistory(ctx context.Context, asset, address string) ([]string, error) {
	return []string{"hist-1"}, nil
}
func (f *fakeElectrum) Broadcast(ctx context.Context, asset, txHex string) (string, error) {
	if f.broadcastErr != nil {
		return "", f.broadcastErr
	}
	f.broadcasted = append(f.broadcasted, txHex)
	if f.broadcastTx == "" {
		return "fake-broadcast-hash", nil
	}
	return f.broadcastTx, nil
}

type fakeGrinBackend struct {
	outputs   []mimblewimble.Output
	nextChild uint32
}

func (b *fakeGrinBackend) GetOutputs(ctx context.Context) ([]mimblewimble.Output, uint32, error) {
	return b.outputs, b.nextChild, nil
}
func (b *fakeGrinBackend) LockOutputs(ctx context.Context, slateID string, outputIDs []string) error {
	return nil
}
func (b *fakeGrinBackend) UnlockOutputs(ctx context.Context, slateID string) error { return nil }
func (b *fakeGrinBackend) SpendOutputs(ctx context.Context, slateID string) error { return nil }
func (b *fakeGrinBackend) RecordOutput(ctx context.Context, out mimblewimble.Output) error {
	return nil
}
func (b *fakeGrinBackend) RecordTransaction(ctx context.Context, tx mimblewimble.TxRecord) error {
	return nil
}
func (b *fakeGrinBackend) UpdateTransaction(ctx context.Context, slateID string, status mimblewimble.TxStatus) error {
	return nil
}
func (b *fakeGrinBackend) BroadcastGrinTx(ctx context.Context, tx *mimblewimble.Transaction) (string, error) {
	return "grin-tx-hash", nil
}

type fakeProver struct{}

func (fakeProver) Prove(value uint64, blind mimblewimble.BlindingFactor) ([]byte, error) {
	return append([]byte{byte(value)}, blind[:4]...), nil
}
func (fakeProver) Verify(commitment []byte, proof []byte) (bool, error) { return len(proof) > 0, nil }

type fakeTipBackend struct {
	registered tipescrow.RegisterTipParams
}

func (b *fakeTipBackend) RegisterTip(ctx context.Context, params tipescrow.RegisterTipParams) error {
	b.registered = params
	return nil
}
func (b *fakeTipBackend) FetchTip(ctx context.Context, tipID string) (string, []byte, error) {
	return b.registered.TipAddress, b.registered.EncryptedKeyForRecipient, nil
}
func (b *fakeTipBackend) NotifyClawback(ctx context.Context, tipID string) error { return nil }

type noopLightWallet struct{}

func (noopLightWallet) GetUnspentOuts(ctx context.Context, address string, viewScalar [32]byte) ([]cryptonote.Output, cryptonote.FeeInfo, error) {
	return nil, cryptonote.FeeInfo{}, nil
}
func (noopLightWallet) GetRandomOuts(ctx context.Context, ringSize int, excludeGlobalIndex uint64) ([]cryptonote.Decoy, error) {
	return nil, nil
}
func (noopLightWallet) SubmitRawTx(ctx context.Context, txHex string) (string, error) { return "", nil }

type noopRingSigner struct{}

func (noopRingSigner) Sign(ctx context.Context, req cryptonote.SignRequest) (cryptonote.SignResult, error) {
	return cryptonote.SignResult{}, nil
}

// fakeCryptoNoteLightWallet hands back a fixed output set regardless of
// which address/view key it is asked to scan, so tests can exercise both
// the wallet's own account and a tip's standalone account through the same
// fake without tracking per-account state.
type fakeCryptoNoteLightWallet struct {
	outs       []cryptonote.Output
	feeInfo    cryptonote.FeeInfo
	decoys     []cryptonote.Decoy
	submitHash string
}

func (f *fakeCryptoNoteLightWallet) GetUnspentOuts(ctx context.Context, address string, viewScalar [32]byte) ([]cryptonote.Output, cryptonote.FeeInfo, error) {
	return f.outs, f.feeInfo, nil
}
func (f *fakeCryptoNoteLightWallet) GetRandomOuts(ctx context.Context, ringSize int, excludeGlobalIndex uint64) ([]cryptonote.Decoy, error) {
	return f.decoys, nil
}
func (f *fakeCryptoNoteLightWallet) SubmitRawTx(ctx context.Context, txHex string) (string, error) {
	return f.submitHash, nil
}

type fakeCryptoNoteRingSigner struct{}

func (fakeCryptoNoteRingSigner) Sign(ctx context.Context, req cryptonote.SignRequest) (cryptonote.SignResult, error) {
	return cryptonote.SignResult{TxHex: "signed-tx", Fee: 1000}, nil
}

func fakeCryptoNoteDecoys(n int) []cryptonote.Decoy {
	out := make([]cryptonote.Decoy, n)
	for i := range out {
		out[i] = cryptonote.Decoy{GlobalIndex: uint64(i)}
	}
	return out
}

func newTestCore(t *testing.T, electrum *fakeElectrum, grinBackend mimblewimble.Backend, tipBackend tipescrow.Backend) *CoreState {
	t.Helper()
	cs, err := NewCoreState(nil, Deps{
		Persistent:  persistence.NewMemoryStore(),
		Session:     persistence.NewMemoryStore(),
		Electrum:    electrum,
		LightWallet: noopLightWallet{},
		RingSigner:  noopRingSigner{},
		GrinBackend: grinBackend,
		Prover:      fakeProver{},
		TipBackend:  tipBackend,
		Settings:    config.Default(),
	})
	require.NoError(t, err)
	return cs
}

func TestNewCoreStateStartsLockedAndRouterReady(t *testing.T) {
	cs := newTestCore(t, &fakeElectrum{}, &fakeGrinBackend{}, &fakeTipBackend{})
	select {
	case <-cs.Router.Ready():
	default:
		t.Fatal("router should be ready immediately after NewCoreState")
	}

	resp := cs.Router.Dispatch(context.Background(), GetWalletStateRequest{})
	require.True(t, resp.Success)
	state := resp.Data.(WalletStateResponse)
	assert.False(t, state.Unlocked)
}

func TestUnlockLockRoundTripThroughRouter(t *testing.T) {
	cs := newTestCore(t, &fakeElectrum{}, &fakeGrinBackend{}, &fakeTipBackend{})
	_, err := cs.Vault.CreateWallet(vaultCreateParams("hunter2"))
	require.NoError(t, err)

	resp := cs.Router.Dispatch(context.Background(), GetWalletStateRequest{})
	require.True(t, resp.Success)
	assert.True(t, resp.Data.(WalletStateResponse).Unlocked)

	resp = cs.Router.Dispatch(context.Background(), LockWalletRequest{})
	require.True(t, resp.Success)
	assert.False(t, cs.Vault.IsUnlocked())
}

func TestUnlockWrongPasswordReturnsStructuredError(t *testing.T) {
	cs := newTestCore(t, &fakeElectrum{}, &fakeGrinBackend{}, &fakeTipBackend{})
	_, err := cs.Vault.CreateWallet(vaultCreateParams("correct-password"))
	require.NoError(t, err)
	cs.Vault.Lock()

	resp := cs.Router.Dispatch(context.Background(), UnlockWalletRequest{Password: "wrong"})
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestSendTxBuildsSignsAndRecordsPending(t *testing.T) {
	electrum := &fakeElectrum{
		utxos: []utxoengine.UTXO{{Value: 1_000_000, PubKeyScript: p2wpkhScriptFixture}},
	}
	cs := newTestCore(t, electrum, &fakeGrinBackend{}, &fakeTipBackend{})
	_, err := cs.Vault.CreateWallet(vaultCreateParams("hunter2"))
	require.NoError(t, err)

	keys, err := cs.Vault.Keys()
	require.NoError(t, err)
	ownAddr, err := ownAddress(keys, "btc")
	require.NoError(t, err)

	resp := cs.Router.Dispatch(context.Background(), SendTxRequest{
		Asset:     "btc",
		Address:   ownAddr,
		Recipient: ownAddr,
		Amount:    100_000,
		FeeRate:   1,
	})
	require.True(t, resp.Success)
	assert.NotEmpty(t, electrum.broadcasted)
	// BTC pending entries have a zero TTL and are dropped on the first
	// read, so the outgoing sum is already zero after the send.
	assert.Equal(t, uint64(0), cs.pendingTxLedger.PendingOutgoingSum("btc"))
}

func TestGrinCreateSendRequiresUnlockedWallet(t *testing.T) {
	cs := newTestCore(t, &fakeElectrum{}, &fakeGrinBackend{}, &fakeTipBackend{})
	resp := cs.Router.Dispatch(context.Background(), GrinCreateSendRequest{Amount: 1000, Fee: 10})
	assert.False(t, resp.Success)
}

func TestDumpNeverContainsRawScalars(t *testing.T) {
	cs := newTestCore(t, &fakeElectrum{}, &fakeGrinBackend{}, &fakeTipBackend{})
	_, err := cs.Vault.CreateWallet(vaultCreateParams("hunter2"))
	require.NoError(t, err)

	dump := cs.Dump()
	assert.Contains(t, dump, "Unlocked")
	assert.Contains(t, dump, "true")
	assert.NotContains(t, dump, "Scalar")
}

// cryptoNoteTestScalar returns a random canonical ed25519 scalar, for
// fixture view/spend scalars in CryptoNote tests.
func cryptoNoteTestScalar(t *testing.T) [32]byte {
	t.Helper()
	var s [32]byte
	_, err := rand.Read(s[:])
	require.NoError(t, err)
	var wide [64]byte
	copy(wide[:], s[:])
	return primitives.ScalarReduce(wide)
}

func TestClawbackSocialTipSweepsCryptoNoteTip(t *testing.T) {
	txPubKeyScalar := cryptoNoteTestScalar(t)
	txPubKey, err := primitives.ScalarMulBase(txPubKeyScalar)
	require.NoError(t, err)

	wallet := &fakeCryptoNoteLightWallet{
		outs:       []cryptonote.Output{{Amount: 500_000, TxPubKey: txPubKey, OutputIndex: 0, GlobalIndex: 1}},
		feeInfo:    cryptonote.FeeInfo{FeePerByte: 1, FeeMask: 10000},
		decoys:     fakeCryptoNoteDecoys(16),
		submitHash: "tip-sweep-hash",
	}
	cs, err := NewCoreState(nil, Deps{
		Persistent:  persistence.NewMemoryStore(),
		Session:     persistence.NewMemoryStore(),
		Electrum:    &fakeElectrum{},
		LightWallet: wallet,
		RingSigner:  fakeCryptoNoteRingSigner{},
		GrinBackend: &fakeGrinBackend{},
		Prover:      fakeProver{},
		TipBackend:  &fakeTipBackend{},
		Settings:    config.Default(),
	})
	require.NoError(t, err)

	tipScalar := cryptoNoteTestScalar(t)
	txHash, err := cs.tipSweeper().Sweep(context.Background(), "xmr", tipScalar, "destination-address")
	require.NoError(t, err)
	assert.Equal(t, "tip-sweep-hash", txHash)
}

func TestClawbackSocialTipSweepWithNoFundsReturnsErrNoFunds(t *testing.T) {
	wallet := &fakeCryptoNoteLightWallet{feeInfo: cryptonote.FeeInfo{FeePerByte: 1, FeeMask: 10000}}
	cs, err := NewCoreState(nil, Deps{
		Persistent:  persistence.NewMemoryStore(),
		Session:     persistence.NewMemoryStore(),
		Electrum:    &fakeElectrum{},
		LightWallet: wallet,
		RingSigner:  fakeCryptoNoteRingSigner{},
		GrinBackend: &fakeGrinBackend{},
		Prover:      fakeProver{},
		TipBackend:  &fakeTipBackend{},
		Settings:    config.Default(),
	})
	require.NoError(t, err)

	tipScalar := cryptoNoteTestScalar(t)
	_, err = cs.tipSweeper().Sweep(context.Background(), "wow", tipScalar, "destination-address")
	assert.ErrorIs(t, err, tipescrow.ErrNoFunds)
}

func TestUpdateSettingsValidatesAndClamps(t *testing.T) {
	cs := newTestCore(t, &fakeElectrum{}, &fakeGrinBackend{}, &fakeTipBackend{})
	s := cs.Settings()
	s.AutoLockMinutes = 9000
	require.NoError(t, cs.UpdateSettings(s))
	assert.Equal(t, 240, cs.Settings().AutoLockMinutes)

	s.Theme = "neon"
	assert.Error(t, cs.UpdateSettings(s))
}
