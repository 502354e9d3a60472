package core

import (
	"context"
	"time"

	"github.com/toole-brendan/walletcore/internal/cryptonote"
	"github.com/toole-brendan/walletcore/internal/keyderiv"
	"github.com/toole-brendan/walletcore/internal/mimblewimble"
	"github.com/toole-brendan/walletcore/internal/pendingtx"
	"github.com/toole-brendan/walletcore/internal/router"
	"github.com/toole-brendan/walletcore/internal/tipescrow"
	"github.com/toole-brendan/walletcore/internal/utxoengine"
	"github.com/toole-brendan/walletcore/internal/walleterr"
)

// The request types below are the concrete payloads for spec §6's
// message enum groups; each implements router.Request via Kind().

type GetWalletStateRequest struct{}

func (GetWalletStateRequest) Kind() router.RequestKind { return router.KindGetWalletState }

type WalletStateResponse struct {
	Unlocked bool
	Theme    string
	AutoLock int
}

type UnlockWalletRequest struct{ Password string }

func (UnlockWalletRequest) Kind() router.RequestKind { return router.KindUnlockWallet }

type LockWalletRequest struct{}

func (LockWalletRequest) Kind() router.RequestKind { return router.KindLockWallet }

type RevealSeedRequest struct{ Password string }

func (RevealSeedRequest) Kind() router.RequestKind { return router.KindRevealSeed }

type GetBalanceRequest struct{ Asset string }

func (GetBalanceRequest) Kind() router.RequestKind { return router.KindGetBalance }

type GetHistoryRequest struct{ Asset, Address string }

func (GetHistoryRequest) Kind() router.RequestKind { return router.KindGetHistory }

type GetUtxosRequest struct{ Asset, Address string }

func (GetUtxosRequest) Kind() router.RequestKind { return router.KindGetUtxos }

type MaxSendableUtxoRequest struct {
	Asset, Address string
	FeeRate        int64
}

func (MaxSendableUtxoRequest) Kind() router.RequestKind { return router.KindMaxSendableUtxo }

type SendTxRequest struct {
	Asset         string
	Address       string // sender's own address, to fetch UTXOs and the change address
	Recipient     string
	Amount        int64
	FeeRate       int64
	Sweep         bool
}

func (SendTxRequest) Kind() router.RequestKind { return router.KindSendTx }

type GrinCreateSendRequest struct {
	Amount, Fee, LockHeight uint64
	SlateID                 string // empty to auto-generate
}

func (GrinCreateSendRequest) Kind() router.RequestKind { return router.KindGrinCreateSend }

type GrinCreateSendResponse struct {
	Slatepack string
	Context   *mimblewimble.GrinSendContext
}

type GrinFinalizeRequest struct {
	Slatepack string
	Context   *mimblewimble.GrinSendContext
}

func (GrinFinalizeRequest) Kind() router.RequestKind { return router.KindGrinFinalize }

type GrinCancelSendRequest struct{ Context *mimblewimble.GrinSendContext }

func (GrinCancelSendRequest) Kind() router.RequestKind { return router.KindGrinCancelSend }

type CreateSocialTipRequest struct {
	Params tipescrow.CreateTipParams
}

func (CreateSocialTipRequest) Kind() router.RequestKind { return router.KindCreateSocialTip }

type ClaimSocialTipRequest struct {
	Asset, TipID     string
	RecipientScalar  [32]byte
	RecipientAddress string
}

func (ClaimSocialTipRequest) Kind() router.RequestKind { return router.KindClaimSocialTip }

type ClawbackSocialTipRequest struct {
	Tip           tipescrow.PendingSocialTip
	SenderScalar  [32]byte
	SenderAddress string
}

func (ClawbackSocialTipRequest) Kind() router.RequestKind { return router.KindClawbackSocialTip }

// registerHandlers wires one router.Handler per request type above. Every
// handler is a thin adapter: the actual logic lives in vault/utxoengine/
// cryptonote/mimblewimble/tipescrow, this package only supplies the keys
// and external collaborators those packages need.
func (c *CoreState) registerHandlers() {
	c.Router.Handle(router.KindGetWalletState, c.handleGetWalletState)
	c.Router.Handle(router.KindUnlockWallet, c.handleUnlockWallet)
	c.Router.Handle(router.KindLockWallet, c.handleLockWallet)
	c.Router.Handle(router.KindRevealSeed, c.handleRevealSeed)
	c.Router.Handle(router.KindGetBalance, c.handleGetBalance)
	c.Router.Handle(router.KindGetHistory, c.handleGetHistory)
	c.Router.Handle(router.KindGetUtxos, c.handleGetUtxos)
	c.Router.Handle(router.KindMaxSendableUtxo, c.handleMaxSendableUtxo)
	c.Router.Handle(router.KindSendTx, c.handleSendTx)
	c.Router.Handle(router.KindGrinCreateSend, c.handleGrinCreateSend)
	c.Router.Handle(router.KindGrinFinalize, c.handleGrinFinalize)
	c.Router.Handle(router.KindGrinCancelSend, c.handleGrinCancelSend)
	c.Router.Handle(router.KindCreateSocialTip, c.handleCreateSocialTip)
	c.Router.Handle(router.KindClaimSocialTip, c.handleClaimSocialTip)
	c.Router.Handle(router.KindClawbackSocialTip, c.handleClawbackSocialTip)
}

func (c *CoreState) handleGetWalletState(ctx context.Context, req router.Request) (interface{}, error) {
	settings := c.Settings()
	return WalletStateResponse{
		Unlocked: c.Vault.IsUnlocked(),
		Theme:    string(settings.Theme),
		AutoLock: settings.AutoLockMinutes,
	}, nil
}

func (c *CoreState) handleUnlockWallet(ctx context.Context, req router.Request) (interface{}, error) {
	r := req.(UnlockWalletRequest)
	if err := c.Vault.Unlock(r.Password); err != nil {
		return nil, err
	}
	return nil, nil
}

func (c *CoreState) handleLockWallet(ctx context.Context, req router.Request) (interface{}, error) {
	c.Vault.Lock()
	c.mu.Lock()
	c.grinWallet = nil
	c.mu.Unlock()
	return nil, nil
}

func (c *CoreState) handleRevealSeed(ctx context.Context, req router.Request) (interface{}, error) {
	r := req.(RevealSeedRequest)
	return c.Vault.RevealSeed(r.Password)
}

func (c *CoreState) handleGetBalance(ctx context.Context, req router.Request) (interface{}, error) {
	r := req.(GetBalanceRequest)
	return c.pendingTxLedger.PendingOutgoingSum(r.Asset), nil
}

func (c *CoreState) handleGetHistory(ctx context.Context, req router.Request) (interface{}, error) {
	r := req.(GetHistoryRequest)
	if c.electrum == nil {
		return nil, walleterr.New(walleterr.KindInvalidInput, "core.GetHistory/not_configured")
	}
	return c.electrum.GetHistory(ctx, r.Asset, r.Address)
}

func (c *CoreState) handleGetUtxos(ctx context.Context, req router.Request) (interface{}, error) {
	r := req.(GetUtxosRequest)
	if c.electrum == nil {
		return nil, walleterr.New(walleterr.KindInvalidInput, "core.GetUtxos/not_configured")
	}
	return c.electrum.GetUTXOs(ctx, r.Asset, r.Address)
}

func (c *CoreState) handleMaxSendableUtxo(ctx context.Context, req router.Request) (interface{}, error) {
	r := req.(MaxSendableUtxoRequest)
	if c.electrum == nil {
		return nil, walleterr.New(walleterr.KindInvalidInput, "core.MaxSendableUtxo/not_configured")
	}
	utxos, err := c.electrum.GetUTXOs(ctx, r.Asset, r.Address)
	if err != nil {
		return nil, walleterr.RemoteFailure("core.MaxSendableUtxo/get_utxos", err)
	}
	return utxoengine.MaxSendable(utxos, r.FeeRate), nil
}

// scalarFor returns the asset's private scalar from the unlocked key
// bundle, the one piece of wiring every send-side handler needs.
func scalarFor(keys keyderiv.AllKeys, asset string) ([]byte, error) {
	switch asset {
	case "btc":
		return keys.BTC.Scalar[:], nil
	case "ltc":
		return keys.LTC.Scalar[:], nil
	default:
		return nil, walleterr.New(walleterr.KindInvalidInput, "core.scalarFor/unsupported_asset")
	}
}

func (c *CoreState) handleSendTx(ctx context.Context, req router.Request) (interface{}, error) {
	r := req.(SendTxRequest)
	if c.electrum == nil {
		return nil, walleterr.New(walleterr.KindInvalidInput, "core.SendTx/not_configured")
	}
	keys, err := c.Vault.Keys()
	if err != nil {
		return nil, err
	}
	scalar, err := scalarFor(keys, r.Asset)
	if err != nil {
		return nil, err
	}
	utxos, err := c.electrum.GetUTXOs(ctx, r.Asset, r.Address)
	if err != nil {
		return nil, walleterr.RemoteFailure("core.SendTx/get_utxos", err)
	}

	result, err := utxoengine.BuildAndSign(utxoengine.BuildAndSignParams{
		UTXOs:         utxos,
		RecipientAddr: r.Recipient,
		Amount:        r.Amount,
		ChangeAddr:    r.Address,
		PrivKey:       scalar,
		FeeRate:       r.FeeRate,
		Sweep:         r.Sweep,
	})
	if err != nil {
		return nil, err
	}

	txHash, err := c.electrum.Broadcast(ctx, r.Asset, result.TxHex)
	if err != nil {
		return nil, walleterr.BroadcastFailed("core.SendTx/broadcast", err)
	}

	c.pendingTxLedger.Add(pendingtx.Tx{
		TxHash:    txHash,
		Asset:     r.Asset,
		Amount:    uint64(result.ActualAmount),
		Timestamp: time.Now(),
	})
	return txHash, nil
}

func (c *CoreState) handleGrinCreateSend(ctx context.Context, req router.Request) (interface{}, error) {
	r := req.(GrinCreateSendRequest)
	c.mu.Lock()
	wallet, err := c.grinWalletLocked()
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	slateID := r.SlateID
	if slateID == "" {
		generated, err := mimblewimble.NewSlateID()
		if err != nil {
			return nil, walleterr.Wrap(walleterr.KindInvalidInput, "core.GrinCreateSend/slate_id", err)
		}
		slateID = generated
	}

	slatepack, sendCtx, err := wallet.CreateSend(ctx, "grin", r.Amount, r.Fee, r.LockHeight, slateID)
	if err != nil {
		return nil, err
	}
	return GrinCreateSendResponse{Slatepack: slatepack, Context: sendCtx}, nil
}

func (c *CoreState) handleGrinFinalize(ctx context.Context, req router.Request) (interface{}, error) {
	r := req.(GrinFinalizeRequest)
	c.mu.Lock()
	wallet, err := c.grinWalletLocked()
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return wallet.FinalizeAndBroadcast(ctx, r.Slatepack, r.Context)
}

func (c *CoreState) handleGrinCancelSend(ctx context.Context, req router.Request) (interface{}, error) {
	r := req.(GrinCancelSendRequest)
	c.mu.Lock()
	wallet, err := c.grinWalletLocked()
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return nil, wallet.CancelSend(ctx, r.Context)
}

func (c *CoreState) handleCreateSocialTip(ctx context.Context, req router.Request) (interface{}, error) {
	r := req.(CreateSocialTipRequest)
	if c.tipBackend == nil {
		return nil, walleterr.New(walleterr.KindInvalidInput, "core.CreateSocialTip/not_configured")
	}
	return tipescrow.CreateTip(ctx, c.tipBackend, c.tipFunder(), r.Params)
}

func (c *CoreState) handleClaimSocialTip(ctx context.Context, req router.Request) (interface{}, error) {
	r := req.(ClaimSocialTipRequest)
	if c.tipBackend == nil {
		return nil, walleterr.New(walleterr.KindInvalidInput, "core.ClaimSocialTip/not_configured")
	}
	return tipescrow.ClaimTip(ctx, c.tipBackend, c.tipSweeper(), r.Asset, r.TipID, r.RecipientScalar, r.RecipientAddress)
}

func (c *CoreState) handleClawbackSocialTip(ctx context.Context, req router.Request) (interface{}, error) {
	r := req.(ClawbackSocialTipRequest)
	if c.tipBackend == nil {
		return nil, walleterr.New(walleterr.KindInvalidInput, "core.ClawbackSocialTip/not_configured")
	}
	return tipescrow.Clawback(ctx, c.tipBackend, c.tipSweeper(), r.Tip, r.SenderScalar, r.SenderAddress)
}

// tipFunder and tipSweeper are satisfied directly by CoreState: funding
// and sweeping a tip address reuse the same Electrum/light-wallet
// collaborators the ordinary send path uses, keyed by asset.
func (c *CoreState) tipFunder() tipescrow.Funder  { return tipAdapter{c} }
func (c *CoreState) tipSweeper() tipescrow.Sweeper { return tipAdapter{c} }

type tipAdapter struct{ c *CoreState }

func (a tipAdapter) Fund(ctx context.Context, asset, tipAddress string, amount uint64) (string, error) {
	keys, err := a.c.Vault.Keys()
	if err != nil {
		return "", err
	}
	switch asset {
	case "btc", "ltc":
		if a.c.electrum == nil {
			return "", walleterr.New(walleterr.KindInvalidInput, "core.tipFund/not_configured")
		}
		scalar, err := scalarFor(keys, asset)
		if err != nil {
			return "", err
		}
		addr, err := ownAddress(keys, asset)
		if err != nil {
			return "", err
		}
		utxos, err := a.c.electrum.GetUTXOs(ctx, asset, addr)
		if err != nil {
			return "", walleterr.RemoteFailure("core.tipFund/get_utxos", err)
		}
		result, err := utxoengine.BuildAndSign(utxoengine.BuildAndSignParams{
			UTXOs:         utxos,
			RecipientAddr: tipAddress,
			Amount:        int64(amount),
			ChangeAddr:    addr,
			PrivKey:       scalar,
			FeeRate:       1,
		})
		if err != nil {
			return "", err
		}
		return a.c.electrum.Broadcast(ctx, asset, result.TxHex)

	case "xmr", "wow":
		if a.c.lightWallet == nil || a.c.ringSigner == nil {
			return "", walleterr.New(walleterr.KindInvalidInput, "core.tipFund/not_configured")
		}
		spend, view := cryptoNoteScalars(keys, asset)
		ownAddr, err := cryptonote.Address(asset, spend, view)
		if err != nil {
			return "", err
		}
		result, err := cryptonote.Send(ctx, a.c.lightWallet, a.c.ringSigner, a.c.pendingTxLedger, a.c.markKeyImageSpent, cryptonote.SendParams{
			Coin:        asset,
			Address:     ownAddr,
			Recipient:   tipAddress,
			Amount:      amount,
			ViewScalar:  view,
			SpendScalar: spend,
			RecentlySpent: a.c.RecentlySpentKeyImages(),
		})
		if err != nil {
			return "", err
		}
		return result.TxHash, nil

	default:
		return "", walleterr.New(walleterr.KindInvalidInput, "core.tipFund/unsupported_asset")
	}
}

func (a tipAdapter) Sweep(ctx context.Context, asset string, tipScalar [32]byte, destinationAddress string) (string, error) {
	switch asset {
	case "btc", "ltc":
		if a.c.electrum == nil {
			return "", walleterr.New(walleterr.KindInvalidInput, "core.tipSweep/not_configured")
		}
		pub, err := tipPubKey(tipScalar)
		if err != nil {
			return "", err
		}
		tipAddress, err := tipAddressFor(asset, pub)
		if err != nil {
			return "", err
		}
		utxos, err := a.c.electrum.GetUTXOs(ctx, asset, tipAddress)
		if err != nil {
			return "", walleterr.RemoteFailure("core.tipSweep/get_utxos", err)
		}
		if len(utxos) == 0 {
			return "", tipescrow.ErrNoFunds
		}
		result, err := utxoengine.BuildAndSign(utxoengine.BuildAndSignParams{
			UTXOs:         utxos,
			RecipientAddr: destinationAddress,
			ChangeAddr:    destinationAddress,
			PrivKey:       tipScalar[:],
			FeeRate:       1,
			Sweep:         true,
		})
		if err != nil {
			return "", err
		}
		return a.c.electrum.Broadcast(ctx, asset, result.TxHex)

	case "xmr", "wow":
		if a.c.lightWallet == nil || a.c.ringSigner == nil {
			return "", walleterr.New(walleterr.KindInvalidInput, "core.tipSweep/not_configured")
		}
		// The tip's spend scalar is tipScalar itself (GenerateTipKeypair
		// mints it the same way); its view scalar is re-derived rather
		// than stored, per spec §4.8's H_s(spend_scalar). The resulting
		// keypair is a standalone CryptoNote account distinct from the
		// wallet's own — this sub-scan never touches the wallet's own
		// spend/view scalars.
		tipView := cryptonote.TipViewScalar(tipScalar)
		tipAddr, err := cryptonote.Address(asset, tipScalar, tipView)
		if err != nil {
			return "", err
		}
		result, err := cryptonote.Send(ctx, a.c.lightWallet, a.c.ringSigner, a.c.pendingTxLedger, a.c.markKeyImageSpent, cryptonote.SendParams{
			Coin:        asset,
			Address:     tipAddr,
			Recipient:   destinationAddress,
			Sweep:       true,
			ViewScalar:  tipView,
			SpendScalar: tipScalar,
			RecentlySpent: a.c.RecentlySpentKeyImages(),
		})
		if err != nil {
			if walleterr.Is(err, walleterr.KindInsufficientFunds) {
				return "", tipescrow.ErrNoFunds
			}
			return "", err
		}
		return result.TxHash, nil

	default:
		return "", walleterr.New(walleterr.KindInvalidInput, "core.tipSweep/unsupported_asset")
	}
}
