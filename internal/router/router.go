// Package router implements spec §4.9's message dispatch: a single
// synchronous entry point from a tagged request enum to handlers, gated
// on a one-shot initialization future, with unknown tags and handler
// panics alike translated into a structured {success:false, error}
// response rather than propagating out. Grounded on internal/vault's
// Ready() one-shot-future pattern, generalized from "wallet session
// restored" to "core fully initialized".
package router

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btclog"

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

// approvalTimeout is spec §5's fixed five-minute popup timeout.
const approvalTimeout = 5 * time.Minute

// RequestKind tags a Request the way spec §6's message enum groups do
// (illustrative, not exhaustive — every group spec §6 names has at least
// one representative variant here).
type RequestKind string

const (
	KindGetWalletState    RequestKind = "GetWalletState"
	KindUnlockWallet      RequestKind = "UnlockWallet"
	KindLockWallet        RequestKind = "LockWallet"
	KindRevealSeed        RequestKind = "RevealSeed"
	KindGetBalance        RequestKind = "GetBalance"
	KindGetHistory        RequestKind = "GetHistory"
	KindGetUtxos          RequestKind = "GetUtxos"
	KindSendTx            RequestKind = "SendTx"
	KindMaxSendableUtxo   RequestKind = "MaxSendableUtxo"
	KindGrinCreateSend    RequestKind = "GrinCreateSend"
	KindGrinFinalize      RequestKind = "GrinFinalizeAndBroadcast"
	KindGrinCancelSend    RequestKind = "GrinCancelSend"
	KindCreateSocialTip   RequestKind = "CreateSocialTip"
	KindClaimSocialTip    RequestKind = "ClaimSocialTip"
	KindClawbackSocialTip RequestKind = "ClawbackSocialTip"
)

// Request is any tagged message the router can dispatch. Concrete request
// types (UnlockWalletRequest, SendTxRequest, ...) are defined by the
// caller's own operation packages; router only needs the Kind tag to find
// a handler.
type Request interface {
	Kind() RequestKind
}

// Response is spec §6's uniform handler result shape.
type Response struct {
	Success bool
	Data    interface{}
	Error   string
}

func errorResponse(err error) Response {
	return Response{Success: false, Error: err.Error()}
}

func dataResponse(data interface{}) Response {
	return Response{Success: true, Data: data}
}

// Handler processes one Request and returns the data payload for a
// success response, or an error (ideally a *walleterr.Error) for a
// failure response.
type Handler func(ctx context.Context, req Request) (interface{}, error)

// ApprovalResult is what a pending approval popup resolves to: either the
// user's answer or a timeout.
type ApprovalResult struct {
	Approved bool
	TimedOut bool
}

type pendingApproval struct {
	resultCh chan ApprovalResult
	timer    *time.Timer
	resolved bool
}

// Router dispatches tagged requests to handlers once the core has
// finished initializing, and separately tracks in-flight approval popups
// per spec §5's pendingApprovals map.
type Router struct {
	mu       sync.Mutex
	handlers map[RequestKind]Handler

	ready     chan struct{}
	readyOnce sync.Once

	approvalsMu sync.Mutex
	approvals   map[string]*pendingApproval
}

// New constructs a Router with no handlers registered and its
// initialization future unresolved; call MarkReady once the embedding
// core has finished restoring session state.
func New() *Router {
	return &Router{
		handlers:  make(map[RequestKind]Handler),
		ready:     make(chan struct{}),
		approvals: make(map[string]*pendingApproval),
	}
}

// Handle registers the handler for kind, overwriting any prior
// registration — used once at core construction time, not per-request.
func (r *Router) Handle(kind RequestKind, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = h
}

// MarkReady closes the initialization future; safe to call more than
// once (only the first call has effect).
func (r *Router) MarkReady() {
	r.readyOnce.Do(func() { close(r.ready) })
}

// Ready returns a channel that is closed once MarkReady has run.
func (r *Router) Ready() <-chan struct{} {
	return r.ready
}

// Dispatch implements spec §4.9's contract: wait for the initialization
// future (or ctx cancellation), recover any handler panic into a
// structured error response, reject an unknown tag as InvalidInput, and
// never let a handler failure escape as anything but a Response.
func (r *Router) Dispatch(ctx context.Context, req Request) (resp Response) {
	select {
	case <-r.ready:
	case <-ctx.Done():
		return errorResponse(walleterr.New(walleterr.KindRemoteFailure, "router.Dispatch/context_cancelled"))
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf("router: handler for %s panicked: %v", req.Kind(), rec)
			resp = errorResponse(walleterr.New(walleterr.KindInvalidInput, fmt.Sprintf("router.Dispatch/%s/panic", req.Kind())))
		}
	}()

	r.mu.Lock()
	h, ok := r.handlers[req.Kind()]
	r.mu.Unlock()
	if !ok {
		return errorResponse(walleterr.New(walleterr.KindInvalidInput, fmt.Sprintf("router.Dispatch/%s/unknown_tag", req.Kind())))
	}

	data, err := h(ctx, req)
	if err != nil {
		return errorResponse(err)
	}
	return dataResponse(data)
}

// OpenApproval registers a new pending approval popup for id (spec §5:
// "written when an approval popup is opened") and arms its five-minute
// timeout. Calling OpenApproval again for an id still pending replaces
// the earlier entry, cancelling its timer.
func (r *Router) OpenApproval(id string) <-chan ApprovalResult {
	r.approvalsMu.Lock()
	defer r.approvalsMu.Unlock()

	if existing, ok := r.approvals[id]; ok {
		existing.timer.Stop()
	}

	p := &pendingApproval{resultCh: make(chan ApprovalResult, 1)}
	p.timer = time.AfterFunc(approvalTimeout, func() { r.timeoutApproval(id) })
	r.approvals[id] = p
	return p.resultCh
}

// ResolveApproval implements spec §5's "consumed when the user answers":
// delivers the user's decision to the waiting continuation and clears
// the entry. Resolving an id with no pending approval (already answered,
// timed out, or never opened) is a no-op error rather than a panic.
func (r *Router) ResolveApproval(id string, approved bool) error {
	r.approvalsMu.Lock()
	defer r.approvalsMu.Unlock()

	p, ok := r.approvals[id]
	if !ok || p.resolved {
		return walleterr.New(walleterr.KindInvalidInput, "router.ResolveApproval/no_pending_approval")
	}
	p.resolved = true
	p.timer.Stop()
	delete(r.approvals, id)
	p.resultCh <- ApprovalResult{Approved: approved}
	return nil
}

// timeoutApproval implements spec §5/§209's "a timeout on the approval
// popup (5 min) resolves the waiting continuation with TimedOut".
func (r *Router) timeoutApproval(id string) {
	r.approvalsMu.Lock()
	defer r.approvalsMu.Unlock()

	p, ok := r.approvals[id]
	if !ok || p.resolved {
		return
	}
	p.resolved = true
	delete(r.approvals, id)
	p.resultCh <- ApprovalResult{TimedOut: true}
}

// PendingApprovalCount reports how many approvals are currently open;
// exposed for CoreState.Dump() debugging (spec §9).
func (r *Router) PendingApprovalCount() int {
	r.approvalsMu.Lock()
	defer r.approvalsMu.Unlock()
	return len(r.approvals)
}
