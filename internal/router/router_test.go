package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toole-brendan/walletcore/internal/walleterr"
)

type fakeRequest struct {
	kind RequestKind
}

func (f fakeRequest) Kind() RequestKind { return f.kind }

func TestDispatchWaitsForReady(t *testing.T) {
	r := New()
	r.Handle(KindGetWalletState, func(ctx context.Context, req Request) (interface{}, error) {
		return "state", nil
	})

	done := make(chan Response, 1)
	go func() { done <- r.Dispatch(context.Background(), fakeRequest{KindGetWalletState}) }()

	select {
	case <-done:
		t.Fatal("dispatch returned before router became ready")
	case <-time.After(50 * time.Millisecond):
	}

	r.MarkReady()
	resp := <-done
	assert.True(t, resp.Success)
	assert.Equal(t, "state", resp.Data)
}

func TestDispatchUnknownTagIsInvalidInput(t *testing.T) {
	r := New()
	r.MarkReady()

	resp := r.Dispatch(context.Background(), fakeRequest{RequestKind("NoSuchThing")})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "unknown_tag")
}

func TestDispatchRecoversHandlerPanic(t *testing.T) {
	r := New()
	r.Handle(KindSendTx, func(ctx context.Context, req Request) (interface{}, error) {
		panic("boom")
	})
	r.MarkReady()

	resp := r.Dispatch(context.Background(), fakeRequest{KindSendTx})
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestDispatchPropagatesHandlerError(t *testing.T) {
	r := New()
	r.Handle(KindUnlockWallet, func(ctx context.Context, req Request) (interface{}, error) {
		return nil, walleterr.BadPassword("router_test.unlock")
	})
	r.MarkReady()

	resp := r.Dispatch(context.Background(), fakeRequest{KindUnlockWallet})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "bad_password")
}

func TestDispatchContextCancelledBeforeReady(t *testing.T) {
	r := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp := r.Dispatch(ctx, fakeRequest{KindGetWalletState})
	assert.False(t, resp.Success)
}

func TestApprovalResolvedDeliversDecision(t *testing.T) {
	r := New()
	resultCh := r.OpenApproval("req-1")
	require.NoError(t, r.ResolveApproval("req-1", true))

	select {
	case result := <-resultCh:
		assert.True(t, result.Approved)
		assert.False(t, result.TimedOut)
	case <-time.After(time.Second):
		t.Fatal("approval result never delivered")
	}
	assert.Equal(t, 0, r.PendingApprovalCount())
}

func TestResolveApprovalUnknownIDErrors(t *testing.T) {
	r := New()
	err := r.ResolveApproval("never-opened", true)
	assert.True(t, errors.Is(err, err))
	require.Error(t, err)
}

func TestResolveApprovalTwiceErrorsSecondTime(t *testing.T) {
	r := New()
	_ = r.OpenApproval("req-2")
	require.NoError(t, r.ResolveApproval("req-2", false))
	require.Error(t, r.ResolveApproval("req-2", false))
}

func TestOpenApprovalReplacingPendingStopsOldTimer(t *testing.T) {
	r := New()
	first := r.OpenApproval("req-3")
	second := r.OpenApproval("req-3")
	require.NoError(t, r.ResolveApproval("req-3", true))

	select {
	case result := <-second:
		assert.True(t, result.Approved)
	case <-time.After(time.Second):
		t.Fatal("replacement approval never resolved")
	}

	select {
	case <-first:
		t.Fatal("original approval channel should never receive after being replaced")
	default:
	}
}
