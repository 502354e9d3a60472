package pendingtx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(fakeNow *time.Time) *Ledger {
	l := NewLedger()
	l.now = func() time.Time { return *fakeNow }
	return l
}

func TestAddListRemoveRoundTrip(t *testing.T) {
	now := time.Now()
	l := newTestLedger(&now)

	l.Add(Tx{TxHash: "abc", Asset: "xmr", Amount: 100, Fee: 1, Timestamp: now})
	entries := l.List("xmr")
	require.Len(t, entries, 1)
	assert.Equal(t, "abc", entries[0].TxHash)

	l.Remove("abc")
	assert.Empty(t, l.List("xmr"))
}

func TestListFiltersByAsset(t *testing.T) {
	now := time.Now()
	l := newTestLedger(&now)

	l.Add(Tx{TxHash: "a", Asset: "xmr", Amount: 10, Timestamp: now})
	l.Add(Tx{TxHash: "b", Asset: "wow", Amount: 20, Timestamp: now})

	assert.Len(t, l.List("xmr"), 1)
	assert.Len(t, l.List("wow"), 1)
	assert.Empty(t, l.List("grin"))
}

func TestPendingOutgoingSumAccumulatesPerAsset(t *testing.T) {
	now := time.Now()
	l := newTestLedger(&now)

	l.Add(Tx{TxHash: "a", Asset: "xmr", Amount: 10, Timestamp: now})
	l.Add(Tx{TxHash: "b", Asset: "xmr", Amount: 25, Timestamp: now})
	l.Add(Tx{TxHash: "c", Asset: "wow", Amount: 999, Timestamp: now})

	assert.Equal(t, uint64(35), l.PendingOutgoingSum("xmr"))
	assert.Equal(t, uint64(999), l.PendingOutgoingSum("wow"))
}

func TestXMREntryExpiresAfterThirtyMinutes(t *testing.T) {
	now := time.Now()
	l := newTestLedger(&now)
	l.Add(Tx{TxHash: "a", Asset: "xmr", Amount: 10, Timestamp: now})

	now = now.Add(29 * time.Minute)
	assert.Len(t, l.List("xmr"), 1)

	now = now.Add(2 * time.Minute)
	assert.Empty(t, l.List("xmr"))
}

func TestWOWEntryExpiresAfterFiveMinutes(t *testing.T) {
	now := time.Now()
	l := newTestLedger(&now)
	l.Add(Tx{TxHash: "a", Asset: "wow", Amount: 10, Timestamp: now})

	now = now.Add(4 * time.Minute)
	assert.Len(t, l.List("wow"), 1)

	now = now.Add(2 * time.Minute)
	assert.Empty(t, l.List("wow"))
}

func TestUTXOEntryExpiresImmediately(t *testing.T) {
	now := time.Now()
	l := newTestLedger(&now)
	l.Add(Tx{TxHash: "a", Asset: "btc", Amount: 10, Timestamp: now})

	assert.Empty(t, l.List("btc"))
}

func TestUnknownAssetDefaultsToThirtyMinuteThreshold(t *testing.T) {
	now := time.Now()
	l := newTestLedger(&now)
	l.Add(Tx{TxHash: "a", Asset: "grin", Amount: 10, Timestamp: now})

	now = now.Add(29 * time.Minute)
	assert.Len(t, l.List("grin"), 1)

	now = now.Add(2 * time.Minute)
	assert.Empty(t, l.List("grin"))
}
