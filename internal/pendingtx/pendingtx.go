// Package pendingtx is the wallet core's pending-transaction ledger (spec
// §4.4): outgoing transactions recently broadcast but not yet surfaced by
// the underlying chain service, kept so balance reporting can subtract
// them. Entries carry no key images; CryptoNote's recently-spent key
// images are tracked separately by the core. Shaped
// on the teacher's settlement/swaps SwapManager: a map keyed by id with
// Add/Get/List/Cleanup and TTL-based expiry.
package pendingtx

import (
	"sync"
	"time"

	"github.com/btcsuite/btclog"
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

// Tx is spec §4.4's PendingTx: an outgoing transaction this wallet
// broadcast whose confirmation the underlying chain service has not yet
// surfaced.
type Tx struct {
	TxHash    string
	Asset     string
	Amount    uint64
	Fee       uint64
	Timestamp time.Time
}

// ageThreshold is the per-asset TTL after which a pending entry is
// dropped from list()'s lazy cleanup, per spec §4.4. UTXO chains (BTC,
// LTC) have immediate mempool visibility, so their threshold is zero:
// any entry is stale as soon as it is read.
var ageThreshold = map[string]time.Duration{
	"xmr": 30 * time.Minute,
	"wow": 5 * time.Minute,
	"btc": 0,
	"ltc": 0,
}

// defaultAgeThreshold is used for an asset absent from ageThreshold (spec
// §4.4: "undefined defaults to 30 min").
const defaultAgeThreshold = 30 * time.Minute

func thresholdFor(asset string) time.Duration {
	if d, ok := ageThreshold[asset]; ok {
		return d
	}
	return defaultAgeThreshold
}

// Ledger is the process-lifetime pending-tx store. now is overridable so
// tests can exercise TTL expiry deterministically without sleeping.
type Ledger struct {
	mu   sync.Mutex
	txs  map[string]Tx
	now  func() time.Time
}

// NewLedger returns an empty ledger using the wall clock.
func NewLedger() *Ledger {
	return &Ledger{
		txs: make(map[string]Tx),
		now: time.Now,
	}
}

// Add records a freshly broadcast transaction, per spec §4.4: "added on
// broadcast". Re-adding an existing hash overwrites it.
func (l *Ledger) Add(tx Tx) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.txs[tx.TxHash] = tx
}

// Remove drops a pending entry once the underlying chain service
// confirms it, or the broadcast failed and must be retried.
func (l *Ledger) Remove(txHash string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.txs, txHash)
}

// List returns every live pending entry for asset, running the lazy
// per-asset TTL cleanup spec §4.4 mandates on every read.
func (l *Ledger) List(asset string) []Tx {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cleanupLocked(asset)

	var out []Tx
	for _, tx := range l.txs {
		if tx.Asset == asset {
			out = append(out, tx)
		}
	}
	return out
}

// PendingOutgoingSum returns the total amount of asset currently in
// flight, used by balance reporting to subtract outgoing atoms the chain
// service has not yet surfaced.
func (l *Ledger) PendingOutgoingSum(asset string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cleanupLocked(asset)

	var sum uint64
	for _, tx := range l.txs {
		if tx.Asset == asset {
			sum += tx.Amount
		}
	}
	return sum
}

// cleanupLocked drops every entry for asset older than its TTL. Callers
// must hold l.mu.
func (l *Ledger) cleanupLocked(asset string) {
	threshold := thresholdFor(asset)
	now := l.now()
	for hash, tx := range l.txs {
		if tx.Asset != asset {
			continue
		}
		if now.Sub(tx.Timestamp) >= threshold {
			log.Debugf("pendingtx: expiring %s (%s, age threshold %s)", hash, asset, threshold)
			delete(l.txs, hash)
		}
	}
}
