package mimblewimble

import "context"

// OutputStatus is a Grin output's lifecycle state, per spec §3.
type OutputStatus string

const (
	OutputUnconfirmed OutputStatus = "unconfirmed"
	OutputUnspent     OutputStatus = "unspent"
	OutputLocked      OutputStatus = "locked"
	OutputSpent       OutputStatus = "spent"
)

// Output is spec §3's Grin output record. NChild is the BIP32-style child
// index this wallet derived the output's blinding factor from
// (DeriveBlindingFactor); reusing an NChild across two outputs would
// produce a duplicate Pedersen commitment the network rejects, so the
// back-end's next_child_index is the sole authority for which indices are
// free (spec §4.7).
type Output struct {
	ID          string
	KeyID       string
	NChild      uint32
	Amount      uint64
	Commitment  []byte
	IsCoinbase  bool
	BlockHeight uint64
	Status      OutputStatus
}

// TxStatus is a Grin transaction row's lifecycle state, per spec §4.7's
// balance formula.
type TxStatus string

const (
	TxPending    TxStatus = "pending"
	TxSigned     TxStatus = "signed"
	TxFinalized  TxStatus = "finalized"
	TxConfirmed  TxStatus = "confirmed"
	TxCancelled  TxStatus = "cancelled"
)

// TxRecord is one row of this wallet's Grin transaction history, tracked
// by the application backend (spec §6: record_transaction/
// update_transaction) and consulted by Balance.
type TxRecord struct {
	SlateID string
	Amount  uint64
	Fee     uint64
	Status  TxStatus
}

// Backend is the application backend's Grin output ledger contract (spec
// §6): the authoritative source of next_child_index and the place every
// output/transaction status transition is recorded, so two wallet
// instances sharing a seed never collide on a child index or disagree
// about which outputs are already locked.
type Backend interface {
	// GetOutputs returns every output this wallet currently knows about
	// plus the next unused child index, the monotonic source spec §4.7
	// requires callers to treat as authoritative.
	GetOutputs(ctx context.Context) ([]Output, uint32, error)
	LockOutputs(ctx context.Context, slateID string, outputIDs []string) error
	UnlockOutputs(ctx context.Context, slateID string) error
	SpendOutputs(ctx context.Context, slateID string) error
	RecordOutput(ctx context.Context, out Output) error
	RecordTransaction(ctx context.Context, tx TxRecord) error
	UpdateTransaction(ctx context.Context, slateID string, status TxStatus) error
	BroadcastGrinTx(ctx context.Context, tx *Transaction) (txHash string, err error)
}

// Balance computes the Grin balance: confirmed is the sum of every output
// whose status is unspent (the status of the transaction that created the
// output is not consulted); pending is the sum of transactions still in
// flight (pending, signed or finalized); total is their sum.
func Balance(outputs []Output, txs []TxRecord) (confirmed, pending, total uint64) {
	for _, o := range outputs {
		if o.Status == OutputUnspent {
			confirmed += o.Amount
		}
	}
	for _, tx := range txs {
		switch tx.Status {
		case TxPending, TxSigned, TxFinalized:
			pending += tx.Amount
		}
	}
	return confirmed, pending, confirmed + pending
}
