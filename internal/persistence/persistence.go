// Package persistence is the wallet core's flat at-rest key-value store:
// one opaque blob per top-level state key (spec §6), backed by LevelDB the
// same way the teacher's node persists chain state.
package persistence

import (
	"errors"

	"github.com/btcsuite/btclog"
	"github.com/syndtr/goleveldb/leveldb"
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

// ErrNotFound is returned by Get when key has no stored value.
var ErrNotFound = errors.New("persistence: key not found")

// The fixed set of top-level state keys spec §6 names. Each is an opaque
// JSON or CBOR blob as far as this package is concerned.
const (
	KeyWalletState        = "walletState"
	KeyAuthState          = "authState"
	KeyOnboardingState    = "onboardingState"
	KeyGrinPendingReceive = "grinPendingReceive"
	KeyGrinPendingInvoice = "grinPendingInvoice"
	KeyConnectedSites     = "connectedSites"
	KeyPendingSocialTips  = "pendingSocialTips"
)

// Session-scoped keys: cleared on browser close rather than persisted
// indefinitely, per spec §6.
const (
	KeySessionPendingTxs = "smirk_pending_txs"
	KeySessionKeys       = "smirk_session_keys"
)

// Store is the flat key-value persistence contract the rest of the wallet
// core depends on. Both the LevelDB-backed implementation and an in-memory
// fake (for tests and the session-scoped keys) satisfy it.
type Store interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
	Has(key string) (bool, error)
}

// LevelDBStore persists every non-session-scoped key to an on-disk LevelDB
// database, grounded on the teacher's use of
// github.com/syndtr/goleveldb for on-disk chain state.
type LevelDBStore struct {
	db *leveldb.DB
}

// OpenLevelDBStore opens (or creates) the LevelDB database at path.
func OpenLevelDBStore(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDBStore{db: db}, nil
}

func (s *LevelDBStore) Get(key string) ([]byte, error) {
	value, err := s.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *LevelDBStore) Put(key string, value []byte) error {
	return s.db.Put([]byte(key), value, nil)
}

func (s *LevelDBStore) Delete(key string) error {
	return s.db.Delete([]byte(key), nil)
}

func (s *LevelDBStore) Has(key string) (bool, error) {
	return s.db.Has([]byte(key), nil)
}

// Close releases the underlying database handle.
func (s *LevelDBStore) Close() error {
	return s.db.Close()
}

// MemoryStore is a process-lifetime-only Store, used for the two
// session-scoped keys (spec §6: cleared on browser close, never written to
// disk) and for tests.
type MemoryStore struct {
	data map[string][]byte
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Get(key string) ([]byte, error) {
	v, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (s *MemoryStore) Put(key string, value []byte) error {
	s.data[key] = value
	return nil
}

func (s *MemoryStore) Delete(key string) error {
	delete(s.data, key)
	return nil
}

func (s *MemoryStore) Has(key string) (bool, error) {
	_, ok := s.data[key]
	return ok, nil
}

// Clear empties the store, used when the session ends (browser close
// equivalent) to drop smirk_pending_txs/smirk_session_keys.
func (s *MemoryStore) Clear() {
	s.data = make(map[string][]byte)
}
