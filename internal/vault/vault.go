// Package vault implements the wallet core's key vault and session
// lifecycle (spec §4.3): deriving and encrypting keys at rest, the
// unlocked/locked state machine, auto-lock, and session-store restoration
// across process restarts — generalized from the teacher's
// covenants/vault's VaultTemplate/spending-policy pattern to a
// password-gated key-unlock policy.
package vault

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/toole-brendan/walletcore/internal/keyderiv"
	"github.com/toole-brendan/walletcore/internal/persistence"
	"github.com/toole-brendan/walletcore/internal/primitives"
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

// minAutoLockMinutes is the clamp floor for a nonzero autoLockMinutes
// setting, per spec §4.3 ("minimum 1 min, 0 means disabled").
const minAutoLockMinutes = 1

// encryptedKeyBundle is the at-rest shape of every chain's private scalar,
// each independently AEAD-sealed under the wallet's KEK. Grin may be absent
// in state persisted by an older version of this wallet; Unlock migrates it
// in forward-compatibly.
type encryptedKeyBundle struct {
	BTC      []byte `json:"btc"`
	LTC      []byte `json:"ltc"`
	XMRSpend []byte `json:"xmr_spend"`
	XMRView  []byte `json:"xmr_view"`
	WOWSpend []byte `json:"wow_spend"`
	WOWView  []byte `json:"wow_view"`
	Grin     []byte `json:"grin,omitempty"`
}

// walletState is the persisted shape of persistence.KeyWalletState.
type walletState struct {
	EncryptedMnemonic []byte             `json:"encrypted_mnemonic"`
	SeedSalt          []byte             `json:"seed_salt"`
	Keys              encryptedKeyBundle `json:"keys"`
	Birthday          int64              `json:"birthday"`
	AutoLockMinutes   int                `json:"auto_lock_minutes"`
}

// sessionState is what Vault writes to the process-scoped session store on
// every successful unlock, and reads back on restoration (spec §4.3's
// "session survival" contract).
type sessionState struct {
	Mnemonic string           `json:"mnemonic"`
	Keys     keyderiv.AllKeys `json:"keys"`
}

// Vault owns the wallet's encrypted-at-rest state and in-memory unlocked
// key maps, replacing the teacher's module-level mutable globals with an
// owned struct per spec §9's design note.
type Vault struct {
	mu sync.Mutex

	persistent persistence.Store
	session    persistence.Store

	unlocked bool
	mnemonic string
	keys     keyderiv.AllKeys

	autoLockMinutes int
	autoLockTimer   *time.Timer
	onAutoLock      func()

	ready     chan struct{}
	readyOnce sync.Once
}

// NewVault constructs a Vault over the given persistent and session-scoped
// stores. Restoration runs synchronously here (process startup is the only
// caller); Ready() is provided for callers that model it as an awaitable
// future per spec §4.3.
func NewVault(persistent, session persistence.Store) *Vault {
	v := &Vault{
		persistent: persistent,
		session:    session,
		ready:      make(chan struct{}),
	}
	v.restoreSession()
	v.readyOnce.Do(func() { close(v.ready) })
	return v
}

// Ready returns a channel that is closed once session restoration has
// finished. Spec §4.3: "incoming requests wait for it before proceeding to
// avoid seeing a falsely-locked wallet."
func (v *Vault) Ready() <-chan struct{} {
	return v.ready
}

// restoreSession repopulates the unlocked maps from the session store
// without requiring the password, if a session was persisted.
func (v *Vault) restoreSession() {
	raw, err := v.session.Get(persistence.KeySessionKeys)
	if err != nil {
		return
	}
	var sess sessionState
	if err := json.Unmarshal(raw, &sess); err != nil {
		log.Warnf("vault: discarding corrupt session state: %v", err)
		return
	}
	v.mnemonic = sess.Mnemonic
	v.keys = sess.Keys
	v.unlocked = true
}

// CreateWalletParams bundles create_wallet's inputs, per spec §4.3:
// a fresh mnemonic is generated if Mnemonic is empty. ConfirmedBackup is
// accepted but not stored or checked: neither the vault nor the router
// reads it.
type CreateWalletParams struct {
	Password        string
	Mnemonic        string
	ConfirmedBackup bool
	Birthday        int64
	AutoLockMinutes int
}

// CreateWallet implements spec §4.3's create_wallet: if mnemonic is empty, a
// fresh 24-word mnemonic is generated. Derives the KEK once, encrypts every
// private scalar plus the mnemonic under it, and persists the wallet state.
func (v *Vault) CreateWallet(params CreateWalletParams) ([]string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	password, mnemonic := params.Password, params.Mnemonic
	if mnemonic == "" {
		generated, err := primitives.GenerateMnemonic(256)
		if err != nil {
			return nil, walleterr.Wrap(walleterr.KindInvalidInput, "vault.CreateWallet", err)
		}
		mnemonic = generated
	} else if !primitives.ValidateMnemonic(mnemonic) {
		return nil, walleterr.InvalidInput("vault.CreateWallet", walleterr.New(walleterr.KindInvalidInput, "mnemonic checksum"))
	}

	keys, err := keyderiv.DeriveAllKeys(mnemonic, "")
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindInvalidInput, "vault.CreateWallet", err)
	}

	salt, err := primitives.NewSalt()
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindInvalidInput, "vault.CreateWallet", err)
	}
	kek := primitives.DeriveKEK(password, salt)

	encryptedMnemonic, err := primitives.Encrypt([]byte(mnemonic), kek)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindInvalidInput, "vault.CreateWallet", err)
	}
	bundle, err := encryptKeyBundle(keys, kek)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindInvalidInput, "vault.CreateWallet", err)
	}

	state := walletState{
		EncryptedMnemonic: encryptedMnemonic,
		SeedSalt:          salt,
		Keys:              bundle,
		Birthday:          params.Birthday,
		AutoLockMinutes:   clampAutoLockMinutes(params.AutoLockMinutes),
	}
	if err := v.persistState(state); err != nil {
		return nil, walleterr.Wrap(walleterr.KindInvalidInput, "vault.CreateWallet", err)
	}

	v.mnemonic = mnemonic
	v.keys = keys
	v.unlocked = true
	v.autoLockMinutes = state.AutoLockMinutes
	v.persistSessionLocked()
	v.armAutoLockLocked()

	return []string{"btc", "ltc", "xmr", "wow", "grin"}, nil
}

// Unlock implements spec §4.3's unlock: decrypts the mnemonic to verify the
// password, derives every scalar from it, and migrates a Grin key bundle
// in if one was never persisted. An unlock failure leaves every unlocked
// map empty.
func (v *Vault) Unlock(password string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	raw, err := v.persistent.Get(persistence.KeyWalletState)
	if err != nil {
		return walleterr.New(walleterr.KindMissingKey, "vault.Unlock")
	}
	var state walletState
	if err := json.Unmarshal(raw, &state); err != nil {
		return walleterr.Wrap(walleterr.KindInvalidInput, "vault.Unlock", err)
	}

	kek := primitives.DeriveKEK(password, state.SeedSalt)
	mnemonicBytes, err := primitives.Decrypt(state.EncryptedMnemonic, kek)
	if err != nil {
		v.clearUnlockedLocked()
		return walleterr.BadPassword("vault.Unlock")
	}
	mnemonic := string(mnemonicBytes)

	keys, err := keyderiv.DeriveAllKeys(mnemonic, "")
	if err != nil {
		v.clearUnlockedLocked()
		return walleterr.Wrap(walleterr.KindInvalidInput, "vault.Unlock", err)
	}

	if len(state.Keys.Grin) == 0 {
		log.Infof("vault: migrating missing Grin key bundle for existing wallet")
		migratedBundle, err := encryptKeyBundle(keys, kek)
		if err != nil {
			return walleterr.Wrap(walleterr.KindInvalidInput, "vault.Unlock", err)
		}
		state.Keys.Grin = migratedBundle.Grin
		if err := v.persistState(state); err != nil {
			return walleterr.Wrap(walleterr.KindInvalidInput, "vault.Unlock", err)
		}
	}

	v.mnemonic = mnemonic
	v.keys = keys
	v.unlocked = true
	v.autoLockMinutes = state.AutoLockMinutes
	v.persistSessionLocked()
	v.armAutoLockLocked()

	return nil
}

// Lock implements spec §4.3's lock(): clears all unlocked maps, the cached
// Mimblewimble wallet handle (owned by the caller; Lock only clears what it
// owns), and the session-persisted copy.
func (v *Vault) Lock() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.clearUnlockedLocked()
	_ = v.session.Delete(persistence.KeySessionKeys)
}

func (v *Vault) clearUnlockedLocked() {
	v.mnemonic = ""
	v.keys = keyderiv.AllKeys{}
	v.unlocked = false
	if v.autoLockTimer != nil {
		v.autoLockTimer.Stop()
		v.autoLockTimer = nil
	}
}

// RevealSeed implements spec §4.3's reveal_seed: requires the password even
// if unlocked, and never uses the in-memory mnemonic.
func (v *Vault) RevealSeed(password string) ([]string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	raw, err := v.persistent.Get(persistence.KeyWalletState)
	if err != nil {
		return nil, walleterr.New(walleterr.KindMissingKey, "vault.RevealSeed")
	}
	var state walletState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, walleterr.Wrap(walleterr.KindInvalidInput, "vault.RevealSeed", err)
	}

	kek := primitives.DeriveKEK(password, state.SeedSalt)
	mnemonicBytes, err := primitives.Decrypt(state.EncryptedMnemonic, kek)
	if err != nil {
		return nil, walleterr.BadPassword("vault.RevealSeed")
	}

	words := splitWords(string(mnemonicBytes))
	return words, nil
}

// IsUnlocked reports whether the vault currently holds decrypted keys.
func (v *Vault) IsUnlocked() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.unlocked
}

// Keys returns the currently unlocked key bundle, or KindLocked if the
// vault is locked.
func (v *Vault) Keys() (keyderiv.AllKeys, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.unlocked {
		return keyderiv.AllKeys{}, walleterr.Locked("vault.Keys")
	}
	return v.keys, nil
}

// ResetAutoLockTimer replaces the pending auto-lock alarm, per spec §4.3's
// reset_auto_lock_timer.
func (v *Vault) ResetAutoLockTimer() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.unlocked {
		return
	}
	v.armAutoLockLocked()
}

// SetOnAutoLock registers a callback invoked when the auto-lock alarm
// fires, after Lock() has already cleared the unlocked state — used by the
// embedding core to clear its own cached Mimblewimble wallet handle.
func (v *Vault) SetOnAutoLock(fn func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onAutoLock = fn
}

func (v *Vault) armAutoLockLocked() {
	if v.autoLockTimer != nil {
		v.autoLockTimer.Stop()
	}
	if v.autoLockMinutes <= 0 {
		v.autoLockTimer = nil
		return
	}
	duration := time.Duration(v.autoLockMinutes) * time.Minute
	v.autoLockTimer = time.AfterFunc(duration, v.fireAutoLock)
}

func (v *Vault) fireAutoLock() {
	v.Lock()
	v.mu.Lock()
	cb := v.onAutoLock
	v.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func (v *Vault) persistState(state walletState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return v.persistent.Put(persistence.KeyWalletState, raw)
}

func (v *Vault) persistSessionLocked() {
	sess := sessionState{Mnemonic: v.mnemonic, Keys: v.keys}
	raw, err := json.Marshal(sess)
	if err != nil {
		log.Errorf("vault: failed to marshal session state: %v", err)
		return
	}
	if err := v.session.Put(persistence.KeySessionKeys, raw); err != nil {
		log.Errorf("vault: failed to persist session state: %v", err)
	}
}

// encryptKeyBundle seals every chain's raw scalar independently under kek.
func encryptKeyBundle(keys keyderiv.AllKeys, kek []byte) (encryptedKeyBundle, error) {
	seal := func(scalar []byte) ([]byte, error) { return primitives.Encrypt(scalar, kek) }

	btc, err := seal(keys.BTC.Scalar[:])
	if err != nil {
		return encryptedKeyBundle{}, err
	}
	ltc, err := seal(keys.LTC.Scalar[:])
	if err != nil {
		return encryptedKeyBundle{}, err
	}
	xmrSpend, err := seal(keys.XMR.SpendScalar[:])
	if err != nil {
		return encryptedKeyBundle{}, err
	}
	xmrView, err := seal(keys.XMR.ViewScalar[:])
	if err != nil {
		return encryptedKeyBundle{}, err
	}
	wowSpend, err := seal(keys.WOW.SpendScalar[:])
	if err != nil {
		return encryptedKeyBundle{}, err
	}
	wowView, err := seal(keys.WOW.ViewScalar[:])
	if err != nil {
		return encryptedKeyBundle{}, err
	}
	grin, err := seal(keys.Grin.Scalar[:])
	if err != nil {
		return encryptedKeyBundle{}, err
	}

	return encryptedKeyBundle{
		BTC: btc, LTC: ltc,
		XMRSpend: xmrSpend, XMRView: xmrView,
		WOWSpend: wowSpend, WOWView: wowView,
		Grin: grin,
	}, nil
}

// clampAutoLockMinutes enforces spec §4.3's "minimum 1 min, 0 means
// disabled" invariant.
func clampAutoLockMinutes(minutes int) int {
	if minutes == 0 {
		return 0
	}
	if minutes < minAutoLockMinutes {
		return minAutoLockMinutes
	}
	return minutes
}

func splitWords(mnemonic string) []string {
	var words []string
	word := make([]byte, 0, 8)
	for i := 0; i < len(mnemonic); i++ {
		if mnemonic[i] == ' ' {
			if len(word) > 0 {
				words = append(words, string(word))
				word = word[:0]
			}
			continue
		}
		word = append(word, mnemonic[i])
	}
	if len(word) > 0 {
		words = append(words, string(word))
	}
	return words
}
