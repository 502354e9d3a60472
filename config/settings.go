// Package config loads and validates spec §6's Settings: the five
// user-facing preferences (autoSweep, notifyOnTip, defaultAsset,
// autoLockMinutes, theme) persisted alongside wallet state. Grounded on
// the teacher's jessevdk/go-flags-backed node configuration loader, with
// the same clamp-on-load discipline internal/vault applies to
// autoLockMinutes.
package config

import (
	"github.com/btcsuite/btclog"
	flags "github.com/jessevdk/go-flags"

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

// AssetType is one of the five chains this wallet core supports.
type AssetType string

const (
	AssetBTC  AssetType = "btc"
	AssetLTC  AssetType = "ltc"
	AssetXMR  AssetType = "xmr"
	AssetWOW  AssetType = "wow"
	AssetGrin AssetType = "grin"
)

func (a AssetType) valid() bool {
	switch a {
	case AssetBTC, AssetLTC, AssetXMR, AssetWOW, AssetGrin:
		return true
	default:
		return false
	}
}

// Theme is the UI's two supported color schemes.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

func (t Theme) valid() bool {
	return t == ThemeDark || t == ThemeLight
}

const (
	minAutoLockMinutes = 1
	maxAutoLockMinutes = 240
)

// Settings is spec §6's persisted preferences record.
type Settings struct {
	AutoSweep       bool      `long:"auto-sweep" description:"automatically sweep claimed tips into the main wallet"`
	NotifyOnTip     bool      `long:"notify-on-tip" description:"show a notification when a social tip arrives"`
	DefaultAsset    AssetType `long:"default-asset" description:"asset selected by default on the send/receive screens"`
	AutoLockMinutes int       `long:"auto-lock-minutes" description:"minutes of inactivity before the wallet locks; 0 disables auto-lock"`
	Theme           Theme     `long:"theme" description:"UI color scheme"`
}

// Default returns spec §6's out-of-the-box Settings.
func Default() Settings {
	return Settings{
		AutoSweep:       false,
		NotifyOnTip:     true,
		DefaultAsset:    AssetBTC,
		AutoLockMinutes: 15,
		Theme:           ThemeDark,
	}
}

// Parse loads Settings from args (e.g. os.Args[1:]) via go-flags, seeding
// unset fields from Default, then validates and clamps the result exactly
// as Load does.
func Parse(args []string) (Settings, error) {
	settings := Default()
	parser := flags.NewParser(&settings, flags.IgnoreUnknown)
	if _, err := parser.ParseArgs(args); err != nil {
		return Settings{}, walleterr.Wrap(walleterr.KindInvalidInput, "config.Parse", err)
	}
	return Load(settings)
}

// Load validates and clamps a Settings value read from persistence (or
// built by Parse), per spec §6: "values are clamped to [1, 240] when
// armed" and an invalid DefaultAsset/Theme is rejected as InvalidInput
// rather than silently coerced, since those came from user choice rather
// than a free-form numeric field.
func Load(settings Settings) (Settings, error) {
	if !settings.DefaultAsset.valid() {
		return Settings{}, walleterr.New(walleterr.KindInvalidInput, "config.Load/default_asset")
	}
	if !settings.Theme.valid() {
		return Settings{}, walleterr.New(walleterr.KindInvalidInput, "config.Load/theme")
	}
	settings.AutoLockMinutes = clampAutoLockMinutes(settings.AutoLockMinutes)
	return settings, nil
}

// clampAutoLockMinutes enforces spec §6's "0 disables auto-lock; values
// are clamped to [1, 240] when armed" — mirrors internal/vault's
// clampAutoLockMinutes, kept as a separate copy since config and vault
// are independently usable packages and neither should import the other
// just for this one-line clamp.
func clampAutoLockMinutes(minutes int) int {
	if minutes <= 0 {
		return 0
	}
	if minutes < minAutoLockMinutes {
		return minAutoLockMinutes
	}
	if minutes > maxAutoLockMinutes {
		return maxAutoLockMinutes
	}
	return minutes
}
