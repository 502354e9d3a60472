package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettingsAreValid(t *testing.T) {
	loaded, err := Load(Default())
	require.NoError(t, err)
	assert.Equal(t, Default(), loaded)
}

func TestLoadClampsAutoLockMinutes(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{0, 0},
		{-5, 0},
		{1, 1},
		{500, 240},
		{240, 240},
	}
	for _, c := range cases {
		s := Default()
		s.AutoLockMinutes = c.in
		loaded, err := Load(s)
		require.NoError(t, err)
		assert.Equal(t, c.want, loaded.AutoLockMinutes)
	}
}

func TestLoadRejectsInvalidDefaultAsset(t *testing.T) {
	s := Default()
	s.DefaultAsset = AssetType("dogecoin")
	_, err := Load(s)
	assert.Error(t, err)
}

func TestLoadRejectsInvalidTheme(t *testing.T) {
	s := Default()
	s.Theme = Theme("solarized")
	_, err := Load(s)
	assert.Error(t, err)
}

func TestParseOverridesDefaultsFromArgs(t *testing.T) {
	settings, err := Parse([]string{"--theme=light", "--auto-lock-minutes=0", "--default-asset=xmr"})
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, settings.Theme)
	assert.Equal(t, 0, settings.AutoLockMinutes)
	assert.Equal(t, AssetXMR, settings.DefaultAsset)
	assert.True(t, settings.NotifyOnTip) // unspecified flags keep Default()'s value
}

func TestParseRejectsUnparseableArgs(t *testing.T) {
	_, err := Parse([]string{"--auto-lock-minutes=notanumber"})
	assert.Error(t, err)
}
