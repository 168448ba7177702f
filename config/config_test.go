package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8645", cfg.ListenAddress)
	require.Equal(t, int64(3600), cfg.Ledger.HalfLifeDuration)

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected default config written: %v", err)
	}

	// A second load reads the file it just wrote.
	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Ledger, again.Ledger)
}

func TestLoadParsesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	raw := `
ListenAddress = ":9999"
DataDir = "/tmp/halo"
GenesisAdmin = "0x0102030405060708090a0b0c0d0e0f1011121314"

[Ledger]
HalfLifeDuration = 600
HalfLifeMin = 60
HalfLifeMax = 1200
InactivityPeriod = 86400
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.ListenAddress)
	require.Equal(t, int64(600), cfg.Ledger.HalfLifeDuration)
	require.Equal(t, int64(1200), cfg.Ledger.HalfLifeMax)
}

func TestValidateRejectsBadBounds(t *testing.T) {
	cfg := defaultConfig()
	cfg.Ledger.HalfLifeMin = 100
	cfg.Ledger.HalfLifeMax = 50
	require.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.Ledger.HalfLifeDuration = 0
	require.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.GenesisAdmin = "not-hex"
	require.Error(t, cfg.Validate())
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0x0102030405060708090a0b0c0d0e0f1011121314")
	require.NoError(t, err)
	require.Equal(t, byte(0x01), addr[0])
	require.Equal(t, byte(0x14), addr[19])

	// The 0x prefix is optional.
	bare, err := ParseAddress("0102030405060708090a0b0c0d0e0f1011121314")
	require.NoError(t, err)
	require.Equal(t, addr, bare)

	_, err = ParseAddress("0x01")
	require.Error(t, err)
	_, err = ParseAddress("zz")
	require.Error(t, err)
}
