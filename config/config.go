package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the daemon configuration loaded from TOML.
type Config struct {
	ListenAddress  string `toml:"ListenAddress"`
	MetricsAddress string `toml:"MetricsAddress"`
	DataDir        string `toml:"DataDir"`
	NetworkName    string `toml:"NetworkName"`
	Env            string `toml:"Env"`
	LogFile        string `toml:"LogFile"`
	LogMaxSizeMB   int    `toml:"LogMaxSizeMB"`
	LogMaxBackups  int    `toml:"LogMaxBackups"`

	// GenesisAdmin is the hex address granted the full role set on first
	// boot.
	GenesisAdmin string `toml:"GenesisAdmin"`

	Ledger LedgerConfig `toml:"Ledger"`
}

// LedgerConfig carries the admin-tunable ledger parameters. Durations are
// seconds.
type LedgerConfig struct {
	HalfLifeDuration int64  `toml:"HalfLifeDuration"`
	HalfLifeMin      int64  `toml:"HalfLifeMin"`
	HalfLifeMax      int64  `toml:"HalfLifeMax"`
	InactivityPeriod int64  `toml:"InactivityPeriod"`
	Treasury         string `toml:"Treasury"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path, cfg)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		ListenAddress:  ":8645",
		MetricsAddress: ":9090",
		DataDir:        "./halo-data",
		NetworkName:    "halo-local",
		Env:            "dev",
		Ledger: LedgerConfig{
			HalfLifeDuration: 3600,
			HalfLifeMin:      60,
			HalfLifeMax:      7 * 24 * 3600,
			InactivityPeriod: 30 * 24 * 3600,
		},
	}
}

func createDefault(path string, cfg *Config) (*Config, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the same bounds the ledger applies to its parameters so
// misconfiguration fails at startup, not mid-flight.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return fmt.Errorf("config: ListenAddress required")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir required")
	}
	lc := c.Ledger
	if lc.HalfLifeMin <= 0 || lc.HalfLifeMax <= 0 || lc.HalfLifeDuration <= 0 || lc.InactivityPeriod <= 0 {
		return fmt.Errorf("config: ledger durations must be positive")
	}
	if lc.HalfLifeMin > lc.HalfLifeMax {
		return fmt.Errorf("config: HalfLifeMin exceeds HalfLifeMax")
	}
	if lc.HalfLifeDuration < lc.HalfLifeMin || lc.HalfLifeDuration > lc.HalfLifeMax {
		return fmt.Errorf("config: HalfLifeDuration outside [HalfLifeMin, HalfLifeMax]")
	}
	if c.GenesisAdmin != "" {
		if _, err := ParseAddress(c.GenesisAdmin); err != nil {
			return fmt.Errorf("config: GenesisAdmin: %w", err)
		}
	}
	if lc.Treasury != "" {
		if _, err := ParseAddress(lc.Treasury); err != nil {
			return fmt.Errorf("config: Treasury: %w", err)
		}
	}
	return nil
}

// ParseAddress decodes a 20-byte hex address with optional 0x prefix.
func ParseAddress(s string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if len(raw) != 20 {
		return addr, fmt.Errorf("invalid address length %d", len(raw))
	}
	copy(addr[:], raw)
	return addr, nil
}
