package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"loyaltyledger/crypto"
)

type Config struct {
	RPCAddress  string `toml:"RPCAddress"`
	DataDir     string `toml:"DataDir"`
	LogFile     string `toml:"LogFile"`
	TokenName   string `toml:"TokenName"`
	TokenSymbol string `toml:"TokenSymbol"`
	EarnRate    int64  `toml:"EarnRate"`
	MinPurchase int64  `toml:"MinPurchase"`
	// AdminAddress is the bech32 address initialised as the ledger admin on
	// first start. Leave empty to initialise out of band over RPC.
	AdminAddress string `toml:"AdminAddress"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = "127.0.0.1:8645"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./loyaltydata"
	}
	if strings.TrimSpace(c.TokenName) == "" {
		c.TokenName = "Loyalty Points"
	}
	if strings.TrimSpace(c.TokenSymbol) == "" {
		c.TokenSymbol = "LP"
	}
	if c.EarnRate == 0 {
		c.EarnRate = 10
	}
}

// Validate checks the configuration for values the daemon cannot start with.
func (c *Config) Validate() error {
	if c.EarnRate <= 0 {
		return fmt.Errorf("config: EarnRate must be positive (got %d)", c.EarnRate)
	}
	if c.MinPurchase < 0 {
		return fmt.Errorf("config: MinPurchase must not be negative (got %d)", c.MinPurchase)
	}
	if admin := strings.TrimSpace(c.AdminAddress); admin != "" {
		if _, err := crypto.DecodeAddress(admin); err != nil {
			return fmt.Errorf("config: invalid AdminAddress: %w", err)
		}
	}
	return nil
}

// Admin returns the decoded admin address. The boolean is false when no
// admin is configured.
func (c *Config) Admin() (crypto.Address, bool, error) {
	admin := strings.TrimSpace(c.AdminAddress)
	if admin == "" {
		return crypto.Address{}, false, nil
	}
	addr, err := crypto.DecodeAddress(admin)
	if err != nil {
		return crypto.Address{}, false, err
	}
	return addr, true, nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	if dir := filepath.Dir(path); dir != "" && dir != "." {
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
