package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"ewill/core/types"
)

// Config is the daemon configuration, decoded from TOML.
type Config struct {
	RPCAddress  string `toml:"RPCAddress"`
	DataDir     string `toml:"DataDir"`
	GenesisFile string `toml:"GenesisFile"`

	LogLevel  string `toml:"LogLevel"`
	LogFormat string `toml:"LogFormat"`

	// Privileged identities. Owner administers the token merchant list,
	// Admin administers the escrow/treasury/finance engines and Marketer
	// manages discount campaigns.
	OwnerAddress    string `toml:"OwnerAddress"`
	AdminAddress    string `toml:"AdminAddress"`
	MarketerAddress string `toml:"MarketerAddress"`

	// Billing parameters.
	AnnualPlatformFeeCents uint64 `toml:"AnnualPlatformFeeCents"`
	ExchangeFeeBps         uint32 `toml:"ExchangeFeeBps"`
	ReferrerDiscountBps    uint32 `toml:"ReferrerDiscountBps"`
	TokenRateWeiPerCent    string `toml:"TokenRateWeiPerCent"`
	EtherRateWeiPerCent    string `toml:"EtherRateWeiPerCent"`

	// Escrow and treasury parameters.
	MinProviderFundWei        string `toml:"MinProviderFundWei"`
	TreasuryWithdrawalSeconds int64  `toml:"TreasuryWithdrawalSeconds"`
	TreasuryMinLockedFundWei  string `toml:"TreasuryMinLockedFundWei"`

	// RPC throttling.
	RPCRateLimit float64 `toml:"RPCRateLimit"`
	RPCRateBurst int     `toml:"RPCRateBurst"`
}

// Load reads the configuration at path, writing a default file first when
// none exists.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = ":8545"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./ewill-data"
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = "info"
	}
	if strings.TrimSpace(c.LogFormat) == "" {
		c.LogFormat = "text"
	}
	if c.AnnualPlatformFeeCents == 0 {
		c.AnnualPlatformFeeCents = 500
	}
	if strings.TrimSpace(c.TokenRateWeiPerCent) == "" {
		c.TokenRateWeiPerCent = "100000000000000"
	}
	if strings.TrimSpace(c.EtherRateWeiPerCent) == "" {
		c.EtherRateWeiPerCent = "10000000000000"
	}
	if strings.TrimSpace(c.MinProviderFundWei) == "" {
		c.MinProviderFundWei = "0"
	}
	if c.TreasuryWithdrawalSeconds == 0 {
		c.TreasuryWithdrawalSeconds = 30 * 24 * 3600
	}
	if strings.TrimSpace(c.TreasuryMinLockedFundWei) == "" {
		c.TreasuryMinLockedFundWei = "0"
	}
	if c.RPCRateLimit <= 0 {
		c.RPCRateLimit = 50
	}
	if c.RPCRateBurst <= 0 {
		c.RPCRateBurst = 100
	}
}

// Validate checks that every configured value is usable before the daemon
// starts wiring engines.
func (c *Config) Validate() error {
	if c.ExchangeFeeBps > 1000 {
		return fmt.Errorf("config: ExchangeFeeBps %d exceeds 1000", c.ExchangeFeeBps)
	}
	if c.ReferrerDiscountBps > 1000 {
		return fmt.Errorf("config: ReferrerDiscountBps %d exceeds 1000", c.ReferrerDiscountBps)
	}
	for name, raw := range map[string]string{
		"TokenRateWeiPerCent":      c.TokenRateWeiPerCent,
		"EtherRateWeiPerCent":      c.EtherRateWeiPerCent,
		"MinProviderFundWei":       c.MinProviderFundWei,
		"TreasuryMinLockedFundWei": c.TreasuryMinLockedFundWei,
	} {
		if _, err := parseBig(raw); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	for name, raw := range map[string]string{
		"OwnerAddress":    c.OwnerAddress,
		"AdminAddress":    c.AdminAddress,
		"MarketerAddress": c.MarketerAddress,
	} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if _, err := types.ParseAddress(raw); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	return nil
}

// Owner returns the parsed owner address, or the zero address when unset.
func (c *Config) Owner() types.Address { return parseAddrOrZero(c.OwnerAddress) }

// Admin returns the parsed admin address, or the zero address when unset.
func (c *Config) Admin() types.Address { return parseAddrOrZero(c.AdminAddress) }

// Marketer returns the parsed marketer address, or the zero address when
// unset.
func (c *Config) Marketer() types.Address { return parseAddrOrZero(c.MarketerAddress) }

// TokenRate returns the token exchange rate in wei per cent.
func (c *Config) TokenRate() *big.Int { return mustBig(c.TokenRateWeiPerCent) }

// EtherRate returns the ether exchange rate in wei per cent.
func (c *Config) EtherRate() *big.Int { return mustBig(c.EtherRateWeiPerCent) }

// MinProviderFund returns the minimum provider bond in token wei.
func (c *Config) MinProviderFund() *big.Int { return mustBig(c.MinProviderFundWei) }

// TreasuryMinLockedFund returns the balance floor the treasury may never
// spend below.
func (c *Config) TreasuryMinLockedFund() *big.Int { return mustBig(c.TreasuryMinLockedFundWei) }

func parseAddrOrZero(raw string) types.Address {
	if strings.TrimSpace(raw) == "" {
		return types.ZeroAddress
	}
	addr, err := types.ParseAddress(raw)
	if err != nil {
		return types.ZeroAddress
	}
	return addr
}

func parseBig(raw string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid non-negative integer %q", raw)
	}
	return v, nil
}

// mustBig is only called on values Validate has already accepted.
func mustBig(raw string) *big.Int {
	v, err := parseBig(raw)
	if err != nil {
		return big.NewInt(0)
	}
	return v
}

// createDefault writes a default configuration file and returns it.
func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
