package config

import (
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"

	"parbond/native/bond"
)

// Config is the daemon configuration loaded from a TOML file.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	LogFile       string `toml:"LogFile"`
	Environment   string `toml:"Environment"`

	// RateLimitPerMinute caps mutating RPC calls per client; zero disables
	// throttling. RateLimitBurst bounds short spikes.
	RateLimitPerMinute float64 `toml:"RateLimitPerMinute"`
	RateLimitBurst     int     `toml:"RateLimitBurst"`

	Engine EngineConfig `toml:"Engine"`
}

// EngineConfig carries the engine parameters and the deployment addresses.
// Amounts are decimal strings; ppm values use the 1e6 denominator.
type EngineConfig struct {
	CustodyAddress  string `toml:"CustodyAddress"`
	OwnerAddress    string `toml:"OwnerAddress"`
	TimelockAddress string `toml:"TimelockAddress"`
	ReferenceToken  string `toml:"ReferenceToken"`
	BondToken       string `toml:"BondToken"`

	EpochLengthSeconds int64  `toml:"EpochLengthSeconds"`
	CooldownSeconds    int64  `toml:"CooldownSeconds"`
	MaxOutstandingWei  string `toml:"MaxOutstandingWei"`

	BuyingFeePpm        uint64 `toml:"BuyingFeePpm"`
	SellingFeePpm       uint64 `toml:"SellingFeePpm"`
	RedemptionFeePpm    uint64 `toml:"RedemptionFeePpm"`
	DefaultDiscountPpm  uint64 `toml:"DefaultDiscountPpm"`
	FailsafeDiscountPpm uint64 `toml:"FailsafeDiscountPpm"`
	UseDefaultDiscount  bool   `toml:"UseDefaultDiscount"`
}

// Load reads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
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
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = "127.0.0.1:8699"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./parbond-data"
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = "dev"
	}
	if c.Engine.EpochLengthSeconds == 0 {
		c.Engine.EpochLengthSeconds = 30 * 24 * 60 * 60
	}
	if c.Engine.CooldownSeconds == 0 {
		c.Engine.CooldownSeconds = 3 * 24 * 60 * 60
	}
	if strings.TrimSpace(c.Engine.MaxOutstandingWei) == "" {
		c.Engine.MaxOutstandingWei = "0"
	}
}

// Validate checks address syntax and delegates the numeric ranges to the
// engine parameter validation.
func (c *Config) Validate() error {
	for name, value := range map[string]string{
		"CustodyAddress":  c.Engine.CustodyAddress,
		"OwnerAddress":    c.Engine.OwnerAddress,
		"TimelockAddress": c.Engine.TimelockAddress,
		"ReferenceToken":  c.Engine.ReferenceToken,
		"BondToken":       c.Engine.BondToken,
	} {
		if !common.IsHexAddress(value) {
			return fmt.Errorf("config: %s %q is not a hex address", name, value)
		}
	}
	params, err := c.EngineParams()
	if err != nil {
		return err
	}
	return params.Validate()
}

// EngineParams converts the engine section into bond.Params.
func (c *Config) EngineParams() (bond.Params, error) {
	cap, ok := new(big.Int).SetString(strings.TrimSpace(c.Engine.MaxOutstandingWei), 10)
	if !ok {
		return bond.Params{}, fmt.Errorf("config: MaxOutstandingWei %q is not a decimal amount", c.Engine.MaxOutstandingWei)
	}
	return bond.Params{
		CooldownPeriod:                time.Duration(c.Engine.CooldownSeconds) * time.Second,
		EpochLength:                   time.Duration(c.Engine.EpochLengthSeconds) * time.Second,
		MaxOutstandingSupply:          cap,
		BuyingFeePpm:                  c.Engine.BuyingFeePpm,
		SellingFeePpm:                 c.Engine.SellingFeePpm,
		RedemptionFeePpm:              c.Engine.RedemptionFeePpm,
		DefaultInitialDiscountPpm:     c.Engine.DefaultDiscountPpm,
		FailsafeMaxInitialDiscountPpm: c.Engine.FailsafeDiscountPpm,
		UseDefaultDiscount:            c.Engine.UseDefaultDiscount,
	}, nil
}

// Addresses returns the parsed custody, owner and timelock addresses.
func (c *Config) Addresses() (custody, owner, timelock common.Address) {
	return common.HexToAddress(c.Engine.CustodyAddress),
		common.HexToAddress(c.Engine.OwnerAddress),
		common.HexToAddress(c.Engine.TimelockAddress)
}

// TokenAddresses returns the parsed reference and bond token addresses.
func (c *Config) TokenAddresses() (reference, bondToken common.Address) {
	return common.HexToAddress(c.Engine.ReferenceToken), common.HexToAddress(c.Engine.BondToken)
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		Engine: EngineConfig{
			CustodyAddress:      common.Address{0x01}.Hex(),
			OwnerAddress:        common.Address{0x02}.Hex(),
			TimelockAddress:     common.Address{0x03}.Hex(),
			ReferenceToken:      common.Address{0x11}.Hex(),
			BondToken:           common.Address{0x12}.Hex(),
			MaxOutstandingWei:   "0",
			DefaultDiscountPpm:  100_000,
			FailsafeDiscountPpm: 500_000,
			UseDefaultDiscount:  true,
		},
	}
	cfg.applyDefaults()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("config: encode %s: %w", path, err)
	}
	return nil
}
