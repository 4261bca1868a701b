package config

import (
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ethpandaops/validator-vault/pkg/factory"
	"github.com/ethpandaops/validator-vault/pkg/vault"
)

// Config is the CLI configuration file.
type Config struct {
	Network  string   `yaml:"network"`
	DataDir  string   `yaml:"data_dir"`
	LogLevel string   `yaml:"log_level"`
	Admin    string   `yaml:"admin"`
	Defaults Defaults `yaml:"defaults"`
}

// Defaults are applied to vaults created by the CLI.
type Defaults struct {
	Operator     string `yaml:"operator"`
	FeeRecipient string `yaml:"fee_recipient"`
	FeeBps       uint64 `yaml:"fee_bps"`
}

func Default() *Config {
	return &Config{
		Network:  "mainnet",
		DataDir:  "./vault-data",
		LogLevel: "info",
	}
}

// Load reads the file at path on top of the defaults.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Network {
	case "mainnet", "holesky", "sepolia":
	default:
		return errors.Errorf("unsupported network %q", c.Network)
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "invalid log level")
	}

	if c.DataDir == "" {
		return errors.New("data_dir is required")
	}

	for name, addr := range map[string]string{
		"admin":                  c.Admin,
		"defaults.operator":      c.Defaults.Operator,
		"defaults.fee_recipient": c.Defaults.FeeRecipient,
	} {
		if addr != "" && !common.IsHexAddress(addr) {
			return errors.Errorf("%s: invalid address %q", name, addr)
		}
	}

	if c.Defaults.FeeBps > vault.MaxFeeBps {
		return errors.Wrapf(vault.ErrInvalidFeeRate, "defaults.fee_bps %d", c.Defaults.FeeBps)
	}

	return nil
}

// AdminAddress returns the factory admin.
func (c *Config) AdminAddress() (common.Address, error) {
	return parseAddress("admin", c.Admin)
}

// FactoryDefaults returns the vault defaults for the factory.
func (c *Config) FactoryDefaults() (factory.Defaults, error) {
	operator, err := parseAddress("defaults.operator", c.Defaults.Operator)
	if err != nil {
		return factory.Defaults{}, err
	}

	feeRecipient, err := parseAddress("defaults.fee_recipient", c.Defaults.FeeRecipient)
	if err != nil {
		return factory.Defaults{}, err
	}

	return factory.Defaults{
		Operator:     operator,
		FeeRecipient: feeRecipient,
		FeeBps:       c.Defaults.FeeBps,
	}, nil
}

func parseAddress(name, addr string) (common.Address, error) {
	if !common.IsHexAddress(addr) {
		return common.Address{}, errors.Errorf("%s: invalid address %q", name, addr)
	}

	out := common.HexToAddress(addr)
	if out == (common.Address{}) {
		return common.Address{}, errors.Wrap(vault.ErrZeroAddress, name)
	}

	return out, nil
}
