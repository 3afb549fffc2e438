package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "publish.yaml"

type Config struct {
	// Dependencies mirror the package list of the contracts project. The first
	// entry pins the vault release, e.g. "yearn/yearn-vaults@0.4.3".
	Dependencies []string           `yaml:"dependencies"`
	Network      string             `yaml:"network"`
	Networks     map[string]Network `yaml:"networks"`
	Deploy       Deploy             `yaml:"deploy"`
	Artifacts    Artifacts          `yaml:"artifacts"`
	Account      Account            `yaml:"account"`
	Fixtures     Fixtures           `yaml:"fixtures"`
	Logging      Logging            `yaml:"logging"`
}

type Network struct {
	RPCURL    string `yaml:"rpc_url"`
	ChainID   int64  `yaml:"chain_id"`
	GasFeeCap BigInt `yaml:"gas_fee_cap"`
	GasTipCap BigInt `yaml:"gas_tip_cap"`
}

type Deploy struct {
	WantToken          string   `yaml:"want_token"`
	Strategist         string   `yaml:"strategist"`
	VaultRegistry      string   `yaml:"vault_registry"`
	Sharer             string   `yaml:"sharer"`
	StrategistMultisig string   `yaml:"strategist_multisig"`
	ENSRegistry        string   `yaml:"ens_registry"`
	Experimental       bool     `yaml:"experimental"`
	BaseGasLimit       uint64   `yaml:"base_gas_limit"`
	DeployGasLimit     uint64   `yaml:"deploy_gas_limit"`
	DebtRatio          BigInt   `yaml:"debt_ratio"`
	MinDebtPerHarvest  BigInt   `yaml:"min_debt_per_harvest"`
	MaxDebtPerHarvest  BigInt   `yaml:"max_debt_per_harvest"`
	PerformanceFee     BigInt   `yaml:"performance_fee"`
	DepositLimit       BigInt   `yaml:"deposit_limit"`
	SharerEnabled      bool     `yaml:"sharer_enabled"`
	SharerShares       []BigInt `yaml:"sharer_shares"`
	TimeoutSeconds     int      `yaml:"timeout_seconds"`
}

type Artifacts struct {
	Vault     string `yaml:"vault"`
	Strategy  string `yaml:"strategy"`
	AaveUtils string `yaml:"aave_utils"`
}

type Account struct {
	Name     string `yaml:"name"`
	Keystore string `yaml:"keystore"`
}

type Fixtures struct {
	RPCURL            string `yaml:"rpc_url"`
	ImpersonateMethod string `yaml:"impersonate_method"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

func defaultConfig() Config {
	var c Config
	c.Dependencies = []string{"yearn/yearn-vaults@0.4.3"}
	c.Network = "ftm-main"
	c.Networks = map[string]Network{
		"ftm-main": {
			RPCURL:    "https://rpc.ftm.tools",
			ChainID:   250,
			GasFeeCap: NewBigInt(2_000_000_000_000),
			GasTipCap: NewBigInt(1_000_000_000),
		},
		"development": {
			RPCURL:    "http://127.0.0.1:8545",
			ChainID:   31337,
			GasFeeCap: NewBigInt(2_000_000_000),
			GasTipCap: NewBigInt(1_000_000_000),
		},
	}

	c.Deploy.WantToken = "0x21be370d5312f44cb42ce377bc9b8a0cef1a4c83"
	c.Deploy.Strategist = "0x7495B77b15fCb52fbb7BCB7380335d819ce4c04B"
	c.Deploy.VaultRegistry = "0xE15461B18EE31b7379019Dc523231C57d1Cbc18c"
	c.Deploy.Sharer = "0x2C641e14AfEcb16b4Aa6601A40EE60c3cc792f7D"
	c.Deploy.StrategistMultisig = "0x16388463d60FFE0661Cf7F1f31a7D658aC790ff7"
	c.Deploy.ENSRegistry = "0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e"
	c.Deploy.Experimental = false
	c.Deploy.BaseGasLimit = 400_000
	c.Deploy.DeployGasLimit = 6_000_000
	c.Deploy.DebtRatio = NewBigInt(9800)
	c.Deploy.MinDebtPerHarvest = NewBigInt(0)
	c.Deploy.MaxDebtPerHarvest = BigInt{maxUint256()}
	c.Deploy.PerformanceFee = NewBigInt(1000)
	c.Deploy.DepositLimit = BigInt{new(big.Int).Mul(big.NewInt(1008), big.NewInt(1e18))}
	c.Deploy.SharerEnabled = false
	c.Deploy.SharerShares = []BigInt{NewBigInt(500), NewBigInt(500)}
	c.Deploy.TimeoutSeconds = 600

	c.Artifacts.Vault = filepath.Join("build", "contracts", "Vault.json")
	c.Artifacts.Strategy = filepath.Join("build", "contracts", "Strategy.json")
	c.Artifacts.AaveUtils = filepath.Join("build", "contracts", "AaveUtils.json")

	c.Account.Name = "dev"
	if home, err := os.UserHomeDir(); err == nil {
		c.Account.Keystore = filepath.Join(home, ".brownie", "accounts", "dev.json")
	}

	c.Fixtures.RPCURL = "http://127.0.0.1:8545"
	c.Fixtures.ImpersonateMethod = "anvil_impersonateAccount"

	c.Logging.Level = "info"
	c.Logging.Pretty = false
	return c
}

// Load reads path over the defaults and applies environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	c := defaultConfig()
	if v := os.Getenv("PUBLISH_CONFIG"); v != "" && path == "" {
		path = v
	}
	if path == "" {
		path = DefaultPath
	}

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	c.applyEnv()
	return c, nil
}

func (c *Config) applyEnv() {
	if v := envOr("PUBLISH_NETWORK", ""); v != "" {
		c.Network = v
	}
	c.applyNetworkEnv()

	if v := envOr("PUBLISH_EXPERIMENTAL", ""); v == "1" || v == "true" {
		c.Deploy.Experimental = true
	}
	if v := envOr("PUBLISH_KEYSTORE", ""); v != "" {
		c.Account.Keystore = v
	}
	if v := envOr("PUBLISH_LOG_LEVEL", ""); v != "" {
		c.Logging.Level = v
	}
	if v := envOr("FIXTURES_RPC_URL", ""); v != "" {
		c.Fixtures.RPCURL = v
	}
}

// UseNetwork selects name as the active network, taking precedence over
// PUBLISH_NETWORK. Endpoint overrides from the environment apply to it.
func (c *Config) UseNetwork(name string) {
	c.Network = name
	c.applyNetworkEnv()
}

func (c *Config) applyNetworkEnv() {
	n := c.Networks[c.Network]
	if v := envOr("RPC_URL", ""); v != "" {
		n.RPCURL = v
	}
	if v := envInt64("CHAIN_ID", 0); v != 0 {
		n.ChainID = v
	}
	if v := envInt64("GAS_FEE_CAP", 0); v != 0 {
		n.GasFeeCap = NewBigInt(v)
	}
	if v := envInt64("GAS_TIP_CAP", 0); v != 0 {
		n.GasTipCap = NewBigInt(v)
	}
	if c.Networks == nil {
		c.Networks = map[string]Network{}
	}
	c.Networks[c.Network] = n
}

// ActiveNetwork returns the selected network entry.
func (c Config) ActiveNetwork() (Network, error) {
	n, ok := c.Networks[c.Network]
	if !ok || n.RPCURL == "" {
		return Network{}, fmt.Errorf("network %q is not configured", c.Network)
	}
	if n.ChainID == 0 {
		return Network{}, fmt.Errorf("network %q has no chain_id", c.Network)
	}
	return n, nil
}

// APIVersion is the vault release pinned by the first dependency: the text
// after the last "@".
func (c Config) APIVersion() (string, error) {
	if len(c.Dependencies) == 0 {
		return "", errors.New("no dependencies configured")
	}
	dep := c.Dependencies[0]
	i := strings.LastIndex(dep, "@")
	if i < 0 || i == len(dep)-1 {
		return "", fmt.Errorf("dependency %q has no version", dep)
	}
	return dep[i+1:], nil
}

func envOr(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envInt64(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
