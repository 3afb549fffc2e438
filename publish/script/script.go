// Package script deploys a Strategy against a new or existing Yearn vault and
// links the two. It is driven by operator prompts.
package script

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/akshaynexus/yearnv2-levgeist/publish"
	"github.com/akshaynexus/yearnv2-levgeist/publish/artifact"
	"github.com/akshaynexus/yearnv2-levgeist/publish/config"
	"github.com/akshaynexus/yearnv2-levgeist/publish/contracts/aaveutils"
	"github.com/akshaynexus/yearnv2-levgeist/publish/contracts/sharer"
	"github.com/akshaynexus/yearnv2-levgeist/publish/contracts/strategy"
	"github.com/akshaynexus/yearnv2-levgeist/publish/contracts/vault"
	"github.com/akshaynexus/yearnv2-levgeist/publish/contracts/vaultregistry"
	"github.com/akshaynexus/yearnv2-levgeist/publish/prompt"
)

var (
	ErrAPIVersionMismatch = errors.New("vault api version mismatch")
	ErrNotLinked          = errors.New("strategy is not linked to vault")
)

const (
	VaultReused       = "existing"
	VaultExperimental = "experimental"
	VaultDeployed     = "deployed"
)

// AddressResolver looks up names typed at an address prompt.
type AddressResolver interface {
	Resolve(ctx context.Context, name string) (common.Address, bool, error)
}

type Env struct {
	Network     string
	AccountName string
	// APIVersion is the vault release the strategy is built against.
	APIVersion string

	Deploy    config.Deploy
	Artifacts config.Artifacts

	Chain    *publish.Chain
	Sender   publish.Sender
	Prompt   *prompt.Prompter
	Resolver AddressResolver
	Log      *zap.Logger
}

type Report struct {
	Network      string            `json:"network"`
	ChainID      uint64            `json:"chain_id"`
	Deployer     string            `json:"deployer"`
	APIVersion   string            `json:"api_version"`
	Vault        string            `json:"vault"`
	VaultSource  string            `json:"vault_source"`
	Strategy     string            `json:"strategy"`
	AaveUtils    string            `json:"aave_utils,omitempty"`
	Transactions map[string]string `json:"transactions,omitempty"`
}

type runner struct {
	Env
	report Report
}

// Run walks the operator through the deployment and prints the report.
func Run(ctx context.Context, env Env) (Report, error) {
	if env.Log == nil {
		env.Log = zap.NewNop()
	}
	r := &runner{Env: env}
	if err := r.run(ctx); err != nil {
		return r.report, err
	}

	blob, err := json.MarshalIndent(r.report, "", "  ")
	if err != nil {
		return r.report, err
	}
	r.Prompt.Printf("%s\n", blob)
	return r.report, nil
}

func (r *runner) run(ctx context.Context) error {
	dev := r.Sender.Address()
	chainID, err := r.Chain.ChainID(ctx)
	if err != nil {
		return err
	}
	r.report = Report{
		Network:      r.Network,
		ChainID:      chainID,
		Deployer:     dev.Hex(),
		APIVersion:   r.APIVersion,
		Transactions: map[string]string{},
	}

	r.Prompt.Printf("You are using the '%s' network\n", r.Network)
	r.Prompt.Printf("You are using: '%s' [%s]\n", r.AccountName, dev.Hex())

	vaultAddr, err := r.vault(ctx)
	if err != nil {
		return err
	}
	r.report.Vault = vaultAddr.Hex()

	info, err := vault.ReadInfo(ctx, r.Chain, vaultAddr)
	if err != nil {
		return err
	}
	r.Prompt.Printf("%s\n", strategyParameters(r.APIVersion, info))

	strategyAddr, err := r.strategy(ctx, vaultAddr)
	if err != nil {
		return err
	}
	r.report.Strategy = strategyAddr.Hex()

	if err := r.link(ctx, vaultAddr, strategyAddr); err != nil {
		return err
	}
	if err := r.verify(ctx, vaultAddr, strategyAddr); err != nil {
		return err
	}
	if r.Deploy.SharerEnabled {
		if err := r.share(ctx, strategyAddr); err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) vault(ctx context.Context) (common.Address, error) {
	reuse, err := r.Prompt.Yes("Is there a Vault for this strategy already? y/[N]: ")
	if err != nil {
		return common.Address{}, err
	}

	switch {
	case reuse:
		addr, err := r.askAddress(ctx, "Deployed Vault: ")
		if err != nil {
			return common.Address{}, err
		}
		if err := r.checkAPIVersion(ctx, addr); err != nil {
			return common.Address{}, err
		}
		r.report.VaultSource = VaultReused
		return addr, nil

	case r.Deploy.Experimental:
		addr, err := r.experimentalVault(ctx)
		if err != nil {
			return common.Address{}, err
		}
		r.report.VaultSource = VaultExperimental
		return addr, nil

	default:
		addr, err := r.deployVault(ctx)
		if err != nil {
			return common.Address{}, err
		}
		r.Prompt.Printf("%s\n", r.APIVersion)
		if err := r.checkAPIVersion(ctx, addr); err != nil {
			return common.Address{}, err
		}
		r.report.VaultSource = VaultDeployed
		return addr, nil
	}
}

func (r *runner) experimentalVault(ctx context.Context) (common.Address, error) {
	dev := r.Sender.Address()
	want, err := parseAddress("want_token", r.Deploy.WantToken)
	if err != nil {
		return common.Address{}, err
	}
	registry, err := parseAddress("vault_registry", r.Deploy.VaultRegistry)
	if err != nil {
		return common.Address{}, err
	}

	data, err := vaultregistry.EncodeNewExperimentalVault(vaultregistry.ExperimentalVaultArgs{
		Token:      want,
		Governance: dev,
		Guardian:   dev,
		Rewards:    dev,
	})
	if err != nil {
		return common.Address{}, fmt.Errorf("encode newExperimentalVault: %w", err)
	}
	receipt, err := publish.Execute(ctx, r.Sender, "newExperimentalVault", registry, data, vaultregistry.GasLimit)
	if err != nil {
		return common.Address{}, err
	}
	r.report.Transactions["newExperimentalVault"] = receipt.TxHash.Hex()

	addr, err := vaultregistry.VaultFromReceipt(registry, receipt)
	if err != nil {
		return common.Address{}, err
	}
	r.Log.Info("experimental vault created", zap.String("vault", addr.Hex()), zap.String("registry", registry.Hex()))
	return addr, nil
}

func (r *runner) deployVault(ctx context.Context) (common.Address, error) {
	dev := r.Sender.Address()
	want, err := parseAddress("want_token", r.Deploy.WantToken)
	if err != nil {
		return common.Address{}, err
	}
	code, err := loadCode(r.Artifacts.Vault)
	if err != nil {
		return common.Address{}, err
	}

	addr, err := publish.DeployContract(ctx, r.Sender, vault.Name(), code, r.Deploy.DeployGasLimit)
	if err != nil {
		return common.Address{}, err
	}
	r.Log.Info("vault deployed", zap.String("vault", addr.Hex()))

	data, err := vault.EncodeInit(vault.InitArgs{Token: want, Governance: dev, Rewards: dev})
	if err != nil {
		return common.Address{}, fmt.Errorf("encode vault init: %w", err)
	}
	receipt, err := publish.Execute(ctx, r.Sender, "initialize", addr, data, r.Deploy.BaseGasLimit)
	if err != nil {
		return common.Address{}, err
	}
	r.report.Transactions["initialize"] = receipt.TxHash.Hex()
	return addr, nil
}

func (r *runner) checkAPIVersion(ctx context.Context, addr common.Address) error {
	version, err := vault.APIVersion(ctx, r.Chain, addr)
	if err != nil {
		return err
	}
	if version != r.APIVersion {
		return fmt.Errorf("%w: vault %s reports %q, expected %q", ErrAPIVersionMismatch, addr.Hex(), version, r.APIVersion)
	}
	return nil
}

func (r *runner) strategy(ctx context.Context, vaultAddr common.Address) (common.Address, error) {
	existing, err := r.Prompt.No("Deploy Strategy? [y]/n: ")
	if err != nil {
		return common.Address{}, err
	}
	if existing {
		return r.askAddress(ctx, "Deployed Strategy: ")
	}

	lib, err := artifact.Load(r.Artifacts.AaveUtils)
	if err != nil {
		return common.Address{}, err
	}
	libCode, err := lib.Code()
	if err != nil {
		return common.Address{}, err
	}
	libAddr, err := publish.DeployContract(ctx, r.Sender, aaveutils.Name(), libCode, aaveutils.GasLimit)
	if err != nil {
		return common.Address{}, err
	}
	r.report.AaveUtils = libAddr.Hex()
	r.Log.Info("library deployed", zap.String("name", aaveutils.Name()), zap.String("address", libAddr.Hex()))

	impl, err := artifact.Load(r.Artifacts.Strategy)
	if err != nil {
		return common.Address{}, err
	}
	bytecode, err := impl.Link(lib, libAddr).Code()
	if err != nil {
		return common.Address{}, err
	}
	code, err := strategy.DeployCode(bytecode, vaultAddr)
	if err != nil {
		return common.Address{}, err
	}
	addr, err := publish.DeployContract(ctx, r.Sender, strategy.Name(), code, r.Deploy.DeployGasLimit)
	if err != nil {
		return common.Address{}, err
	}
	r.Log.Info("strategy deployed", zap.String("strategy", addr.Hex()), zap.String("vault", vaultAddr.Hex()))
	return addr, nil
}

func (r *runner) link(ctx context.Context, vaultAddr, strategyAddr common.Address) error {
	data, err := vault.EncodeAddStrategy(vault.StrategyArgs{
		Strategy:          strategyAddr,
		DebtRatio:         r.Deploy.DebtRatio.Value(),
		MinDebtPerHarvest: r.Deploy.MinDebtPerHarvest.Value(),
		MaxDebtPerHarvest: r.Deploy.MaxDebtPerHarvest.Value(),
		PerformanceFee:    r.Deploy.PerformanceFee.Value(),
	})
	if err != nil {
		return fmt.Errorf("encode addStrategy: %w", err)
	}
	receipt, err := publish.Execute(ctx, r.Sender, "addStrategy", vaultAddr, data, r.Deploy.BaseGasLimit)
	if err != nil {
		return err
	}
	r.report.Transactions["addStrategy"] = receipt.TxHash.Hex()

	data, err = vault.EncodeSetDepositLimit(r.Deploy.DepositLimit.Value())
	if err != nil {
		return fmt.Errorf("encode setDepositLimit: %w", err)
	}
	receipt, err = publish.Execute(ctx, r.Sender, "setDepositLimit", vaultAddr, data, r.Deploy.BaseGasLimit)
	if err != nil {
		return err
	}
	r.report.Transactions["setDepositLimit"] = receipt.TxHash.Hex()
	r.Log.Info("strategy added", zap.String("vault", vaultAddr.Hex()), zap.String("strategy", strategyAddr.Hex()),
		zap.Stringer("deposit_limit", r.Deploy.DepositLimit.Value()))
	return nil
}

func (r *runner) verify(ctx context.Context, vaultAddr, strategyAddr common.Address) error {
	params, err := vault.ReadStrategyParams(ctx, r.Chain, vaultAddr, strategyAddr)
	if err != nil {
		return err
	}
	if !params.Active() {
		return fmt.Errorf("%w: vault %s has no activation for %s", ErrNotLinked, vaultAddr.Hex(), strategyAddr.Hex())
	}
	owner, err := strategy.VaultOf(ctx, r.Chain, strategyAddr)
	if err != nil {
		return err
	}
	if owner != vaultAddr {
		return fmt.Errorf("%w: strategy %s belongs to %s", ErrNotLinked, strategyAddr.Hex(), owner.Hex())
	}
	return nil
}

// share points strategy rewards at the sharer and registers the strategist
// and the strategist multisig as contributors.
func (r *runner) share(ctx context.Context, strategyAddr common.Address) error {
	sharerAddr, err := parseAddress("sharer", r.Deploy.Sharer)
	if err != nil {
		return err
	}
	accounts := []struct{ key, value string }{
		{"strategist", r.Deploy.Strategist},
		{"strategist_multisig", r.Deploy.StrategistMultisig},
	}
	if len(r.Deploy.SharerShares) != len(accounts) {
		return fmt.Errorf("sharer_shares: want %d entries, got %d", len(accounts), len(r.Deploy.SharerShares))
	}
	contributors := make([]sharer.Contributor, len(accounts))
	for i, a := range accounts {
		addr, err := parseAddress(a.key, a.value)
		if err != nil {
			return err
		}
		contributors[i] = sharer.Contributor{Account: addr, Shares: r.Deploy.SharerShares[i].Value()}
	}

	data, err := strategy.EncodeSetRewards(sharerAddr)
	if err != nil {
		return fmt.Errorf("encode setRewards: %w", err)
	}
	receipt, err := publish.Execute(ctx, r.Sender, "setRewards", strategyAddr, data, r.Deploy.BaseGasLimit)
	if err != nil {
		return err
	}
	r.report.Transactions["setRewards"] = receipt.TxHash.Hex()

	data, err = sharer.EncodeAddContributors(strategyAddr, contributors)
	if err != nil {
		return fmt.Errorf("encode addContributors: %w", err)
	}
	receipt, err = publish.Execute(ctx, r.Sender, "addContributors", sharerAddr, data, sharer.GasLimit)
	if err != nil {
		return err
	}
	r.report.Transactions["addContributors"] = receipt.TxHash.Hex()
	r.Log.Info("sharer configured", zap.String("sharer", sharerAddr.Hex()), zap.Int("contributors", len(contributors)))
	return nil
}

func loadCode(path string) ([]byte, error) {
	a, err := artifact.Load(path)
	if err != nil {
		return nil, err
	}
	return a.Code()
}

func parseAddress(key, v string) (common.Address, error) {
	if !common.IsHexAddress(v) {
		return common.Address{}, fmt.Errorf("%s: invalid address: %q", key, v)
	}
	return common.HexToAddress(v), nil
}
