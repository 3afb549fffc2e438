package testkit

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/akshaynexus/yearnv2-levgeist/publish/contracts/erc20"
	"github.com/akshaynexus/yearnv2-levgeist/publish/contracts/strategy"
	"github.com/akshaynexus/yearnv2-levgeist/publish/contracts/vault"
)

// Vault follows the governance checks of the Yearn v0.4 vault for the
// calls the publisher and the fixtures make.
type Vault struct {
	apiVersion string

	initialized   bool
	token         common.Address
	governance    common.Address
	management    common.Address
	guardian      common.Address
	rewards       common.Address
	name          string
	symbol        string
	depositLimit  *big.Int
	managementFee *big.Int
	debtRatio     *big.Int
	strategies    map[common.Address]vault.StrategyParams
}

func NewVault(apiVersion string) *Vault {
	return &Vault{
		apiVersion:    apiVersion,
		depositLimit:  new(big.Int),
		managementFee: new(big.Int),
		debtRatio:     new(big.Int),
		strategies:    map[common.Address]vault.StrategyParams{},
	}
}

// VaultFactory deploys vaults reporting apiVersion.
func VaultFactory(apiVersion string) Factory {
	return func(msg *Msg, args []byte) (Contract, error) {
		return NewVault(apiVersion), nil
	}
}

func (v *Vault) Governance() common.Address { return v.governance }
func (v *Vault) Guardian() common.Address   { return v.guardian }
func (v *Vault) Rewards() common.Address    { return v.rewards }
func (v *Vault) Token() common.Address      { return v.token }
func (v *Vault) DepositLimit() *big.Int     { return new(big.Int).Set(v.depositLimit) }
func (v *Vault) ManagementFee() *big.Int    { return new(big.Int).Set(v.managementFee) }

// Strategy returns the parameters the vault keeps for addr.
func (v *Vault) Strategy(addr common.Address) (vault.StrategyParams, bool) {
	p, ok := v.strategies[addr]
	return p, ok
}

// ActiveStrategies counts strategies with a non-zero activation.
func (v *Vault) ActiveStrategies() int {
	n := 0
	for _, p := range v.strategies {
		if p.Active() {
			n++
		}
	}
	return n
}

func (v *Vault) Handle(msg *Msg) ([]byte, error) {
	switch {
	case msg.Is(vault.FuncInitialize):
		var (
			token, governance, rewards   common.Address
			nameOverride, symbolOverride string
		)
		if err := msg.Args(vault.FuncInitialize, &token, &governance, &rewards, &nameOverride, &symbolOverride); err != nil {
			return nil, err
		}
		return nil, v.initialize(msg, token, governance, rewards, nameOverride, symbolOverride, msg.From)

	case msg.Is(vault.FuncInitializeWithGuardian):
		var (
			token, governance, rewards, guardian common.Address
			nameOverride, symbolOverride         string
		)
		if err := msg.Args(vault.FuncInitializeWithGuardian, &token, &governance, &rewards, &nameOverride, &symbolOverride, &guardian); err != nil {
			return nil, err
		}
		return nil, v.initialize(msg, token, governance, rewards, nameOverride, symbolOverride, guardian)

	case msg.Is(vault.FuncAPIVersion):
		return Returns(vault.FuncAPIVersion, v.apiVersion)
	case msg.Is(vault.FuncToken):
		return Returns(vault.FuncToken, v.token)
	case msg.Is(vault.FuncName):
		return Returns(vault.FuncName, v.name)
	case msg.Is(vault.FuncSymbol):
		return Returns(vault.FuncSymbol, v.symbol)
	case msg.Is(vault.FuncGovernance):
		return Returns(vault.FuncGovernance, v.governance)
	case msg.Is(vault.FuncGuardian):
		return Returns(vault.FuncGuardian, v.guardian)
	case msg.Is(vault.FuncRewards):
		return Returns(vault.FuncRewards, v.rewards)
	case msg.Is(vault.FuncDepositLimit):
		return Returns(vault.FuncDepositLimit, v.depositLimit)
	case msg.Is(vault.FuncManagementFee):
		return Returns(vault.FuncManagementFee, v.managementFee)
	case msg.Is(vault.FuncDebtRatio):
		return Returns(vault.FuncDebtRatio, v.debtRatio)

	case msg.Is(vault.FuncStrategies):
		var addr common.Address
		if err := msg.Args(vault.FuncStrategies, &addr); err != nil {
			return nil, err
		}
		p, ok := v.strategies[addr]
		if !ok {
			zero := new(big.Int)
			return Returns(vault.FuncStrategies, zero, zero, zero, zero, zero, zero, zero, zero, zero)
		}
		return Returns(vault.FuncStrategies, p.PerformanceFee, p.Activation, p.DebtRatio, p.MinDebtPerHarvest,
			p.MaxDebtPerHarvest, p.LastReport, p.TotalDebt, p.TotalGain, p.TotalLoss)

	case msg.Is(vault.FuncAddStrategy):
		var addr common.Address
		debtRatio, minDebt, maxDebt, perfFee := new(big.Int), new(big.Int), new(big.Int), new(big.Int)
		if err := msg.Args(vault.FuncAddStrategy, &addr, debtRatio, minDebt, maxDebt, perfFee); err != nil {
			return nil, err
		}
		return nil, v.addStrategy(msg, addr, debtRatio, minDebt, maxDebt, perfFee)

	case msg.Is(vault.FuncSetDepositLimit):
		limit := new(big.Int)
		if err := msg.Args(vault.FuncSetDepositLimit, limit); err != nil {
			return nil, err
		}
		if msg.From != v.governance {
			return nil, Revert("!governance")
		}
		if !msg.Static {
			v.depositLimit = limit
		}
		return nil, nil

	case msg.Is(vault.FuncSetManagementFee):
		fee := new(big.Int)
		if err := msg.Args(vault.FuncSetManagementFee, fee); err != nil {
			return nil, err
		}
		if msg.From != v.governance {
			return nil, Revert("!governance")
		}
		if fee.Cmp(big.NewInt(vault.MaxBPS)) > 0 {
			return nil, Revert("management fee too high")
		}
		if !msg.Static {
			v.managementFee = fee
		}
		return nil, nil
	}
	return nil, ErrUnknownSelector
}

func (v *Vault) initialize(msg *Msg, token, governance, rewards common.Address, nameOverride, symbolOverride string, guardian common.Address) error {
	if v.initialized {
		return Revert("already initialized")
	}
	var tokenSymbol string
	if err := msg.CallFunc(token, erc20.FuncSymbol, nil, &tokenSymbol); err != nil {
		return Revert("token symbol: %v", err)
	}
	if msg.Static {
		return nil
	}

	v.initialized = true
	v.token = token
	v.governance = governance
	v.management = governance
	v.rewards = rewards
	v.guardian = guardian
	v.name = nameOverride
	if v.name == "" {
		v.name = tokenSymbol + " yVault"
	}
	v.symbol = symbolOverride
	if v.symbol == "" {
		v.symbol = "yv" + tokenSymbol
	}
	v.managementFee = big.NewInt(200)
	return nil
}

func (v *Vault) addStrategy(msg *Msg, addr common.Address, debtRatio, minDebt, maxDebt, perfFee *big.Int) error {
	switch {
	case !v.initialized:
		return Revert("not initialized")
	case msg.From != v.governance:
		return Revert("!governance")
	case addr == (common.Address{}):
		return Revert("zero strategy")
	}
	if p, ok := v.strategies[addr]; ok && p.Active() {
		return Revert("strategy already added")
	}

	var strategyVault, want common.Address
	if err := msg.CallFunc(addr, strategy.FuncVault, nil, &strategyVault); err != nil {
		return Revert("strategy vault: %v", err)
	}
	if strategyVault != msg.To {
		return Revert("strategy belongs to %s", strategyVault.Hex())
	}
	if err := msg.CallFunc(addr, strategy.FuncWant, nil, &want); err != nil {
		return Revert("strategy want: %v", err)
	}
	if want != v.token {
		return Revert("strategy want mismatch")
	}

	total := new(big.Int).Add(v.debtRatio, debtRatio)
	switch {
	case total.Cmp(big.NewInt(vault.MaxBPS)) > 0:
		return Revert("debt ratio over limit")
	case minDebt.Cmp(maxDebt) > 0:
		return Revert("min debt over max debt")
	case perfFee.Cmp(big.NewInt(vault.MaxBPS/2)) > 0:
		return Revert("performance fee too high")
	}
	if msg.Static {
		return nil
	}

	now := new(big.Int).SetUint64(msg.Time)
	v.strategies[addr] = vault.StrategyParams{
		PerformanceFee:    perfFee,
		Activation:        now,
		DebtRatio:         debtRatio,
		MinDebtPerHarvest: minDebt,
		MaxDebtPerHarvest: maxDebt,
		LastReport:        new(big.Int).Set(now),
		TotalDebt:         new(big.Int),
		TotalGain:         new(big.Int),
		TotalLoss:         new(big.Int),
	}
	v.debtRatio = total
	return nil
}
