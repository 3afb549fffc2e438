package vault

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"
	"github.com/lmittmann/w3/module/eth"

	"github.com/akshaynexus/yearnv2-levgeist/publish"
)

const (
	name         = "Vault"
	ImplGasLimit = 6_000_000

	// MaxBPS is the basis point denominator the vault uses for ratios and fees.
	MaxBPS = 10_000
)

var (
	FuncInitialize             = w3.MustNewFunc("initialize(address,address,address,string,string)", "")
	FuncInitializeWithGuardian = w3.MustNewFunc("initialize(address,address,address,string,string,address)", "")
	FuncAddStrategy            = w3.MustNewFunc("addStrategy(address,uint256,uint256,uint256,uint256)", "")
	FuncSetDepositLimit        = w3.MustNewFunc("setDepositLimit(uint256)", "")
	FuncSetManagementFee       = w3.MustNewFunc("setManagementFee(uint256)", "")

	FuncAPIVersion    = w3.MustNewFunc("apiVersion()", "string")
	FuncToken         = w3.MustNewFunc("token()", "address")
	FuncName          = w3.MustNewFunc("name()", "string")
	FuncSymbol        = w3.MustNewFunc("symbol()", "string")
	FuncGovernance    = w3.MustNewFunc("governance()", "address")
	FuncGuardian      = w3.MustNewFunc("guardian()", "address")
	FuncRewards       = w3.MustNewFunc("rewards()", "address")
	FuncDepositLimit  = w3.MustNewFunc("depositLimit()", "uint256")
	FuncManagementFee = w3.MustNewFunc("managementFee()", "uint256")
	FuncDebtRatio     = w3.MustNewFunc("debtRatio()", "uint256")
	FuncStrategies    = w3.MustNewFunc("strategies(address)",
		"uint256,uint256,uint256,uint256,uint256,uint256,uint256,uint256,uint256")
)

type (
	// InitArgs are the arguments of initialize. A zero Guardian selects the
	// five argument overload, where the vault makes msg.sender the guardian.
	InitArgs struct {
		Token          common.Address
		Governance     common.Address
		Rewards        common.Address
		NameOverride   string
		SymbolOverride string
		Guardian       common.Address
	}

	StrategyArgs struct {
		Strategy          common.Address
		DebtRatio         *big.Int
		MinDebtPerHarvest *big.Int
		MaxDebtPerHarvest *big.Int
		PerformanceFee    *big.Int
	}

	// Info is what the deploy script prints before deploying a strategy.
	Info struct {
		APIVersion string
		Token      common.Address
		Name       string
		Symbol     string
	}

	StrategyParams struct {
		PerformanceFee    *big.Int
		Activation        *big.Int
		DebtRatio         *big.Int
		MinDebtPerHarvest *big.Int
		MaxDebtPerHarvest *big.Int
		LastReport        *big.Int
		TotalDebt         *big.Int
		TotalGain         *big.Int
		TotalLoss         *big.Int
	}
)

func Name() string { return name }

// MaxUint256 is 2**256 - 1.
func MaxUint256() *big.Int {
	return new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
}

func EncodeInit(args InitArgs) ([]byte, error) {
	if args.Guardian == (common.Address{}) {
		return FuncInitialize.EncodeArgs(args.Token, args.Governance, args.Rewards, args.NameOverride, args.SymbolOverride)
	}
	return FuncInitializeWithGuardian.EncodeArgs(args.Token, args.Governance, args.Rewards, args.NameOverride, args.SymbolOverride, args.Guardian)
}

func EncodeAddStrategy(args StrategyArgs) ([]byte, error) {
	return FuncAddStrategy.EncodeArgs(args.Strategy, args.DebtRatio, args.MinDebtPerHarvest, args.MaxDebtPerHarvest, args.PerformanceFee)
}

func EncodeSetDepositLimit(limit *big.Int) ([]byte, error) {
	return FuncSetDepositLimit.EncodeArgs(limit)
}

func EncodeSetManagementFee(fee *big.Int) ([]byte, error) {
	return FuncSetManagementFee.EncodeArgs(fee)
}

func APIVersion(ctx context.Context, chain *publish.Chain, addr common.Address) (string, error) {
	var version string
	if err := chain.Read(ctx, eth.CallFunc(addr, FuncAPIVersion).Returns(&version)); err != nil {
		return "", fmt.Errorf("vault %s apiVersion: %w", addr.Hex(), err)
	}
	return version, nil
}

func ReadInfo(ctx context.Context, chain *publish.Chain, addr common.Address) (Info, error) {
	var info Info
	err := chain.Read(ctx,
		eth.CallFunc(addr, FuncAPIVersion).Returns(&info.APIVersion),
		eth.CallFunc(addr, FuncToken).Returns(&info.Token),
		eth.CallFunc(addr, FuncName).Returns(&info.Name),
		eth.CallFunc(addr, FuncSymbol).Returns(&info.Symbol),
	)
	if err != nil {
		return Info{}, fmt.Errorf("read vault %s: %w", addr.Hex(), err)
	}
	return info, nil
}

func DepositLimit(ctx context.Context, chain *publish.Chain, addr common.Address) (*big.Int, error) {
	limit := new(big.Int)
	if err := chain.Read(ctx, eth.CallFunc(addr, FuncDepositLimit).Returns(limit)); err != nil {
		return nil, fmt.Errorf("vault %s depositLimit: %w", addr.Hex(), err)
	}
	return limit, nil
}

func ReadStrategyParams(ctx context.Context, chain *publish.Chain, addr, strategy common.Address) (StrategyParams, error) {
	p := StrategyParams{
		PerformanceFee:    new(big.Int),
		Activation:        new(big.Int),
		DebtRatio:         new(big.Int),
		MinDebtPerHarvest: new(big.Int),
		MaxDebtPerHarvest: new(big.Int),
		LastReport:        new(big.Int),
		TotalDebt:         new(big.Int),
		TotalGain:         new(big.Int),
		TotalLoss:         new(big.Int),
	}
	err := chain.Read(ctx, eth.CallFunc(addr, FuncStrategies, strategy).Returns(
		p.PerformanceFee, p.Activation, p.DebtRatio, p.MinDebtPerHarvest, p.MaxDebtPerHarvest,
		p.LastReport, p.TotalDebt, p.TotalGain, p.TotalLoss,
	))
	if err != nil {
		return StrategyParams{}, fmt.Errorf("vault %s strategies(%s): %w", addr.Hex(), strategy.Hex(), err)
	}
	return p, nil
}

// Active reports whether the vault has activated the strategy.
func (p StrategyParams) Active() bool {
	return p.Activation != nil && p.Activation.Sign() > 0
}
