// Package fixtures builds the accounts and contracts integration tests run
// against. Every fixture is created on first use and memoised for the
// lifetime of its Set, which belongs to a single test.
package fixtures

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/akshaynexus/yearnv2-levgeist/publish"
	"github.com/akshaynexus/yearnv2-levgeist/publish/artifact"
	"github.com/akshaynexus/yearnv2-levgeist/publish/config"
	"github.com/akshaynexus/yearnv2-levgeist/publish/contracts/aaveutils"
	"github.com/akshaynexus/yearnv2-levgeist/publish/contracts/erc20"
	"github.com/akshaynexus/yearnv2-levgeist/publish/contracts/strategy"
	"github.com/akshaynexus/yearnv2-levgeist/publish/contracts/vault"
)

// Param is one currency the fixtures are parameterised over, with an
// account holding enough of it to seed tests.
type Param struct {
	Name     string
	Currency common.Address
	Whale    common.Address
}

var Params = []Param{
	{
		Name:     "FTM Geist",
		Currency: common.HexToAddress("0x21be370d5312f44cb42ce377bc9b8a0cef1a4c83"),
		Whale:    common.HexToAddress("0x5AA53f03197E08C4851CAD8C92c7922DA5857E5d"),
	},
}

// ForEachParam runs fn as a subtest once per parameter set.
func ForEachParam(t *testing.T, fn func(t *testing.T, p Param)) {
	for _, p := range Params {
		t.Run(p.Name, func(t *testing.T) {
			fn(t, p)
		})
	}
}

const (
	andre = iota
	gov
	guardian
	strategist
	keeper
	bob
	alice

	roleCount
)

type Options struct {
	Artifacts config.Artifacts
	// ImpersonateMethod unlocks the whale, e.g. anvil_impersonateAccount.
	ImpersonateMethod string
	DeployGasLimit    uint64
}

// OptionsFrom takes artifact paths, the impersonation method and the deploy
// gas limit from cfg.
func OptionsFrom(cfg config.Config) Options {
	return Options{
		Artifacts:         cfg.Artifacts,
		ImpersonateMethod: cfg.Fixtures.ImpersonateMethod,
		DeployGasLimit:    cfg.Deploy.DeployGasLimit,
	}
}

type Set struct {
	tb    testing.TB
	ctx   context.Context
	chain *publish.Chain
	param Param
	opts  Options

	accounts []common.Address
	currency *common.Address
	whale    *common.Address
	vault    *common.Address
	strategy *common.Address
}

func New(tb testing.TB, chain *publish.Chain, param Param, opts Options) *Set {
	tb.Helper()
	if opts.ImpersonateMethod == "" {
		opts.ImpersonateMethod = "anvil_impersonateAccount"
	}
	if opts.DeployGasLimit == 0 {
		opts.DeployGasLimit = vault.ImplGasLimit
	}
	return &Set{tb: tb, ctx: context.Background(), chain: chain, param: param, opts: opts}
}

// Connect dials the dev node named by cfg and skips the test when it is not
// reachable.
func Connect(tb testing.TB, cfg config.Fixtures) *publish.Chain {
	tb.Helper()
	ctx := context.Background()
	chain, err := publish.Dial(ctx, cfg.RPCURL)
	if err != nil {
		tb.Skipf("dev node %s: %v", cfg.RPCURL, err)
	}
	if _, err := chain.ChainID(ctx); err != nil {
		_ = chain.Close()
		tb.Skipf("dev node %s: %v", cfg.RPCURL, err)
	}
	tb.Cleanup(func() { _ = chain.Close() })
	return chain
}

func (s *Set) Chain() *publish.Chain { return s.chain }

func (s *Set) account(i int) common.Address {
	s.tb.Helper()
	if s.accounts == nil {
		accounts, err := s.chain.Accounts(s.ctx)
		require.NoError(s.tb, err)
		require.GreaterOrEqual(s.tb, len(accounts), roleCount, "dev node has too few accounts")
		s.accounts = accounts
	}
	return s.accounts[i]
}

func (s *Set) Andre() common.Address      { return s.account(andre) }
func (s *Set) Gov() common.Address        { return s.account(gov) }
func (s *Set) Guardian() common.Address   { return s.account(guardian) }
func (s *Set) Strategist() common.Address { return s.account(strategist) }
func (s *Set) Keeper() common.Address     { return s.account(keeper) }
func (s *Set) Bob() common.Address        { return s.account(bob) }
func (s *Set) Alice() common.Address      { return s.account(alice) }

// Rewards is the governance account.
func (s *Set) Rewards() common.Address { return s.Gov() }

// Sender sends transactions from addr through the node.
func (s *Set) Sender(addr common.Address) publish.Sender {
	return publish.NewUnlockedAccount(s.chain, addr)
}

// Currency is the parameter's token. It must already be deployed.
func (s *Set) Currency() common.Address {
	s.tb.Helper()
	if s.currency == nil {
		code, err := s.chain.CodeAt(s.ctx, s.param.Currency)
		require.NoError(s.tb, err)
		require.NotEmpty(s.tb, code, "no token at %s", s.param.Currency.Hex())
		meta, err := erc20.ReadMetadata(s.ctx, s.chain, s.param.Currency)
		require.NoError(s.tb, err)
		s.tb.Logf("%s: currency %s (%s, %d decimals)", s.param.Name, meta.Symbol, s.param.Currency.Hex(), meta.Decimals)
		addr := s.param.Currency
		s.currency = &addr
	}
	return *s.currency
}

// Whale is the parameter's large holder, unlocked through impersonation.
func (s *Set) Whale() common.Address {
	s.tb.Helper()
	if s.whale == nil {
		addr := s.param.Whale
		require.NoError(s.tb, s.chain.RawCall(s.ctx, nil, s.opts.ImpersonateMethod, addr))
		s.whale = &addr
	}
	return *s.whale
}

// Vault is deployed by gov and guarded by guardian, with no management fee
// and no deposit limit.
func (s *Set) Vault() common.Address {
	s.tb.Helper()
	if s.vault != nil {
		return *s.vault
	}
	currency, gov, rewards, guardian := s.Currency(), s.Gov(), s.Rewards(), s.Guardian()
	from := s.Sender(gov)

	code := s.code(s.opts.Artifacts.Vault)
	addr, err := publish.DeployContract(s.ctx, from, vault.Name(), code, s.opts.DeployGasLimit)
	require.NoError(s.tb, err)

	init, err := vault.EncodeInit(vault.InitArgs{
		Token:      currency,
		Governance: gov,
		Rewards:    rewards,
		Guardian:   guardian,
	})
	require.NoError(s.tb, err)
	s.execute(from, "initialize", addr, init)

	fee, err := vault.EncodeSetManagementFee(new(big.Int))
	require.NoError(s.tb, err)
	s.execute(from, "setManagementFee", addr, fee)

	limit, err := vault.EncodeSetDepositLimit(vault.MaxUint256())
	require.NoError(s.tb, err)
	s.execute(from, "setDepositLimit", addr, limit)

	s.vault = &addr
	return addr
}

// Strategy is deployed by strategist against Vault, with AaveUtils linked in
// and keeper set.
func (s *Set) Strategy() common.Address {
	s.tb.Helper()
	if s.strategy != nil {
		return *s.strategy
	}
	vaultAddr, strat, keeperAddr := s.Vault(), s.Strategist(), s.Keeper()
	from := s.Sender(strat)

	lib, err := artifact.Load(s.opts.Artifacts.AaveUtils)
	require.NoError(s.tb, err)
	libCode, err := lib.Code()
	require.NoError(s.tb, err)
	libAddr, err := publish.DeployContract(s.ctx, from, aaveutils.Name(), libCode, aaveutils.GasLimit)
	require.NoError(s.tb, err)

	impl, err := artifact.Load(s.opts.Artifacts.Strategy)
	require.NoError(s.tb, err)
	bytecode, err := impl.Link(lib, libAddr).Code()
	require.NoError(s.tb, err)
	code, err := strategy.DeployCode(bytecode, vaultAddr)
	require.NoError(s.tb, err)
	addr, err := publish.DeployContract(s.ctx, from, strategy.Name(), code, s.opts.DeployGasLimit)
	require.NoError(s.tb, err)

	data, err := strategy.EncodeSetKeeper(keeperAddr)
	require.NoError(s.tb, err)
	s.execute(from, "setKeeper", addr, data)

	s.strategy = &addr
	return addr
}

// SeedBalance transfers amount of the currency from the whale to to.
func (s *Set) SeedBalance(to common.Address, amount *big.Int) {
	s.tb.Helper()
	currency, whale := s.Currency(), s.Whale()
	data, err := erc20.EncodeTransfer(to, amount)
	require.NoError(s.tb, err)
	s.execute(s.Sender(whale), fmt.Sprintf("seed %s", to.Hex()), currency, data)
}

func (s *Set) code(path string) []byte {
	s.tb.Helper()
	a, err := artifact.Load(path)
	require.NoError(s.tb, err)
	code, err := a.Code()
	require.NoError(s.tb, err)
	return code
}

func (s *Set) execute(from publish.Sender, name string, to common.Address, data []byte) {
	s.tb.Helper()
	_, err := publish.Execute(s.ctx, from, name, to, data, publish.DefaultGasLimit)
	require.NoError(s.tb, err)
}
