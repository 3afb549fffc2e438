package script_test

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/akshaynexus/yearnv2-levgeist/publish"
	"github.com/akshaynexus/yearnv2-levgeist/publish/config"
	"github.com/akshaynexus/yearnv2-levgeist/publish/contracts/ens"
	"github.com/akshaynexus/yearnv2-levgeist/publish/contracts/strategy"
	"github.com/akshaynexus/yearnv2-levgeist/publish/contracts/vault"
	"github.com/akshaynexus/yearnv2-levgeist/publish/prompt"
	"github.com/akshaynexus/yearnv2-levgeist/publish/script"
	"github.com/akshaynexus/yearnv2-levgeist/publish/testkit"
)

const apiVersion = "0.4.3"

var (
	vaultCode    = []byte("yearn vault")
	aaveCode     = []byte("aave utils")
	strategyCode = []byte("geist strategy")
)

type harness struct {
	node      *testkit.Node
	chain     *publish.Chain
	sender    *publish.Deployer
	deploy    config.Deploy
	artifacts config.Artifacts
	token     *testkit.Token
	registry  *testkit.Registry
	sharer    *testkit.Sharer
	ens       *testkit.ENS
	out       bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "publish.yaml"))
	require.NoError(t, err)

	node := testkit.NewNode(t)
	chain := node.Dial(t)
	h := &harness{
		node:      node,
		chain:     chain,
		sender:    publish.NewDeployer(chain, node.ChainID(), testkit.Key(0), big.NewInt(2_000_000_000), big.NewInt(1_000_000_000)),
		deploy:    cfg.Deploy,
		artifacts: writeArtifacts(t),
		token:     testkit.NewToken("Wrapped Fantom", "WFTM", 18),
		registry:  testkit.NewRegistry(apiVersion),
		sharer:    testkit.NewSharer(),
	}
	node.Install(common.HexToAddress(h.deploy.WantToken), h.token)
	node.Install(common.HexToAddress(h.deploy.VaultRegistry), h.registry)
	node.Install(common.HexToAddress(h.deploy.Sharer), h.sharer)
	h.ens = testkit.InstallENS(node, common.HexToAddress(h.deploy.ENSRegistry))

	node.Register(vaultCode, testkit.VaultFactory(apiVersion))
	node.Register(aaveCode, testkit.LibraryFactory())
	node.Register(strategyCode, testkit.StrategyFactory("StrategyGeistFTM"))
	return h
}

func writeArtifacts(t *testing.T) config.Artifacts {
	t.Helper()
	dir := t.TempDir()
	placeholder := "__AaveUtils" + strings.Repeat("_", 29)

	files := map[string]string{
		"Vault.json":     fmt.Sprintf(`{"contractName":"Vault","bytecode":"0x%x"}`, vaultCode),
		"AaveUtils.json": fmt.Sprintf(`{"contractName":"AaveUtils","sourcePath":"contracts/AaveUtils.sol","bytecode":"0x%x"}`, aaveCode),
		"Strategy.json":  fmt.Sprintf(`{"contractName":"Strategy","bytecode":"0x%s73%s00"}`, hex.EncodeToString(strategyCode), placeholder),
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	return config.Artifacts{
		Vault:     filepath.Join(dir, "Vault.json"),
		Strategy:  filepath.Join(dir, "Strategy.json"),
		AaveUtils: filepath.Join(dir, "AaveUtils.json"),
	}
}

func (h *harness) run(t *testing.T, input string) (script.Report, error) {
	t.Helper()
	return script.Run(context.Background(), script.Env{
		Network:     "development",
		AccountName: "dev",
		APIVersion:  apiVersion,
		Deploy:      h.deploy,
		Artifacts:   h.artifacts,
		Chain:       h.chain,
		Sender:      h.sender,
		Prompt:      prompt.New(strings.NewReader(input), &h.out),
		Resolver:    ens.NewResolver(h.chain, common.HexToAddress(h.deploy.ENSRegistry)),
		Log:         zaptest.NewLogger(t),
	})
}

// existingVault installs a vault governed by the deployer.
func (h *harness) existingVault(t *testing.T, version string) common.Address {
	t.Helper()
	addr := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	h.node.Install(addr, testkit.NewVault(version))

	dev := h.sender.Address()
	data, err := vault.EncodeInit(vault.InitArgs{Token: common.HexToAddress(h.deploy.WantToken), Governance: dev, Rewards: dev})
	require.NoError(t, err)
	_, err = publish.Execute(context.Background(), h.sender, "initialize", addr, data, publish.DefaultGasLimit)
	require.NoError(t, err)
	return addr
}

func (h *harness) existingStrategy(t *testing.T, vaultAddr common.Address) common.Address {
	t.Helper()
	code, err := strategy.DeployCode(strategyCode, vaultAddr)
	require.NoError(t, err)
	addr, err := publish.DeployContract(context.Background(), h.sender, "Strategy", code, strategy.ImplGasLimit)
	require.NoError(t, err)
	return addr
}

func (h *harness) vault(t *testing.T, addr common.Address) *testkit.Vault {
	t.Helper()
	v, ok := h.node.Contract(addr).(*testkit.Vault)
	require.True(t, ok, "no vault at %s", addr.Hex())
	return v
}

func TestRunDeploysVaultAndStrategy(t *testing.T) {
	h := newHarness(t)
	dev := h.sender.Address()

	report, err := h.run(t, "\n\n")
	require.NoError(t, err)

	vaultAddr := crypto.CreateAddress(dev, 0)
	aaveAddr := crypto.CreateAddress(dev, 2)
	strategyAddr := crypto.CreateAddress(dev, 3)
	assert.Equal(t, script.VaultDeployed, report.VaultSource)
	assert.Equal(t, vaultAddr.Hex(), report.Vault)
	assert.Equal(t, aaveAddr.Hex(), report.AaveUtils)
	assert.Equal(t, strategyAddr.Hex(), report.Strategy)
	assert.Equal(t, uint64(testkit.DefaultChainID), report.ChainID)
	assert.Contains(t, report.Transactions, "initialize")
	assert.Contains(t, report.Transactions, "addStrategy")
	assert.Contains(t, report.Transactions, "setDepositLimit")
	assert.NotContains(t, report.Transactions, "addContributors")

	v := h.vault(t, vaultAddr)
	assert.Equal(t, dev, v.Governance())
	assert.Equal(t, dev, v.Rewards())
	assert.Equal(t, dev, v.Guardian())
	assert.Zero(t, v.DepositLimit().Cmp(new(big.Int).Mul(big.NewInt(1008), big.NewInt(1e18))))

	params, ok := v.Strategy(strategyAddr)
	require.True(t, ok)
	assert.True(t, params.Active())
	assert.Zero(t, params.DebtRatio.Cmp(big.NewInt(9800)))
	assert.Zero(t, params.MinDebtPerHarvest.Sign())
	assert.Zero(t, params.MaxDebtPerHarvest.Cmp(vault.MaxUint256()))
	assert.Zero(t, params.PerformanceFee.Cmp(big.NewInt(1000)))

	out := h.out.String()
	assert.Contains(t, out, "You are using the 'development' network\n")
	assert.Contains(t, out, fmt.Sprintf("You are using: 'dev' [%s]\n", dev.Hex()))
	assert.Contains(t, out, "Is there a Vault for this strategy already? y/[N]: ")
	assert.Contains(t, out, "Deploy Strategy? [y]/n: ")
	assert.Contains(t, out, "Strategy Parameters")
	assert.Contains(t, out, "api: "+apiVersion)
	assert.Contains(t, out, "token: "+common.HexToAddress(h.deploy.WantToken).Hex())
	assert.Contains(t, out, "name: 'WFTM yVault'")
	assert.Contains(t, out, "symbol: 'yvWFTM'")
	assert.Contains(t, out, `"vault_source": "deployed"`)
}

func TestRunReusesVaultByName(t *testing.T) {
	h := newHarness(t)
	vaultAddr := h.existingVault(t, apiVersion)
	h.ens.SetAddr("vault.ychad.eth", vaultAddr)

	report, err := h.run(t, "Y\nnope\nvault.ychad.eth\ny\n")
	require.NoError(t, err)
	assert.Equal(t, script.VaultReused, report.VaultSource)
	assert.Equal(t, vaultAddr.Hex(), report.Vault)

	out := h.out.String()
	assert.Contains(t, out, "I'm sorry, but 'nope' is not a checksummed address or ENS\n")
	assert.Contains(t, out, fmt.Sprintf("Found ENS 'vault.ychad.eth' [%s]\n", vaultAddr.Hex()))
	assert.Equal(t, 2, strings.Count(out, "Deployed Vault: "))
	assert.Equal(t, 1, h.vault(t, vaultAddr).ActiveStrategies())
}

func TestRunRejectsVaultWithOtherAPIVersion(t *testing.T) {
	h := newHarness(t)
	vaultAddr := h.existingVault(t, "0.3.0")

	_, err := h.run(t, "y\n"+vaultAddr.Hex()+"\n")
	require.ErrorIs(t, err, script.ErrAPIVersionMismatch)
	assert.NotContains(t, h.out.String(), "Strategy Parameters")
}

func TestRunExperimentalVault(t *testing.T) {
	h := newHarness(t)
	h.deploy.Experimental = true

	report, err := h.run(t, "n\n\n")
	require.NoError(t, err)
	assert.Equal(t, script.VaultExperimental, report.VaultSource)
	require.Len(t, h.registry.Vaults(), 1)
	assert.Equal(t, h.registry.Vaults()[0].Hex(), report.Vault)
	assert.Contains(t, report.Transactions, "newExperimentalVault")
	assert.NotContains(t, report.Transactions, "initialize")

	v := h.vault(t, h.registry.Vaults()[0])
	assert.Equal(t, h.sender.Address(), v.Governance())
	assert.Equal(t, h.sender.Address(), v.Guardian())
	assert.Equal(t, 1, v.ActiveStrategies())
}

func TestRunAttachesExistingStrategy(t *testing.T) {
	h := newHarness(t)
	vaultAddr := h.existingVault(t, apiVersion)
	strategyAddr := h.existingStrategy(t, vaultAddr)

	report, err := h.run(t, fmt.Sprintf("y\n%s\nN\n%s\n", vaultAddr.Hex(), strategyAddr.Hex()))
	require.NoError(t, err)
	assert.Equal(t, strategyAddr.Hex(), report.Strategy)
	assert.Empty(t, report.AaveUtils)
	assert.Contains(t, h.out.String(), "Deployed Strategy: ")

	params, ok := h.vault(t, vaultAddr).Strategy(strategyAddr)
	require.True(t, ok)
	assert.True(t, params.Active())
}

func TestRunStrategyOfAnotherVaultReverts(t *testing.T) {
	h := newHarness(t)
	vaultAddr := h.existingVault(t, apiVersion)

	other := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	h.node.Install(other, testkit.NewVault(apiVersion))
	dev := h.sender.Address()
	data, err := vault.EncodeInit(vault.InitArgs{Token: common.HexToAddress(h.deploy.WantToken), Governance: dev, Rewards: dev})
	require.NoError(t, err)
	_, err = publish.Execute(context.Background(), h.sender, "initialize", other, data, publish.DefaultGasLimit)
	require.NoError(t, err)
	strategyAddr := h.existingStrategy(t, other)

	_, err = h.run(t, fmt.Sprintf("y\n%s\nn\n%s\n", vaultAddr.Hex(), strategyAddr.Hex()))
	require.ErrorIs(t, err, publish.ErrReverted)
	assert.Zero(t, h.vault(t, vaultAddr).ActiveStrategies())
}

// forgetfulVault accepts strategies but never reports them as active.
type forgetfulVault struct {
	*testkit.Vault
}

func (v forgetfulVault) Handle(msg *testkit.Msg) ([]byte, error) {
	if msg.Is(vault.FuncStrategies) {
		zero := new(big.Int)
		return testkit.Returns(vault.FuncStrategies, zero, zero, zero, zero, zero, zero, zero, zero, zero)
	}
	return v.Vault.Handle(msg)
}

// twoFacedStrategy names vault when the vault asks and other to anyone else.
type twoFacedStrategy struct {
	vault, other, want common.Address
}

func (s twoFacedStrategy) Handle(msg *testkit.Msg) ([]byte, error) {
	switch {
	case msg.Is(strategy.FuncVault):
		if msg.From == s.vault {
			return testkit.Returns(strategy.FuncVault, s.vault)
		}
		return testkit.Returns(strategy.FuncVault, s.other)
	case msg.Is(strategy.FuncWant):
		return testkit.Returns(strategy.FuncWant, s.want)
	}
	return nil, testkit.ErrUnknownSelector
}

func TestRunDetectsUnlinkedStrategy(t *testing.T) {
	t.Run("no activation", func(t *testing.T) {
		h := newHarness(t)
		vaultAddr := common.HexToAddress("0x00000000000000000000000000000000000000cc")
		inner := testkit.NewVault(apiVersion)
		h.node.Install(vaultAddr, forgetfulVault{inner})
		dev := h.sender.Address()
		data, err := vault.EncodeInit(vault.InitArgs{Token: common.HexToAddress(h.deploy.WantToken), Governance: dev, Rewards: dev})
		require.NoError(t, err)
		_, err = publish.Execute(context.Background(), h.sender, "initialize", vaultAddr, data, publish.DefaultGasLimit)
		require.NoError(t, err)
		strategyAddr := h.existingStrategy(t, vaultAddr)

		_, err = h.run(t, fmt.Sprintf("y\n%s\nn\n%s\n", vaultAddr.Hex(), strategyAddr.Hex()))
		require.ErrorIs(t, err, script.ErrNotLinked)
		assert.Contains(t, err.Error(), "no activation")
		assert.Equal(t, 1, inner.ActiveStrategies())
	})

	t.Run("strategy names another vault", func(t *testing.T) {
		h := newHarness(t)
		vaultAddr := h.existingVault(t, apiVersion)
		other := common.HexToAddress("0x00000000000000000000000000000000000000dd")
		strategyAddr := common.HexToAddress("0x00000000000000000000000000000000000000ee")
		h.node.Install(strategyAddr, twoFacedStrategy{vault: vaultAddr, other: other, want: common.HexToAddress(h.deploy.WantToken)})

		_, err := h.run(t, fmt.Sprintf("y\n%s\nn\n%s\n", vaultAddr.Hex(), strategyAddr.Hex()))
		require.ErrorIs(t, err, script.ErrNotLinked)
		assert.Contains(t, err.Error(), other.Hex())
		assert.Equal(t, 1, h.vault(t, vaultAddr).ActiveStrategies())
	})
}

func TestRunSharer(t *testing.T) {
	h := newHarness(t)
	h.deploy.SharerEnabled = true

	report, err := h.run(t, "\n\n")
	require.NoError(t, err)
	assert.Contains(t, report.Transactions, "setRewards")
	assert.Contains(t, report.Transactions, "addContributors")

	strategyAddr := common.HexToAddress(report.Strategy)
	s, ok := h.node.Contract(strategyAddr).(*testkit.Strategy)
	require.True(t, ok)
	assert.Equal(t, common.HexToAddress(h.deploy.Sharer), s.Rewards())

	contributors := h.sharer.Contributors(strategyAddr)
	require.Len(t, contributors, 2)
	assert.Equal(t, common.HexToAddress(h.deploy.Strategist), contributors[0].Account)
	assert.Equal(t, common.HexToAddress(h.deploy.StrategistMultisig), contributors[1].Account)
	assert.Zero(t, contributors[0].Shares.Cmp(big.NewInt(500)))
}

func TestRunMissingArtifact(t *testing.T) {
	h := newHarness(t)
	h.artifacts.Vault = filepath.Join(t.TempDir(), "missing.json")

	_, err := h.run(t, "\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read artifact")
}

func TestRunStopsAtEndOfInput(t *testing.T) {
	h := newHarness(t)
	vaultAddr := h.existingVault(t, apiVersion)
	h.ens.SetAddr("vault.ychad.eth", vaultAddr)

	_, err := h.run(t, "")
	require.ErrorIs(t, err, prompt.ErrNoInput)

	_, err = h.run(t, "y\nunknown.eth\n")
	require.ErrorIs(t, err, prompt.ErrNoInput)
	assert.Contains(t, h.out.String(), "I'm sorry, but 'unknown.eth' is not a checksummed address or ENS\n")
}

func TestIsChecksumAddress(t *testing.T) {
	addr := common.HexToAddress("0x5AA53f03197E08C4851CAD8C92c7922DA5857E5d")
	tests := []struct {
		in   string
		want bool
	}{
		{addr.Hex(), true},
		{strings.ToLower(addr.Hex()), false},
		{strings.TrimPrefix(addr.Hex(), "0x"), false},
		{"ychad.eth", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, script.IsChecksumAddress(tt.in))
		})
	}
}
