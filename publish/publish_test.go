package publish_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akshaynexus/yearnv2-levgeist/publish"
	"github.com/akshaynexus/yearnv2-levgeist/publish/contracts/vault"
	"github.com/akshaynexus/yearnv2-levgeist/publish/testkit"
)

var libraryCode = []byte("library")

func newNode(t *testing.T) (*testkit.Node, *publish.Chain) {
	t.Helper()
	node := testkit.NewNode(t)
	node.Register(libraryCode, testkit.LibraryFactory())
	return node, node.Dial(t)
}

func TestDeployerDeploy(t *testing.T) {
	ctx := context.Background()
	node, chain := newNode(t)

	d := publish.NewDeployer(chain, node.ChainID(), testkit.Key(0), big.NewInt(2_000_000_000), big.NewInt(1_000_000_000))
	assert.Equal(t, node.Accounts()[0], d.Address())

	addr, err := publish.DeployContract(ctx, d, "AaveUtils", libraryCode, 2_000_000)
	require.NoError(t, err)
	assert.Equal(t, crypto.CreateAddress(d.Address(), 0), addr)
	assert.NotNil(t, node.Contract(addr))

	addr, err = publish.DeployContract(ctx, d, "AaveUtils", libraryCode, 2_000_000)
	require.NoError(t, err)
	assert.Equal(t, crypto.CreateAddress(d.Address(), 1), addr)
	assert.Equal(t, uint64(2), node.Nonce(d.Address()))
}

func TestDeployerWrongChainID(t *testing.T) {
	node, chain := newNode(t)

	d := publish.NewDeployer(chain, node.ChainID()+1, testkit.Key(0), big.NewInt(1), big.NewInt(1))
	_, err := d.Deploy(context.Background(), libraryCode, 2_000_000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chain id")
}

func TestDeployUnknownCodeReverts(t *testing.T) {
	node, chain := newNode(t)

	d := publish.NewDeployer(chain, node.ChainID(), testkit.Key(0), big.NewInt(1), big.NewInt(1))
	_, err := publish.DeployContract(context.Background(), d, "Mystery", []byte("mystery"), 1_000_000)
	require.ErrorIs(t, err, publish.ErrReverted)
	assert.Contains(t, err.Error(), "Mystery")
}

func TestExecute(t *testing.T) {
	ctx := context.Background()
	node, chain := newNode(t)

	token := testkit.NewToken("Wrapped Fantom", "WFTM", 18)
	tokenAddr := common.HexToAddress("0x21be370d5312f44cb42ce377bc9b8a0cef1a4c83")
	node.Install(tokenAddr, token)

	gov := node.Accounts()[1]
	v := testkit.NewVault("0.4.3")
	vaultAddr := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	node.Install(vaultAddr, v)

	d := publish.NewDeployer(chain, node.ChainID(), testkit.Key(0), big.NewInt(1), big.NewInt(1))
	init, err := vault.EncodeInit(vault.InitArgs{Token: tokenAddr, Governance: gov, Rewards: gov})
	require.NoError(t, err)

	receipt, err := publish.Execute(ctx, d, "initialize", vaultAddr, init, publish.DefaultGasLimit)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	assert.Equal(t, gov, v.Governance())
	assert.Equal(t, d.Address(), v.Guardian())

	limit, err := vault.EncodeSetDepositLimit(big.NewInt(1))
	require.NoError(t, err)
	_, err = publish.Execute(ctx, d, "setDepositLimit", vaultAddr, limit, publish.DefaultGasLimit)
	require.ErrorIs(t, err, publish.ErrReverted)

	govSender := publish.NewUnlockedAccount(chain, gov)
	_, err = publish.Execute(ctx, govSender, "setDepositLimit", vaultAddr, limit, publish.DefaultGasLimit)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1), v.DepositLimit())
}

func TestUnlockedAccount(t *testing.T) {
	ctx := context.Background()
	node, chain := newNode(t)

	from := node.Accounts()[3]
	a := publish.NewUnlockedAccount(chain, from)
	assert.Equal(t, from, a.Address())

	addr, err := publish.DeployContract(ctx, a, "AaveUtils", libraryCode, 2_000_000)
	require.NoError(t, err)
	assert.Equal(t, crypto.CreateAddress(from, 0), addr)
	assert.NotNil(t, node.Contract(addr))
}

func TestUnlockedAccountNeedsImpersonation(t *testing.T) {
	ctx := context.Background()
	node, chain := newNode(t)

	whale := common.HexToAddress("0x5AA53f03197E08C4851CAD8C92c7922DA5857E5d")
	a := publish.NewUnlockedAccount(chain, whale)
	_, err := a.Deploy(ctx, libraryCode, 2_000_000)
	require.Error(t, err)

	require.NoError(t, chain.RawCall(ctx, nil, "anvil_impersonateAccount", whale))
	assert.True(t, node.Impersonating(whale))

	_, err = publish.DeployContract(ctx, a, "AaveUtils", libraryCode, 2_000_000)
	require.NoError(t, err)
}

func TestChainReads(t *testing.T) {
	ctx := context.Background()
	node, chain := newNode(t)

	id, err := chain.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(testkit.DefaultChainID), id)

	accounts, err := chain.Accounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, node.Accounts(), accounts)

	code, err := chain.CodeAt(ctx, common.HexToAddress("0x01"))
	require.NoError(t, err)
	assert.Empty(t, code)
}

func TestWaitForReceiptHonoursContext(t *testing.T) {
	_, chain := newNode(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := chain.WaitForReceipt(ctx, common.HexToHash("0x1234"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitForReceiptTimeout(t *testing.T) {
	_, chain := newNode(t)
	chain.ReceiptTimeout = 20 * time.Millisecond

	_, err := chain.WaitForReceipt(context.Background(), common.HexToHash("0x1234"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDeployerTransactReturnsSignedHash(t *testing.T) {
	ctx := context.Background()
	node, chain := newNode(t)

	feeCap, tipCap := big.NewInt(2_000_000_000), big.NewInt(1_000_000_000)
	d := publish.NewDeployer(chain, node.ChainID(), testkit.Key(0), feeCap, tipCap)
	to := node.Accounts()[1]
	data := []byte{0xca, 0xfe}

	txHash, err := d.Transact(ctx, to, data, publish.DefaultGasLimit)
	require.NoError(t, err)

	want, err := types.SignTx(types.NewTx(&types.DynamicFeeTx{
		Nonce:     0,
		To:        &to,
		GasFeeCap: feeCap,
		GasTipCap: tipCap,
		Gas:       publish.DefaultGasLimit,
		Data:      data,
	}), types.NewLondonSigner(big.NewInt(node.ChainID())), testkit.Key(0))
	require.NoError(t, err)
	assert.Equal(t, want.Hash(), txHash)

	receipt, err := chain.WaitForReceipt(ctx, txHash)
	require.NoError(t, err)
	assert.Equal(t, txHash, receipt.TxHash)
	assert.Equal(t, 1, node.Receipts())
}
