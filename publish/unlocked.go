package publish

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// UnlockedAccount sends transactions through eth_sendTransaction and relies on
// the node to sign them. Dev nodes unlock their own accounts and any account
// they impersonate.
type UnlockedAccount struct {
	*Chain
	address common.Address
}

var _ Sender = (*UnlockedAccount)(nil)

type txArgs struct {
	From common.Address  `json:"from"`
	To   *common.Address `json:"to,omitempty"`
	Gas  hexutil.Uint64  `json:"gas,omitempty"`
	Data hexutil.Bytes   `json:"data"`
}

func NewUnlockedAccount(chain *Chain, address common.Address) *UnlockedAccount {
	return &UnlockedAccount{Chain: chain, address: address}
}

func (a *UnlockedAccount) Address() common.Address {
	return a.address
}

func (a *UnlockedAccount) Deploy(ctx context.Context, bytecode []byte, gasLimit uint64) (DeployResult, error) {
	nonce, err := a.Nonce(ctx, a.address)
	if err != nil {
		return DeployResult{}, err
	}
	txHash, err := a.send(ctx, txArgs{From: a.address, Gas: hexutil.Uint64(gasLimit), Data: bytecode})
	if err != nil {
		return DeployResult{}, err
	}
	return DeployResult{
		TxHash:          txHash,
		ContractAddress: crypto.CreateAddress(a.address, nonce),
	}, nil
}

func (a *UnlockedAccount) Transact(ctx context.Context, to common.Address, data []byte, gasLimit uint64) (common.Hash, error) {
	return a.send(ctx, txArgs{From: a.address, To: &to, Gas: hexutil.Uint64(gasLimit), Data: data})
}

func (a *UnlockedAccount) send(ctx context.Context, args txArgs) (common.Hash, error) {
	var txHash common.Hash
	if err := a.rpc.CallContext(ctx, &txHash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, fmt.Errorf("send tx from %s: %w", a.address.Hex(), err)
	}
	return txHash, nil
}
