package testkit

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// CallArgs is the transaction object of eth_call and eth_sendTransaction.
type CallArgs struct {
	From  *common.Address `json:"from"`
	To    *common.Address `json:"to"`
	Data  *hexutil.Bytes  `json:"data"`
	Input *hexutil.Bytes  `json:"input"`
}

func (a CallArgs) data() []byte {
	if a.Input != nil {
		return *a.Input
	}
	if a.Data != nil {
		return *a.Data
	}
	return nil
}

func (a CallArgs) from() common.Address {
	if a.From == nil {
		return common.Address{}
	}
	return *a.From
}

type ethAPI struct {
	n *Node
}

func (api *ethAPI) ChainId() hexutil.Uint64 {
	return hexutil.Uint64(api.n.chainID.Uint64())
}

func (api *ethAPI) BlockNumber() hexutil.Uint64 {
	api.n.mu.Lock()
	defer api.n.mu.Unlock()
	return hexutil.Uint64(api.n.block)
}

func (api *ethAPI) GasPrice() *hexutil.Big {
	return (*hexutil.Big)(big.NewInt(1_000_000_000))
}

func (api *ethAPI) MaxPriorityFeePerGas() *hexutil.Big {
	return (*hexutil.Big)(big.NewInt(1_000_000_000))
}

func (api *ethAPI) EstimateGas(args CallArgs, block *string) hexutil.Uint64 {
	return gasUsed * 10
}

func (api *ethAPI) Accounts() []common.Address {
	return api.n.Accounts()
}

func (api *ethAPI) GetTransactionCount(addr common.Address, block *string) hexutil.Uint64 {
	return hexutil.Uint64(api.n.Nonce(addr))
}

func (api *ethAPI) GetCode(addr common.Address, block *string) hexutil.Bytes {
	api.n.mu.Lock()
	defer api.n.mu.Unlock()
	return append(hexutil.Bytes{}, api.n.code[addr]...)
}

func (api *ethAPI) Call(args CallArgs, block *string) (hexutil.Bytes, error) {
	if args.To == nil {
		return nil, errors.New("eth_call without to")
	}
	out, err := api.n.StaticCall(args.from(), *args.To, args.data())
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (api *ethAPI) SendRawTransaction(input hexutil.Bytes) (common.Hash, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(input); err != nil {
		return common.Hash{}, fmt.Errorf("decode tx: %w", err)
	}
	if tx.ChainId().Cmp(api.n.chainID) != 0 {
		return common.Hash{}, fmt.Errorf("invalid chain id %s, want %s", tx.ChainId(), api.n.chainID)
	}
	from, err := types.Sender(api.n.signer, tx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid sender: %w", err)
	}

	api.n.mu.Lock()
	defer api.n.mu.Unlock()
	if err := api.n.checkNonce(from, tx.Nonce()); err != nil {
		return common.Hash{}, err
	}
	api.n.apply(tx.Hash(), tx.Type(), from, tx.To(), tx.Data())
	return tx.Hash(), nil
}

func (api *ethAPI) SendTransaction(args CallArgs) (common.Hash, error) {
	if args.From == nil {
		return common.Hash{}, errors.New("missing from")
	}
	from := *args.From

	api.n.mu.Lock()
	defer api.n.mu.Unlock()
	if !api.n.unlocked(from) {
		return common.Hash{}, fmt.Errorf("unknown account %s", from.Hex())
	}
	txHash := unsignedTxHash(from, api.n.nonces[from], args.data())
	api.n.apply(txHash, types.DynamicFeeTxType, from, args.To, args.data())
	return txHash, nil
}

func (api *ethAPI) GetTransactionReceipt(txHash common.Hash) *types.Receipt {
	api.n.mu.Lock()
	defer api.n.mu.Unlock()
	return api.n.receipts[txHash]
}

// impersonationAPI serves both anvil_ and hardhat_ impersonation calls.
type impersonationAPI struct {
	n *Node
}

func (api *impersonationAPI) ImpersonateAccount(addr common.Address) error {
	api.n.mu.Lock()
	defer api.n.mu.Unlock()
	api.n.impersonated[addr] = true
	return nil
}

func (api *impersonationAPI) StopImpersonatingAccount(addr common.Address) error {
	api.n.mu.Lock()
	defer api.n.mu.Unlock()
	delete(api.n.impersonated, addr)
	return nil
}
