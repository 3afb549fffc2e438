package publish

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/lmittmann/w3/module/eth"
)

// DefaultGasLimit is used for plain contract calls.
const DefaultGasLimit uint64 = 400_000

var ErrReverted = errors.New("transaction reverted")

type (
	DeployResult struct {
		TxHash          common.Hash
		ContractAddress common.Address
	}

	// Sender submits transactions from a single account.
	Sender interface {
		Address() common.Address
		Deploy(ctx context.Context, bytecode []byte, gasLimit uint64) (DeployResult, error)
		Transact(ctx context.Context, to common.Address, data []byte, gasLimit uint64) (common.Hash, error)
		WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	}

	// Deployer signs EIP-1559 transactions locally and submits them raw.
	Deployer struct {
		*Chain
		signer    types.Signer
		key       *ecdsa.PrivateKey
		address   common.Address
		gasFeeCap *big.Int
		gasTipCap *big.Int
	}
)

var _ Sender = (*Deployer)(nil)

func NewDeployer(chain *Chain, chainID int64, privateKey *ecdsa.PrivateKey, gasFeeCap, gasTipCap *big.Int) *Deployer {
	return &Deployer{
		Chain:     chain,
		signer:    types.NewLondonSigner(big.NewInt(chainID)),
		key:       privateKey,
		address:   crypto.PubkeyToAddress(privateKey.PublicKey),
		gasFeeCap: gasFeeCap,
		gasTipCap: gasTipCap,
	}
}

func (d *Deployer) Address() common.Address {
	return d.address
}

func (d *Deployer) sendTx(ctx context.Context, tx *types.Transaction) (common.Hash, error) {
	signedTx, err := types.SignTx(tx, d.signer, d.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx: %w", err)
	}
	var txHash common.Hash
	if err := d.client.CallCtx(ctx, eth.SendTx(signedTx).Returns(&txHash)); err != nil {
		return common.Hash{}, fmt.Errorf("send tx: %w", err)
	}
	if txHash != signedTx.Hash() {
		return common.Hash{}, fmt.Errorf("send tx: node returned hash %s, signed %s", txHash.Hex(), signedTx.Hash().Hex())
	}
	return txHash, nil
}

func (d *Deployer) Deploy(ctx context.Context, bytecode []byte, gasLimit uint64) (DeployResult, error) {
	nonce, err := d.Nonce(ctx, d.address)
	if err != nil {
		return DeployResult{}, err
	}

	contractAddr := crypto.CreateAddress(d.address, nonce)

	//  EIP-1559 only
	tx := types.NewTx(&types.DynamicFeeTx{
		Nonce:     nonce,
		GasFeeCap: d.gasFeeCap,
		GasTipCap: d.gasTipCap,
		Gas:       gasLimit,
		Data:      bytecode,
	})

	txHash, err := d.sendTx(ctx, tx)
	if err != nil {
		return DeployResult{}, err
	}

	return DeployResult{
		TxHash:          txHash,
		ContractAddress: contractAddr,
	}, nil
}

func (d *Deployer) Transact(ctx context.Context, to common.Address, data []byte, gasLimit uint64) (common.Hash, error) {
	nonce, err := d.Nonce(ctx, d.address)
	if err != nil {
		return common.Hash{}, err
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		Nonce:     nonce,
		To:        &to,
		GasFeeCap: d.gasFeeCap,
		GasTipCap: d.gasTipCap,
		Gas:       gasLimit,
		Data:      data,
	})

	return d.sendTx(ctx, tx)
}

// DeployContract deploys bytecode from s and waits until the deployment is mined.
func DeployContract(ctx context.Context, s Sender, name string, bytecode []byte, gasLimit uint64) (common.Address, error) {
	result, err := s.Deploy(ctx, bytecode, gasLimit)
	if err != nil {
		return common.Address{}, fmt.Errorf("deploy %s: %w", name, err)
	}
	if _, err := waitSuccess(ctx, s, name, result.TxHash); err != nil {
		return common.Address{}, err
	}
	return result.ContractAddress, nil
}

// Execute sends calldata to a contract from s and waits until it is mined.
func Execute(ctx context.Context, s Sender, name string, to common.Address, data []byte, gasLimit uint64) (*types.Receipt, error) {
	txHash, err := s.Transact(ctx, to, data, gasLimit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return waitSuccess(ctx, s, name, txHash)
}

func waitSuccess(ctx context.Context, s Sender, name string, txHash common.Hash) (*types.Receipt, error) {
	receipt, err := s.WaitForReceipt(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("wait %s: %w", name, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%s: %w: %s", name, ErrReverted, txHash.Hex())
	}
	return receipt, nil
}
