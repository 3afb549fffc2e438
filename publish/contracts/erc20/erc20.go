package erc20

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"
	"github.com/lmittmann/w3/module/eth"

	"github.com/akshaynexus/yearnv2-levgeist/publish"
)

const GasLimit = 100_000

var (
	FuncTransfer = w3.MustNewFunc("transfer(address,uint256)", "bool")
	FuncApprove  = w3.MustNewFunc("approve(address,uint256)", "bool")

	FuncBalanceOf   = w3.MustNewFunc("balanceOf(address)", "uint256")
	FuncAllowance   = w3.MustNewFunc("allowance(address,address)", "uint256")
	FuncTotalSupply = w3.MustNewFunc("totalSupply()", "uint256")
	FuncName        = w3.MustNewFunc("name()", "string")
	FuncSymbol      = w3.MustNewFunc("symbol()", "string")
	FuncDecimals    = w3.MustNewFunc("decimals()", "uint8")
)

type Metadata struct {
	Name     string
	Symbol   string
	Decimals uint8
}

func EncodeTransfer(to common.Address, amount *big.Int) ([]byte, error) {
	return FuncTransfer.EncodeArgs(to, amount)
}

func BalanceOf(ctx context.Context, chain *publish.Chain, token, owner common.Address) (*big.Int, error) {
	balance := new(big.Int)
	if err := chain.Read(ctx, eth.CallFunc(token, FuncBalanceOf, owner).Returns(balance)); err != nil {
		return nil, fmt.Errorf("token %s balanceOf(%s): %w", token.Hex(), owner.Hex(), err)
	}
	return balance, nil
}

func ReadMetadata(ctx context.Context, chain *publish.Chain, token common.Address) (Metadata, error) {
	var m Metadata
	err := chain.Read(ctx,
		eth.CallFunc(token, FuncName).Returns(&m.Name),
		eth.CallFunc(token, FuncSymbol).Returns(&m.Symbol),
		eth.CallFunc(token, FuncDecimals).Returns(&m.Decimals),
	)
	if err != nil {
		return Metadata{}, fmt.Errorf("read token %s: %w", token.Hex(), err)
	}
	return m, nil
}
