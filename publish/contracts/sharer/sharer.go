package sharer

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"
	"github.com/lmittmann/w3/module/eth"

	"github.com/akshaynexus/yearnv2-levgeist/publish"
)

const GasLimit = 500_000

var (
	FuncAddContributors = w3.MustNewFunc("addContributors(address,address[],uint256[])", "")
	FuncShares          = w3.MustNewFunc("shares(address,uint256)", "address,uint256")
)

type Contributor struct {
	Account common.Address
	Shares  *big.Int
}

func EncodeAddContributors(strategy common.Address, contributors []Contributor) ([]byte, error) {
	accounts := make([]common.Address, len(contributors))
	shares := make([]*big.Int, len(contributors))
	for i, c := range contributors {
		accounts[i] = c.Account
		shares[i] = c.Shares
	}
	return FuncAddContributors.EncodeArgs(strategy, accounts, shares)
}

// ReadContributor returns the i-th contributor registered for strategy.
func ReadContributor(ctx context.Context, chain *publish.Chain, addr, strategy common.Address, i int64) (Contributor, error) {
	c := Contributor{Shares: new(big.Int)}
	if err := chain.Read(ctx, eth.CallFunc(addr, FuncShares, strategy, big.NewInt(i)).Returns(&c.Account, c.Shares)); err != nil {
		return Contributor{}, fmt.Errorf("sharer %s shares(%s, %d): %w", addr.Hex(), strategy.Hex(), i, err)
	}
	return c, nil
}
