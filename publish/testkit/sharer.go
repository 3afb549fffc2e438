package testkit

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/akshaynexus/yearnv2-levgeist/publish/contracts/sharer"
	"github.com/akshaynexus/yearnv2-levgeist/publish/contracts/strategy"
)

// Sharer splits strategy rewards between contributors. Only the strategist
// of a strategy may register its contributors.
type Sharer struct {
	shares map[common.Address][]sharer.Contributor
}

func NewSharer() *Sharer {
	return &Sharer{shares: map[common.Address][]sharer.Contributor{}}
}

// Contributors returns the contributors registered for strat.
func (s *Sharer) Contributors(strat common.Address) []sharer.Contributor {
	return append([]sharer.Contributor(nil), s.shares[strat]...)
}

func (s *Sharer) Handle(msg *Msg) ([]byte, error) {
	switch {
	case msg.Is(sharer.FuncAddContributors):
		var (
			strat    common.Address
			accounts []common.Address
			shares   []*big.Int
		)
		if err := msg.Args(sharer.FuncAddContributors, &strat, &accounts, &shares); err != nil {
			return nil, err
		}
		if len(accounts) != len(shares) {
			return nil, Revert("length mismatch")
		}
		var strategist common.Address
		if err := msg.CallFunc(strat, strategy.FuncStrategist, nil, &strategist); err != nil {
			return nil, Revert("strategist: %v", err)
		}
		if msg.From != strategist {
			return nil, Revert("!strategist")
		}
		if msg.Static {
			return nil, nil
		}
		for i, a := range accounts {
			s.shares[strat] = append(s.shares[strat], sharer.Contributor{Account: a, Shares: shares[i]})
		}
		return nil, nil

	case msg.Is(sharer.FuncShares):
		var strat common.Address
		i := new(big.Int)
		if err := msg.Args(sharer.FuncShares, &strat, i); err != nil {
			return nil, err
		}
		list := s.shares[strat]
		if !i.IsInt64() || i.Int64() >= int64(len(list)) {
			return nil, Revert("index out of range")
		}
		c := list[i.Int64()]
		return Returns(sharer.FuncShares, c.Account, c.Shares)
	}
	return nil, ErrUnknownSelector
}
