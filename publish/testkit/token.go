package testkit

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/akshaynexus/yearnv2-levgeist/publish/contracts/erc20"
)

var topicTransfer = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// Token is a plain ERC20. Balances are seeded with Mint before the node is
// used.
type Token struct {
	name     string
	symbol   string
	decimals uint8

	supply     *big.Int
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
}

func NewToken(name, symbol string, decimals uint8) *Token {
	return &Token{
		name:       name,
		symbol:     symbol,
		decimals:   decimals,
		supply:     new(big.Int),
		balances:   map[common.Address]*big.Int{},
		allowances: map[common.Address]map[common.Address]*big.Int{},
	}
}

func (t *Token) Mint(to common.Address, amount *big.Int) {
	t.supply.Add(t.supply, amount)
	t.balances[to] = new(big.Int).Add(t.balance(to), amount)
}

func (t *Token) balance(addr common.Address) *big.Int {
	if b, ok := t.balances[addr]; ok {
		return b
	}
	return new(big.Int)
}

func (t *Token) Handle(msg *Msg) ([]byte, error) {
	switch {
	case msg.Is(erc20.FuncName):
		return Returns(erc20.FuncName, t.name)
	case msg.Is(erc20.FuncSymbol):
		return Returns(erc20.FuncSymbol, t.symbol)
	case msg.Is(erc20.FuncDecimals):
		return Returns(erc20.FuncDecimals, t.decimals)
	case msg.Is(erc20.FuncTotalSupply):
		return Returns(erc20.FuncTotalSupply, t.supply)

	case msg.Is(erc20.FuncBalanceOf):
		var owner common.Address
		if err := msg.Args(erc20.FuncBalanceOf, &owner); err != nil {
			return nil, err
		}
		return Returns(erc20.FuncBalanceOf, t.balance(owner))

	case msg.Is(erc20.FuncAllowance):
		var owner, spender common.Address
		if err := msg.Args(erc20.FuncAllowance, &owner, &spender); err != nil {
			return nil, err
		}
		allowance := new(big.Int)
		if a, ok := t.allowances[owner][spender]; ok {
			allowance = a
		}
		return Returns(erc20.FuncAllowance, allowance)

	case msg.Is(erc20.FuncTransfer):
		var to common.Address
		amount := new(big.Int)
		if err := msg.Args(erc20.FuncTransfer, &to, amount); err != nil {
			return nil, err
		}
		if t.balance(msg.From).Cmp(amount) < 0 {
			return nil, Revert("ERC20: transfer amount exceeds balance")
		}
		if msg.Static {
			return Returns(erc20.FuncTransfer, true)
		}
		t.balances[msg.From] = new(big.Int).Sub(t.balance(msg.From), amount)
		t.balances[to] = new(big.Int).Add(t.balance(to), amount)
		data := common.LeftPadBytes(amount.Bytes(), 32)
		if err := msg.Emit([]common.Hash{topicTransfer, addressTopic(msg.From), addressTopic(to)}, data); err != nil {
			return nil, err
		}
		return Returns(erc20.FuncTransfer, true)

	case msg.Is(erc20.FuncApprove):
		var spender common.Address
		amount := new(big.Int)
		if err := msg.Args(erc20.FuncApprove, &spender, amount); err != nil {
			return nil, err
		}
		if msg.Static {
			return Returns(erc20.FuncApprove, true)
		}
		if t.allowances[msg.From] == nil {
			t.allowances[msg.From] = map[common.Address]*big.Int{}
		}
		t.allowances[msg.From][spender] = amount
		return Returns(erc20.FuncApprove, true)
	}
	return nil, ErrUnknownSelector
}

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}
