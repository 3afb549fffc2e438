package strategy

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"
	"github.com/lmittmann/w3/module/eth"

	"github.com/akshaynexus/yearnv2-levgeist/publish"
)

const (
	name         = "Strategy"
	ImplGasLimit = 6_000_000
)

var (
	FuncSetKeeper  = w3.MustNewFunc("setKeeper(address)", "")
	FuncSetRewards = w3.MustNewFunc("setRewards(address)", "")

	FuncVault      = w3.MustNewFunc("vault()", "address")
	FuncWant       = w3.MustNewFunc("want()", "address")
	FuncKeeper     = w3.MustNewFunc("keeper()", "address")
	FuncStrategist = w3.MustNewFunc("strategist()", "address")
	FuncRewards    = w3.MustNewFunc("rewards()", "address")
	FuncName       = w3.MustNewFunc("name()", "string")
	FuncAPIVersion = w3.MustNewFunc("apiVersion()", "string")

	constructorArgs = abi.Arguments{{Type: mustType("address")}}
)

type Roles struct {
	Vault      common.Address
	Want       common.Address
	Strategist common.Address
	Keeper     common.Address
	Rewards    common.Address
}

func Name() string { return name }

// DeployCode appends the constructor(address vault) arguments to bytecode.
func DeployCode(bytecode []byte, vault common.Address) ([]byte, error) {
	args, err := constructorArgs.Pack(vault)
	if err != nil {
		return nil, fmt.Errorf("encode %s constructor: %w", name, err)
	}
	code := make([]byte, 0, len(bytecode)+len(args))
	code = append(code, bytecode...)
	return append(code, args...), nil
}

// DecodeConstructor decodes the constructor arguments trailing the bytecode.
func DecodeConstructor(args []byte) (common.Address, error) {
	values, err := constructorArgs.Unpack(args)
	if err != nil {
		return common.Address{}, fmt.Errorf("decode %s constructor: %w", name, err)
	}
	vault, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("decode %s constructor: unexpected %T", name, values[0])
	}
	return vault, nil
}

func EncodeSetKeeper(keeper common.Address) ([]byte, error) {
	return FuncSetKeeper.EncodeArgs(keeper)
}

func EncodeSetRewards(rewards common.Address) ([]byte, error) {
	return FuncSetRewards.EncodeArgs(rewards)
}

func VaultOf(ctx context.Context, chain *publish.Chain, addr common.Address) (common.Address, error) {
	var vault common.Address
	if err := chain.Read(ctx, eth.CallFunc(addr, FuncVault).Returns(&vault)); err != nil {
		return common.Address{}, fmt.Errorf("strategy %s vault: %w", addr.Hex(), err)
	}
	return vault, nil
}

func ReadRoles(ctx context.Context, chain *publish.Chain, addr common.Address) (Roles, error) {
	var r Roles
	err := chain.Read(ctx,
		eth.CallFunc(addr, FuncVault).Returns(&r.Vault),
		eth.CallFunc(addr, FuncWant).Returns(&r.Want),
		eth.CallFunc(addr, FuncStrategist).Returns(&r.Strategist),
		eth.CallFunc(addr, FuncKeeper).Returns(&r.Keeper),
		eth.CallFunc(addr, FuncRewards).Returns(&r.Rewards),
	)
	if err != nil {
		return Roles{}, fmt.Errorf("read strategy %s: %w", addr.Hex(), err)
	}
	return r, nil
}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}
