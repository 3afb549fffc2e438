// Package ens resolves ENS names to addresses through the registry and the
// name's public resolver.
package ens

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/lmittmann/w3"
	"github.com/lmittmann/w3/module/eth"

	"github.com/akshaynexus/yearnv2-levgeist/publish"
)

// RegistryAddress is the ENS registry on Ethereum mainnet.
var RegistryAddress = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")

var (
	FuncResolver = w3.MustNewFunc("resolver(bytes32)", "address")
	FuncAddr     = w3.MustNewFunc("addr(bytes32)", "address")
)

type Resolver struct {
	chain    *publish.Chain
	registry common.Address
}

func NewResolver(chain *publish.Chain, registry common.Address) *Resolver {
	return &Resolver{chain: chain, registry: registry}
}

// Namehash implements EIP-137. Labels are lowercased; full UTS-46
// normalisation is not applied.
func Namehash(name string) common.Hash {
	var node common.Hash
	if name == "" {
		return node
	}
	labels := strings.Split(strings.ToLower(name), ".")
	for i := len(labels) - 1; i >= 0; i-- {
		label := crypto.Keccak256([]byte(labels[i]))
		node = common.BytesToHash(crypto.Keccak256(node.Bytes(), label))
	}
	return node
}

// Resolve returns the address name points to. ok is false when the value is
// not a name, the network has no registry, or nothing is registered.
func (r *Resolver) Resolve(ctx context.Context, name string) (addr common.Address, ok bool, err error) {
	if !looksLikeName(name) {
		return common.Address{}, false, nil
	}

	code, err := r.chain.CodeAt(ctx, r.registry)
	if err != nil {
		return common.Address{}, false, err
	}
	if len(code) == 0 {
		return common.Address{}, false, nil
	}

	node := Namehash(name)
	var resolver common.Address
	if err := r.chain.Read(ctx, eth.CallFunc(r.registry, FuncResolver, node).Returns(&resolver)); err != nil {
		return common.Address{}, false, fmt.Errorf("ens resolver(%s): %w", name, err)
	}
	if resolver == (common.Address{}) {
		return common.Address{}, false, nil
	}

	if err := r.chain.Read(ctx, eth.CallFunc(resolver, FuncAddr, node).Returns(&addr)); err != nil {
		return common.Address{}, false, fmt.Errorf("ens addr(%s): %w", name, err)
	}
	if addr == (common.Address{}) {
		return common.Address{}, false, nil
	}
	return addr, true, nil
}

func looksLikeName(v string) bool {
	if v == "" || strings.ContainsAny(v, " \t") {
		return false
	}
	i := strings.LastIndex(v, ".")
	return i > 0 && i < len(v)-1
}
