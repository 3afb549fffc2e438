package testkit

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/akshaynexus/yearnv2-levgeist/publish/contracts/ens"
)

// ENS is a registry that points every name at one resolver, plus that
// resolver.
type ENS struct {
	resolver common.Address
	addrs    map[common.Hash]common.Address
}

type ensResolver struct {
	ens *ENS
}

// InstallENS places an ENS registry at registry and its resolver next to it.
func InstallENS(n *Node, registry common.Address) *ENS {
	e := &ENS{
		resolver: common.BytesToAddress(crypto.Keccak256(registry.Bytes(), []byte("resolver"))),
		addrs:    map[common.Hash]common.Address{},
	}
	n.Install(registry, e)
	n.Install(e.resolver, &ensResolver{ens: e})
	return e
}

// SetAddr registers name. Unregistered names have no resolver.
func (e *ENS) SetAddr(name string, addr common.Address) {
	e.addrs[ens.Namehash(name)] = addr
}

func (e *ENS) Handle(msg *Msg) ([]byte, error) {
	if !msg.Is(ens.FuncResolver) {
		return nil, ErrUnknownSelector
	}
	var node common.Hash
	if err := msg.Args(ens.FuncResolver, &node); err != nil {
		return nil, err
	}
	if _, ok := e.addrs[node]; !ok {
		return Returns(ens.FuncResolver, common.Address{})
	}
	return Returns(ens.FuncResolver, e.resolver)
}

func (r *ensResolver) Handle(msg *Msg) ([]byte, error) {
	if !msg.Is(ens.FuncAddr) {
		return nil, ErrUnknownSelector
	}
	var node common.Hash
	if err := msg.Args(ens.FuncAddr, &node); err != nil {
		return nil, err
	}
	return Returns(ens.FuncAddr, r.ens.addrs[node])
}
