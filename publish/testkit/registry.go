package testkit

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/akshaynexus/yearnv2-levgeist/publish/contracts/vault"
	"github.com/akshaynexus/yearnv2-levgeist/publish/contracts/vaultregistry"
)

var (
	topicNewExperimentalVault = crypto.Keccak256Hash([]byte("NewExperimentalVault(address,address,address,string)"))

	experimentalVaultData = abi.Arguments{
		{Type: mustType("address")},
		{Type: mustType("string")},
	}
)

// Registry creates experimental vaults of a single API version.
type Registry struct {
	apiVersion string
	vaults     []common.Address
}

func NewRegistry(apiVersion string) *Registry {
	return &Registry{apiVersion: apiVersion}
}

// Vaults lists the experimental vaults in creation order.
func (r *Registry) Vaults() []common.Address {
	return append([]common.Address(nil), r.vaults...)
}

func (r *Registry) Handle(msg *Msg) ([]byte, error) {
	if !msg.Is(vaultregistry.FuncNewExperimentalVault) {
		return nil, ErrUnknownSelector
	}
	var args vaultregistry.ExperimentalVaultArgs
	if err := msg.Args(vaultregistry.FuncNewExperimentalVault,
		&args.Token, &args.Governance, &args.Guardian, &args.Rewards, &args.NameOverride, &args.SymbolOverride,
	); err != nil {
		return nil, err
	}
	if args.Token == (common.Address{}) {
		return nil, Revert("zero token")
	}

	// A failed initialize leaves the created vault behind.
	addr, err := msg.Create(NewVault(r.apiVersion))
	if err != nil {
		return nil, err
	}
	init, err := vault.EncodeInit(vault.InitArgs{
		Token:          args.Token,
		Governance:     args.Governance,
		Rewards:        args.Rewards,
		NameOverride:   args.NameOverride,
		SymbolOverride: args.SymbolOverride,
		Guardian:       args.Guardian,
	})
	if err != nil {
		return nil, Revert("%v", err)
	}
	if _, err := msg.Call(addr, init); err != nil {
		return nil, err
	}

	data, err := experimentalVaultData.Pack(addr, r.apiVersion)
	if err != nil {
		return nil, Revert("%v", err)
	}
	topics := []common.Hash{topicNewExperimentalVault, addressTopic(args.Token), addressTopic(msg.From)}
	if err := msg.Emit(topics, data); err != nil {
		return nil, err
	}
	r.vaults = append(r.vaults, addr)
	return Returns(vaultregistry.FuncNewExperimentalVault, addr)
}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}
