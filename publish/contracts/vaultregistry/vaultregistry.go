package vaultregistry

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/lmittmann/w3"
)

const GasLimit = 1_500_000

var (
	FuncNewExperimentalVault = w3.MustNewFunc(
		"newExperimentalVault(address,address,address,address,string,string)", "address",
	)
	EventNewExperimentalVault = w3.MustNewEvent(
		"NewExperimentalVault(address indexed token, address indexed deployer, address vault, string api_version)",
	)
)

type ExperimentalVaultArgs struct {
	Token          common.Address
	Governance     common.Address
	Guardian       common.Address
	Rewards        common.Address
	NameOverride   string
	SymbolOverride string
}

func EncodeNewExperimentalVault(args ExperimentalVaultArgs) ([]byte, error) {
	return FuncNewExperimentalVault.EncodeArgs(args.Token, args.Governance, args.Guardian, args.Rewards, args.NameOverride, args.SymbolOverride)
}

// VaultFromReceipt returns the vault announced by the registry in receipt.
func VaultFromReceipt(registry common.Address, receipt *types.Receipt) (common.Address, error) {
	for _, log := range receipt.Logs {
		if log.Address != registry {
			continue
		}
		var (
			token      common.Address
			deployer   common.Address
			vault      common.Address
			apiVersion string
		)
		if err := EventNewExperimentalVault.DecodeArgs(log, &token, &deployer, &vault, &apiVersion); err == nil {
			return vault, nil
		}
	}
	return common.Address{}, errors.New("NewExperimentalVault event not found in receipt logs")
}
