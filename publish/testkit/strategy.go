package testkit

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/akshaynexus/yearnv2-levgeist/publish/contracts/strategy"
	"github.com/akshaynexus/yearnv2-levgeist/publish/contracts/vault"
)

// Strategy mirrors the role handling of a Yearn BaseStrategy: the deployer
// becomes strategist, keeper and rewards, and want is read from the vault.
type Strategy struct {
	name       string
	apiVersion string
	vault      common.Address
	want       common.Address
	strategist common.Address
	keeper     common.Address
	rewards    common.Address
}

// StrategyFactory decodes constructor(address vault) and reads the vault's
// token, reverting when the vault is missing. The constructor argument is
// the last word of the init code, after any linked library addresses.
func StrategyFactory(name string) Factory {
	return func(msg *Msg, args []byte) (Contract, error) {
		if len(args) < 32 {
			return nil, Revert("missing constructor arguments")
		}
		vaultAddr, err := strategy.DecodeConstructor(args[len(args)-32:])
		if err != nil {
			return nil, Revert("%v", err)
		}
		var (
			want       common.Address
			apiVersion string
		)
		if err := msg.CallFunc(vaultAddr, vault.FuncToken, nil, &want); err != nil {
			return nil, Revert("vault token: %v", err)
		}
		if err := msg.CallFunc(vaultAddr, vault.FuncAPIVersion, nil, &apiVersion); err != nil {
			return nil, Revert("vault apiVersion: %v", err)
		}
		return &Strategy{
			name:       name,
			apiVersion: apiVersion,
			vault:      vaultAddr,
			want:       want,
			strategist: msg.From,
			keeper:     msg.From,
			rewards:    msg.From,
		}, nil
	}
}

func (s *Strategy) Vault() common.Address      { return s.vault }
func (s *Strategy) Strategist() common.Address { return s.strategist }
func (s *Strategy) Keeper() common.Address     { return s.keeper }
func (s *Strategy) Rewards() common.Address    { return s.rewards }

func (s *Strategy) Handle(msg *Msg) ([]byte, error) {
	switch {
	case msg.Is(strategy.FuncVault):
		return Returns(strategy.FuncVault, s.vault)
	case msg.Is(strategy.FuncWant):
		return Returns(strategy.FuncWant, s.want)
	case msg.Is(strategy.FuncStrategist):
		return Returns(strategy.FuncStrategist, s.strategist)
	case msg.Is(strategy.FuncKeeper):
		return Returns(strategy.FuncKeeper, s.keeper)
	case msg.Is(strategy.FuncRewards):
		return Returns(strategy.FuncRewards, s.rewards)
	case msg.Is(strategy.FuncName):
		return Returns(strategy.FuncName, s.name)
	case msg.Is(strategy.FuncAPIVersion):
		return Returns(strategy.FuncAPIVersion, s.apiVersion)

	case msg.Is(strategy.FuncSetKeeper):
		var keeper common.Address
		if err := msg.Args(strategy.FuncSetKeeper, &keeper); err != nil {
			return nil, err
		}
		if err := s.onlyAuthorized(msg); err != nil {
			return nil, err
		}
		if keeper == (common.Address{}) {
			return nil, Revert("zero keeper")
		}
		if !msg.Static {
			s.keeper = keeper
		}
		return nil, nil

	case msg.Is(strategy.FuncSetRewards):
		var rewards common.Address
		if err := msg.Args(strategy.FuncSetRewards, &rewards); err != nil {
			return nil, err
		}
		if msg.From != s.strategist {
			return nil, Revert("!strategist")
		}
		if rewards == (common.Address{}) {
			return nil, Revert("zero rewards")
		}
		if !msg.Static {
			s.rewards = rewards
		}
		return nil, nil
	}
	return nil, ErrUnknownSelector
}

func (s *Strategy) onlyAuthorized(msg *Msg) error {
	if msg.From == s.strategist {
		return nil
	}
	var governance common.Address
	if err := msg.CallFunc(s.vault, vault.FuncGovernance, nil, &governance); err != nil {
		return Revert("vault governance: %v", err)
	}
	if msg.From != governance {
		return Revert("!authorized")
	}
	return nil
}

// Library is deployed code that accepts no calls, such as AaveUtils.
type Library struct{}

func LibraryFactory() Factory {
	return func(msg *Msg, args []byte) (Contract, error) {
		return Library{}, nil
	}
}

func (Library) Handle(msg *Msg) ([]byte, error) {
	return nil, Revert("library")
}
