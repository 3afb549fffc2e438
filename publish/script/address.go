package script

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// askAddress repeats msg until the answer is a checksummed address or a name
// the resolver knows.
func (r *runner) askAddress(ctx context.Context, msg string) (common.Address, error) {
	for {
		val, err := r.Prompt.Ask(msg)
		if err != nil {
			return common.Address{}, err
		}
		if IsChecksumAddress(val) {
			return common.HexToAddress(val), nil
		}
		if r.Resolver != nil {
			addr, ok, err := r.Resolver.Resolve(ctx, val)
			if err != nil {
				return common.Address{}, err
			}
			if ok {
				r.Prompt.Printf("Found ENS '%s' [%s]\n", val, addr.Hex())
				r.Log.Debug("resolved name", zap.String("name", val), zap.String("address", addr.Hex()))
				return addr, nil
			}
		}
		r.Prompt.Printf("I'm sorry, but '%s' is not a checksummed address or ENS\n", val)
	}
}

// IsChecksumAddress reports whether v is a 0x prefixed address in its EIP-55
// mixed case form.
func IsChecksumAddress(v string) bool {
	return common.IsHexAddress(v) && common.HexToAddress(v).Hex() == v
}
