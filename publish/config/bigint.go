package config

import (
	"fmt"
	"math/big"
	"strings"

	"gopkg.in/yaml.v3"
)

// BigInt is a uint256 value in YAML. It accepts decimal and 0x hex integers,
// an integer mantissa with an exponent ("1008e18") and the word "max" for
// 2**256-1.
type BigInt struct {
	*big.Int
}

func NewBigInt(v int64) BigInt {
	return BigInt{big.NewInt(v)}
}

func ParseBigInt(s string) (BigInt, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	switch {
	case s == "":
		return BigInt{}, fmt.Errorf("empty integer")
	case strings.EqualFold(s, "max"):
		return BigInt{maxUint256()}, nil
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		n, ok := new(big.Int).SetString(s[2:], 16)
		if !ok {
			return BigInt{}, fmt.Errorf("invalid hex integer %q", s)
		}
		return checkRange(n, s)
	}

	if i := strings.IndexAny(s, "eE"); i >= 0 {
		mantissa, ok := new(big.Int).SetString(s[:i], 10)
		if !ok {
			return BigInt{}, fmt.Errorf("invalid integer %q", s)
		}
		var exp int64
		if _, err := fmt.Sscan(s[i+1:], &exp); err != nil || exp < 0 || exp > 77 {
			return BigInt{}, fmt.Errorf("invalid exponent in %q", s)
		}
		n := new(big.Int).Mul(mantissa, new(big.Int).Exp(big.NewInt(10), big.NewInt(exp), nil))
		return checkRange(n, s)
	}

	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return BigInt{}, fmt.Errorf("invalid integer %q", s)
	}
	return checkRange(n, s)
}

func checkRange(n *big.Int, s string) (BigInt, error) {
	if n.Sign() < 0 || n.Cmp(maxUint256()) > 0 {
		return BigInt{}, fmt.Errorf("integer %q out of uint256 range", s)
	}
	return BigInt{n}, nil
}

func (b *BigInt) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected an integer", value.Line)
	}
	n, err := ParseBigInt(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*b = n
	return nil
}

func (b BigInt) MarshalYAML() (any, error) {
	if b.Int == nil {
		return "0", nil
	}
	return b.Int.String(), nil
}

// Value returns a copy, or zero when unset.
func (b BigInt) Value() *big.Int {
	if b.Int == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(b.Int)
}

func maxUint256() *big.Int {
	return new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
}
