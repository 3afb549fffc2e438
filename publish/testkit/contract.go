package testkit

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/lmittmann/w3"
)

// Contract is a Go stand-in for deployed bytecode. Implementations must run
// their checks before writing state: a failed call is not rolled back.
type Contract interface {
	Handle(msg *Msg) ([]byte, error)
}

// Factory builds a contract from its constructor arguments.
type Factory func(msg *Msg, args []byte) (Contract, error)

var ErrUnknownSelector = errors.New("unknown selector")

type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return "execution reverted"
	}
	return "execution reverted: " + e.Reason
}

func Revert(format string, args ...any) error {
	return &RevertError{Reason: fmt.Sprintf(format, args...)}
}

// Msg is a single call frame.
type Msg struct {
	From   common.Address
	To     common.Address
	Input  []byte
	Static bool
	Time   uint64

	node *Node
	logs []*types.Log
}

// Is reports whether the frame calls f.
func (m *Msg) Is(f *w3.Func) bool {
	return len(m.Input) >= 4 && bytes.Equal(m.Input[:4], f.Selector[:])
}

// Args decodes the frame's arguments for f.
func (m *Msg) Args(f *w3.Func, args ...any) error {
	if err := f.DecodeArgs(m.Input, args...); err != nil {
		return Revert("bad calldata: %v", err)
	}
	return nil
}

// Call runs a nested call with the current contract as sender.
func (m *Msg) Call(to common.Address, input []byte) ([]byte, error) {
	sub := &Msg{From: m.To, To: to, Input: input, Static: m.Static, Time: m.Time, node: m.node}
	out, err := m.node.dispatch(sub)
	if err != nil {
		return nil, err
	}
	m.logs = append(m.logs, sub.logs...)
	return out, nil
}

// CallFunc encodes args for f, calls to and decodes the returns.
func (m *Msg) CallFunc(to common.Address, f *w3.Func, args []any, returns ...any) error {
	input, err := f.EncodeArgs(args...)
	if err != nil {
		return err
	}
	out, err := m.Call(to, input)
	if err != nil {
		return err
	}
	return f.DecodeReturns(out, returns...)
}

// Create installs c at the next address of the current contract.
func (m *Msg) Create(c Contract) (common.Address, error) {
	if m.Static {
		return common.Address{}, Revert("create in static call")
	}
	return m.node.create(m.To, c), nil
}

// Emit records a log for the current contract.
func (m *Msg) Emit(topics []common.Hash, data []byte) error {
	if m.Static {
		return Revert("log in static call")
	}
	if topics == nil {
		topics = []common.Hash{}
	}
	if data == nil {
		data = []byte{}
	}
	m.logs = append(m.logs, &types.Log{Address: m.To, Topics: topics, Data: data})
	return nil
}

// Returns encodes the return values of f.
func Returns(f *w3.Func, values ...any) ([]byte, error) {
	return f.Returns.Pack(values...)
}
