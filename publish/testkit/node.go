// Package testkit is an in-process dev node for tests. It speaks the JSON-RPC
// subset the publisher and the fixtures use and runs Go stand-ins for the
// contracts instead of EVM bytecode.
package testkit

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/akshaynexus/yearnv2-levgeist/publish"
)

const (
	DefaultChainID  = 1337
	DefaultAccounts = 10

	gasUsed = 21_000
)

type registration struct {
	code    []byte
	factory Factory
}

type Node struct {
	mu sync.Mutex

	chainID      *big.Int
	signer       types.Signer
	keys         []*ecdsa.PrivateKey
	accounts     []common.Address
	impersonated map[common.Address]bool

	nonces    map[common.Address]uint64
	contracts map[common.Address]Contract
	code      map[common.Address][]byte
	factories []registration
	receipts  map[common.Hash]*types.Receipt
	block     uint64
	time      uint64

	server *rpc.Server
}

type Option func(*Node)

// WithChainID sets the id the node reports and signs for.
func WithChainID(id int64) Option {
	return func(n *Node) { n.chainID = big.NewInt(id) }
}

// NewNode starts a node whose accounts are unlocked and derived from Key.
func NewNode(tb testing.TB, opts ...Option) *Node {
	tb.Helper()

	n := &Node{
		chainID:      big.NewInt(DefaultChainID),
		keys:         make([]*ecdsa.PrivateKey, DefaultAccounts),
		impersonated: map[common.Address]bool{},
		nonces:       map[common.Address]uint64{},
		contracts:    map[common.Address]Contract{},
		code:         map[common.Address][]byte{},
		receipts:     map[common.Hash]*types.Receipt{},
		time:         1_700_000_000,
	}
	for _, opt := range opts {
		opt(n)
	}
	n.signer = types.LatestSignerForChainID(n.chainID)
	for i := range n.keys {
		n.keys[i] = Key(i)
		n.accounts = append(n.accounts, crypto.PubkeyToAddress(n.keys[i].PublicKey))
	}

	n.server = rpc.NewServer()
	for _, reg := range []struct {
		namespace string
		service   any
	}{
		{"eth", &ethAPI{n}},
		{"anvil", &impersonationAPI{n}},
		{"hardhat", &impersonationAPI{n}},
	} {
		if err := n.server.RegisterName(reg.namespace, reg.service); err != nil {
			tb.Fatalf("register %s api: %v", reg.namespace, err)
		}
	}
	tb.Cleanup(n.server.Stop)
	return n
}

// Key returns the deterministic private key of the i-th dev account.
func Key(i int) *ecdsa.PrivateKey {
	seed := crypto.Keccak256([]byte(fmt.Sprintf("testkit account %d", i)))
	key, err := crypto.ToECDSA(seed)
	if err != nil {
		panic(fmt.Sprintf("derive key %d: %v", i, err))
	}
	return key
}

// Dial connects a chain client to the node.
func (n *Node) Dial(tb testing.TB) *publish.Chain {
	tb.Helper()
	chain := publish.NewChain(rpc.DialInProc(n.server))
	chain.PollInterval = time.Millisecond
	tb.Cleanup(func() { _ = chain.Close() })
	return chain
}

// URL serves the node over HTTP for clients that dial by address.
func (n *Node) URL(tb testing.TB) string {
	tb.Helper()
	srv := httptest.NewServer(n.server)
	tb.Cleanup(srv.Close)
	return srv.URL
}

func (n *Node) ChainID() int64 {
	return n.chainID.Int64()
}

func (n *Node) Accounts() []common.Address {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]common.Address(nil), n.accounts...)
}

// Register makes deployments whose init code starts with code construct
// contracts through f. The remaining init code is passed as constructor args.
func (n *Node) Register(code []byte, f Factory) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.factories = append(n.factories, registration{code: code, factory: f})
}

// Install places c at addr, as if it had been deployed before the test.
func (n *Node) Install(addr common.Address, c Contract) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.contracts[addr] = c
	n.code[addr] = []byte{0x60, 0x00}
}

func (n *Node) Contract(addr common.Address) Contract {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.contracts[addr]
}

func (n *Node) Nonce(addr common.Address) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.nonces[addr]
}

func (n *Node) Impersonating(addr common.Address) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.impersonated[addr]
}

// Receipts returns the number of mined transactions.
func (n *Node) Receipts() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.receipts)
}

// StaticCall runs a read-only call against the current state.
func (n *Node) StaticCall(from, to common.Address, input []byte) ([]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dispatch(&Msg{From: from, To: to, Input: input, Static: true, Time: n.time, node: n})
}

func (n *Node) unlocked(addr common.Address) bool {
	if n.impersonated[addr] {
		return true
	}
	for _, a := range n.accounts {
		if a == addr {
			return true
		}
	}
	return false
}

// dispatch runs msg. The caller holds n.mu.
func (n *Node) dispatch(msg *Msg) ([]byte, error) {
	c, ok := n.contracts[msg.To]
	if !ok {
		return nil, nil
	}
	return c.Handle(msg)
}

// create installs c at the next CREATE address of deployer. The caller holds n.mu.
func (n *Node) create(deployer common.Address, c Contract) common.Address {
	nonce := n.nonces[deployer]
	n.nonces[deployer]++
	addr := crypto.CreateAddress(deployer, nonce)
	n.contracts[addr] = c
	n.code[addr] = []byte{0x60, 0x00}
	return addr
}

func (n *Node) factoryFor(initCode []byte) (registration, bool) {
	for _, reg := range n.factories {
		if bytes.HasPrefix(initCode, reg.code) {
			return reg, true
		}
	}
	return registration{}, false
}

// apply mines one transaction. The caller holds n.mu and has checked the nonce.
func (n *Node) apply(txHash common.Hash, txType uint8, from common.Address, to *common.Address, data []byte) *types.Receipt {
	nonce := n.nonces[from]
	n.nonces[from]++
	n.block++
	n.time += 2

	receipt := &types.Receipt{
		Type:              txType,
		Status:            types.ReceiptStatusSuccessful,
		CumulativeGasUsed: gasUsed,
		GasUsed:           gasUsed,
		EffectiveGasPrice: big.NewInt(1),
		TxHash:            txHash,
		BlockNumber:       new(big.Int).SetUint64(n.block),
		BlockHash:         blockHash(n.block),
		Logs:              []*types.Log{},
	}

	var (
		msg *Msg
		err error
	)
	if to == nil {
		addr := crypto.CreateAddress(from, nonce)
		msg = &Msg{From: from, To: addr, Time: n.time, node: n}
		err = n.deploy(msg, data)
		if err == nil {
			receipt.ContractAddress = addr
		}
	} else {
		msg = &Msg{From: from, To: *to, Input: data, Time: n.time, node: n}
		_, err = n.dispatch(msg)
	}

	if err != nil {
		receipt.Status = types.ReceiptStatusFailed
	} else {
		for i, log := range msg.logs {
			log.TxHash = txHash
			log.BlockNumber = n.block
			log.BlockHash = receipt.BlockHash
			log.Index = uint(i)
			receipt.Logs = append(receipt.Logs, log)
		}
	}
	n.receipts[txHash] = receipt
	return receipt
}

func (n *Node) deploy(msg *Msg, initCode []byte) error {
	reg, ok := n.factoryFor(initCode)
	if !ok {
		return errors.New("unknown init code")
	}
	c, err := reg.factory(msg, initCode[len(reg.code):])
	if err != nil {
		return err
	}
	n.contracts[msg.To] = c
	n.code[msg.To] = reg.code
	return nil
}

func (n *Node) checkNonce(from common.Address, nonce uint64) error {
	switch want := n.nonces[from]; {
	case nonce < want:
		return fmt.Errorf("nonce too low: address %s, tx: %d state: %d", from.Hex(), nonce, want)
	case nonce > want:
		return fmt.Errorf("nonce too high: address %s, tx: %d state: %d", from.Hex(), nonce, want)
	}
	return nil
}

func blockHash(number uint64) common.Hash {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], number)
	return crypto.Keccak256Hash([]byte("testkit block"), b[:])
}

func unsignedTxHash(from common.Address, nonce uint64, data []byte) common.Hash {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], nonce)
	return crypto.Keccak256Hash(from.Bytes(), b[:], data)
}
