package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/lmittmann/w3"
	"github.com/lmittmann/w3/module/eth"
	"github.com/lmittmann/w3/w3types"
)

const defaultPollInterval = 2 * time.Second

// Chain is a connection to a node. Reads go through w3; node specific
// methods (eth_accounts, impersonation) go through the raw rpc client.
type Chain struct {
	client *w3.Client
	rpc    *rpc.Client

	// PollInterval is the delay between receipt lookups.
	PollInterval   time.Duration
	// ReceiptTimeout bounds each WaitForReceipt. Zero waits until ctx is done.
	ReceiptTimeout time.Duration
}

func Dial(ctx context.Context, rpcURL string) (*Chain, error) {
	client, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	return NewChain(client), nil
}

func NewChain(client *rpc.Client) *Chain {
	return &Chain{
		client:       w3.NewClient(client),
		rpc:          client,
		PollInterval: defaultPollInterval,
	}
}

func (c *Chain) Close() error {
	return c.client.Close()
}

// Read executes calls in a single batch.
func (c *Chain) Read(ctx context.Context, calls ...w3types.RPCCaller) error {
	return c.client.CallCtx(ctx, calls...)
}

// RawCall invokes method with args and decodes the result into result.
func (c *Chain) RawCall(ctx context.Context, result any, method string, args ...any) error {
	if err := c.rpc.CallContext(ctx, result, method, args...); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

func (c *Chain) ChainID(ctx context.Context) (uint64, error) {
	var id uint64
	if err := c.client.CallCtx(ctx, eth.ChainID().Returns(&id)); err != nil {
		return 0, fmt.Errorf("get chain id: %w", err)
	}
	return id, nil
}

func (c *Chain) Nonce(ctx context.Context, addr common.Address) (uint64, error) {
	var nonce uint64
	if err := c.client.CallCtx(ctx, eth.Nonce(addr, nil).Returns(&nonce)); err != nil {
		return 0, fmt.Errorf("get nonce: %w", err)
	}
	return nonce, nil
}

func (c *Chain) CodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	var code []byte
	if err := c.client.CallCtx(ctx, eth.Code(addr, nil).Returns(&code)); err != nil {
		return nil, fmt.Errorf("get code %s: %w", addr.Hex(), err)
	}
	return code, nil
}

// Accounts returns the accounts the node signs for.
func (c *Chain) Accounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := c.RawCall(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (c *Chain) WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if c.ReceiptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.ReceiptTimeout)
		defer cancel()
	}
	interval := c.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		var receipt *types.Receipt
		err := c.client.CallCtx(ctx, eth.TxReceipt(txHash).Returns(&receipt))
		if err == nil && receipt != nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
