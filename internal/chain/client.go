package chain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"ledgerScope/internal/model"
)

// ClientConfig controls the client's retry policy for rate-limited calls.
type ClientConfig struct {
	MaxRetries   int
	RetryBackoff time.Duration
}

// Client wraps go-ethereum RPC and implements Provider.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client
	cfg       ClientConfig
	logger    *zap.Logger
}

var _ Provider = (*Client)(nil)

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string, cfg ClientConfig, logger *zap.Logger) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// CurrentHeight returns the latest block number.
func (c *Client) CurrentHeight(ctx context.Context) (uint64, error) {
	var height uint64
	err := c.retry(ctx, "eth_blockNumber", func(ctx context.Context) error {
		var err error
		height, err = c.ethClient.BlockNumber(ctx)
		return err
	})
	return height, err
}

// GetBlock returns the block header fields and its transaction hashes.
func (c *Client) GetBlock(ctx context.Context, number uint64) (*model.BlockWire, error) {
	var block model.BlockWire
	if err := c.call(ctx, &block, "eth_getBlockByNumber", hexutil.EncodeUint64(number), false); err != nil {
		return nil, err
	}
	return &block, nil
}

// GetTransaction returns the transaction with the given hash.
func (c *Client) GetTransaction(ctx context.Context, hash string) (*model.TransactionWire, error) {
	var tx model.TransactionWire
	if err := c.call(ctx, &tx, "eth_getTransactionByHash", hash); err != nil {
		return nil, err
	}
	return &tx, nil
}

// call issues a JSON-RPC request and decodes a non-null result into out.
func (c *Client) call(ctx context.Context, out interface{}, method string, args ...interface{}) error {
	var raw json.RawMessage
	err := c.retry(ctx, method, func(ctx context.Context) error {
		return c.rpcClient.CallContext(ctx, &raw, method, args...)
	})
	if err != nil {
		return err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return ethereum.NotFound
	}
	return json.Unmarshal(raw, out)
}

func (c *Client) retry(ctx context.Context, method string, fn func(context.Context) error) error {
	return withRetry(ctx, c.cfg.MaxRetries, c.cfg.RetryBackoff, isRateLimited, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && isRateLimited(err) {
			c.logger.Debug("rpc rate limited", zap.String("method", method), zap.Error(err))
		}
		return err
	})
}
