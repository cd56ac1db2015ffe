package chain

import (
	"context"

	"ledgerScope/internal/model"
)

// Provider is the read surface the crawler needs from a ledger node.
// GetBlock and GetTransaction return ethereum.NotFound when the node has no
// such item.
type Provider interface {
	CurrentHeight(ctx context.Context) (uint64, error)
	GetBlock(ctx context.Context, number uint64) (*model.BlockWire, error)
	GetTransaction(ctx context.Context, hash string) (*model.TransactionWire, error)
}
