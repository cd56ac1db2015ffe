package crawler

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum"
	"go.uber.org/zap"

	"ledgerScope/internal/chain"
	"ledgerScope/internal/metrics"
	"ledgerScope/internal/model"
)

// FetchStatus classifies the outcome of a single provider call.
type FetchStatus int

const (
	FetchFound FetchStatus = iota
	FetchNotFound
	FetchError
)

func (s FetchStatus) String() string {
	switch s {
	case FetchFound:
		return "found"
	case FetchNotFound:
		return "not_found"
	default:
		return "error"
	}
}

// Fetcher paces and classifies provider calls. Not-found and errors are
// logged and reported as absent results; they never fail the pipeline.
type Fetcher struct {
	provider chain.Provider
	delay    time.Duration
	logger   *zap.Logger
}

func NewFetcher(provider chain.Provider, delay time.Duration, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{provider: provider, delay: delay, logger: logger}
}

// Block waits the pacing delay and then fetches block number. The result is
// nil unless the status is FetchFound.
func (f *Fetcher) Block(ctx context.Context, number uint64) (*model.BlockWire, FetchStatus) {
	key := zap.Uint64("block_number", number)
	if err := f.pace(ctx); err != nil {
		return nil, f.classify("block", key, err)
	}

	f.logger.Debug("fetching block", key)
	block, err := f.provider.GetBlock(ctx, number)
	if err == nil && block == nil {
		err = ethereum.NotFound
	}
	if err != nil {
		return nil, f.classify("block", key, err)
	}
	metrics.FetchTotal.WithLabelValues("block", FetchFound.String()).Inc()
	return block, FetchFound
}

// Transaction waits the pacing delay and then fetches the transaction.
func (f *Fetcher) Transaction(ctx context.Context, hash string) (*model.TransactionWire, FetchStatus) {
	key := zap.String("tx_hash", hash)
	if err := f.pace(ctx); err != nil {
		return nil, f.classify("tx", key, err)
	}

	f.logger.Debug("fetching transaction", key)
	tx, err := f.provider.GetTransaction(ctx, hash)
	if err == nil && tx == nil {
		err = ethereum.NotFound
	}
	if err != nil {
		return nil, f.classify("tx", key, err)
	}
	metrics.FetchTotal.WithLabelValues("tx", FetchFound.String()).Inc()
	return tx, FetchFound
}

func (f *Fetcher) pace(ctx context.Context) error {
	if f.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(f.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (f *Fetcher) classify(stage string, key zap.Field, err error) FetchStatus {
	status := FetchError
	if errors.Is(err, ethereum.NotFound) {
		status = FetchNotFound
	}
	metrics.FetchTotal.WithLabelValues(stage, status.String()).Inc()
	f.logger.Warn("fetch failed, skipping", zap.String("stage", stage), key, zap.String("status", status.String()), zap.Error(err))
	return status
}
