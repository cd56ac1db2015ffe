// Package crawler walks a block range against a provider and republishes
// the blocks and transactions it finds.
package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/stream"
	"go.uber.org/zap"

	"ledgerScope/internal/chain"
	"ledgerScope/internal/metrics"
	"ledgerScope/internal/model"
)

// DefaultWindow is the number of in-flight fetches allowed per stage.
const DefaultWindow = 10

// Config holds runtime settings for the pipeline.
type Config struct {
	FromBlock uint64
	Window    int
	Delay     time.Duration
	Filter    FilterOption
}

// StageStats counts outcomes for one stage.
type StageStats struct {
	Fetched       int
	Absent        int
	Filtered      int
	Published     int
	PublishFailed int
}

// Result summarizes one crawl pass.
type Result struct {
	Range        BlockRange
	Blocks       StageStats
	Txs          StageStats
	Transactions []model.TransactionWire
	Elapsed      time.Duration
}

// Pipeline runs the two-stage crawl: blocks by number, then the
// transactions they reference. Each stage keeps at most Window fetches in
// flight, and stage two starts on hashes as soon as stage one emits them.
type Pipeline struct {
	cfg       Config
	provider  chain.Provider
	fetcher   *Fetcher
	publisher *Publisher
	logger    *zap.Logger
}

// NewPipeline builds a Pipeline with its dependencies.
func NewPipeline(cfg Config, provider chain.Provider, publisher *Publisher, logger *zap.Logger) *Pipeline {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		cfg:       cfg,
		provider:  provider,
		fetcher:   NewFetcher(provider, cfg.Delay, logger),
		publisher: publisher,
		logger:    logger,
	}
}

// Run crawls from the configured start block to the chain height observed
// when Run begins. It fails only if that height cannot be read.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	if p.provider == nil {
		return Result{}, fmt.Errorf("provider is nil")
	}
	if p.publisher == nil {
		return Result{}, fmt.Errorf("publisher is nil")
	}

	height, err := p.provider.CurrentHeight(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("get chain height: %w", err)
	}

	if p.cfg.FromBlock > height {
		p.logger.Info("nothing to crawl", zap.Uint64("from", p.cfg.FromBlock), zap.Uint64("height", height))
		return Result{Transactions: []model.TransactionWire{}}, nil
	}

	blockRange, err := NewBlockRange(p.cfg.FromBlock, height)
	if err != nil {
		return Result{}, err
	}

	p.logger.Info("crawl start",
		zap.Uint64("from", blockRange.From),
		zap.Uint64("to", blockRange.To),
		zap.Int("window", p.cfg.Window),
		zap.Duration("delay", p.cfg.Delay),
	)

	start := time.Now()
	result := Result{Range: blockRange}
	hashes := make(chan string, p.cfg.Window)

	txsDone := make(chan struct{})
	go func() {
		defer close(txsDone)
		result.Transactions = p.runTransactions(ctx, hashes, &result.Txs)
	}()

	p.runBlocks(ctx, blockRange, hashes, &result.Blocks)
	<-txsDone

	result.Elapsed = time.Since(start)
	p.logger.Info("crawl complete",
		zap.Uint64("from", blockRange.From),
		zap.Uint64("to", blockRange.To),
		zap.Int("blocks_fetched", result.Blocks.Fetched),
		zap.Int("blocks_absent", result.Blocks.Absent),
		zap.Int("blocks_published", result.Blocks.Published),
		zap.Int("txs_fetched", result.Txs.Fetched),
		zap.Int("txs_absent", result.Txs.Absent),
		zap.Int("txs_published", result.Txs.Published),
		zap.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

// runBlocks is stage one. Callbacks run in block-number order, so hashes
// reach stage two in chain order even though fetches complete out of order.
// It closes hashes when every block has been handled.
func (p *Pipeline) runBlocks(ctx context.Context, blockRange BlockRange, hashes chan<- string, stats *StageStats) {
	defer close(hashes)

	s := stream.New().WithMaxGoroutines(p.cfg.Window)
	blockRange.Each(func(number uint64) bool {
		if ctx.Err() != nil {
			p.logger.Warn("crawl interrupted", zap.Uint64("next_block", number), zap.Error(ctx.Err()))
			return false
		}

		s.Go(func() stream.Callback {
			block, status := p.fetcher.Block(ctx, number)
			var accepted bool
			var pubErr error
			if status == FetchFound {
				accepted = p.cfg.Filter.AcceptsBlock(block)
				if accepted {
					pubErr = p.publisher.PublishBlock(ctx, block)
					if pubErr != nil {
						p.logger.Warn("publish block failed", zap.Uint64("block_number", number), zap.Error(pubErr))
					}
				} else {
					metrics.FilteredTotal.WithLabelValues("block").Inc()
				}
			}

			return func() {
				if status != FetchFound {
					stats.Absent++
					return
				}
				stats.Fetched++
				switch {
				case !accepted:
					stats.Filtered++
				case pubErr != nil:
					stats.PublishFailed++
				default:
					stats.Published++
				}
				// Hash extraction does not depend on whether the block itself
				// passed the filter.
				for _, hash := range block.TransactionHashes {
					hashes <- hash
				}
			}
		})
		return true
	})
	s.Wait()
}

// runTransactions is stage two. It returns the fetched transactions in the
// order their hashes were received.
func (p *Pipeline) runTransactions(ctx context.Context, hashes <-chan string, stats *StageStats) []model.TransactionWire {
	out := make([]model.TransactionWire, 0)

	s := stream.New().WithMaxGoroutines(p.cfg.Window)
	for hash := range hashes {
		hash := hash
		s.Go(func() stream.Callback {
			tx, status := p.fetcher.Transaction(ctx, hash)
			var accepted bool
			var pubErr error
			if status == FetchFound {
				accepted = p.cfg.Filter.AcceptsTransaction(tx)
				if accepted {
					pubErr = p.publisher.PublishTransaction(ctx, tx)
					if pubErr != nil {
						p.logger.Warn("publish transaction failed", zap.String("tx_hash", hash), zap.Error(pubErr))
					}
				} else {
					metrics.FilteredTotal.WithLabelValues("tx").Inc()
				}
			}

			return func() {
				if status != FetchFound {
					stats.Absent++
					return
				}
				stats.Fetched++
				switch {
				case !accepted:
					stats.Filtered++
				case pubErr != nil:
					stats.PublishFailed++
				default:
					stats.Published++
				}
				out = append(out, *tx)
			}
		})
	}
	s.Wait()
	return out
}
