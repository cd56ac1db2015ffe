// Package ingest consumes published blocks and transactions and applies
// them to the store.
package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ledgerScope/internal/metrics"
	"ledgerScope/internal/transport"
)

// LoopConfig controls the consumer loop.
type LoopConfig struct {
	BatchSize    int
	ErrorBackoff time.Duration
}

// Loop polls the transport, applies each batch, and commits once the whole
// batch has been applied. Delivery is at-least-once; the store's upserts make
// redelivery harmless.
type Loop struct {
	cfg      LoopConfig
	consumer transport.Consumer
	decoder  *Decoder
	logger   *zap.Logger
}

func NewLoop(cfg LoopConfig, consumer transport.Consumer, decoder *Decoder, logger *zap.Logger) *Loop {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{cfg: cfg, consumer: consumer, decoder: decoder, logger: logger}
}

// Run consumes until ctx is canceled. It returns nil on cancellation.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("ingest loop start", zap.Int("batch_size", l.cfg.BatchSize))
	for {
		if ctx.Err() != nil {
			l.logger.Info("ingest loop stop")
			return nil
		}

		if _, err := l.Step(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			l.logger.Warn("ingest step failed", zap.Error(err))
			timer := time.NewTimer(l.cfg.ErrorBackoff)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
		}
	}
}

// Step polls one batch, applies it and commits it. It returns the number of
// messages applied, including ones dropped by the decoder.
func (l *Loop) Step(ctx context.Context) (int, error) {
	batch, err := l.consumer.Poll(ctx, l.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(batch) == 0 {
		return 0, nil
	}

	start := time.Now()
	var dropped int
	for _, msg := range batch {
		if err := l.decoder.Apply(msg); err != nil {
			dropped++
		}
	}

	if err := l.consumer.Commit(ctx); err != nil {
		return len(batch), err
	}
	metrics.BatchDuration.Observe(time.Since(start).Seconds())

	l.logger.Debug("batch applied", zap.Int("messages", len(batch)), zap.Int("dropped", dropped))
	return len(batch), nil
}
