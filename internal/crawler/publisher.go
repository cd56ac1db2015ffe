package crawler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"ledgerScope/internal/metrics"
	"ledgerScope/internal/model"
	"ledgerScope/internal/transport"
)

// Publisher serializes wire records and hands them to the transport.
type Publisher struct {
	producer transport.Producer
	topics   transport.Topics
	logger   *zap.Logger
}

func NewPublisher(producer transport.Producer, topics transport.Topics, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{producer: producer, topics: topics, logger: logger}
}

// PublishBlock sends block to the block topic.
func (p *Publisher) PublishBlock(ctx context.Context, block *model.BlockWire) error {
	return p.publish(ctx, p.topics.Block, block.Hash, block)
}

// PublishTransaction sends tx to the transaction topic.
func (p *Publisher) PublishTransaction(ctx context.Context, tx *model.TransactionWire) error {
	return p.publish(ctx, p.topics.Tx, tx.Hash, tx)
}

func (p *Publisher) publish(ctx context.Context, topic, key string, record interface{}) error {
	payload, err := json.Marshal(record)
	if err != nil {
		metrics.PublishTotal.WithLabelValues(topic, "error").Inc()
		return fmt.Errorf("marshal %s record: %w", topic, err)
	}
	if err := p.producer.Publish(ctx, topic, payload); err != nil {
		metrics.PublishTotal.WithLabelValues(topic, "error").Inc()
		return fmt.Errorf("publish %s %s: %w", topic, key, err)
	}
	metrics.PublishTotal.WithLabelValues(topic, "ok").Inc()
	p.logger.Debug("published", zap.String("topic", topic), zap.String("hash", key))
	return nil
}
