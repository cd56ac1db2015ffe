// Package kafka implements the transport on top of segmentio/kafka-go.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"ledgerScope/internal/transport"
)

// Producer publishes to Kafka with leader acknowledgement.
type Producer struct {
	writer *kafkago.Writer
}

var _ transport.Producer = (*Producer)(nil)

// NewProducer creates a producer for the given brokers. The topic is chosen
// per message.
func NewProducer(brokers []string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	return &Producer{
		writer: &kafkago.Writer{
			Addr:                   kafkago.TCP(brokers...),
			Balancer:               &kafkago.LeastBytes{},
			RequiredAcks:           kafkago.RequireOne,
			WriteTimeout:           time.Second,
			BatchTimeout:           10 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
	}, nil
}

func (p *Producer) Publish(ctx context.Context, topic string, payload []byte) error {
	return p.writer.WriteMessages(ctx, kafkago.Message{Topic: topic, Value: payload})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// ConsumerConfig configures a group consumer.
type ConsumerConfig struct {
	Brokers     []string
	Group       string
	Topics      []string
	PollTimeout time.Duration
}

// messageReader is the part of *kafkago.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Consumer reads from Kafka as part of a consumer group and commits offsets
// explicitly.
type Consumer struct {
	reader      messageReader
	pollTimeout time.Duration
	pending     []kafkago.Message
	logger      *zap.Logger
}

var _ transport.Consumer = (*Consumer)(nil)

// NewConsumer joins the consumer group. Partitions with no committed offset
// start from the earliest message.
func NewConsumer(cfg ConsumerConfig, logger *zap.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if cfg.Group == "" {
		return nil, fmt.Errorf("consumer group is required")
	}
	if len(cfg.Topics) == 0 {
		return nil, fmt.Errorf("at least one topic is required")
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.Group,
		GroupTopics:    cfg.Topics,
		StartOffset:    kafkago.FirstOffset,
		CommitInterval: 0,
	})

	return &Consumer{reader: reader, pollTimeout: cfg.PollTimeout, logger: logger}, nil
}

// Poll returns up to max messages, waiting at most the poll timeout. A fetch
// error after some messages were read ends the batch early; those messages
// are returned without error so they can be handled and committed; a
// persistent error is returned by the next Poll.
func (c *Consumer) Poll(ctx context.Context, max int) ([]transport.Message, error) {
	if max <= 0 {
		max = 1
	}

	pollCtx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	c.pending = c.pending[:0]
	out := make([]transport.Message, 0, max)
	for len(out) < max {
		msg, err := c.reader.FetchMessage(pollCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				break
			}
			if len(out) > 0 {
				c.logger.Warn("fetch failed mid-batch, returning partial batch",
					zap.Int("messages", len(out)), zap.Error(err))
				break
			}
			return nil, err
		}
		c.pending = append(c.pending, msg)
		out = append(out, transport.Message{Topic: msg.Topic, Payload: msg.Value})
	}
	return out, nil
}

// Commit commits the offsets of the last polled batch.
func (c *Consumer) Commit(ctx context.Context) error {
	if len(c.pending) == 0 {
		return nil
	}
	if err := c.reader.CommitMessages(ctx, c.pending...); err != nil {
		return fmt.Errorf("commit offsets: %w", err)
	}
	c.logger.Debug("offsets committed", zap.Int("messages", len(c.pending)))
	c.pending = c.pending[:0]
	return nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
