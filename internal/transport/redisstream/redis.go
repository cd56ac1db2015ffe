// Package redisstream implements the transport on Redis Streams. Each topic
// is a stream; consumption uses XREADGROUP and XACK.
package redisstream

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ledgerScope/internal/transport"
)

const payloadField = "payload"

// Producer appends payloads to per-topic streams.
type Producer struct {
	db *redis.Client
}

var _ transport.Producer = (*Producer)(nil)

func NewProducer(addr string) (*Producer, error) {
	if addr == "" {
		return nil, errors.New("empty redis addr")
	}
	return &Producer{db: redis.NewClient(&redis.Options{Addr: addr})}, nil
}

func (p *Producer) Publish(ctx context.Context, topic string, payload []byte) error {
	err := p.db.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		Values: map[string]interface{}{payloadField: payload},
	}).Err()
	if err != nil {
		return errors.Wrapf(err, "failed to xadd to stream %s", topic)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.db.Close()
}

// ConsumerConfig configures a stream group consumer.
type ConsumerConfig struct {
	Addr        string
	Group       string
	Name        string
	Topics      []string
	PollTimeout time.Duration
}

// Consumer reads from the group's streams. On start it first drains entries
// that were delivered to this consumer name but never acknowledged.
type Consumer struct {
	db          *redis.Client
	group       string
	name        string
	topics      []string
	pollTimeout time.Duration
	replaying   bool
	pending     map[string][]string
	logger      *zap.Logger
}

var _ transport.Consumer = (*Consumer)(nil)

func NewConsumer(ctx context.Context, cfg ConsumerConfig, logger *zap.Logger) (*Consumer, error) {
	if cfg.Addr == "" {
		return nil, errors.New("empty redis addr")
	}
	if cfg.Group == "" {
		return nil, errors.New("empty consumer group")
	}
	if len(cfg.Topics) == 0 {
		return nil, errors.New("no topics to consume")
	}
	if cfg.Name == "" {
		cfg.Name = "ledgerscope"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Consumer{
		db:          redis.NewClient(&redis.Options{Addr: cfg.Addr}),
		group:       cfg.Group,
		name:        cfg.Name,
		topics:      cfg.Topics,
		pollTimeout: cfg.PollTimeout,
		replaying:   true,
		pending:     make(map[string][]string),
		logger:      logger,
	}

	for _, topic := range cfg.Topics {
		err := c.db.XGroupCreateMkStream(ctx, topic, cfg.Group, "0").Err()
		if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
			c.db.Close()
			return nil, errors.Wrapf(err, "failed to create group %s on stream %s", cfg.Group, topic)
		}
	}

	return c, nil
}

// Poll returns up to max messages per stream.
func (c *Consumer) Poll(ctx context.Context, max int) ([]transport.Message, error) {
	if max <= 0 {
		max = 1
	}
	c.pending = make(map[string][]string)

	if c.replaying {
		msgs, err := c.read(ctx, "0", max, -1)
		if err != nil {
			return nil, err
		}
		if len(msgs) > 0 {
			c.logger.Info("replaying unacknowledged entries", zap.Int("messages", len(msgs)))
			return msgs, nil
		}
		c.replaying = false
	}

	block := time.Duration(-1)
	if c.pollTimeout > 0 {
		block = c.pollTimeout
	}
	return c.read(ctx, ">", max, block)
}

func (c *Consumer) read(ctx context.Context, id string, max int, block time.Duration) ([]transport.Message, error) {
	streams := make([]string, 0, len(c.topics)*2)
	streams = append(streams, c.topics...)
	for range c.topics {
		streams = append(streams, id)
	}

	res, err := c.db.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.name,
		Streams:  streams,
		Count:    int64(max),
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to xreadgroup")
	}

	var out []transport.Message
	for _, stream := range res {
		for _, entry := range stream.Messages {
			c.pending[stream.Stream] = append(c.pending[stream.Stream], entry.ID)
			payload, _ := entry.Values[payloadField].(string)
			out = append(out, transport.Message{Topic: stream.Stream, Payload: []byte(payload)})
		}
	}
	return out, nil
}

// Commit acknowledges the entries returned by the last Poll.
func (c *Consumer) Commit(ctx context.Context) error {
	for stream, ids := range c.pending {
		if len(ids) == 0 {
			continue
		}
		if err := c.db.XAck(ctx, stream, c.group, ids...).Err(); err != nil {
			return errors.Wrapf(err, "failed to xack %d entries on %s", len(ids), stream)
		}
	}
	c.pending = make(map[string][]string)
	return nil
}

func (c *Consumer) Close() error {
	return c.db.Close()
}
