package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ledgerScope/internal/config"
	"ledgerScope/internal/transport"
	"ledgerScope/internal/transport/jsonl"
	"ledgerScope/internal/transport/kafka"
	"ledgerScope/internal/transport/redisstream"
)

func topicsFrom(cfg config.TransportConfig) transport.Topics {
	return transport.Topics{Block: cfg.BlockTopic, Tx: cfg.TxTopic}
}

func newProducer(cfg config.TransportConfig) (transport.Producer, error) {
	switch cfg.Kind {
	case config.TransportKafka:
		return kafka.NewProducer(cfg.Brokers)
	case config.TransportRedis:
		return redisstream.NewProducer(cfg.RedisAddr)
	case config.TransportJSONL:
		return jsonl.NewProducer(cfg.JSONLPath)
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Kind)
	}
}

func newConsumer(ctx context.Context, cfg config.ServeConfig, logger *zap.Logger) (transport.Consumer, error) {
	topics := topicsFrom(cfg.Transport).List()
	switch cfg.Transport.Kind {
	case config.TransportKafka:
		return kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:     cfg.Transport.Brokers,
			Group:       cfg.Group,
			Topics:      topics,
			PollTimeout: cfg.PollTimeout,
		}, logger)
	case config.TransportRedis:
		return redisstream.NewConsumer(ctx, redisstream.ConsumerConfig{
			Addr:        cfg.Transport.RedisAddr,
			Group:       cfg.Group,
			Name:        cfg.ConsumerName,
			Topics:      topics,
			PollTimeout: cfg.PollTimeout,
		}, logger)
	case config.TransportJSONL:
		return jsonl.NewConsumer(cfg.Transport.JSONLPath, pollTimeoutOrDefault(cfg.PollTimeout))
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport.Kind)
	}
}

// pollTimeoutOrDefault keeps the file consumer from spinning on an idle file.
func pollTimeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Second
	}
	return d
}
