package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ledgerScope/internal/chain"
	"ledgerScope/internal/config"
	"ledgerScope/internal/crawler"
)

func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl blocks and transactions and publish them to the transport",
		RunE:  runCrawl,
	}

	cmd.Flags().String("rpc", "", "ledger node RPC URL")
	cmd.Flags().Uint64("from", 0, "start block (inclusive)")
	cmd.Flags().Duration("delay", time.Second, "delay before each provider request")
	cmd.Flags().Int("window", crawler.DefaultWindow, "in-flight requests per stage")
	cmd.Flags().String("tx-hash-filter", "", "publish only transactions whose hash contains this substring")
	cmd.Flags().String("block-hash-filter", "", "publish only blocks whose hash contains this substring")
	cmd.Flags().Int("max-retries", 10, "maximum retry attempts on rate-limit responses")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	addTransportFlags(cmd)

	return cmd
}

func runCrawl(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadCrawl(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, chain.ClientConfig{
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, logger)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	producer, err := newProducer(cfg.Transport)
	if err != nil {
		return fmt.Errorf("open producer: %w", err)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			logger.Warn("close producer", zap.Error(err))
		}
	}()

	pipeline := crawler.NewPipeline(crawler.Config{
		FromBlock: cfg.FromBlock,
		Window:    cfg.Window,
		Delay:     cfg.Delay,
		Filter: crawler.FilterOption{
			TxHashSubstring:    cfg.TxHashFilter,
			BlockHashSubstring: cfg.BlockHashFilter,
		},
	}, chainClient, crawler.NewPublisher(producer, topicsFrom(cfg.Transport), logger), logger)

	logger.Info("crawler start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("from", cfg.FromBlock),
		zap.Duration("delay", cfg.Delay),
		zap.Int("window", cfg.Window),
		zap.String("transport", cfg.Transport.Kind),
		zap.String("block_topic", cfg.Transport.BlockTopic),
		zap.String("tx_topic", cfg.Transport.TxTopic),
		zap.String("tx_hash_filter", cfg.TxHashFilter),
		zap.String("block_hash_filter", cfg.BlockHashFilter),
	)

	_, err = pipeline.Run(ctx)
	return err
}
