package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ledgerScope/internal/api"
	"ledgerScope/internal/config"
	"ledgerScope/internal/ingest"
	"ledgerScope/internal/query"
	"ledgerScope/internal/store"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Consume published records and serve queries over HTTP",
		RunE:  runServe,
	}

	cmd.Flags().String("listen", "0.0.0.0:3000", "HTTP listen address")
	cmd.Flags().String("group", "group", "consumer group")
	cmd.Flags().String("consumer-name", "", "consumer name within the group (defaults to hostname)")
	cmd.Flags().Int("batch-size", 100, "maximum messages per poll")
	cmd.Flags().Duration("poll-timeout", time.Second, "how long one poll waits for messages")
	addTransportFlags(cmd)

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadServe(cfgFile, cmd.Flags())
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

	consumer, err := newConsumer(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open consumer: %w", err)
	}
	defer func() {
		if err := consumer.Close(); err != nil {
			logger.Warn("close consumer", zap.Error(err))
		}
	}()

	s := store.New()
	loop := ingest.NewLoop(ingest.LoopConfig{BatchSize: cfg.BatchSize}, consumer,
		ingest.NewDecoder(s, topicsFrom(cfg.Transport), logger), logger)

	router, err := api.NewRouter(query.NewEngine(s), logger)
	if err != nil {
		return err
	}
	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("serve start",
		zap.String("listen", cfg.Listen),
		zap.String("transport", cfg.Transport.Kind),
		zap.String("group", cfg.Group),
		zap.String("consumer_name", cfg.ConsumerName),
		zap.String("block_topic", cfg.Transport.BlockTopic),
		zap.String("tx_topic", cfg.Transport.TxTopic),
		zap.Int("batch_size", cfg.BatchSize),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(gctx)
	})
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("serve stopped", zap.Error(err))
	return err
}
