package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "ledgerscope",
		Short:        "Ledger crawler and query service",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	root.AddCommand(newCrawlCmd())
	root.AddCommand(newServeCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// addTransportFlags registers the flags shared by both commands.
func addTransportFlags(cmd *cobra.Command) {
	cmd.Flags().String("transport", "kafka", "event transport (kafka, redis, jsonl)")
	cmd.Flags().StringSlice("brokers", nil, "kafka brokers (comma-separated)")
	cmd.Flags().String("redis-addr", "", "redis address for the redis transport")
	cmd.Flags().String("jsonl-path", "", "event file for the jsonl transport")
	cmd.Flags().String("block-topic", "block", "block topic name")
	cmd.Flags().String("tx-topic", "tx", "transaction topic name")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
