package config

import (
	"strconv"
	"time"

	"github.com/spf13/pflag"
)

// CrawlConfig holds settings for the crawl command.
type CrawlConfig struct {
	RPCURL          string
	FromBlock       uint64
	Delay           time.Duration
	Window          int
	TxHashFilter    string
	BlockHashFilter string
	MaxRetries      int
	RetryBackoff    time.Duration
	Transport       TransportConfig
	LogLevel        string
}

// LoadCrawl merges config file, environment variables, and flags into
// CrawlConfig and validates the result.
func LoadCrawl(cfgFile string, flags *pflag.FlagSet) (CrawlConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"delay":         time.Second,
		"window":        10,
		"max-retries":   10,
		"retry-backoff": 500 * time.Millisecond,
	})
	if err != nil {
		return CrawlConfig{}, err
	}

	if !v.IsSet("from") {
		return CrawlConfig{}, &ConfigError{Key: "from", Reason: "required"}
	}
	from, err := strconv.ParseUint(v.GetString("from"), 10, 64)
	if err != nil {
		return CrawlConfig{}, &ConfigError{Key: "from", Reason: "must be a non-negative integer"}
	}

	cfg := CrawlConfig{
		RPCURL:          v.GetString("rpc"),
		FromBlock:       from,
		Delay:           v.GetDuration("delay"),
		Window:          v.GetInt("window"),
		TxHashFilter:    v.GetString("tx-hash-filter"),
		BlockHashFilter: v.GetString("block-hash-filter"),
		MaxRetries:      v.GetInt("max-retries"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
		Transport:       transportFrom(v),
		LogLevel:        v.GetString("log-level"),
	}
	if err := cfg.Validate(); err != nil {
		return CrawlConfig{}, err
	}
	return cfg, nil
}

// Validate checks required and ranged settings.
func (c CrawlConfig) Validate() error {
	if c.RPCURL == "" {
		return &ConfigError{Key: "rpc", Reason: "required"}
	}
	if c.Window < 1 {
		return &ConfigError{Key: "window", Reason: "must be at least 1"}
	}
	if err := nonNegative("delay", c.Delay); err != nil {
		return err
	}
	if c.MaxRetries < 0 {
		return &ConfigError{Key: "max-retries", Reason: "must not be negative"}
	}
	if err := nonNegative("retry-backoff", c.RetryBackoff); err != nil {
		return err
	}
	return c.Transport.Validate()
}
