package config

import (
	"os"
	"time"

	"github.com/spf13/pflag"
)

// ServeConfig holds settings for the serve command.
type ServeConfig struct {
	Listen       string
	Group        string
	ConsumerName string
	BatchSize    int
	PollTimeout  time.Duration
	Transport    TransportConfig
	LogLevel     string
}

// LoadServe merges config file, environment variables, and flags into
// ServeConfig and validates the result.
func LoadServe(cfgFile string, flags *pflag.FlagSet) (ServeConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"listen":       "0.0.0.0:3000",
		"group":        "group",
		"batch-size":   100,
		"poll-timeout": time.Second,
	})
	if err != nil {
		return ServeConfig{}, err
	}

	cfg := ServeConfig{
		Listen:       v.GetString("listen"),
		Group:        v.GetString("group"),
		ConsumerName: v.GetString("consumer-name"),
		BatchSize:    v.GetInt("batch-size"),
		PollTimeout:  v.GetDuration("poll-timeout"),
		Transport:    transportFrom(v),
		LogLevel:     v.GetString("log-level"),
	}
	if cfg.ConsumerName == "" {
		cfg.ConsumerName, _ = os.Hostname()
		if cfg.ConsumerName == "" {
			cfg.ConsumerName = "ledgerscope"
		}
	}
	if err := cfg.Validate(); err != nil {
		return ServeConfig{}, err
	}
	return cfg, nil
}

// Validate checks required and ranged settings.
func (c ServeConfig) Validate() error {
	if c.Listen == "" {
		return &ConfigError{Key: "listen", Reason: "required"}
	}
	if c.Group == "" {
		return &ConfigError{Key: "group", Reason: "required"}
	}
	if c.BatchSize < 1 {
		return &ConfigError{Key: "batch-size", Reason: "must be at least 1"}
	}
	if err := nonNegative("poll-timeout", c.PollTimeout); err != nil {
		return err
	}
	return c.Transport.Validate()
}
