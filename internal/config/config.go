// Package config loads command settings from flags, LEDGERSCOPE_* environment
// variables and an optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "LEDGERSCOPE"

// Transport kinds.
const (
	TransportKafka = "kafka"
	TransportRedis = "redis"
	TransportJSONL = "jsonl"
)

// ConfigError reports a missing or invalid setting. It is only produced at
// startup.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Key, e.Reason)
}

// IsConfigError reports whether err wraps a ConfigError.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

// TransportConfig selects and addresses the event transport.
type TransportConfig struct {
	Kind       string
	Brokers    []string
	RedisAddr  string
	JSONLPath  string
	BlockTopic string
	TxTopic    string
}

// Validate checks that the selected transport has what it needs.
func (t TransportConfig) Validate() error {
	switch t.Kind {
	case TransportKafka:
		if len(t.Brokers) == 0 {
			return &ConfigError{Key: "brokers", Reason: "required for kafka transport"}
		}
	case TransportRedis:
		if t.RedisAddr == "" {
			return &ConfigError{Key: "redis-addr", Reason: "required for redis transport"}
		}
	case TransportJSONL:
		if t.JSONLPath == "" {
			return &ConfigError{Key: "jsonl-path", Reason: "required for jsonl transport"}
		}
	default:
		return &ConfigError{Key: "transport", Reason: fmt.Sprintf("unknown transport %q", t.Kind)}
	}
	if t.BlockTopic == "" {
		return &ConfigError{Key: "block-topic", Reason: "must not be empty"}
	}
	if t.TxTopic == "" {
		return &ConfigError{Key: "tx-topic", Reason: "must not be empty"}
	}
	if t.BlockTopic == t.TxTopic {
		return &ConfigError{Key: "tx-topic", Reason: "must differ from block-topic"}
	}
	return nil
}

// load builds a viper instance with shared defaults, binds flags and reads
// the config file.
func load(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("transport", TransportKafka)
	v.SetDefault("block-topic", "block")
	v.SetDefault("tx-topic", "tx")
	v.SetDefault("log-level", "info")
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func transportFrom(v *viper.Viper) TransportConfig {
	return TransportConfig{
		Kind:       strings.ToLower(strings.TrimSpace(v.GetString("transport"))),
		Brokers:    getStringSlice(v, "brokers"),
		RedisAddr:  v.GetString("redis-addr"),
		JSONLPath:  v.GetString("jsonl-path"),
		BlockTopic: v.GetString("block-topic"),
		TxTopic:    v.GetString("tx-topic"),
	}
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

func nonNegative(key string, d time.Duration) error {
	if d < 0 {
		return &ConfigError{Key: key, Reason: "must not be negative"}
	}
	return nil
}
