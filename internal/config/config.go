package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. AMM_PG_DSN.
const EnvPrefix = "AMM"

// Config holds the settings shared by the pool, ledger and serve commands.
type Config struct {
	StateFile    string
	StateName    string
	PGDSN        string
	Journal      string
	RPCURL       string
	MaxRetries   int
	RetryBackoff time.Duration
	Listen       string
	LogLevel     string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"state-file":    "./data/amm_state.json",
		"state-name":    "default",
		"journal":       "./data/journal.jsonl",
		"max-retries":   3,
		"retry-backoff": 500 * time.Millisecond,
		"listen":        ":8080",
		"log-level":     "info",
	})
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		StateFile:    v.GetString("state-file"),
		StateName:    v.GetString("state-name"),
		PGDSN:        v.GetString("pg-dsn"),
		Journal:      v.GetString("journal"),
		RPCURL:       v.GetString("rpc"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		Listen:       v.GetString("listen"),
		LogLevel:     v.GetString("log-level"),
	}
	if cfg.PGDSN == "" && cfg.StateFile == "" {
		return Config{}, fmt.Errorf("either state-file or pg-dsn is required")
	}
	if cfg.MaxRetries < 0 {
		return Config{}, fmt.Errorf("max-retries must be >= 0")
	}
	return cfg, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
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
