package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// ReportConfig holds configuration for the report command.
type ReportConfig struct {
	Journal       string
	TypedInput    string
	Window        time.Duration
	PGDSN         string
	BatchSize     int
	StateFile     string
	Out           string
	PoolsOut      string
	RecomputeFrom uint64
	RPCURL        string
	MaxRetries    int
	RetryBackoff  time.Duration
	Decimals      uint8
	LogLevel      string
}

// WindowSeconds returns the window length in whole seconds.
func (c ReportConfig) WindowSeconds() uint64 {
	return uint64(c.Window / time.Second)
}

// LoadReport merges config file, environment variables, and flags into ReportConfig.
func LoadReport(cfgFile string, flags *pflag.FlagSet) (ReportConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"journal":       "./data/journal.jsonl",
		"window":        "5m",
		"batch-size":    1000,
		"out":           "./data/pool_window_metrics.jsonl",
		"pools-out":     "./data/pools.jsonl",
		"decimals":      18,
		"max-retries":   3,
		"retry-backoff": 500 * time.Millisecond,
		"log-level":     "info",
	})
	if err != nil {
		return ReportConfig{}, err
	}

	window, err := time.ParseDuration(v.GetString("window"))
	if err != nil {
		return ReportConfig{}, fmt.Errorf("invalid window: %w", err)
	}
	if window < time.Second {
		return ReportConfig{}, fmt.Errorf("window must be at least 1s")
	}
	decimals := v.GetInt("decimals")
	if decimals < 0 || decimals > 77 {
		return ReportConfig{}, fmt.Errorf("decimals out of range: %d", decimals)
	}

	return ReportConfig{
		Journal:       v.GetString("journal"),
		TypedInput:    v.GetString("in"),
		Window:        window,
		PGDSN:         v.GetString("pg-dsn"),
		BatchSize:     v.GetInt("batch-size"),
		StateFile:     v.GetString("report-state"),
		Out:           v.GetString("out"),
		PoolsOut:      v.GetString("pools-out"),
		RecomputeFrom: v.GetUint64("recompute-from"),
		RPCURL:        v.GetString("rpc"),
		MaxRetries:    v.GetInt("max-retries"),
		RetryBackoff:  v.GetDuration("retry-backoff"),
		Decimals:      uint8(decimals),
		LogLevel:      v.GetString("log-level"),
	}, nil
}
