package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "amm",
		Short:        "Constant-product liquidity pools",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file path")
	pf.String("state-file", "./data/amm_state.json", "engine snapshot file (ignored with --pg-dsn)")
	pf.String("state-name", "default", "engine snapshot name in Postgres")
	pf.String("pg-dsn", "", "Postgres DSN for journal and state")
	pf.String("journal", "./data/journal.jsonl", "event journal JSONL (ignored with --pg-dsn)")
	pf.String("rpc", "", "Ethereum RPC URL for asset metadata")
	pf.Int("max-retries", 3, "maximum RPC retry attempts")
	pf.Duration("retry-backoff", 500*time.Millisecond, "initial RPC retry backoff")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(newPoolCmd())
	root.AddCommand(newFundCmd())
	root.AddCommand(newBalanceCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newDecodeCmd())
	root.AddCommand(newReportCmd())
	return root
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

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}

func printJSON(cmd *cobra.Command, value interface{}) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
