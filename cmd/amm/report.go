package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityPool/internal/aggregate"
	"liquidityPool/internal/asset"
	"liquidityPool/internal/chain"
	"liquidityPool/internal/config"
	"liquidityPool/internal/events"
	"liquidityPool/internal/model"
	"liquidityPool/internal/state"
	"liquidityPool/internal/storage"
	"liquidityPool/internal/storage/postgres"
)

func newDecodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode the event journal into typed events",
		RunE:  runDecode,
	}
	cmd.Flags().String("out", "./data/typed_events.jsonl", "output typed events JSONL")
	cmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	return cmd
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Aggregate pool events into window metrics",
		RunE:  runReport,
	}
	cmd.Flags().String("in", "", "typed events JSONL from `amm decode` (default: read the journal)")
	cmd.Flags().String("window", "5m", "aggregation window (e.g. 1m, 5m, 1h)")
	cmd.Flags().Int("batch-size", 1000, "windows per sink write")
	cmd.Flags().String("out", "./data/pool_window_metrics.jsonl", "metrics JSONL when no --pg-dsn")
	cmd.Flags().String("pools-out", "./data/pools.jsonl", "pool records JSONL when no --pg-dsn")
	cmd.Flags().String("report-state", "", "progress file (default: next to --out, or Postgres with --pg-dsn)")
	cmd.Flags().Uint64("recompute-from", 0, "recompute from this journal sequence")
	cmd.Flags().Uint8("decimals", 18, "decimals used when asset metadata is unavailable")
	return cmd
}

func runDecode(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDecode(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	decoder, err := events.NewDecoder(events.NewPoolMetaCache())
	if err != nil {
		return err
	}

	outWriter, err := newJSONLWriter(cfg.Out)
	if err != nil {
		return err
	}
	defer outWriter.Close()
	errWriter, err := newJSONLWriter(cfg.Errors)
	if err != nil {
		return err
	}
	defer errWriter.Close()

	logger.Info("decode start",
		zap.String("journal", cfg.Journal),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
	)

	var total, decoded, skipped, failed int
	err = storage.ScanLogRecords(cfg.Journal, func(record model.LogRecord) error {
		total++
		if len(record.Topics) == 0 || !decoder.CanDecode(record.Topics[0]) {
			skipped++
			return nil
		}
		event, err := decoder.Decode(record)
		if err != nil {
			failed++
			return errWriter.Write(model.DecodeError{
				Sequence:    record.Sequence,
				OperationID: record.OperationID,
				Address:     record.Address,
				Topic0:      record.Topics[0],
				Error:       err.Error(),
			})
		}
		decoded++
		return outWriter.Write(event)
	})
	if err != nil {
		return err
	}

	logger.Info("decode complete",
		zap.Int("total", total),
		zap.Int("decoded", decoded),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)
	return nil
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReport(cfgFile, cmd.Flags())
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

	var source aggregate.DecimalsSource
	if cfg.RPCURL != "" {
		client, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer client.Close()
		source = asset.NewFetcher(client, asset.FetcherConfig{
			MaxRetries: cfg.MaxRetries,
			RetryDelay: cfg.RetryBackoff,
		}, logger)
	}
	decimals := aggregate.NewTokenDecimalsCache(source, cfg.Decimals, logger)

	decoder, err := events.NewDecoder(events.NewPoolMetaCache())
	if err != nil {
		return err
	}

	var (
		input  aggregate.Source
		sink   aggregate.Sink
		states aggregate.StateStore
	)
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		sink = store
		input = &aggregate.DBJournalSource{Reader: store, Decoder: decoder, BatchSize: cfg.BatchSize, Logger: logger}
		states = &state.ProgressDB{Store: store, Name: fmt.Sprintf("report:%d", cfg.WindowSeconds())}
	} else {
		sink = &aggregate.JSONLSink{MetricsPath: cfg.Out, PoolsPath: cfg.PoolsOut}
		input = &aggregate.JournalSource{Path: cfg.Journal, Decoder: decoder, Logger: logger}
		states = &state.ProgressFile{Path: filepath.Join(filepath.Dir(cfg.Out), "report_state.json")}
	}
	if cfg.TypedInput != "" {
		input = &aggregate.TypedFileSource{Path: cfg.TypedInput}
	}
	if cfg.StateFile != "" {
		states = &state.ProgressFile{Path: cfg.StateFile}
	}

	agg := aggregate.NewAggregator(aggregate.Config{
		WindowSeconds: cfg.WindowSeconds(),
		BatchSize:     cfg.BatchSize,
		RecomputeFrom: cfg.RecomputeFrom,
		StateStore:    states,
	}, input, sink, decimals, logger)

	logger.Info("report start",
		zap.String("journal", cfg.Journal),
		zap.String("in", cfg.TypedInput),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Uint64("window_seconds", cfg.WindowSeconds()),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Uint64("recompute_from", cfg.RecomputeFrom),
	)
	return agg.Run(ctx)
}
