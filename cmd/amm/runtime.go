package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityPool/internal/config"
	"liquidityPool/internal/events"
	"liquidityPool/internal/ledger"
	"liquidityPool/internal/pool"
	"liquidityPool/internal/state"
	"liquidityPool/internal/storage"
	"liquidityPool/internal/storage/postgres"
)

// runtime is a restored engine wired to its journal and snapshot store.
type runtime struct {
	cfg     config.Config
	logger  *zap.Logger
	engine  *pool.Engine
	journal *events.Journal
	states  state.Store
	pg      *postgres.Store

	saveMu sync.Mutex
}

func openRuntime(ctx context.Context, cmd *cobra.Command, metrics *pool.Metrics) (*runtime, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, logger: logger}
	var sink storage.Storage
	var last uint64
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		rt.pg = store
		if err := store.EnsureSchema(ctx); err != nil {
			rt.close()
			return nil, err
		}
		if last, err = store.LastSequence(ctx); err != nil {
			rt.close()
			return nil, fmt.Errorf("journal sequence: %w", err)
		}
		sink = store
		rt.states = &state.DBStore{Store: store, Name: cfg.StateName}
	} else {
		if last, err = storage.LastSequence(cfg.Journal); err != nil {
			return nil, fmt.Errorf("journal sequence: %w", err)
		}
		sink = storage.NewJsonlStorage(cfg.Journal)
		rt.states = &state.FileStore{Path: cfg.StateFile}
	}

	rt.journal, err = events.NewJournal(sink, last, logger)
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.engine, err = pool.NewEngine(ledger.New(), pool.Options{
		Logger:  logger,
		Journal: rt.journal,
		Metrics: metrics,
	})
	if err != nil {
		rt.close()
		return nil, err
	}

	snap, ok, err := rt.states.Load(ctx)
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("load state: %w", err)
	}
	if ok {
		if err := rt.engine.Restore(snap.Snapshot); err != nil {
			rt.close()
			return nil, err
		}
		if snap.Sequence != last {
			logger.Warn("snapshot and journal disagree",
				zap.Uint64("snapshot_sequence", snap.Sequence),
				zap.Uint64("journal_sequence", last),
			)
		}
	}

	logger.Debug("runtime ready",
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("state_file", cfg.StateFile),
		zap.String("journal", cfg.Journal),
		zap.Int("pools", len(rt.engine.Pools())),
		zap.Uint64("sequence", last),
	)
	return rt, nil
}

// save persists a snapshot at the journal's current sequence.
func (rt *runtime) save(ctx context.Context) error {
	rt.saveMu.Lock()
	defer rt.saveMu.Unlock()
	if err := rt.states.Save(ctx, state.Capture(rt.engine, rt.journal.Sequence())); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (rt *runtime) close() {
	if rt.pg != nil {
		rt.pg.Close()
	}
	if rt.logger != nil {
		_ = rt.logger.Sync()
	}
}
