package aggregate

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"liquidityPool/internal/model"
)

// StateStore persists the last journal sequence whose windows are complete.
type StateStore interface {
	Load(ctx context.Context) (uint64, bool, error)
	Save(ctx context.Context, sequence uint64) error
}

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds uint64
	BatchSize     int
	// RecomputeFrom restarts aggregation at this journal sequence,
	// ignoring saved progress. Zero resumes from the state store.
	RecomputeFrom uint64
	StateStore    StateStore
}

// Aggregator folds decoded pool events into per-pool time windows.
//
// Windows close when the journal reaches an event in a later window. Saved
// progress is the last sequence before the oldest open window, so a rerun
// rebuilds every open window from its first event.
type Aggregator struct {
	cfg      Config
	source   Source
	sink     Sink
	decimals *TokenDecimalsCache
	logger   *zap.Logger

	accumulators map[string]*Accumulator
	reserves     map[string][2]*big.Int
	poolSeen     map[string]model.PoolInfo

	current    uint64
	haveWindow bool
	completed  uint64
}

func NewAggregator(cfg Config, source Source, sink Sink, decimals *TokenDecimalsCache, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if decimals == nil {
		decimals = NewTokenDecimalsCache(nil, 0, logger)
	}
	return &Aggregator{
		cfg:          cfg,
		source:       source,
		sink:         sink,
		decimals:     decimals,
		logger:       logger,
		accumulators: make(map[string]*Accumulator),
		reserves:     make(map[string][2]*big.Int),
		poolSeen:     make(map[string]model.PoolInfo),
	}
}

// Run aggregates every event after the resume point and writes the windows to the sink.
func (a *Aggregator) Run(ctx context.Context) error {
	if a.source == nil {
		return fmt.Errorf("source is nil")
	}
	if a.sink == nil {
		return fmt.Errorf("sink is nil")
	}
	if a.cfg.WindowSeconds == 0 {
		return fmt.Errorf("window seconds must be > 0")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = 1000
	}

	start, err := a.loadStart(ctx)
	if err != nil {
		return err
	}
	a.completed = start

	batch := make([]model.PoolWindowMetrics, 0, a.cfg.BatchSize)
	pools := make([]model.PoolInfo, 0, 16)
	var total, windows, failed, late int
	var last uint64

	err = a.source.Each(ctx, start, func(record model.TypedEventRecord) error {
		total++
		ws := windowStart(record.Timestamp, a.cfg.WindowSeconds)
		switch {
		case !a.haveWindow:
			a.current, a.haveWindow = ws, true
		case ws > a.current:
			closed, closedPools := a.closeAll(ctx)
			batch = append(batch, closed...)
			pools = append(pools, closedPools...)
			windows += len(closed)
			a.completed = record.Sequence - 1
			a.current = ws
		case ws < a.current:
			late++
			a.logger.Debug("event before open window", zap.Uint64("sequence", record.Sequence), zap.Uint64("timestamp", record.Timestamp))
		}

		key := poolKey(record.Address)
		acc := a.accumulators[key]
		if acc == nil {
			acc = NewAccumulator(record, a.current, a.current+a.cfg.WindowSeconds)
			if prev, ok := a.reserves[key]; ok {
				acc.ReserveX, acc.ReserveY = prev[0], prev[1]
			}
			a.accumulators[key] = acc
		}
		if err := acc.AddEvent(record); err != nil {
			failed++
			a.logger.Warn("aggregate event", zap.Error(err), zap.String("pool", record.Address), zap.String("event", record.EventName))
			return nil
		}
		last = record.Sequence

		if len(batch) >= a.cfg.BatchSize {
			if err := a.flush(ctx, batch, pools); err != nil {
				return err
			}
			batch = batch[:0]
			pools = pools[:0]
			if err := a.saveState(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	open, openPools := a.closeAll(ctx)
	batch = append(batch, open...)
	pools = append(pools, openPools...)
	windows += len(open)
	if err := a.flush(ctx, batch, pools); err != nil {
		return err
	}
	if err := a.saveState(ctx); err != nil {
		return err
	}

	a.logger.Info("report complete",
		zap.Int("events", total),
		zap.Int("windows", windows),
		zap.Int("failed", failed),
		zap.Int("late", late),
		zap.Uint64("last_sequence", last),
		zap.Uint64("saved_sequence", a.completed),
	)
	return nil
}

func (a *Aggregator) loadStart(ctx context.Context) (uint64, error) {
	if a.cfg.RecomputeFrom > 0 {
		return a.cfg.RecomputeFrom - 1, nil
	}
	if a.cfg.StateStore == nil {
		return 0, nil
	}
	last, ok, err := a.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load report state: %w", err)
	}
	if !ok {
		return 0, nil
	}
	return last, nil
}

func (a *Aggregator) saveState(ctx context.Context) error {
	if a.cfg.StateStore == nil {
		return nil
	}
	if err := a.cfg.StateStore.Save(ctx, a.completed); err != nil {
		return fmt.Errorf("save report state: %w", err)
	}
	return nil
}

func (a *Aggregator) flush(ctx context.Context, batch []model.PoolWindowMetrics, pools []model.PoolInfo) error {
	if len(pools) > 0 {
		if err := a.sink.UpsertPools(ctx, pools); err != nil {
			return fmt.Errorf("upsert pools: %w", err)
		}
	}
	if len(batch) > 0 {
		if err := a.sink.UpsertWindowMetrics(ctx, batch); err != nil {
			return fmt.Errorf("upsert window metrics: %w", err)
		}
	}
	return nil
}

// closeAll finishes every open accumulator in pool address order.
func (a *Aggregator) closeAll(ctx context.Context) ([]model.PoolWindowMetrics, []model.PoolInfo) {
	keys := make([]string, 0, len(a.accumulators))
	for key := range a.accumulators {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var metrics []model.PoolWindowMetrics
	var pools []model.PoolInfo
	for _, key := range keys {
		acc := a.accumulators[key]
		if acc.ReserveX != nil {
			a.reserves[key] = [2]*big.Int{acc.ReserveX, acc.ReserveY}
		}
		m, pool := a.finish(ctx, acc)
		if m != nil {
			metrics = append(metrics, *m)
		}
		if pool != nil {
			pools = append(pools, *pool)
		}
	}
	a.accumulators = make(map[string]*Accumulator)
	return metrics, pools
}

func (a *Aggregator) finish(ctx context.Context, acc *Accumulator) (*model.PoolWindowMetrics, *model.PoolInfo) {
	meta := acc.PoolMeta
	if meta.AssetX == "" || meta.AssetY == "" {
		a.logger.Warn("missing pool meta", zap.String("pool", acc.PoolAddress))
		return nil, nil
	}

	decimalsX := a.decimals.Get(ctx, meta.AssetX)
	decimalsY := a.decimals.Get(ctx, meta.AssetY)

	rateX := computeFeeRate(acc.FeeX, acc.ReserveX)
	rateY := computeFeeRate(acc.FeeY, acc.ReserveY)
	apr := computeAPR(rateX, rateY, a.cfg.WindowSeconds)

	metrics := &model.PoolWindowMetrics{
		PoolAddress:    acc.PoolAddress,
		WindowSizeSecs: int64(a.cfg.WindowSeconds),
		WindowStart:    time.Unix(int64(acc.WindowStart), 0).UTC(),
		WindowEnd:      time.Unix(int64(acc.WindowEnd), 0).UTC(),
		SwapCount:      acc.SwapCount,
		DepositCount:   acc.DepositCount,
		WithdrawCount:  acc.WithdrawCount,
		VolumeX:        formatTokenAmount(acc.VolumeX, decimalsX),
		VolumeY:        formatTokenAmount(acc.VolumeY, decimalsY),
		FeeX:           formatTokenAmount(acc.FeeX, decimalsX),
		FeeY:           formatTokenAmount(acc.FeeY, decimalsY),
		ReserveX:       formatOptionalAmount(acc.ReserveX, decimalsX),
		ReserveY:       formatOptionalAmount(acc.ReserveY, decimalsY),
		FeeRateX:       formatRat(rateX),
		FeeRateY:       formatRat(rateY),
		APR:            formatRat(apr),
		LastSequence:   acc.LastSequence,
	}
	return metrics, a.registerPool(acc)
}

// registerPool returns the pool record when it is new or seen earlier than before.
func (a *Aggregator) registerPool(acc *Accumulator) *model.PoolInfo {
	key := poolKey(acc.PoolAddress)
	pool := model.PoolInfo{
		Address:           acc.PoolAddress,
		Meta:              acc.PoolMeta,
		FirstSeenSequence: acc.FirstSequence,
	}
	if existing, ok := a.poolSeen[key]; ok && existing.FirstSeenSequence <= pool.FirstSeenSequence {
		return nil
	}
	a.poolSeen[key] = pool
	return &pool
}

func poolKey(address string) string {
	return strings.ToLower(address)
}
