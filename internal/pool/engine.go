// Package pool implements two-asset constant-product liquidity pools on top
// of the in-memory ledger.
//
// Each pool custodies its reserves at an address derived by the engine's
// ledger program and issues shares from a program-derived mint. Every
// operation runs under the pool's lock and commits its transfers as a single
// ledger batch.
package pool

import (
	"context"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityPool/internal/events"
	"liquidityPool/internal/ledger"
	"liquidityPool/internal/model"
)

const (
	// ProgramName is the ledger program that owns pool custody.
	ProgramName = "constant-product-pool"
	// ShareDecimals is the precision of every share mint.
	ShareDecimals = 6
)

var (
	seedPool   = []byte("pool")
	seedShares = []byte("shares")
)

// Emitter receives events for committed operations.
type Emitter interface {
	Emit(ctx context.Context, ev events.Event) (model.LogRecord, error)
}

// Options configures an Engine. All fields are optional.
type Options struct {
	Logger  *zap.Logger
	Journal Emitter
	Metrics *Metrics
}

// Engine owns the pool registry and executes pool operations.
type Engine struct {
	ledger  *ledger.Ledger
	program *ledger.Program
	journal Emitter
	metrics *Metrics
	logger  *zap.Logger

	mu    sync.RWMutex
	pools map[model.PoolKey]*entry
}

type entry struct {
	mu   sync.Mutex
	pool model.Pool
}

// NewEngine registers the pool program on l and returns an empty engine.
func NewEngine(l *ledger.Ledger, opts Options) (*Engine, error) {
	if l == nil {
		return nil, fmt.Errorf("ledger is nil")
	}
	program, err := l.RegisterProgram(ProgramName)
	if err != nil {
		return nil, fmt.Errorf("register pool program: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		ledger:  l,
		program: program,
		journal: opts.Journal,
		metrics: opts.Metrics,
		logger:  logger,
		pools:   make(map[model.PoolKey]*entry),
	}, nil
}

// Ledger returns the ledger the engine operates on.
func (e *Engine) Ledger() *ledger.Ledger {
	return e.ledger
}

func poolSeeds(key model.PoolKey) [][]byte {
	id := make([]byte, 8)
	binary.LittleEndian.PutUint64(id, key.PoolID)
	return [][]byte{seedPool, key.AssetX.Bytes(), key.AssetY.Bytes(), id}
}

func shareSeeds(pool common.Address) [][]byte {
	return [][]byte{seedShares, pool.Bytes()}
}

func (e *Engine) lookup(key model.PoolKey) (*entry, error) {
	e.mu.RLock()
	ent, ok := e.pools[key]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, key)
	}
	return ent, nil
}

// authority re-derives the pool's signing capability from its stored bump.
func (e *Engine) authority(p model.Pool) (ledger.Authorizer, error) {
	auth, err := e.program.Signer(p.AuthorityBump, poolSeeds(p.Key())...)
	if err != nil {
		return nil, fmt.Errorf("pool authority %s: %w", p.Address.Hex(), err)
	}
	return auth, nil
}

// reserves reads the live reserves and share supply of p.
// Callers hold the pool's entry lock.
func (e *Engine) reserves(p model.Pool) model.PoolState {
	return model.PoolState{
		Pool:        p,
		ReserveX:    e.ledger.Balance(p.Address, p.AssetX),
		ReserveY:    e.ledger.Balance(p.Address, p.AssetY),
		ShareSupply: e.ledger.Supply(p.ShareMint),
	}
}

// emit journals ev. The operation is already committed, so a failed append
// is logged and counted but not returned.
func (e *Engine) emit(ctx context.Context, ev events.Event) {
	if e.journal == nil {
		return
	}
	if _, err := e.journal.Emit(ctx, ev); err != nil {
		e.metrics.journalFailed()
		e.logger.Error("journal append failed",
			zap.String("event", ev.Name()),
			zap.String("pool", ev.PoolAddress().Hex()),
			zap.Error(err),
		)
	}
}

func (e *Engine) track(operation string, start time.Time, err *error) {
	e.metrics.observe(operation, time.Since(start).Seconds(), *err)
}

// Pool returns the record for key.
func (e *Engine) Pool(key model.PoolKey) (model.Pool, error) {
	ent, err := e.lookup(key)
	if err != nil {
		return model.Pool{}, err
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	return ent.pool, nil
}

// State returns the record for key with its live reserves and share supply.
func (e *Engine) State(key model.PoolKey) (model.PoolState, error) {
	ent, err := e.lookup(key)
	if err != nil {
		return model.PoolState{}, err
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	return e.reserves(ent.pool), nil
}

// Pools lists every pool record ordered by key.
func (e *Engine) Pools() []model.Pool {
	e.mu.RLock()
	entries := make([]*entry, 0, len(e.pools))
	for _, ent := range e.pools {
		entries = append(entries, ent)
	}
	e.mu.RUnlock()

	out := make([]model.Pool, 0, len(entries))
	for _, ent := range entries {
		ent.mu.Lock()
		out = append(out, ent.pool)
		ent.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key().Less(out[j].Key())
	})
	return out
}
