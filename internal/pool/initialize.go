package pool

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityPool/internal/events"
	"liquidityPool/internal/ledger"
	"liquidityPool/internal/model"
)

// InitializeParams describes a new pool.
type InitializeParams struct {
	AssetX    common.Address
	AssetY    common.Address
	PoolID    uint64
	FeeBps    uint16
	Authority *common.Address
}

// Initialize creates an empty, unlocked pool. It derives the pool custody
// address and share mint, allocates both to the pool program and registers
// the record. No value moves.
func (e *Engine) Initialize(ctx context.Context, initializer ledger.Signer, params InitializeParams) (pool model.Pool, err error) {
	defer e.track("initialize", time.Now(), &err)

	if params.FeeBps >= model.MaxFeeBps {
		return model.Pool{}, fmt.Errorf("%w: %d bps", ErrInvalidFee, params.FeeBps)
	}
	if params.AssetX == params.AssetY {
		return model.Pool{}, fmt.Errorf("%w: %s", ErrIdenticalAssets, params.AssetX.Hex())
	}
	key := model.PoolKey{AssetX: params.AssetX, AssetY: params.AssetY, PoolID: params.PoolID}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.pools[key]; exists {
		return model.Pool{}, fmt.Errorf("%w: %s", ErrDuplicatePool, key)
	}

	custody, err := e.program.AllocateCustody(poolSeeds(key), shareSeeds, ShareDecimals)
	if err != nil {
		return model.Pool{}, fmt.Errorf("allocate pool custody: %w", err)
	}
	address, shareMint := custody.Address, custody.Mint

	pool = model.Pool{
		PoolID:        params.PoolID,
		AssetX:        params.AssetX,
		AssetY:        params.AssetY,
		FeeBps:        params.FeeBps,
		AuthorityBump: custody.AddressBump,
		ShareMintBump: custody.MintBump,
		Address:       address,
		ShareMint:     shareMint,
	}
	if params.Authority != nil {
		authority := *params.Authority
		pool.Authority = &authority
	}
	e.pools[key] = &entry{pool: pool}
	e.metrics.setPools(len(e.pools))

	e.logger.Info("pool initialized",
		zap.String("pool", key.String()),
		zap.String("address", address.Hex()),
		zap.String("share_mint", shareMint.Hex()),
		zap.Uint16("fee_bps", params.FeeBps),
		zap.String("initializer", initializer.Address().Hex()),
	)
	e.emit(ctx, events.PoolInitialized{
		Pool:        address,
		Initializer: initializer.Address(),
		PoolID:      params.PoolID,
		AssetX:      params.AssetX,
		AssetY:      params.AssetY,
		ShareMint:   shareMint,
		FeeBps:      params.FeeBps,
		Authority:   pool.Authority,
	})
	return pool, nil
}
