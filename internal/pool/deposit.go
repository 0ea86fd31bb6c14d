package pool

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"liquidityPool/internal/curve"
	"liquidityPool/internal/events"
	"liquidityPool/internal/ledger"
	"liquidityPool/internal/model"
)

// DepositParams requests Shares new shares for at most MaxX and MaxY.
// When the pool is empty the deposit bootstraps it: exactly MaxX and MaxY
// are contributed and set the initial price.
type DepositParams struct {
	Shares uint64
	MaxX   uint64
	MaxY   uint64
}

// LiquidityResult reports the amounts moved by a deposit or withdrawal and
// the pool state after it.
type LiquidityResult struct {
	Shares  uint64
	AmountX uint64
	AmountY uint64
	State   model.PoolState
}

// Deposit moves reserves from the depositor into custody and mints shares to
// the depositor in a single batch.
func (e *Engine) Deposit(ctx context.Context, depositor ledger.Signer, key model.PoolKey, params DepositParams) (result LiquidityResult, err error) {
	defer e.track("deposit", time.Now(), &err)

	ent, err := e.lookup(key)
	if err != nil {
		return LiquidityResult{}, err
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	p := ent.pool

	if p.Locked {
		return LiquidityResult{}, fmt.Errorf("%w: %s", ErrPoolLocked, key)
	}
	if params.Shares == 0 {
		return LiquidityResult{}, fmt.Errorf("%w: zero shares", ErrInvalidAmount)
	}

	before := e.reserves(p)
	var amounts curve.Amounts
	if before.ShareSupply == 0 && before.ReserveX == 0 && before.ReserveY == 0 {
		if params.MaxX == 0 || params.MaxY == 0 {
			return LiquidityResult{}, fmt.Errorf("%w: bootstrap deposit needs both assets", ErrInvalidAmount)
		}
		amounts = curve.Amounts{X: params.MaxX, Y: params.MaxY}
	} else {
		c, err := curve.New(before.ReserveX, before.ReserveY, before.ShareSupply, p.FeeBps)
		if err != nil {
			return LiquidityResult{}, curveError(err)
		}
		amounts, err = c.DepositAmounts(params.Shares)
		if err != nil {
			return LiquidityResult{}, curveError(err)
		}
		if amounts.X > params.MaxX || amounts.Y > params.MaxY {
			return LiquidityResult{}, fmt.Errorf("%w: needs x=%d y=%d, max x=%d y=%d",
				ErrSlippageExceeded, amounts.X, amounts.Y, params.MaxX, params.MaxY)
		}
	}

	auth, err := e.authority(p)
	if err != nil {
		return LiquidityResult{}, err
	}
	owner := depositor.Address()
	err = e.ledger.NewBatch().
		Move(p.AssetX, owner, p.Address, amounts.X, depositor).
		Move(p.AssetY, owner, p.Address, amounts.Y, depositor).
		Mint(p.ShareMint, owner, params.Shares, auth).
		Commit()
	if err != nil {
		return LiquidityResult{}, ledgerError(err)
	}

	after := e.reserves(p)
	e.logger.Debug("deposit",
		zap.String("pool", key.String()),
		zap.String("owner", owner.Hex()),
		zap.Uint64("shares", params.Shares),
		zap.Uint64("amount_x", amounts.X),
		zap.Uint64("amount_y", amounts.Y),
	)
	e.emit(ctx, events.Deposit{Liquidity: liquidityEvent(after, owner, params.Shares, amounts)})
	return LiquidityResult{Shares: params.Shares, AmountX: amounts.X, AmountY: amounts.Y, State: after}, nil
}
