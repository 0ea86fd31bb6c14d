package pool

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityPool/internal/curve"
	"liquidityPool/internal/events"
	"liquidityPool/internal/ledger"
	"liquidityPool/internal/model"
)

// WithdrawParams redeems Shares for at least MinX and MinY.
type WithdrawParams struct {
	Shares uint64
	MinX   uint64
	MinY   uint64
}

// Withdraw burns the holder's shares and releases the proportional reserves
// from custody in a single batch.
func (e *Engine) Withdraw(ctx context.Context, holder ledger.Signer, key model.PoolKey, params WithdrawParams) (result LiquidityResult, err error) {
	defer e.track("withdraw", time.Now(), &err)

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
	owner := holder.Address()
	if held := e.ledger.Balance(owner, p.ShareMint); held < params.Shares {
		return LiquidityResult{}, fmt.Errorf("%w: holds %d shares, redeeming %d", ErrInsufficientBalance, held, params.Shares)
	}

	before := e.reserves(p)
	c, err := curve.New(before.ReserveX, before.ReserveY, before.ShareSupply, p.FeeBps)
	if err != nil {
		return LiquidityResult{}, curveError(err)
	}
	amounts, err := c.WithdrawAmounts(params.Shares)
	if err != nil {
		return LiquidityResult{}, curveError(err)
	}
	if amounts.X == 0 || amounts.Y == 0 {
		return LiquidityResult{}, fmt.Errorf("%w: %d shares redeem x=%d y=%d", ErrInvalidAmount, params.Shares, amounts.X, amounts.Y)
	}
	if amounts.X < params.MinX || amounts.Y < params.MinY {
		return LiquidityResult{}, fmt.Errorf("%w: releases x=%d y=%d, min x=%d y=%d",
			ErrSlippageExceeded, amounts.X, amounts.Y, params.MinX, params.MinY)
	}

	auth, err := e.authority(p)
	if err != nil {
		return LiquidityResult{}, err
	}
	err = e.ledger.NewBatch().
		Burn(p.ShareMint, owner, params.Shares, holder).
		Move(p.AssetX, p.Address, owner, amounts.X, auth).
		Move(p.AssetY, p.Address, owner, amounts.Y, auth).
		Commit()
	if err != nil {
		return LiquidityResult{}, ledgerError(err)
	}

	after := e.reserves(p)
	e.logger.Debug("withdraw",
		zap.String("pool", key.String()),
		zap.String("owner", owner.Hex()),
		zap.Uint64("shares", params.Shares),
		zap.Uint64("amount_x", amounts.X),
		zap.Uint64("amount_y", amounts.Y),
	)
	e.emit(ctx, events.Withdraw{Liquidity: liquidityEvent(after, owner, params.Shares, amounts)})
	return LiquidityResult{Shares: params.Shares, AmountX: amounts.X, AmountY: amounts.Y, State: after}, nil
}

func liquidityEvent(after model.PoolState, owner common.Address, shares uint64, amounts curve.Amounts) events.Liquidity {
	return events.Liquidity{
		Pool:        after.Pool.Address,
		Owner:       owner,
		Shares:      shares,
		AmountX:     amounts.X,
		AmountY:     amounts.Y,
		ReserveX:    after.ReserveX,
		ReserveY:    after.ReserveY,
		ShareSupply: after.ShareSupply,
	}
}
