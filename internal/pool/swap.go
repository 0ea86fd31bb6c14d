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

// Direction selects which asset a swap sells into the pool.
type Direction int

const (
	XToY Direction = iota
	YToX
)

func (d Direction) String() string {
	switch d {
	case XToY:
		return "x_to_y"
	case YToX:
		return "y_to_x"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// ParseDirection accepts "x_to_y" / "xy" and "y_to_x" / "yx".
func ParseDirection(input string) (Direction, error) {
	switch input {
	case "x_to_y", "xy", "x":
		return XToY, nil
	case "y_to_x", "yx", "y":
		return YToX, nil
	default:
		return 0, fmt.Errorf("invalid swap direction: %s", input)
	}
}

// SwapParams sells AmountIn of the input asset for at least MinOut.
type SwapParams struct {
	Direction Direction
	AmountIn  uint64
	MinOut    uint64
}

// SwapResult reports the legs of a swap and the pool state after it.
// Fee is the part of AmountIn retained by the reserve without pricing.
type SwapResult struct {
	AmountIn  uint64
	AmountOut uint64
	Fee       uint64
	State     model.PoolState
}

// Swap credits AmountIn to the input reserve and releases the priced output
// from the opposite reserve in a single batch.
func (e *Engine) Swap(ctx context.Context, trader ledger.Signer, key model.PoolKey, params SwapParams) (result SwapResult, err error) {
	defer e.track("swap", time.Now(), &err)

	var pair curve.Pair
	switch params.Direction {
	case XToY:
		pair = curve.X
	case YToX:
		pair = curve.Y
	default:
		return SwapResult{}, fmt.Errorf("%w: %s", ErrInvalidAmount, params.Direction)
	}

	ent, err := e.lookup(key)
	if err != nil {
		return SwapResult{}, err
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	p := ent.pool

	if p.Locked {
		return SwapResult{}, fmt.Errorf("%w: %s", ErrPoolLocked, key)
	}
	if params.AmountIn == 0 {
		return SwapResult{}, fmt.Errorf("%w: zero input", ErrInvalidAmount)
	}

	before := e.reserves(p)
	c, err := curve.New(before.ReserveX, before.ReserveY, before.ShareSupply, p.FeeBps)
	if err != nil {
		return SwapResult{}, curveError(err)
	}
	// A zero output is InvalidAmount even when MinOut would also reject it.
	res, err := c.Swap(pair, params.AmountIn, 0)
	if err != nil {
		return SwapResult{}, curveError(err)
	}
	if res.Deposit == 0 || res.Withdraw == 0 {
		return SwapResult{}, fmt.Errorf("%w: %d in yields %d out", ErrInvalidAmount, res.Deposit, res.Withdraw)
	}
	if res.Withdraw < params.MinOut {
		return SwapResult{}, fmt.Errorf("%w: got %d, want at least %d", ErrSlippageExceeded, res.Withdraw, params.MinOut)
	}

	assetIn, assetOut := p.AssetX, p.AssetY
	if params.Direction == YToX {
		assetIn, assetOut = p.AssetY, p.AssetX
	}
	auth, err := e.authority(p)
	if err != nil {
		return SwapResult{}, err
	}
	owner := trader.Address()
	err = e.ledger.NewBatch().
		Move(assetIn, owner, p.Address, res.Deposit, trader).
		Move(assetOut, p.Address, owner, res.Withdraw, auth).
		Commit()
	if err != nil {
		return SwapResult{}, ledgerError(err)
	}

	after := e.reserves(p)
	e.metrics.swap(p.Address.Hex(), assetIn.Hex(), res.Deposit, res.Fee)
	e.logger.Debug("swap",
		zap.String("pool", key.String()),
		zap.String("trader", owner.Hex()),
		zap.Stringer("direction", params.Direction),
		zap.Uint64("amount_in", res.Deposit),
		zap.Uint64("amount_out", res.Withdraw),
		zap.Uint64("fee", res.Fee),
	)
	e.emit(ctx, events.Swap{
		Pool:      p.Address,
		Trader:    owner,
		XToY:      params.Direction == XToY,
		AmountIn:  res.Deposit,
		AmountOut: res.Withdraw,
		Fee:       res.Fee,
		ReserveX:  after.ReserveX,
		ReserveY:  after.ReserveY,
	})
	return SwapResult{AmountIn: res.Deposit, AmountOut: res.Withdraw, Fee: res.Fee, State: after}, nil
}
