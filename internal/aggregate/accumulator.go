package aggregate

import (
	"encoding/json"
	"fmt"
	"math/big"

	"liquidityPool/internal/model"
)

// Accumulator holds aggregate values for one pool window.
type Accumulator struct {
	PoolAddress   string
	PoolMeta      model.PoolMeta
	WindowStart   uint64
	WindowEnd     uint64
	SwapCount     uint64
	DepositCount  uint64
	WithdrawCount uint64
	VolumeX       *big.Int
	VolumeY       *big.Int
	FeeX          *big.Int
	FeeY          *big.Int
	// ReserveX and ReserveY are the reserves after the last event that
	// reported them; nil until such an event is seen.
	ReserveX      *big.Int
	ReserveY      *big.Int
	FirstSequence uint64
	LastSequence  uint64
}

func NewAccumulator(record model.TypedEventRecord, windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		PoolAddress:   record.Address,
		PoolMeta:      record.PoolMeta,
		WindowStart:   windowStart,
		WindowEnd:     windowEnd,
		VolumeX:       big.NewInt(0),
		VolumeY:       big.NewInt(0),
		FeeX:          big.NewInt(0),
		FeeY:          big.NewInt(0),
		FirstSequence: record.Sequence,
		LastSequence:  record.Sequence,
	}
}

func (a *Accumulator) AddEvent(record model.TypedEventRecord) error {
	if record.Sequence > a.LastSequence {
		a.LastSequence = record.Sequence
	}
	if record.Sequence < a.FirstSequence {
		a.FirstSequence = record.Sequence
	}
	if a.PoolMeta.AssetX == "" && record.PoolMeta.AssetX != "" {
		a.PoolMeta = record.PoolMeta
	}

	switch record.EventName {
	case model.EventSwap:
		var swap model.SwapEventData
		if err := json.Unmarshal(record.Decoded, &swap); err != nil {
			return fmt.Errorf("decode swap: %w", err)
		}
		return a.applySwap(swap)
	case model.EventDeposit, model.EventWithdraw:
		var liq model.LiquidityEventData
		if err := json.Unmarshal(record.Decoded, &liq); err != nil {
			return fmt.Errorf("decode %s: %w", record.EventName, err)
		}
		if err := a.setReserves(liq.ReserveX, liq.ReserveY); err != nil {
			return err
		}
		if record.EventName == model.EventDeposit {
			a.DepositCount++
		} else {
			a.WithdrawCount++
		}
		return nil
	case model.EventPoolInitialized:
		var init model.PoolInitializedEventData
		if err := json.Unmarshal(record.Decoded, &init); err != nil {
			return fmt.Errorf("decode pool initialized: %w", err)
		}
		if a.PoolMeta.AssetX == "" {
			a.PoolMeta = model.PoolMeta{
				PoolID:    init.PoolID,
				AssetX:    init.AssetX,
				AssetY:    init.AssetY,
				ShareMint: init.ShareMint,
				FeeBps:    init.FeeBps,
			}
		}
		return a.setReserves("0", "0")
	default:
		return nil
	}
}

func (a *Accumulator) applySwap(swap model.SwapEventData) error {
	amountIn, err := parseBigInt(swap.AmountIn)
	if err != nil {
		return err
	}
	amountOut, err := parseBigInt(swap.AmountOut)
	if err != nil {
		return err
	}
	fee, err := parseBigInt(swap.Fee)
	if err != nil {
		return err
	}

	if swap.XToY {
		a.VolumeX.Add(a.VolumeX, amountIn)
		a.VolumeY.Add(a.VolumeY, amountOut)
		a.FeeX.Add(a.FeeX, fee)
	} else {
		a.VolumeY.Add(a.VolumeY, amountIn)
		a.VolumeX.Add(a.VolumeX, amountOut)
		a.FeeY.Add(a.FeeY, fee)
	}
	if err := a.setReserves(swap.ReserveX, swap.ReserveY); err != nil {
		return err
	}
	a.SwapCount++
	return nil
}

func (a *Accumulator) setReserves(x, y string) error {
	reserveX, err := parseBigInt(x)
	if err != nil {
		return err
	}
	reserveY, err := parseBigInt(y)
	if err != nil {
		return err
	}
	a.ReserveX, a.ReserveY = reserveX, reserveY
	return nil
}

func parseBigInt(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid int: %s", value)
	}
	if parsed.Sign() < 0 {
		return nil, fmt.Errorf("negative amount: %s", value)
	}
	return parsed, nil
}
