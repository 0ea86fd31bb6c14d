// Package events encodes committed pool operations as ABI logs and decodes
// them back into typed records.
package events

import (
	"github.com/ethereum/go-ethereum/common"

	"liquidityPool/internal/model"
)

// Event is a committed pool operation.
type Event interface {
	Name() string
	PoolAddress() common.Address
}

type PoolInitialized struct {
	Pool        common.Address
	Initializer common.Address
	PoolID      uint64
	AssetX      common.Address
	AssetY      common.Address
	ShareMint   common.Address
	FeeBps      uint16
	Authority   *common.Address
}

func (e PoolInitialized) Name() string                { return model.EventPoolInitialized }
func (e PoolInitialized) PoolAddress() common.Address { return e.Pool }

// Liquidity carries the amounts of a deposit or withdrawal. Reserves and
// supply are the values after the operation.
type Liquidity struct {
	Pool        common.Address
	Owner       common.Address
	Shares      uint64
	AmountX     uint64
	AmountY     uint64
	ReserveX    uint64
	ReserveY    uint64
	ShareSupply uint64
}

type Deposit struct{ Liquidity }

func (e Deposit) Name() string                { return model.EventDeposit }
func (e Deposit) PoolAddress() common.Address { return e.Pool }

type Withdraw struct{ Liquidity }

func (e Withdraw) Name() string                { return model.EventWithdraw }
func (e Withdraw) PoolAddress() common.Address { return e.Pool }

type Swap struct {
	Pool      common.Address
	Trader    common.Address
	XToY      bool
	AmountIn  uint64
	AmountOut uint64
	Fee       uint64
	ReserveX  uint64
	ReserveY  uint64
}

func (e Swap) Name() string                { return model.EventSwap }
func (e Swap) PoolAddress() common.Address { return e.Pool }

type LockChanged struct {
	Pool      common.Address
	Authority common.Address
	Locked    bool
}

func (e LockChanged) Name() string                { return model.EventLockChanged }
func (e LockChanged) PoolAddress() common.Address { return e.Pool }
