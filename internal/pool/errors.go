package pool

import (
	"errors"
	"fmt"

	"liquidityPool/internal/curve"
	"liquidityPool/internal/ledger"
)

var (
	ErrInvalidFee             = errors.New("invalid fee")
	ErrDuplicatePool          = errors.New("pool already exists")
	ErrPoolLocked             = errors.New("pool is locked")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrSlippageExceeded       = errors.New("slippage exceeded")
	ErrCurveComputationFailed = errors.New("curve computation failed")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrPoolNotFound           = errors.New("pool not found")
	ErrIdenticalAssets        = errors.New("pool assets must differ")
	ErrUnauthorized           = errors.New("unauthorized")
)

// curveError maps a curve failure onto the pool error set.
func curveError(err error) error {
	switch {
	case errors.Is(err, curve.ErrSlippageLimitExceeded):
		return fmt.Errorf("%w: %w", ErrSlippageExceeded, err)
	case errors.Is(err, curve.ErrInvalidFee):
		return fmt.Errorf("%w: %w", ErrInvalidFee, err)
	default:
		return fmt.Errorf("%w: %w", ErrCurveComputationFailed, err)
	}
}

// ledgerError maps a failed ledger batch onto the pool error set.
func ledgerError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrInsufficientBalance), errors.Is(err, ledger.ErrUnknownMint):
		return fmt.Errorf("%w: %w", ErrInsufficientBalance, err)
	case errors.Is(err, ledger.ErrUnauthorized):
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	case errors.Is(err, ledger.ErrOverflow):
		return fmt.Errorf("%w: %w", ErrCurveComputationFailed, err)
	default:
		return err
	}
}
