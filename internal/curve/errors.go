package curve

import "errors"

var (
	ErrInvalidFee            = errors.New("fee must be below 10000 basis points")
	ErrZeroAmount            = errors.New("amount must be greater than zero")
	ErrZeroBalance           = errors.New("curve balance is zero")
	ErrInvalidShares         = errors.New("share amount exceeds supply")
	ErrOverflow              = errors.New("arithmetic overflow")
	ErrInvariantViolated     = errors.New("constant product invariant violated")
	ErrSlippageLimitExceeded = errors.New("output below minimum")
)
