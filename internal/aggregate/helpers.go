package aggregate

import (
	"math/big"
	"time"
)

const ratioScale = 18

func formatTokenAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.String()
	}
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Rat).SetFrac(value, denom).FloatString(int(decimals))
}

func formatOptionalAmount(value *big.Int, decimals uint8) *string {
	if value == nil {
		return nil
	}
	text := formatTokenAmount(value, decimals)
	return &text
}

// computeFeeRate returns fee/reserve, or nil when the reserve is unknown or empty.
func computeFeeRate(fee, reserve *big.Int) *big.Rat {
	if fee == nil || reserve == nil || reserve.Sign() == 0 {
		return nil
	}
	return new(big.Rat).SetFrac(fee, reserve)
}

// computeAPR annualizes the mean of both fee rates over the window length.
// Both rates must be known.
func computeAPR(rateX, rateY *big.Rat, windowSeconds uint64) *big.Rat {
	if windowSeconds == 0 || rateX == nil || rateY == nil {
		return nil
	}
	mean := new(big.Rat).Add(rateX, rateY)
	mean.Quo(mean, big.NewRat(2, 1))
	yearSeconds := big.NewRat(int64(365*24*time.Hour/time.Second), 1)
	apr := mean.Mul(mean, yearSeconds)
	return apr.Quo(apr, big.NewRat(int64(windowSeconds), 1))
}

func formatRat(value *big.Rat) *string {
	if value == nil {
		return nil
	}
	text := value.FloatString(ratioScale)
	return &text
}

func windowStart(ts uint64, windowSec uint64) uint64 {
	return ts - (ts % windowSec)
}
