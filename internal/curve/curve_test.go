package curve

import (
	"errors"
	"math"
	"testing"
)

func mustCurve(t *testing.T, x, y, l uint64, fee uint16) *ConstantProduct {
	t.Helper()
	c, err := New(x, y, l, fee)
	if err != nil {
		t.Fatalf("new curve: %v", err)
	}
	return c
}

func TestNewRejectsFee(t *testing.T) {
	if _, err := New(1, 1, 1, BasisPoints); !errors.Is(err, ErrInvalidFee) {
		t.Fatalf("expected ErrInvalidFee, got %v", err)
	}
	if _, err := New(1, 1, 1, BasisPoints-1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSwapWithFee(t *testing.T) {
	c := mustCurve(t, 100_000, 100_000, 100_000, 30)

	res, err := c.Swap(X, 1000, 0)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if res.Deposit != 1000 {
		t.Fatalf("deposit mismatch: %d", res.Deposit)
	}
	if res.Withdraw != 987 {
		t.Fatalf("withdraw mismatch: %d", res.Withdraw)
	}
	if res.Fee != 3 {
		t.Fatalf("fee mismatch: %d", res.Fee)
	}

	after := Product(100_000+res.Deposit, 100_000-res.Withdraw)
	if after.Lt(c.K()) {
		t.Fatalf("product decreased: %s < %s", after, c.K())
	}
}

func TestSwapWithoutFee(t *testing.T) {
	c := mustCurve(t, 100_000, 100_000, 100_000, 0)

	res, err := c.Swap(Y, 1000, 0)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if res.Withdraw != 990 || res.Fee != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestSwapSlippage(t *testing.T) {
	c := mustCurve(t, 100_000, 100_000, 100_000, 30)

	if _, err := c.Swap(X, 1000, 988); !errors.Is(err, ErrSlippageLimitExceeded) {
		t.Fatalf("expected slippage error, got %v", err)
	}
	if _, err := c.Swap(X, 1000, 987); err != nil {
		t.Fatalf("exact minimum should pass: %v", err)
	}
}

func TestSwapErrors(t *testing.T) {
	empty := mustCurve(t, 0, 0, 0, 30)
	if _, err := empty.Swap(X, 10, 0); !errors.Is(err, ErrZeroBalance) {
		t.Fatalf("expected ErrZeroBalance, got %v", err)
	}

	c := mustCurve(t, 100, 100, 100, 30)
	if _, err := c.Swap(X, 0, 0); !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}

	full := mustCurve(t, math.MaxUint64, math.MaxUint64, 1, 30)
	if _, err := full.Swap(X, 1, 0); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestSwapTooSmallYieldsZero(t *testing.T) {
	c := mustCurve(t, 100_000, 100_000, 100_000, 0)

	res, err := c.Swap(X, 1, 0)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if res.Withdraw != 0 {
		t.Fatalf("expected zero output, got %d", res.Withdraw)
	}
}

func TestDepositAmountsRoundUp(t *testing.T) {
	c := mustCurve(t, 1000, 2000, 1000, 30)

	got, err := c.DepositAmounts(500)
	if err != nil {
		t.Fatalf("deposit amounts: %v", err)
	}
	if got != (Amounts{X: 500, Y: 1000}) {
		t.Fatalf("amounts mismatch: %+v", got)
	}

	c = mustCurve(t, 1001, 2000, 1000, 30)
	got, err = c.DepositAmounts(1)
	if err != nil {
		t.Fatalf("deposit amounts: %v", err)
	}
	if got != (Amounts{X: 2, Y: 2}) {
		t.Fatalf("amounts mismatch: %+v", got)
	}
}

func TestDepositAmountsErrors(t *testing.T) {
	if _, err := mustCurve(t, 0, 0, 0, 0).DepositAmounts(10); !errors.Is(err, ErrZeroBalance) {
		t.Fatalf("expected ErrZeroBalance, got %v", err)
	}
	if _, err := mustCurve(t, math.MaxUint64, 1, 1, 0).DepositAmounts(2); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestWithdrawAmountsRoundDown(t *testing.T) {
	c := mustCurve(t, 1001, 2000, 1000, 30)

	got, err := c.WithdrawAmounts(333)
	if err != nil {
		t.Fatalf("withdraw amounts: %v", err)
	}
	if got != (Amounts{X: 333, Y: 666}) {
		t.Fatalf("amounts mismatch: %+v", got)
	}

	if _, err := c.WithdrawAmounts(1001); !errors.Is(err, ErrInvalidShares) {
		t.Fatalf("expected ErrInvalidShares, got %v", err)
	}
}
