package curve

import (
	"testing"

	"github.com/holiman/uint256"
	"pgregory.net/rapid"
)

func TestSwapProductNeverDecreases(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rx := rapid.Uint64Range(1, 1<<48).Draw(t, "reserve_x")
		ry := rapid.Uint64Range(1, 1<<48).Draw(t, "reserve_y")
		fee := rapid.Uint16Range(0, BasisPoints-1).Draw(t, "fee")
		amount := rapid.Uint64Range(1, 1<<48).Draw(t, "amount")
		pair := rapid.SampledFrom([]Pair{X, Y}).Draw(t, "pair")

		c, err := New(rx, ry, 1, fee)
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		res, err := c.Swap(pair, amount, 0)
		if err != nil {
			t.Fatalf("swap: %v", err)
		}

		newX, newY := rx+res.Deposit, ry-res.Withdraw
		if pair == Y {
			newX, newY = rx-res.Withdraw, ry+res.Deposit
			if res.Withdraw >= rx {
				t.Fatalf("output drains reserve: %d >= %d", res.Withdraw, rx)
			}
		} else if res.Withdraw >= ry {
			t.Fatalf("output drains reserve: %d >= %d", res.Withdraw, ry)
		}
		if Product(newX, newY).Lt(Product(rx, ry)) {
			t.Fatalf("product decreased")
		}
		if res.Fee > res.Deposit {
			t.Fatalf("fee %d above deposit %d", res.Fee, res.Deposit)
		}
	})
}

func TestLiquidityRoundingFavorsPool(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rx := rapid.Uint64Range(0, 1<<48).Draw(t, "reserve_x")
		ry := rapid.Uint64Range(0, 1<<48).Draw(t, "reserve_y")
		supply := rapid.Uint64Range(1, 1<<48).Draw(t, "supply")
		shares := rapid.Uint64Range(1, supply).Draw(t, "shares")

		c, err := New(rx, ry, supply, 30)
		if err != nil {
			t.Fatalf("new: %v", err)
		}

		out, err := c.WithdrawAmounts(shares)
		if err != nil {
			t.Fatalf("withdraw: %v", err)
		}
		in, err := c.DepositAmounts(shares)
		if err != nil {
			t.Fatalf("deposit: %v", err)
		}

		l := uint256.NewInt(supply)
		for _, side := range []struct {
			reserve, out, in uint64
		}{{rx, out.X, in.X}, {ry, out.Y, in.Y}} {
			exact := Product(side.reserve, shares)
			if new(uint256.Int).Mul(uint256.NewInt(side.out), l).Gt(exact) {
				t.Fatalf("withdraw %d exceeds exact share of %d", side.out, side.reserve)
			}
			if new(uint256.Int).Mul(uint256.NewInt(side.in), l).Lt(exact) {
				t.Fatalf("deposit %d below exact share of %d", side.in, side.reserve)
			}
			if side.in-side.out > 1 {
				t.Fatalf("rounding gap above one unit: in=%d out=%d", side.in, side.out)
			}
		}
	})
}
