// Package curve implements constant-product pool math over exact integers.
//
// All quantities are uint64 base units. Intermediate products are computed in
// 256 bits so that no valid input can overflow before the final narrowing.
package curve

import (
	"fmt"

	"github.com/holiman/uint256"
)

// BasisPoints is the fee denominator.
const BasisPoints = 10_000

// Pair selects the asset side of a swap input.
type Pair int

const (
	X Pair = iota
	Y
)

func (p Pair) String() string {
	switch p {
	case X:
		return "x"
	case Y:
		return "y"
	default:
		return fmt.Sprintf("pair(%d)", int(p))
	}
}

// Amounts is a pair of per-asset amounts.
type Amounts struct {
	X uint64
	Y uint64
}

// SwapResult describes the legs of a swap.
// Deposit is credited to the input reserve in full; Fee is the part of
// Deposit that did not contribute to pricing and stays in the reserve.
type SwapResult struct {
	Deposit  uint64
	Withdraw uint64
	Fee      uint64
}

// ConstantProduct is a read-only view of a pool's curve state.
type ConstantProduct struct {
	x   uint64
	y   uint64
	l   uint64
	fee uint16
}

// New builds a curve over reserves x, y, share supply l and fee in basis points.
func New(x, y, l uint64, fee uint16) (*ConstantProduct, error) {
	if fee >= BasisPoints {
		return nil, ErrInvalidFee
	}
	return &ConstantProduct{x: x, y: y, l: l, fee: fee}, nil
}

// K returns reserve_x * reserve_y.
func (c *ConstantProduct) K() *uint256.Int {
	return Product(c.x, c.y)
}

// Product returns a * b without overflow.
func Product(a, b uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
}

// DepositAmounts returns the reserve contributions required to mint shares
// while keeping the reserve ratio. Amounts round up so the pool is never
// short-changed; each side exceeds the exact proportion by less than one unit.
func (c *ConstantProduct) DepositAmounts(shares uint64) (Amounts, error) {
	if shares == 0 {
		return Amounts{}, ErrZeroAmount
	}
	if c.l == 0 {
		return Amounts{}, ErrZeroBalance
	}
	x, err := mulDivUp(c.x, shares, c.l)
	if err != nil {
		return Amounts{}, err
	}
	y, err := mulDivUp(c.y, shares, c.l)
	if err != nil {
		return Amounts{}, err
	}
	return Amounts{X: x, Y: y}, nil
}

// WithdrawAmounts returns the reserves released for redeeming shares,
// rounded down.
func (c *ConstantProduct) WithdrawAmounts(shares uint64) (Amounts, error) {
	if shares == 0 {
		return Amounts{}, ErrZeroAmount
	}
	if c.l == 0 {
		return Amounts{}, ErrZeroBalance
	}
	if shares > c.l {
		return Amounts{}, ErrInvalidShares
	}
	x, err := mulDivDown(c.x, shares, c.l)
	if err != nil {
		return Amounts{}, err
	}
	y, err := mulDivDown(c.y, shares, c.l)
	if err != nil {
		return Amounts{}, err
	}
	return Amounts{X: x, Y: y}, nil
}

// Swap prices selling amount of the p side against the other side.
// The output is floor(a*(B-f)*Rout / (Rin*B + a*(B-f))) with B the basis
// point scale and f the fee. The post-trade product is checked to be at
// least the pre-trade product before the result is returned.
func (c *ConstantProduct) Swap(p Pair, amount, min uint64) (SwapResult, error) {
	if amount == 0 {
		return SwapResult{}, ErrZeroAmount
	}

	var reserveIn, reserveOut uint64
	switch p {
	case X:
		reserveIn, reserveOut = c.x, c.y
	case Y:
		reserveIn, reserveOut = c.y, c.x
	default:
		return SwapResult{}, fmt.Errorf("unknown pair: %s", p)
	}
	if reserveIn == 0 || reserveOut == 0 {
		return SwapResult{}, ErrZeroBalance
	}

	scale := uint256.NewInt(BasisPoints)
	feeScale := uint256.NewInt(uint64(BasisPoints - c.fee))

	inWithFee := new(uint256.Int).Mul(uint256.NewInt(amount), feeScale)
	numerator := new(uint256.Int).Mul(inWithFee, uint256.NewInt(reserveOut))
	denominator := new(uint256.Int).Mul(uint256.NewInt(reserveIn), scale)
	denominator.Add(denominator, inWithFee)
	out := new(uint256.Int).Div(numerator, denominator)
	if !out.IsUint64() {
		return SwapResult{}, ErrOverflow
	}
	withdraw := out.Uint64()

	net := new(uint256.Int).Div(inWithFee, scale).Uint64()
	result := SwapResult{Deposit: amount, Withdraw: withdraw, Fee: amount - net}

	newIn := reserveIn + amount
	if newIn < reserveIn {
		return SwapResult{}, ErrOverflow
	}
	if withdraw >= reserveOut {
		return SwapResult{}, ErrInvariantViolated
	}
	if Product(newIn, reserveOut-withdraw).Lt(Product(reserveIn, reserveOut)) {
		return SwapResult{}, ErrInvariantViolated
	}

	if withdraw < min {
		return SwapResult{}, fmt.Errorf("%w: got %d, want at least %d", ErrSlippageLimitExceeded, withdraw, min)
	}
	return result, nil
}

func mulDivDown(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrZeroBalance
	}
	q := new(uint256.Int).Div(Product(a, b), uint256.NewInt(d))
	if !q.IsUint64() {
		return 0, ErrOverflow
	}
	return q.Uint64(), nil
}

func mulDivUp(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrZeroBalance
	}
	product := Product(a, b)
	divisor := uint256.NewInt(d)
	q := new(uint256.Int).Div(product, divisor)
	if !new(uint256.Int).Mod(product, divisor).IsZero() {
		q.AddUint64(q, 1)
	}
	if !q.IsUint64() {
		return 0, ErrOverflow
	}
	return q.Uint64(), nil
}
