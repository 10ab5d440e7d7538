package sizing

import (
	"math"

	"github.com/shopspring/decimal"
)

// Slippage rates applied to |variation|.
const (
	slipLow    = 0.01
	slipMedian = 0.05
	slipHigh   = 0.1
)

// Every band below also requires the pool price integer to be at least this.
const minPoolPriceInt uint64 = 200_000

type poolTier struct {
	atLeast uint64
	rate    float64
}

type slipBand struct {
	variation float64
	rate      float64
	tier      poolTier
}

// Evaluated top-down; the first match wins.
var slipLadder = []slipBand{
	{variation: -40, rate: slipHigh, tier: poolTier{atLeast: 500_000, rate: slipHigh}},
	{variation: -30, rate: slipHigh, tier: poolTier{atLeast: 500_000, rate: slipHigh}},
	{variation: -25, rate: slipMedian, tier: poolTier{atLeast: 500_000, rate: slipHigh}},
	{variation: -18, rate: slipMedian, tier: poolTier{atLeast: 800_000, rate: slipHigh}},
	{variation: -15, rate: slipLow, tier: poolTier{atLeast: 800_000, rate: slipHigh}},
	{variation: -12, rate: slipLow, tier: poolTier{atLeast: 2_000_000, rate: slipMedian}},
	{variation: -10, rate: slipLow, tier: poolTier{atLeast: 5_000_000, rate: slipMedian}},
	{variation: -8, rate: slipLow, tier: poolTier{atLeast: 5_000_000, rate: slipMedian}},
}

// SlippageFor returns the slippage percent chosen by the minimum-output ladder.
func SlippageFor(poolPriceInt uint64, variation float64) float64 {
	rate := slipLow
	if poolPriceInt >= minPoolPriceInt {
		for _, b := range slipLadder {
			if variation <= b.variation {
				rate = b.rate
				if poolPriceInt >= b.tier.atLeast {
					rate = b.tier.rate
				}
				break
			}
		}
	}
	return math.Round(math.Abs(variation) * rate)
}

// MinimumOutputSizing returns the minimum acceptable output in raw token units
// and the slippage percent used: (amount / price) * (1 - slippage/100) * 10^decimals,
// truncated toward zero. A non-positive price yields zero.
func MinimumOutputSizing(poolPriceInt uint64, variation float64, amount, price decimal.Decimal, decimals int32) (decimal.Decimal, float64) {
	slippage := SlippageFor(poolPriceInt, variation)
	return MinAmountOut(amount, price, decimal.NewFromFloat(slippage), decimals), slippage
}

// MinAmountOut applies a slippage percent to amount/price and scales to raw units.
func MinAmountOut(amount, price, slippagePct decimal.Decimal, decimals int32) decimal.Decimal {
	if !price.IsPositive() {
		return decimal.Zero
	}
	hundred := decimal.NewFromInt(100)
	factor := decimal.NewFromInt(1).Sub(slippagePct.Div(hundred))
	out := amount.Div(price).Mul(factor).Shift(decimals)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out.Truncate(0)
}
