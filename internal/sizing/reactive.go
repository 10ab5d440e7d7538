package sizing

import "math"

// Factors are the operator-tuned multipliers feeding ReactiveSellSizing.
type Factors struct {
	MaxAmount    float64
	AmountLow    float64
	AmountMedian float64
	AmountHigh   float64
	TipMin       float64
	TipLow       float64
	TipMedian    float64
	TipHigh      float64
	TipUltra     float64
}

// Result is the (amount, tip, slippage%) triple chosen by a ladder.
type Result struct {
	Amount   float64
	Tip      float64
	Slippage float64
}

type tipRule func(f Factors, amount float64) float64

func tipTimes(pick func(Factors) float64) tipRule {
	return func(f Factors, amount float64) float64 { return amount * pick(f) }
}

func tipFloor(f Factors, _ float64) float64 { return f.TipMin * 4 }

func amountLow(f Factors) float64    { return f.AmountLow }
func amountMedian(f Factors) float64 { return f.AmountMedian }
func amountHigh(f Factors) float64   { return f.AmountHigh }

func tipLow(f Factors) float64    { return f.TipLow }
func tipMedian(f Factors) float64 { return f.TipMedian }
func tipHigh(f Factors) float64   { return f.TipHigh }
func tipUltra(f Factors) float64  { return f.TipUltra }

// liquidityTier overrides a band's tip and slippage when liquidity is strictly above a threshold.
type liquidityTier struct {
	above    float64
	tip      tipRule
	slippage float64
}

type sellBand struct {
	variation float64 // v <= variation
	liquidity float64 // L >= liquidity
	amount    func(Factors) float64
	tip       tipRule
	slippage  float64
	tiers     []liquidityTier
}

// Evaluated top-down; the first match wins.
var sellLadder = []sellBand{
	{variation: -30, liquidity: 80_000, amount: amountHigh, tip: tipTimes(tipMedian), slippage: 6, tiers: []liquidityTier{
		{above: 5_000_000, tip: tipTimes(tipUltra), slippage: 10},
		{above: 2_000_000, tip: tipTimes(tipHigh), slippage: 6},
	}},
	{variation: -25, liquidity: 80_000, amount: amountMedian, tip: tipTimes(tipMedian), slippage: 3},
	{variation: -20, liquidity: 80_000, amount: amountMedian, tip: tipTimes(tipMedian), slippage: 2},
	{variation: -15, liquidity: 100_000, amount: amountMedian, tip: tipTimes(tipMedian), slippage: 2},
	{variation: -10, liquidity: 500_000, amount: amountMedian, tip: tipTimes(tipLow), slippage: 2},
	{variation: -8, liquidity: 800_000, amount: amountLow, tip: tipTimes(tipLow), slippage: 2},
	{variation: -5, liquidity: 5_000_000, amount: amountLow, tip: tipFloor, slippage: 0.5},
}

var sellDefault = sellBand{amount: amountLow, tip: tipTimes(tipMedian), slippage: 2}

// Amounts above MaxAmount are clamped and get this slippage with the floor tip.
const clampedSlippage = 5.0

// ReactiveSellSizing maps a price impact (percent, negative on a dump) and the
// pool's USD liquidity to an amount factor, tip factor and slippage percent.
// solPrice converts liquidity into SOL terms. The result amount never exceeds
// f.MaxAmount.
func ReactiveSellSizing(variation, liquidity, solPrice float64, f Factors) Result {
	band := sellDefault
	for _, b := range sellLadder {
		if variation <= b.variation && liquidity >= b.liquidity {
			band = b
			break
		}
	}

	amount := 0.0
	if solPrice > 0 {
		amount = liquidity * band.amount(f) / solPrice
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		amount = 0
	}

	tip, slippage := band.tip, band.slippage
	for _, t := range band.tiers {
		if liquidity > t.above {
			tip, slippage = t.tip, t.slippage
			break
		}
	}

	res := Result{Amount: amount, Tip: tip(f, amount), Slippage: slippage}
	if res.Amount > f.MaxAmount {
		res = Result{Amount: f.MaxAmount, Tip: tipFloor(f, 0), Slippage: clampedSlippage}
	}
	return res
}
