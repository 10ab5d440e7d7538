package models

import "time"

// Reaction is one decision taken by the engine in response to an observed swap.
type Reaction struct {
	OriginSignature string    `json:"origin_signature"`
	Timestamp       time.Time `json:"timestamp"`
	Protocol        string    `json:"protocol"` // "raydium_amm" | "pumpswap"
	Pool            string    `json:"pool"`
	TokenMint       string    `json:"token_mint"`
	Side            string    `json:"side"` // "buy" | "sell"
	AmountIn        uint64    `json:"amount_in"`
	MinAmountOut    uint64    `json:"min_amount_out"`
	TipSOL          float64   `json:"tip_sol"`
	PriceImpactPct  float64   `json:"price_impact_pct"`
	LiquidityUSD    float64   `json:"liquidity_usd"`
	PnLPct          float64   `json:"pnl_pct"`
	Watched         bool      `json:"watched"`
	Submitted       bool      `json:"submitted"`
	Racing          bool      `json:"racing"`
}

// Settlement is the ledger feedback produced by a confirmed reaction.
type Settlement struct {
	Signature   string    `json:"signature"`
	Timestamp   time.Time `json:"timestamp"`
	Provider    string    `json:"provider"`
	Region      string    `json:"region"`
	Pool        string    `json:"pool"`
	IsBuy       bool      `json:"is_buy"`
	AmountIn    uint64    `json:"amount_in"`
	UIAmountIn  float64   `json:"ui_amount_in"`
	AmountOut   uint64    `json:"amount_out"`
	UIAmountOut float64   `json:"ui_amount_out"`
	Duplicate   bool      `json:"duplicate"`
}
