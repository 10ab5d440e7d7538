package swapengine

import (
	"context"
	"errors"

	"github.com/aman-zulfiqar/solana-reactive-trader/internal/dex"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/flags"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/ledger"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/racer"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/sizing"
)

var (
	// ErrOpcodeRejected aborts a whole transaction: a recognized pool program
	// was invoked with a non-swap opcode.
	ErrOpcodeRejected = errors.New("non-swap opcode on pool program")
	ErrNoPoolSwap     = errors.New("no pool swap instruction")
	ErrNoVaultChange  = errors.New("no native vault change for pool owner")
	ErrMissingBalance = errors.New("missing pool balance entries")
)

// Side is the direction of the engine's own reaction.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Ledger is the read side of the trade ledger the engine consults.
type Ledger interface {
	ComputePnl(ctx context.Context, pool string, unitPrice float64) (ledger.PnL, error)
	Token(ctx context.Context, pool string) (*ledger.TokenInfo, error)
}

// Deliverer sends an order through one provider or races it across all.
type Deliverer interface {
	Submit(ctx context.Context, o racer.Order) (*racer.Report, error)
	Race(ctx context.Context, o racer.Order) (*racer.Report, error)
}

// FlagSource yields the current runtime switches without blocking.
type FlagSource interface {
	Current() flags.Runtime
}

// PriceReader yields the current SOL/USD reference price.
type PriceReader interface {
	Load() float64
}

// Sizing carries the numeric reaction knobs.
type Sizing struct {
	Factors             sizing.Factors
	AcceptableLiquidity float64

	// MinOutGuard replaces the min-out of 1 on reactive Raydium buys with
	// the MinimumOutputSizing floor.
	MinOutGuard bool
}

// Impact is the pool state change caused by one observed swap. Prices are in
// SOL per token unless suffixed USD.
type Impact struct {
	TokenMint      string
	TokenDecimals  int
	PrePrice       float64
	PostPrice      float64
	PrePriceUSD    float64
	PostPriceUSD   float64
	PriceChangePct float64
	LiquidityUSD   float64
	SolDelta       float64
	PostNative     float64
	PostToken      float64
}

// Intent is the reaction the engine decided on, before delivery.
type Intent struct {
	Protocol dex.Protocol
	Side     Side
	Pool     string
	Mint     string
	AmountIn uint64
	MinOut   uint64
	TipSOL   float64
	PnLPct   float64
	Order    racer.Order
}
