package swapengine

import (
	"context"
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-reactive-trader/internal/constants"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/dex"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/flags"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/sizing"
)

// reactSell disposes of the whole held inventory once PnL reaches take-profit.
// It answers an observed buy, so ShowBuy gates it.
func (e *Engine) reactSell(ctx context.Context, swap poolSwap, imp Impact, fl flags.Runtime, log *logrus.Entry) (*Intent, error) {
	if !fl.ShowBuy {
		return nil, nil
	}

	pool := swap.pool.String()
	pnl, err := e.ledger.ComputePnl(ctx, pool, imp.PostPrice)
	if err != nil {
		return nil, fmt.Errorf("compute pnl: %w", err)
	}

	log = log.WithFields(logrus.Fields{"pnl_pct": pnl.Percent, "take_profit": pnl.TakeProfit, "held": pnl.Held})
	if pnl.Held == 0 {
		log.Info("No inventory to sell")
		return nil, nil
	}
	if pnl.Percent < pnl.TakeProfit {
		log.Info("Below take profit")
		return nil, nil
	}

	mint, err := solana.PublicKeyFromBase58(imp.TokenMint)
	if err != nil {
		return nil, fmt.Errorf("token mint: %w", err)
	}

	var (
		ix  solana.Instruction
		tip float64
	)
	switch swap.protocol {
	case dex.ProtocolRaydiumAMM:
		coin, pc, err := e.vaults(ctx, pool)
		if err != nil {
			return nil, err
		}
		ix, err = dex.BuildSwapBaseIn(dex.SwapBaseInParams{
			AmountIn:     pnl.Held,
			MinAmountOut: 1,
			Pool:         swap.pool,
			CoinVault:    coin,
			PcVault:      pc,
			InputMint:    mint,
			OutputMint:   dex.NativeMint,
			Payer:        e.payer,
		})
		if err != nil {
			return nil, err
		}
		tip = constants.RaydiumSellTipSOL
	case dex.ProtocolPumpSwap:
		ix, err = dex.BuildPumpSwapSell(dex.PumpSwapParams{
			Amount:   pnl.Held,
			Limit:    1,
			Pool:     swap.pool,
			BaseMint: mint,
			Payer:    e.payer,
		})
		if err != nil {
			return nil, err
		}
		tip = constants.PumpSwapSellTipSOL
	default:
		return nil, fmt.Errorf("unsupported protocol %s", swap.protocol)
	}

	log.WithField("tip", tip).Info("Reactive sell")
	return &Intent{
		Protocol: swap.protocol,
		Side:     SideSell,
		Pool:     pool,
		Mint:     imp.TokenMint,
		AmountIn: pnl.Held,
		MinOut:   1,
		TipSOL:   tip,
		PnLPct:   pnl.Percent,
		Order:    newOrder(ix, tip, SideSell, pool),
	}, nil
}

// reactBuy averages into a dump, sized by the reactive ladder against the
// SOL that left the pool. It answers an observed sell, so ShowSell gates it.
func (e *Engine) reactBuy(ctx context.Context, swap poolSwap, imp Impact, solPrice float64, fl flags.Runtime, log *logrus.Entry) (*Intent, error) {
	if !fl.ShowSell {
		return nil, nil
	}
	if imp.LiquidityUSD < e.sizing.AcceptableLiquidity {
		log.WithField("acceptable", e.sizing.AcceptableLiquidity).Info("Liquidity below threshold")
		return nil, nil
	}

	res := sizing.ReactiveSellSizing(imp.PriceChangePct, imp.LiquidityUSD, solPrice, e.sizing.Factors)
	if res.Amount <= 0 {
		log.Info("No sizing band for move")
		return nil, nil
	}

	buy := math.Min(e.sizing.Factors.MaxAmount, res.Amount*imp.SolDelta/100)
	if !(buy > 0) {
		return nil, nil
	}
	tip := buy * res.Tip / 100

	pool := swap.pool.String()
	mint, err := solana.PublicKeyFromBase58(imp.TokenMint)
	if err != nil {
		return nil, fmt.Errorf("token mint: %w", err)
	}

	var (
		ix       solana.Instruction
		amountIn uint64
		minOut   uint64
	)
	switch swap.protocol {
	case dex.ProtocolRaydiumAMM:
		coin, pc, err := e.vaults(ctx, pool)
		if err != nil {
			return nil, err
		}
		amountIn = dex.Lamports(buy)
		minOut = e.minOut(buy, imp)
		ix, err = dex.BuildSwapBaseIn(dex.SwapBaseInParams{
			AmountIn:     amountIn,
			MinAmountOut: minOut,
			Pool:         swap.pool,
			CoinVault:    coin,
			PcVault:      pc,
			InputMint:    dex.NativeMint,
			OutputMint:   mint,
			Payer:        e.payer,
		})
		if err != nil {
			return nil, err
		}
	case dex.ProtocolPumpSwap:
		amountIn = dex.Lamports(buy * constants.PumpSwapBuySlack)
		minOut = uint64(buy / imp.PostPrice * constants.PumpSwapBaseScale / constants.PumpSwapBuySlack)
		ix, err = dex.BuildPumpSwapBuy(dex.PumpSwapParams{
			Amount:   minOut,
			Limit:    amountIn,
			Pool:     swap.pool,
			BaseMint: mint,
			Payer:    e.payer,
		})
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported protocol %s", swap.protocol)
	}

	log.WithFields(logrus.Fields{
		"amount_sol": buy,
		"tip":        tip,
		"slippage":   res.Slippage,
	}).Info("Reactive buy")
	return &Intent{
		Protocol: swap.protocol,
		Side:     SideBuy,
		Pool:     pool,
		Mint:     imp.TokenMint,
		AmountIn: amountIn,
		MinOut:   minOut,
		TipSOL:   tip,
		Order:    newOrder(ix, tip, SideBuy, pool),
	}, nil
}

// minOut is 1 unless the guard is on, in which case the ladder floor applies.
func (e *Engine) minOut(buy float64, imp Impact) uint64 {
	if !e.sizing.MinOutGuard {
		return 1
	}
	out, _ := sizing.MinimumOutputSizing(
		uint64(imp.LiquidityUSD),
		imp.PriceChangePct,
		decimal.NewFromFloat(buy),
		decimal.NewFromFloat(imp.PostPrice),
		int32(imp.TokenDecimals),
	)
	if v := out.IntPart(); v > 1 {
		return uint64(v)
	}
	return 1
}

func (e *Engine) vaults(ctx context.Context, pool string) (coin, pc solana.PublicKey, err error) {
	info, err := e.ledger.Token(ctx, pool)
	if err != nil {
		return coin, pc, fmt.Errorf("token info: %w", err)
	}
	if coin, err = solana.PublicKeyFromBase58(info.BaseVault); err != nil {
		return coin, pc, fmt.Errorf("base vault: %w", err)
	}
	if pc, err = solana.PublicKeyFromBase58(info.QuoteVault); err != nil {
		return coin, pc, fmt.Errorf("quote vault: %w", err)
	}
	return coin, pc, nil
}
