package ledger

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-reactive-trader/internal/constants"
)

type Config struct {
	Store  Store
	Tokens TokenStore

	// DefaultTakeProfit applies when a record's own take_profit is zero.
	DefaultTakeProfit float64

	Logger *logrus.Logger
}

// Ledger serializes read-modify-write per pool. Different pools never share a lock.
type Ledger struct {
	store             Store
	tokens            TokenStore
	defaultTakeProfit float64
	logger            *logrus.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(cfg Config) (*Ledger, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("ledger store is nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Ledger{
		store:             cfg.Store,
		tokens:            cfg.Tokens,
		defaultTakeProfit: cfg.DefaultTakeProfit,
		logger:            cfg.Logger,
		locks:             make(map[string]*sync.Mutex),
	}, nil
}

// lock returns the unlock func of pool's mutex. Entries are never evicted;
// the map is bounded by the pools the trader reacts to.
func (l *Ledger) lock(pool string) func() {
	l.mu.Lock()
	m, ok := l.locks[pool]
	if !ok {
		m = &sync.Mutex{}
		l.locks[pool] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func (l *Ledger) update(ctx context.Context, pool string, fn func(rec *PoolRecord) bool) error {
	unlock := l.lock(pool)
	defer unlock()

	rec, err := l.store.Load(ctx, pool)
	if err != nil {
		return err
	}
	if !fn(rec) {
		return nil
	}
	return l.store.Save(ctx, rec)
}

// Get returns the current record for pool.
func (l *Ledger) Get(ctx context.Context, pool string) (*PoolRecord, error) {
	unlock := l.lock(pool)
	defer unlock()
	return l.store.Load(ctx, pool)
}

// Token returns the swap addresses recorded for pool.
func (l *Ledger) Token(ctx context.Context, pool string) (*TokenInfo, error) {
	if l.tokens == nil {
		return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, pool)
	}
	return l.tokens.LoadToken(ctx, pool)
}

// RecordFill upserts a fill by signature. Non-zero sides of f overwrite the
// existing entry's sides; totals are untouched.
func (l *Ledger) RecordFill(ctx context.Context, pool string, f Fill) error {
	return l.update(ctx, pool, func(rec *PoolRecord) bool {
		mergeFill(rec, f)
		return true
	})
}

// Accumulate adds t to the record's cumulative totals.
func (l *Ledger) Accumulate(ctx context.Context, pool string, t Totals) error {
	return l.update(ctx, pool, func(rec *PoolRecord) bool {
		addTotals(rec, t)
		return true
	})
}

// Reset zeroes totals and clears the fill list, starting a new inventory cycle.
func (l *Ledger) Reset(ctx context.Context, pool string) error {
	return l.update(ctx, pool, func(rec *PoolRecord) bool {
		clearRecord(rec)
		return true
	})
}

// Settle applies a confirmed transaction exactly once. A buy appends a fill
// equal to t and accumulates it; a sell resets the record. It reports false
// when the signature was already applied.
func (l *Ledger) Settle(ctx context.Context, pool, signature string, isBuy bool, t Totals) (bool, error) {
	applied := false
	err := l.update(ctx, pool, func(rec *PoolRecord) bool {
		if isBuy {
			for _, tx := range rec.Transactions {
				if tx.Signature == signature {
					return false
				}
			}
			mergeFill(rec, Fill{
				Signature:   signature,
				AmountIn:    t.AmountIn,
				UIAmountIn:  t.UIAmountIn,
				AmountOut:   t.TokenAmountOut,
				UIAmountOut: t.UITokenAmountOut,
			})
			addTotals(rec, t)
		} else {
			if rec.LastDisposal == signature {
				return false
			}
			clearRecord(rec)
			rec.LastDisposal = signature
		}
		applied = true
		return true
	})
	if err != nil {
		return false, err
	}

	l.logger.WithFields(logrus.Fields{
		"pool":      pool,
		"signature": signature,
		"buy":       isBuy,
		"applied":   applied,
	}).Info("Ledger settled")
	return applied, nil
}

// ComputePnl marks held inventory at unitPrice (quote per token) less the
// execution haircut, against recorded cost. Zero cost yields zero PnL.
func (l *Ledger) ComputePnl(ctx context.Context, pool string, unitPrice float64) (PnL, error) {
	rec, err := l.Get(ctx, pool)
	if err != nil {
		return PnL{}, err
	}

	out := PnL{Held: rec.TotalTokenAmountOut, TakeProfit: rec.TakeProfit}
	if out.TakeProfit <= 0 {
		out.TakeProfit = l.defaultTakeProfit
	}

	expect := unitPrice * constants.ExecutionHaircut * rec.TotalUITokenAmountOut
	if rec.TotalUIAmountIn > 0 {
		out.Percent = (expect - rec.TotalUIAmountIn) * 100 / rec.TotalUIAmountIn
	}
	if math.IsNaN(out.Percent) || math.IsInf(out.Percent, 0) {
		out.Percent = 0
	}

	l.logger.WithFields(logrus.Fields{
		"pool":            pool,
		"inventory_token": rec.TotalUITokenAmountOut,
		"inventory_cost":  rec.TotalUIAmountIn,
		"expect_out":      expect,
		"pnl_pct":         out.Percent,
	}).Debug("Computed PnL")
	return out, nil
}

func mergeFill(rec *PoolRecord, f Fill) {
	for i := range rec.Transactions {
		tx := &rec.Transactions[i]
		if tx.Signature != f.Signature {
			continue
		}
		if f.AmountIn != 0 || f.UIAmountIn != 0 {
			tx.AmountIn, tx.UIAmountIn = f.AmountIn, f.UIAmountIn
		}
		if f.AmountOut != 0 || f.UIAmountOut != 0 {
			tx.AmountOut, tx.UIAmountOut = f.AmountOut, f.UIAmountOut
		}
		return
	}
	rec.Transactions = append(rec.Transactions, f)
}

func addTotals(rec *PoolRecord, t Totals) {
	rec.TotalAmountIn += t.AmountIn
	rec.TotalUIAmountIn += t.UIAmountIn
	rec.TotalTokenAmountOut += t.TokenAmountOut
	rec.TotalUITokenAmountOut += t.UITokenAmountOut
}

func clearRecord(rec *PoolRecord) {
	rec.TotalAmountIn = 0
	rec.TotalUIAmountIn = 0
	rec.TotalTokenAmountOut = 0
	rec.TotalUITokenAmountOut = 0
	rec.Transactions = []Fill{}
}
