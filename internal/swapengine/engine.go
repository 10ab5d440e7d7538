package swapengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-reactive-trader/internal/dex"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/flags"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/models"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/racer"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/storage"
)

type Config struct {
	Ledger    Ledger
	Deliverer Deliverer
	Flags     FlagSource
	Price     PriceReader
	Sink      storage.EventSink

	// Payer is the trading identity's public key.
	Payer solana.PublicKey

	// Watched first signers only change log annotation.
	Watched map[string]struct{}

	// Pools restricts reactions to these pool ids when non-empty.
	Pools map[string]struct{}

	Sizing Sizing
	Logger *logrus.Logger
}

// Engine turns observed pool swaps into counter-trades.
type Engine struct {
	ledger    Ledger
	deliverer Deliverer
	flags     FlagSource
	price     PriceReader
	sink      storage.EventSink
	payer     solana.PublicKey
	watched   map[string]struct{}
	pools     map[string]struct{}
	sizing    Sizing
	logger    *logrus.Logger
}

type staticFlags flags.Runtime

func (s staticFlags) Current() flags.Runtime { return flags.Runtime(s) }

func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Ledger == nil {
		return nil, errors.New("engine ledger is nil")
	}
	if cfg.Deliverer == nil {
		return nil, errors.New("engine deliverer is nil")
	}
	if cfg.Price == nil {
		return nil, errors.New("engine price reader is nil")
	}
	if cfg.Payer.IsZero() {
		return nil, errors.New("engine payer is required")
	}
	if cfg.Flags == nil {
		cfg.Flags = staticFlags{ShowBuy: true, ShowSell: true}
	}
	if cfg.Sink == nil {
		cfg.Sink = storage.Discard{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Engine{
		ledger:    cfg.Ledger,
		deliverer: cfg.Deliverer,
		flags:     cfg.Flags,
		price:     cfg.Price,
		sink:      cfg.Sink,
		payer:     cfg.Payer,
		watched:   cfg.Watched,
		pools:     cfg.Pools,
		sizing:    cfg.Sizing,
		logger:    cfg.Logger,
	}, nil
}

// Handle processes one live transaction end to end. Errors end in a log line;
// the next transaction is independent.
func (e *Engine) Handle(ctx context.Context, tx *models.LiveTransaction) {
	fl := e.flags.Current()
	log := e.logger.WithField("origin", tx.Signature.String())

	if signer, ok := tx.Signer(); ok {
		if _, hit := e.watched[signer.String()]; hit {
			log = log.WithField("watched", true)
			log.WithField("signer", signer.String()).Warn("Watched signer active")
		}
	}

	intent, imp, err := e.decide(ctx, tx, fl, log)
	if err != nil {
		log.WithError(err).Debug("Transaction dropped")
		return
	}
	if intent == nil {
		return
	}

	reaction := e.reaction(tx, intent, imp, fl)
	if fl.Submit {
		e.deliver(ctx, intent, fl.Racing, log)
	} else {
		log.WithFields(logrus.Fields{"side": intent.Side, "pool": intent.Pool}).Info("Dry run, not submitting")
	}

	if err := e.sink.PublishReaction(ctx, reaction); err != nil {
		log.WithError(err).Warn("Failed to publish reaction")
	}
}

// Decide runs classification, price impact and the reaction policy without
// delivering. A nil intent with a nil error means the policy declined.
func (e *Engine) Decide(ctx context.Context, tx *models.LiveTransaction) (*Intent, error) {
	intent, _, err := e.decide(ctx, tx, e.flags.Current(), e.logger.WithField("origin", tx.Signature.String()))
	return intent, err
}

func (e *Engine) decide(ctx context.Context, tx *models.LiveTransaction, fl flags.Runtime, log *logrus.Entry) (*Intent, Impact, error) {
	swap, err := classify(tx)
	if err != nil {
		return nil, Impact{}, err
	}
	if len(e.pools) > 0 {
		if _, ok := e.pools[swap.pool.String()]; !ok {
			return nil, Impact{}, fmt.Errorf("untracked pool %s", swap.pool)
		}
	}

	owner := swap.owner.String()
	if fl.Debug {
		log.WithFields(logrus.Fields{
			"pool": swap.pool.String(),
			"pre":  models.OwnedBy(tx.PreTokenBalances, owner),
			"post": models.OwnedBy(tx.PostTokenBalances, owner),
		}).Info("Pool balances")
	}

	bought, err := boughtByOther(tx, owner)
	if err != nil {
		return nil, Impact{}, err
	}

	solPrice := e.price.Load()
	imp, err := PriceImpact(tx.PreTokenBalances, tx.PostTokenBalances, owner, solPrice)
	if err != nil {
		return nil, Impact{}, err
	}

	log = log.WithFields(logrus.Fields{
		"protocol":      swap.protocol.String(),
		"pool":          swap.pool.String(),
		"mint":          imp.TokenMint,
		"price_change":  imp.PriceChangePct,
		"liquidity_usd": imp.LiquidityUSD,
		"pre_usd":       imp.PrePriceUSD,
		"post_usd":      imp.PostPriceUSD,
	})

	var intent *Intent
	if bought {
		log.Info("Buy by other party")
		intent, err = e.reactSell(ctx, swap, imp, fl, log)
	} else {
		log.Info("Sell by other party")
		intent, err = e.reactBuy(ctx, swap, imp, solPrice, fl, log)
	}
	if err != nil || intent == nil {
		return nil, imp, err
	}

	intent.Order.Blockhash = tx.RecentBlockhash
	intent.Order.Nonce = dex.NonceFromSignature(tx.Signature)
	intent.Order.Origin = tx.Signature.String()
	return intent, imp, nil
}

func (e *Engine) deliver(ctx context.Context, intent *Intent, racing bool, log *logrus.Entry) {
	send := e.deliverer.Submit
	if racing {
		send = e.deliverer.Race
	}

	report, err := send(ctx, intent.Order)
	fields := logrus.Fields{"side": intent.Side, "pool": intent.Pool, "racing": racing}
	if report != nil {
		fields["accepted"] = len(report.Accepted())
	}
	if err != nil {
		log.WithFields(fields).WithError(err).Error("Delivery failed")
		return
	}
	log.WithFields(fields).Info("Reaction delivered")
}

func (e *Engine) reaction(tx *models.LiveTransaction, intent *Intent, imp Impact, fl flags.Runtime) *models.Reaction {
	watched := false
	if signer, ok := tx.Signer(); ok {
		_, watched = e.watched[signer.String()]
	}
	return &models.Reaction{
		OriginSignature: tx.Signature.String(),
		Timestamp:       time.Now().UTC(),
		Protocol:        intent.Protocol.String(),
		Pool:            intent.Pool,
		TokenMint:       intent.Mint,
		Side:            string(intent.Side),
		AmountIn:        intent.AmountIn,
		MinAmountOut:    intent.MinOut,
		TipSOL:          intent.TipSOL,
		PriceImpactPct:  imp.PriceChangePct,
		LiquidityUSD:    imp.LiquidityUSD,
		PnLPct:          intent.PnLPct,
		Watched:         watched,
		Submitted:       fl.Submit,
		Racing:          fl.Submit && fl.Racing,
	}
}

func newOrder(ix solana.Instruction, tip float64, side Side, pool string) racer.Order {
	return racer.Order{Instruction: ix, TipSOL: tip, IsBuy: side == SideBuy, Pool: pool}
}
