package racer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-reactive-trader/internal/constants"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/dex"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/ledger"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/models"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/rpc"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/storage"
)

// ErrNoPoolInstruction means a confirmed transaction touched no recognized pool.
var ErrNoPoolInstruction = errors.New("no pool instruction in transaction")

// TxSource answers confirmation polls and fetches confirmed transactions.
type TxSource interface {
	GetSignatureState(ctx context.Context, signature string) (rpc.SignatureState, error)
	GetTransaction(ctx context.Context, signature string) (*rpc.TransactionResult, error)
}

// SettlementLedger applies a confirmed fill or disposal.
type SettlementLedger interface {
	Settle(ctx context.Context, pool, signature string, isBuy bool, t ledger.Totals) (bool, error)
}

type SettlerConfig struct {
	Source TxSource
	Ledger SettlementLedger
	Sink   storage.EventSink

	PollInterval time.Duration
	Timeout      time.Duration

	Logger *logrus.Logger
}

// Settler polls accepted signatures and feeds confirmed pool deltas back into
// the ledger. It implements Tracker.
type Settler struct {
	source   TxSource
	ledger   SettlementLedger
	sink     storage.EventSink
	interval time.Duration
	timeout  time.Duration
	logger   *logrus.Logger
}

func NewSettler(cfg SettlerConfig) (*Settler, error) {
	if cfg.Source == nil || cfg.Ledger == nil {
		return nil, errors.New("settler needs a source and a ledger")
	}
	if cfg.Sink == nil {
		cfg.Sink = storage.Discard{}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = constants.ConfirmPollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = constants.ConfirmTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Settler{
		source:   cfg.Source,
		ledger:   cfg.Ledger,
		sink:     cfg.Sink,
		interval: cfg.PollInterval,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
	}, nil
}

// Track waits for c to reach a terminal state and settles it when confirmed.
func (s *Settler) Track(ctx context.Context, c Claim) {
	log := s.logger.WithFields(logrus.Fields{
		"signature": c.Signature,
		"provider":  c.Provider,
		"region":    c.Region,
		"buy":       c.IsBuy,
	})

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	state, err := s.await(ctx, c.Signature)
	if err != nil {
		log.WithError(err).Warn("Confirmation not reached")
		return
	}
	if state != rpc.SignatureConfirmed {
		log.WithField("result", state.String()).Info("Transaction did not land")
		return
	}

	st, err := s.settle(ctx, c)
	if err != nil {
		log.WithError(err).Error("Failed to settle transaction")
		return
	}

	log.WithFields(logrus.Fields{
		"result":     "confirmed",
		"pool":       st.Pool,
		"amount_in":  st.UIAmountIn,
		"amount_out": st.UIAmountOut,
		"duplicate":  st.Duplicate,
	}).Info("Transaction settled")

	if err := s.sink.PublishSettlement(ctx, st); err != nil {
		log.WithError(err).Warn("Failed to publish settlement")
	}
}

// await polls until confirmed or failed. Not-found and pending keep polling.
func (s *Settler) await(ctx context.Context, sig string) (rpc.SignatureState, error) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		state, err := s.source.GetSignatureState(ctx, sig)
		switch {
		case err != nil:
			s.logger.WithError(err).WithField("signature", sig).Debug("Status poll failed")
		case state == rpc.SignatureConfirmed || state == rpc.SignatureFailed:
			return state, nil
		}

		select {
		case <-ctx.Done():
			return rpc.SignatureNotFound, fmt.Errorf("await %s: %w", sig, ctx.Err())
		case <-ticker.C:
		}
	}
}

// fetch polls getTransaction until a decodable result arrives. A confirmed
// signature can precede the node serving its transaction, so a nil result or
// an error keeps polling until ctx is done.
func (s *Settler) fetch(ctx context.Context, sig string) (*models.LiveTransaction, error) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		res, err := s.source.GetTransaction(ctx, sig)
		if err == nil {
			tx, derr := rpc.DecodeLive(res)
			if derr == nil {
				return tx, nil
			}
			err = derr
		}
		s.logger.WithError(err).WithField("signature", sig).Debug("Transaction fetch failed, retrying")

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("get transaction %s: %w (last: %v)", sig, ctx.Err(), err)
		case <-ticker.C:
		}
	}
}

func (s *Settler) settle(ctx context.Context, c Claim) (*models.Settlement, error) {
	tx, err := s.fetch(ctx, c.Signature)
	if err != nil {
		return nil, err
	}

	pool, totals, err := PoolDelta(tx)
	if err != nil {
		return nil, err
	}
	if c.Pool != "" && c.Pool != pool {
		s.logger.WithFields(logrus.Fields{
			"signature": c.Signature,
			"expected":  c.Pool,
			"found":     pool,
		}).Warn("Confirmed transaction touched another pool")
	}

	applied, err := s.ledger.Settle(ctx, pool, c.Signature, c.IsBuy, totals)
	if err != nil {
		return nil, err
	}

	return &models.Settlement{
		Signature:   c.Signature,
		Timestamp:   time.Now(),
		Provider:    c.Provider,
		Region:      c.Region,
		Pool:        pool,
		IsBuy:       c.IsBuy,
		AmountIn:    totals.AmountIn,
		UIAmountIn:  totals.UIAmountIn,
		AmountOut:   totals.TokenAmountOut,
		UIAmountOut: totals.UITokenAmountOut,
		Duplicate:   !applied,
	}, nil
}

// PoolDelta locates the first recognized pool instruction in tx and returns
// the pool with the vault balance changes of its owner. Inflows to the pool
// count as amount in, outflows as token amount out.
func PoolDelta(tx *models.LiveTransaction) (string, ledger.Totals, error) {
	for _, ix := range tx.Instructions {
		proto := dex.ProtocolOf(ix.Program)
		if proto == dex.ProtocolUnknown {
			continue
		}
		pool, owner, ok := proto.PoolOwner(ix.Accounts)
		if !ok {
			continue
		}
		return pool.String(), vaultDelta(tx, owner.String()), nil
	}
	return "", ledger.Totals{}, ErrNoPoolInstruction
}

func vaultDelta(tx *models.LiveTransaction, owner string) ledger.Totals {
	pre := models.OwnedBy(tx.PreTokenBalances, owner)
	post := models.OwnedBy(tx.PostTokenBalances, owner)

	var t ledger.Totals
	for i := 0; i < len(pre) && i < len(post); i++ {
		a, b := pre[i], post[i]
		if a.UIAmount == b.UIAmount {
			continue
		}
		ui := b.UIAmount - a.UIAmount
		if ui < 0 {
			ui = -ui
		}
		if b.Amount > a.Amount {
			t.AmountIn = b.Amount - a.Amount
			t.UIAmountIn = ui
		} else {
			t.TokenAmountOut = a.Amount - b.Amount
			t.UITokenAmountOut = ui
		}
	}
	return t
}
