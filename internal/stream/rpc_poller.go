package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-reactive-trader/internal/models"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/rpc"
)

// PollClient is the RPC surface the poller needs.
type PollClient interface {
	GetSignaturesForAddress(ctx context.Context, address string, opts map[string]interface{}) (*rpc.SignaturesResponse, error)
	GetTransaction(ctx context.Context, signature string) (*rpc.TransactionResult, error)
}

// RPCPoller is a Subscriber that polls getSignaturesForAddress for each
// included address. It has no keepalive.
type RPCPoller struct {
	client       PollClient
	endpoint     string
	pollInterval time.Duration
	batchSize    int
	fetchDelay   time.Duration
	logger       *logrus.Logger
}

// RPCPollerConfig holds configuration for the RPC poller
type RPCPollerConfig struct {
	RPCClient    PollClient
	Endpoint     string
	PollInterval time.Duration

	// BatchSize caps signatures fetched per address per poll.
	BatchSize int

	// FetchDelay spaces getTransaction calls to stay under rate limits.
	FetchDelay time.Duration

	Logger *logrus.Logger
}

// NewRPCPoller creates a new RPC poller
func NewRPCPoller(cfg RPCPollerConfig) *RPCPoller {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 25
	}
	return &RPCPoller{
		client:       cfg.RPCClient,
		endpoint:     cfg.Endpoint,
		pollInterval: cfg.PollInterval,
		batchSize:    cfg.BatchSize,
		fetchDelay:   cfg.FetchDelay,
		logger:       cfg.Logger,
	}
}

func (r *RPCPoller) Endpoint() string { return r.endpoint }

// Subscribe starts a polling session. The first poll of each address only
// records its newest signature so history is never replayed.
func (r *RPCPoller) Subscribe(ctx context.Context, f Filter) (Session, error) {
	if r.client == nil {
		return nil, errors.New("rpc poller client is nil")
	}
	if len(f.Include) == 0 {
		return nil, errors.New("rpc poller needs at least one included address")
	}
	exclude := make(map[string]struct{}, len(f.Exclude))
	for _, a := range f.Exclude {
		exclude[a] = struct{}{}
	}
	return &pollSession{
		poller:  r,
		include: f.Include,
		exclude: exclude,
		cursor:  make(map[string]string, len(f.Include)),
		seen:    make(map[string]struct{}),
	}, nil
}

// maxPollPages bounds one catch-up walk per address.
const maxPollPages = 8

type pollSession struct {
	poller  *RPCPoller
	include []string
	exclude map[string]struct{}
	cursor  map[string]string

	// seen drops a transaction touching several included addresses after
	// its first delivery.
	seen    map[string]struct{}
	queue   []*models.LiveTransaction
	started bool
}

func (s *pollSession) Recv(ctx context.Context) (Message, error) {
	for len(s.queue) == 0 {
		if s.started {
			if err := sleepCtx(ctx, s.poller.pollInterval); err != nil {
				return Message{}, err
			}
		}
		s.started = true
		if err := s.poll(ctx); err != nil {
			return Message{}, err
		}
	}
	tx := s.queue[0]
	s.queue = s.queue[1:]
	return Message{Kind: KindTransaction, Tx: tx}, nil
}

func (s *pollSession) Ping(context.Context) error         { return nil }
func (s *pollSession) Pong(context.Context, []byte) error { return nil }
func (s *pollSession) Close() error                       { return nil }

// poll fetches new signatures of every address, oldest first. RPC failures
// are logged and retried on the next tick.
func (s *pollSession) poll(ctx context.Context) error {
	log := s.poller.logger
	for _, addr := range s.include {
		last, primed := s.cursor[addr]
		if !primed {
			if err := s.prime(ctx, addr); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.WithError(err).WithField("address", addr).Warn("failed to get signatures")
			}
			continue
		}

		sigs, err := s.since(ctx, addr, last)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.WithError(err).WithField("address", addr).Warn("failed to get signatures")
			continue
		}
		if len(sigs) == 0 {
			continue
		}
		s.cursor[addr] = sigs[0].Signature

		log.WithFields(logrus.Fields{"address": addr, "count": len(sigs)}).Debug("found new signatures")
		for i := len(sigs) - 1; i >= 0; i-- {
			sig := sigs[i]
			if sig.Err != nil {
				continue
			}
			if _, dup := s.seen[sig.Signature]; dup {
				continue
			}
			if s.poller.fetchDelay > 0 {
				if err := sleepCtx(ctx, s.poller.fetchDelay); err != nil {
					return err
				}
			}
			tx, err := s.fetch(ctx, sig.Signature)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.WithError(err).WithField("signature", sig.Signature).Warn("failed to fetch transaction")
				continue
			}
			s.seen[sig.Signature] = struct{}{}
			if tx != nil && !s.excluded(tx) {
				s.queue = append(s.queue, tx)
			}
		}
	}
	if len(s.seen) > 4096 {
		s.seen = make(map[string]struct{})
	}
	return nil
}

// prime records the newest signature of addr without emitting anything.
func (s *pollSession) prime(ctx context.Context, addr string) error {
	resp, err := s.poller.client.GetSignaturesForAddress(ctx, addr, map[string]interface{}{"limit": 1})
	if err != nil {
		return err
	}
	s.cursor[addr] = ""
	if len(resp.Result) > 0 {
		s.cursor[addr] = resp.Result[0].Signature
	}
	return nil
}

// since returns every signature of addr newer than until, newest first. Full
// pages are followed with before until a short page arrives. A failed page
// fails the whole walk so the cursor never jumps over a gap.
func (s *pollSession) since(ctx context.Context, addr, until string) ([]rpc.SignatureInfo, error) {
	var out []rpc.SignatureInfo
	before := ""
	for page := 0; page < maxPollPages; page++ {
		opts := map[string]interface{}{"limit": s.poller.batchSize}
		if until != "" {
			opts["until"] = until
		}
		if before != "" {
			opts["before"] = before
		}
		resp, err := s.poller.client.GetSignaturesForAddress(ctx, addr, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, resp.Result...)
		if len(resp.Result) < s.poller.batchSize {
			return out, nil
		}
		before = resp.Result[len(resp.Result)-1].Signature
	}
	s.poller.logger.WithFields(logrus.Fields{
		"address": addr,
		"kept":    len(out),
	}).Warn("signature backlog exceeds page cap, older signatures skipped")
	return out, nil
}

func (s *pollSession) fetch(ctx context.Context, signature string) (*models.LiveTransaction, error) {
	res, err := s.poller.client.GetTransaction(ctx, signature)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("transaction %s not found", signature)
	}
	if res.Meta != nil && res.Meta.Err != nil {
		return nil, nil
	}
	return rpc.DecodeLive(res)
}

func (s *pollSession) excluded(tx *models.LiveTransaction) bool {
	if len(s.exclude) == 0 {
		return false
	}
	for _, k := range tx.AccountKeys {
		if _, hit := s.exclude[k.String()]; hit {
			return true
		}
	}
	return false
}
