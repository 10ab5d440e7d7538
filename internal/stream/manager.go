package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/aman-zulfiqar/solana-reactive-trader/internal/constants"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/models"
)

type ManagerConfig struct {
	Subscriber Subscriber
	Filter     Filter
	Handler    Handler

	// Refresh updates the reference price; nil disables the price timer.
	Refresh func(ctx context.Context)

	ConnectTimeout    time.Duration
	PingInterval      time.Duration
	PriceInterval     time.Duration
	ReconnectInterval time.Duration
	MaxReconnectStep  int
	MaxAttempts       int

	// MaxInflight caps concurrently running handlers. The read loop blocks
	// while the cap is reached.
	MaxInflight int

	// Sleep waits out a reconnect delay. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error

	Logger *logrus.Logger
}

// Manager keeps one feed subscription alive and dispatches its transactions.
type Manager struct {
	sub     Subscriber
	filter  Filter
	handler Handler
	refresh func(ctx context.Context)

	connectTimeout    time.Duration
	pingInterval      time.Duration
	priceInterval     time.Duration
	reconnectInterval time.Duration
	maxStep           int
	maxAttempts       int
	sleep             func(ctx context.Context, d time.Duration) error

	sem      *semaphore.Weighted
	handlers sync.WaitGroup
	inflight atomic.Int64
	state    atomic.Int32
	attempts atomic.Int32

	logger *logrus.Logger
}

func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Subscriber == nil {
		return nil, errors.New("stream subscriber is nil")
	}
	if cfg.Handler == nil {
		return nil, errors.New("stream handler is nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = constants.ConnectTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = constants.PingInterval
	}
	if cfg.PriceInterval <= 0 {
		cfg.PriceInterval = constants.PriceRefreshInterval
	}
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = constants.ReconnectInterval
	}
	if cfg.MaxReconnectStep <= 0 {
		cfg.MaxReconnectStep = constants.MaxReconnectStep
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = constants.MaxReconnectAttempts
	}
	if cfg.MaxInflight <= 0 {
		cfg.MaxInflight = 256
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepCtx
	}
	return &Manager{
		sub:               cfg.Subscriber,
		filter:            cfg.Filter,
		handler:           cfg.Handler,
		refresh:           cfg.Refresh,
		connectTimeout:    cfg.ConnectTimeout,
		pingInterval:      cfg.PingInterval,
		priceInterval:     cfg.PriceInterval,
		reconnectInterval: cfg.ReconnectInterval,
		maxStep:           cfg.MaxReconnectStep,
		maxAttempts:       cfg.MaxAttempts,
		sleep:             cfg.Sleep,
		sem:               semaphore.NewWeighted(int64(cfg.MaxInflight)),
		logger:            cfg.Logger,
	}, nil
}

func (m *Manager) State() ConnectionState { return ConnectionState(m.state.Load()) }

func (m *Manager) Status() Status {
	return Status{
		State:    m.State().String(),
		Attempts: int(m.attempts.Load()),
		Inflight: m.inflight.Load(),
		Endpoint: m.sub.Endpoint(),
	}
}

// Run subscribes and streams until ctx is done or the reconnect budget is
// spent. A failed first subscription returns a *ConnectionError; exhausting
// reconnects returns nil.
func (m *Manager) Run(ctx context.Context) error {
	sess, err := m.connect(ctx)
	if err != nil {
		m.setState(StateDisconnected)
		return &ConnectionError{Endpoint: m.sub.Endpoint(), Err: err}
	}

	for {
		err := m.stream(ctx, sess)
		if ctx.Err() != nil {
			m.setState(StateDisconnected)
			return ctx.Err()
		}
		m.logger.WithError(err).Error("Feed stream interrupted")

		sess, err = m.reconnect(ctx)
		if errors.Is(err, ErrMaxReconnects) {
			m.setState(StateDisconnected)
			m.logger.WithError(err).WithField("attempts", m.maxAttempts).Error("Giving up on feed")
			return nil
		}
		if err != nil {
			m.setState(StateDisconnected)
			return err
		}
	}
}

// Wait blocks until every dispatched handler has returned.
func (m *Manager) Wait() { m.handlers.Wait() }

func (m *Manager) connect(ctx context.Context) (Session, error) {
	m.setState(StateConnecting)
	cctx, cancel := context.WithTimeout(ctx, m.connectTimeout)
	defer cancel()

	sess, err := m.sub.Subscribe(cctx, m.filter)
	if err != nil {
		return nil, err
	}
	m.logger.WithFields(logrus.Fields{
		"endpoint": m.sub.Endpoint(),
		"include":  len(m.filter.Include),
		"exclude":  len(m.filter.Exclude),
	}).Info("Feed subscribed")
	return sess, nil
}

func (m *Manager) reconnect(ctx context.Context) (Session, error) {
	for {
		attempt := int(m.attempts.Add(1))
		if attempt > m.maxAttempts {
			return nil, ErrMaxReconnects
		}
		m.setState(StateReconnecting)

		delay := m.reconnectInterval * time.Duration(min(attempt, m.maxStep))
		m.logger.WithFields(logrus.Fields{"attempt": attempt, "delay": delay}).Warn("Reconnecting to feed")
		if err := m.sleep(ctx, delay); err != nil {
			return nil, err
		}

		sess, err := m.connect(ctx)
		if err == nil {
			m.attempts.Store(0)
			return sess, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		m.logger.WithError(err).WithField("attempt", attempt).Error("Reconnect failed")
	}
}

// stream reads sess until it fails. Timers started here stop with it;
// dispatched handlers keep running on ctx.
func (m *Manager) stream(ctx context.Context, sess Session) error {
	connCtx, cancel := context.WithCancel(ctx)
	var timers sync.WaitGroup
	defer func() {
		cancel()
		timers.Wait()
		if err := sess.Close(); err != nil {
			m.logger.WithError(err).Debug("Session close")
		}
	}()

	m.setState(StateStreaming)

	timers.Add(1)
	go func() {
		defer timers.Done()
		m.every(connCtx, m.pingInterval, func(c context.Context) error {
			if err := sess.Ping(c); err != nil {
				m.logger.WithError(err).Error("Ping failed, stopping ping timer")
				return err
			}
			return nil
		})
	}()

	if m.refresh != nil {
		timers.Add(1)
		go func() {
			defer timers.Done()
			m.every(connCtx, m.priceInterval, func(c context.Context) error {
				m.refresh(c)
				return nil
			})
		}()
	}

	for {
		msg, err := sess.Recv(connCtx)
		if err != nil {
			return err
		}
		switch msg.Kind {
		case KindTransaction:
			if err := m.dispatch(ctx, msg.Tx); err != nil {
				return err
			}
		case KindPing:
			if err := sess.Pong(connCtx, msg.Payload); err != nil {
				m.logger.WithError(err).Warn("Pong failed")
			}
		case KindPong:
		default:
			if msg.Err != nil {
				m.logger.WithError(msg.Err).Debug("Unhandled feed message")
			}
		}
	}
}

// every runs fn on each tick until ctx ends or fn fails.
func (m *Manager) every(ctx context.Context, d time.Duration, fn func(context.Context) error) {
	ticker := time.NewTicker(d)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				return
			}
		}
	}
}

func (m *Manager) dispatch(ctx context.Context, tx *models.LiveTransaction) error {
	if tx == nil {
		return nil
	}
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	m.inflight.Add(1)
	m.handlers.Add(1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				m.logger.WithFields(logrus.Fields{
					"signature": tx.Signature.String(),
					"panic":     fmt.Sprint(r),
				}).Error("Handler panicked")
			}
			m.inflight.Add(-1)
			m.sem.Release(1)
			m.handlers.Done()
		}()
		m.handler(ctx, tx)
	}()
	return nil
}

func (m *Manager) setState(s ConnectionState) { m.state.Store(int32(s)) }

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
