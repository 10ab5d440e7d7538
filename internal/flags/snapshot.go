package flags

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ValueSource yields the current stored overrides.
type ValueSource interface {
	Values(ctx context.Context) (map[string]bool, error)
}

type SnapshotConfig struct {
	// Source may be nil, in which case Defaults never change.
	Source   ValueSource
	Defaults Runtime
	Interval time.Duration
	Logger   *logrus.Logger
}

// Snapshot caches Runtime so readers never block on Redis.
type Snapshot struct {
	source   ValueSource
	defaults Runtime
	interval time.Duration
	logger   *logrus.Logger

	mu  sync.RWMutex
	cur Runtime
}

func NewSnapshot(cfg SnapshotConfig) *Snapshot {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Snapshot{
		source:   cfg.Source,
		defaults: cfg.Defaults,
		interval: cfg.Interval,
		logger:   cfg.Logger,
		cur:      cfg.Defaults,
	}
}

func (s *Snapshot) Current() Runtime {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Refresh rebuilds the snapshot from defaults plus stored overrides. On error
// the previous snapshot stays.
func (s *Snapshot) Refresh(ctx context.Context) error {
	if s.source == nil {
		return nil
	}
	values, err := s.source.Values(ctx)
	if err != nil {
		return err
	}

	next := s.defaults.apply(values)

	s.mu.Lock()
	changed := next != s.cur
	s.cur = next
	s.mu.Unlock()

	if changed {
		s.logger.WithFields(logrus.Fields{
			"submit":    next.Submit,
			"racing":    next.Racing,
			"show_buy":  next.ShowBuy,
			"show_sell": next.ShowSell,
			"debug":     next.Debug,
		}).Info("Runtime flags changed")
	}
	return nil
}

// Run refreshes on every interval until ctx is done.
func (s *Snapshot) Run(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to load runtime flags")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.logger.WithError(err).Warn("Failed to refresh runtime flags")
			}
		}
	}
}
