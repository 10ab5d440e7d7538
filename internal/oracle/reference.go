package oracle

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// ReferencePrice is the shared SOL/USD cell. One writer refreshes it while
// every in-flight handler reads it.
type ReferencePrice struct {
	mu    sync.RWMutex
	value float64
}

func NewReferencePrice(initial float64) *ReferencePrice {
	return &ReferencePrice{value: initial}
}

func (r *ReferencePrice) Load() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.value
}

func (r *ReferencePrice) Store(v float64) {
	r.mu.Lock()
	r.value = v
	r.mu.Unlock()
}

// PriceSource fetches a fresh price.
type PriceSource interface {
	Latest(ctx context.Context) (float64, error)
}

// Refresher returns a refresh func that stores src's price into cell. A
// failed fetch keeps the previous value.
func Refresher(src PriceSource, cell *ReferencePrice, logger *logrus.Logger) func(ctx context.Context) {
	if logger == nil {
		logger = logrus.New()
	}
	return func(ctx context.Context) {
		price, err := src.Latest(ctx)
		if err != nil {
			logger.WithError(err).WithField("kept", cell.Load()).Warn("Reference price refresh failed")
			return
		}
		cell.Store(price)
		logger.WithField("sol_usd", price).Debug("Reference price refreshed")
	}
}
