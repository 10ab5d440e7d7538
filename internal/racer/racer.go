package racer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/aman-zulfiqar/solana-reactive-trader/internal/constants"
)

// Claim is a signature a provider region reported as accepted.
type Claim struct {
	Signature string
	Provider  string
	Region    string
	Pool      string
	IsBuy     bool
}

// Tracker follows an accepted signature to a terminal state.
type Tracker interface {
	Track(ctx context.Context, c Claim)
}

// Landing is the outcome of one regional submission.
type Landing struct {
	Provider  string
	Region    string
	Signature string
	Err       error
}

// Report collects landings from concurrent submissions.
type Report struct {
	mu       sync.Mutex
	landings []Landing
}

func (r *Report) add(l Landing) {
	r.mu.Lock()
	r.landings = append(r.landings, l)
	r.mu.Unlock()
}

// Landings returns a copy of all outcomes in completion order.
func (r *Report) Landings() []Landing {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Landing, len(r.landings))
	copy(out, r.landings)
	return out
}

// Accepted returns the outcomes that produced a signature.
func (r *Report) Accepted() []Landing {
	var out []Landing
	for _, l := range r.Landings() {
		if l.Err == nil {
			out = append(out, l)
		}
	}
	return out
}

type Config struct {
	Signer    Signer
	Providers []Provider

	// Default names the provider used outside racing mode. Empty picks the first.
	Default string

	Tracker          Tracker
	ComputeUnitPrice uint64
	Logger           *logrus.Logger
}

// Racer delivers orders to one provider or races them across all of them.
type Racer struct {
	signer    Signer
	providers []Provider
	def       Provider
	tracker   Tracker
	cuPrice   uint64
	logger    *logrus.Logger

	tracking sync.WaitGroup
}

func New(cfg Config) (*Racer, error) {
	if cfg.Signer == nil {
		return nil, errors.New("racer signer is nil")
	}
	if len(cfg.Providers) == 0 {
		return nil, errors.New("racer needs at least one provider")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.ComputeUnitPrice == 0 {
		cfg.ComputeUnitPrice = constants.ComputeUnitPrice
	}

	def := cfg.Providers[0]
	if cfg.Default != "" {
		def = nil
		for _, p := range cfg.Providers {
			if p.Name() == cfg.Default {
				def = p
				break
			}
		}
		if def == nil {
			return nil, fmt.Errorf("default provider %q not configured", cfg.Default)
		}
	}

	return &Racer{
		signer:    cfg.Signer,
		providers: cfg.Providers,
		def:       def,
		tracker:   cfg.Tracker,
		cuPrice:   cfg.ComputeUnitPrice,
		logger:    cfg.Logger,
	}, nil
}

// Providers returns the configured provider names.
func (r *Racer) Providers() []string {
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return names
}

// Submit sends o once through the default provider's first region.
func (r *Racer) Submit(ctx context.Context, o Order) (*Report, error) {
	report := &Report{}
	regions := r.def.Regions()
	if len(regions) == 0 {
		return report, &ProviderError{Provider: r.def.Name(), Err: errors.New("no regions")}
	}

	encoded, err := buildFor(r.signer, r.def, o, r.cuPrice)
	if err != nil {
		return report, &ProviderError{Provider: r.def.Name(), Err: err}
	}

	if err := r.sendRegion(ctx, r.def, regions[0], encoded, o, report); err != nil {
		return report, err
	}
	return report, nil
}

// Race builds a transaction per provider and submits each to all of that
// provider's regions at once. Provider failures are logged and recorded in
// the report; only a panicking submission fails the race.
func (r *Racer) Race(ctx context.Context, o Order) (*Report, error) {
	report := &Report{}
	start := time.Now()

	var g errgroup.Group
	for _, p := range r.providers {
		p := p
		g.Go(func() (err error) {
			defer recoverInto(&err, p.Name())
			return r.fanOut(ctx, p, o, report)
		})
	}
	err := g.Wait()

	r.logger.WithFields(logrus.Fields{
		"origin":   o.Origin,
		"pool":     o.Pool,
		"buy":      o.IsBuy,
		"accepted": len(report.Accepted()),
		"attempts": len(report.Landings()),
		"elapsed":  time.Since(start).String(),
	}).Info("Race finished")
	return report, err
}

func (r *Racer) fanOut(ctx context.Context, p Provider, o Order, report *Report) error {
	encoded, err := buildFor(r.signer, p, o, r.cuPrice)
	if err != nil {
		report.add(Landing{Provider: p.Name(), Err: err})
		r.logger.WithError(err).WithField("provider", p.Name()).Error("Failed to build transaction")
		return nil
	}

	var g errgroup.Group
	for _, region := range p.Regions() {
		region := region
		g.Go(func() (err error) {
			defer recoverInto(&err, p.Name()+"/"+region.Name)
			// Delivery errors stay inside the report.
			_ = r.sendRegion(ctx, p, region, encoded, o, report)
			return nil
		})
	}
	return g.Wait()
}

func (r *Racer) sendRegion(ctx context.Context, p Provider, region Region, encoded string, o Order, report *Report) error {
	fields := logrus.Fields{
		"provider": p.Name(),
		"region":   region.Name,
		"origin":   o.Origin,
		"buy":      o.IsBuy,
	}

	sig, err := p.Send(ctx, region, encoded)
	if err != nil {
		perr := &ProviderError{Provider: p.Name(), Region: region.Name, Err: err}
		report.add(Landing{Provider: p.Name(), Region: region.Name, Err: perr})
		r.logger.WithFields(fields).WithError(err).Error("Submission failed")
		return perr
	}

	report.add(Landing{Provider: p.Name(), Region: region.Name, Signature: sig})
	r.logger.WithFields(fields).WithField("signature", sig).Info("Submission accepted")

	r.track(ctx, Claim{
		Signature: sig,
		Provider:  p.Name(),
		Region:    region.Name,
		Pool:      o.Pool,
		IsBuy:     o.IsBuy,
	})
	return nil
}

// track hands c to the tracker on its own goroutine. The caller's
// cancellation does not stop confirmation.
func (r *Racer) track(ctx context.Context, c Claim) {
	if r.tracker == nil {
		return
	}
	r.tracking.Add(1)
	go func() {
		defer r.tracking.Done()
		r.tracker.Track(context.WithoutCancel(ctx), c)
	}()
}

// Wait blocks until every started confirmation has finished.
func (r *Racer) Wait() {
	r.tracking.Wait()
}

func recoverInto(err *error, who string) {
	if rec := recover(); rec != nil {
		*err = fmt.Errorf("%w: %s: %v", ErrProviderPanic, who, rec)
	}
}
