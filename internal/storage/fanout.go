package storage

import (
	"context"
	"errors"

	"github.com/aman-zulfiqar/solana-reactive-trader/internal/models"
)

// Fanout forwards every event to each sink and joins their errors.
type Fanout []EventSink

func (f Fanout) PublishReaction(ctx context.Context, r *models.Reaction) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.PublishReaction(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) PublishSettlement(ctx context.Context, st *models.Settlement) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.PublishSettlement(ctx, st); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard is a sink that drops everything.
type Discard struct{}

func (Discard) PublishReaction(context.Context, *models.Reaction) error     { return nil }
func (Discard) PublishSettlement(context.Context, *models.Settlement) error { return nil }
