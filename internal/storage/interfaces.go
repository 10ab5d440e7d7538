package storage

import (
	"context"
	"io"

	"github.com/aman-zulfiqar/solana-reactive-trader/internal/models"
)

// EventSink receives reaction and settlement events. Implementations are
// best-effort; callers log returned errors and move on.
type EventSink interface {
	// PublishReaction records a reaction decision
	PublishReaction(ctx context.Context, r *models.Reaction) error

	// PublishSettlement records a confirmed ledger update
	PublishSettlement(ctx context.Context, s *models.Settlement) error
}

// ReactionReader serves recent reactions to the API
type ReactionReader interface {
	// RecentReactions returns the newest reactions first
	RecentReactions(ctx context.Context, limit int64) ([]*models.Reaction, error)

	// Ping checks if the backend is reachable
	Ping(ctx context.Context) error

	io.Closer
}
