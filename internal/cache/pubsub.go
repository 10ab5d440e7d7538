package cache

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-reactive-trader/internal/constants"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/models"
)

// EventHandlers receive decoded events. Nil handlers drop their kind.
type EventHandlers struct {
	OnReaction   func(*models.Reaction)
	OnSettlement func(*models.Settlement)
}

type PubSubManager struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewPubSubManager(client *redis.Client, logger *logrus.Logger) *PubSubManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &PubSubManager{client: client, logger: logger}
}

// Subscribe listens on the live and settlement channels until ctx is done.
func (p *PubSubManager) Subscribe(ctx context.Context, h EventHandlers) error {
	pubsub := p.client.Subscribe(ctx, constants.PubSubChannelLive, constants.PubSubChannelSettlements)
	defer pubsub.Close()

	// Wait for confirmation so no event published after return is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	p.logger.WithField("channels", []string{constants.PubSubChannelLive, constants.PubSubChannelSettlements}).Info("Subscribed")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			p.dispatch(msg, h)
		}
	}
}

func (p *PubSubManager) dispatch(msg *redis.Message, h EventHandlers) {
	switch msg.Channel {
	case constants.PubSubChannelLive:
		if h.OnReaction == nil {
			return
		}
		var r models.Reaction
		if err := json.Unmarshal([]byte(msg.Payload), &r); err != nil {
			p.logger.WithError(err).Warn("Error unmarshaling reaction")
			return
		}
		h.OnReaction(&r)
	case constants.PubSubChannelSettlements:
		if h.OnSettlement == nil {
			return
		}
		var s models.Settlement
		if err := json.Unmarshal([]byte(msg.Payload), &s); err != nil {
			p.logger.WithError(err).Warn("Error unmarshaling settlement")
			return
		}
		h.OnSettlement(&s)
	}
}
