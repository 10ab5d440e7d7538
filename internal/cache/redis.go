package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/aman-zulfiqar/solana-reactive-trader/internal/constants"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/models"
)

// RedisCache keeps a capped list of recent reactions and fans events out on
// pub/sub channels.
type RedisCache struct {
	client    *redis.Client
	maxRecent int64
}

func NewRedisCache(client *redis.Client) (*RedisCache, error) {
	if client == nil {
		return nil, errors.New("redis client is nil")
	}
	return &RedisCache{client: client, maxRecent: constants.MaxRecentReactions}, nil
}

// PublishReaction pushes r onto the recent list and the live channel in one
// round trip.
func (r *RedisCache) PublishReaction(ctx context.Context, reaction *models.Reaction) error {
	data, err := json.Marshal(reaction)
	if err != nil {
		return fmt.Errorf("marshal reaction: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.LPush(ctx, constants.RedisKeyRecentReactions, data)
	pipe.LTrim(ctx, constants.RedisKeyRecentReactions, 0, r.maxRecent-1)
	pipe.Publish(ctx, constants.PubSubChannelLive, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish reaction: %w", err)
	}
	return nil
}

func (r *RedisCache) PublishSettlement(ctx context.Context, s *models.Settlement) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal settlement: %w", err)
	}
	if err := r.client.Publish(ctx, constants.PubSubChannelSettlements, data).Err(); err != nil {
		return fmt.Errorf("publish settlement: %w", err)
	}
	return nil
}

// RecentReactions returns up to limit reactions, newest first. Entries that
// fail to decode are skipped.
func (r *RedisCache) RecentReactions(ctx context.Context, limit int64) ([]*models.Reaction, error) {
	if limit <= 0 || limit > r.maxRecent {
		limit = r.maxRecent
	}
	raw, err := r.client.LRange(ctx, constants.RedisKeyRecentReactions, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read recent reactions: %w", err)
	}

	out := make([]*models.Reaction, 0, len(raw))
	for _, item := range raw {
		var reaction models.Reaction
		if err := json.Unmarshal([]byte(item), &reaction); err != nil {
			continue
		}
		out = append(out, &reaction)
	}
	return out, nil
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
