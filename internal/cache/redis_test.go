package cache

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/solana-reactive-trader/internal/models"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1, // Use different DB for tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	require.NoError(t, client.FlushDB(ctx).Err())

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.FlushDB(ctx).Err()
		_ = client.Close()
	})
	return client
}

func TestRedisCache_RecentReactionsNewestFirst(t *testing.T) {
	c, err := NewRedisCache(setupTestRedis(t))
	require.NoError(t, err)
	c.maxRecent = 3
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, c.PublishReaction(ctx, &models.Reaction{OriginSignature: fmt.Sprintf("sig-%d", i), Side: "buy"}))
	}

	got, err := c.RecentReactions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 3, "list is trimmed")
	assert.Equal(t, "sig-4", got[0].OriginSignature)
	assert.Equal(t, "sig-2", got[2].OriginSignature)

	got, err = c.RecentReactions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NoError(t, c.Ping(ctx))
}

func TestPubSub_DeliversBothKinds(t *testing.T) {
	client := setupTestRedis(t)
	c, err := NewRedisCache(client)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	ps := NewPubSubManager(client, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reactions := make(chan *models.Reaction, 1)
	settlements := make(chan *models.Settlement, 1)
	done := make(chan error, 1)
	go func() {
		done <- ps.Subscribe(ctx, EventHandlers{
			OnReaction: func(r *models.Reaction) {
				select {
				case reactions <- r:
				default:
				}
			},
			OnSettlement: func(s *models.Settlement) { settlements <- s },
		})
	}()

	// Publish until the subscription is live.
	require.Eventually(t, func() bool {
		_ = c.PublishReaction(ctx, &models.Reaction{OriginSignature: "live"})
		select {
		case r := <-reactions:
			return r.OriginSignature == "live"
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, c.PublishSettlement(ctx, &models.Settlement{Signature: "landed", Duplicate: true}))
	select {
	case s := <-settlements:
		assert.Equal(t, "landed", s.Signature)
		assert.True(t, s.Duplicate)
	case <-ctx.Done():
		t.Fatal("settlement not delivered")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestNewRedisCache_NilClient(t *testing.T) {
	_, err := NewRedisCache(nil)
	assert.Error(t, err)
}
