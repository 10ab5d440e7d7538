// Command subscriber tails reaction and settlement events from Redis pub/sub.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-reactive-trader/internal/cache"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/models"
)

func loadEnv(logger *logrus.Logger) {
	_, filename, _, _ := runtime.Caller(0)
	envPath := filepath.Join(filepath.Dir(filename), "../..", ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Debugf("no .env file found at %s", envPath)
	}
}

func short(sig string) string {
	if len(sig) > 8 {
		return sig[:8]
	}
	return sig
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	loadEnv(logger)

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}

	pubsub := cache.NewPubSubManager(client, logger)
	logger.WithField("redis", addr).Info("subscriber running, press Ctrl+C to stop")

	err := pubsub.Subscribe(ctx, cache.EventHandlers{
		OnReaction: func(r *models.Reaction) {
			logger.WithFields(logrus.Fields{
				"origin":    short(r.OriginSignature),
				"protocol":  r.Protocol,
				"pool":      r.Pool,
				"side":      r.Side,
				"amount_in": r.AmountIn,
				"tip":       r.TipSOL,
				"impact":    r.PriceImpactPct,
				"submitted": r.Submitted,
			}).Info("reaction")
		},
		OnSettlement: func(s *models.Settlement) {
			logger.WithFields(logrus.Fields{
				"signature": short(s.Signature),
				"provider":  s.Provider + "/" + s.Region,
				"pool":      s.Pool,
				"buy":       s.IsBuy,
				"in":        s.UIAmountIn,
				"out":       s.UIAmountOut,
				"duplicate": s.Duplicate,
			}).Info("settlement")
		},
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Fatal("subscriber failed")
	}
	logger.Info("subscriber stopped")
}
