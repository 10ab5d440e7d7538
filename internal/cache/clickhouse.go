package cache

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-reactive-trader/internal/models"
)

type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Logger   *logrus.Logger
}

// ClickHouseStore appends reactions and settlements to analytics tables.
type ClickHouseStore struct {
	conn   driver.Conn
	logger *logrus.Logger
}

func NewClickHouseStore(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseStore, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	s := &ClickHouseStore{conn: conn, logger: cfg.Logger}
	if err := s.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	cfg.Logger.WithField("addr", cfg.Addr).Info("Connected to ClickHouse")
	return s, nil
}

const (
	createReactions = `
		CREATE TABLE IF NOT EXISTS reactions (
			origin_signature String,
			timestamp DateTime64(3),
			protocol LowCardinality(String),
			pool String,
			token_mint String,
			side LowCardinality(String),
			amount_in UInt64,
			min_amount_out UInt64,
			tip_sol Float64,
			price_impact_pct Float64,
			liquidity_usd Float64,
			pnl_pct Float64,
			watched Bool,
			submitted Bool,
			racing Bool
		) ENGINE = MergeTree ORDER BY (pool, timestamp)`

	createSettlements = `
		CREATE TABLE IF NOT EXISTS settlements (
			signature String,
			timestamp DateTime64(3),
			provider LowCardinality(String),
			region LowCardinality(String),
			pool String,
			is_buy Bool,
			amount_in UInt64,
			ui_amount_in Float64,
			amount_out UInt64,
			ui_amount_out Float64,
			duplicate Bool
		) ENGINE = MergeTree ORDER BY (pool, timestamp)`
)

func (c *ClickHouseStore) EnsureSchema(ctx context.Context) error {
	for _, ddl := range []string{createReactions, createSettlements} {
		if err := c.conn.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

func (c *ClickHouseStore) PublishReaction(ctx context.Context, r *models.Reaction) error {
	query := `
		INSERT INTO reactions (
			origin_signature, timestamp, protocol, pool, token_mint, side,
			amount_in, min_amount_out, tip_sol, price_impact_pct, liquidity_usd,
			pnl_pct, watched, submitted, racing
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := c.conn.Exec(ctx, query,
		r.OriginSignature,
		r.Timestamp,
		r.Protocol,
		r.Pool,
		r.TokenMint,
		r.Side,
		r.AmountIn,
		r.MinAmountOut,
		r.TipSOL,
		r.PriceImpactPct,
		r.LiquidityUSD,
		r.PnLPct,
		r.Watched,
		r.Submitted,
		r.Racing,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reaction: %w", err)
	}
	return nil
}

func (c *ClickHouseStore) PublishSettlement(ctx context.Context, s *models.Settlement) error {
	query := `
		INSERT INTO settlements (
			signature, timestamp, provider, region, pool, is_buy,
			amount_in, ui_amount_in, amount_out, ui_amount_out, duplicate
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := c.conn.Exec(ctx, query,
		s.Signature,
		s.Timestamp,
		s.Provider,
		s.Region,
		s.Pool,
		s.IsBuy,
		s.AmountIn,
		s.UIAmountIn,
		s.AmountOut,
		s.UIAmountOut,
		s.Duplicate,
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement: %w", err)
	}
	return nil
}

func (c *ClickHouseStore) Close() error {
	return c.conn.Close()
}
