package constants

import "time"

// Program and mint addresses
const (
	NativeMint          = "So11111111111111111111111111111111111111112"
	RaydiumAMMProgram   = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	RaydiumAMMAuthority = "5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1"
	PumpSwapProgram     = "pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA"
	PumpSwapFeeAccount  = "FWsW1xNtWscwNmKv6wVsU1iTzRN6wmmk3MjxRP5tT7hz"
	RaceProgram         = "AQepcEVNGFvjbfMfJVJe5h6RcnSUCudishPYVJWqJWvf"
)

// Tip recipients, one per delivery provider
const (
	JitoTipAccount      = "96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5"
	NextBlockTipAccount = "NextbLoCkVtMGcV47JzewQdvBpLqT9TxQFozQkN98pE"
	NozomiTipAccount    = "TEMPaMeCRFAS9EKF53Jd6KpHxgL47uWLcpFArU1Fanq"
	BloXRouteTipAccount = "HWEoBxYs7ssKuudEjzjmpfJVX7Dvi7wescFsVx2L5yoY"
	ZeroSlotTipAccount  = "Eb2KpSC8uMt9GmzyAEm5Eb1AAAgTjRaXWFjKyFXHZxF3"
)

// Minimum tips in SOL
const (
	JitoMinTip      = 0.0001
	NextBlockMinTip = 0.001
	NozomiMinTip    = 0.001
	BloXRouteMinTip = 0.001
	ZeroSlotMinTip  = 0.001
)

// Transaction shaping
const (
	ComputeUnitPrice  uint64 = 30000
	LamportsPerSOL           = 1_000_000_000
	ExecutionHaircut         = 1.0025
	PumpSwapBuySlack         = 1.01
	PumpSwapBaseScale        = 1_000_000.0
	RaydiumSellTipSOL        = 0.0005
	PumpSwapSellTipSOL       = 0.0025
)

// Feed lifecycle
const (
	ConnectTimeout       = 10 * time.Second
	PingInterval         = 30 * time.Second
	PriceRefreshInterval = 60 * time.Second
	ReconnectInterval    = 5 * time.Second
	MaxReconnectStep     = 5
	MaxReconnectAttempts = 10
)

// Confirmation polling
const (
	ConfirmPollInterval = 2 * time.Second
	ConfirmTimeout      = 30 * time.Second
)

// Redis keys
const (
	RedisKeyRecentReactions = "trader:reactions"
	RedisKeyLedgerPrefix    = "ledger:pool:"
	RedisKeyTokenPrefix     = "ledger:token:"
	MaxRecentReactions      = 200
)

// Redis Pub/Sub channels
const (
	PubSubChannelLive        = "trader:live"
	PubSubChannelSettlements = "trader:settlements"
)

// Pyth SOL/USD feed
const (
	PythHermesURL      = "https://hermes.pyth.network"
	PythSOLUSDPriceID  = "0xef0d8b6fda2ceba41da15d4095d1da392a0d2f8ed0c6c7bc0f4cfac8c280b56d"
	DefaultRPCEndpoint = "https://api.mainnet-beta.solana.com"
)
