package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Signer
	PrivateKey string

	// RPC settings
	RPCUrl       string
	HTTPTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	// Feed settings
	StreamProvider string // "websocket" | "rpc"
	FeedEndpoint   string
	FeedToken      string
	PollInterval   time.Duration
	PingInterval   time.Duration
	PriceRefresh   time.Duration
	MaxInflight    int

	// Address lists
	PoolListPath    string
	WatchedListPath string
	BlackListPath   string

	// Runtime switches (Redis flags may override)
	Debug       bool
	ShowBuy     bool
	ShowSell    bool
	Racing      bool
	SubmitTx    bool
	MinOutGuard bool

	// Provider credentials
	NextBlockKey    string
	NozomiKey       string
	BloXRouteHeader string
	ZeroSlotKey     string

	Sizing Sizing

	// Ledger
	LedgerBackend string // "file" | "redis"
	LedgerDir     string
	TokenInfoDir  string

	// Redis settings
	RedisAddr string

	// ClickHouse settings
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// API settings
	APIAddr string
	APIKey  string
	DevMode bool
}

// Sizing carries the numeric knobs of the reaction policy.
type Sizing struct {
	MaxAmount           float64
	AmountFactorLow     float64
	AmountFactorMedian  float64
	AmountFactorHigh    float64
	TipMin              float64
	TipFactorLow        float64
	TipFactorMedian     float64
	TipFactorHigh       float64
	TipFactorUltra      float64
	AcceptableLiquidity float64
	TakeProfit          float64
}

func Load() *Config {
	return &Config{
		PrivateKey: getEnv("PRIVATE_KEY", ""),

		// RPC
		RPCUrl:       getEnv("RPC_ENDPOINT", "https://api.mainnet-beta.solana.com"),
		HTTPTimeout:  getDurationEnv("HTTP_TIMEOUT", 10*time.Second),
		MaxRetries:   getIntEnv("MAX_RETRIES", 2),
		RetryBackoff: getDurationEnv("RETRY_BACKOFF", 250*time.Millisecond),

		// Feed
		StreamProvider: getEnv("STREAM_PROVIDER", "websocket"),
		FeedEndpoint:   getEnv("FEED_ENDPOINT", ""),
		FeedToken:      getEnv("FEED_TOKEN", ""),
		PollInterval:   getDurationEnv("POLL_INTERVAL", 2*time.Second),
		PingInterval:   getDurationEnv("PING_INTERVAL", 30*time.Second),
		PriceRefresh:   getDurationEnv("PRICE_REFRESH", 60*time.Second),
		MaxInflight:    getIntEnv("MAX_INFLIGHT", 256),

		// Lists
		PoolListPath:    getEnv("POOL_ADDR_DIR", "assets/pools.json"),
		WatchedListPath: getEnv("ENERMY_LIST_DIR", ""),
		BlackListPath:   getEnv("BLACK_LIST_DIR", ""),

		// Switches
		Debug:    getBoolEnv("ON_DEBUG", false),
		ShowBuy:  getBoolEnv("SHOW_BUY", true),
		ShowSell: getBoolEnv("SHOW_SELL", true),
		Racing:   getBoolEnv("IS_RACING", false),
		SubmitTx: getBoolEnv("SUBMIT_TX", false),

		MinOutGuard: getBoolEnv("MIN_OUT_GUARD", false),

		// Providers
		NextBlockKey:    getEnv("NEXT_BLOCK_KEY", ""),
		NozomiKey:       getEnv("NOZOMI_API_KEY", ""),
		BloXRouteHeader: getEnv("BLOX_AUTH_HEADER", ""),
		ZeroSlotKey:     getEnv("ZSLOT_API_KEY", ""),

		Sizing: Sizing{
			MaxAmount:           getFloatEnv("MAX_AMOUNT", 1),
			AmountFactorLow:     getFloatEnv("AMOUNT_IN_FACTOR_LOW", 0),
			AmountFactorMedian:  getFloatEnv("AMOUNT_IN_FACTOR_MEDIAN", 0),
			AmountFactorHigh:    getFloatEnv("AMOUNT_IN_FACTOR_HIGH", 0),
			TipMin:              getFloatEnv("TIP_MIN", 0.001),
			TipFactorLow:        getFloatEnv("TIP_FACTOR_LOW", 0),
			TipFactorMedian:     getFloatEnv("TIP_FACTOR_MEDIAN", 0),
			TipFactorHigh:       getFloatEnv("TIP_FACTOR_HIGH", 0),
			TipFactorUltra:      getFloatEnv("TIP_FACTOR_ULTRA", 0),
			AcceptableLiquidity: getFloatEnv("ACCEPTABLE_LIQUIDITY", 0),
			TakeProfit:          getFloatEnv("TAKE_PROFIT", 10),
		},

		// Ledger
		LedgerBackend: getEnv("LEDGER_BACKEND", "file"),
		LedgerDir:     getEnv("LEDGER_DIR", "assets/infos/trade_history"),
		TokenInfoDir:  getEnv("TOKEN_INFO_DIR", "assets/infos/recorded_ids"),

		// Redis
		RedisAddr: getEnv("REDIS_ADDR", ""),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "solana"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// API
		APIAddr: getEnv("API_ADDR", ":8090"),
		APIKey:  getEnv("API_KEY", ""),
		DevMode: getBoolEnv("DEV_MODE", false),
	}
}

// Validate reports the first missing or inconsistent setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.PrivateKey) == "" {
		return fmt.Errorf("PRIVATE_KEY is required")
	}
	if c.RPCUrl == "" {
		return fmt.Errorf("RPC_ENDPOINT is required")
	}
	switch c.StreamProvider {
	case "websocket":
		if c.FeedEndpoint == "" {
			return fmt.Errorf("FEED_ENDPOINT is required for websocket stream provider")
		}
	case "rpc":
	default:
		return fmt.Errorf("unknown STREAM_PROVIDER %q", c.StreamProvider)
	}
	switch c.LedgerBackend {
	case "file":
	case "redis":
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for redis ledger backend")
		}
	default:
		return fmt.Errorf("unknown LEDGER_BACKEND %q", c.LedgerBackend)
	}
	if c.Sizing.MaxAmount <= 0 {
		return fmt.Errorf("MAX_AMOUNT must be > 0")
	}
	if c.MaxInflight <= 0 {
		return fmt.Errorf("MAX_INFLIGHT must be > 0")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
