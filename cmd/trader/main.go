package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/aman-zulfiqar/solana-reactive-trader/internal/cache"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/config"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/constants"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/flags"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/ledger"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/oracle"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/racer"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/rpc"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/server"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/sizing"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/storage"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/stream"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/swapengine"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/wallet"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	// Get the project root directory (where go.mod is)
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	loadEnv(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if cfg.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	rpcClient := rpc.NewClient(rpc.ClientConfig{
		BaseURL:      cfg.RPCUrl,
		Timeout:      cfg.HTTPTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Logger:       logger,
	})

	w, err := wallet.NewWallet(wallet.WalletConfig{PrivateKey: cfg.PrivateKey, RPC: rpcClient})
	if err != nil {
		logger.WithError(err).Fatal("failed to load wallet")
	}
	if bal, err := w.GetBalanceSOL(ctx); err != nil {
		logger.WithError(err).Warn("failed to read wallet balance")
	} else {
		logger.WithFields(logrus.Fields{"wallet": w.Address(), "sol": bal}).Info("wallet loaded")
	}

	// Redis is optional unless the ledger lives there
	var rclient *redis.Client
	if cfg.RedisAddr != "" {
		rclient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: 0})
		if err := rclient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Fatal("failed to connect to Redis")
		}
		defer rclient.Close()
	}

	book := openLedger(cfg, rclient, logger)

	// Event sinks, best-effort
	var sinks storage.Fanout
	var reactions storage.ReactionReader
	var flagStore *flags.Store
	if rclient != nil {
		rc, err := cache.NewRedisCache(rclient)
		if err != nil {
			logger.WithError(err).Fatal("failed to create redis cache")
		}
		sinks = append(sinks, rc)
		reactions = rc

		if flagStore, err = flags.NewStore(rclient); err != nil {
			logger.WithError(err).Fatal("failed to create flags store")
		}
	}
	if cfg.ClickHouseAddr != "" {
		ch, err := cache.NewClickHouseStore(ctx, cache.ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
			Logger:   logger,
		})
		if err != nil {
			logger.WithError(err).Warn("clickhouse disabled")
		} else {
			sinks = append(sinks, ch)
			defer ch.Close()
		}
	}

	settler, err := racer.NewSettler(racer.SettlerConfig{
		Source: rpcClient,
		Ledger: book,
		Sink:   sinks,
		Logger: logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create settler")
	}

	providers, def := buildProviders(cfg, rpcClient)
	rc, err := racer.New(racer.Config{
		Signer:    w,
		Providers: providers,
		Default:   def,
		Tracker:   settler,
		Logger:    logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create racer")
	}
	logger.WithFields(logrus.Fields{"providers": rc.Providers(), "default": def}).Info("delivery providers ready")

	// Redis flags override the env switches when present
	var flagSource flags.ValueSource
	if flagStore != nil {
		flagSource = flagStore
	}
	snapshot := flags.NewSnapshot(flags.SnapshotConfig{
		Source: flagSource,
		Defaults: flags.Runtime{
			Submit:   cfg.SubmitTx,
			Racing:   cfg.Racing,
			ShowBuy:  cfg.ShowBuy,
			ShowSell: cfg.ShowSell,
			Debug:    cfg.Debug,
		},
		Logger: logger,
	})
	if err := snapshot.Refresh(ctx); err != nil {
		logger.WithError(err).Warn("initial flag refresh failed, using defaults")
	}

	// Reference price; the manager timer refreshes it afterwards
	price := oracle.NewReferencePrice(0)
	refresh := oracle.Refresher(oracle.NewClient("", ""), price, logger)
	refresh(ctx)
	if price.Load() <= 0 {
		logger.Warn("no SOL/USD reference price yet, USD figures read zero until the next refresh")
	}

	pools := mustList(cfg.PoolListPath, "pool", logger)
	watched := mustList(cfg.WatchedListPath, "watched", logger)
	blacklist := mustList(cfg.BlackListPath, "black", logger)

	engine, err := swapengine.NewEngine(swapengine.Config{
		Ledger:    book,
		Deliverer: rc,
		Flags:     snapshot,
		Price:     price,
		Sink:      sinks,
		Payer:     w.PublicKey(),
		Watched:   config.AddressSet(watched),
		Pools:     config.AddressSet(pools),
		Sizing: swapengine.Sizing{
			Factors: sizing.Factors{
				MaxAmount:    cfg.Sizing.MaxAmount,
				AmountLow:    cfg.Sizing.AmountFactorLow,
				AmountMedian: cfg.Sizing.AmountFactorMedian,
				AmountHigh:   cfg.Sizing.AmountFactorHigh,
				TipMin:       cfg.Sizing.TipMin,
				TipLow:       cfg.Sizing.TipFactorLow,
				TipMedian:    cfg.Sizing.TipFactorMedian,
				TipHigh:      cfg.Sizing.TipFactorHigh,
				TipUltra:     cfg.Sizing.TipFactorUltra,
			},
			AcceptableLiquidity: cfg.Sizing.AcceptableLiquidity,
			MinOutGuard:         cfg.MinOutGuard,
		},
		Logger: logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create engine")
	}

	// Subscribe to the pools when listed, otherwise to both pool programs
	include := pools
	if len(include) == 0 {
		include = []string{constants.RaydiumAMMProgram, constants.PumpSwapProgram}
	}

	var sub stream.Subscriber
	switch cfg.StreamProvider {
	case "rpc":
		sub = stream.NewRPCPoller(stream.RPCPollerConfig{
			RPCClient:    rpcClient,
			Endpoint:     cfg.RPCUrl,
			PollInterval: cfg.PollInterval,
			Logger:       logger,
		})
	default:
		sub = stream.NewWebsocketSubscriber(stream.WebsocketConfig{
			Endpoint: cfg.FeedEndpoint,
			Token:    cfg.FeedToken,
		})
	}

	manager, err := stream.NewManager(stream.ManagerConfig{
		Subscriber:    sub,
		Filter:        stream.Filter{Include: include, Exclude: blacklist},
		Handler:       engine.Handle,
		Refresh:       refresh,
		PingInterval:  cfg.PingInterval,
		PriceInterval: cfg.PriceRefresh,
		MaxInflight:   cfg.MaxInflight,
		Logger:        logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create stream manager")
	}

	h := &server.Handlers{
		Reactions: reactions,
		Ledger:    book,
		Feed:      manager.Status,
		Runtime:   snapshot.Current,
		Price:     price.Load,
		Providers: rc.Providers(),
		DevMode:   cfg.DevMode,
		Logger:    logger,
	}
	if flagStore != nil {
		h.Flags = flagStore
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:    cfg.APIAddr,
			DevMode: cfg.DevMode,
			APIKey:  cfg.APIKey,
		},
		Logger: logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", cfg.APIAddr).Info("api server starting")
		return srv.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		return srv.Shutdown(shutdownCtx)
	})
	if flagStore != nil {
		g.Go(func() error {
			snapshot.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		defer cancel()
		logger.WithFields(logrus.Fields{
			"provider": cfg.StreamProvider,
			"endpoint": sub.Endpoint(),
			"include":  len(include),
			"exclude":  len(blacklist),
		}).Info("trader starting")
		if err := manager.Run(gctx); err != nil && gctx.Err() == nil {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("trader stopped with error")
	}

	// Drain handlers, then deliveries, then settlements
	manager.Wait()
	rc.Wait()
	logger.Info("trader stopped")
}

func openLedger(cfg *config.Config, rclient *redis.Client, logger *logrus.Logger) *ledger.Ledger {
	var (
		store  ledger.Store
		tokens ledger.TokenStore
	)
	switch cfg.LedgerBackend {
	case "redis":
		rs, err := ledger.NewRedisStore(rclient)
		if err != nil {
			logger.WithError(err).Fatal("failed to create redis ledger store")
		}
		store, tokens = rs, rs
	default:
		fs, err := ledger.NewFileStore(cfg.LedgerDir, cfg.TokenInfoDir)
		if err != nil {
			logger.WithError(err).Fatal("failed to create file ledger store")
		}
		store, tokens = fs, fs
	}

	book, err := ledger.New(ledger.Config{
		Store:             store,
		Tokens:            tokens,
		DefaultTakeProfit: cfg.Sizing.TakeProfit,
		Logger:            logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create ledger")
	}
	logger.WithField("backend", cfg.LedgerBackend).Info("ledger ready")
	return book
}

// buildProviders enables every relay with credentials plus Jito and the RPC
// node. Nozomi is the single-provider default when configured.
func buildProviders(cfg *config.Config, rpcClient *rpc.Client) ([]racer.Provider, string) {
	opts := racer.ProviderOptions{}
	providers := []racer.Provider{racer.NewJito(opts)}
	def := "rpc"

	if cfg.NozomiKey != "" {
		providers = append(providers, racer.NewNozomi(cfg.NozomiKey, opts))
		def = "nozomi"
	}
	if cfg.NextBlockKey != "" {
		providers = append(providers, racer.NewNextBlock(cfg.NextBlockKey, opts))
	}
	if cfg.BloXRouteHeader != "" {
		providers = append(providers, racer.NewBloXRoute(cfg.BloXRouteHeader, opts))
	}
	if cfg.ZeroSlotKey != "" {
		providers = append(providers, racer.NewZeroSlot(cfg.ZeroSlotKey, opts))
	}
	providers = append(providers, racer.NewRPC(rpcClient, cfg.RPCUrl))
	return providers, def
}

func mustList(path, name string, logger *logrus.Logger) []string {
	list, err := config.LoadAddressList(path)
	if err != nil {
		logger.WithError(err).Fatalf("failed to load %s list", name)
	}
	if len(list) > 0 {
		logger.WithFields(logrus.Fields{"list": name, "count": len(list)}).Info("address list loaded")
	}
	return list
}
