package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"algotrader/internal/broker/brokerobs"
	"algotrader/internal/broker/sim"
	"algotrader/internal/broker/zerodha"
	"algotrader/internal/engine"
	"algotrader/internal/interfaces"
	"algotrader/internal/logger"
	"algotrader/internal/marketdata"
	"algotrader/internal/metrics"
	"algotrader/internal/notify"
	"algotrader/internal/orders"
	"algotrader/internal/risk"
	"algotrader/internal/store"
	"algotrader/internal/strategy"
	"algotrader/internal/trace"
	"algotrader/internal/tradelog"
	"algotrader/internal/types"
)

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	_ = godotenv.Load()
	must(logger.Init())
	must(trace.Init())

	cfg, err := store.LoadConfig(configPath())
	must(err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if v := os.Getenv("TRADER_LOG_RETENTION_DAYS"); v != "" {
		var n int
		fmt.Sscanf(v, "%d", &n)
		_ = tradelog.CompressOlder(n)
	}

	metrics.Serve(ctx, cfg.Metrics.Addr)

	orderStore, closeStore, err := buildStore(cfg)
	must(err)
	defer closeStore()

	brk, simBrk, err := buildBroker(ctx, cfg)
	must(err)

	notifier := buildNotifier(ctx, cfg)

	riskMgr := risk.NewManager(risk.Limits{
		MaxPositionSize: cfg.Risk.MaxPositionSize,
		MaxDailyLoss:    cfg.Risk.MaxDailyLoss,
		MaxOrdersPerDay: cfg.Risk.MaxOrdersPerDay,
		RiskPercentage:  cfg.Risk.RiskPercentage,
		AccountValue:    cfg.Risk.AccountValue,
		StopFraction:    cfg.Risk.StopFraction,
	})

	coord := orders.NewCoordinator(brk, orderStore, riskMgr, orders.WithNotifier(notifier))
	must(coord.Rehydrate(ctx))

	eng := engine.New(engine.Config{
		QueueSize:    cfg.Feed.QueueSize,
		Policy:       engine.BackpressurePolicy(cfg.Feed.Backpressure),
		BlockTimeout: time.Duration(cfg.Feed.BlockTimeoutMs) * time.Millisecond,
		HistorySize:  cfg.Feed.HistorySize,
	}, riskMgr, coord)
	registerStrategies(ctx, eng, cfg)

	feed := buildFeed(cfg)
	feed.OnTick(eng.Push)
	feed.OnOrderUpdate(func(ev types.StatusEvent) { coord.Reconcile(ctx, ev) })
	if simBrk != nil {
		simBrk.OnOrderUpdate(func(ev types.StatusEvent) { coord.Reconcile(ctx, ev) })
	}

	eng.Start(ctx)
	must(feed.Start(ctx))
	must(feed.Subscribe(ctx, eng.Symbols()))

	logger.Info(ctx, "Trader started",
		"mode", cfg.Mode,
		"data_source", cfg.DataSource,
		"symbols", eng.Symbols(),
	)

	resetTimer := time.NewTimer(time.Until(nextMidnightIST()))
	defer resetTimer.Stop()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-resetTimer.C:
			riskMgr.ResetDaily(ctx)
			resetTimer.Reset(time.Until(nextMidnightIST()))
		case <-sigc:
			logger.Info(ctx, "Shutting down")
			feed.Stop(ctx)
			eng.Stop(ctx)
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			_ = logger.Shutdown(shutdownCtx)
			_ = trace.Shutdown(shutdownCtx)
			done()
			return
		case <-ctx.Done():
			return
		}
	}
}

func configPath() string {
	if p := os.Getenv("TRADER_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}

func buildStore(cfg *store.Config) (interfaces.OrderStore, func(), error) {
	if cfg.Database.URL == "" {
		return store.NewMemoryStore(), func() {}, nil
	}
	repo, err := store.NewOrderRepository(cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect order store: %w", err)
	}
	return repo, func() { _ = repo.Close() }, nil
}

// buildBroker returns the active broker and, in DRY_RUN mode, the sim
// broker so its fill events can be wired into reconciliation.
func buildBroker(ctx context.Context, cfg *store.Config) (interfaces.Broker, *sim.Broker, error) {
	if cfg.Mode == "DRY_RUN" {
		logger.Info(ctx, "DRY_RUN mode, using simulated broker")
		simBrk := sim.NewBroker(0)
		return brokerobs.Wrap(simBrk), simBrk, nil
	}

	z := zerodha.NewZerodha(zerodha.Params{
		APIKey:      os.Getenv("KITE_API_KEY"),
		AccessToken: os.Getenv("KITE_ACCESS_TOKEN"),
	})
	brk := brokerobs.Wrap(z)
	if err := brk.Authenticate(ctx); err != nil {
		return nil, nil, fmt.Errorf("broker authentication: %w", err)
	}
	return brk, nil, nil
}

func buildNotifier(ctx context.Context, cfg *store.Config) notify.Notifier {
	if !cfg.Telegram.Enabled {
		return notify.NewNoop()
	}
	chatID := cfg.Telegram.ChatID
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			chatID = id
		}
	}
	n, err := notify.NewTelegram(os.Getenv("TELEGRAM_BOT_TOKEN"), chatID)
	if err != nil {
		logger.ErrorWithErr(ctx, "Telegram notifier unavailable, continuing without it", err)
		return notify.NewNoop()
	}
	return n
}

func buildFeed(cfg *store.Config) interfaces.Feed {
	switch cfg.DataSource {
	case "KITE":
		return zerodha.NewFeed(os.Getenv("KITE_API_KEY"), os.Getenv("KITE_ACCESS_TOKEN"), cfg.Exchange)
	case "WS":
		return marketdata.NewWSFeed(cfg.Feed.WSURL, cfg.Exchange)
	default:
		interval := time.Duration(cfg.Feed.SimIntervalMs) * time.Millisecond
		return marketdata.NewSimFeed(cfg.Exchange, interval, cfg.Feed.SimBasePrice)
	}
}

func registerStrategies(ctx context.Context, eng *engine.Engine, cfg *store.Config) {
	if c := cfg.Strategies.Crossover; c.Enabled {
		s, err := strategy.NewCrossover("sma_crossover", c.Symbol, c.Qty, c.Fast, c.Slow)
		must(err)
		eng.AddStrategy(s)
		eng.ActivateStrategy(ctx, "sma_crossover")
	}
	if c := cfg.Strategies.MeanReversion; c.Enabled {
		s, err := strategy.NewMeanReversion("rsi_reversion", c.Symbol, c.Qty, c.Period, c.Lower, c.Upper)
		must(err)
		eng.AddStrategy(s)
		eng.ActivateStrategy(ctx, "rsi_reversion")
	}
	if c := cfg.Strategies.Momentum; c.Enabled {
		s, err := strategy.NewMomentum("momentum", c.Symbol, c.Qty, c.Lookback, c.StopLossPct, c.ProfitPct)
		must(err)
		eng.AddStrategy(s)
		eng.ActivateStrategy(ctx, "momentum")
	}
}

// nextMidnightIST returns the next daily reset boundary. NSE sessions
// and daily risk counters roll over on IST calendar days.
func nextMidnightIST() time.Time {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		loc = time.FixedZone("IST", 5*3600+1800)
	}
	now := time.Now().In(loc)
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, loc)
}
