// Package engine fans price ticks out to the active strategy set and
// forwards qualifying intents through the risk gate to the order
// coordinator. A single worker drains a bounded tick queue so the feed
// is never blocked past the queue's backpressure policy.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"algotrader/internal/logger"
	"algotrader/internal/metrics"
	"algotrader/internal/orders"
	"algotrader/internal/risk"
	"algotrader/internal/strategy"
	"algotrader/internal/types"
)

type BackpressurePolicy string

const (
	// PolicyDropOldest discards the oldest queued tick to make room.
	PolicyDropOldest BackpressurePolicy = "DROP_OLDEST"
	// PolicyBlock waits up to the block timeout, then drops the new tick.
	PolicyBlock BackpressurePolicy = "BLOCK"
)

type Config struct {
	QueueSize    int
	Policy       BackpressurePolicy
	BlockTimeout time.Duration
	HistorySize  int
}

type TickListener func(types.PriceTick)

type Engine struct {
	cfg   Config
	risk  *risk.Manager
	coord *orders.Coordinator

	mu         sync.RWMutex
	strategies map[string]strategy.Strategy
	listeners  map[string]TickListener

	// history is touched only by the worker goroutine.
	history map[string][]float64

	queue   chan types.PriceTick
	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func New(cfg Config, riskMgr *risk.Manager, coord *orders.Coordinator) *Engine {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 500
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyDropOldest
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = 100 * time.Millisecond
	}
	return &Engine{
		cfg:        cfg,
		risk:       riskMgr,
		coord:      coord,
		strategies: make(map[string]strategy.Strategy),
		listeners:  make(map[string]TickListener),
		history:    make(map[string][]float64),
		queue:      make(chan types.PriceTick, cfg.QueueSize),
	}
}

// AddStrategy registers a strategy under its name. Replacing an
// existing registration is allowed.
func (e *Engine) AddStrategy(s strategy.Strategy) {
	e.mu.Lock()
	e.strategies[s.Name()] = s
	e.mu.Unlock()
}

// RemoveStrategy is a no-op for unknown names.
func (e *Engine) RemoveStrategy(name string) {
	e.mu.Lock()
	delete(e.strategies, name)
	e.mu.Unlock()
}

// ActivateStrategy is idempotent; activating an unknown or already
// active strategy is a no-op.
func (e *Engine) ActivateStrategy(ctx context.Context, name string) {
	e.mu.RLock()
	s := e.strategies[name]
	e.mu.RUnlock()
	if s == nil || s.Active() {
		return
	}
	s.Activate()
	logger.Info(ctx, "Strategy activated", "strategy", name)
}

func (e *Engine) DeactivateStrategy(ctx context.Context, name string) {
	e.mu.RLock()
	s := e.strategies[name]
	e.mu.RUnlock()
	if s == nil || !s.Active() {
		return
	}
	s.Deactivate()
	logger.Info(ctx, "Strategy deactivated", "strategy", name)
}

// Symbols returns the distinct symbols the registered strategies trade,
// for feed subscription.
func (e *Engine) Symbols() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	seen := make(map[string]bool)
	out := make([]string, 0, len(e.strategies))
	for _, s := range e.strategies {
		if !seen[s.Symbol()] {
			seen[s.Symbol()] = true
			out = append(out, s.Symbol())
		}
	}
	return out
}

// RegisterTickListener forwards every processed tick to a named
// callback, independent of strategy evaluation.
func (e *Engine) RegisterTickListener(name string, fn TickListener) {
	e.mu.Lock()
	e.listeners[name] = fn
	e.mu.Unlock()
}

func (e *Engine) RemoveTickListener(name string) {
	e.mu.Lock()
	delete(e.listeners, name)
	e.mu.Unlock()
}

// Start launches the tick worker. Idempotent.
func (e *Engine) Start(ctx context.Context) {
	if !e.running.CompareAndSwap(false, true) {
		return
	}
	e.stopCh = make(chan struct{})
	e.wg.Add(1)
	go e.run(context.WithoutCancel(ctx))
	logger.Info(ctx, "Strategy engine started",
		"queue_size", e.cfg.QueueSize,
		"policy", string(e.cfg.Policy),
	)
}

// Stop halts tick processing and deactivates every strategy: a stopped
// engine leaves nothing active-but-unread. In-flight broker submissions
// are not cancelled.
func (e *Engine) Stop(ctx context.Context) {
	if !e.running.CompareAndSwap(true, false) {
		return
	}
	close(e.stopCh)
	e.wg.Wait()

	e.mu.RLock()
	for _, s := range e.strategies {
		s.Deactivate()
	}
	e.mu.RUnlock()
	logger.Info(ctx, "Strategy engine stopped")
}

func (e *Engine) Running() bool { return e.running.Load() }

// Push enqueues a tick from the feed delivery thread. It never blocks
// past the configured backpressure policy; dropped ticks are counted,
// never silently lost.
func (e *Engine) Push(tick types.PriceTick) {
	metrics.TicksReceived.Inc()
	if !e.running.Load() {
		return
	}

	select {
	case e.queue <- tick:
		return
	default:
	}

	switch e.cfg.Policy {
	case PolicyBlock:
		select {
		case e.queue <- tick:
		case <-time.After(e.cfg.BlockTimeout):
			metrics.TicksDropped.Inc()
		}
	default: // PolicyDropOldest
		select {
		case <-e.queue:
			metrics.TicksDropped.Inc()
		default:
		}
		select {
		case e.queue <- tick:
		default:
			metrics.TicksDropped.Inc()
		}
	}
}

func (e *Engine) run(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-e.stopCh:
			return
		case tick := <-e.queue:
			e.processTick(ctx, tick)
		}
	}
}

func (e *Engine) processTick(ctx context.Context, tick types.PriceTick) {
	hist := append(e.history[tick.Symbol], tick.Price)
	if len(hist) > e.cfg.HistorySize {
		hist = hist[len(hist)-e.cfg.HistorySize:]
	}
	e.history[tick.Symbol] = hist

	e.mu.RLock()
	listeners := make([]TickListener, 0, len(e.listeners))
	for _, fn := range e.listeners {
		listeners = append(listeners, fn)
	}
	strategies := make([]strategy.Strategy, 0, len(e.strategies))
	for _, s := range e.strategies {
		strategies = append(strategies, s)
	}
	e.mu.RUnlock()

	for _, fn := range listeners {
		fn(tick)
	}

	for _, s := range strategies {
		if !s.Active() {
			continue
		}
		e.evaluateStrategy(ctx, s, tick, hist)
	}
}

// evaluateStrategy contains a single strategy's failure: an indicator
// error or panic is logged and must never abort the remaining
// strategies on the same tick.
func (e *Engine) evaluateStrategy(ctx context.Context, s strategy.Strategy, tick types.PriceTick, hist []float64) {
	defer func() {
		if r := recover(); r != nil {
			metrics.StrategyErrors.WithLabelValues(s.Name()).Inc()
			logger.Error(ctx, "Strategy evaluation panicked",
				"strategy", s.Name(),
				"symbol", tick.Symbol,
				"panic", r,
			)
		}
	}()

	intent, err := s.Evaluate(tick, hist)
	if err != nil {
		metrics.StrategyErrors.WithLabelValues(s.Name()).Inc()
		logger.ErrorWithErr(ctx, "Strategy evaluation failed", err,
			"strategy", s.Name(),
			"symbol", tick.Symbol,
		)
		return
	}
	if intent == nil {
		return
	}

	metrics.IntentsGenerated.WithLabelValues(intent.Strategy, string(intent.Side)).Inc()
	logger.Info(ctx, "Trade intent generated",
		"strategy", intent.Strategy,
		"symbol", intent.Symbol,
		"side", string(intent.Side),
		"qty", intent.Qty,
		"price", intent.RefPrice,
		"reason", intent.Reason,
	)

	decision := e.risk.Validate(ctx, *intent, tick.Price)
	if !decision.Approved || decision.AdjustedQty == 0 {
		return
	}

	req := types.OrderRequest{
		Symbol:       intent.Symbol,
		Exchange:     intent.Exchange,
		Qty:          decision.AdjustedQty,
		Kind:         types.OrderKindMarket,
		Side:         intent.Side,
		Strategy:     intent.Strategy,
		StopLoss:     intent.StopLoss,
		ProfitTarget: intent.ProfitTarget,
	}
	if _, err := e.coord.Submit(ctx, req, decision); err != nil {
		logger.ErrorWithErr(ctx, "Order submission failed", err,
			"strategy", intent.Strategy,
			"symbol", intent.Symbol,
			"side", string(intent.Side),
		)
	}
}
