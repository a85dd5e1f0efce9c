// Package marketdata provides feed implementations that are not tied to
// a specific broker: a random-walk simulator and a generic
// JSON-over-WebSocket client.
package marketdata

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"algotrader/internal/interfaces"
	"algotrader/internal/logger"
	"algotrader/internal/types"
)

// SimFeed emits random-walk ticks for subscribed symbols at a fixed
// interval. Used in DRY_RUN mode and tests.
type SimFeed struct {
	exchange string
	interval time.Duration
	base     float64

	mu      sync.Mutex
	onTick  func(types.PriceTick)
	symbols map[string]float64
	stopCh  chan struct{}
	started bool
}

var _ interfaces.Feed = (*SimFeed)(nil)

func NewSimFeed(exchange string, interval time.Duration, basePrice float64) *SimFeed {
	if interval <= 0 {
		interval = time.Second
	}
	if basePrice <= 0 {
		basePrice = 1000
	}
	return &SimFeed{
		exchange: exchange,
		interval: interval,
		base:     basePrice,
		symbols:  make(map[string]float64),
	}
}

func (f *SimFeed) OnTick(fn func(types.PriceTick)) {
	f.mu.Lock()
	f.onTick = fn
	f.mu.Unlock()
}

// OnOrderUpdate is part of the Feed contract; the simulator has no
// order channel (the sim broker emits its own fills).
func (f *SimFeed) OnOrderUpdate(fn func(types.StatusEvent)) {}

func (f *SimFeed) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return nil
	}
	f.started = true
	f.stopCh = make(chan struct{})
	go f.run()
	logger.Info(ctx, "Sim feed started", "interval", f.interval)
	return nil
}

func (f *SimFeed) Stop(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started {
		return
	}
	f.started = false
	close(f.stopCh)
}

func (f *SimFeed) Subscribe(ctx context.Context, symbols []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range symbols {
		if _, ok := f.symbols[s]; !ok {
			f.symbols[s] = f.base + rand.Float64()*100
		}
	}
	return nil
}

func (f *SimFeed) Unsubscribe(ctx context.Context, symbols []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range symbols {
		delete(f.symbols, s)
	}
	return nil
}

func (f *SimFeed) run() {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-f.stopCh:
			return
		case now := <-ticker.C:
			f.emit(now)
		}
	}
}

func (f *SimFeed) emit(now time.Time) {
	f.mu.Lock()
	fn := f.onTick
	ticks := make([]types.PriceTick, 0, len(f.symbols))
	for s, p := range f.symbols {
		p += (rand.Float64() - 0.5) * 2
		f.symbols[s] = p
		ticks = append(ticks, types.PriceTick{
			Symbol:   s,
			Exchange: f.exchange,
			Price:    p,
			Volume:   int64(rand.Intn(10000)),
			Ts:       now,
		})
	}
	f.mu.Unlock()

	if fn == nil {
		return
	}
	for _, t := range ticks {
		fn(t)
	}
}
