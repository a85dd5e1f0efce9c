// Package sim provides a simulated broker for DRY_RUN mode. Orders are
// accepted immediately and filled asynchronously, so the full
// submit/reconcile path is exercised without broker credentials.
package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"algotrader/internal/interfaces"
	"algotrader/internal/types"
)

const defaultFillDelay = 50 * time.Millisecond

type Broker struct {
	fillDelay time.Duration
	seq       atomic.Int64

	mu       sync.Mutex
	onUpdate func(types.StatusEvent)
	prices   map[string]float64
}

var _ interfaces.Broker = (*Broker)(nil)

func NewBroker(fillDelay time.Duration) *Broker {
	if fillDelay <= 0 {
		fillDelay = defaultFillDelay
	}
	return &Broker{
		fillDelay: fillDelay,
		prices:    make(map[string]float64),
	}
}

// OnOrderUpdate registers the sink for simulated fill events, mirroring
// the live broker's asynchronous postback channel.
func (b *Broker) OnOrderUpdate(fn func(types.StatusEvent)) {
	b.mu.Lock()
	b.onUpdate = fn
	b.mu.Unlock()
}

func (b *Broker) Authenticate(ctx context.Context) error { return nil }

func (b *Broker) PlaceOrder(ctx context.Context, req types.OrderRequest) (string, error) {
	brokerOrderID := fmt.Sprintf("SIM-%d", b.seq.Add(1))

	price := req.Price
	if price <= 0 {
		price, _ = b.LTP(ctx, req.Symbol, req.Exchange)
	}
	qty := req.Qty

	time.AfterFunc(b.fillDelay, func() {
		b.mu.Lock()
		fn := b.onUpdate
		b.mu.Unlock()
		if fn == nil {
			return
		}
		fn(types.StatusEvent{
			BrokerOrderID: brokerOrderID,
			Status:        types.StatusComplete,
			FilledQty:     qty,
			AvgPrice:      price,
		})
	})
	return brokerOrderID, nil
}

func (b *Broker) CancelOrder(ctx context.Context, brokerOrderID string) error {
	return nil
}

// LTP walks each symbol's price randomly around its last value, seeded
// near 1000 like the exchange sim the strategies are tuned against.
func (b *Broker) LTP(ctx context.Context, symbol, exchange string) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.prices[symbol]
	if !ok {
		p = 1000 + rand.Float64()*100
	}
	p += (rand.Float64() - 0.5) * 2
	b.prices[symbol] = p
	return p, nil
}
