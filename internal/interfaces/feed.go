package interfaces

import (
	"context"

	"algotrader/internal/types"
)

// Feed delivers live price ticks and asynchronous order-status events.
// Delivery order per symbol is FIFO; there is no cross-symbol ordering
// guarantee.
type Feed interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context)
	Subscribe(ctx context.Context, symbols []string) error
	Unsubscribe(ctx context.Context, symbols []string) error

	// OnTick registers the tick handler. Must be called before Start.
	OnTick(fn func(types.PriceTick))
	// OnOrderUpdate registers the handler for the broker's own
	// order-status channel. Must be called before Start.
	OnOrderUpdate(fn func(types.StatusEvent))
}
