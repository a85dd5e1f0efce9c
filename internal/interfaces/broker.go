package interfaces

import (
	"context"

	"algotrader/internal/types"
)

// Broker is the narrow contract the core uses to reach the broker
// transport. Implementations must not be called while core locks are
// held; all broker I/O happens outside critical sections.
type Broker interface {
	Authenticate(ctx context.Context) error
	PlaceOrder(ctx context.Context, req types.OrderRequest) (brokerOrderID string, err error)
	CancelOrder(ctx context.Context, brokerOrderID string) error
	LTP(ctx context.Context, symbol, exchange string) (float64, error)
}
