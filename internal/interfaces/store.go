package interfaces

import (
	"context"

	"algotrader/internal/types"
)

// OrderStore is the persistent order record store. The coordinator
// treats it as the source of truth for crash recovery: ListPending
// rebuilds the in-memory pending index at startup.
type OrderStore interface {
	Save(ctx context.Context, o *types.Order) error
	Get(ctx context.Context, id string) (*types.Order, error)
	ListPending(ctx context.Context) ([]types.Order, error)
}
