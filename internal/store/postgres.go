package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"algotrader/internal/types"
)

// OrderRepository persists order records in Postgres. It is the
// authoritative store the coordinator rehydrates its pending index from
// after a restart.
type OrderRepository struct {
	conn *sqlx.DB
}

func NewOrderRepository(url string) (*OrderRepository, error) {
	conn, err := sqlx.Connect("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &OrderRepository{conn: conn}, nil
}

func (r *OrderRepository) Close() error {
	return r.conn.Close()
}

func (r *OrderRepository) Save(ctx context.Context, o *types.Order) error {
	_, err := r.conn.NamedExecContext(ctx, `
		INSERT INTO orders (id, broker_order_id, symbol, exchange, quantity, price, side, kind,
			status, strategy, filled_qty, avg_fill_price, message, stop_loss, profit_target,
			created_at, updated_at)
		VALUES (:id, :broker_order_id, :symbol, :exchange, :quantity, :price, :side, :kind,
			:status, :strategy, :filled_qty, :avg_fill_price, :message, :stop_loss, :profit_target,
			:created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			broker_order_id = EXCLUDED.broker_order_id,
			status = EXCLUDED.status,
			filled_qty = EXCLUDED.filled_qty,
			avg_fill_price = EXCLUDED.avg_fill_price,
			message = EXCLUDED.message,
			updated_at = EXCLUDED.updated_at`, o)
	return err
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*types.Order, error) {
	var o types.Order
	if err := r.conn.QueryRowxContext(ctx, "SELECT * FROM orders WHERE id = $1 LIMIT 1", id).StructScan(&o); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) ListPending(ctx context.Context) ([]types.Order, error) {
	var orders []types.Order
	if err := r.conn.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE status IN ('PENDING', 'OPEN') ORDER BY created_at ASC"); err != nil {
		return nil, err
	}
	return orders, nil
}
