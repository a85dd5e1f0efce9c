package types

import "time"

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

type OrderKind string

const (
	OrderKindMarket OrderKind = "MARKET"
	OrderKindLimit  OrderKind = "LIMIT"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusOpen      OrderStatus = "OPEN"
	StatusComplete  OrderStatus = "COMPLETE"
	StatusCancelled OrderStatus = "CANCELLED"
	StatusRejected  OrderStatus = "REJECTED"
)

// Terminal reports whether the status is final. Terminal orders never
// appear in the coordinator's pending index.
func (s OrderStatus) Terminal() bool {
	return s == StatusComplete || s == StatusCancelled || s == StatusRejected
}

// PriceTick is one market-data update for a symbol. Immutable once
// produced by the feed.
type PriceTick struct {
	Symbol   string    `json:"symbol"`
	Exchange string    `json:"exchange"`
	Price    float64   `json:"price"`
	Volume   int64     `json:"volume"`
	Ts       time.Time `json:"ts"`
}

// TradeIntent is a strategy's proposed trade, pre-risk-adjustment.
// Created by a strategy, consumed once by the risk gate, then discarded.
type TradeIntent struct {
	Strategy string
	Symbol   string
	Exchange string
	Side     Side
	Qty      int
	RefPrice float64
	Reason   string

	// Optional hints from momentum-style strategies. Recorded on the
	// order but not enforced.
	StopLoss     float64
	ProfitTarget float64
}

// OrderRequest is the broker-facing order description, before an Order
// record exists.
type OrderRequest struct {
	Symbol   string    `json:"symbol"`
	Exchange string    `json:"exchange"`
	Qty      int       `json:"quantity"`
	Price    float64   `json:"price,omitempty"` // zero for market orders
	Kind     OrderKind `json:"kind"`
	Side     Side      `json:"side"`
	Strategy string    `json:"strategy,omitempty"`

	StopLoss     float64 `json:"stop_loss,omitempty"`
	ProfitTarget float64 `json:"profit_target,omitempty"`
}

// Order is the authoritative order record. Owned exclusively by the
// order coordinator while non-terminal.
type Order struct {
	ID            string      `json:"id" db:"id"`
	BrokerOrderID string      `json:"broker_order_id,omitempty" db:"broker_order_id"`
	Symbol        string      `json:"symbol" db:"symbol"`
	Exchange      string      `json:"exchange" db:"exchange"`
	Qty           int         `json:"quantity" db:"quantity"`
	Price         float64     `json:"price,omitempty" db:"price"`
	Side          Side        `json:"side" db:"side"`
	Kind          OrderKind   `json:"kind" db:"kind"`
	Status        OrderStatus `json:"status" db:"status"`
	Strategy      string      `json:"strategy,omitempty" db:"strategy"`
	FilledQty     int         `json:"filled_qty" db:"filled_qty"`
	AvgFillPrice  float64     `json:"avg_fill_price" db:"avg_fill_price"`
	Message       string      `json:"message,omitempty" db:"message"`
	StopLoss      float64     `json:"stop_loss,omitempty" db:"stop_loss"`
	ProfitTarget  float64     `json:"profit_target,omitempty" db:"profit_target"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"`
}

// Position is the signed net holding for a symbol. Owned by the risk
// gate; mutated only on COMPLETE status events.
type Position struct {
	Symbol      string  `json:"symbol"`
	Qty         int     `json:"quantity"`
	AvgPrice    float64 `json:"avg_price"`
	RealizedPnL float64 `json:"realized_pnl"`
}

// StatusEvent is an asynchronous order-lifecycle update from the
// broker's own channel, keyed by the broker-assigned order id.
type StatusEvent struct {
	BrokerOrderID string
	Status        OrderStatus
	FilledQty     int
	AvgPrice      float64
	Message       string
}

// SignedQty returns the position delta for a fill of qty on the given
// side: BUY positive, SELL negative.
func SignedQty(side Side, qty int) int {
	if side == SideSell {
		return -qty
	}
	return qty
}
