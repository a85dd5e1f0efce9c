// Package brokerobs wraps a broker with logging and tracing middleware.
package brokerobs

import (
	"context"

	"algotrader/internal/interfaces"
	"algotrader/internal/logger"
	"algotrader/internal/trace"
	"algotrader/internal/types"
)

type observableBroker struct {
	broker interfaces.Broker
}

var _ interfaces.Broker = (*observableBroker)(nil)

func Wrap(broker interfaces.Broker) interfaces.Broker {
	return &observableBroker{
		broker: broker,
	}
}

func (ob *observableBroker) Authenticate(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "broker.Authenticate")
	defer span.End()

	if err := ob.broker.Authenticate(ctx); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Broker authentication failed", err)
		return err
	}
	logger.InfoSkip(ctx, 1, "Broker authenticated")
	return nil
}

func (ob *observableBroker) PlaceOrder(ctx context.Context, req types.OrderRequest) (string, error) {
	ctx, span := trace.StartSpan(ctx, "broker.PlaceOrder")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Placing order",
		"symbol", req.Symbol,
		"side", string(req.Side),
		"qty", req.Qty,
		"kind", string(req.Kind),
		"strategy", req.Strategy,
	)

	brokerOrderID, err := ob.broker.PlaceOrder(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to place order", err,
			"symbol", req.Symbol,
			"side", string(req.Side),
			"qty", req.Qty,
		)
		return "", err
	}

	logger.InfoSkip(ctx, 1, "Order placed",
		"symbol", req.Symbol,
		"broker_order_id", brokerOrderID,
	)
	return brokerOrderID, nil
}

func (ob *observableBroker) CancelOrder(ctx context.Context, brokerOrderID string) error {
	ctx, span := trace.StartSpan(ctx, "broker.CancelOrder")
	defer span.End()

	if err := ob.broker.CancelOrder(ctx, brokerOrderID); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to cancel order", err, "broker_order_id", brokerOrderID)
		return err
	}
	logger.InfoSkip(ctx, 1, "Order cancelled at broker", "broker_order_id", brokerOrderID)
	return nil
}

func (ob *observableBroker) LTP(ctx context.Context, symbol, exchange string) (float64, error) {
	ctx, span := trace.StartSpan(ctx, "broker.LTP")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching LTP", "symbol", symbol, "exchange", exchange)

	price, err := ob.broker.LTP(ctx, symbol, exchange)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch LTP", err, "symbol", symbol)
		return 0, err
	}

	logger.DebugSkip(ctx, 1, "LTP fetched", "symbol", symbol, "price", price)
	return price, nil
}
