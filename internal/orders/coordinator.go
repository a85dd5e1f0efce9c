// Package orders owns the authoritative view of in-flight orders. The
// coordinator submits approved orders to the broker, tracks non-terminal
// orders in a pending index keyed by broker order id, and reconciles
// asynchronous status events back into order and position state.
package orders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"algotrader/internal/interfaces"
	"algotrader/internal/logger"
	"algotrader/internal/metrics"
	"algotrader/internal/notify"
	"algotrader/internal/risk"
	"algotrader/internal/tradelog"
	"algotrader/internal/types"
)

const (
	// Reconciliation events can beat the submission path that registers
	// the broker order id. Unknown ids are retried briefly before being
	// written off as untracked.
	defaultRetryDelay = 200 * time.Millisecond
	defaultMaxRetries = 5
)

type Coordinator struct {
	broker   interfaces.Broker
	store    interfaces.OrderStore
	risk     *risk.Manager
	notifier notify.Notifier

	mu      sync.Mutex
	pending map[string]*types.Order // broker order id -> order, non-terminal only
	tracked map[string]*types.Order // internal id -> order, non-terminal only

	retryDelay time.Duration
	maxRetries int
}

type Option func(*Coordinator)

// WithReconcileRetry overrides the retry schedule for status events
// that arrive before their order id is registered.
func WithReconcileRetry(delay time.Duration, attempts int) Option {
	return func(c *Coordinator) {
		c.retryDelay = delay
		c.maxRetries = attempts
	}
}

func WithNotifier(n notify.Notifier) Option {
	return func(c *Coordinator) { c.notifier = n }
}

func NewCoordinator(broker interfaces.Broker, store interfaces.OrderStore, riskMgr *risk.Manager, opts ...Option) *Coordinator {
	c := &Coordinator{
		broker:     broker,
		store:      store,
		risk:       riskMgr,
		notifier:   notify.NewNoop(),
		pending:    make(map[string]*types.Order),
		tracked:    make(map[string]*types.Order),
		retryDelay: defaultRetryDelay,
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Rehydrate rebuilds the pending index from the persistent store after
// a restart. The in-memory index is never trusted as sole source of
// truth across process boundaries.
func (c *Coordinator) Rehydrate(ctx context.Context) error {
	persisted, err := c.store.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("rehydrate pending orders: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range persisted {
		o := persisted[i]
		if o.Status.Terminal() {
			continue
		}
		c.tracked[o.ID] = &o
		if o.BrokerOrderID != "" {
			c.pending[o.BrokerOrderID] = &o
		}
	}
	logger.Info(ctx, "Pending orders rehydrated", "count", len(c.tracked))
	return nil
}

// Place is the entry point for externally originated orders: it prices
// the request, runs it through the risk gate, and submits. A zero
// risk-adjusted quantity is a rejection, not a zero-quantity order.
func (c *Coordinator) Place(ctx context.Context, req types.OrderRequest) (*types.Order, error) {
	price := req.Price
	if price <= 0 {
		ltp, err := c.broker.LTP(ctx, req.Symbol, req.Exchange)
		if err != nil {
			return nil, fmt.Errorf("fetch current price: %w", err)
		}
		price = ltp
	}

	intent := types.TradeIntent{
		Strategy: req.Strategy,
		Symbol:   req.Symbol,
		Exchange: req.Exchange,
		Side:     req.Side,
		Qty:      req.Qty,
		RefPrice: price,
	}
	decision := c.risk.Validate(ctx, intent, price)
	if !decision.Approved {
		return nil, &types.RiskRejectedError{Reason: decision.Reason}
	}
	if decision.AdjustedQty == 0 {
		return nil, &types.RiskRejectedError{Reason: "risk-adjusted quantity is zero"}
	}
	return c.Submit(ctx, req, decision)
}

// Submit builds a PENDING order, persists it, and places it with the
// broker. Broker I/O happens outside the coordinator lock; the lock is
// re-acquired only to record the outcome. There is no retry at this
// layer.
func (c *Coordinator) Submit(ctx context.Context, req types.OrderRequest, decision risk.Decision) (*types.Order, error) {
	if !decision.Approved {
		return nil, &types.RiskRejectedError{Reason: decision.Reason}
	}
	if decision.AdjustedQty <= 0 {
		return nil, &types.RiskRejectedError{Reason: "risk-adjusted quantity is zero"}
	}

	now := time.Now()
	o := &types.Order{
		ID:           uuid.NewString(),
		Symbol:       req.Symbol,
		Exchange:     req.Exchange,
		Qty:          decision.AdjustedQty,
		Price:        req.Price,
		Side:         req.Side,
		Kind:         req.Kind,
		Status:       types.StatusPending,
		Strategy:     req.Strategy,
		StopLoss:     req.StopLoss,
		ProfitTarget: req.ProfitTarget,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := c.store.Save(ctx, o); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	brokerReq := req
	brokerReq.Qty = decision.AdjustedQty
	brokerOrderID, err := c.broker.PlaceOrder(ctx, brokerReq)
	if err != nil {
		c.mu.Lock()
		o.Status = types.StatusRejected
		o.Message = err.Error()
		o.UpdatedAt = time.Now()
		snapshot := *o
		c.mu.Unlock()
		if saveErr := c.store.Save(ctx, &snapshot); saveErr != nil {
			logger.ErrorWithErr(ctx, "Failed to persist rejected order", saveErr, "order_id", o.ID)
		}
		metrics.OrderStatusEvents.WithLabelValues(string(types.StatusRejected)).Inc()
		return nil, &types.SubmissionError{OrderID: o.ID, Err: err}
	}

	c.mu.Lock()
	o.BrokerOrderID = brokerOrderID
	o.Status = types.StatusOpen
	o.UpdatedAt = time.Now()
	snapshot := *o
	c.mu.Unlock()

	// Persist OPEN before the order becomes reachable through the
	// pending index. A postback racing this save cannot reconcile the
	// order yet (the retry window covers it), so a completed state is
	// never overwritten by this stale snapshot.
	if err := c.store.Save(ctx, &snapshot); err != nil {
		logger.ErrorWithErr(ctx, "Failed to persist open order", err, "order_id", o.ID)
	}

	c.mu.Lock()
	c.pending[brokerOrderID] = o
	c.tracked[o.ID] = o
	c.mu.Unlock()

	c.risk.RecordSubmission()
	metrics.OrdersSubmitted.Inc()

	logger.Trade(ctx, o.Symbol, string(o.Side), o.Qty, req.Price, brokerOrderID,
		"order_id", o.ID,
		"strategy", o.Strategy,
	)
	return &snapshot, nil
}

// Reconcile applies an asynchronous broker status event. Events for
// unknown broker order ids are retried briefly (network reordering can
// deliver a fill before the submission path registers the id) and then
// logged and discarded, never propagated.
func (c *Coordinator) Reconcile(ctx context.Context, ev types.StatusEvent) {
	c.reconcile(ctx, ev, 0)
}

func (c *Coordinator) reconcile(ctx context.Context, ev types.StatusEvent, attempt int) {
	c.mu.Lock()
	o, ok := c.pending[ev.BrokerOrderID]
	if !ok {
		c.mu.Unlock()
		if attempt < c.maxRetries {
			delayed := context.WithoutCancel(ctx)
			time.AfterFunc(c.retryDelay, func() {
				c.reconcile(delayed, ev, attempt+1)
			})
			return
		}
		metrics.UnknownReconciliations.Inc()
		logger.Warn(ctx, "Status event for untracked order discarded",
			"broker_order_id", ev.BrokerOrderID,
			"status", string(ev.Status),
			"error", types.ErrUnknownReconciliation,
		)
		return
	}

	o.Status = ev.Status
	if ev.FilledQty > 0 {
		o.FilledQty = ev.FilledQty
	}
	if ev.AvgPrice > 0 {
		o.AvgFillPrice = ev.AvgPrice
	}
	if ev.Message != "" {
		o.Message = ev.Message
	}
	o.UpdatedAt = time.Now()
	if ev.Status.Terminal() {
		delete(c.pending, ev.BrokerOrderID)
		delete(c.tracked, o.ID)
	}
	snapshot := *o
	c.mu.Unlock()

	if ev.Status == types.StatusComplete {
		c.risk.ApplyFill(ctx, snapshot.Symbol, types.SignedQty(snapshot.Side, snapshot.FilledQty), snapshot.AvgFillPrice)
		_ = tradelog.Append(tradelog.Entry{
			Symbol:   snapshot.Symbol,
			Side:     string(snapshot.Side),
			Qty:      snapshot.FilledQty,
			Price:    snapshot.AvgFillPrice,
			OrderID:  snapshot.BrokerOrderID,
			Strategy: snapshot.Strategy,
			Reason:   snapshot.Message,
		})
	}

	if err := c.store.Save(ctx, &snapshot); err != nil {
		logger.ErrorWithErr(ctx, "Failed to persist reconciled order", err, "order_id", snapshot.ID)
	}
	metrics.OrderStatusEvents.WithLabelValues(string(ev.Status)).Inc()

	logger.Info(ctx, "Order reconciled",
		"order_id", snapshot.ID,
		"broker_order_id", snapshot.BrokerOrderID,
		"status", string(snapshot.Status),
		"filled_qty", snapshot.FilledQty,
		"avg_price", snapshot.AvgFillPrice,
	)

	if snapshot.Status.Terminal() {
		c.notifier.OrderUpdate(ctx, snapshot)
	}
}

// Cancel is only legal while the order is OPEN. On broker failure the
// order stays OPEN and the error surfaces to the caller.
func (c *Coordinator) Cancel(ctx context.Context, orderID string) error {
	c.mu.Lock()
	o, ok := c.tracked[orderID]
	if !ok {
		c.mu.Unlock()
		stored, err := c.store.Get(ctx, orderID)
		if err != nil || stored == nil {
			return &types.CancellationError{OrderID: orderID, Err: fmt.Errorf("order not found")}
		}
		return &types.CancellationError{OrderID: orderID, Status: stored.Status}
	}
	if o.Status != types.StatusOpen {
		status := o.Status
		c.mu.Unlock()
		return &types.CancellationError{OrderID: orderID, Status: status}
	}
	brokerOrderID := o.BrokerOrderID
	c.mu.Unlock()

	if err := c.broker.CancelOrder(ctx, brokerOrderID); err != nil {
		return &types.CancellationError{OrderID: orderID, Err: err}
	}

	c.mu.Lock()
	// A fill can reconcile while the broker call is in flight; a
	// terminal order must not be clobbered to CANCELLED.
	if o.Status != types.StatusOpen {
		status := o.Status
		c.mu.Unlock()
		return &types.CancellationError{OrderID: orderID, Status: status}
	}
	o.Status = types.StatusCancelled
	o.UpdatedAt = time.Now()
	delete(c.pending, brokerOrderID)
	delete(c.tracked, orderID)
	snapshot := *o
	c.mu.Unlock()

	if err := c.store.Save(ctx, &snapshot); err != nil {
		logger.ErrorWithErr(ctx, "Failed to persist cancelled order", err, "order_id", orderID)
	}
	metrics.OrderStatusEvents.WithLabelValues(string(types.StatusCancelled)).Inc()
	logger.Info(ctx, "Order cancelled", "order_id", orderID, "broker_order_id", brokerOrderID)
	c.notifier.OrderUpdate(ctx, snapshot)
	return nil
}

// ListPending returns a snapshot of all non-terminal orders with an
// assigned broker order id. Snapshot-consistent, not linearized with
// in-flight writes.
func (c *Coordinator) ListPending() []types.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.Order, 0, len(c.pending))
	for _, o := range c.pending {
		out = append(out, *o)
	}
	return out
}

// Get loads an order record from the persistent store.
func (c *Coordinator) Get(ctx context.Context, orderID string) (*types.Order, error) {
	return c.store.Get(ctx, orderID)
}
