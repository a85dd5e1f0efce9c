package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"algotrader/internal/risk"
	"algotrader/internal/store"
	"algotrader/internal/types"
)

// fakeBroker records placed orders and can be forced to fail.
type fakeBroker struct {
	mu         sync.Mutex
	placed     []types.OrderRequest
	cancelled  []string
	placeErr   error
	cancelErr  error
	cancelHook func()
	nextID     string
	ltp        float64
}

func (b *fakeBroker) Authenticate(ctx context.Context) error { return nil }

func (b *fakeBroker) PlaceOrder(ctx context.Context, req types.OrderRequest) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.placeErr != nil {
		return "", b.placeErr
	}
	b.placed = append(b.placed, req)
	if b.nextID == "" {
		return "BRK-1", nil
	}
	return b.nextID, nil
}

func (b *fakeBroker) CancelOrder(ctx context.Context, brokerOrderID string) error {
	if b.cancelHook != nil {
		b.cancelHook()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancelErr != nil {
		return b.cancelErr
	}
	b.cancelled = append(b.cancelled, brokerOrderID)
	return nil
}

func (b *fakeBroker) LTP(ctx context.Context, symbol, exchange string) (float64, error) {
	if b.ltp == 0 {
		return 100, nil
	}
	return b.ltp, nil
}

func newTestCoordinator(t *testing.T, brk *fakeBroker) (*Coordinator, *store.MemoryStore, *risk.Manager) {
	t.Helper()
	t.Setenv("TRADER_LOG_DIR", t.TempDir())
	st := store.NewMemoryStore()
	rm := risk.NewManager(risk.Limits{
		MaxPositionSize: 100000,
		MaxDailyLoss:    10000,
		MaxOrdersPerDay: 100,
		RiskPercentage:  2.0,
		AccountValue:    1000000,
	})
	c := NewCoordinator(brk, st, rm, WithReconcileRetry(10*time.Millisecond, 1))
	return c, st, rm
}

func marketBuy(symbol string, qty int, price float64) types.OrderRequest {
	return types.OrderRequest{
		Symbol:   symbol,
		Exchange: "NSE",
		Qty:      qty,
		Price:    price,
		Side:     types.SideBuy,
		Kind:     types.OrderKindMarket,
		Strategy: "test",
	}
}

func TestSubmitOpensAndTracks(t *testing.T) {
	brk := &fakeBroker{nextID: "BRK-42"}
	c, st, rm := newTestCoordinator(t, brk)
	ctx := context.Background()

	o, err := c.Submit(ctx, marketBuy("SBIN", 100, 50), risk.Decision{Approved: true, AdjustedQty: 100})
	require.NoError(t, err)
	require.Equal(t, types.StatusOpen, o.Status)
	require.Equal(t, "BRK-42", o.BrokerOrderID)

	pending := c.ListPending()
	require.Len(t, pending, 1)
	require.Equal(t, o.ID, pending[0].ID)

	stored, err := st.Get(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, types.StatusOpen, stored.Status)

	require.Equal(t, 1, rm.OrderCount())
}

func TestSubmitRejectedDecision(t *testing.T) {
	c, _, _ := newTestCoordinator(t, &fakeBroker{})

	_, err := c.Submit(context.Background(), marketBuy("SBIN", 100, 50), risk.Decision{Approved: false, Reason: "nope"})
	var rejected *types.RiskRejectedError
	require.ErrorAs(t, err, &rejected)
}

func TestSubmitBrokerFailure(t *testing.T) {
	brk := &fakeBroker{placeErr: errors.New("exchange closed")}
	c, st, rm := newTestCoordinator(t, brk)
	ctx := context.Background()

	_, err := c.Submit(ctx, marketBuy("SBIN", 100, 50), risk.Decision{Approved: true, AdjustedQty: 100})
	var sub *types.SubmissionError
	require.ErrorAs(t, err, &sub)

	require.Empty(t, c.ListPending())
	require.Equal(t, 0, rm.OrderCount())

	stored, err := st.Get(ctx, sub.OrderID)
	require.NoError(t, err)
	require.Equal(t, types.StatusRejected, stored.Status)
}

func TestReconcileCompleteFill(t *testing.T) {
	brk := &fakeBroker{nextID: "BRK-7"}
	c, st, rm := newTestCoordinator(t, brk)
	ctx := context.Background()

	o, err := c.Submit(ctx, marketBuy("SBIN", 100, 50), risk.Decision{Approved: true, AdjustedQty: 100})
	require.NoError(t, err)

	c.Reconcile(ctx, types.StatusEvent{
		BrokerOrderID: "BRK-7",
		Status:        types.StatusComplete,
		FilledQty:     100,
		AvgPrice:      50.5,
	})

	require.Empty(t, c.ListPending())

	stored, err := st.Get(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, types.StatusComplete, stored.Status)
	require.Equal(t, 100, stored.FilledQty)
	require.Equal(t, 50.5, stored.AvgFillPrice)

	pos, ok := rm.Position("SBIN")
	require.True(t, ok)
	require.Equal(t, 100, pos.Qty)
	require.Equal(t, 50.5, pos.AvgPrice)
}

func TestReconcileSellReducesPosition(t *testing.T) {
	brk := &fakeBroker{}
	c, _, rm := newTestCoordinator(t, brk)
	ctx := context.Background()

	rm.ApplyFill(ctx, "SBIN", 100, 50)

	req := marketBuy("SBIN", 40, 60)
	req.Side = types.SideSell
	o, err := c.Submit(ctx, req, risk.Decision{Approved: true, AdjustedQty: 40})
	require.NoError(t, err)

	c.Reconcile(ctx, types.StatusEvent{
		BrokerOrderID: o.BrokerOrderID,
		Status:        types.StatusComplete,
		FilledQty:     40,
		AvgPrice:      60,
	})

	pos, _ := rm.Position("SBIN")
	require.Equal(t, 60, pos.Qty)
	require.InDelta(t, 400.0, rm.DailyPnL(), 1e-9)
}

func TestReconcileUnknownOrderDiscarded(t *testing.T) {
	c, _, rm := newTestCoordinator(t, &fakeBroker{})
	ctx := context.Background()

	c.Reconcile(ctx, types.StatusEvent{
		BrokerOrderID: "NEVER-SEEN",
		Status:        types.StatusComplete,
		FilledQty:     10,
		AvgPrice:      99,
	})

	// Let the retry schedule drain.
	time.Sleep(50 * time.Millisecond)

	require.Empty(t, c.ListPending())
	require.Empty(t, rm.Positions())
}

func TestReconcileEventBeatsRegistration(t *testing.T) {
	brk := &fakeBroker{nextID: "BRK-9"}
	c, _, rm := newTestCoordinator(t, brk)
	ctx := context.Background()

	// Deliver the fill before the order exists; the retry window should
	// pick it up once Submit registers the broker order id.
	c.Reconcile(ctx, types.StatusEvent{
		BrokerOrderID: "BRK-9",
		Status:        types.StatusComplete,
		FilledQty:     10,
		AvgPrice:      50,
	})

	_, err := c.Submit(ctx, marketBuy("SBIN", 10, 50), risk.Decision{Approved: true, AdjustedQty: 10})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		pos, ok := rm.Position("SBIN")
		return ok && pos.Qty == 10
	}, time.Second, 5*time.Millisecond)
}

// slowStore delays persisting OPEN orders so a concurrent fill can race
// the submit path's save.
type slowStore struct {
	*store.MemoryStore
	delay time.Duration
}

func (s *slowStore) Save(ctx context.Context, o *types.Order) error {
	if o.Status == types.StatusOpen {
		time.Sleep(s.delay)
	}
	return s.MemoryStore.Save(ctx, o)
}

func TestReconcileDuringSubmitKeepsFinalState(t *testing.T) {
	t.Setenv("TRADER_LOG_DIR", t.TempDir())
	brk := &fakeBroker{nextID: "BRK-11"}
	st := &slowStore{MemoryStore: store.NewMemoryStore(), delay: 50 * time.Millisecond}
	rm := risk.NewManager(risk.Limits{
		MaxPositionSize: 100000,
		MaxDailyLoss:    10000,
		MaxOrdersPerDay: 100,
		RiskPercentage:  2.0,
		AccountValue:    1000000,
	})
	c := NewCoordinator(brk, st, rm, WithReconcileRetry(20*time.Millisecond, 20))
	ctx := context.Background()

	// The fill arrives first and retries while Submit is still
	// persisting OPEN; the stale OPEN snapshot must not overwrite the
	// reconciled COMPLETE state in the store.
	c.Reconcile(ctx, types.StatusEvent{
		BrokerOrderID: "BRK-11",
		Status:        types.StatusComplete,
		FilledQty:     10,
		AvgPrice:      50,
	})

	o, err := c.Submit(ctx, marketBuy("SBIN", 10, 50), risk.Decision{Approved: true, AdjustedQty: 10})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		stored, err := st.Get(ctx, o.ID)
		return err == nil && stored != nil && stored.Status == types.StatusComplete
	}, time.Second, 5*time.Millisecond)

	require.Empty(t, c.ListPending())
	pos, ok := rm.Position("SBIN")
	require.True(t, ok)
	require.Equal(t, 10, pos.Qty)
}

func TestCancelOpenOrder(t *testing.T) {
	brk := &fakeBroker{nextID: "BRK-5"}
	c, st, _ := newTestCoordinator(t, brk)
	ctx := context.Background()

	o, err := c.Submit(ctx, marketBuy("SBIN", 10, 50), risk.Decision{Approved: true, AdjustedQty: 10})
	require.NoError(t, err)

	require.NoError(t, c.Cancel(ctx, o.ID))
	require.Empty(t, c.ListPending())

	stored, err := st.Get(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, types.StatusCancelled, stored.Status)
	require.Equal(t, []string{"BRK-5"}, brk.cancelled)
}

func TestCancelCompletedOrderFails(t *testing.T) {
	brk := &fakeBroker{nextID: "BRK-3"}
	c, _, _ := newTestCoordinator(t, brk)
	ctx := context.Background()

	o, err := c.Submit(ctx, marketBuy("SBIN", 10, 50), risk.Decision{Approved: true, AdjustedQty: 10})
	require.NoError(t, err)

	c.Reconcile(ctx, types.StatusEvent{
		BrokerOrderID: "BRK-3",
		Status:        types.StatusComplete,
		FilledQty:     10,
		AvgPrice:      50,
	})

	err = c.Cancel(ctx, o.ID)
	var cancelErr *types.CancellationError
	require.ErrorAs(t, err, &cancelErr)
	require.Equal(t, types.StatusComplete, cancelErr.Status)
}

func TestCancelRacingFillKeepsCompleteState(t *testing.T) {
	brk := &fakeBroker{nextID: "BRK-12"}
	c, st, rm := newTestCoordinator(t, brk)
	ctx := context.Background()

	o, err := c.Submit(ctx, marketBuy("SBIN", 10, 50), risk.Decision{Approved: true, AdjustedQty: 10})
	require.NoError(t, err)

	// The fill lands while the broker cancel call is in flight.
	brk.cancelHook = func() {
		c.Reconcile(ctx, types.StatusEvent{
			BrokerOrderID: "BRK-12",
			Status:        types.StatusComplete,
			FilledQty:     10,
			AvgPrice:      50,
		})
	}

	err = c.Cancel(ctx, o.ID)
	var cancelErr *types.CancellationError
	require.ErrorAs(t, err, &cancelErr)
	require.Equal(t, types.StatusComplete, cancelErr.Status)

	stored, err := st.Get(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, types.StatusComplete, stored.Status)

	pos, ok := rm.Position("SBIN")
	require.True(t, ok)
	require.Equal(t, 10, pos.Qty)
}

func TestCancelBrokerFailureLeavesOrderOpen(t *testing.T) {
	brk := &fakeBroker{nextID: "BRK-8", cancelErr: errors.New("too late")}
	c, _, _ := newTestCoordinator(t, brk)
	ctx := context.Background()

	o, err := c.Submit(ctx, marketBuy("SBIN", 10, 50), risk.Decision{Approved: true, AdjustedQty: 10})
	require.NoError(t, err)

	err = c.Cancel(ctx, o.ID)
	var cancelErr *types.CancellationError
	require.ErrorAs(t, err, &cancelErr)
	require.Len(t, c.ListPending(), 1)
}

func TestPlaceRunsRiskGate(t *testing.T) {
	brk := &fakeBroker{ltp: 100}
	c, _, _ := newTestCoordinator(t, brk)
	ctx := context.Background()

	// 2000 * 100 = 200000 exceeds the 100000 position limit.
	_, err := c.Place(ctx, marketBuy("SBIN", 2000, 0))
	var rejected *types.RiskRejectedError
	require.ErrorAs(t, err, &rejected)

	o, err := c.Place(ctx, marketBuy("SBIN", 10, 0))
	require.NoError(t, err)
	require.Equal(t, types.StatusOpen, o.Status)
}

func TestRehydrate(t *testing.T) {
	brk := &fakeBroker{}
	_, st, rm := newTestCoordinator(t, brk)
	ctx := context.Background()

	open := &types.Order{
		ID:            "restart-1",
		BrokerOrderID: "BRK-OLD",
		Symbol:        "SBIN",
		Exchange:      "NSE",
		Qty:           10,
		Side:          types.SideBuy,
		Kind:          types.OrderKindMarket,
		Status:        types.StatusOpen,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	require.NoError(t, st.Save(ctx, open))

	done := &types.Order{ID: "restart-2", Status: types.StatusComplete}
	require.NoError(t, st.Save(ctx, done))

	fresh := NewCoordinator(brk, st, rm)
	require.NoError(t, fresh.Rehydrate(ctx))

	pending := fresh.ListPending()
	require.Len(t, pending, 1)
	require.Equal(t, "restart-1", pending[0].ID)

	// The rehydrated order reconciles like any other.
	fresh.Reconcile(ctx, types.StatusEvent{
		BrokerOrderID: "BRK-OLD",
		Status:        types.StatusComplete,
		FilledQty:     10,
		AvgPrice:      55,
	})
	require.Empty(t, fresh.ListPending())
}
