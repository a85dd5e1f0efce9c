// Package risk validates trade intents against account-level limits and
// tracks running positions and daily P&L. All mutating access is
// serialized on a single mutex; reads for reporting return snapshots.
package risk

import (
	"context"
	"fmt"
	"math"
	"sync"

	"algotrader/internal/logger"
	"algotrader/internal/metrics"
	"algotrader/internal/types"
)

// defaultStopFraction is the assumed stop distance for market orders
// when sizing by risk: 2% of the current price.
const defaultStopFraction = 0.02

type Limits struct {
	MaxPositionSize float64
	MaxDailyLoss    float64
	MaxOrdersPerDay int
	RiskPercentage  float64
	AccountValue    float64
	StopFraction    float64
}

// Decision is the outcome of a validation pass. A zero AdjustedQty on an
// approved decision means the caller must treat the intent as a no-op,
// not submit it.
type Decision struct {
	Approved    bool
	AdjustedQty int
	Reason      string
}

type Manager struct {
	mu         sync.Mutex
	limits     Limits
	dailyPnL   float64
	orderCount int
	positions  map[string]*types.Position
}

func NewManager(limits Limits) *Manager {
	if limits.StopFraction <= 0 {
		limits.StopFraction = defaultStopFraction
	}
	return &Manager{
		limits:    limits,
		positions: make(map[string]*types.Position),
	}
}

// Validate applies the limit checks in order; the first failure
// short-circuits. On approval the quantity is risk-adjusted and never
// exceeds the requested quantity.
func (m *Manager) Validate(ctx context.Context, intent types.TradeIntent, currentPrice float64) Decision {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dailyPnL <= -m.limits.MaxDailyLoss {
		return m.reject(ctx, intent, fmt.Sprintf("daily loss limit exceeded: %.2f", m.dailyPnL))
	}

	orderValue := float64(intent.Qty) * currentPrice
	if orderValue > m.limits.MaxPositionSize {
		return m.reject(ctx, intent, fmt.Sprintf("order value %.2f exceeds max position size %.2f", orderValue, m.limits.MaxPositionSize))
	}

	if m.orderCount >= m.limits.MaxOrdersPerDay {
		return m.reject(ctx, intent, fmt.Sprintf("daily order limit exceeded: %d", m.orderCount))
	}

	current := 0
	if p := m.positions[intent.Symbol]; p != nil {
		current = p.Qty
	}
	projected := float64(current+types.SignedQty(intent.Side, intent.Qty)) * currentPrice
	if math.Abs(projected) > m.limits.MaxPositionSize {
		return m.reject(ctx, intent, fmt.Sprintf("projected position value %.2f exceeds max position size %.2f", projected, m.limits.MaxPositionSize))
	}

	qty := m.riskAdjustedQty(intent.Qty, currentPrice)
	return Decision{Approved: true, AdjustedQty: qty, Reason: "approved"}
}

func (m *Manager) reject(ctx context.Context, intent types.TradeIntent, reason string) Decision {
	metrics.RiskRejections.Inc()
	logger.Risk(ctx, intent.Symbol, "intent_rejected",
		"strategy", intent.Strategy,
		"side", string(intent.Side),
		"qty", intent.Qty,
		"reason", reason,
	)
	return Decision{Approved: false, Reason: reason}
}

// riskAdjustedQty sizes the order so the amount at risk over the
// assumed stop distance stays within the configured percentage of
// account value.
func (m *Manager) riskAdjustedQty(requested int, price float64) int {
	if price <= 0 {
		return 0
	}
	maxRisk := m.limits.AccountValue * m.limits.RiskPercentage / 100.0
	stopDistance := price * m.limits.StopFraction
	riskQty := int(maxRisk / stopDistance)
	if requested < riskQty {
		riskQty = requested
	}
	if riskQty < 0 {
		riskQty = 0
	}
	return riskQty
}

// RecordSubmission increments the daily order count. Called by the
// coordinator only when an order is actually submitted, so dry
// validations never double count.
func (m *Manager) RecordSubmission() {
	m.mu.Lock()
	m.orderCount++
	m.mu.Unlock()
}

// ApplyFill mutates the position for a COMPLETE fill. qtyDelta is
// signed: BUY positive, SELL negative. Realized P&L from reducing or
// flipping a position feeds the daily P&L.
func (m *Manager) ApplyFill(ctx context.Context, symbol string, qtyDelta int, fillPrice float64) {
	if qtyDelta == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.positions[symbol]
	if p == nil {
		p = &types.Position{Symbol: symbol}
		m.positions[symbol] = p
	}

	switch {
	case p.Qty == 0 || sameSign(p.Qty, qtyDelta):
		// Extending: recompute the signed average entry price.
		total := p.AvgPrice*float64(p.Qty) + fillPrice*float64(qtyDelta)
		p.Qty += qtyDelta
		p.AvgPrice = total / float64(p.Qty)
	default:
		// Reducing or flipping: realize P&L on the closed quantity.
		closed := minInt(absInt(qtyDelta), absInt(p.Qty))
		realized := (fillPrice - p.AvgPrice) * float64(closed) * float64(sign(p.Qty))
		p.RealizedPnL += realized
		m.dailyPnL += realized
		p.Qty += qtyDelta
		if p.Qty == 0 {
			p.AvgPrice = 0
		} else if !sameSign(p.Qty-qtyDelta, p.Qty) {
			// Flipped through zero: remainder entered at the fill price.
			p.AvgPrice = fillPrice
		}
	}

	logger.Info(ctx, "Position updated",
		"symbol", symbol,
		"qty_delta", qtyDelta,
		"fill_price", fillPrice,
		"position_qty", p.Qty,
		"avg_price", p.AvgPrice,
		"daily_pnl", m.dailyPnL,
	)
}

// Position returns a snapshot of the position for a symbol.
func (m *Manager) Position(symbol string) (types.Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.positions[symbol]
	if p == nil {
		return types.Position{}, false
	}
	return *p, true
}

// Positions returns a snapshot of all open positions.
func (m *Manager) Positions() []types.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, *p)
	}
	return out
}

func (m *Manager) DailyPnL() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dailyPnL
}

func (m *Manager) OrderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orderCount
}

// ResetDaily clears the daily P&L and order count at the start of a
// trading day. Positions carry over.
func (m *Manager) ResetDaily(ctx context.Context) {
	m.mu.Lock()
	m.dailyPnL = 0
	m.orderCount = 0
	m.mu.Unlock()
	logger.Info(ctx, "Daily risk counters reset")
}

func sameSign(a, b int) bool { return (a > 0) == (b > 0) }

func sign(a int) int {
	if a < 0 {
		return -1
	}
	return 1
}

func absInt(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
