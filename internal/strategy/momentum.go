package strategy

import (
	"fmt"

	"algotrader/internal/types"
)

// Momentum scalps short bursts: BUY when the rolling mean return over
// the lookback is positive and the last tick moved up, SELL on the
// mirrored negative case. Both conditions are required. Intents carry
// stop-loss and profit-target hints that the coordinator records but
// does not enforce.
type Momentum struct {
	base
	lookback    int
	stopLossPct float64
	profitPct   float64
}

func NewMomentum(name, symbol string, qty, lookback int, stopLossPct, profitPct float64) (*Momentum, error) {
	if lookback <= 0 {
		return nil, fmt.Errorf("momentum lookback invalid: %d", lookback)
	}
	return &Momentum{
		base:        base{name: name, symbol: symbol, qty: qty},
		lookback:    lookback,
		stopLossPct: stopLossPct,
		profitPct:   profitPct,
	}, nil
}

// MinHistory covers lookback returns, which need lookback+1 prices.
func (s *Momentum) MinHistory() int { return s.lookback + 1 }

func (s *Momentum) Evaluate(tick types.PriceTick, history []float64) (*types.TradeIntent, error) {
	if !s.wants(tick) || len(history) < s.MinHistory() {
		return nil, nil
	}

	mean := 0.0
	for i := len(history) - s.lookback; i < len(history); i++ {
		if history[i-1] == 0 {
			return nil, nil
		}
		mean += (history[i] - history[i-1]) / history[i-1]
	}
	mean /= float64(s.lookback)
	lastChange := history[len(history)-1] - history[len(history)-2]

	price := tick.Price
	switch {
	case mean > 0 && lastChange > 0:
		return &types.TradeIntent{
			Strategy:     s.name,
			Symbol:       s.symbol,
			Exchange:     tick.Exchange,
			Side:         types.SideBuy,
			Qty:          s.qty,
			RefPrice:     price,
			Reason:       fmt.Sprintf("positive momentum: mean return %.4f%%", mean*100),
			StopLoss:     price * (1 - s.stopLossPct),
			ProfitTarget: price * (1 + s.profitPct),
		}, nil
	case mean < 0 && lastChange < 0:
		return &types.TradeIntent{
			Strategy:     s.name,
			Symbol:       s.symbol,
			Exchange:     tick.Exchange,
			Side:         types.SideSell,
			Qty:          s.qty,
			RefPrice:     price,
			Reason:       fmt.Sprintf("negative momentum: mean return %.4f%%", mean*100),
			StopLoss:     price * (1 + s.stopLossPct),
			ProfitTarget: price * (1 - s.profitPct),
		}, nil
	}
	return nil, nil
}
