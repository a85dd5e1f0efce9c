package strategy

import (
	"fmt"

	"algotrader/internal/ta"
	"algotrader/internal/types"
)

// MeanReversion trades RSI extremes: BUY below the lower bound, SELL
// above the upper bound. Values exactly on a bound produce no intent.
type MeanReversion struct {
	base
	period int
	lower  float64
	upper  float64
}

func NewMeanReversion(name, symbol string, qty, period int, lower, upper float64) (*MeanReversion, error) {
	if period <= 0 || lower >= upper {
		return nil, fmt.Errorf("mean reversion params invalid: period=%d lower=%.1f upper=%.1f", period, lower, upper)
	}
	return &MeanReversion{base: base{name: name, symbol: symbol, qty: qty}, period: period, lower: lower, upper: upper}, nil
}

func (s *MeanReversion) MinHistory() int { return s.period + 1 }

func (s *MeanReversion) Evaluate(tick types.PriceTick, history []float64) (*types.TradeIntent, error) {
	if !s.wants(tick) || len(history) < s.MinHistory() {
		return nil, nil
	}

	rsi, err := ta.RSI(history, s.period)
	if err != nil {
		return nil, suppressInsufficient(err)
	}

	var side types.Side
	var reason string
	switch {
	case rsi < s.lower:
		side = types.SideBuy
		reason = fmt.Sprintf("RSI oversold: %.2f < %.1f", rsi, s.lower)
	case rsi > s.upper:
		side = types.SideSell
		reason = fmt.Sprintf("RSI overbought: %.2f > %.1f", rsi, s.upper)
	default:
		return nil, nil
	}

	return &types.TradeIntent{
		Strategy: s.name,
		Symbol:   s.symbol,
		Exchange: tick.Exchange,
		Side:     side,
		Qty:      s.qty,
		RefPrice: tick.Price,
		Reason:   reason,
	}, nil
}
