package strategy

import (
	"errors"
	"fmt"

	"algotrader/internal/ta"
	"algotrader/internal/types"
)

// Crossover emits BUY on the tick where the fast SMA crosses from at or
// below the slow SMA to above it, and SELL on the mirrored downward
// cross. A level comparison alone never produces an intent.
type Crossover struct {
	base
	fast int
	slow int
}

func NewCrossover(name, symbol string, qty, fast, slow int) (*Crossover, error) {
	if fast <= 0 || slow <= fast {
		return nil, fmt.Errorf("crossover windows invalid: fast=%d slow=%d", fast, slow)
	}
	return &Crossover{base: base{name: name, symbol: symbol, qty: qty}, fast: fast, slow: slow}, nil
}

// MinHistory needs one extra point so the previous evaluation's SMAs
// can be recomputed for the strict crossover check.
func (s *Crossover) MinHistory() int { return s.slow + 1 }

func (s *Crossover) Evaluate(tick types.PriceTick, history []float64) (*types.TradeIntent, error) {
	if !s.wants(tick) || len(history) < s.MinHistory() {
		return nil, nil
	}

	curFast, err := ta.SMA(history, s.fast)
	if err != nil {
		return nil, suppressInsufficient(err)
	}
	curSlow, err := ta.SMA(history, s.slow)
	if err != nil {
		return nil, suppressInsufficient(err)
	}
	prev := history[:len(history)-1]
	prevFast, err := ta.SMA(prev, s.fast)
	if err != nil {
		return nil, suppressInsufficient(err)
	}
	prevSlow, err := ta.SMA(prev, s.slow)
	if err != nil {
		return nil, suppressInsufficient(err)
	}

	switch {
	case curFast > curSlow && prevFast <= prevSlow:
		return s.intent(tick, types.SideBuy,
			fmt.Sprintf("bullish crossover: fast %.2f > slow %.2f", curFast, curSlow)), nil
	case curFast < curSlow && prevFast >= prevSlow:
		return s.intent(tick, types.SideSell,
			fmt.Sprintf("bearish crossover: fast %.2f < slow %.2f", curFast, curSlow)), nil
	}
	return nil, nil
}

func (s *Crossover) intent(tick types.PriceTick, side types.Side, reason string) *types.TradeIntent {
	return &types.TradeIntent{
		Strategy: s.name,
		Symbol:   s.symbol,
		Exchange: tick.Exchange,
		Side:     side,
		Qty:      s.qty,
		RefPrice: tick.Price,
		Reason:   reason,
	}
}

// suppressInsufficient turns a too-short-history indicator failure into
// "no intent". Anything else surfaces to the engine for per-strategy
// containment.
func suppressInsufficient(err error) error {
	if errors.Is(err, types.ErrInsufficientData) {
		return nil
	}
	return err
}
