// Package strategy holds the trading strategy variants. Evaluation is
// synchronous and side-effect-free apart from reading the active flag;
// an inactive strategy or a history shorter than the strategy's minimum
// window yields no intent, never an error.
package strategy

import (
	"sync/atomic"

	"algotrader/internal/types"
)

type Strategy interface {
	Name() string
	Symbol() string
	Active() bool
	Activate()
	Deactivate()
	// MinHistory is the number of closing prices Evaluate needs before
	// it can produce an intent.
	MinHistory() int
	// Evaluate consumes one tick plus the recent closing-price history
	// for the tick's symbol and produces at most one trade intent.
	Evaluate(tick types.PriceTick, history []float64) (*types.TradeIntent, error)
}

// base carries the state shared by all variants. The active flag is the
// only externally mutated field, so it is atomic; everything else is
// immutable after construction.
type base struct {
	name   string
	symbol string
	qty    int
	active atomic.Bool
}

func (b *base) Name() string   { return b.name }
func (b *base) Symbol() string { return b.symbol }
func (b *base) Active() bool   { return b.active.Load() }
func (b *base) Activate()      { b.active.Store(true) }
func (b *base) Deactivate()    { b.active.Store(false) }

// wants reports whether the tick is for this strategy's symbol and the
// strategy is currently active.
func (b *base) wants(tick types.PriceTick) bool {
	return b.active.Load() && tick.Symbol == b.symbol
}
