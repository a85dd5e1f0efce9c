package marketdata

import (
	"context"
	"testing"
	"time"

	"algotrader/internal/types"
)

func TestSimFeedEmitsSubscribedSymbols(t *testing.T) {
	f := NewSimFeed("NSE", 5*time.Millisecond, 1000)
	ctx := context.Background()

	ticks := make(chan types.PriceTick, 16)
	f.OnTick(func(tk types.PriceTick) { ticks <- tk })

	if err := f.Subscribe(ctx, []string{"SBIN"}); err != nil {
		t.Fatal(err)
	}
	if err := f.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer f.Stop(ctx)

	select {
	case tk := <-ticks:
		if tk.Symbol != "SBIN" {
			t.Errorf("Expected SBIN, got %s", tk.Symbol)
		}
		if tk.Exchange != "NSE" {
			t.Errorf("Expected NSE, got %s", tk.Exchange)
		}
		if tk.Price <= 0 {
			t.Errorf("Expected positive price, got %f", tk.Price)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected a tick")
	}
}

func TestSimFeedUnsubscribeStopsSymbol(t *testing.T) {
	f := NewSimFeed("NSE", 5*time.Millisecond, 1000)
	ctx := context.Background()

	ticks := make(chan types.PriceTick, 64)
	f.OnTick(func(tk types.PriceTick) { ticks <- tk })

	_ = f.Subscribe(ctx, []string{"SBIN"})
	_ = f.Unsubscribe(ctx, []string{"SBIN"})
	if err := f.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer f.Stop(ctx)

	select {
	case tk := <-ticks:
		t.Fatalf("Expected no ticks after unsubscribe, got %+v", tk)
	case <-time.After(50 * time.Millisecond):
	}
}
