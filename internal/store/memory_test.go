package store

import (
	"context"
	"testing"

	"algotrader/internal/types"
)

func TestMemoryStoreSaveAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	o := &types.Order{ID: "o1", Symbol: "SBIN", Status: types.StatusPending}
	if err := s.Save(ctx, o); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	got, err := s.Get(ctx, "o1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got == nil || got.Symbol != "SBIN" {
		t.Fatalf("Expected stored order back, got %+v", got)
	}

	// Stored copies are detached from caller mutations.
	o.Symbol = "TCS"
	got, _ = s.Get(ctx, "o1")
	if got.Symbol != "SBIN" {
		t.Errorf("Expected stored copy unaffected, got %s", got.Symbol)
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	s := NewMemoryStore()
	got, err := s.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for unknown id, got %+v", got)
	}
}

func TestMemoryStoreListPendingSkipsTerminal(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_ = s.Save(ctx, &types.Order{ID: "open", Status: types.StatusOpen})
	_ = s.Save(ctx, &types.Order{ID: "pending", Status: types.StatusPending})
	_ = s.Save(ctx, &types.Order{ID: "done", Status: types.StatusComplete})
	_ = s.Save(ctx, &types.Order{ID: "gone", Status: types.StatusCancelled})

	pending, err := s.ListPending(ctx)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("Expected 2 pending orders, got %d", len(pending))
	}
	for _, o := range pending {
		if o.Status.Terminal() {
			t.Errorf("Expected only non-terminal orders, got %s", o.Status)
		}
	}
}
