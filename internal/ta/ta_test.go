package ta

import (
	"errors"
	"math"
	"testing"

	"algotrader/internal/types"
)

func TestSMA(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}

	got, err := SMA(closes, 3)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != 4 {
		t.Errorf("Expected SMA 4, got %f", got)
	}

	got, err = SMA(closes, 5)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != 3 {
		t.Errorf("Expected SMA 3, got %f", got)
	}
}

func TestSMAInsufficientData(t *testing.T) {
	if _, err := SMA([]float64{1, 2}, 3); !errors.Is(err, types.ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData, got %v", err)
	}
	if _, err := SMA([]float64{1, 2, 3}, 0); !errors.Is(err, types.ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData for zero window, got %v", err)
	}
}

func TestEMA(t *testing.T) {
	got, err := EMA([]float64{1, 2, 3, 4, 5}, 3)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// Seeded with SMA(1,2,3)=2, k=0.5: (4-2)*0.5+2=3, (5-3)*0.5+3=4.
	if got != 4 {
		t.Errorf("Expected EMA 4, got %f", got)
	}

	// EMA of a constant series stays at the constant.
	got, err = EMA([]float64{50, 50, 50, 50, 50, 50}, 4)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != 50 {
		t.Errorf("Expected EMA 50, got %f", got)
	}
}

func TestRSIAllGains(t *testing.T) {
	got, err := RSI([]float64{1, 2, 3, 4, 5}, 4)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != 100 {
		t.Errorf("Expected RSI 100 when there are no losses, got %f", got)
	}
}

func TestRSIBalanced(t *testing.T) {
	// Alternating equal gains and losses give RS=1, RSI=50.
	got, err := RSI([]float64{10, 11, 10, 11, 10}, 4)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if math.Abs(got-50) > 1e-9 {
		t.Errorf("Expected RSI 50, got %f", got)
	}
}

func TestRSIBounds(t *testing.T) {
	closes := []float64{100, 98, 103, 97, 105, 99, 101, 96, 104}
	got, err := RSI(closes, 8)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got < 0 || got > 100 {
		t.Errorf("Expected RSI within [0,100], got %f", got)
	}
}

func TestRSIInsufficientData(t *testing.T) {
	// period+1 closes are required.
	if _, err := RSI([]float64{1, 2, 3, 4}, 4); !errors.Is(err, types.ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData, got %v", err)
	}
}

func TestStdDev(t *testing.T) {
	got, err := StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 8)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if math.Abs(got-2) > 1e-9 {
		t.Errorf("Expected stddev 2, got %f", got)
	}
}

func TestBollingerConstantSeries(t *testing.T) {
	mid, up, low, err := Bollinger([]float64{100, 100, 100, 100, 100}, 5, 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if mid != 100 || up != 100 || low != 100 {
		t.Errorf("Expected collapsed bands at 100, got mid=%f up=%f low=%f", mid, up, low)
	}
}

func TestBollingerBandOrdering(t *testing.T) {
	closes := []float64{100, 102, 98, 104, 96, 101, 99, 103}
	mid, up, low, err := Bollinger(closes, 8, 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !(low < mid && mid < up) {
		t.Errorf("Expected low < mid < up, got low=%f mid=%f up=%f", low, mid, up)
	}
}

func TestMACDConstantSeries(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100
	}
	macd, signal, hist, err := MACD(closes, 12, 26, 9)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if macd != 0 || signal != 0 || hist != 0 {
		t.Errorf("Expected zero MACD on constant series, got macd=%f signal=%f hist=%f", macd, signal, hist)
	}
}

func TestMACDInvalidParams(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	if _, _, _, err := MACD(closes, 26, 12, 9); !errors.Is(err, types.ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData when fast >= slow, got %v", err)
	}
	if _, _, _, err := MACD(closes, 12, 26, 9); !errors.Is(err, types.ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData on short history, got %v", err)
	}
}
