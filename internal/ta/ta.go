// Package ta provides stateless indicator math over ordered closing
// prices. Every function is pure: identical input yields identical
// output regardless of call order.
package ta

import (
	"math"

	"algotrader/internal/types"
)

func SMA(closes []float64, n int) (float64, error) {
	if n <= 0 || len(closes) < n {
		return 0, types.ErrInsufficientData
	}
	sum := 0.0
	for i := len(closes) - n; i < len(closes); i++ {
		sum += closes[i]
	}
	return sum / float64(n), nil
}

func EMA(closes []float64, n int) (float64, error) {
	s, err := emaSeries(closes, n)
	if err != nil {
		return 0, err
	}
	return s[len(s)-1], nil
}

// emaSeries returns the EMA at every index from n-1 onward, seeded with
// the SMA of the first n values.
func emaSeries(vals []float64, n int) ([]float64, error) {
	if n <= 0 || len(vals) < n {
		return nil, types.ErrInsufficientData
	}
	out := make([]float64, 0, len(vals)-n+1)
	seed := 0.0
	for i := 0; i < n; i++ {
		seed += vals[i]
	}
	ema := seed / float64(n)
	out = append(out, ema)
	k := 2.0 / (float64(n) + 1.0)
	for i := n; i < len(vals); i++ {
		ema = (vals[i]-ema)*k + ema
		out = append(out, ema)
	}
	return out, nil
}

// RSI computes the relative strength index over the trailing period.
// The result is always in [0,100]; when the average loss is zero the
// value is defined as 100 to avoid division by zero.
func RSI(closes []float64, period int) (float64, error) {
	if period <= 0 || len(closes) < period+1 {
		return 0, types.ErrInsufficientData
	}
	gain, loss := 0.0, 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		return 100.0, nil
	}
	rs := (gain / float64(period)) / (loss / float64(period))
	return 100.0 - (100.0 / (1.0 + rs)), nil
}

func StdDev(vals []float64, n int) (float64, error) {
	m, err := SMA(vals, n)
	if err != nil {
		return 0, err
	}
	s := 0.0
	for i := len(vals) - n; i < len(vals); i++ {
		d := vals[i] - m
		s += d * d
	}
	return math.Sqrt(s / float64(n)), nil
}

// Bollinger returns mean +/- k standard deviations over the window.
func Bollinger(closes []float64, n int, k float64) (mid, up, low float64, err error) {
	mid, err = SMA(closes, n)
	if err != nil {
		return 0, 0, 0, err
	}
	sd, err := StdDev(closes, n)
	if err != nil {
		return 0, 0, 0, err
	}
	up = mid + k*sd
	low = mid - k*sd
	return mid, up, low, nil
}

// MACD returns fast EMA minus slow EMA, the signal EMA of that
// difference, and the histogram (macd - signal). Requires at least
// slow+signalPeriod-1 closes.
func MACD(closes []float64, fast, slow, signalPeriod int) (macd, signal, hist float64, err error) {
	if fast <= 0 || slow <= fast || signalPeriod <= 0 {
		return 0, 0, 0, types.ErrInsufficientData
	}
	fastS, err := emaSeries(closes, fast)
	if err != nil {
		return 0, 0, 0, err
	}
	slowS, err := emaSeries(closes, slow)
	if err != nil {
		return 0, 0, 0, err
	}
	// Both series end at the last close; align on the shorter one.
	offset := len(fastS) - len(slowS)
	line := make([]float64, len(slowS))
	for i := range slowS {
		line[i] = fastS[i+offset] - slowS[i]
	}
	sigS, err := emaSeries(line, signalPeriod)
	if err != nil {
		return 0, 0, 0, err
	}
	macd = line[len(line)-1]
	signal = sigS[len(sigS)-1]
	return macd, signal, macd - signal, nil
}
