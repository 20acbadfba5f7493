// Package indicator computes technical indicators over a time-ordered price
// series. Every function returns one value per input bar; positions inside
// the warm-up window are NaN and callers must skip them, never treat them as 0.
package indicator

import "math"

// Series is a column view of OHLCV bars, oldest first. All columns have the
// same length.
type Series struct {
	Open   []float64
	High   []float64
	Low    []float64
	Close  []float64
	Volume []float64
}

func (s Series) Len() int { return len(s.Close) }

// Undefined is the not-a-number sentinel for warm-up positions.
func Undefined() float64 { return math.NaN() }

// IsDefined reports whether v carries a value.
func IsDefined(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Last returns the final element of xs, or NaN for an empty slice.
func Last(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return xs[len(xs)-1]
}

// At returns xs[len(xs)-1-back], or NaN when out of range.
func At(xs []float64, back int) float64 {
	i := len(xs) - 1 - back
	if back < 0 || i < 0 {
		return math.NaN()
	}
	return xs[i]
}

func undefinedSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// mask overwrites the first n positions of xs with NaN. Used on TA-Lib output,
// which leaves zeros inside its lookback window.
func mask(xs []float64, n int) []float64 {
	for i := 0; i < n && i < len(xs); i++ {
		xs[i] = math.NaN()
	}
	return xs
}
