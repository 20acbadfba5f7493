package indicator

import "math"

// EMA is the recursive exponential moving average with alpha = 2/(span+1),
// seeded with the first observation. It is defined from the first non-NaN
// input onwards; NaN inputs propagate the previous value.
func EMA(values []float64, span int) []float64 {
	out := undefinedSlice(len(values))
	if span <= 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)

	prev := math.NaN()
	for i, v := range values {
		switch {
		case math.IsNaN(v):
			out[i] = prev
			continue
		case math.IsNaN(prev):
			prev = v
		default:
			prev = alpha*v + (1-alpha)*prev
		}
		out[i] = prev
	}
	return out
}

// Slope is (x[i] - x[i-lookback]) / lookback; NaN for the first lookback
// positions or when either end is undefined.
func Slope(values []float64, lookback int) []float64 {
	out := undefinedSlice(len(values))
	if lookback <= 0 {
		return out
	}
	for i := lookback; i < len(values); i++ {
		a, b := values[i-lookback], values[i]
		if IsDefined(a) && IsDefined(b) {
			out[i] = (b - a) / float64(lookback)
		}
	}
	return out
}
