package indicator

import (
	"math"

	"github.com/markcheno/go-talib"
)

// Bollinger returns SMA(period) +/- k population standard deviations.
// The first period-1 positions are NaN.
func Bollinger(closes []float64, period int, k float64) (upper, middle, lower []float64) {
	n := len(closes)
	if period <= 1 || n < period {
		return undefinedSlice(n), undefinedSlice(n), undefinedSlice(n)
	}
	upper, middle, lower = talib.BBands(closes, period, k, k, talib.SMA)
	return mask(upper, period-1), mask(middle, period-1), mask(lower, period-1)
}

// Bandwidth is (upper-lower)/middle, NaN where undefined or middle is zero.
func Bandwidth(upper, middle, lower []float64) []float64 {
	out := undefinedSlice(len(middle))
	for i := range out {
		if IsDefined(upper[i]) && IsDefined(lower[i]) && IsDefined(middle[i]) && middle[i] != 0 {
			out[i] = (upper[i] - lower[i]) / math.Abs(middle[i])
		}
	}
	return out
}
