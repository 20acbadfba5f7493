package indicator

import "github.com/markcheno/go-talib"

// ADX is Wilder's Average Directional Index. Smoothing is Wilder's
// (alpha = 1/period) throughout: true range and directional movement are
// seeded with a period sum and smoothed recursively, DX is averaged over
// period values to seed ADX which is then smoothed the same way.
// The first defined value is at index 2*period-1.
func ADX(high, low, close []float64, period int) []float64 {
	n := len(close)
	lookback := 2*period - 1
	if period <= 1 || n <= lookback || len(high) != n || len(low) != n {
		return undefinedSlice(n)
	}
	return mask(talib.Adx(high, low, close, period), lookback)
}
