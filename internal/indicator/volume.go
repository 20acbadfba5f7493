package indicator

import "github.com/markcheno/go-talib"

// SMA is the simple moving average; the first period-1 positions are NaN.
func SMA(values []float64, period int) []float64 {
	n := len(values)
	if period <= 0 || n < period {
		return undefinedSlice(n)
	}
	if period == 1 {
		out := make([]float64, n)
		copy(out, values)
		return out
	}
	return mask(talib.Sma(values, period), period-1)
}

// VolumeRatio is volume[i] divided by its period-bar average (current bar
// included). NaN during warm-up or when the average is zero.
func VolumeRatio(volume []float64, period int) []float64 {
	avg := SMA(volume, period)
	out := undefinedSlice(len(volume))
	for i := range out {
		if IsDefined(avg[i]) && avg[i] > 0 {
			out[i] = volume[i] / avg[i]
		}
	}
	return out
}
