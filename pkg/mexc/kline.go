package mexc

import (
	"math"
)

// ParseKlineList zips the column-oriented REST payload into bars.
// Rows missing a column or carrying non-finite values are skipped.
// REST times are epoch seconds; OpenTime is normalized to milliseconds.
func ParseKlineList(symbol string, interval KlineInterval, raw KlinesResponse) []Kline {
	n := len(raw.Time)
	out := make([]Kline, 0, n)

	for i := 0; i < n; i++ {
		if i >= len(raw.Open) || i >= len(raw.High) || i >= len(raw.Low) || i >= len(raw.Close) {
			continue // skip incomplete row
		}

		var volume float64
		switch {
		case i < len(raw.Vol):
			volume = raw.Vol[i]
		case i < len(raw.Amount):
			volume = raw.Amount[i]
		default:
			continue
		}

		k := Kline{
			Symbol:   symbol,
			Interval: interval,
			OpenTime: NormalizeTimestamp(raw.Time[i]),
			Open:     raw.Open[i],
			High:     raw.High[i],
			Low:      raw.Low[i],
			Close:    raw.Close[i],
			Volume:   volume,
		}
		if !finite(k.Open, k.High, k.Low, k.Close, k.Volume) {
			continue
		}
		out = append(out, k)
	}
	return out
}

// secondsCutoff separates epoch seconds from epoch milliseconds: any value
// below it is treated as seconds.
const secondsCutoff = 10_000_000_000

// NormalizeTimestamp converts an epoch timestamp given in seconds or
// milliseconds to milliseconds.
func NormalizeTimestamp(t int64) int64 {
	if t < secondsCutoff {
		return t * 1000
	}
	return t
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
